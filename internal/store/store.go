// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Package store holds the canonical in-memory entity set.
//
// The store is the single piece of mutable state the downstream view
// layers depend on. Mutation happens only through ReplaceAll (snapshot),
// Merge (one record) and MergeBatch (many records in one pass); every
// read returns copies, so callers can never alias internal state.
//
// Iteration order is stable: entities are kept in first-seen order, and
// a full snapshot preserves the snapshot's own order. Deterministic
// ordering is what makes downstream tie-breaks reproducible.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/auditsec/geowatch/internal/models"
)

// ErrMissingID reports a merge attempted with a record lacking an id.
// This is a programming-contract violation, not malformed telemetry:
// identity is the one field the whole model assumes present.
var ErrMissingID = errors.New("store: entity record has no id")

// Store is a mutex-guarded keyed entity set.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*models.MonitoringEntity
	order    []string // ids in first-seen order
	revision uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{byID: make(map[string]*models.MonitoringEntity)}
}

// ReplaceAll replaces the whole entity set with the given snapshot.
// Records without an id are skipped; duplicate ids within the snapshot
// merge left to right. This is the only operation that can shrink
// the set.
func (s *Store) ReplaceAll(entities []models.MonitoringEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*models.MonitoringEntity, len(entities))
	s.order = s.order[:0]
	for i := range entities {
		e := entities[i].Clone()
		if e.ID == "" {
			continue
		}
		if existing, ok := s.byID[e.ID]; ok {
			existing.Merge(e)
			continue
		}
		s.byID[e.ID] = &e
		s.order = append(s.order, e.ID)
	}
	s.revision++
}

// Merge inserts or merges one record by id.
func (s *Store) Merge(update models.MonitoringEntity) error {
	return s.MergeBatch([]models.MonitoringEntity{update})
}

// MergeBatch inserts or merges many records by id in a single pass.
// Any record without an id aborts the batch with ErrMissingID before
// mutation begins.
func (s *Store) MergeBatch(updates []models.MonitoringEntity) error {
	for i := range updates {
		if updates[i].ID == "" {
			return ErrMissingID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range updates {
		u := updates[i]
		if existing, ok := s.byID[u.ID]; ok {
			existing.Merge(u)
			continue
		}
		e := u.Clone()
		s.byID[u.ID] = &e
		s.order = append(s.order, u.ID)
	}
	s.revision++
	return nil
}

// Entities returns a copy of the entity set in stable first-seen order.
func (s *Store) Entities() []models.MonitoringEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.MonitoringEntity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// Get returns the entity with the given id, if present.
func (s *Store) Get(id string) (models.MonitoringEntity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return models.MonitoringEntity{}, false
	}
	return e.Clone(), true
}

// Providers returns the sorted distinct providers currently observed.
func (s *Store) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range s.byID {
		if e.Provider != "" {
			seen[e.Provider] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of entities in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Revision returns a counter that increments on every mutation.
// Suitable as a memoization key for derived views.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}
