// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Package cache persists a compact projection of the entity store so the
// engine can operate offline across restarts.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/auditsec/geowatch/internal/models"
)

// Fixed keys for BadgerDB storage. Versioned so a future projection
// change can invalidate stale caches by key.
const (
	entitiesKey = "monitoring:entities:v1"
	metaKey     = "monitoring:entities:meta:v1"
)

// Meta describes the cached snapshot for staleness reporting.
type Meta struct {
	CachedAt time.Time `json:"cached_at"`
	Count    int       `json:"count"`
}

// Age returns how old the cached snapshot is, or zero when no cache
// has ever been written.
func (m Meta) Age(now time.Time) time.Duration {
	if m.CachedAt.IsZero() {
		return 0
	}
	return now.Sub(m.CachedAt)
}

// EntityCache is a BadgerDB-backed offline cache for the entity store.
type EntityCache struct {
	db *badger.DB
}

// New creates a cache on top of an open Badger database.
func New(db *badger.DB) *EntityCache {
	return &EntityCache{db: db}
}

// Open opens a Badger database at path and wraps it in an EntityCache.
// The returned closer shuts the database down.
func Open(path string) (*EntityCache, func() error, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open entity cache: %w", err)
	}
	return New(db), db.Close, nil
}

// Put writes the entity set and its metadata under the fixed keys.
// Entities are already a compact projection (the canonical record holds
// nothing derived or ephemeral), so they are serialized as-is.
func (c *EntityCache) Put(entities []models.MonitoringEntity, now time.Time) error {
	data, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}
	meta, err := json.Marshal(Meta{CachedAt: now, Count: len(entities)})
	if err != nil {
		return fmt.Errorf("marshal cache meta: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(entitiesKey), data); err != nil {
			return fmt.Errorf("set entities: %w", err)
		}
		if err := txn.Set([]byte(metaKey), meta); err != nil {
			return fmt.Errorf("set meta: %w", err)
		}
		return nil
	})
}

// Load reads the cached entity set and its metadata.
// A missing cache is not an error: it returns an empty set and zero Meta.
func (c *EntityCache) Load() ([]models.MonitoringEntity, Meta, error) {
	var (
		entities []models.MonitoringEntity
		meta     Meta
	)

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(entitiesKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get entities: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entities)
		}); err != nil {
			return fmt.Errorf("decode entities: %w", err)
		}

		item, err = txn.Get([]byte(metaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get meta: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, Meta{}, err
	}
	return entities, meta, nil
}

// Meta reads the cache metadata alone, for cheap cache-age reporting.
func (c *EntityCache) Meta() (Meta, error) {
	var meta Meta
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get meta: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return Meta{}, err
	}
	return meta, nil
}
