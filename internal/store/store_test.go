// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/auditsec/geowatch/internal/models"
)

func TestReplaceAll(t *testing.T) {
	s := New()
	s.ReplaceAll([]models.MonitoringEntity{
		{ID: "a", Hostname: "first"},
		{ID: "b"},
		{Hostname: "no-id, skipped"},
		{ID: "a", Status: models.StatusWarning}, // duplicate merges left to right
	})

	if got := s.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	a, ok := s.Get("a")
	if !ok {
		t.Fatal("entity a missing")
	}
	if a.Hostname != "first" || a.Status != models.StatusWarning {
		t.Errorf("duplicate snapshot ids did not merge: %+v", a)
	}

	// A later snapshot shrinks the set.
	s.ReplaceAll([]models.MonitoringEntity{{ID: "c"}})
	if got := s.Len(); got != 1 {
		t.Errorf("Len() after replacement = %d, want 1", got)
	}
	if _, ok := s.Get("a"); ok {
		t.Error("entity a survived a snapshot that dropped it")
	}
}

func TestMergeBatchInsertsAndMerges(t *testing.T) {
	s := New()
	if err := s.Merge(models.MonitoringEntity{ID: "a", Hostname: "edge-1", Status: models.StatusOnline}); err != nil {
		t.Fatal(err)
	}

	err := s.MergeBatch([]models.MonitoringEntity{
		{ID: "a", Status: models.StatusOffline},
		{ID: "b", Hostname: "edge-2"},
	})
	if err != nil {
		t.Fatal(err)
	}

	a, _ := s.Get("a")
	if a.Status != models.StatusOffline || a.Hostname != "edge-1" {
		t.Errorf("merge was destructive: %+v", a)
	}
	if _, ok := s.Get("b"); !ok {
		t.Error("new entity b not inserted")
	}
}

func TestMergeBatchRejectsMissingIDBeforeMutating(t *testing.T) {
	s := New()
	err := s.MergeBatch([]models.MonitoringEntity{
		{ID: "a"},
		{Hostname: "no id"},
	})
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("err = %v, want ErrMissingID", err)
	}
	if s.Len() != 0 {
		t.Error("failed batch partially applied")
	}
}

func TestEntitiesOrderIsFirstSeen(t *testing.T) {
	s := New()
	for _, id := range []string{"c", "a", "b"} {
		if err := s.Merge(models.MonitoringEntity{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	// Re-merging an existing id must not move it.
	if err := s.Merge(models.MonitoringEntity{ID: "a", Status: models.StatusOnline}); err != nil {
		t.Fatal(err)
	}

	got := s.Entities()
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
}

func TestEntitiesReturnsCopies(t *testing.T) {
	s := New()
	if err := s.Merge(models.MonitoringEntity{ID: "a", Tags: []string{"x"}}); err != nil {
		t.Fatal(err)
	}

	out := s.Entities()
	out[0].Tags[0] = "mutated"
	out[0].ID = "mutated"

	fresh, _ := s.Get("a")
	if fresh.Tags[0] != "x" {
		t.Error("Entities() aliases internal state")
	}
}

func TestProviders(t *testing.T) {
	s := New()
	s.ReplaceAll([]models.MonitoringEntity{
		{ID: "a", Provider: "OVH"},
		{ID: "b", Provider: "AWS"},
		{ID: "c", Provider: "OVH"},
		{ID: "d"},
	})

	got := s.Providers()
	want := []string{"AWS", "OVH"}
	if len(got) != len(want) {
		t.Fatalf("Providers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Providers() = %v, want %v", got, want)
		}
	}
}

func TestRevisionIncrementsOnMutation(t *testing.T) {
	s := New()
	r0 := s.Revision()

	s.ReplaceAll(nil)
	if s.Revision() == r0 {
		t.Error("ReplaceAll did not bump revision")
	}

	r1 := s.Revision()
	if err := s.Merge(models.MonitoringEntity{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if s.Revision() == r1 {
		t.Error("Merge did not bump revision")
	}
}

func TestConcurrentMergeAndRead(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = s.Merge(models.MonitoringEntity{ID: fmt.Sprintf("g%d-%d", g, i)})
				_ = s.Entities()
				_ = s.Providers()
			}
		}(g)
	}
	wg.Wait()

	if got := s.Len(); got != 800 {
		t.Errorf("Len() = %d, want 800", got)
	}
}

func ids(entities []models.MonitoringEntity) []string {
	out := make([]string, len(entities))
	for i := range entities {
		out[i] = entities[i].ID
	}
	return out
}
