// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"reflect"
	"testing"

	"github.com/auditsec/geowatch/internal/models"
	"github.com/auditsec/geowatch/internal/store"
)

func newTestView(t *testing.T) (*View, *store.Store) {
	t.Helper()
	st := store.New()
	st.ReplaceAll([]models.MonitoringEntity{
		at("a", models.TypeServer, 48.85, 2.35),
		at("b", models.TypeDevice, 48.9, 2.4),
		at("c", models.TypeVPN, 51.5, -0.12),
	})
	return NewView(st, DefaultClusterConfig(), DefaultDensityConfig()), st
}

func TestViewClustersMemoized(t *testing.T) {
	v, _ := newTestView(t)
	f := Filter{}

	first := v.Clusters(f, 2)
	second := v.Clusters(f, 2)
	if len(first) == 0 {
		t.Fatal("expected render units")
	}
	// Identical revision, filter and zoom must return the memoized slice.
	if &first[0] != &second[0] {
		t.Error("repeated call recomputed instead of returning the memo")
	}

	// A different zoom is a different key.
	other := v.Clusters(f, 5)
	if len(other) != 3 {
		t.Errorf("zoom above threshold: got %d units, want 3 points", len(other))
	}
}

func TestViewMemoInvalidatedByStoreMutation(t *testing.T) {
	v, st := newTestView(t)
	f := Filter{}

	before := v.Clusters(f, 2)
	if err := st.Merge(at("d", models.TypeIoT, 48.86, 2.36)); err != nil {
		t.Fatal(err)
	}
	after := v.Clusters(f, 2)

	if reflect.DeepEqual(before, after) {
		t.Error("store mutation did not invalidate the cluster memo")
	}
}

func TestViewMemoKeyedByFilter(t *testing.T) {
	v, _ := newTestView(t)

	all := v.Clusters(Filter{}, 2)
	serversOnly := v.Clusters(Filter{Types: []models.EntityType{models.TypeServer}}, 2)

	if reflect.DeepEqual(all, serversOnly) {
		t.Error("different filters returned the same units")
	}
}

func TestViewMemoSeparatesDelimiterBearingProviders(t *testing.T) {
	st := store.New()
	e := at("b1", models.TypeServer, 48.85, 2.35)
	e.Provider = "b"
	st.ReplaceAll([]models.MonitoringEntity{e})
	v := NewView(st, DefaultClusterConfig(), DefaultDensityConfig())

	// The first filter matches nothing; the second matches the entity.
	// They must not share a memo slot.
	empty := v.Clusters(Filter{Providers: []string{"a,b"}}, 2)
	if len(empty) != 0 {
		t.Fatalf("provider %q matched %d units, want none", "a,b", len(empty))
	}
	units := v.Clusters(Filter{Providers: []string{"a", "b"}}, 2)
	if len(units) != 1 {
		t.Errorf("got %d units, want 1; memo served another filter's result", len(units))
	}
}

func TestViewDensityMemoIndependentOfClusterMemo(t *testing.T) {
	v, _ := newTestView(t)
	f := Filter{}

	_ = v.Clusters(f, 2)
	d1 := v.Density(f, 2)
	d2 := v.Density(f, 2)
	if len(d1) == 0 {
		t.Fatal("expected density buckets")
	}
	if &d1[0] != &d2[0] {
		t.Error("density memo missed on identical key")
	}
}
