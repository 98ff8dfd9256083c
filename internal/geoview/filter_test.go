// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"testing"

	"github.com/auditsec/geowatch/internal/models"
)

// at places an entity at coordinates, for the spatial tests.
func at(id string, typ models.EntityType, lat, lon float64) models.MonitoringEntity {
	return models.MonitoringEntity{
		ID:       id,
		Type:     typ,
		Location: &models.Location{Coordinates: []float64{lat, lon}},
	}
}

func TestVisibleDefaultFilterPassesEverything(t *testing.T) {
	entities := []models.MonitoringEntity{
		{ID: "a", Type: models.TypeServer, Status: models.StatusOnline, Provider: "AWS"},
		{ID: "b", Type: models.TypeAnomaly}, // no status, no provider
		{ID: "c", Type: models.TypeIoT, Status: models.StatusWarning},
	}

	got := Visible(entities, DefaultFilter([]string{"AWS"}))
	if len(got) != len(entities) {
		t.Fatalf("default filter dropped entities: got %d, want %d", len(got), len(entities))
	}
	for i := range entities {
		if got[i].ID != entities[i].ID {
			t.Errorf("order changed at %d: got %q, want %q", i, got[i].ID, entities[i].ID)
		}
	}
}

func TestVisibleTypeAndStatusSets(t *testing.T) {
	entities := []models.MonitoringEntity{
		{ID: "a", Type: models.TypeServer, Status: models.StatusOnline},
		{ID: "b", Type: models.TypeVPN, Status: models.StatusOnline},
		{ID: "c", Type: models.TypeServer}, // defaults to offline
	}

	got := Visible(entities, Filter{
		Types:    []models.EntityType{models.TypeServer},
		Statuses: []models.Status{models.StatusOnline},
	})
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("got %v, want [a]", visibleIDs(got))
	}

	// Explicitly empty sets match nothing; nil sets match everything.
	if got := Visible(entities, Filter{Types: []models.EntityType{}}); len(got) != 0 {
		t.Errorf("empty type set matched %v, want nothing", visibleIDs(got))
	}
	if got := Visible(entities, Filter{}); len(got) != 3 {
		t.Errorf("nil sets matched %v, want all", visibleIDs(got))
	}
}

func TestVisibleProviderRule(t *testing.T) {
	entities := []models.MonitoringEntity{
		{ID: "a", Provider: "AWS"},
		{ID: "b", Provider: "OVH"},
		{ID: "c"}, // no provider
	}

	got := Visible(entities, Filter{Providers: []string{"AWS"}})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("got %v, want [a c]: entities without a provider always pass", visibleIDs(got))
	}

	// Empty provider set disables the predicate.
	if got := Visible(entities, Filter{}); len(got) != 3 {
		t.Errorf("empty provider set filtered entities: %v", visibleIDs(got))
	}
}

func TestVisibleSearch(t *testing.T) {
	entities := []models.MonitoringEntity{
		{ID: "a", Hostname: "edge-paris-1", IPAddress: "10.0.0.1"},
		{ID: "b", Location: &models.Location{City: "Paris", Country: "FR"}},
		{ID: "c", Tags: []string{"waf", "paris-dc"}},
		{ID: "d", Provider: "Hetzner"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"paris", []string{"a", "b", "c"}},
		{"PARIS", []string{"a", "b", "c"}}, // case-insensitive
		{"10.0.0.1", []string{"a"}},
		{"hetzner", []string{"d"}},
		{"  ", []string{"a", "b", "c", "d"}}, // whitespace-only disables search
		{"nomatch", nil},
	}

	for _, tt := range tests {
		got := visibleIDs(Visible(entities, Filter{Search: tt.query}))
		if len(got) != len(tt.want) {
			t.Errorf("search %q = %v, want %v", tt.query, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("search %q = %v, want %v", tt.query, got, tt.want)
				break
			}
		}
	}
}

func TestFilterKeyCanonical(t *testing.T) {
	a := Filter{Providers: []string{"OVH", "AWS"}, Search: " Paris "}
	b := Filter{Providers: []string{"AWS", "OVH"}, Search: "paris"}
	if a.Key() != b.Key() {
		t.Errorf("equivalent filters have different keys:\n%q\n%q", a.Key(), b.Key())
	}

	c := Filter{Providers: []string{"AWS"}}
	if a.Key() == c.Key() {
		t.Error("different filters share a key")
	}
}

func TestFilterKeyDelimiterValuesDoNotCollide(t *testing.T) {
	// A delimiter inside a value must not read as a delimiter between
	// values: these filters select different entity sets.
	joined := Filter{Providers: []string{"a,b"}}
	split := Filter{Providers: []string{"a", "b"}}
	if joined.Key() == split.Key() {
		t.Errorf("comma-bearing provider collides with a provider pair: %q", joined.Key())
	}

	piped := Filter{Providers: []string{"a|b"}}
	shifted := Filter{Providers: []string{"a"}, Search: "b"}
	if piped.Key() == shifted.Key() {
		t.Errorf("pipe-bearing provider collides across components: %q", piped.Key())
	}

	escaped := Filter{Providers: []string{`a\,b`}}
	if escaped.Key() == joined.Key() {
		t.Errorf("backslash-bearing provider collides with its escape: %q", escaped.Key())
	}
}

func visibleIDs(entities []models.MonitoringEntity) []string {
	if len(entities) == 0 {
		return nil
	}
	out := make([]string, len(entities))
	for i := range entities {
		out[i] = entities[i].ID
	}
	return out
}
