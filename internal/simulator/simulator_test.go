// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package simulator

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/auditsec/geowatch/internal/models"
)

func TestGenerateEntitiesShape(t *testing.T) {
	entities := GenerateEntities(500, 1337)
	if len(entities) != 500 {
		t.Fatalf("got %d entities, want 500", len(entities))
	}

	validTypes := make(map[models.EntityType]bool)
	for _, typ := range models.AllEntityTypes {
		validTypes[typ] = true
	}

	for i, e := range entities {
		if e.ID == "" {
			t.Fatalf("entity %d has no id", i)
		}
		if !validTypes[e.Type] {
			t.Errorf("entity %d has unknown type %q", i, e.Type)
		}
		if e.Location == nil || len(e.Location.Coordinates) != 2 {
			t.Errorf("entity %d has no coordinates", i)
		}
		if _, ok := models.ParseFirstNumber(e.Latency); !ok {
			t.Errorf("entity %d latency %q does not parse", i, e.Latency)
		}
		if _, ok := models.ParseBandwidthMbps(e.Bandwidth); !ok {
			t.Errorf("entity %d bandwidth %q does not parse", i, e.Bandwidth)
		}
		if e.LastSeenTime().IsZero() {
			t.Errorf("entity %d last_seen %q does not parse", i, e.LastSeen)
		}
		if e.Type == models.TypeServer && e.Hostname == "" {
			t.Errorf("server %d has no hostname", i)
		}
		if e.Type == models.TypeAnomaly && !hasTag(e.Tags, "anomaly") {
			t.Errorf("anomaly %d lacks the anomaly tag", i)
		}
		if e.SecurityScore == nil || *e.SecurityScore < 50 || *e.SecurityScore > 95 {
			t.Errorf("entity %d security score out of range: %v", i, e.SecurityScore)
		}
	}
}

func TestGenerateEntitiesDeterministic(t *testing.T) {
	a := GenerateEntities(200, 42)
	b := GenerateEntities(200, 42)

	for i := range a {
		// last_seen derives from wall time; everything else must match.
		a[i].LastSeen, b[i].LastSeen = "", ""
		if !reflect.DeepEqual(a[i], b[i]) {
			t.Fatalf("entity %d differs across runs with the same seed:\n%+v\n%+v", i, a[i], b[i])
		}
	}

	c := GenerateEntities(200, 43)
	same := 0
	for i := range a {
		if a[i].Type == c[i].Type && a[i].Provider == c[i].Provider {
			same++
		}
	}
	if same == len(a) {
		t.Error("different seeds produced an identical fleet")
	}
}

func TestGenerateEntitiesClusterAroundHubs(t *testing.T) {
	entities := GenerateEntities(1000, 1337)
	hubCities := make(map[string]bool, len(hubs))
	for _, h := range hubs {
		hubCities[h.city] = true
	}

	for _, e := range entities {
		if !hubCities[e.Location.City] {
			t.Fatalf("entity placed at unknown hub %q", e.Location.City)
		}
	}
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

type recordingSink struct {
	snapshots [][]models.MonitoringEntity
	updates   []models.MonitoringEntity
}

func (r *recordingSink) ApplySnapshot(entities []models.MonitoringEntity) {
	r.snapshots = append(r.snapshots, entities)
}

func (r *recordingSink) Enqueue(entities ...models.MonitoringEntity) {
	r.updates = append(r.updates, entities...)
}

func TestFeederUpdateBatch(t *testing.T) {
	sink := &recordingSink{}
	f := NewFeeder(Config{Count: 100, BatchSize: 25, Interval: time.Second, Seed: 7}, sink)

	batch := f.updateBatch(newRNG(7 + 42))
	if len(batch) != 25 {
		t.Fatalf("batch size = %d, want 25", len(batch))
	}

	for i, u := range batch {
		if !strings.HasPrefix(u.ID, "sim-") {
			t.Errorf("update %d targets unknown id %q", i, u.ID)
		}
		if u.Type != "" || u.Hostname != "" {
			t.Errorf("update %d carries identity fields; updates must stay partial", i)
		}
		if u.Status == "" || u.Latency == "" || u.LastSeen == "" {
			t.Errorf("update %d missing telemetry: %+v", i, u)
		}
	}
}
