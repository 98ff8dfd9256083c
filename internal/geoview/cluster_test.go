// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"reflect"
	"testing"

	"github.com/auditsec/geowatch/internal/models"
)

func TestClustersOrPointsAboveThreshold(t *testing.T) {
	cfg := DefaultClusterConfig()
	entities := []models.MonitoringEntity{
		at("a", models.TypeServer, 48.85, 2.35),
		at("b", models.TypeServer, 48.86, 2.36),
		{ID: "no-coords", Type: models.TypeServer},
	}

	got := ClustersOrPoints(entities, cfg.Threshold, cfg)
	if len(got) != 2 {
		t.Fatalf("at threshold zoom got %d units, want 2 individual points", len(got))
	}
	for _, u := range got {
		if u.Kind != "entity" || u.Point == nil {
			t.Errorf("unit at threshold zoom is %q, want entity point", u.Kind)
		}
	}
}

func TestClustersOrPointsGroupsBelowThreshold(t *testing.T) {
	cfg := DefaultClusterConfig()
	// Five co-located entities plus one far away.
	entities := []models.MonitoringEntity{
		at("a", models.TypeServer, 48.85, 2.35),
		at("b", models.TypeDevice, 48.86, 2.36),
		at("c", models.TypeDevice, 48.87, 2.37),
		at("d", models.TypeVPN, 48.88, 2.38),
		at("e", models.TypeServer, 48.89, 2.39),
		at("far", models.TypeIoT, -33.86, 151.2),
	}

	got := ClustersOrPoints(entities, cfg.Threshold-1, cfg)
	if len(got) != 2 {
		t.Fatalf("got %d units, want a cluster and a point", len(got))
	}

	cluster := got[0]
	if cluster.Kind != "cluster" || cluster.Cluster == nil {
		t.Fatalf("first unit kind = %q, want cluster", cluster.Kind)
	}
	if cluster.Cluster.Count != 5 {
		t.Errorf("cluster count = %d, want 5", cluster.Cluster.Count)
	}
	if got := cluster.Cluster.MemberIDs; !reflect.DeepEqual(got, []string{"a", "b", "c", "d", "e"}) {
		t.Errorf("member ids = %v, want input order", got)
	}

	// Centroid is the planar mean.
	wantLat := (48.85 + 48.86 + 48.87 + 48.88 + 48.89) / 5
	if diff := cluster.Cluster.Lat - wantLat; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("centroid lat = %v, want %v", cluster.Cluster.Lat, wantLat)
	}

	// The isolated entity renders as a point, not a cluster of one.
	if got[1].Kind != "entity" || got[1].Point.Entity.ID != "far" {
		t.Errorf("second unit = %+v, want the isolated point", got[1])
	}
}

func TestClustersDeterministicForIdenticalInput(t *testing.T) {
	cfg := DefaultClusterConfig()
	entities := []models.MonitoringEntity{
		at("a", models.TypeServer, 48.85, 2.35),
		at("b", models.TypeDevice, 51.5, -0.12),
		at("c", models.TypeIoT, 48.9, 2.4),
		at("d", models.TypeVPN, 51.52, -0.1),
	}

	first := ClustersOrPoints(entities, 2, cfg)
	for i := 0; i < 10; i++ {
		again := ClustersOrPoints(entities, 2, cfg)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from the first run", i)
		}
	}
}

func TestDominantTypeTieBreak(t *testing.T) {
	// Two devices vs two vpns: the tie must break toward the earlier
	// canonical type (device).
	counts := map[models.EntityType]int{
		models.TypeDevice: 2,
		models.TypeVPN:    2,
	}
	if got := dominantType(counts); got != models.TypeDevice {
		t.Errorf("dominantType = %q, want %q", got, models.TypeDevice)
	}

	counts[models.TypeVPN] = 3
	if got := dominantType(counts); got != models.TypeVPN {
		t.Errorf("dominantType = %q, want %q", got, models.TypeVPN)
	}
}

func TestFocusCluster(t *testing.T) {
	cfg := DefaultClusterConfig()
	c := &Cluster{Lat: 10, Lon: 20}

	lat, lon, zoom := FocusCluster(c, 3, cfg)
	if lat != 10 || lon != 20 {
		t.Errorf("focus center = (%v, %v), want cluster centroid", lat, lon)
	}
	if zoom != 4.25 {
		t.Errorf("focus zoom = %v, want 4.25", zoom)
	}

	// Clamped at the top of the range.
	if _, _, z := FocusCluster(c, cfg.MaxZoom, cfg); z != cfg.MaxZoom {
		t.Errorf("focus zoom at max = %v, want clamp to %v", z, cfg.MaxZoom)
	}
}
