// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"fmt"
	"math"
	"testing"

	"github.com/auditsec/geowatch/internal/models"
)

func TestFlowsPairNearestServer(t *testing.T) {
	entities := []models.MonitoringEntity{
		at("srv-paris", models.TypeServer, 48.85, 2.35),
		at("srv-tokyo", models.TypeServer, 35.68, 139.65),
		at("vpn-london", models.TypeVPN, 51.5, -0.12),
		at("anomaly-osaka", models.TypeAnomaly, 34.69, 135.5),
		at("device", models.TypeDevice, 0, 0), // not a candidate
	}

	got := Flows(entities)
	if len(got) != 2 {
		t.Fatalf("got %d flows, want 2", len(got))
	}

	if got[0].FromID != "vpn-london" || got[0].ToID != "srv-paris" {
		t.Errorf("flow 0 = %s->%s, want vpn-london->srv-paris", got[0].FromID, got[0].ToID)
	}
	if got[1].FromID != "anomaly-osaka" || got[1].ToID != "srv-tokyo" {
		t.Errorf("flow 1 = %s->%s, want anomaly-osaka->srv-tokyo", got[1].FromID, got[1].ToID)
	}
	if want := "vpn-london->srv-paris"; got[0].ID != want {
		t.Errorf("flow id = %q, want %q", got[0].ID, want)
	}
}

func TestFlowsNoServers(t *testing.T) {
	entities := []models.MonitoringEntity{
		at("vpn", models.TypeVPN, 51.5, -0.12),
		at("anomaly", models.TypeAnomaly, 34.69, 135.5),
	}
	if got := Flows(entities); got != nil {
		t.Errorf("Flows without servers = %v, want nil", got)
	}
}

func TestFlowsCandidateCap(t *testing.T) {
	entities := []models.MonitoringEntity{at("srv", models.TypeServer, 0, 0)}
	for i := 0; i < MaxFlowCandidates+15; i++ {
		entities = append(entities, at(fmt.Sprintf("vpn-%d", i), models.TypeVPN, 1, float64(i)))
	}

	got := Flows(entities)
	if len(got) != MaxFlowCandidates {
		t.Fatalf("got %d flows, want cap at %d", len(got), MaxFlowCandidates)
	}
	// The cap keeps the first candidates in input order.
	if got[0].FromID != "vpn-0" || got[len(got)-1].FromID != fmt.Sprintf("vpn-%d", MaxFlowCandidates-1) {
		t.Error("cap did not preserve input order")
	}
}

func TestFlowsSkipEntitiesWithoutCoordinates(t *testing.T) {
	entities := []models.MonitoringEntity{
		at("srv", models.TypeServer, 0, 0),
		{ID: "vpn-nowhere", Type: models.TypeVPN},
	}
	if got := Flows(entities); len(got) != 0 {
		t.Errorf("flow inferred for entity without coordinates: %v", got)
	}
}

func TestBearingDeg(t *testing.T) {
	tests := []struct {
		name                           string
		fromLat, fromLon, toLat, toLon float64
		want                           float64
	}{
		{"due north", 0, 0, 1, 0, 0},
		{"due east", 0, 0, 0, 1, 90},
		{"due south", 1, 0, 0, 0, 180},
		{"due west", 0, 1, 0, 0, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bearingDeg(tt.fromLat, tt.fromLon, tt.toLat, tt.toLon)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("bearing = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlowBearingRange(t *testing.T) {
	entities := []models.MonitoringEntity{
		at("srv", models.TypeServer, -10, -170),
		at("vpn", models.TypeVPN, 60, 170),
	}
	got := Flows(entities)
	if len(got) != 1 {
		t.Fatal("expected one flow")
	}
	if got[0].Bearing < 0 || got[0].Bearing >= 360 {
		t.Errorf("bearing %v outside [0, 360)", got[0].Bearing)
	}
}
