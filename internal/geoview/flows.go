// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"math"

	"github.com/auditsec/geowatch/internal/models"
)

// MaxFlowCandidates caps the number of suspicious entities paired per
// computation; inference cost stays bounded regardless of fleet size.
const MaxFlowCandidates = 20

// Flow is a directed pairing from a suspicious entity (VPN exit node or
// anomaly) to its nearest server, for directional map overlays.
type Flow struct {
	ID      string  `json:"id"`
	FromID  string  `json:"from_id"`
	ToID    string  `json:"to_id"`
	FromLat float64 `json:"from_lat"`
	FromLon float64 `json:"from_lon"`
	ToLat   float64 `json:"to_lat"`
	ToLon   float64 `json:"to_lon"`
	// Bearing is the compass direction from candidate to server, in
	// degrees [0, 360), for arrow-icon orientation.
	Bearing float64 `json:"bearing"`
}

// Flows pairs each VPN or anomaly entity with the server minimizing
// squared planar distance. Only entities with valid coordinates
// participate; candidates are capped to the first MaxFlowCandidates in
// input order, and ties break toward the earlier server in input order.
// No inference is attempted when there are no servers.
func Flows(entities []models.MonitoringEntity) []Flow {
	points := spatialPoints(entities)

	var servers, candidates []Point
	for _, p := range points {
		switch p.Entity.Type {
		case models.TypeServer:
			servers = append(servers, p)
		case models.TypeVPN, models.TypeAnomaly:
			candidates = append(candidates, p)
		}
	}
	if len(servers) == 0 {
		return nil
	}
	if len(candidates) > MaxFlowCandidates {
		candidates = candidates[:MaxFlowCandidates]
	}

	out := make([]Flow, 0, len(candidates))
	for _, c := range candidates {
		best := servers[0]
		bestD := math.Inf(1)
		for _, s := range servers {
			d := squaredDistance(c.Lat, c.Lon, s.Lat, s.Lon)
			if d < bestD {
				bestD = d
				best = s
			}
		}
		out = append(out, Flow{
			ID:      c.Entity.ID + "->" + best.Entity.ID,
			FromID:  c.Entity.ID,
			ToID:    best.Entity.ID,
			FromLat: c.Lat,
			FromLon: c.Lon,
			ToLat:   best.Lat,
			ToLon:   best.Lon,
			Bearing: bearingDeg(c.Lat, c.Lon, best.Lat, best.Lon),
		})
	}
	return out
}

// squaredDistance is the squared planar distance between two
// coordinates. No spherical correction: at the scales the overlay
// operates on this is an accepted approximation, and the square root
// is unnecessary for comparing distances.
func squaredDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := lon1 - lon2
	return dLat*dLat + dLon*dLon
}

// bearingDeg computes the standard compass bearing from one coordinate
// to another, in degrees [0, 360).
func bearingDeg(fromLat, fromLon, toLat, toLon float64) float64 {
	fromLatRad := fromLat * math.Pi / 180
	toLatRad := toLat * math.Pi / 180
	deltaLonRad := (toLon - fromLon) * math.Pi / 180

	y := math.Sin(deltaLonRad) * math.Cos(toLatRad)
	x := math.Cos(fromLatRad)*math.Sin(toLatRad) -
		math.Sin(fromLatRad)*math.Cos(toLatRad)*math.Cos(deltaLonRad)

	bearing := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}
