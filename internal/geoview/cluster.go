// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"fmt"
	"math"

	"github.com/auditsec/geowatch/internal/models"
)

// ClusterConfig tunes the grid clustering stage.
type ClusterConfig struct {
	// Threshold is the zoom at or above which clustering is disabled
	// and every entity renders individually.
	Threshold float64
	// CellScale sets the grid cell size as CellScale / zoom, so cluster
	// granularity coarsens when zooming out and refines when zooming in.
	CellScale float64
	// FocusIncrement is added to the zoom when a cluster is focused.
	FocusIncrement float64
	// MinZoom and MaxZoom clamp the zoom range.
	MinZoom, MaxZoom float64
}

// DefaultClusterConfig returns the tuned production constants.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		Threshold:      4,
		CellScale:      12,
		FocusIncrement: 1.25,
		MinZoom:        1,
		MaxZoom:        8,
	}
}

// Point is one entity placed on the map.
type Point struct {
	Entity models.MonitoringEntity `json:"entity"`
	Lat    float64                 `json:"lat"`
	Lon    float64                 `json:"lon"`
}

// Cluster is a grid cell holding more than one entity.
type Cluster struct {
	ID           string                     `json:"id"`
	Lat          float64                    `json:"lat"` // centroid: planar mean of member coordinates
	Lon          float64                    `json:"lon"`
	Count        int                        `json:"count"`
	DominantType models.EntityType          `json:"dominant_type"`
	TypeCounts   map[models.EntityType]int  `json:"type_counts"`
	MemberIDs    []string                   `json:"member_ids"`
}

// RenderUnit is either a single entity point or a cluster.
type RenderUnit struct {
	Kind    string   `json:"kind"` // "entity" or "cluster"
	Point   *Point   `json:"point,omitempty"`
	Cluster *Cluster `json:"cluster,omitempty"`
}

// cellKey identifies one grid cell.
type cellKey struct{ x, y int }

type cellAgg struct {
	points       []Point
	sumLat, sumLon float64
}

// ClustersOrPoints groups the given entities into render units for the
// current zoom. Entities without valid coordinates are skipped.
//
// Output is deterministic for identical input: units follow cell
// first-encounter order, members keep input order, and dominant-type
// ties break by canonical entity type order.
func ClustersOrPoints(entities []models.MonitoringEntity, zoom float64, cfg ClusterConfig) []RenderUnit {
	points := spatialPoints(entities)

	if zoom >= cfg.Threshold {
		out := make([]RenderUnit, len(points))
		for i := range points {
			out[i] = RenderUnit{Kind: "entity", Point: &points[i]}
		}
		return out
	}

	cell := cfg.CellScale / zoom
	cells := make(map[cellKey]*cellAgg)
	var order []cellKey

	for _, p := range points {
		key := cellKey{
			x: int(math.Floor(p.Lat / cell)),
			y: int(math.Floor(p.Lon / cell)),
		}
		agg, ok := cells[key]
		if !ok {
			agg = &cellAgg{}
			cells[key] = agg
			order = append(order, key)
		}
		agg.points = append(agg.points, p)
		agg.sumLat += p.Lat
		agg.sumLon += p.Lon
	}

	out := make([]RenderUnit, 0, len(order))
	for _, key := range order {
		agg := cells[key]
		// Single-member cells render as plain points, not clusters of one.
		if len(agg.points) == 1 {
			p := agg.points[0]
			out = append(out, RenderUnit{Kind: "entity", Point: &p})
			continue
		}

		n := float64(len(agg.points))
		typeCounts := make(map[models.EntityType]int, len(models.AllEntityTypes))
		memberIDs := make([]string, 0, len(agg.points))
		for _, p := range agg.points {
			typeCounts[p.Entity.Type]++
			memberIDs = append(memberIDs, p.Entity.ID)
		}

		out = append(out, RenderUnit{
			Kind: "cluster",
			Cluster: &Cluster{
				ID:           fmt.Sprintf("cluster:%d:%d", key.x, key.y),
				Lat:          agg.sumLat / n,
				Lon:          agg.sumLon / n,
				Count:        len(agg.points),
				DominantType: dominantType(typeCounts),
				TypeCounts:   typeCounts,
				MemberIDs:    memberIDs,
			},
		})
	}
	return out
}

// FocusCluster returns the view change for clicking a cluster: recenter
// on its centroid and zoom in by the configured increment, clamped to
// the configured zoom range.
func FocusCluster(c *Cluster, zoom float64, cfg ClusterConfig) (lat, lon, newZoom float64) {
	return c.Lat, c.Lon, clampFloat(zoom+cfg.FocusIncrement, cfg.MinZoom, cfg.MaxZoom)
}

// dominantType picks the most frequent entity type, breaking ties by
// canonical type declaration order.
func dominantType(counts map[models.EntityType]int) models.EntityType {
	best := models.TypeServer
	bestCount := -1
	for _, t := range models.AllEntityTypes {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

// spatialPoints extracts the entities with valid coordinates, in order.
func spatialPoints(entities []models.MonitoringEntity) []Point {
	points := make([]Point, 0, len(entities))
	for i := range entities {
		lat, lon, ok := entities[i].Coordinates()
		if !ok {
			continue
		}
		points = append(points, Point{Entity: entities[i], Lat: lat, Lon: lon})
	}
	return points
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
