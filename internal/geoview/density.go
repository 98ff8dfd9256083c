// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"math"

	"github.com/auditsec/geowatch/internal/models"
)

// DensityConfig tunes the heat-intensity bucketing stage. It uses a
// coarser grid than clustering: the output is an intensity overlay,
// not discrete markers.
type DensityConfig struct {
	// CellScale sets the bucket size as CellScale / max(1, zoom),
	// clamped to [MinCell, MaxCell].
	CellScale        float64
	MinCell, MaxCell float64

	// Radius grows with sqrt(count), bounded so one very dense bucket
	// cannot visually overwhelm the map.
	BaseRadius, RadiusScale, MinRadius, MaxRadius float64

	// Opacity grows with log10(count+1), bounded likewise.
	BaseOpacity, OpacityScale, MinOpacity, MaxOpacity float64
}

// DefaultDensityConfig returns the tuned production constants.
func DefaultDensityConfig() DensityConfig {
	return DensityConfig{
		CellScale: 18,
		MinCell:   1.2,
		MaxCell:   10,

		BaseRadius:  10,
		RadiusScale: 7,
		MinRadius:   10,
		MaxRadius:   34,

		BaseOpacity:  0.05,
		OpacityScale: 0.06,
		MinOpacity:   0.05,
		MaxOpacity:   0.18,
	}
}

// DensityConfigWithCellScale returns the default density configuration
// with the cell scale overridden. Non-positive values keep the default.
func DensityConfigWithCellScale(scale float64) DensityConfig {
	cfg := DefaultDensityConfig()
	if scale > 0 {
		cfg.CellScale = scale
	}
	return cfg
}

// DensityBucket is one cell of the heat overlay.
type DensityBucket struct {
	Lat          float64           `json:"lat"` // centroid
	Lon          float64           `json:"lon"`
	Count        int               `json:"count"`
	DominantType models.EntityType `json:"dominant_type"`
	Radius       float64           `json:"radius"`
	Opacity      float64           `json:"opacity"`
}

// DensityBuckets aggregates the given entities into heat buckets for the
// current zoom. Entities without valid coordinates are skipped. The
// computation is a full recompute on every call; at expected entity
// counts this is cheaper than maintaining incremental state.
func DensityBuckets(entities []models.MonitoringEntity, zoom float64, cfg DensityConfig) []DensityBucket {
	points := spatialPoints(entities)
	if len(points) == 0 {
		return nil
	}

	cell := clampFloat(cfg.CellScale/math.Max(1, zoom), cfg.MinCell, cfg.MaxCell)
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

	out := make([]DensityBucket, 0, len(order))
	for _, key := range order {
		agg := cells[key]
		count := len(agg.points)
		n := float64(count)

		typeCounts := make(map[models.EntityType]int, len(models.AllEntityTypes))
		for _, p := range agg.points {
			typeCounts[p.Entity.Type]++
		}

		out = append(out, DensityBucket{
			Lat:          agg.sumLat / n,
			Lon:          agg.sumLon / n,
			Count:        count,
			DominantType: dominantType(typeCounts),
			Radius:       clampFloat(cfg.BaseRadius+math.Sqrt(n)*cfg.RadiusScale, cfg.MinRadius, cfg.MaxRadius),
			Opacity:      clampFloat(cfg.BaseOpacity+math.Log10(n+1)*cfg.OpacityScale, cfg.MinOpacity, cfg.MaxOpacity),
		})
	}
	return out
}
