// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"sort"

	"github.com/auditsec/geowatch/internal/models"
)

// DefaultActivityLimit bounds the recent-activity feed.
const DefaultActivityLimit = 20

// Summary aggregates the visible set for the dashboard header.
//
// AvgLatencyMs and TotalBandwidthMbps are nil when no entity carries a
// parseable value; unparseable telemetry is excluded from the
// aggregates, never counted as zero.
type Summary struct {
	Total      int                       `json:"total"`
	Online     int                       `json:"online"`
	Warning    int                       `json:"warning"`
	Offline    int                       `json:"offline"`
	TypeCounts map[models.EntityType]int `json:"type_counts"`

	AvgLatencyMs       *float64 `json:"avg_latency_ms,omitempty"`
	TotalBandwidthMbps *float64 `json:"total_bandwidth_mbps,omitempty"`
	Providers          int      `json:"providers"`
}

// Summarize computes dashboard aggregates over the given entities.
// Warning counts warning-status entities plus anomalies, matching the
// map legend (an anomaly renders as a warning regardless of status).
func Summarize(entities []models.MonitoringEntity, providerCount int) Summary {
	s := Summary{
		Total:      len(entities),
		TypeCounts: make(map[models.EntityType]int, len(models.AllEntityTypes)),
		Providers:  providerCount,
	}

	var (
		latencySum   float64
		latencyCount int
		bwSum        float64
		bwCount      int
	)

	for i := range entities {
		e := &entities[i]
		s.TypeCounts[e.Type]++

		if e.Status == models.StatusOnline {
			s.Online++
		}
		if e.Status == models.StatusWarning || e.Type == models.TypeAnomaly {
			s.Warning++
		}
		if e.StatusOrDefault() == models.StatusOffline {
			s.Offline++
		}

		if ms, ok := models.ParseFirstNumber(e.Latency); ok {
			latencySum += ms
			latencyCount++
		}
		if mbps, ok := models.ParseBandwidthMbps(e.Bandwidth); ok {
			bwSum += mbps
			bwCount++
		}
	}

	if latencyCount > 0 {
		avg := latencySum / float64(latencyCount)
		s.AvgLatencyMs = &avg
	}
	if bwCount > 0 {
		total := bwSum
		s.TotalBandwidthMbps = &total
	}
	return s
}

// RecentActivity returns the entities sorted by last_seen descending,
// truncated to limit. Entities with absent or unparseable timestamps
// sort last. limit <= 0 applies DefaultActivityLimit.
func RecentActivity(entities []models.MonitoringEntity, limit int) []models.MonitoringEntity {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	out := append([]models.MonitoringEntity(nil), entities...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastSeenTime().After(out[j].LastSeenTime())
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
