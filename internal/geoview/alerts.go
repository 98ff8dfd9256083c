// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"sort"
	"time"

	"github.com/auditsec/geowatch/internal/models"
)

// AlertLevel is the severity of a derived alert.
type AlertLevel string

// Alert levels.
const (
	LevelWarning AlertLevel = "warning"
	LevelInfo    AlertLevel = "info"
)

// Alert rule constants.
const (
	// HighLatencyThresholdMs triggers the high-latency rule.
	HighLatencyThresholdMs = 200
	// RecentActivityWindow is the window for the recent-activity rule.
	RecentActivityWindow = 5 * time.Minute
	// MaxAlerts bounds the alert feed.
	MaxAlerts = 10
)

// Alert is one entry in the derived notification feed.
type Alert struct {
	EntityID string                  `json:"entity_id"`
	Level    AlertLevel              `json:"level"`
	Reason   string                  `json:"reason"`
	LastSeen time.Time               `json:"last_seen,omitempty"`
	Entity   models.MonitoringEntity `json:"entity"`
}

// Alerts derives the prioritized notification feed from the full entity
// set. The feed is not spatial: entities without coordinates are still
// eligible.
//
// Rules evaluate per entity in priority order; the first match wins:
//
//  1. anomaly type            -> warning "Anomaly detected"
//  2. offline (or no) status  -> warning "Node offline"
//  3. warning status          -> warning "Warning status"
//  4. latency >= 200 ms       -> warning "High latency"
//  5. seen within 5 minutes   -> info    "Recent activity"
//
// Entities matching no rule produce no alert. Warnings sort before
// infos; within a level, most recent last_seen first. The feed is
// truncated to the top 10.
func Alerts(entities []models.MonitoringEntity, now time.Time) []Alert {
	alerts := make([]Alert, 0, len(entities))
	for i := range entities {
		e := &entities[i]

		var (
			level  AlertLevel
			reason string
		)
		lastSeen := e.LastSeenTime()

		switch {
		case e.Type == models.TypeAnomaly:
			level, reason = LevelWarning, "Anomaly detected"
		case e.StatusOrDefault() == models.StatusOffline:
			level, reason = LevelWarning, "Node offline"
		case e.Status == models.StatusWarning:
			level, reason = LevelWarning, "Warning status"
		case highLatency(e.Latency):
			level, reason = LevelWarning, "High latency"
		case !lastSeen.IsZero() && now.Sub(lastSeen) <= RecentActivityWindow:
			level, reason = LevelInfo, "Recent activity"
		default:
			continue
		}

		alerts = append(alerts, Alert{
			EntityID: e.ID,
			Level:    level,
			Reason:   reason,
			LastSeen: lastSeen,
			Entity:   *e,
		})
	}

	// Stable sort keeps input order for equal keys, so the feed is
	// deterministic given a stable entity ordering.
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Level != alerts[j].Level {
			return alerts[i].Level == LevelWarning
		}
		return alerts[i].LastSeen.After(alerts[j].LastSeen)
	})

	if len(alerts) > MaxAlerts {
		alerts = alerts[:MaxAlerts]
	}
	return alerts
}

func highLatency(latency string) bool {
	ms, ok := models.ParseFirstNumber(latency)
	return ok && ms >= HighLatencyThresholdMs
}
