// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Package models defines the canonical monitoring entity record and the
// parse helpers for its loosely-typed telemetry fields.
package models

import "time"

// EntityType classifies a monitored network entity.
//
// Declaration order is significant: it is the canonical tie-break order
// wherever a dominant type must be chosen deterministically (clustering,
// density bucketing).
type EntityType string

// Entity types, in canonical order.
const (
	TypeServer  EntityType = "server"
	TypeDevice  EntityType = "device"
	TypeIoT     EntityType = "iot"
	TypeVPN     EntityType = "vpn"
	TypeAnomaly EntityType = "anomaly"
)

// AllEntityTypes lists every entity type in canonical order.
var AllEntityTypes = []EntityType{TypeServer, TypeDevice, TypeIoT, TypeVPN, TypeAnomaly}

// Status is the reachability state of an entity.
type Status string

// Entity statuses.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusWarning Status = "warning"
)

// AllStatuses lists every status.
var AllStatuses = []Status{StatusOnline, StatusOffline, StatusWarning}

// Location is the optional geographic placement of an entity.
// Coordinates, when present, is a [latitude, longitude] pair.
type Location struct {
	City        string    `json:"city,omitempty"`
	Country     string    `json:"country,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

// MonitoringEntity is the canonical record for one monitored entity.
// Identity is ID; every other field is optional display or telemetry data.
//
// Latency and Bandwidth carry the original free-text values ("124 ms",
// "1.2 Gbps"); numeric interpretations are obtained through
// ParseFirstNumber and ParseBandwidthMbps so unparseable values stay
// visible but are excluded from aggregation.
type MonitoringEntity struct {
	ID            string     `json:"id"`
	Type          EntityType `json:"type,omitempty"`
	Status        Status     `json:"status,omitempty"`
	Hostname      string     `json:"hostname,omitempty"`
	IPAddress     string     `json:"ip_address,omitempty"`
	Provider      string     `json:"provider,omitempty"`
	Location      *Location  `json:"location,omitempty"`
	Latency       string     `json:"latency,omitempty"`
	Bandwidth     string     `json:"bandwidth,omitempty"`
	LastSeen      string     `json:"last_seen,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	SecurityScore *float64   `json:"security_score,omitempty"`
}

// StatusOrDefault returns the entity status, defaulting to offline when absent.
func (e *MonitoringEntity) StatusOrDefault() Status {
	if e.Status == "" {
		return StatusOffline
	}
	return e.Status
}

// Coordinates returns the entity's latitude and longitude.
// ok is false when the entity has no valid numeric coordinate pair; such
// entities are excluded from all spatial structures but remain visible
// in list and alert views.
func (e *MonitoringEntity) Coordinates() (lat, lon float64, ok bool) {
	if e.Location == nil || len(e.Location.Coordinates) != 2 {
		return 0, 0, false
	}
	lat, lon = e.Location.Coordinates[0], e.Location.Coordinates[1]
	if !isFinite(lat) || !isFinite(lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

// LastSeenTime returns the parsed last_seen timestamp, or the zero time
// when absent or unparseable (sorts last).
func (e *MonitoringEntity) LastSeenTime() time.Time {
	return ParseLastSeen(e.LastSeen)
}

// Merge overlays the present fields of update onto e, leaving fields the
// update omits untouched. This is what makes partial upserts
// non-destructive: an update carrying only {id, status} cannot erase a
// previously known hostname.
//
// A field is "present" when it is non-zero; an explicitly empty string in
// an update is indistinguishable from an omitted one, which matches the
// wire format (omitted keys, never empty-string tombstones).
func (e *MonitoringEntity) Merge(update MonitoringEntity) {
	if update.Type != "" {
		e.Type = update.Type
	}
	if update.Status != "" {
		e.Status = update.Status
	}
	if update.Hostname != "" {
		e.Hostname = update.Hostname
	}
	if update.IPAddress != "" {
		e.IPAddress = update.IPAddress
	}
	if update.Provider != "" {
		e.Provider = update.Provider
	}
	if update.Location != nil {
		loc := *update.Location
		if loc.Coordinates != nil {
			loc.Coordinates = append([]float64(nil), loc.Coordinates...)
		}
		e.Location = &loc
	}
	if update.Latency != "" {
		e.Latency = update.Latency
	}
	if update.Bandwidth != "" {
		e.Bandwidth = update.Bandwidth
	}
	if update.LastSeen != "" {
		e.LastSeen = update.LastSeen
	}
	if update.Tags != nil {
		e.Tags = append([]string(nil), update.Tags...)
	}
	if update.SecurityScore != nil {
		score := *update.SecurityScore
		e.SecurityScore = &score
	}
}

// Clone returns a deep copy of the entity.
func (e *MonitoringEntity) Clone() MonitoringEntity {
	out := *e
	if e.Location != nil {
		loc := *e.Location
		if loc.Coordinates != nil {
			loc.Coordinates = append([]float64(nil), loc.Coordinates...)
		}
		out.Location = &loc
	}
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	if e.SecurityScore != nil {
		score := *e.SecurityScore
		out.SecurityScore = &score
	}
	return out
}
