// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"fmt"
	"sync"
	"time"

	"github.com/auditsec/geowatch/internal/models"
	"github.com/auditsec/geowatch/internal/store"
)

// View is the consumer-facing read surface over the entity store. It
// recomputes the pure view layers on demand and memoizes the spatial
// ones (clustering, density) keyed by store revision, filter and zoom,
// since those are the expensive recomputations a map UI triggers on
// every pan. Memoization is an optimization only; every layer is safe
// to recompute on any call.
type View struct {
	store      *store.Store
	clusterCfg ClusterConfig
	densityCfg DensityConfig

	mu          sync.Mutex
	clusterMemo memoEntry[[]RenderUnit]
	densityMemo memoEntry[[]DensityBucket]
}

type memoEntry[T any] struct {
	key   string
	value T
}

// NewView creates a View over the given store.
func NewView(s *store.Store, clusterCfg ClusterConfig, densityCfg DensityConfig) *View {
	return &View{store: s, clusterCfg: clusterCfg, densityCfg: densityCfg}
}

// Entities returns the raw store contents.
func (v *View) Entities() []models.MonitoringEntity {
	return v.store.Entities()
}

// Get returns one entity by id.
func (v *View) Get(id string) (models.MonitoringEntity, bool) {
	return v.store.Get(id)
}

// Providers returns the sorted distinct providers observed in the store.
func (v *View) Providers() []string {
	return v.store.Providers()
}

// DefaultFilter returns the reset filter state for the current store.
func (v *View) DefaultFilter() Filter {
	return DefaultFilter(v.store.Providers())
}

// Visible returns the filtered entity set.
func (v *View) Visible(f Filter) []models.MonitoringEntity {
	return Visible(v.store.Entities(), f)
}

// Clusters returns the render units for the visible set at a zoom.
func (v *View) Clusters(f Filter, zoom float64) []RenderUnit {
	key := fmt.Sprintf("%d|%s|%g", v.store.Revision(), f.Key(), zoom)

	v.mu.Lock()
	if v.clusterMemo.key == key {
		units := v.clusterMemo.value
		v.mu.Unlock()
		return units
	}
	v.mu.Unlock()

	units := ClustersOrPoints(v.Visible(f), zoom, v.clusterCfg)

	v.mu.Lock()
	v.clusterMemo = memoEntry[[]RenderUnit]{key: key, value: units}
	v.mu.Unlock()
	return units
}

// Density returns the heat buckets for the visible set at a zoom.
func (v *View) Density(f Filter, zoom float64) []DensityBucket {
	key := fmt.Sprintf("%d|%s|%g", v.store.Revision(), f.Key(), zoom)

	v.mu.Lock()
	if v.densityMemo.key == key {
		buckets := v.densityMemo.value
		v.mu.Unlock()
		return buckets
	}
	v.mu.Unlock()

	buckets := DensityBuckets(v.Visible(f), zoom, v.densityCfg)

	v.mu.Lock()
	v.densityMemo = memoEntry[[]DensityBucket]{key: key, value: buckets}
	v.mu.Unlock()
	return buckets
}

// Alerts returns the derived notification feed over the full store.
func (v *View) Alerts(now time.Time) []Alert {
	return Alerts(v.store.Entities(), now)
}

// Flows returns the nearest-server pairings for the visible set.
func (v *View) Flows(f Filter) []Flow {
	return Flows(v.Visible(f))
}

// Summary returns dashboard aggregates for the visible set.
func (v *View) Summary(f Filter) Summary {
	return Summarize(v.Visible(f), len(v.store.Providers()))
}

// Activity returns the recent-activity feed for the visible set.
func (v *View) Activity(f Filter, limit int) []models.MonitoringEntity {
	return RecentActivity(v.Visible(f), limit)
}

// ClusterConfig returns the clustering constants in use.
func (v *View) ClusterConfig() ClusterConfig { return v.clusterCfg }
