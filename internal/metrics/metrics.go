// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Package metrics provides Prometheus instrumentation for the engine.
//
// Exposed at /metrics on the read API:
//
//	ingest_merge_duration_seconds   merge pass latency (histogram)
//	ingest_pending_entities         pending-buffer depth at flush (gauge)
//	ingest_messages_total           stream messages by type/result (counter)
//	ingest_cache_writes_total       debounced offline-cache writes (counter)
//	store_entities                  canonical store size (gauge)
//	http_request_duration_seconds   read API latency (histogram)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MergeDuration observes one coalesced merge pass into the store.
	MergeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_merge_duration_seconds",
		Help:    "Duration of one coalesced merge pass into the entity store",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})

	// PendingEntities reports the pending-buffer depth drained by a flush.
	PendingEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_pending_entities",
		Help: "Pending upsert buffer depth at the last flush",
	})

	// Messages counts stream messages by type and handling result.
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_messages_total",
		Help: "Stream messages received, by message type and result",
	}, []string{"type", "result"})

	// CacheWrites counts debounced offline-cache writes.
	CacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_cache_writes_total",
		Help: "Offline cache writes, by result",
	}, []string{"result"})

	// StoreEntities reports the canonical store size.
	StoreEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "store_entities",
		Help: "Number of entities in the canonical store",
	})

	// HTTPRequestDuration observes read API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Read API request latency",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
	}, []string{"method", "route", "status"})
)

// ObserveMerge records one merge pass.
func ObserveMerge(pending int, storeSize int, d time.Duration) {
	MergeDuration.Observe(d.Seconds())
	PendingEntities.Set(float64(pending))
	StoreEntities.Set(float64(storeSize))
}

// RecordMessage counts one stream message.
func RecordMessage(msgType, result string) {
	Messages.WithLabelValues(msgType, result).Inc()
}

// RecordCacheWrite counts one offline-cache write attempt.
func RecordCacheWrite(err error) {
	if err != nil {
		CacheWrites.WithLabelValues("error").Inc()
		return
	}
	CacheWrites.WithLabelValues("ok").Inc()
}
