// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Package simulator produces a deterministic synthetic fleet for
// development and load testing. The same seed always yields the same
// fleet, so performance numbers are comparable across runs.
package simulator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/auditsec/geowatch/internal/logging"
	"github.com/auditsec/geowatch/internal/models"
)

// rng is a mulberry32 PRNG. Chosen for reproducibility against the
// historical dataset, not for statistical quality.
type rng struct{ t uint32 }

func newRNG(seed int64) *rng { return &rng{t: uint32(seed)} }

func (r *rng) float64() float64 {
	r.t += 0x6d2b79f5
	x := r.t
	x = (x ^ (x >> 15)) * (x | 1)
	x ^= x + (x^(x>>7))*(x|61)
	return float64(x^(x>>14)) / 4294967296
}

func (r *rng) pick(n int) int {
	return int(math.Floor(r.float64() * float64(n)))
}

func (r *rng) jitter(base, spread float64) float64 {
	return base + (r.float64()-0.5)*spread
}

type hub struct {
	city    string
	country string
	lat     float64
	lon     float64
}

// Metro hubs the synthetic fleet clusters around, mimicking real-world
// deployment density.
var hubs = []hub{
	{"Paris", "FR", 48.8566, 2.3522},
	{"London", "UK", 51.5072, -0.1276},
	{"Frankfurt", "DE", 50.1109, 8.6821},
	{"New York", "US", 40.7128, -74.006},
	{"San Francisco", "US", 37.7749, -122.4194},
	{"Singapore", "SG", 1.3521, 103.8198},
	{"Tokyo", "JP", 35.6762, 139.6503},
	{"Dubai", "AE", 25.2048, 55.2708},
}

var (
	simProviders = []string{"AWS", "GCP", "Azure", "OVH", "Hetzner", "On-prem"}
	simTypes     = models.AllEntityTypes
	// Online triple-weighted so most of the fleet is healthy.
	simStatuses = []models.Status{
		models.StatusOnline, models.StatusOnline, models.StatusOnline,
		models.StatusWarning, models.StatusOffline,
	}
)

// GenerateEntities builds count synthetic entities from the given seed.
func GenerateEntities(count int, seed int64) []models.MonitoringEntity {
	r := newRNG(seed)
	now := time.Now()

	out := make([]models.MonitoringEntity, 0, count)
	for i := 0; i < count; i++ {
		h := hubs[r.pick(len(hubs))]
		typ := simTypes[r.pick(len(simTypes))]
		status := simStatuses[r.pick(len(simStatuses))]
		provider := simProviders[r.pick(len(simProviders))]
		lat := r.jitter(h.lat, 6.5)
		lon := r.jitter(h.lon, 8.0)

		latency := math.Max(1, math.Round(10+r.float64()*220+warningPenalty(status, 120)))
		bw := math.Max(0.5, r.float64()*950)
		lastSeen := now.Add(-time.Duration(r.float64()*25) * time.Minute)
		score := math.Round(50 + r.float64()*45)

		e := models.MonitoringEntity{
			ID:        fmt.Sprintf("sim-%d", i+1),
			Type:      typ,
			Status:    status,
			IPAddress: fmt.Sprintf("10.%d.%d.%d", (i%250)+1, (i/250)%250, (i%250)+1),
			Provider:  provider,
			Location: &models.Location{
				City:        h.city,
				Country:     h.country,
				Coordinates: []float64{lat, lon},
			},
			Latency:       fmt.Sprintf("%d ms", int(latency)),
			Bandwidth:     fmt.Sprintf("%d Mbps", int(math.Round(bw))),
			LastSeen:      lastSeen.UTC().Format(time.RFC3339),
			Tags:          []string{"monitored"},
			SecurityScore: &score,
		}
		if typ == models.TypeServer {
			e.Hostname = fmt.Sprintf("edge-%d", i+1)
		}
		if typ == models.TypeAnomaly {
			e.Tags = []string{"anomaly", "waf"}
		}
		out = append(out, e)
	}
	return out
}

func warningPenalty(s models.Status, penalty float64) float64 {
	if s == models.StatusWarning {
		return penalty
	}
	return 0
}

// Sink is where the feeder delivers its synthetic telemetry. The ingest
// pipeline satisfies it.
type Sink interface {
	ApplySnapshot([]models.MonitoringEntity)
	Enqueue(...models.MonitoringEntity)
}

// Config controls the synthetic feed.
type Config struct {
	Count     int
	BatchSize int
	Interval  time.Duration
	Seed      int64
}

func (c Config) withDefaults() Config {
	if c.Count <= 0 {
		c.Count = 5000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.Interval <= 0 {
		c.Interval = 250 * time.Millisecond
	}
	if c.Seed == 0 {
		c.Seed = 1337
	}
	return c
}

// Feeder seeds the sink with a synthetic fleet and then streams rolling
// partial updates, exercising the same coalescing path live telemetry
// takes.
type Feeder struct {
	cfg  Config
	sink Sink
	log  zerolog.Logger
}

// NewFeeder creates a feeder delivering into sink.
func NewFeeder(cfg Config, sink Sink) *Feeder {
	return &Feeder{
		cfg:  cfg.withDefaults(),
		sink: sink,
		log:  logging.With().Str("component", "simulator").Logger(),
	}
}

// String identifies the feeder to its supervisor.
func (f *Feeder) String() string { return "sim-feeder" }

// Serve implements suture.Service.
func (f *Feeder) Serve(ctx context.Context) error {
	f.sink.ApplySnapshot(GenerateEntities(f.cfg.Count, f.cfg.Seed))
	f.log.Info().
		Int("count", f.cfg.Count).
		Int64("seed", f.cfg.Seed).
		Dur("interval", f.cfg.Interval).
		Msg("Synthetic fleet seeded")

	// Update stream uses an offset seed so it does not replay the
	// placement sequence.
	r := newRNG(f.cfg.Seed + 42)

	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.sink.Enqueue(f.updateBatch(r)...)
		}
	}
}

// updateBatch mutates a random subset of the fleet: mostly healthy, a
// sliver of warnings and outages.
func (f *Feeder) updateBatch(r *rng) []models.MonitoringEntity {
	now := time.Now().UTC().Format(time.RFC3339)
	batch := make([]models.MonitoringEntity, 0, f.cfg.BatchSize)
	for i := 0; i < f.cfg.BatchSize; i++ {
		idx := r.pick(f.cfg.Count)

		status := models.StatusOnline
		switch roll := r.float64(); {
		case roll < 0.02:
			status = models.StatusOffline
		case roll < 0.08:
			status = models.StatusWarning
		}

		latency := math.Max(1, math.Round(10+r.float64()*220+warningPenalty(status, 140)))
		bw := math.Max(1, r.float64()*950)

		batch = append(batch, models.MonitoringEntity{
			ID:        fmt.Sprintf("sim-%d", idx+1),
			Status:    status,
			Latency:   fmt.Sprintf("%d ms", int(latency)),
			Bandwidth: fmt.Sprintf("%d Mbps", int(math.Round(bw))),
			LastSeen:  now,
		})
	}
	return batch
}
