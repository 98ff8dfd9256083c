// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Package config provides layered configuration for GeoWatch using
// Koanf v2: built-in defaults, then an optional YAML config file, then
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Ingest endpoints are optional: a configuration with neither an API
// base URL nor a stream URL is valid and means "operate from the
// offline cache only".
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Ingest  IngestConfig  `koanf:"ingest"`
	Cache   CacheConfig   `koanf:"cache"`
	Map     MapConfig     `koanf:"map"`
	Server  ServerConfig  `koanf:"server"`
	Sim     SimConfig     `koanf:"sim"`
	Logging LoggingConfig `koanf:"logging"`
}

// IngestConfig holds the upstream endpoints and the pipeline timing
// contracts.
//
// Environment Variables:
//   - MONITORING_API_URL: REST bootstrap base URL (GET {base}/entities)
//   - MONITORING_WS_URL: streaming channel URL (ws:// or wss://)
type IngestConfig struct {
	// APIURL is the bootstrap base URL; empty disables the bootstrap fetch.
	APIURL string `koanf:"api_url"`
	// StreamURL is the streaming channel URL; empty disables streaming.
	StreamURL string `koanf:"stream_url"`

	// FlushInterval bounds how often pending upserts merge into the
	// store, independent of arrival rate.
	FlushInterval time.Duration `koanf:"flush_interval"`
	// RetryDelay is the fixed reconnect delay. Unconditional retry, no
	// backoff: the usual failure is "server not up yet", not overload.
	RetryDelay time.Duration `koanf:"retry_delay"`
	// CacheDebounce delays the offline-cache write until merges settle.
	CacheDebounce time.Duration `koanf:"cache_debounce"`
	// BootstrapTimeout bounds the bootstrap fetch.
	BootstrapTimeout time.Duration `koanf:"bootstrap_timeout"`
}

// CacheConfig holds offline cache settings.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// MapConfig holds the spatial view constants.
type MapConfig struct {
	ClusterThreshold   float64 `koanf:"cluster_threshold"`
	ClusterCellScale   float64 `koanf:"cluster_cell_scale"`
	FocusZoomIncrement float64 `koanf:"focus_zoom_increment"`
	MinZoom            float64 `koanf:"min_zoom"`
	MaxZoom            float64 `koanf:"max_zoom"`
	DensityCellScale   float64 `koanf:"density_cell_scale"`
}

// ServerConfig holds the read API HTTP server settings.
type ServerConfig struct {
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	Timeout       time.Duration `koanf:"timeout"`
	CORSOrigins   []string      `koanf:"cors_origins"`
	RateLimitReqs int           `koanf:"rate_limit_reqs"`
}

// SimConfig enables the development feed: a seeded synthetic fleet with
// rolling batch updates, used when no real endpoints are configured.
type SimConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Count     int           `koanf:"count"`
	BatchSize int           `koanf:"batch_size"`
	Interval  time.Duration `koanf:"interval"`
	Seed      int64         `koanf:"seed"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks invariants the loaders cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Ingest.FlushInterval <= 0 {
		return fmt.Errorf("ingest.flush_interval must be positive: %s", c.Ingest.FlushInterval)
	}
	if c.Ingest.RetryDelay <= 0 {
		return fmt.Errorf("ingest.retry_delay must be positive: %s", c.Ingest.RetryDelay)
	}
	if c.Ingest.CacheDebounce <= 0 {
		return fmt.Errorf("ingest.cache_debounce must be positive: %s", c.Ingest.CacheDebounce)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path required when cache is enabled")
	}
	if c.Map.MinZoom >= c.Map.MaxZoom {
		return fmt.Errorf("map.min_zoom must be below map.max_zoom")
	}
	if c.Sim.Enabled && c.Sim.Count <= 0 {
		return fmt.Errorf("sim.count must be positive when sim is enabled")
	}
	return nil
}

// EndpointsConfigured reports whether any live upstream is configured.
// False means cache-only operation.
func (c *Config) EndpointsConfigured() bool {
	return c.Ingest.APIURL != "" || c.Ingest.StreamURL != ""
}
