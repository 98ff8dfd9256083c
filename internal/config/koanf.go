// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/geowatch/config.yaml",
	"/etc/geowatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, applied first and then
// overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			APIURL:           "",
			StreamURL:        "",
			FlushInterval:    120 * time.Millisecond,
			RetryDelay:       1500 * time.Millisecond,
			CacheDebounce:    time.Second,
			BootstrapTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "/data/geowatch/cache",
		},
		Map: MapConfig{
			ClusterThreshold:   4,
			ClusterCellScale:   12,
			FocusZoomIncrement: 1.25,
			MinZoom:            1,
			MaxZoom:            8,
			DensityCellScale:   18,
		},
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8473,
			Timeout:       30 * time.Second,
			CORSOrigins:   []string{"*"},
			RateLimitReqs: 300,
		},
		Sim: SimConfig{
			Enabled:   false,
			Count:     5000,
			BatchSize: 200,
			Interval:  250 * time.Millisecond,
			Seed:      1337,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration with layered sources (highest priority wins):
// environment variables > config file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when set via environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated env strings into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to config paths.
// Unrecognized variables are dropped so unrelated environment noise
// cannot leak into the configuration.
func envTransformFunc(key string) string {
	switch strings.ToUpper(key) {
	case "MONITORING_API_URL":
		return "ingest.api_url"
	case "MONITORING_WS_URL":
		return "ingest.stream_url"
	case "INGEST_FLUSH_INTERVAL":
		return "ingest.flush_interval"
	case "INGEST_RETRY_DELAY":
		return "ingest.retry_delay"
	case "INGEST_CACHE_DEBOUNCE":
		return "ingest.cache_debounce"
	case "CACHE_ENABLED":
		return "cache.enabled"
	case "CACHE_PATH":
		return "cache.path"
	case "HTTP_HOST":
		return "server.host"
	case "HTTP_PORT":
		return "server.port"
	case "CORS_ORIGINS":
		return "server.cors_origins"
	case "SIM_ENABLED":
		return "sim.enabled"
	case "SIM_COUNT":
		return "sim.count"
	case "SIM_SEED":
		return "sim.seed"
	case "LOG_LEVEL":
		return "logging.level"
	case "LOG_FORMAT":
		return "logging.format"
	case "LOG_CALLER":
		return "logging.caller"
	default:
		return ""
	}
}
