// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Command server runs the GeoWatch engine: the ingest pipeline, the
// derived view layers and the read API, under one supervision tree.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/auditsec/geowatch/internal/api"
	"github.com/auditsec/geowatch/internal/cache"
	"github.com/auditsec/geowatch/internal/config"
	"github.com/auditsec/geowatch/internal/geoview"
	"github.com/auditsec/geowatch/internal/ingest"
	"github.com/auditsec/geowatch/internal/logging"
	"github.com/auditsec/geowatch/internal/simulator"
	"github.com/auditsec/geowatch/internal/store"
	"github.com/auditsec/geowatch/internal/supervisor"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("geowatch %s (%s)\n", version, commit)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("commit", commit).
		Msg("GeoWatch starting")

	var entityCache *cache.EntityCache
	if cfg.Cache.Enabled {
		ec, closeCache, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Cache.Path).Msg("Failed to open offline cache")
		}
		defer func() {
			if err := closeCache(); err != nil {
				logging.Warn().Err(err).Msg("Offline cache close failed")
			}
		}()
		entityCache = ec
	}

	st := store.New()
	view := geoview.NewView(st,
		geoview.ClusterConfig{
			Threshold:      cfg.Map.ClusterThreshold,
			CellScale:      cfg.Map.ClusterCellScale,
			FocusIncrement: cfg.Map.FocusZoomIncrement,
			MinZoom:        cfg.Map.MinZoom,
			MaxZoom:        cfg.Map.MaxZoom,
		},
		geoview.DensityConfigWithCellScale(cfg.Map.DensityCellScale),
	)

	pipeline := ingest.New(ingest.Config{
		APIURL:           cfg.Ingest.APIURL,
		StreamURL:        cfg.Ingest.StreamURL,
		FlushInterval:    cfg.Ingest.FlushInterval,
		RetryDelay:       cfg.Ingest.RetryDelay,
		CacheDebounce:    cfg.Ingest.CacheDebounce,
		BootstrapTimeout: cfg.Ingest.BootstrapTimeout,
	}, st, entityCache)

	server := api.NewServer(api.ServerConfig{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		Timeout:       cfg.Server.Timeout,
		CORSOrigins:   cfg.Server.CORSOrigins,
		RateLimitReqs: cfg.Server.RateLimitReqs,
	}, api.NewHandler(view, pipeline))

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddIngestService(pipeline)
	tree.AddAPIService(server)

	// The synthetic feed never overrides real endpoints.
	if cfg.Sim.Enabled && !cfg.EndpointsConfigured() {
		tree.AddIngestService(simulator.NewFeeder(simulator.Config{
			Count:     cfg.Sim.Count,
			BatchSize: cfg.Sim.BatchSize,
			Interval:  cfg.Sim.Interval,
			Seed:      cfg.Sim.Seed,
		}, pipeline))
		logging.Info().Int("count", cfg.Sim.Count).Msg("Synthetic feed enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}
	logging.Info().Msg("GeoWatch stopped")
}
