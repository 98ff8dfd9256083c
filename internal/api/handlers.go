// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/auditsec/geowatch/internal/geoview"
	"github.com/auditsec/geowatch/internal/ingest"
	"github.com/auditsec/geowatch/internal/models"
)

// defaultZoom is assumed when a spatial endpoint is called without an
// explicit zoom, matching the world-overview initial view.
const defaultZoom = 2

// StatusSource reports pipeline health for the status endpoint.
type StatusSource interface {
	Status() ingest.Status
}

// Handler serves the read API over the view layer.
type Handler struct {
	view   *geoview.View
	source StatusSource
}

// NewHandler creates a handler over the given view and status source.
func NewHandler(view *geoview.View, source StatusSource) *Handler {
	return &Handler{view: view, source: source}
}

// Entities returns the full entity set.
func (h *Handler) Entities(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, h.view.Entities(), start)
}

// Entity returns one entity by id.
func (h *Handler) Entity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	e, ok := h.view.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "no entity with id "+id)
		return
	}
	respondSuccess(w, e, start)
}

// Visible returns the filtered entity set.
func (h *Handler) Visible(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, h.view.Visible(parseFilter(r)), start)
}

// Clusters returns the render units for the visible set at a zoom.
func (h *Handler) Clusters(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	zoom, err := parseZoom(r, h.view.ClusterConfig())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_zoom", err.Error())
		return
	}
	respondSuccess(w, h.view.Clusters(parseFilter(r), zoom), start)
}

// focusTarget is the view change returned for a cluster focus request.
type focusTarget struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom float64 `json:"zoom"`
}

// ClusterFocus resolves a cluster id to its focus view change: recenter
// on the centroid, zoom in by the configured increment.
func (h *Handler) ClusterFocus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	zoom, err := parseZoom(r, h.view.ClusterConfig())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_zoom", err.Error())
		return
	}
	id := chi.URLParam(r, "id")

	for _, unit := range h.view.Clusters(parseFilter(r), zoom) {
		if unit.Kind != "cluster" || unit.Cluster.ID != id {
			continue
		}
		lat, lon, newZoom := geoview.FocusCluster(unit.Cluster, zoom, h.view.ClusterConfig())
		respondSuccess(w, focusTarget{Lat: lat, Lon: lon, Zoom: newZoom}, start)
		return
	}
	respondError(w, http.StatusNotFound, "not_found", "no cluster with id "+id+" at this zoom")
}

// Density returns the heat buckets for the visible set at a zoom.
func (h *Handler) Density(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	zoom, err := parseZoom(r, h.view.ClusterConfig())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_zoom", err.Error())
		return
	}
	respondSuccess(w, h.view.Density(parseFilter(r), zoom), start)
}

// Alerts returns the derived notification feed.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, h.view.Alerts(time.Now()), start)
}

// Flows returns the nearest-server pairings for the visible set.
func (h *Handler) Flows(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, h.view.Flows(parseFilter(r)), start)
}

// Summary returns the dashboard aggregates for the visible set.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, h.view.Summary(parseFilter(r)), start)
}

// Activity returns the recent-activity feed for the visible set.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	respondSuccess(w, h.view.Activity(parseFilter(r), limit), start)
}

// Providers returns the sorted distinct providers currently observed.
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, h.view.Providers(), start)
}

// Status returns pipeline health.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, h.source.Status(), start)
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, map[string]string{"status": "ok"}, start)
}

// parseFilter builds the view filter from query parameters.
//
// types and statuses distinguish absent (all) from present-but-empty
// (none); providers and q are plain optional parameters.
func parseFilter(r *http.Request) geoview.Filter {
	q := r.URL.Query()
	var f geoview.Filter

	if q.Has("types") {
		f.Types = []models.EntityType{}
		for _, v := range splitCSV(q.Get("types")) {
			f.Types = append(f.Types, models.EntityType(v))
		}
	}
	if q.Has("statuses") {
		f.Statuses = []models.Status{}
		for _, v := range splitCSV(q.Get("statuses")) {
			f.Statuses = append(f.Statuses, models.Status(v))
		}
	}
	f.Providers = splitCSV(q.Get("providers"))
	f.Search = q.Get("q")
	return f
}

// parseZoom reads and clamps the zoom query parameter.
func parseZoom(r *http.Request, cfg geoview.ClusterConfig) (float64, error) {
	raw := r.URL.Query().Get("zoom")
	if raw == "" {
		return defaultZoom, nil
	}
	zoom, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if zoom < cfg.MinZoom {
		zoom = cfg.MinZoom
	}
	if zoom > cfg.MaxZoom {
		zoom = cfg.MaxZoom
	}
	return zoom, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
