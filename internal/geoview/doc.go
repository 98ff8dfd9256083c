// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Package geoview derives the map-facing view layers from the entity set:
// filtering, spatial clustering, density bucketing, alert derivation,
// flow inference and summary aggregation.
//
// Every function in this package is pure: identical inputs always
// produce identical outputs, with no dependency on prior calls. The
// View type adds optional memoization on top, keyed by store revision,
// filter and zoom; correctness never depends on it.
package geoview
