// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package models

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// firstNumberRe extracts the leading numeric token from free-text
// telemetry values such as "124 ms" or "1.2 Gbps".
var firstNumberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseFirstNumber extracts the first numeric token from a free-text
// value. ok is false for empty or non-numeric input; callers treat that
// as "no value", never as zero.
func ParseFirstNumber(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	m := firstNumberRe.FindString(value)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil || !isFinite(n) {
		return 0, false
	}
	return n, true
}

// ParseBandwidthMbps normalizes a free-text bandwidth value to megabits
// per second. Recognized units (case-insensitive): kbps/kbit/kb/s,
// mbps/mbit/mb/s, gbps/gbit/gb/s. A bare number is taken as Mbps.
// Unparseable values return ok=false and are excluded from sums and
// averages rather than contributing zero.
func ParseBandwidthMbps(value string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(value))
	if s == "" {
		return 0, false
	}
	n, ok := ParseFirstNumber(s)
	if !ok {
		return 0, false
	}
	switch {
	case strings.Contains(s, "gbps"), strings.Contains(s, "gbit"), strings.Contains(s, "gb/s"):
		return n * 1000, true
	case strings.Contains(s, "mbps"), strings.Contains(s, "mbit"), strings.Contains(s, "mb/s"):
		return n, true
	case strings.Contains(s, "kbps"), strings.Contains(s, "kbit"), strings.Contains(s, "kb/s"):
		return n / 1000, true
	default:
		return n, true
	}
}

// ParseLastSeen parses an ISO-8601 timestamp string. Absent or
// unparseable values yield the zero time, which sorts after every
// real timestamp in recency orderings.
func ParseLastSeen(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
