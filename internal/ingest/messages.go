// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package ingest

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/auditsec/geowatch/internal/models"
)

// Stream message types. Unknown types are dropped: the channel is a
// best-effort telemetry stream, not a transactional log.
const (
	msgSnapshot = "snapshot"
	msgUpsert   = "upsert"
	msgBatch    = "batch"
)

var (
	errUnknownMessageType = errors.New("ingest: unknown message type")
	errEmptyMessage       = errors.New("ingest: message has no payload")
)

// streamMessage is one JSON text frame from the streaming channel.
type streamMessage struct {
	Type     string                    `json:"type"`
	Entities []models.MonitoringEntity `json:"entities,omitempty"`
	Entity   *models.MonitoringEntity  `json:"entity,omitempty"`
}

// decodeMessage parses and shape-checks one frame.
func decodeMessage(data []byte) (streamMessage, error) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return streamMessage{}, fmt.Errorf("decode frame: %w", err)
	}
	switch msg.Type {
	case msgSnapshot:
		if msg.Entities == nil {
			return streamMessage{}, errEmptyMessage
		}
	case msgUpsert:
		if msg.Entity == nil {
			return streamMessage{}, errEmptyMessage
		}
	case msgBatch:
		if msg.Entities == nil {
			return streamMessage{}, errEmptyMessage
		}
	default:
		return streamMessage{}, errUnknownMessageType
	}
	return msg, nil
}
