package registry

import (
	"time"

	"hlswatch/health"
	"hlswatch/incident"
	"hlswatch/metricstore"
	"hlswatch/rootcause"
	"hlswatch/supervisor"
)

// StreamSummary is the compact row returned by ListStreams.
type StreamSummary struct {
	StreamID  string                     `json:"stream_id"`
	MasterURL string                     `json:"master_url"`
	State     supervisor.LifecycleState  `json:"state"`
	Health    health.State               `json:"health"`
}

// StreamDetail is the full per-stream payload returned by GetStream,
// per spec.md §4.8.
type StreamDetail struct {
	StreamID        string                    `json:"stream_id"`
	MasterURL       string                    `json:"master_url"`
	State           supervisor.LifecycleState `json:"state"`
	Snapshot        health.Snapshot           `json:"snapshot"`
	ActiveIncident  *incident.Incident        `json:"active_incident,omitempty"`
	RootCause       rootcause.RootCause       `json:"root_cause"`
	LatestThumbnail string                    `json:"latest_thumbnail,omitempty"`
}

// HistoryPayload wraps a metricstore.History for the HTTP layer.
type HistoryPayload struct {
	StreamID string              `json:"stream_id"`
	History  metricstore.History `json:"history"`
}

// IncidentFilter narrows list_incidents(filter) queries, per spec.md
// §6's `/api/incidents?active_only=bool&stream_id=...` contract.
type IncidentFilter struct {
	StreamID   string // empty matches every stream
	ActiveOnly bool
}

// StreamConfig is the persisted, externally supplied configuration for
// one stream.
type StreamConfig struct {
	StreamID  string    `json:"stream_id"`
	MasterURL string    `json:"master_url"`
	CreatedAt time.Time `json:"created_at"`
}
