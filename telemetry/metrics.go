// Package telemetry exposes hlswatch's Prometheus metrics. The
// teacher carries no observability library at all; this is grounded
// instead on the sibling example repo 99souls-ariadne's
// engine/telemetry/metrics/prometheus.go, which wraps a
// *prometheus.Registry and a promhttp handler — simplified here from
// ariadne's fully dynamic name/cardinality-checked provider to a fixed
// set of metrics, since hlswatch's metric surface (per spec.md) is
// small and known up front.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hlswatch/health"
)

// Metrics holds every Prometheus collector hlswatch registers.
type Metrics struct {
	reg *prometheus.Registry

	StreamsMonitored prometheus.Gauge
	ActiveIncidents  prometheus.Gauge
	ProbeLatency     *prometheus.HistogramVec
	StreamHealth     *prometheus.GaugeVec
}

// New builds and registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		StreamsMonitored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hlswatch_streams_monitored",
			Help: "Number of streams currently registered for monitoring.",
		}),
		ActiveIncidents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hlswatch_active_incidents",
			Help: "Number of incidents currently OPEN or ACKNOWLEDGED across all streams.",
		}),
		ProbeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hlswatch_probe_latency_seconds",
			Help:    "Observed probe latency by kind (manifest/segment) and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "outcome"}),
		StreamHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hlswatch_stream_health_state",
			Help: "Current health state per stream: 0=GREEN, 1=YELLOW, 2=RED.",
		}, []string{"stream_id"}),
	}

	reg.MustRegister(m.StreamsMonitored, m.ActiveIncidents, m.ProbeLatency, m.StreamHealth)
	return m
}

// Handler exposes the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveProbe records one probe's latency by kind/outcome.
func (m *Metrics) ObserveProbe(kind, outcome string, seconds float64) {
	m.ProbeLatency.WithLabelValues(kind, outcome).Observe(seconds)
}

// SetStreamHealth updates the per-stream health gauge.
func (m *Metrics) SetStreamHealth(streamID string, state health.State) {
	var v float64
	switch state {
	case health.Green:
		v = 0
	case health.Yellow:
		v = 1
	case health.Red:
		v = 2
	}
	m.StreamHealth.WithLabelValues(streamID).Set(v)
}

// RemoveStream drops a deleted stream's gauge series so /metrics
// doesn't accumulate stale label sets over time.
func (m *Metrics) RemoveStream(streamID string) {
	m.StreamHealth.DeleteLabelValues(streamID)
}
