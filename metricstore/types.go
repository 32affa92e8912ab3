// Package metricstore is the per-stream bounded append-only ring of
// metric samples, grounded on the teacher's
// proxy/stream/buffer/coordinator.go: a container/ring guarded by a
// sync.RWMutex, advanced on every write, snapshotted for readers by
// copying values out under the read lock (the same discipline as
// StreamCoordinator.ReadChunks).
package metricstore

import (
	"hlswatch/probe"
	"time"
)

// SampleKind distinguishes a manifest probe from a segment probe.
type SampleKind string

const (
	KindManifest SampleKind = "manifest"
	KindSegment  SampleKind = "segment"
)

// Sample is one observation appended to a stream's ring, matching the
// MetricSample data model in spec.md §3. JSON-tagged since it crosses
// the `/api/streams/{id}/metrics/history` boundary named in spec.md §6
// (embedded inside MinuteBucket).
type Sample struct {
	At                 time.Time     `json:"at"`
	Monotonic          int64         `json:"monotonic"` // a strictly increasing per-stream sequence number, used for tie-breaking
	Kind               SampleKind    `json:"kind"`
	URL                string        `json:"url"`
	Outcome            probe.Outcome `json:"outcome"`
	StatusCode         int           `json:"status_code"`
	TTFBMs             int64         `json:"ttfb_ms"` // 0 if no response started
	TotalMs            int64         `json:"total_ms"`
	Bytes              int64         `json:"bytes"`
	DeclaredDurationMs int64         `json:"declared_duration_ms"` // segment only, 0 if unknown

	// Ratio and HasRatio are exported (rather than computed behind a
	// method from private fields) so Sample's JSON encoding carries the
	// download ratio invariant from spec.md §3 without a custom
	// MarshalJSON. DownloadRatio() remains the read path callers use.
	Ratio    float64 `json:"download_ratio,omitempty"`
	HasRatio bool    `json:"has_download_ratio"`
}

// NewSegmentSample builds a segment Sample, computing DownloadRatio
// automatically per spec.md §3's invariant (defined only when
// kind=segment, outcome=ok, and declared_duration_ms>0).
func NewSegmentSample(at time.Time, seq int64, url string, outcome probe.Outcome, status int, ttfbMs, totalMs, bytes, declaredDurationMs int64) Sample {
	s := Sample{
		At:                 at,
		Monotonic:          seq,
		Kind:               KindSegment,
		URL:                url,
		Outcome:            outcome,
		StatusCode:         status,
		TTFBMs:             ttfbMs,
		TotalMs:            totalMs,
		Bytes:              bytes,
		DeclaredDurationMs: declaredDurationMs,
	}
	if outcome == probe.OutcomeOK && declaredDurationMs > 0 {
		s.HasRatio = true
		s.Ratio = float64(totalMs) / float64(declaredDurationMs)
	}
	return s
}

// NewManifestSample builds a manifest Sample. Manifests never carry a
// download ratio (spec.md §3).
func NewManifestSample(at time.Time, seq int64, url string, outcome probe.Outcome, status int, ttfbMs, totalMs, bytes int64) Sample {
	return Sample{
		At:         at,
		Monotonic:  seq,
		Kind:       KindManifest,
		URL:        url,
		Outcome:    outcome,
		StatusCode: status,
		TTFBMs:     ttfbMs,
		TotalMs:    totalMs,
		Bytes:      bytes,
	}
}

// DownloadRatio returns the sample's download ratio and whether it is
// defined, per the invariant in spec.md §3.
func (s Sample) DownloadRatio() (float64, bool) {
	return s.Ratio, s.HasRatio
}

// MinuteBucket is one aggregated point in a History series.
type MinuteBucket struct {
	Minute      time.Time `json:"minute"`
	MeanTTFBMs  float64   `json:"mean_ttfb_ms"`
	MeanRatio   float64   `json:"mean_ratio"`
	ErrorCount  int       `json:"error_count"`
	SampleCount int       `json:"sample_count"`
}

// History is the aggregated series returned for charting, per
// spec.md §4.3.
type History struct {
	Buckets []MinuteBucket `json:"buckets"`
}
