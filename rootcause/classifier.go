// Package rootcause classifies the probable cause of a stream's
// unhealthy state from its recent sample window, using the same
// first-match-wins ordered rule list shape as parseLine's tag switch
// in the teacher's m3u8_processor.go and the health package's own
// rule list.
package rootcause

import (
	"fmt"

	"hlswatch/metricstore"
	"hlswatch/probe"
)

// Label names the probable root cause.
type Label string

const (
	LabelOriginOutage      Label = "Origin/CDN Outage"
	LabelEncoderIssue      Label = "Encoder/Packager Issue"
	LabelNetworkCongestion Label = "Network Congestion"
	LabelEdgeLatency       Label = "CDN Edge Latency"
	LabelIntermittent      Label = "Intermittent Failures"
	LabelInsufficient      Label = "Insufficient Evidence"
)

// Confidence is the classifier's confidence in a Label.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
	ConfidenceNone   Confidence = ""
)

// RootCause is the classifier's pure output. JSON-tagged since it
// crosses the `/api/streams/{id}` boundary named in spec.md §6
// (embedded inside StreamDetail).
type RootCause struct {
	Label      Label      `json:"label"`
	Confidence Confidence `json:"confidence"`
	Evidence   []string   `json:"evidence,omitempty"`
}

// Classify applies the priority-ordered rule table from spec.md §4.6,
// first match wins. window is the stream's W_short sample window;
// lastManifest is the most recent manifest probe result, or nil if
// none has ever succeeded or been attempted.
func Classify(window []metricstore.Sample, lastManifest *metricstore.Sample) RootCause {
	stats := deriveStats(window)

	if manifestFailing(window, lastManifest) {
		return RootCause{
			Label:      LabelOriginOutage,
			Confidence: ConfidenceHigh,
			Evidence:   []string{"most recent manifest probe is not ok", "at least 2 consecutive manifest failures"},
		}
	}

	if manifestOK(lastManifest) && stats.segmentHTTPErrors >= 3 {
		return RootCause{
			Label:      LabelEncoderIssue,
			Confidence: ConfidenceMedium,
			Evidence:   []string{"manifest probes are ok", fmt.Sprintf("%d segment probes returned http_error", stats.segmentHTTPErrors)},
		}
	}

	if stats.hasAvgTTFB && stats.avgTTFBMs > 800 && stats.hasAvgRatio && stats.avgRatio > 1.0 {
		return RootCause{
			Label:      LabelNetworkCongestion,
			Confidence: ConfidenceMedium,
			Evidence: []string{
				fmt.Sprintf("avg TTFB %.0f ms exceeds 800 ms", stats.avgTTFBMs),
				fmt.Sprintf("avg download ratio %.2f exceeds 1.0", stats.avgRatio),
			},
		}
	}

	if stats.hasAvgTTFB && stats.avgTTFBMs > 500 && (!stats.hasAvgRatio || stats.avgRatio <= 1.0) {
		return RootCause{
			Label:      LabelEdgeLatency,
			Confidence: ConfidenceLow,
			Evidence:   []string{fmt.Sprintf("avg TTFB %.0f ms exceeds 500 ms", stats.avgTTFBMs)},
		}
	}

	if stats.errRate > 0 {
		return RootCause{
			Label:      LabelIntermittent,
			Confidence: ConfidenceLow,
			Evidence:   []string{fmt.Sprintf("error rate %.0f%% with no other rule matching", stats.errRate*100)},
		}
	}

	return RootCause{Label: LabelInsufficient, Confidence: ConfidenceNone}
}

type derivedStats struct {
	segmentHTTPErrors int
	errRate           float64
	avgTTFBMs         float64
	hasAvgTTFB        bool
	avgRatio          float64
	hasAvgRatio       bool
}

func deriveStats(window []metricstore.Sample) derivedStats {
	var d derivedStats
	if len(window) == 0 {
		return d
	}

	var errCount int
	var ttfbSum float64
	var ttfbN int
	var ratioSum float64
	var ratioN int

	for _, s := range window {
		if s.Outcome != probe.OutcomeOK {
			errCount++
			if s.Kind == metricstore.KindSegment && s.Outcome == probe.OutcomeHTTPError {
				d.segmentHTTPErrors++
			}
		} else if s.TTFBMs > 0 {
			ttfbSum += float64(s.TTFBMs)
			ttfbN++
		}
		if ratio, ok := s.DownloadRatio(); ok {
			ratioSum += ratio
			ratioN++
		}
	}

	d.errRate = float64(errCount) / float64(len(window))
	if ttfbN > 0 {
		d.avgTTFBMs = ttfbSum / float64(ttfbN)
		d.hasAvgTTFB = true
	}
	if ratioN > 0 {
		d.avgRatio = ratioSum / float64(ratioN)
		d.hasAvgRatio = true
	}
	return d
}

func manifestOK(lastManifest *metricstore.Sample) bool {
	return lastManifest != nil && lastManifest.Outcome == probe.OutcomeOK
}

// manifestFailing reports whether the most recent manifest probe is
// not ok AND there are at least 2 consecutive manifest failures in
// the window, per rule 1 of spec.md §4.6.
func manifestFailing(window []metricstore.Sample, lastManifest *metricstore.Sample) bool {
	if lastManifest == nil || lastManifest.Outcome == probe.OutcomeOK {
		return false
	}

	consecutive := 0
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].Kind != metricstore.KindManifest {
			continue
		}
		if window[i].Outcome == probe.OutcomeOK {
			break
		}
		consecutive++
		if consecutive >= 2 {
			return true
		}
	}
	return consecutive >= 2
}
