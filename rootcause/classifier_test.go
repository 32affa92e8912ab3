package rootcause

import (
	"testing"
	"time"

	"hlswatch/metricstore"
	"hlswatch/probe"
)

func TestClassifyOriginOutage(t *testing.T) {
	now := time.Now()
	window := []metricstore.Sample{
		metricstore.NewManifestSample(now.Add(-20*time.Second), 0, "u", probe.OutcomeHTTPError, 503, 0, 50, 0),
		metricstore.NewManifestSample(now.Add(-10*time.Second), 0, "u", probe.OutcomeHTTPError, 503, 0, 50, 0),
	}
	last := &window[1]

	rc := Classify(window, last)
	if rc.Label != LabelOriginOutage || rc.Confidence != ConfidenceHigh {
		t.Fatalf("expected Origin/CDN Outage HIGH, got %s %s", rc.Label, rc.Confidence)
	}
}

func TestClassifyEncoderIssue(t *testing.T) {
	now := time.Now()
	window := []metricstore.Sample{
		metricstore.NewManifestSample(now.Add(-40*time.Second), 0, "m", probe.OutcomeOK, 200, 50, 80, 500),
		metricstore.NewSegmentSample(now.Add(-30*time.Second), 0, "s1", probe.OutcomeHTTPError, 404, 0, 50, 500, 6000),
		metricstore.NewSegmentSample(now.Add(-20*time.Second), 0, "s2", probe.OutcomeHTTPError, 404, 0, 50, 500, 6000),
		metricstore.NewSegmentSample(now.Add(-10*time.Second), 0, "s3", probe.OutcomeHTTPError, 404, 0, 50, 500, 6000),
	}
	last := &window[0]

	rc := Classify(window, last)
	if rc.Label != LabelEncoderIssue || rc.Confidence != ConfidenceMedium {
		t.Fatalf("expected Encoder/Packager Issue MEDIUM, got %s %s", rc.Label, rc.Confidence)
	}
}

func TestClassifyNetworkCongestion(t *testing.T) {
	now := time.Now()
	window := []metricstore.Sample{
		metricstore.NewManifestSample(now.Add(-40*time.Second), 0, "m", probe.OutcomeOK, 200, 900, 950, 500),
		metricstore.NewSegmentSample(now.Add(-10*time.Second), 0, "s1", probe.OutcomeOK, 200, 900, 7000, 500, 6000),
	}
	last := &window[0]

	rc := Classify(window, last)
	if rc.Label != LabelNetworkCongestion {
		t.Fatalf("expected Network Congestion, got %s", rc.Label)
	}
}

func TestClassifyEdgeLatency(t *testing.T) {
	now := time.Now()
	window := []metricstore.Sample{
		metricstore.NewManifestSample(now.Add(-40*time.Second), 0, "m", probe.OutcomeOK, 200, 600, 650, 500),
		metricstore.NewSegmentSample(now.Add(-10*time.Second), 0, "s1", probe.OutcomeOK, 200, 600, 5000, 500, 6000),
	}
	last := &window[0]

	rc := Classify(window, last)
	if rc.Label != LabelEdgeLatency {
		t.Fatalf("expected CDN Edge Latency, got %s", rc.Label)
	}
}

func TestClassifyIntermittentFailures(t *testing.T) {
	now := time.Now()
	window := []metricstore.Sample{
		metricstore.NewManifestSample(now.Add(-40*time.Second), 0, "m", probe.OutcomeOK, 200, 80, 100, 500),
		metricstore.NewSegmentSample(now.Add(-30*time.Second), 0, "s1", probe.OutcomeOK, 200, 80, 5800, 500, 6000),
		metricstore.NewSegmentSample(now.Add(-20*time.Second), 0, "s2", probe.OutcomeTimeout, 0, 0, 5000, 500, 6000),
	}
	last := &window[0]

	rc := Classify(window, last)
	if rc.Label != LabelIntermittent {
		t.Fatalf("expected Intermittent Failures, got %s", rc.Label)
	}
}

func TestClassifyInsufficientEvidence(t *testing.T) {
	now := time.Now()
	window := []metricstore.Sample{
		metricstore.NewManifestSample(now.Add(-40*time.Second), 0, "m", probe.OutcomeOK, 200, 80, 100, 500),
		metricstore.NewSegmentSample(now.Add(-10*time.Second), 0, "s1", probe.OutcomeOK, 200, 80, 5800, 500, 6000),
	}
	last := &window[0]

	rc := Classify(window, last)
	if rc.Label != LabelInsufficient {
		t.Fatalf("expected Insufficient Evidence, got %s", rc.Label)
	}
}

func TestClassifyNoManifestEverProbed(t *testing.T) {
	rc := Classify(nil, nil)
	if rc.Label != LabelInsufficient {
		t.Fatalf("expected Insufficient Evidence for empty window, got %s", rc.Label)
	}
}
