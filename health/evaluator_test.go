package health

import (
	"testing"
	"time"

	"hlswatch/config"
	"hlswatch/metricstore"
	"hlswatch/probe"
)

func TestEvaluateGreenSteadyState(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	var window []metricstore.Sample
	for i := 0; i < 5; i++ {
		at := now.Add(-time.Duration(i) * 10 * time.Second)
		window = append(window, metricstore.NewManifestSample(at, 0, "u", probe.OutcomeOK, 200, 100, 150, 500))
		window = append(window, metricstore.NewSegmentSample(at, 0, "u", probe.OutcomeOK, 200, 100, 300, 500, 6000))
	}

	snap := Evaluate(window, now, cfg)
	if snap.State != Green {
		t.Fatalf("expected GREEN, got %s (%s)", snap.State, snap.Reason)
	}
}

func TestEvaluateRedOnConsecutiveErrors(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	var window []metricstore.Sample
	for i := 0; i < 3; i++ {
		at := now.Add(-time.Duration(2-i) * 10 * time.Second)
		window = append(window, metricstore.NewManifestSample(at, 0, "u", probe.OutcomeHTTPError, 503, 0, 50, 0))
	}

	snap := Evaluate(window, now, cfg)
	if snap.State != Red {
		t.Fatalf("expected RED, got %s (%s)", snap.State, snap.Reason)
	}
}

func TestEvaluateRedOnStaleManifest(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	window := []metricstore.Sample{
		metricstore.NewManifestSample(now.Add(-20*time.Second), 0, "u", probe.OutcomeHTTPError, 503, 0, 50, 0),
		metricstore.NewManifestSample(now.Add(-10*time.Second), 0, "u", probe.OutcomeTimeout, 0, 0, 5000, 0),
	}

	snap := Evaluate(window, now, cfg)
	if snap.State != Red {
		t.Fatalf("expected RED for stale manifest, got %s (%s)", snap.State, snap.Reason)
	}
}

func TestEvaluateYellowOnHighTTFB(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	var window []metricstore.Sample
	for i := 0; i < 5; i++ {
		at := now.Add(-time.Duration(i) * 10 * time.Second)
		window = append(window, metricstore.NewManifestSample(at, 0, "u", probe.OutcomeOK, 200, 700, 750, 500))
	}

	snap := Evaluate(window, now, cfg)
	if snap.State != Yellow {
		t.Fatalf("expected YELLOW, got %s (%s)", snap.State, snap.Reason)
	}
}

func TestEvaluateYellowOnDownloadRatio(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	var window []metricstore.Sample
	for i := 0; i < 5; i++ {
		at := now.Add(-time.Duration(i) * 10 * time.Second)
		window = append(window, metricstore.NewSegmentSample(at, 0, "u", probe.OutcomeOK, 200, 100, 7000, 500, 6000))
	}

	snap := Evaluate(window, now, cfg)
	if snap.State != Yellow {
		t.Fatalf("expected YELLOW from download ratio, got %s (%s)", snap.State, snap.Reason)
	}
}

func TestEvaluateEmptyWindowIsGreen(t *testing.T) {
	cfg := config.Default()
	snap := Evaluate(nil, time.Now(), cfg)
	if snap.State != Green {
		t.Fatalf("expected GREEN for empty window, got %s", snap.State)
	}
}

func TestEvaluateRuleOrderRedBeatsYellow(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	// High TTFB (would be YELLOW) AND 3 consecutive errors (RED) — RED
	// must win since RED is evaluated first.
	window := []metricstore.Sample{
		metricstore.NewManifestSample(now.Add(-40*time.Second), 0, "u", probe.OutcomeOK, 200, 900, 950, 500),
		metricstore.NewManifestSample(now.Add(-30*time.Second), 0, "u", probe.OutcomeHTTPError, 503, 0, 50, 0),
		metricstore.NewManifestSample(now.Add(-20*time.Second), 0, "u", probe.OutcomeHTTPError, 503, 0, 50, 0),
		metricstore.NewManifestSample(now.Add(-10*time.Second), 0, "u", probe.OutcomeHTTPError, 503, 0, 50, 0),
	}

	snap := Evaluate(window, now, cfg)
	if snap.State != Red {
		t.Fatalf("expected RED to take priority over YELLOW, got %s", snap.State)
	}
}
