package metricstore

import (
	"testing"
	"time"

	"hlswatch/probe"
)

func TestAppendAndWindowOrdering(t *testing.T) {
	s := New(16)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		sm := NewManifestSample(base.Add(time.Duration(i)*time.Second), 0, "https://x/master.m3u8", probe.OutcomeOK, 200, 10, 20, 100)
		s.Append("stream-a", sm)
	}

	win := s.Window("stream-a", base.Add(10*time.Second), time.Minute)
	if len(win) != 5 {
		t.Fatalf("expected 5 samples in window, got %d", len(win))
	}
	for i := 1; i < len(win); i++ {
		if !win[i].At.After(win[i-1].At) {
			t.Fatalf("expected chronological order, got %v then %v", win[i-1].At, win[i].At)
		}
	}
}

func TestWindowExcludesOlderThanDuration(t *testing.T) {
	s := New(16)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Append("stream-a", NewManifestSample(base, 0, "u", probe.OutcomeOK, 200, 10, 20, 100))
	s.Append("stream-a", NewManifestSample(base.Add(2*time.Minute), 0, "u", probe.OutcomeOK, 200, 10, 20, 100))

	win := s.Window("stream-a", base.Add(2*time.Minute), time.Minute)
	if len(win) != 1 {
		t.Fatalf("expected 1 sample within a 1-minute window, got %d", len(win))
	}
}

func TestRingWraparoundDropsOldest(t *testing.T) {
	s := New(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.Append("stream-a", NewManifestSample(base.Add(time.Duration(i)*time.Second), 0, "u", probe.OutcomeOK, 200, 10, 20, 100))
	}

	win := s.Window("stream-a", base.Add(10*time.Second), time.Hour)
	if len(win) != 3 {
		t.Fatalf("expected ring capacity of 3 retained samples, got %d", len(win))
	}
	if !win[0].At.Equal(base.Add(2 * time.Second)) {
		t.Errorf("expected oldest retained sample to be index 2, got %v", win[0].At)
	}
}

func TestDownloadRatioComputedOnlyForOKSegments(t *testing.T) {
	ok := NewSegmentSample(time.Now(), 0, "u", probe.OutcomeOK, 200, 10, 6000, 500, 6000)
	if _, has := ok.DownloadRatio(); !has {
		t.Errorf("expected a download ratio for an ok segment with declared duration")
	}

	failed := NewSegmentSample(time.Now(), 0, "u", probe.OutcomeTimeout, 0, 0, 6000, 500, 6000)
	if _, has := failed.DownloadRatio(); has {
		t.Errorf("expected no download ratio for a failed probe")
	}

	manifest := NewManifestSample(time.Now(), 0, "u", probe.OutcomeOK, 200, 10, 20, 100)
	if _, has := manifest.DownloadRatio(); has {
		t.Errorf("expected no download ratio for a manifest sample")
	}
}

func TestHistoryBucketsByMinute(t *testing.T) {
	s := New(64)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Append("stream-a", NewManifestSample(base, 0, "u", probe.OutcomeOK, 200, 100, 20, 100))
	s.Append("stream-a", NewManifestSample(base.Add(30*time.Second), 0, "u", probe.OutcomeOK, 200, 200, 20, 100))
	s.Append("stream-a", NewManifestSample(base.Add(90*time.Second), 0, "u", probe.OutcomeHTTPError, 503, 0, 0, 0))

	h := s.History("stream-a", base.Add(2*time.Minute), time.Hour)
	if len(h.Buckets) != 2 {
		t.Fatalf("expected 2 minute buckets, got %d", len(h.Buckets))
	}
	if h.Buckets[0].SampleCount != 2 {
		t.Errorf("expected first minute bucket to have 2 samples, got %d", h.Buckets[0].SampleCount)
	}
	if h.Buckets[0].MeanTTFBMs != 150 {
		t.Errorf("expected mean ttfb 150, got %f", h.Buckets[0].MeanTTFBMs)
	}
	if h.Buckets[1].ErrorCount != 1 {
		t.Errorf("expected second bucket to have 1 error, got %d", h.Buckets[1].ErrorCount)
	}
}

func TestWindowUnknownStreamReturnsNil(t *testing.T) {
	s := New(16)
	win := s.Window("does-not-exist", time.Now(), time.Minute)
	if win != nil {
		t.Errorf("expected nil window for unknown stream, got %v", win)
	}
}

func TestForgetDropsStream(t *testing.T) {
	s := New(16)
	s.Append("stream-a", NewManifestSample(time.Now(), 0, "u", probe.OutcomeOK, 200, 10, 20, 100))
	s.Forget("stream-a")
	win := s.Window("stream-a", time.Now(), time.Hour)
	if win != nil {
		t.Errorf("expected nil window after Forget, got %v", win)
	}
}
