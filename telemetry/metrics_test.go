package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"

	"hlswatch/health"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.StreamsMonitored.Set(3)
	m.SetStreamHealth("s1", health.Yellow)
	m.ObserveProbe("manifest", "ok", 0.05)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "hlswatch_streams_monitored 3") {
		t.Errorf("expected streams_monitored in output, got:\n%s", body)
	}
	if !strings.Contains(body, `hlswatch_stream_health_state{stream_id="s1"} 1`) {
		t.Errorf("expected stream health gauge for s1=1 (YELLOW), got:\n%s", body)
	}
}

func TestRemoveStreamDropsGauge(t *testing.T) {
	m := New()
	m.SetStreamHealth("s1", health.Red)
	m.RemoveStream("s1")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), `stream_id="s1"`) {
		t.Errorf("expected s1's gauge series to be removed")
	}
}
