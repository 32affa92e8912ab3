package supervisor

import (
	"testing"
	"time"

	"hlswatch/health"
)

func TestHysteresisCollapsesQuickFlip(t *testing.T) {
	h := newHysteresis()
	now := time.Now()

	if tr := h.Observe(health.Yellow, now); tr != nil {
		t.Fatalf("expected no immediate transition on entering pending YELLOW, got %+v", tr)
	}
	if tr := h.Observe(health.Green, now.Add(5*time.Second)); tr != nil {
		t.Fatalf("expected the quick flip back to GREEN to collapse silently, got %+v", tr)
	}
	if h.lastReported != health.Green {
		t.Fatalf("expected lastReported to remain GREEN, got %s", h.lastReported)
	}
}

func TestHysteresisConfirmsAfterWindow(t *testing.T) {
	h := newHysteresis()
	now := time.Now()

	h.Observe(health.Yellow, now)
	tr := h.Observe(health.Yellow, now.Add(31*time.Second))
	if len(tr) != 1 || tr[0].From != health.Green || tr[0].To != health.Yellow {
		t.Fatalf("expected a confirmed GREEN->YELLOW transition, got %+v", tr)
	}
}

func TestHysteresisNonGreenYellowTransitionsReportImmediately(t *testing.T) {
	h := newHysteresis()
	now := time.Now()

	tr := h.Observe(health.Red, now)
	if len(tr) != 1 || tr[0].To != health.Red {
		t.Fatalf("expected immediate RED transition, got %+v", tr)
	}
}

func TestHysteresisEscalationFromPendingYellowToRed(t *testing.T) {
	h := newHysteresis()
	now := time.Now()

	h.Observe(health.Yellow, now)
	tr := h.Observe(health.Red, now.Add(5*time.Second))
	if len(tr) != 2 {
		t.Fatalf("expected both the confirmed YELLOW and the new RED transition, got %+v", tr)
	}
	if tr[0].To != health.Yellow || tr[1].To != health.Red {
		t.Fatalf("unexpected transition sequence: %+v", tr)
	}
}
