package supervisor

import (
	"time"

	"hlswatch/health"
)

// hysteresisWindow is the 30s collapse window named in spec.md §4.4.
const hysteresisWindow = 30 * time.Second

// hysteresis implements the "GREEN→YELLOW→GREEN flip within 30s
// collapses without a transition event" rule. The Health Evaluator
// itself stays pure (it has no memory of prior snapshots); this small
// state machine keeps the last reported state plus at most one pending
// GREEN->YELLOW change and the time it began, held one per stream
// inside that stream's Supervisor.
type hysteresis struct {
	lastReported health.State

	hasPending   bool
	pendingFrom  health.State
	pendingTo    health.State
	pendingSince time.Time
}

// newHysteresis starts in GREEN, matching a supervisor's INIT state
// before its first sample — the first real snapshot is compared
// against an assumed-healthy baseline.
func newHysteresis() *hysteresis {
	return &hysteresis{lastReported: health.Green}
}

// Observe feeds one raw (unfiltered) evaluator state and returns the
// transitions, if any, that should actually be forwarded to the
// Incident Manager and published to subscribers.
func (h *hysteresis) Observe(raw health.State, now time.Time) []health.Transition {
	if !h.hasPending {
		if raw == h.lastReported {
			return nil
		}
		if h.lastReported == health.Green && raw == health.Yellow {
			h.hasPending = true
			h.pendingFrom = h.lastReported
			h.pendingTo = raw
			h.pendingSince = now
			return nil
		}
		t := health.Transition{From: h.lastReported, To: raw, At: now}
		h.lastReported = raw
		return []health.Transition{t}
	}

	elapsed := now.Sub(h.pendingSince)
	if raw == h.pendingFrom && elapsed <= hysteresisWindow {
		h.hasPending = false
		return nil
	}

	if elapsed > hysteresisWindow || raw != h.pendingTo {
		confirmed := health.Transition{From: h.pendingFrom, To: h.pendingTo, At: h.pendingSince}
		h.lastReported = h.pendingTo
		h.hasPending = false

		out := []health.Transition{confirmed}
		if raw != h.lastReported {
			out = append(out, h.Observe(raw, now)...)
		}
		return out
	}

	return nil
}
