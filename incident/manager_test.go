package incident

import (
	"testing"
	"time"

	"hlswatch/health"
)

func TestRedOpensIncidentImmediately(t *testing.T) {
	m := NewManager("s1", 60*time.Second, 30*time.Second, 50, 500)
	now := time.Now()

	m.Observe(health.Transition{From: health.Green, To: health.Red, At: now}, now)

	active, ok := m.Active()
	if !ok {
		t.Fatalf("expected an active incident after RED transition")
	}
	if active.Status != StatusOpen {
		t.Errorf("expected OPEN status, got %s", active.Status)
	}
	if len(active.Timeline) != 1 || active.Timeline[0].Kind != EventIncidentOpened {
		t.Errorf("expected a single incident_opened event, got %+v", active.Timeline)
	}
}

func TestYellowOpensOnlyAfterPersistence(t *testing.T) {
	m := NewManager("s1", 60*time.Second, 30*time.Second, 50, 500)
	now := time.Now()

	m.Observe(health.Transition{From: health.Green, To: health.Yellow, At: now}, now)
	if _, ok := m.Active(); ok {
		t.Fatalf("expected no incident immediately on YELLOW")
	}

	later := now.Add(61 * time.Second)
	m.Observe(health.Transition{From: health.Yellow, To: health.Yellow, At: later}, later)
	active, ok := m.Active()
	if !ok {
		t.Fatalf("expected an incident after sustained YELLOW")
	}
	if active.Status != StatusOpen {
		t.Errorf("expected OPEN, got %s", active.Status)
	}
}

func TestOneActivePerStream(t *testing.T) {
	m := NewManager("s1", 60*time.Second, 30*time.Second, 50, 500)
	now := time.Now()

	m.Observe(health.Transition{From: health.Green, To: health.Red, At: now}, now)
	first, _ := m.Active()

	m.Observe(health.Transition{From: health.Red, To: health.Red, At: now.Add(10 * time.Second)}, now.Add(10*time.Second))
	second, _ := m.Active()

	if first.ID != second.ID {
		t.Fatalf("expected the same incident id across repeated RED signals, got %s then %s", first.ID, second.ID)
	}
	if len(second.Timeline) != 2 {
		t.Errorf("expected a second timeline event appended, got %d", len(second.Timeline))
	}
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	m := NewManager("s1", 60*time.Second, 30*time.Second, 50, 500)
	now := time.Now()
	m.Observe(health.Transition{From: health.Green, To: health.Red, At: now}, now)

	m.Acknowledge(now.Add(1 * time.Second))
	m.Acknowledge(now.Add(2 * time.Second))

	active, _ := m.Active()
	if active.Status != StatusAcknowledged {
		t.Fatalf("expected ACKNOWLEDGED, got %s", active.Status)
	}
	ackEvents := 0
	for _, ev := range active.Timeline {
		if ev.Kind == EventIncidentAcknowledged {
			ackEvents++
		}
	}
	if ackEvents != 1 {
		t.Errorf("expected exactly 1 acknowledged event from 2 calls, got %d", ackEvents)
	}
}

func TestResolveRequiresSustainedGreen(t *testing.T) {
	m := NewManager("s1", 60*time.Second, 30*time.Second, 50, 500)
	now := time.Now()
	m.Observe(health.Transition{From: health.Green, To: health.Red, At: now}, now)

	greenStart := now.Add(100 * time.Second)
	m.Observe(health.Transition{From: health.Red, To: health.Green, At: greenStart}, greenStart)
	if _, ok := m.Active(); !ok {
		t.Fatalf("expected incident to still be active before hold elapses")
	}

	afterHold := greenStart.Add(31 * time.Second)
	m.Observe(health.Transition{From: health.Green, To: health.Green, At: afterHold}, afterHold)

	if _, ok := m.Active(); ok {
		t.Fatalf("expected incident to resolve after the hold elapsed")
	}
	history := m.History()
	if len(history) != 1 || history[0].Status != StatusResolved {
		t.Fatalf("expected 1 resolved incident in history, got %+v", history)
	}
}

func TestResolutionCancelledByRelapse(t *testing.T) {
	m := NewManager("s1", 60*time.Second, 30*time.Second, 50, 500)
	now := time.Now()
	m.Observe(health.Transition{From: health.Green, To: health.Red, At: now}, now)

	greenStart := now.Add(100 * time.Second)
	m.Observe(health.Transition{From: health.Red, To: health.Green, At: greenStart}, greenStart)

	relapse := greenStart.Add(10 * time.Second)
	m.Observe(health.Transition{From: health.Green, To: health.Red, At: relapse}, relapse)

	afterOriginalHold := greenStart.Add(31 * time.Second)
	m.Observe(health.Transition{From: health.Red, To: health.Red, At: afterOriginalHold}, afterOriginalHold)

	active, ok := m.Active()
	if !ok {
		t.Fatalf("expected incident to remain active after relapse cancelled resolution")
	}
	if active.Status == StatusResolved {
		t.Fatalf("expected resolution to be cancelled by the relapse")
	}
}

func TestHistoryEvictionCapsAtHistoryCap(t *testing.T) {
	m := NewManager("s1", 60*time.Second, 30*time.Second, 2, 500)
	base := time.Now()

	for i := 0; i < 3; i++ {
		openAt := base.Add(time.Duration(i) * time.Hour)
		m.Observe(health.Transition{From: health.Green, To: health.Red, At: openAt}, openAt)
		greenAt := openAt.Add(40 * time.Second)
		m.Observe(health.Transition{From: health.Red, To: health.Green, At: greenAt}, greenAt)
		resolvedAt := greenAt.Add(31 * time.Second)
		m.Observe(health.Transition{From: health.Green, To: health.Green, At: resolvedAt}, resolvedAt)
	}

	history := m.History()
	if len(history) != 2 {
		t.Fatalf("expected history capped at 2, got %d", len(history))
	}
}
