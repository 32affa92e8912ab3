package incident

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hlswatch/health"
)

// DefaultHistoryCap and DefaultTimelineCap mirror spec.md §6's
// N_history/N_timeline defaults.
const (
	DefaultHistoryCap  = 50
	DefaultTimelineCap = 500
)

// Manager owns one stream's incident lifecycle. Exactly one Manager
// exists per stream, held by that stream's Supervisor lane — the same
// "only the owning goroutine mutates" discipline as
// store.ConcurrencyManager and StreamCoordinator.Write. All exported
// methods are additionally mutex-guarded so a concurrent snapshot read
// (e.g. from an HTTP handler) never races the owning goroutine.
type Manager struct {
	mu sync.RWMutex

	streamID string

	yellowPersistence time.Duration
	resolveHold       time.Duration
	historyCap        int
	timelineCap       int

	active  *Incident
	history []Incident // FIFO, oldest first, capped at historyCap

	yellowSince time.Time // zero if not currently in an unresolved YELLOW run
	greenSince  time.Time // zero if not currently in a candidate resolve hold

	nextEventSeq int64
}

// NewManager builds a Manager for one stream.
func NewManager(streamID string, yellowPersistence, resolveHold time.Duration, historyCap, timelineCap int) *Manager {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	if timelineCap <= 0 {
		timelineCap = DefaultTimelineCap
	}
	return &Manager{
		streamID:          streamID,
		yellowPersistence: yellowPersistence,
		resolveHold:       resolveHold,
		historyCap:        historyCap,
		timelineCap:       timelineCap,
	}
}

// Observe reacts to one health transition, per the Open/Resolve
// policies in spec.md §4.5. now is passed in rather than read from
// time.Now() so callers (and tests) control the clock precisely.
func (m *Manager) Observe(transition health.Transition, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch transition.To {
	case health.Red:
		m.greenSince = time.Time{}
		m.openOrAppend(transition, now, fmt.Sprintf("RED: %s", transitionReason(transition)))
	case health.Yellow:
		m.greenSince = time.Time{}
		if m.yellowSince.IsZero() {
			m.yellowSince = now
		}
		if m.active == nil && now.Sub(m.yellowSince) >= m.yellowPersistence {
			m.openOrAppend(transition, now, fmt.Sprintf("sustained YELLOW for %s", now.Sub(m.yellowSince)))
		} else if m.active != nil {
			m.appendEvent(EventHealthTransition, fmt.Sprintf("health transition %s -> %s", transition.From, transition.To), nil, now)
		}
	case health.Green:
		m.yellowSince = time.Time{}
		if m.active == nil {
			return
		}
		if m.greenSince.IsZero() {
			m.greenSince = now
		}
		m.appendEvent(EventHealthTransition, fmt.Sprintf("health transition %s -> %s", transition.From, transition.To), nil, now)
		if now.Sub(m.greenSince) >= m.resolveHold {
			m.resolve(now)
		}
	}
}

func transitionReason(t health.Transition) string {
	return fmt.Sprintf("%s -> %s", t.From, t.To)
}

// openOrAppend opens a new incident if none is active, otherwise
// appends a health_transition event to the existing one — the
// one-active-per-stream invariant from spec.md §4.5.
func (m *Manager) openOrAppend(transition health.Transition, now time.Time, triggerReason string) {
	if m.active != nil {
		m.appendEvent(EventHealthTransition, fmt.Sprintf("health transition %s -> %s", transition.From, transition.To), nil, now)
		return
	}
	inc := &Incident{
		ID:            uuid.NewString(),
		StreamID:      m.streamID,
		Status:        StatusOpen,
		OpenedAt:      now,
		TriggerReason: triggerReason,
	}
	m.active = inc
	m.appendEvent(EventIncidentOpened, triggerReason, nil, now)
}

// Acknowledge transitions the active incident OPEN -> ACKNOWLEDGED.
// Idempotent: acknowledging twice, or with no active incident, or an
// already-acknowledged incident, is a no-op, per spec.md §4.5.
func (m *Manager) Acknowledge(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.Status != StatusOpen {
		return
	}
	m.active.Status = StatusAcknowledged
	t := now
	m.active.AcknowledgedAt = &t
	m.appendEvent(EventIncidentAcknowledged, "acknowledged", nil, now)
}

// resolve must be called with m.mu held.
func (m *Manager) resolve(now time.Time) {
	if m.active == nil {
		return
	}
	m.active.Status = StatusResolved
	t := now
	m.active.ResolvedAt = &t
	m.appendEvent(EventIncidentResolved, "resolved after sustained GREEN", nil, now)

	m.history = append(m.history, *m.active)
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
	m.active = nil
	m.greenSince = time.Time{}
}

// appendEvent must be called with m.mu held.
func (m *Manager) appendEvent(kind EventKind, message string, attrs map[string]string, now time.Time) {
	if m.active == nil {
		return
	}
	m.nextEventSeq++
	ev := TimelineEvent{ID: m.nextEventSeq, Ts: now, Kind: kind, Message: message, Attributes: attrs}
	m.active.Timeline = append(m.active.Timeline, ev)

	if len(m.active.Timeline) > m.timelineCap {
		// drop-oldest, preserving the open (index 0) and latest event,
		// per spec.md's resource-bounds note in §7.
		tl := m.active.Timeline
		kept := make([]TimelineEvent, 0, m.timelineCap)
		kept = append(kept, tl[0])
		start := len(tl) - (m.timelineCap - 1)
		kept = append(kept, tl[start:]...)
		m.active.Timeline = kept
	}
}

// RecordOutcome appends a segment/manifest outcome event to the active
// incident, if any. The Supervisor calls this alongside Observe so the
// timeline reflects raw probe outcomes, not just health transitions.
func (m *Manager) RecordOutcome(kind EventKind, message string, attrs map[string]string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendEvent(kind, message, attrs, now)
}

// RecordThumbnail appends a thumbnail_captured event to the active
// incident, if any, per spec.md §4.7 step 6.
func (m *Manager) RecordThumbnail(url string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendEvent(EventThumbnailCaptured, "thumbnail captured", map[string]string{"url": url}, now)
}

// Active returns a defensive copy of the currently active incident, if
// any.
func (m *Manager) Active() (Incident, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return Incident{}, false
	}
	return m.active.Clone(), true
}

// History returns a defensive copy of resolved incidents, oldest
// first.
func (m *Manager) History() []Incident {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Incident, len(m.history))
	for i, inc := range m.history {
		out[i] = inc.Clone()
	}
	return out
}

// All returns every retained incident (history plus the active one, if
// any) for list_incidents(filter) queries in the registry.
func (m *Manager) All() []Incident {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Incident, 0, len(m.history)+1)
	for _, inc := range m.history {
		out = append(out, inc.Clone())
	}
	if m.active != nil {
		out = append(out, m.active.Clone())
	}
	return out
}
