package supervisor

import "time"

// LifecycleState is a Supervisor's coarse lifecycle stage, matching
// spec.md §4.7's INIT/RUNNING/STOPPING/STOPPED states. Modeled as
// atomic.Int32-backed constants the same way the teacher's
// proxy/stream/buffer/coordinator.go tracks
// stateActive/stateDraining/stateClosed on StreamCoordinator.
type LifecycleState int32

const (
	StateInit LifecycleState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s LifecycleState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// StreamConfig is the externally supplied, per-stream configuration —
// the master playlist URL plus any per-stream overrides a future
// version might add. Kept minimal per spec.md §6's "Persisted
// configuration" shape.
type StreamConfig struct {
	StreamID   string
	MasterURL  string
	CreatedAt  time.Time
}

// Publisher is the minimal fan-out contract a Supervisor needs from
// its owning Registry. Defining it here (rather than importing
// registry.EventBus directly) keeps supervisor free of a dependency on
// registry, which itself depends on supervisor to hold Supervisor
// instances.
type Publisher interface {
	PublishHealthTransition(streamID string)
	PublishIncidentOpened(streamID string)
	PublishIncidentUpdated(streamID string)
	PublishIncidentResolved(streamID string)
}
