package supervisor

import "sync"

// workerBudget is the "count per key, cap from config, mutex-guarded
// increment/decrement" shape of the teacher's store/concurrency.go
// ConcurrencyManager, generalized from "connections per M3U index" to
// a cap on outbound probe/thumbnail work (MaxOutboundWorkers). There is
// only one key here, so the per-key map collapses to a single buffered
// channel of slots, and the acquire/release discipline (block the
// caller past the cap rather than reject) replaces the teacher's
// reject-on-exceed CheckConcurrency, since supervisors must eventually
// run their tick rather than skip it.
//
// Each Supervisor builds its own workerBudget in NewSupervisor, so the
// cap applies per stream, not across streams; a Supervisor's tick runs
// sequentially and holds at most one slot at a time.
type workerBudget struct {
	mu    sync.Mutex
	slots chan struct{}
	cap   int
}

// newWorkerBudget builds a budget allowing up to max concurrent
// outbound operations.
func newWorkerBudget(max int) *workerBudget {
	if max <= 0 {
		max = 1
	}
	return &workerBudget{
		slots: make(chan struct{}, max),
		cap:   max,
	}
}

// Acquire blocks until a slot is free or done is closed, returning
// false in the latter case.
func (b *workerBudget) Acquire(done <-chan struct{}) bool {
	select {
	case b.slots <- struct{}{}:
		return true
	case <-done:
		return false
	}
}

// Release returns a slot to the pool.
func (b *workerBudget) Release() {
	select {
	case <-b.slots:
	default:
	}
}

// InUse reports the current number of held slots, mirroring the
// teacher's GetCount for observability.
func (b *workerBudget) InUse() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}

// Cap returns the configured maximum.
func (b *workerBudget) Cap() int {
	return b.cap
}
