package metricstore

import (
	"container/ring"
	"sync"
	"time"

	"hlswatch/utils/safemap"
)

// DefaultCapacity bounds the number of samples retained per stream
// ring. At one probe per PollInterval (commonly 10s) this comfortably
// covers WindowLong plus HistoryRetention without unbounded growth,
// mirroring the fixed-size container/ring allocation in the teacher's
// StreamCoordinator.
const DefaultCapacity = 8640 // 24h at 10s cadence

// streamRing holds one stream's bounded sample history. The mutex and
// copy-on-read snapshot discipline are taken directly from
// proxy/stream/buffer/coordinator.go's StreamCoordinator: writers hold
// the lock only to advance the ring and write the slot, readers take a
// read lock and copy values out so callers never retain a reference
// into ring-internal storage.
type streamRing struct {
	mu       sync.RWMutex
	r        *ring.Ring
	count    int
	capacity int
	seq      int64
}

func newStreamRing(capacity int) *streamRing {
	return &streamRing{
		r:        ring.New(capacity),
		capacity: capacity,
	}
}

func (sr *streamRing) append(s Sample) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.seq++
	s.Monotonic = sr.seq
	sr.r.Value = s
	sr.r = sr.r.Next()
	if sr.count < sr.capacity {
		sr.count++
	}
}

// snapshot returns every retained sample in chronological order.
func (sr *streamRing) snapshot() []Sample {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	// sr.r points at the next slot to be overwritten. Walking forward
	// from there visits unwritten (nil) slots first when the ring
	// isn't yet full, then wraps around through the filled slots in
	// the order they were written, which is exactly chronological
	// order either way.
	out := make([]Sample, 0, sr.count)
	sr.r.Do(func(v any) {
		if v == nil {
			return
		}
		out = append(out, v.(Sample))
	})
	return out
}

// Store is the process-wide, stream-keyed metric store. One ring is
// allocated lazily per stream id the first time a sample is appended
// for it, keyed in a safemap.Map exactly as the teacher keys its
// per-stream structures in utils/safemap and shared_registry.go.
type Store struct {
	rings    *safemap.Map[string, *streamRing]
	capacity int
}

// New builds a Store with the given per-stream ring capacity. Pass
// DefaultCapacity unless a test needs a smaller ring to exercise
// wraparound.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		rings:    safemap.New[string, *streamRing](),
		capacity: capacity,
	}
}

func (s *Store) ringFor(streamID string) *streamRing {
	r, _ := s.rings.GetOrCompute(streamID, func() *streamRing {
		return newStreamRing(s.capacity)
	})
	return r
}

// Append records one sample for the given stream.
func (s *Store) Append(streamID string, sample Sample) {
	s.ringFor(streamID).append(sample)
}

// Window returns every retained sample for streamID whose At falls
// within (now-dur, now], oldest first.
func (s *Store) Window(streamID string, now time.Time, dur time.Duration) []Sample {
	r, ok := s.rings.Get(streamID)
	if !ok {
		return nil
	}
	all := r.snapshot()
	cutoff := now.Add(-dur)
	out := make([]Sample, 0, len(all))
	for _, sm := range all {
		if sm.At.After(cutoff) && !sm.At.After(now) {
			out = append(out, sm)
		}
	}
	return out
}

// History aggregates the retained samples for streamID into
// per-minute buckets covering (now-dur, now], per spec.md §4.3.
func (s *Store) History(streamID string, now time.Time, dur time.Duration) History {
	samples := s.Window(streamID, now, dur)
	if len(samples) == 0 {
		return History{}
	}

	type acc struct {
		ttfbSum   float64
		ttfbN     int
		ratioSum  float64
		ratioN    int
		errors    int
		total     int
	}
	buckets := make(map[time.Time]*acc)
	var order []time.Time

	for _, sm := range samples {
		minute := sm.At.Truncate(time.Minute)
		a, exists := buckets[minute]
		if !exists {
			a = &acc{}
			buckets[minute] = a
			order = append(order, minute)
		}
		a.total++
		if sm.TTFBMs > 0 {
			a.ttfbSum += float64(sm.TTFBMs)
			a.ttfbN++
		}
		if ratio, ok := sm.DownloadRatio(); ok {
			a.ratioSum += ratio
			a.ratioN++
		}
		if sm.Outcome != "ok" {
			a.errors++
		}
	}

	// order was appended in sample iteration order which is already
	// chronological since Window returns oldest-first, but dedupe
	// preserves only first-seen minute; sort defensively isn't needed
	// because samples arrive in time order from the ring.
	out := make([]MinuteBucket, 0, len(order))
	for _, minute := range order {
		a := buckets[minute]
		mb := MinuteBucket{Minute: minute, SampleCount: a.total, ErrorCount: a.errors}
		if a.ttfbN > 0 {
			mb.MeanTTFBMs = a.ttfbSum / float64(a.ttfbN)
		}
		if a.ratioN > 0 {
			mb.MeanRatio = a.ratioSum / float64(a.ratioN)
		}
		out = append(out, mb)
	}
	return History{Buckets: out}
}

// Forget drops a stream's ring entirely, called when a stream is
// deleted from the registry.
func (s *Store) Forget(streamID string) {
	s.rings.Del(streamID)
}
