// Package registry holds stream_id -> Supervisor and publishes change
// events, grounded directly on the teacher's
// proxy/stream/shared_registry.go StreamRegistry: a safemap of id to
// managed unit, a time.Ticker-driven cleanup goroutine, and a done
// channel closed by Shutdown.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hlswatch/config"
	"hlswatch/health"
	"hlswatch/incident"
	"hlswatch/logger"
	"hlswatch/metricstore"
	"hlswatch/probe"
	"hlswatch/rootcause"
	"hlswatch/supervisor"
	"hlswatch/telemetry"
	"hlswatch/thumbnail"
	"hlswatch/utils/safemap"
)

// deleteGraceTimeout bounds how long DeleteStream waits for a
// Supervisor to reach STOPPED before releasing resources
// unconditionally, per spec.md's stream-deletion contract.
const deleteGraceTimeout = 10 * time.Second

// ConfigStore persists the set of monitored streams across restarts.
// persistence.JSONStore is the default adapter; any implementation
// satisfying this small contract can be substituted.
type ConfigStore interface {
	Load() ([]StreamConfig, error)
	Save([]StreamConfig) error
}

type streamEntry struct {
	cfg        StreamConfig
	supervisor *supervisor.Supervisor
	incidents  *incident.Manager
	cancel     context.CancelFunc
}

// Registry is the process-wide collection of monitored streams. It
// implements supervisor.Publisher itself so each Supervisor can
// publish change events without importing this package.
type Registry struct {
	cfg         *config.Config
	store       *metricstore.Store
	probeClient *probe.Client
	thumbs      thumbnail.Extractor
	metrics     *telemetry.Metrics
	log         logger.Logger

	configStore ConfigStore
	index       *incidentIndex

	streams *safemap.Map[string, *streamEntry]
	bus     *EventBus

	cleanupTicker *time.Ticker
	done          chan struct{}
	wg            sync.WaitGroup
}

// New builds a Registry. cleanupInterval <= 0 disables the periodic
// sweep, matching NewStreamRegistry's convention in the teacher.
// metrics may be nil, in which case no probe/health telemetry is
// recorded.
func New(cfg *config.Config, store *metricstore.Store, probeClient *probe.Client, thumbs thumbnail.Extractor, metrics *telemetry.Metrics, log logger.Logger, configStore ConfigStore, cleanupInterval time.Duration) *Registry {
	index, err := newIncidentIndex()
	if err != nil {
		// go-memdb schema construction only fails on a malformed schema,
		// which is a programming error, not a runtime condition; keep
		// ListIncidents functional with a nil index (falls back to
		// iterating managers directly) rather than panicking in New.
		index = nil
		if log != nil {
			log.Errorf("registry: building incident index: %v", err)
		}
	}
	r := &Registry{
		cfg:         cfg,
		store:       store,
		probeClient: probeClient,
		thumbs:      thumbs,
		metrics:     metrics,
		log:         log,
		configStore: configStore,
		index:       index,
		streams:     safemap.New[string, *streamEntry](),
		bus:         NewEventBus(),
		done:        make(chan struct{}),
	}
	if cleanupInterval > 0 {
		r.cleanupTicker = time.NewTicker(cleanupInterval)
		go r.runCleanup()
	}
	return r
}

// LoadPersisted restores streams from the configured ConfigStore,
// starting a Supervisor for each one. Called once at startup by
// cmd/hlswatchd.
func (r *Registry) LoadPersisted() error {
	if r.configStore == nil {
		return nil
	}
	cfgs, err := r.configStore.Load()
	if err != nil {
		return err
	}
	for _, c := range cfgs {
		r.CreateStream(c.StreamID, c.MasterURL)
	}
	return nil
}

func (r *Registry) persist() {
	if r.configStore == nil {
		return
	}
	var cfgs []StreamConfig
	r.streams.ForEach(func(_ string, e *streamEntry) bool {
		cfgs = append(cfgs, e.cfg)
		return true
	})
	if err := r.configStore.Save(cfgs); err != nil && r.log != nil {
		r.log.Errorf("persisting stream config: %v", err)
	}
}

// CreateStream registers and starts monitoring a new stream. A
// duplicate id is a no-op returning the existing entry's config.
func (r *Registry) CreateStream(streamID, masterURL string) StreamConfig {
	if existing, ok := r.streams.Get(streamID); ok {
		return existing.cfg
	}

	sc := StreamConfig{StreamID: streamID, MasterURL: masterURL, CreatedAt: time.Now()}
	mgr := incident.NewManager(streamID, r.cfg.YellowPersistence, r.cfg.ResolveHold, r.cfg.HistoryRetention, r.cfg.TimelineCap)

	streamLog := r.log
	if streamLog != nil {
		streamLog = streamLog.With(streamID)
	}

	sup := supervisor.NewSupervisor(streamID, masterURL, supervisor.Deps{
		Config:      r.cfg,
		ProbeClient: r.probeClient,
		Store:       r.store,
		Incidents:   mgr,
		Thumbs:      r.thumbs,
		Budget:      r.cfg.MaxOutboundWorkers,
		Publisher:   r,
		Metrics:     r.metrics,
		Log:         streamLog,
		OutputDir:   r.cfg.DataDir + "thumbnails",
	})

	ctx, cancel := context.WithCancel(context.Background())
	entry := &streamEntry{cfg: sc, supervisor: sup, incidents: mgr, cancel: cancel}

	actual, loaded := r.streams.GetOrSet(streamID, entry)
	if loaded {
		cancel()
		return actual.cfg
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		sup.RunSupervised(ctx)
	}()

	r.persist()
	return sc
}

// DeleteStream stops a stream's Supervisor and drops its retained
// samples/incidents, per spec.md §4's "destroyed by the external API"
// lifecycle note. It blocks until the Supervisor reports STOPPED or
// deleteGraceTimeout elapses, whichever comes first, before releasing
// resources unconditionally — a hung probe must never leave a deleted
// stream's Supervisor running past the grace window.
func (r *Registry) DeleteStream(streamID string) {
	entry, ok := r.streams.GetAndDel(streamID)
	if !ok {
		return
	}
	entry.cancel()

	select {
	case <-entry.supervisor.Stopped():
	case <-time.After(deleteGraceTimeout):
		if r.log != nil {
			r.log.Warnf("stream %s: supervisor did not stop within %s, releasing resources anyway", streamID, deleteGraceTimeout)
		}
	}

	r.store.Forget(streamID)
	if r.index != nil {
		_ = r.index.DeleteStream(streamID)
	}
	if r.metrics != nil {
		r.metrics.RemoveStream(streamID)
	}
	r.bus.Publish(ChangeEvent{Kind: ChangeStreamRemoved, StreamID: streamID})
	r.persist()
}

// ListStreams returns a summary row per monitored stream.
func (r *Registry) ListStreams() []StreamSummary {
	var out []StreamSummary
	r.streams.ForEach(func(id string, e *streamEntry) bool {
		snap := r.snapshotFor(e)
		out = append(out, StreamSummary{
			StreamID:  id,
			MasterURL: e.cfg.MasterURL,
			State:     e.supervisor.State(),
			Health:    snap.State,
		})
		return true
	})
	return out
}

// GetStream returns the full detail payload for one stream.
func (r *Registry) GetStream(streamID string) (StreamDetail, bool) {
	entry, ok := r.streams.Get(streamID)
	if !ok {
		return StreamDetail{}, false
	}

	snap := r.snapshotFor(entry)
	var activeInc *incident.Incident
	if inc, ok := entry.incidents.Active(); ok {
		activeInc = &inc
	}

	detail := StreamDetail{
		StreamID:       streamID,
		MasterURL:      entry.cfg.MasterURL,
		State:          entry.supervisor.State(),
		Snapshot:       snap,
		ActiveIncident: activeInc,
		RootCause:      entry.supervisor.LastRootCause(),
	}
	return detail, true
}

func (r *Registry) snapshotFor(e *streamEntry) health.Snapshot {
	now := time.Now()
	window := r.store.Window(e.cfg.StreamID, now, r.cfg.WindowShort)
	return health.Evaluate(window, now, r.cfg)
}

// GetHistory delegates to the metric store, per spec.md §4.8's
// get_history(id, minutes).
func (r *Registry) GetHistory(streamID string, minutes int) (HistoryPayload, bool) {
	if _, ok := r.streams.Get(streamID); !ok {
		return HistoryPayload{}, false
	}
	h := r.store.History(streamID, time.Now(), time.Duration(minutes)*time.Minute)
	return HistoryPayload{StreamID: streamID, History: h}, true
}

// ListIncidents applies an IncidentFilter across every monitored
// stream's incident manager. Each call first refreshes the go-memdb
// index from the live per-stream managers (the source of truth, per
// spec.md §4.5 — "only the Incident Manager mutates"), then serves the
// filtered read from the index, exercising the same
// txn-based First/Get/Insert shape as the teacher's database/memdb.go.
func (r *Registry) ListIncidents(filter IncidentFilter) []incident.Incident {
	r.refreshIndex()

	var all []incident.Incident
	var err error
	if r.index != nil {
		if filter.StreamID != "" {
			all, err = r.index.ByStream(filter.StreamID)
		} else {
			all, err = r.index.All()
		}
	}
	if r.index == nil || err != nil {
		all = r.listIncidentsFallback(filter.StreamID)
	}

	if !filter.ActiveOnly {
		return all
	}
	out := make([]incident.Incident, 0, len(all))
	for _, inc := range all {
		if inc.Status != incident.StatusResolved {
			out = append(out, inc)
		}
	}
	return out
}

func (r *Registry) refreshIndex() {
	if r.index == nil {
		return
	}
	r.streams.ForEach(func(_ string, e *streamEntry) bool {
		for _, inc := range e.incidents.All() {
			_ = r.index.Put(inc)
		}
		return true
	})
}

func (r *Registry) listIncidentsFallback(streamID string) []incident.Incident {
	var out []incident.Incident
	r.streams.ForEach(func(id string, e *streamEntry) bool {
		if streamID != "" && streamID != id {
			return true
		}
		out = append(out, e.incidents.All()...)
		return true
	})
	return out
}

// Acknowledge acknowledges the active incident of the given stream id.
// Idempotent per incident.Manager.Acknowledge's contract.
func (r *Registry) Acknowledge(streamID string) error {
	entry, ok := r.streams.Get(streamID)
	if !ok {
		return fmt.Errorf("registry: unknown stream %q", streamID)
	}
	entry.incidents.Acknowledge(time.Now())
	r.bus.Publish(ChangeEvent{Kind: ChangeIncidentUpdated, StreamID: streamID})
	return nil
}

// Subscribe registers a new change-event listener.
func (r *Registry) Subscribe() (<-chan ChangeEvent, func()) {
	return r.bus.Subscribe()
}

// Health reports the number of monitored streams and live subscribers.
// cmd/hlswatchd's /health handler builds its own payload and does not
// call it.
func (r *Registry) Health() map[string]any {
	return map[string]any{
		"streams":     r.streams.Len(),
		"subscribers": r.bus.SubscriberCount(),
	}
}

// Shutdown stops every Supervisor and the cleanup goroutine.
func (r *Registry) Shutdown() {
	close(r.done)
	r.streams.ForEach(func(id string, e *streamEntry) bool {
		e.cancel()
		return true
	})
	r.wg.Wait()
}

func (r *Registry) runCleanup() {
	for {
		select {
		case <-r.done:
			if r.cleanupTicker != nil {
				r.cleanupTicker.Stop()
			}
			return
		case <-r.cleanupTicker.C:
			r.cleanup()
		}
	}
}

// cleanup removes entries whose Supervisor has fully stopped, the
// same "sweep and drop what no longer qualifies" shape as
// StreamRegistry.cleanup(), generalized from "no active client" to "no
// longer running".
func (r *Registry) cleanup() {
	r.streams.ForEach(func(id string, e *streamEntry) bool {
		if e.supervisor.State() == supervisor.StateStopped {
			if r.log != nil {
				r.log.Logf("removing stopped supervisor for stream: %s", id)
			}
			r.streams.Del(id)
		}
		return true
	})
}

// supervisor.Publisher implementation: translates tick-level signals
// into bus events.

func (r *Registry) PublishHealthTransition(streamID string) {
	r.bus.Publish(ChangeEvent{Kind: ChangeHealthTransition, StreamID: streamID})
}

func (r *Registry) PublishIncidentOpened(streamID string) {
	r.bus.Publish(ChangeEvent{Kind: ChangeIncidentOpened, StreamID: streamID})
}

func (r *Registry) PublishIncidentUpdated(streamID string) {
	r.bus.Publish(ChangeEvent{Kind: ChangeIncidentUpdated, StreamID: streamID})
}

func (r *Registry) PublishIncidentResolved(streamID string) {
	r.bus.Publish(ChangeEvent{Kind: ChangeIncidentResolved, StreamID: streamID})
}
