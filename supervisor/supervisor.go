package supervisor

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"hlswatch/config"
	"hlswatch/health"
	"hlswatch/hls"
	"hlswatch/incident"
	"hlswatch/logger"
	"hlswatch/metricstore"
	"hlswatch/probe"
	"hlswatch/rootcause"
	"hlswatch/telemetry"
	"hlswatch/thumbnail"
)

// Supervisor is one long-lived loop per stream, ticking on
// cfg.PollInterval. Grounded on two teacher shapes: the
// tick-and-fan-out style of main.go's updateSources generalized from
// "one-shot per cron firing" to "one long-lived loop per stream", and
// the restart-with-backoff + atomic lifecycle state of
// proxy/stream/buffer/coordinator.go's StreamCoordinator.
type Supervisor struct {
	streamID  string
	masterURL string
	cfg       *config.Config

	probeClient *probe.Client
	store       *metricstore.Store
	incidents   *incident.Manager
	hyst        *hysteresis
	thumbs      thumbnail.Extractor
	budget      *workerBudget
	publisher   Publisher
	metrics     *telemetry.Metrics
	log         logger.Logger
	now         func() time.Time

	state   atomic.Int32
	stopped chan struct{}

	mediaURL           string // resolved media playlist URL once known
	pendingPlaylist    *hls.MediaPlaylist
	lastProbedSegment  string
	lastOKSegmentURL   string
	lastManifestSample *metricstore.Sample
	tick               int64
	seq                int64
	thumbnailEveryK    int
	thumbnailOutputDir string
}

// Deps bundles a Supervisor's collaborators so NewSupervisor stays a
// short constructor call, the same grouping the teacher uses for
// StreamConfig-style option structs.
type Deps struct {
	Config      *config.Config
	ProbeClient *probe.Client
	Store       *metricstore.Store
	Incidents   *incident.Manager
	Thumbs      thumbnail.Extractor
	Budget      int
	Publisher   Publisher
	Metrics     *telemetry.Metrics
	Log         logger.Logger
	OutputDir   string
}

// NewSupervisor builds a Supervisor for one stream, starting in
// StateInit.
func NewSupervisor(streamID, masterURL string, d Deps) *Supervisor {
	s := &Supervisor{
		streamID:           streamID,
		masterURL:          masterURL,
		cfg:                d.Config,
		probeClient:        d.ProbeClient,
		store:              d.Store,
		incidents:          d.Incidents,
		hyst:               newHysteresis(),
		thumbs:             d.Thumbs,
		budget:             newWorkerBudget(d.Budget),
		publisher:          d.Publisher,
		metrics:            d.Metrics,
		log:                d.Log,
		now:                time.Now,
		thumbnailEveryK:    d.Config.ThumbnailEveryK,
		thumbnailOutputDir: d.OutputDir,
		stopped:            make(chan struct{}),
	}
	s.state.Store(int32(StateInit))
	return s
}

// State returns the Supervisor's current lifecycle state.
func (s *Supervisor) State() LifecycleState {
	return LifecycleState(s.state.Load())
}

// StreamID returns the id this Supervisor was constructed for.
func (s *Supervisor) StreamID() string { return s.streamID }

// Stopped returns a channel closed once this Supervisor has reached
// StateStopped, letting a caller like registry.DeleteStream block on
// shutdown with its own grace timeout instead of guessing how long a
// restart-backoff cycle or in-flight probe will take.
func (s *Supervisor) Stopped() <-chan struct{} {
	return s.stopped
}

// RunSupervised wraps Run with the panic-recovery and
// exponential-backoff restart policy from spec.md §4.7: 1s, 2s, 4s,
// capped at 30s. Returns only once ctx is cancelled and the final
// in-flight probe has returned, leaving State() == StateStopped.
func (s *Supervisor) RunSupervised(ctx context.Context) {
	defer close(s.stopped)
	backoff := newBackoffStrategy(1*time.Second, 30*time.Second)

	for {
		if ctx.Err() != nil {
			s.state.Store(int32(StateStopped))
			return
		}

		crashed := s.runOnce(ctx)
		if !crashed {
			s.state.Store(int32(StateStopped))
			return
		}

		s.emitRestartSnapshot()
		backoff.Sleep(ctx)
		if ctx.Err() != nil {
			s.state.Store(int32(StateStopped))
			return
		}
	}
}

// runOnce executes the tick loop, recovering from any panic and
// reporting it via the crashed return value so RunSupervised knows to
// apply backoff and restart rather than treat it as a clean stop.
func (s *Supervisor) runOnce(ctx context.Context) (crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Errorf("stream %s: supervisor panic recovered: %v", s.streamID, r)
			}
			crashed = true
		}
	}()

	s.loop(ctx)
	return false
}

func (s *Supervisor) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.state.Store(int32(StateInit))

	for {
		select {
		case <-ctx.Done():
			s.state.Store(int32(StateStopping))
			return
		case <-ticker.C:
			s.onTick(ctx)
		}
	}
}

func (s *Supervisor) onTick(ctx context.Context) {
	s.tick++
	now := s.now()

	if !s.budget.Acquire(ctx.Done()) {
		return
	}
	defer s.budget.Release()

	s.probeManifest(ctx, now)
	s.probeNextSegment(ctx, now)

	if s.state.Load() == int32(StateInit) {
		s.state.Store(int32(StateRunning))
	}

	window := s.store.Window(s.streamID, now, s.cfg.WindowShort)
	raw := health.Evaluate(window, now, s.cfg)
	transitions := s.hyst.Observe(raw.State, now)
	if len(transitions) == 0 {
		// No reported state change this tick: re-feed the current state so
		// the incident manager's YELLOW-persistence and GREEN-hold timers
		// advance.
		cur := s.hyst.lastReported
		transitions = []health.Transition{{From: cur, To: cur, At: now}}
	}
	for _, t := range transitions {
		s.applyTransition(t, now)
	}

	if s.thumbnailEveryK > 0 && s.tick%int64(s.thumbnailEveryK) == 0 && s.lastOKSegmentURL != "" {
		s.captureThumbnail(ctx, now)
	}
}

func (s *Supervisor) probeManifest(ctx context.Context, now time.Time) {
	target := s.masterURL
	if s.mediaURL != "" {
		target = s.mediaURL
	}

	res := s.probeClient.Probe(ctx, target, s.cfg.ProbeTimeout)
	if s.metrics != nil {
		s.metrics.ObserveProbe("manifest", string(res.Outcome), res.Total.Seconds())
	}
	var master *hls.Master
	var media *hls.MediaPlaylist
	outcome := res.Outcome
	if outcome == probe.OutcomeOK {
		base, err := url.Parse(target)
		if err == nil {
			master, media, err = hls.Parse(res.Body, base)
		}
		if err != nil {
			outcome = probe.OutcomeParseError
		}
	}

	s.seq++
	sample := metricstore.NewManifestSample(now, s.seq, target, outcome, res.StatusCode, res.TTFB.Milliseconds(), res.Total.Milliseconds(), res.Bytes)
	s.store.Append(s.streamID, sample)
	s.lastManifestSample = &sample

	if outcome != probe.OutcomeOK {
		s.incidents.RecordOutcome(incident.EventManifestFail, fmt.Sprintf("manifest probe failed: %s", outcome), nil, now)
		return
	}

	if master != nil {
		if variant, ok := master.HighestBandwidth(); ok {
			s.mediaURL = variant.AbsoluteURI
		}
		return
	}
	s.applyMediaPlaylist(media)
}

func (s *Supervisor) applyMediaPlaylist(media *hls.MediaPlaylist) {
	s.pendingPlaylist = media
}

func (s *Supervisor) probeNextSegment(ctx context.Context, now time.Time) {
	media := s.pendingPlaylist
	if media == nil || len(media.Segments) == 0 {
		return
	}

	idx := len(media.Segments) - 2
	if idx < 0 {
		idx = len(media.Segments) - 1
	}
	segment := media.Segments[idx]
	if segment.AbsoluteURI == s.lastProbedSegment && len(media.Segments) > 1 {
		// already probed the second-most-recent; nothing newer to pick
		// without risking the still-being-produced most recent one.
		return
	}

	res := s.probeClient.Probe(ctx, segment.AbsoluteURI, s.cfg.ProbeTimeout)
	if s.metrics != nil {
		s.metrics.ObserveProbe("segment", string(res.Outcome), res.Total.Seconds())
	}
	s.seq++
	declaredMs := int64(segment.DurationSec * 1000)
	sample := metricstore.NewSegmentSample(now, s.seq, segment.AbsoluteURI, res.Outcome, res.StatusCode, res.TTFB.Milliseconds(), res.Total.Milliseconds(), res.Bytes, declaredMs)
	s.store.Append(s.streamID, sample)
	s.lastProbedSegment = segment.AbsoluteURI

	if res.Outcome == probe.OutcomeOK {
		s.lastOKSegmentURL = segment.AbsoluteURI
		s.incidents.RecordOutcome(incident.EventSegmentOK, "segment probe ok", nil, now)
	} else {
		s.incidents.RecordOutcome(incident.EventSegmentFail, fmt.Sprintf("segment probe failed: %s", res.Outcome), nil, now)
	}
}

func (s *Supervisor) applyTransition(t health.Transition, now time.Time) {
	hadActive, _ := s.incidents.Active()
	s.incidents.Observe(t, now)
	nowActive, ok := s.incidents.Active()

	if t.From != t.To {
		s.publisher.PublishHealthTransition(s.streamID)
	}

	switch {
	case !hadActiveIncident(hadActive) && ok:
		s.publisher.PublishIncidentOpened(s.streamID)
	case ok && nowActive.Status != hadActive.Status:
		s.publisher.PublishIncidentUpdated(s.streamID)
	case hadActiveIncident(hadActive) && !ok:
		s.publisher.PublishIncidentResolved(s.streamID)
	}
}

func hadActiveIncident(inc incident.Incident) bool {
	return inc.ID != ""
}

func (s *Supervisor) captureThumbnail(ctx context.Context, now time.Time) {
	if s.thumbs == nil {
		return
	}
	outputPath := fmt.Sprintf("%s/%s-%d.jpg", s.thumbnailOutputDir, s.streamID, now.Unix())
	if err := s.thumbs.Capture(ctx, s.lastOKSegmentURL, outputPath); err != nil {
		return // silent on absence/failure, per spec.md §4.7/§7
	}
	s.incidents.RecordThumbnail(outputPath, now)
}

// emitRestartSnapshot records a supervisor restart by appending one
// synthetic failed manifest sample (outcome other), so the next window
// evaluation counts the restart as a failure. It does not force the
// state to RED and sets no "supervisor restart" reason: the resulting
// state is whatever the evaluator derives from the window.
func (s *Supervisor) emitRestartSnapshot() {
	now := s.now()
	s.seq++
	sample := metricstore.NewManifestSample(now, s.seq, s.masterURL, probe.OutcomeOther, 0, 0, 0, 0)
	s.store.Append(s.streamID, sample)
	if s.log != nil {
		s.log.Warnf("stream %s: supervisor restart, recording a failed manifest sample", s.streamID)
	}
}

// LastRootCause classifies the current window on demand, serving the
// Registry's get_stream contract (C8) without the Supervisor needing
// to push a classification on every tick.
func (s *Supervisor) LastRootCause() rootcause.RootCause {
	window := s.store.Window(s.streamID, s.now(), s.cfg.WindowShort)
	return rootcause.Classify(window, s.lastManifestSample)
}
