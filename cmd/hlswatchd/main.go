// Command hlswatchd wires the HLS health-monitoring core into a
// process: configuration, persistence, probing, and a thin net/http
// API, in the same spirit as the teacher's main.go (a handful of
// http.HandleFunc registrations and a single ListenAndServe) rather
// than a full REST framework.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"hlswatch/config"
	"hlswatch/incident"
	"hlswatch/logger"
	"hlswatch/metricstore"
	"hlswatch/persistence"
	"hlswatch/probe"
	"hlswatch/registry"
	"hlswatch/telemetry"
	"hlswatch/thumbnail"
)

var startedAt = time.Now()

func main() {
	cfg := config.Load()
	log := logger.Default

	ffmpegPath := os.Getenv("FFMPEG_PATH")
	thumbs := thumbnail.NewExecExtractor(ffmpegPath, log)

	store := metricstore.New(historyRingCapacity(cfg))
	probeClient := probe.NewClient(os.Getenv("PROBE_USER_AGENT"))
	metrics := telemetry.New()

	configPath := cfg.DataDir + "streams.json"
	configStore := persistence.NewJSONStore(configPath)

	reg := registry.New(cfg, store, probeClient, thumbs, metrics, log, configStore, 30*time.Second)

	if err := reg.LoadPersisted(); err != nil {
		log.Errorf("loading persisted stream config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cronSched := os.Getenv("CRON_MAINTENANCE")
	if strings.TrimSpace(cronSched) == "" {
		cronSched = "0 0 * * *"
	}
	c := cron.New()
	if _, err := c.AddFunc(cronSched, func() {
		runMaintenance(reg, cfg, log)
	}); err != nil {
		log.Errorf("scheduling maintenance cron %q: %v", cronSched, err)
	}
	c.Start()
	defer c.Stop()

	go reportMetrics(ctx, reg, metrics)

	mux := http.NewServeMux()
	registerHandlers(mux, reg, metrics)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Logf("hlswatchd listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Log("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	reg.Shutdown()
}

func historyRingCapacity(cfg *config.Config) int {
	// enough samples to cover WindowLong at the configured poll cadence,
	// with headroom for segment+manifest samples each tick.
	ticks := int(cfg.WindowLong / cfg.PollInterval)
	if ticks < 64 {
		ticks = 64
	}
	return ticks * 2
}

func runMaintenance(reg *registry.Registry, cfg *config.Config, log logger.Logger) {
	log.Log("running scheduled maintenance")
	_ = reg // config persistence already happens on every mutation; reserved for thumbnail-directory sweeps
	sweepOldThumbnails(cfg.DataDir+"thumbnails", cfg.ThumbnailMaxAge, log)
}

func sweepOldThumbnails(dir string, maxAge time.Duration, log logger.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(dir + "/" + e.Name()); err != nil {
				log.Errorf("removing stale thumbnail %s: %v", e.Name(), err)
			}
		}
	}
}

func reportMetrics(ctx context.Context, reg *registry.Registry, metrics *telemetry.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			streams := reg.ListStreams()
			metrics.StreamsMonitored.Set(float64(len(streams)))
			for _, s := range streams {
				metrics.SetStreamHealth(s.StreamID, s.Health)
			}
			active := reg.ListIncidents(registry.IncidentFilter{ActiveOnly: true})
			metrics.ActiveIncidents.Set(float64(len(active)))
		}
	}
}

func registerHandlers(mux *http.ServeMux, reg *registry.Registry, metrics *telemetry.Metrics) {
	mux.HandleFunc("/api/streams", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, reg.ListStreams())
		case http.MethodPost:
			handleCreateStream(w, r, reg)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/streams/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/streams/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if len(parts) == 0 || parts[0] == "" {
			http.NotFound(w, r)
			return
		}
		streamID := parts[0]

		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			detail, ok := reg.GetStream(streamID)
			if !ok {
				http.NotFound(w, r)
				return
			}
			writeJSON(w, http.StatusOK, detail)
		case len(parts) == 1 && r.Method == http.MethodDelete:
			if _, ok := reg.GetStream(streamID); !ok {
				http.NotFound(w, r)
				return
			}
			reg.DeleteStream(streamID)
			w.WriteHeader(http.StatusNoContent)
		case len(parts) == 2 && parts[1] == "metrics" && r.Method == http.MethodGet:
			http.NotFound(w, r)
		case len(parts) == 3 && parts[1] == "metrics" && parts[2] == "history" && r.Method == http.MethodGet:
			handleHistory(w, r, reg, streamID)
		case len(parts) == 2 && parts[1] == "timeline" && r.Method == http.MethodGet:
			handleTimeline(w, r, reg, streamID)
		default:
			http.NotFound(w, r)
		}
	})

	mux.HandleFunc("/api/incidents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		filter := registry.IncidentFilter{
			StreamID:   r.URL.Query().Get("stream_id"),
			ActiveOnly: r.URL.Query().Get("active_only") == "true",
		}
		writeJSON(w, http.StatusOK, reg.ListIncidents(filter))
	})

	mux.HandleFunc("/api/incidents/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/incidents/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if r.Method != http.MethodPost || len(parts) != 2 || parts[1] != "acknowledge" {
			http.NotFound(w, r)
			return
		}
		handleAcknowledge(w, reg, parts[0])
	})

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		streams := reg.ListStreams()
		active := reg.ListIncidents(registry.IncidentFilter{ActiveOnly: true})
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "ok",
			"streams_monitored": len(streams),
			"active_incidents":  len(active),
			"uptime_s":          int(time.Since(startedAt).Seconds()),
		})
	})
}

func handleCreateStream(w http.ResponseWriter, r *http.Request, reg *registry.Registry) {
	name := r.URL.Query().Get("name")
	manifestURL := r.URL.Query().Get("manifest_url")
	if manifestURL == "" {
		http.Error(w, "manifest_url is required", http.StatusBadRequest)
		return
	}
	if name == "" {
		name = manifestURL
	}
	if _, ok := reg.GetStream(name); ok {
		http.Error(w, "stream already exists", http.StatusBadRequest)
		return
	}
	sc := reg.CreateStream(name, manifestURL)
	writeJSON(w, http.StatusCreated, sc)
}

func handleHistory(w http.ResponseWriter, r *http.Request, reg *registry.Registry, streamID string) {
	minutes := 60
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			minutes = parsed
		}
	}
	payload, ok := reg.GetHistory(streamID, minutes)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func handleTimeline(w http.ResponseWriter, r *http.Request, reg *registry.Registry, streamID string) {
	detail, ok := reg.GetStream(streamID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	all := reg.ListIncidents(registry.IncidentFilter{StreamID: streamID})
	var events []incident.TimelineEvent
	for _, inc := range all {
		events = append(events, inc.Timeline...)
	}
	_ = detail
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, http.StatusOK, events)
}

func handleAcknowledge(w http.ResponseWriter, reg *registry.Registry, incidentID string) {
	streamID := findStreamForIncident(reg, incidentID)
	if streamID == "" {
		http.Error(w, "unknown incident", http.StatusNotFound)
		return
	}
	if err := reg.Acknowledge(streamID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func findStreamForIncident(reg *registry.Registry, incidentID string) string {
	for _, inc := range reg.ListIncidents(registry.IncidentFilter{}) {
		if inc.ID == incidentID {
			return inc.StreamID
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
