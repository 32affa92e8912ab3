// Package config holds the typed runtime configuration for hlswatch,
// loaded from environment variables with the same
// lookup-then-parse-then-fallback idiom the teacher's config and
// concurrency packages use throughout.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full set of tunables named in the specification's
// configuration options table. Durations are stored as their natural
// Go types; env vars are read in seconds to match the specification's
// naming (e.g. POLL_INTERVAL_S).
type Config struct {
	// Supervisor / probing
	PollInterval time.Duration
	ProbeTimeout time.Duration

	// Health evaluator
	WindowShort          time.Duration
	WindowLong           time.Duration
	TTFBYellowMs         int
	RatioYellow          float64
	RedConsecutiveErrors int
	RedErrRate           float64

	// Incident manager
	YellowPersistence time.Duration
	ResolveHold       time.Duration
	HistoryRetention  int
	TimelineCap       int

	// Supervisor maintenance
	ThumbnailEveryK int
	ThumbnailMaxAge time.Duration

	// Resource bounds
	MaxOutboundWorkers int

	// Data paths
	DataDir string
}

// Default returns the configuration with every default named in the
// specification's options table (§6).
func Default() *Config {
	return &Config{
		PollInterval:         10 * time.Second,
		ProbeTimeout:         5 * time.Second,
		WindowShort:          120 * time.Second,
		WindowLong:           3600 * time.Second,
		TTFBYellowMs:         500,
		RatioYellow:          0.9,
		RedConsecutiveErrors: 3,
		RedErrRate:           0.5,
		YellowPersistence:    60 * time.Second,
		ResolveHold:          30 * time.Second,
		HistoryRetention:     50,
		TimelineCap:          500,
		ThumbnailEveryK:      3,
		ThumbnailMaxAge:      24 * time.Hour,
		MaxOutboundWorkers:   16,
		DataDir:              "/hlswatch/data/",
	}
}

// Load starts from Default() and overrides every field present as an
// environment variable, matching the teacher's
// os.LookupEnv+strconv.Atoi-with-fallback pattern (config/config.go,
// proxy/loadbalancer/config.go, store/concurrency.go).
func Load() *Config {
	cfg := Default()

	envDurationSeconds(&cfg.PollInterval, "POLL_INTERVAL_S")
	envDurationSeconds(&cfg.ProbeTimeout, "PROBE_TIMEOUT_S")
	envDurationSeconds(&cfg.WindowShort, "WINDOW_SHORT_S")
	envDurationSeconds(&cfg.WindowLong, "WINDOW_LONG_S")
	envInt(&cfg.TTFBYellowMs, "TTFB_YELLOW_MS")
	envFloat(&cfg.RatioYellow, "RATIO_YELLOW")
	envInt(&cfg.RedConsecutiveErrors, "RED_CONSECUTIVE_ERRORS")
	envFloat(&cfg.RedErrRate, "RED_ERR_RATE")
	envDurationSeconds(&cfg.YellowPersistence, "YELLOW_PERSISTENCE_S")
	envDurationSeconds(&cfg.ResolveHold, "RESOLVE_HOLD_S")
	envInt(&cfg.HistoryRetention, "HISTORY_RETENTION")
	envInt(&cfg.TimelineCap, "TIMELINE_CAP")
	envInt(&cfg.ThumbnailEveryK, "THUMBNAIL_EVERY_K")
	envDurationHours(&cfg.ThumbnailMaxAge, "THUMBNAIL_MAX_AGE_H")
	envInt(&cfg.MaxOutboundWorkers, "MAX_OUTBOUND_WORKERS")

	if v, ok := os.LookupEnv("DATA_DIR"); ok && v != "" {
		cfg.DataDir = v
	}

	return cfg
}

func envInt(dst *int, key string) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if parsed, err := strconv.Atoi(raw); err == nil {
		*dst = parsed
	}
}

func envFloat(dst *float64, key string) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
		*dst = parsed
	}
}

func envDurationSeconds(dst *time.Duration, key string) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if parsed, err := strconv.Atoi(raw); err == nil {
		*dst = time.Duration(parsed) * time.Second
	}
}

func envDurationHours(dst *time.Duration, key string) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if parsed, err := strconv.Atoi(raw); err == nil {
		*dst = time.Duration(parsed) * time.Hour
	}
}
