package health

import (
	"fmt"
	"time"

	"hlswatch/config"
	"hlswatch/metricstore"
	"hlswatch/probe"
)

// Evaluate computes a Snapshot from a decision window of samples, per
// the rule order in spec.md §4.4: RED conditions first, then YELLOW,
// then GREEN as the fallthrough. It never logs and never mutates
// shared state — the caller (Supervisor) is responsible for hysteresis
// collapse and for forwarding the resulting Transition to the incident
// manager.
func Evaluate(window []metricstore.Sample, now time.Time, cfg *config.Config) Snapshot {
	stats, facts := computeStats(window, now)

	if reason, ok := redReason(facts, stats, cfg); ok {
		return Snapshot{State: Red, Reason: reason, UpdatedAt: now, WindowStats: stats}
	}
	if reason, ok := yellowReason(facts, stats, cfg); ok {
		return Snapshot{State: Yellow, Reason: reason, UpdatedAt: now, WindowStats: stats}
	}
	return Snapshot{State: Green, Reason: "all probes within thresholds", UpdatedAt: now, WindowStats: stats}
}

// facts holds every intermediate quantity the rule table references,
// computed once so redReason/yellowReason stay simple predicate
// checks over already-derived numbers.
type facts struct {
	errRate           float64
	consecutiveErrors int
	manifestOKRecent  bool
	manifestAttempts  int
}

func computeStats(window []metricstore.Sample, now time.Time) (WindowStats, facts) {
	var stats WindowStats
	var f facts

	stats.SampleCount = len(window)
	if len(window) == 0 {
		return stats, f
	}

	var ttfbSum float64
	var ttfbN int
	var ratioSum float64
	var ratioN int
	var errCount int

	recentCutoff := now.Add(-30 * time.Second)

	for _, s := range window {
		if s.Outcome != probe.OutcomeOK {
			errCount++
		} else if s.TTFBMs > 0 {
			ttfbSum += float64(s.TTFBMs)
			ttfbN++
		}
		if ratio, ok := s.DownloadRatio(); ok {
			ratioSum += ratio
			ratioN++
		}
		if s.Kind == metricstore.KindManifest && !s.At.Before(recentCutoff) {
			f.manifestAttempts++
			if s.Outcome == probe.OutcomeOK {
				f.manifestOKRecent = true
			}
		}
	}

	stats.ErrorCount = errCount
	stats.AvgTTFBMs, stats.HasAvgTTFB = divideIfAny(ttfbSum, ttfbN)
	stats.AvgDownloadRatio, stats.HasAvgRatio = divideIfAny(ratioSum, ratioN)

	f.errRate = float64(errCount) / float64(len(window))
	f.consecutiveErrors = consecutiveErrorSuffix(window)

	return stats, f
}

func divideIfAny(sum float64, n int) (float64, bool) {
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func consecutiveErrorSuffix(window []metricstore.Sample) int {
	n := 0
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].Outcome == probe.OutcomeOK {
			break
		}
		n++
	}
	return n
}

func redReason(f facts, stats WindowStats, cfg *config.Config) (string, bool) {
	if f.consecutiveErrors >= cfg.RedConsecutiveErrors {
		return fmt.Sprintf("%d consecutive failing probes reached the RED threshold of %d", f.consecutiveErrors, cfg.RedConsecutiveErrors), true
	}
	if f.errRate >= cfg.RedErrRate {
		return fmt.Sprintf("error rate %.0f%% over last window met or exceeded the %.0f%% RED threshold", f.errRate*100, cfg.RedErrRate*100), true
	}
	if f.manifestAttempts >= 2 && !f.manifestOKRecent {
		return "no successful manifest probe in the last 30s despite multiple attempts", true
	}
	return "", false
}

func yellowReason(f facts, stats WindowStats, cfg *config.Config) (string, bool) {
	if stats.HasAvgTTFB && stats.AvgTTFBMs > float64(cfg.TTFBYellowMs) {
		return fmt.Sprintf("avg TTFB %.0f ms exceeded %d ms threshold over last %s", stats.AvgTTFBMs, cfg.TTFBYellowMs, cfg.WindowShort), true
	}
	if stats.HasAvgRatio && stats.AvgDownloadRatio > cfg.RatioYellow {
		return fmt.Sprintf("avg download ratio %.2f exceeded %.2f threshold over last %s", stats.AvgDownloadRatio, cfg.RatioYellow, cfg.WindowShort), true
	}
	if f.errRate > 0 && f.errRate < cfg.RedErrRate {
		return fmt.Sprintf("error rate %.0f%% is nonzero but below the RED threshold", f.errRate*100), true
	}
	return "", false
}
