// Package probe issues single observational HTTP requests and
// classifies the outcome, grounded on the teacher's
// sourceproc/downloader.go (request + status classification) and
// utils/http.go (custom client with a redirect-preserving header),
// extended with httptrace-based TTFB timing.
package probe

import "time"

// Outcome is the tagged-sum result of one probe, matching spec.md §3.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeHTTPError  Outcome = "http_error"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeDNS        Outcome = "dns"
	OutcomeConnect    Outcome = "connect"
	OutcomeParseError Outcome = "parse_error"
	OutcomeOther      Outcome = "other"
)

// Result is one completed probe observation.
type Result struct {
	URL        string
	Outcome    Outcome
	StatusCode int // meaningful only when Outcome == OutcomeHTTPError or OutcomeOK
	TTFB       time.Duration
	Total      time.Duration
	Bytes      int64
	Body       []byte // full body, only retained for manifest probes that need parsing
	Err        error  // underlying error, for logging; never surfaced as a panic
}
