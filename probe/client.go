package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"time"
)

const maxRedirects = 5

// Client performs observational GETs. It never returns an error to
// the caller for a failed probe — all failure modes are encoded in
// the Result's Outcome field, per spec.md §4.2 ("the probe never
// throws").
type Client struct {
	transport *http.Transport
	userAgent string
}

// NewClient builds a Client with a dedicated transport so probe
// traffic never shares connection pools with other subsystems,
// matching the teacher's pattern in utils.CustomHttpRequest of
// building a purpose-specific *http.Client rather than using
// http.DefaultClient.
func NewClient(userAgent string) *Client {
	if userAgent == "" {
		userAgent = "hlswatch-probe/1.0"
	}
	return &Client{
		transport: &http.Transport{
			DisableKeepAlives:     false,
			MaxIdleConnsPerHost:   8,
			ResponseHeaderTimeout: 0, // governed by the per-call context deadline instead
		},
		userAgent: userAgent,
	}
}

// Probe issues one GET to rawURL, measuring TTFB and total duration,
// and classifying the outcome per spec.md §4.2. It honors ctx for
// cancellation: the Supervisor's cancel propagates here and the probe
// surrenders within one timeout interval, matching the cancellation
// contract in spec.md §4.2 and §5.
func (c *Client) Probe(ctx context.Context, rawURL string, timeout time.Duration) Result {
	start := time.Now()
	result := Result{URL: rawURL}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var ttfb time.Duration
	var firstByteAt time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByteAt = time.Now()
			ttfb = firstByteAt.Sub(start)
		},
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Outcome = OutcomeParseError
		result.Err = err
		result.Total = time.Since(start)
		return result
	}
	req.Header.Set("User-Agent", c.userAgent)

	client := &http.Client{
		Transport: c.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			req.Header.Set("User-Agent", c.userAgent)
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Total = time.Since(start)
		result.TTFB = ttfb
		result.Outcome, result.Err = classifyTransportError(ctx, err)
		return result
	}
	defer resp.Body.Close()

	result.TTFB = ttfb
	if result.TTFB == 0 {
		// GotFirstResponseByte may not have fired for a response
		// served entirely from a proxy's buffer; approximate as the
		// time to headers-received.
		result.TTFB = time.Since(start)
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		result.Outcome = OutcomeHTTPError
		result.StatusCode = resp.StatusCode
		result.Total = time.Since(start)
		return result
	}
	if resp.StatusCode >= 400 {
		result.Outcome = OutcomeHTTPError
		result.StatusCode = resp.StatusCode
		result.Total = time.Since(start)
		_, _ = io.Copy(io.Discard, resp.Body)
		return result
	}

	body, readErr := io.ReadAll(resp.Body)
	result.Bytes = int64(len(body))
	result.Total = time.Since(start)
	result.StatusCode = resp.StatusCode

	if readErr != nil {
		result.Outcome, result.Err = classifyTransportError(ctx, readErr)
		if result.Outcome == OutcomeOK {
			result.Outcome = OutcomeOther
		}
		return result
	}

	result.Body = body
	result.Outcome = OutcomeOK
	return result
}

func classifyTransportError(ctx context.Context, err error) (Outcome, error) {
	if ctx.Err() == context.DeadlineExceeded {
		return OutcomeTimeout, err
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return OutcomeDNS, err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return OutcomeConnect, err
		}
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return OutcomeTimeout, err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return OutcomeTimeout, err
		}
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return OutcomeConnect, err
	}

	return OutcomeOther, err
}
