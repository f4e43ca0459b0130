package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
)

// Step is the transition the retry loop takes after an attempt.
type Step int

const (
	StepSuccess Step = iota
	StepRetry
	StepFail
	StepExhausted
)

func (s Step) String() string {
	switch s {
	case StepSuccess:
		return "success"
	case StepRetry:
		return "retry"
	case StepFail:
		return "fail"
	case StepExhausted:
		return "exhausted"
	}
	return "unknown"
}

// rateLimitStep is the wait after a 429 without Retry-After, multiplied by
// the attempt number.
const rateLimitStep = 100 * time.Millisecond

// Policy decides what happens after each attempt.
type Policy struct {
	Attempts int
	// Backoff is the pause before retrying a timeout, connection failure or
	// 5xx. Zero retries immediately.
	Backoff time.Duration
}

// Next is the transition function of the retry loop. attempt is 1-based.
func (p Policy) Next(attempt int, err *apperr.Error) (Step, time.Duration) {
	if err == nil {
		return StepSuccess, 0
	}
	if !retriedByTransport(err) {
		return StepFail, 0
	}
	if attempt >= p.Attempts {
		return StepExhausted, 0
	}
	if err.Kind == apperr.KindRateLimited {
		if err.RetryAfter > 0 {
			return StepRetry, err.RetryAfter
		}
		return StepRetry, rateLimitStep * time.Duration(attempt)
	}
	return StepRetry, p.Backoff
}

// retriedByTransport is narrower than Retryable: RPC-level errors are
// deterministic and surface to the caller on the first occurrence.
func retriedByTransport(err *apperr.Error) bool {
	switch err.Kind {
	case apperr.KindTransport, apperr.KindTimeout, apperr.KindRateLimited:
		return true
	case apperr.KindHTTPStatus:
		return err.StatusCode >= 500 && err.StatusCode <= 599
	}
	return false
}

// classifyStatus maps every HTTP status to nil (2xx) or an error kind.
// credentialed reports whether the request carried an API key.
func classifyStatus(op string, status int, header http.Header, body []byte, credentialed bool) *apperr.Error {
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusTooManyRequests:
		return apperr.RateLimited(op, parseRetryAfter(header.Get("Retry-After")))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Auth(op, status, credentialed, truncate(string(body), 512))
	default:
		return apperr.HTTPStatus(op, status, truncate(string(body), 512))
	}
}

// parseRetryAfter reads the delay-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// classifyDoError maps a failed send or body read. parent is the caller's
// context and attempt the per-attempt one derived from it.
func classifyDoError(op, endpoint string, parent, attempt context.Context, timeout time.Duration, err error, reading bool) *apperr.Error {
	if parent.Err() != nil {
		return contextError(op, endpoint, parent.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || attempt.Err() == context.DeadlineExceeded {
		return apperr.Timeout(op, apperr.PhaseRequest, timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		phase := apperr.PhaseRead
		var opErr *net.OpError
		if !reading && errors.As(err, &opErr) && opErr.Op == "dial" {
			phase = apperr.PhaseConnection
		}
		return apperr.Timeout(op, phase, timeout, err)
	}
	return apperr.Transport(op, endpoint, err)
}

// contextError maps the caller giving up: an expired deadline is a request
// timeout, a cancellation a transport failure.
func contextError(op, endpoint string, err error) *apperr.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout(op, apperr.PhaseRequest, 0, err)
	}
	return apperr.Transport(op, endpoint, err)
}

// hasCredentials reports whether requests to endpoint carry an API key,
// either as a header or embedded in the URL.
func hasCredentials(endpoint string, headers map[string]string) bool {
	for name := range headers {
		lower := strings.ToLower(name)
		if lower == "authorization" || strings.Contains(lower, "key") || strings.Contains(lower, "token") {
			return true
		}
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	for name := range u.Query() {
		if strings.Contains(strings.ToLower(name), "key") || strings.Contains(strings.ToLower(name), "token") {
			return true
		}
	}
	// providers such as Alchemy and QuickNode put the key in the path
	return strings.Trim(u.Path, "/") != ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
