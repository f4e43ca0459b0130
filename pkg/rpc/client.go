package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
	"github.com/DashNode-Org/slot-sentinel/pkg/metrics"
	"github.com/DashNode-Org/slot-sentinel/pkg/ratelimit"
	"github.com/avast/retry-go/v5"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Endpoint string
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
	Headers  map[string]string
	Limiter  ratelimit.Limiter
	Doer     Doer
	// Timer paces the waits between attempts; tests replace it to avoid
	// real delays.
	Timer Timer
}

// Timer is the clock the retry loop waits on. It matches retry.Timer.
type Timer interface {
	After(d time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Client is the resilient JSON-RPC transport for a single endpoint. It is
// safe for concurrent use; the limiter is the only state shared by calls.
type Client struct {
	url     string
	timeout time.Duration
	policy  Policy
	headers map[string]string
	// credentialed is whether requests carry an API key
	credentialed bool
	limiter      ratelimit.Limiter
	doer         Doer
	timer        Timer
	nextID       atomic.Uint64
}

func NewClient(opts Options) *Client {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Doer == nil {
		// per-attempt deadlines come from the request context
		opts.Doer = &http.Client{}
	}
	if opts.Timer == nil {
		opts.Timer = realTimer{}
	}
	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}
	return &Client{
		url:          opts.Endpoint,
		timeout:      opts.Timeout,
		policy:       Policy{Attempts: opts.Attempts, Backoff: opts.Backoff},
		headers:      headers,
		credentialed: hasCredentials(opts.Endpoint, headers),
		limiter:      opts.Limiter,
		doer:         opts.Doer,
		timer:        opts.Timer,
	}
}

func (c *Client) Endpoint() string {
	return c.url
}

// Call executes method with up to the configured number of attempts. On
// success the raw body and the decoded result are returned. On failure the
// error is the last classified *apperr.Error with Attempts and History
// filled in, whatever the attempt count. Only when the caller's context ends
// while waiting to retry is the last failure wrapped in RetriesExhausted.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (*Result, error) {
	reqBody := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperr.Malformed(method, "cannot encode request", err)
	}

	start := time.Now()
	var (
		attempt     int
		res         *Result
		last        *apperr.Error
		history     []string
		rateLimited bool
		// live is whether the caller's context was still open when the
		// last attempt returned
		live bool
	)

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(uint(c.policy.Attempts)),
		retry.LastErrorOnly(true),
		retry.WithTimer(c.timer),
		retry.RetryIf(func(error) bool {
			if ctx.Err() != nil {
				return false
			}
			step, _ := c.policy.Next(attempt, last)
			return step == StepRetry
		}),
		retry.DelayType(func(_ uint, _ error, _ retry.DelayContext) time.Duration {
			_, delay := c.policy.Next(attempt, last)
			return delay
		}),
		retry.OnRetry(func(_ uint, _ error) {
			_, delay := c.policy.Next(attempt, last)
			metrics.RecordRetry(method, last.Kind.String())
			log.Warn().Err(last).Str("endpoint", c.url).Str("method", method).Int("attempt", attempt).
				Int("status", last.StatusCode).Dur("delay", delay).Msg("RPC attempt failed, retrying")
		}),
	)

	doErr := r.Do(func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			last = contextError(method, c.url, err)
			return last
		}

		waitStart := time.Now()
		if err := c.limiter.Acquire(ctx); err != nil {
			last = contextError(method, c.url, err)
			return last
		}
		if time.Since(waitStart) > time.Millisecond {
			rateLimited = true
		}

		log.Debug().Str("endpoint", c.url).Str("method", method).Int("attempt", attempt).Msg("Sending RPC request")
		var callErr *apperr.Error
		res, callErr = c.attempt(ctx, method, bodyBytes)
		live = ctx.Err() == nil
		if callErr != nil {
			last = callErr
			history = append(history, fmt.Sprintf("attempt %d: %v", attempt, callErr))
			if callErr.Kind == apperr.KindRateLimited {
				rateLimited = true
			}
			return callErr
		}
		return nil
	})

	if doErr == nil && res != nil {
		res.Request = bodyBytes
		res.Attempts = attempt
		res.Elapsed = time.Since(start)
		res.RateLimited = rateLimited
		metrics.RecordRPC(method, "success", res.Elapsed)
		log.Debug().Str("endpoint", c.url).Str("method", method).Int("attempt", attempt).
			Dur("duration", res.Elapsed).Msg("RPC request succeeded")
		return res, nil
	}

	if last == nil {
		// the context ended before the first attempt ran
		cause := ctx.Err()
		if cause == nil {
			cause = doErr
		}
		return nil, c.fail(method, start, contextError(method, c.url, cause))
	}
	if step, _ := c.policy.Next(attempt, last); step == StepRetry && live && ctx.Err() != nil {
		// the context ended while waiting to retry
		history = append(history, fmt.Sprintf("retry abandoned: %v", ctx.Err()))
		return nil, c.fail(method, start,
			apperr.RetriesExhausted(method, attempt, time.Since(start), last, history))
	}
	last.Attempts = attempt
	last.History = history
	return nil, c.fail(method, start, last)
}

// attempt performs one HTTP exchange under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, method string, body []byte) (*Result, *apperr.Error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Transport(method, c.url, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, classifyDoError(method, c.url, ctx, attemptCtx, c.timeout, err, false)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyDoError(method, c.url, ctx, attemptCtx, c.timeout, err, true)
	}

	if callErr := classifyStatus(method, resp.StatusCode, resp.Header, raw, c.credentialed); callErr != nil {
		callErr.Endpoint = c.url
		return nil, callErr
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, apperr.Malformed(method, "response is not valid JSON-RPC", err)
	}
	if rpcResp.Error != nil {
		callErr := apperr.RPC(method, rpcResp.Error.Code, rpcResp.Error.Message)
		callErr.Endpoint = c.url
		return nil, callErr
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, apperr.Malformed(method, "response has neither result nor error", nil)
	}

	return &Result{
		Method:   method,
		Body:     raw,
		Result:   rpcResp.Result,
		Endpoint: c.url,
	}, nil
}

func (c *Client) fail(method string, start time.Time, err *apperr.Error) *apperr.Error {
	elapsed := time.Since(start)
	status := err.StatusCode
	var inner *apperr.Error
	if status == 0 && errors.As(err.Err, &inner) {
		status = inner.StatusCode
	}
	metrics.RecordRPC(method, err.Kind.String(), elapsed)
	log.Error().Err(err).Str("endpoint", c.url).Str("method", method).
		Int("status", status).Int("attempts", err.Attempts).Dur("duration", elapsed).Msg("RPC request failed")
	return err
}

// GetHealth is the liveness check. The error is the classified failure,
// including the node reporting itself unhealthy as an RPC error.
func (c *Client) GetHealth(ctx context.Context) (*Result, error) {
	res, err := c.Call(ctx, "getHealth")
	if err != nil {
		return nil, err
	}
	var status string
	if err := json.Unmarshal(res.Result, &status); err != nil {
		return nil, apperr.Malformed("getHealth", "unexpected health result", err)
	}
	if status != "ok" {
		return nil, apperr.Malformed("getHealth", fmt.Sprintf("unexpected health status %q", status), nil)
	}
	return res, nil
}

func (c *Client) GetBlockProduction(ctx context.Context, params BlockProductionParams) (*BlockProductionResult, *Result, error) {
	res, err := c.Call(ctx, "getBlockProduction", params.args()...)
	if err != nil {
		return nil, nil, err
	}

	var production BlockProductionResult
	if err := json.Unmarshal(res.Result, &production); err != nil {
		return nil, nil, apperr.Malformed("getBlockProduction", "cannot decode block production", err)
	}
	return &production, res, nil
}

