// Package blockprod composes the RPC transport and the analytics engine into
// block production queries.
package blockprod

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DashNode-Org/slot-sentinel/config"
	"github.com/DashNode-Org/slot-sentinel/pkg/analytics"
	"github.com/DashNode-Org/slot-sentinel/pkg/metrics"
	"github.com/DashNode-Org/slot-sentinel/pkg/ratelimit"
	"github.com/DashNode-Org/slot-sentinel/pkg/rpc"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Request narrows a fetch. The zero value fetches the node's default range.
type Request struct {
	Range      *analytics.SlotRange
	Commitment string
}

type Options struct {
	Commitment            string
	MaxConcurrentRequests int
	Now                   func() time.Time
}

type Client struct {
	rpc           rpc.RPCClient
	commitment    string
	maxConcurrent int
	now           func() time.Time
}

// New validates cfg and builds a client with its own rate limiter and
// transport.
func New(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.MaxConcurrentRequests

	client := rpc.NewClient(rpc.Options{
		Endpoint: cfg.RPCEndpoint,
		Timeout:  cfg.RequestTimeout,
		Attempts: cfg.RetryAttempts,
		Backoff:  cfg.RetryBackoff,
		Headers:  cfg.Headers,
		Limiter:  ratelimit.Timed{Limiter: ratelimit.New(cfg.RateLimit), Observe: metrics.ObserveLimiterWait},
		Doer:     &http.Client{Transport: transport},
	})
	return NewWithRPC(client, Options{
		Commitment:            cfg.Commitment,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
	}), nil
}

func NewWithRPC(client rpc.RPCClient, opts Options) *Client {
	if opts.MaxConcurrentRequests < 1 {
		opts.MaxConcurrentRequests = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		rpc:           client,
		commitment:    opts.Commitment,
		maxConcurrent: opts.MaxConcurrentRequests,
		now:           opts.Now,
	}
}

func (c *Client) Endpoint() string {
	return c.rpc.Endpoint()
}

// TestConnection checks the endpoint with getHealth. It never runs analytics.
// On failure the classified transport error is returned as is.
func (c *Client) TestConnection(ctx context.Context) (bool, error) {
	start := time.Now()
	if _, err := c.rpc.GetHealth(ctx); err != nil {
		log.Error().Err(err).Str("endpoint", c.rpc.Endpoint()).Dur("duration", time.Since(start)).
			Msg("RPC endpoint connectivity test failed")
		return false, err
	}
	log.Info().Str("endpoint", c.rpc.Endpoint()).Dur("duration", time.Since(start)).Msg("RPC endpoint is healthy")
	return true, nil
}

func (c *Client) FetchBlockProduction(ctx context.Context) (*analytics.FetchResult, error) {
	return c.FetchWithRequest(ctx, Request{})
}

// FetchBlockProductionRange rejects first >= last before touching the network.
func (c *Client) FetchBlockProductionRange(ctx context.Context, first, last uint64) (*analytics.FetchResult, error) {
	return c.FetchWithRequest(ctx, Request{Range: &analytics.SlotRange{FirstSlot: first, LastSlot: last}})
}

func (c *Client) FetchWithRequest(ctx context.Context, req Request) (*analytics.FetchResult, error) {
	result, _, err := c.fetch(ctx, req)
	return result, err
}

type DebugResult struct {
	Result      *analytics.FetchResult `json:"productionData"`
	RawResponse json.RawMessage        `json:"rawRpcData"`
	Request     json.RawMessage        `json:"requestParams"`
	Metadata    ResponseMetadata       `json:"responseMetadata"`
}

type ResponseMetadata struct {
	Endpoint       string `json:"rpcEndpoint"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	Attempts       int    `json:"retryAttempts"`
	RateLimited    bool   `json:"rateLimited"`
}

// FetchDebug is FetchWithRequest plus the raw exchange with the endpoint.
func (c *Client) FetchDebug(ctx context.Context, req Request) (*DebugResult, error) {
	start := time.Now()
	result, call, err := c.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return &DebugResult{
		Result:      result,
		RawResponse: call.Body,
		Request:     call.Request,
		Metadata: ResponseMetadata{
			Endpoint:       call.Endpoint,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			Attempts:       call.Attempts,
			RateLimited:    call.RateLimited,
		},
	}, nil
}

func (c *Client) fetch(ctx context.Context, req Request) (*analytics.FetchResult, *rpc.Result, error) {
	params := rpc.BlockProductionParams{Commitment: c.commitment}
	if req.Commitment != "" {
		params.Commitment = req.Commitment
	}
	if req.Range != nil {
		if err := req.Range.Validate(); err != nil {
			return nil, nil, err
		}
		params.Range = &rpc.SlotRange{FirstSlot: req.Range.FirstSlot, LastSlot: req.Range.LastSlot}
	}

	production, call, err := c.rpc.GetBlockProduction(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	value := production.Value
	entries := make([]analytics.Entry, 0, len(value.ByIdentity))
	for _, e := range value.ByIdentity {
		entries = append(entries, analytics.Entry{
			Identity:       e.Identity,
			AssignedSlots:  e.AssignedSlots,
			ProducedBlocks: e.ProducedBlocks,
		})
	}
	rng := analytics.SlotRange{FirstSlot: value.Range.FirstSlot, LastSlot: value.Range.LastSlot}
	if len(entries) == 0 && req.Range != nil && rng == (analytics.SlotRange{}) {
		rng = *req.Range
	}

	result, err := analytics.Analyze(entries, rng, c.now())
	if err != nil {
		return nil, nil, err
	}
	result.FetchID = uuid.NewString()

	log.Debug().Str("fetch_id", result.FetchID).Str("endpoint", call.Endpoint).
		Int("validators", result.Statistics.TotalValidators).
		Uint64("first_slot", rng.FirstSlot).Uint64("last_slot", rng.LastSlot).
		Int("attempt", call.Attempts).Dur("duration", call.Elapsed).
		Msg("Block production fetched")
	return result, call, nil
}

// FetchValidatorSkipRates returns the records for the given identities. The
// endpoint cannot filter by identity, so everything is fetched and filtered
// here.
func (c *Client) FetchValidatorSkipRates(ctx context.Context, identities []string) ([]analytics.ValidatorRecord, error) {
	result, err := c.FetchBlockProduction(ctx)
	if err != nil {
		return nil, err
	}
	return FilterIdentities(result.Validators, identities), nil
}

// FetchView fetches the default range and applies v.
func (c *Client) FetchView(ctx context.Context, v View) ([]analytics.ValidatorRecord, error) {
	result, err := c.FetchBlockProduction(ctx)
	if err != nil {
		return nil, err
	}
	return v.Apply(result), nil
}

func (c *Client) ConcerningValidators(ctx context.Context) ([]analytics.ValidatorRecord, error) {
	return c.FetchView(ctx, ViewConcerning)
}

func (c *Client) PerfectValidators(ctx context.Context) ([]analytics.ValidatorRecord, error) {
	return c.FetchView(ctx, ViewPerfect)
}

func (c *Client) OfflineValidators(ctx context.Context) ([]analytics.ValidatorRecord, error) {
	return c.FetchView(ctx, ViewOffline)
}

func (c *Client) SignificantValidators(ctx context.Context) ([]analytics.ValidatorRecord, error) {
	return c.FetchView(ctx, ViewSignificant)
}

func (c *Client) HighStakeValidators(ctx context.Context) ([]analytics.ValidatorRecord, error) {
	return c.FetchView(ctx, ViewHighStake)
}

func (c *Client) ModeratePerformers(ctx context.Context) ([]analytics.ValidatorRecord, error) {
	return c.FetchView(ctx, ViewModerate)
}

func (c *Client) WorstPercentileValidators(ctx context.Context) ([]analytics.ValidatorRecord, error) {
	return c.FetchView(ctx, ViewWorstPercentile)
}

// FetchRanges fetches each range with at most MaxConcurrentRequests in
// flight. Results are in input order. All ranges are validated before any
// request, and the first failure cancels the rest.
func (c *Client) FetchRanges(ctx context.Context, ranges []analytics.SlotRange) ([]*analytics.FetchResult, error) {
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	results := make([]*analytics.FetchResult, len(ranges))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)
	for i, r := range ranges {
		g.Go(func() error {
			res, err := c.FetchWithRequest(gctx, Request{Range: &r})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
