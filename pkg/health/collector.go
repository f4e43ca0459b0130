package health

import (
	"context"
	"sync"
	"time"

	"github.com/DashNode-Org/slot-sentinel/pkg/analytics"
	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
	"github.com/DashNode-Org/slot-sentinel/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// Fetcher is the part of the block production client the Collector needs.
type Fetcher interface {
	FetchBlockProduction(ctx context.Context) (*analytics.FetchResult, error)
}

// Collector periodically fetches block production for the default range and
// keeps the latest successful result.
type Collector struct {
	fetcher  Fetcher
	interval time.Duration

	mu      sync.RWMutex
	latest  *analytics.FetchResult
	lastErr error
}

func NewCollector(fetcher Fetcher, interval time.Duration) *Collector {
	return &Collector{fetcher: fetcher, interval: interval}
}

func (c *Collector) Start(ctx context.Context) {
	c.Collect(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect runs one fetch. A failure keeps the previous result.
func (c *Collector) Collect(ctx context.Context) (*analytics.FetchResult, error) {
	result, err := c.fetcher.FetchBlockProduction(ctx)
	if err != nil {
		kind := "unknown"
		if k, ok := apperr.KindOf(err); ok {
			kind = k.String()
		}
		metrics.RecordFetchError(kind)
		log.Error().Err(err).Str("kind", kind).Msg("Block production collection failed")

		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.latest = result
	c.lastErr = nil
	c.mu.Unlock()

	publish(result)
	log.Info().
		Str("fetch_id", result.FetchID).
		Int("validators", result.Statistics.TotalValidators).
		Float64("skip_rate", result.Statistics.OverallSkipRate).
		Float64("health_score", result.Health.Score).
		Str("status", string(result.Health.Status)).
		Msg("Block production collected")
	return result, nil
}

// Latest returns the last successful result, or nil before the first one.
func (c *Collector) Latest() *analytics.FetchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

func (c *Collector) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func publish(result *analytics.FetchResult) {
	stats := result.Statistics
	metrics.SetNetwork(stats.OverallSkipRate, result.Health.Score, stats.NetworkEfficiency, result.FetchedAt)

	for category, n := range analytics.CountByCategory(result.Validators) {
		metrics.SetCategoryCount(string(category), n)
	}
	for _, b := range result.Distribution.Buckets {
		metrics.SetBucketCount(b.Name, b.ValidatorCount)
	}

	alerts := map[analytics.Severity]int{analytics.SeverityWarning: 0, analytics.SeverityCritical: 0}
	for _, a := range result.Health.Alerts {
		alerts[a.Severity]++
	}
	for severity, n := range alerts {
		metrics.SetAlertCount(string(severity), n)
	}
}
