// Package health runs the background loops: a connectivity Checker and a
// block production Collector.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/DashNode-Org/slot-sentinel/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// Pinger is the part of the block production client the Checker needs.
type Pinger interface {
	Endpoint() string
	TestConnection(ctx context.Context) (bool, error)
}

type Status struct {
	Endpoint    string        `json:"endpoint"`
	Healthy     bool          `json:"healthy"`
	LastChecked time.Time     `json:"lastChecked"`
	Latency     time.Duration `json:"latencyNs"`
	LastError   string        `json:"lastError,omitempty"`
}

type Checker struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration

	mu     sync.RWMutex
	status Status
}

func NewChecker(pinger Pinger, interval, timeout time.Duration) *Checker {
	return &Checker{
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
		status:   Status{Endpoint: pinger.Endpoint()},
	}
}

// Start checks immediately and then on every interval until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	c.CheckOnce(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckOnce(ctx)
		}
	}
}

// CheckOnce bounds the connection test by the timeout given to NewChecker,
// which must cover every retry attempt of the underlying call.
func (c *Checker) CheckOnce(ctx context.Context) Status {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	healthy, err := c.pinger.TestConnection(ctx)
	latency := time.Since(start)

	status := Status{
		Endpoint:    c.pinger.Endpoint(),
		Healthy:     healthy && err == nil,
		LastChecked: start,
		Latency:     latency,
	}
	if err != nil {
		status.LastError = err.Error()
	}

	c.mu.Lock()
	c.status = status
	c.mu.Unlock()

	metrics.SetEndpointHealth(status.Endpoint, status.Healthy, latency)
	if status.Healthy {
		log.Debug().Str("endpoint", status.Endpoint).Dur("latency", latency).Msg("Health check passed")
	}
	return status
}

func (c *Checker) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Checker) Healthy() bool {
	return c.Status().Healthy
}
