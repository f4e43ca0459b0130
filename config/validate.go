package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
	"golang.org/x/net/http/httpguts"
)

var commitments = map[string]bool{
	"":          true,
	"processed": true,
	"confirmed": true,
	"finalized": true,
}

// Validate checks everything the transport relies on before it is built.
// It returns the first problem found as an InvalidConfiguration error.
func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return apperr.InvalidConfiguration("rpc_endpoint", "RPC endpoint cannot be empty",
			"provide a valid RPC endpoint URL")
	}
	if !strings.HasPrefix(c.RPCEndpoint, "http://") && !strings.HasPrefix(c.RPCEndpoint, "https://") {
		return apperr.InvalidConfiguration("rpc_endpoint", "RPC endpoint must start with http:// or https://",
			"use a complete URL like https://api.mainnet-beta.solana.com")
	}
	if c.Preset != "" {
		if _, ok := Lookup(c.Preset, c.RPCEndpoint); !ok {
			return apperr.InvalidConfiguration("preset", fmt.Sprintf("unknown preset %q", c.Preset),
				"use one of "+strings.Join(PresetNames(), ", "))
		}
	}
	if c.RequestTimeout <= 0 {
		return apperr.InvalidConfiguration("timeout", "request timeout must be positive", "set REQUEST_TIMEOUT_MS")
	}
	if c.RetryAttempts < 1 {
		return apperr.InvalidConfiguration("retry_attempts", "at least one attempt is required", "set RETRY_ATTEMPTS to 1 or more")
	}
	if c.RetryBackoff < 0 {
		return apperr.InvalidConfiguration("retry_backoff", "retry backoff cannot be negative", "")
	}
	if c.RateLimit < 0 {
		return apperr.InvalidConfiguration("rate_limit", "rate limit cannot be negative", "use 0 to disable rate limiting")
	}
	if c.MaxConcurrentRequests < 1 {
		return apperr.InvalidConfiguration("max_concurrent_requests", "at least one concurrent request is required", "")
	}
	if !commitments[c.Commitment] {
		return apperr.InvalidConfiguration("commitment", fmt.Sprintf("unknown commitment %q", c.Commitment),
			"use processed, confirmed or finalized")
	}

	names := make([]string, 0, len(c.Headers))
	for name := range c.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !httpguts.ValidHeaderFieldName(name) {
			return apperr.InvalidConfiguration("headers", fmt.Sprintf("invalid header name %q", name),
				"use valid HTTP header names (alphanumeric and hyphens)")
		}
		if !httpguts.ValidHeaderFieldValue(c.Headers[name]) {
			return apperr.InvalidConfiguration("headers", fmt.Sprintf("invalid value for header %q", name),
				"header values must not contain control characters")
		}
	}
	return nil
}
