package config

import (
	"sort"
	"strings"
	"time"
)

// Preset bundles transport settings tuned for a class of RPC provider.
type Preset struct {
	Name                  string
	RequestTimeout        time.Duration
	RetryAttempts         int
	RateLimit             float64
	MaxConcurrentRequests int
}

var presets = map[string]Preset{
	"public":         {Name: "public", RequestTimeout: 60 * time.Second, RetryAttempts: 5, RateLimit: 2, MaxConcurrentRequests: 5},
	"private":        {Name: "private", RequestTimeout: 30 * time.Second, RetryAttempts: 3, RateLimit: 10, MaxConcurrentRequests: 20},
	"high-frequency": {Name: "high-frequency", RequestTimeout: 15 * time.Second, RetryAttempts: 2, RateLimit: 50, MaxConcurrentRequests: 50},
	"batch":          {Name: "batch", RequestTimeout: 120 * time.Second, RetryAttempts: 5, RateLimit: 5, MaxConcurrentRequests: 100},
	"development":    {Name: "development", RequestTimeout: 60 * time.Second, RetryAttempts: 1, RateLimit: 1, MaxConcurrentRequests: 5},
	"enterprise":     {Name: "enterprise", RequestTimeout: 45 * time.Second, RetryAttempts: 3, RateLimit: 25, MaxConcurrentRequests: 30},
	"helius":         {Name: "helius", RequestTimeout: 30 * time.Second, RetryAttempts: 3, RateLimit: 20, MaxConcurrentRequests: 25},
	"quicknode":      {Name: "quicknode", RequestTimeout: 30 * time.Second, RetryAttempts: 3, RateLimit: 15, MaxConcurrentRequests: 20},
	"alchemy":        {Name: "alchemy", RequestTimeout: 30 * time.Second, RetryAttempts: 3, RateLimit: 25, MaxConcurrentRequests: 30},
}

// Lookup resolves a preset by name. "auto" picks one from the endpoint.
func Lookup(name, endpoint string) (Preset, bool) {
	if name == "auto" {
		return AutoPreset(endpoint), true
	}
	p, ok := presets[name]
	return p, ok
}

// PresetNames lists the names Lookup accepts, "auto" last.
func PresetNames() []string {
	names := make([]string, 0, len(presets)+1)
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(names, "auto")
}

// AutoPreset guesses the provider class from the endpoint URL.
func AutoPreset(endpoint string) Preset {
	switch {
	case strings.Contains(endpoint, "mainnet-beta.solana.com"):
		return presets["public"]
	case strings.Contains(endpoint, "helius"):
		return presets["helius"]
	case strings.Contains(endpoint, "quicknode"):
		return presets["quicknode"]
	case strings.Contains(endpoint, "alchemy"):
		return presets["alchemy"]
	default:
		return presets["private"]
	}
}

func (p Preset) applyUnset(cfg *Config) {
	if !isSet("REQUEST_TIMEOUT_MS") {
		cfg.RequestTimeout = p.RequestTimeout
	}
	if !isSet("RETRY_ATTEMPTS") {
		cfg.RetryAttempts = p.RetryAttempts
	}
	if !isSet("RATE_LIMIT_RPS") {
		cfg.RateLimit = p.RateLimit
	}
	if !isSet("MAX_CONCURRENT_REQUESTS") {
		cfg.MaxConcurrentRequests = p.MaxConcurrentRequests
	}
	cfg.Preset = p.Name
}
