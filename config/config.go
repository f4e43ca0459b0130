package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultEndpoint = "https://api.mainnet-beta.solana.com"

type Config struct {
	RPCEndpoint           string
	RequestTimeout        time.Duration
	RetryAttempts         int
	RetryBackoff          time.Duration
	RateLimit             float64
	MaxConcurrentRequests int
	Headers               map[string]string
	Commitment            string
	Preset                string
	ProxyPort             int
	LogLevel              string
	HealthCheckInterval   time.Duration
	CollectInterval       time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		RPCEndpoint:           DefaultEndpoint,
		RequestTimeout:        30 * time.Second,
		RetryAttempts:         3,
		MaxConcurrentRequests: 10,
		Headers:               map[string]string{},
		ProxyPort:             8080,
		LogLevel:              "info",
		HealthCheckInterval:   30 * time.Second,
		CollectInterval:       60 * time.Second,
	}
}

// CallBudget bounds one client call across every attempt and backoff wait.
func (c *Config) CallBudget() time.Duration {
	return time.Duration(c.RetryAttempts)*(c.RequestTimeout+c.RetryBackoff) + 5*time.Second
}

func Load() *Config {
	cfg := &Config{
		RPCEndpoint:           getEnv("RPC_ENDPOINT", DefaultEndpoint),
		RequestTimeout:        parseDurationMs(getEnv("REQUEST_TIMEOUT_MS", "30000")),
		RetryAttempts:         parseInt(getEnv("RETRY_ATTEMPTS", "3")),
		RetryBackoff:          parseDurationMs(getEnv("RETRY_BACKOFF_MS", "0")),
		RateLimit:             parseFloat(getEnv("RATE_LIMIT_RPS", "0")),
		MaxConcurrentRequests: parseInt(getEnv("MAX_CONCURRENT_REQUESTS", "10")),
		Headers:               parseHeaders(getEnv("RPC_HEADERS", "")),
		Commitment:            getEnv("COMMITMENT", ""),
		Preset:                getEnv("CONFIG_PRESET", ""),
		ProxyPort:             parseInt(getEnv("SERVER_PORT", getEnv("PROXY_PORT", "8080"))),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		HealthCheckInterval:   parseDurationMs(getEnv("HEALTH_CHECK_INTERVAL_MS", "30000")),
		CollectInterval:       parseDurationMs(getEnv("COLLECT_INTERVAL_MS", "60000")),
	}

	// Explicit variables win over the preset. Validate reports an unknown name.
	if cfg.Preset != "" {
		if p, ok := Lookup(cfg.Preset, cfg.RPCEndpoint); ok {
			p.applyUnset(cfg)
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func isSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseDurationMs(s string) time.Duration {
	ms, _ := strconv.Atoi(s)
	return time.Duration(ms) * time.Millisecond
}

// parseHeaders reads "Name:Value,Name2:Value2". Entries without a colon are
// kept with an empty value so Validate can report them.
func parseHeaders(s string) map[string]string {
	headers := map[string]string{}
	if s == "" {
		return headers
	}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, value, _ := strings.Cut(p, ":")
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers
}
