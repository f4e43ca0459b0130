package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCRequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_sentinel_rpc_requests_total",
		Help: "The total number of JSON-RPC calls by final outcome",
	}, []string{"method", "outcome"})

	RPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slot_sentinel_rpc_request_duration_seconds",
		Help:    "The duration of JSON-RPC calls including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	RPCRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_sentinel_rpc_retries_total",
		Help: "Failed attempts that were retried, by error kind",
	}, []string{"method", "kind"})

	RateLimiterWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_sentinel_rate_limiter_wait_seconds",
		Help:    "Time spent waiting for a rate limiter token",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	EndpointUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "slot_sentinel_endpoint_up",
		Help: "Result of the last connectivity check (1 = healthy, 0 = unhealthy)",
	}, []string{"endpoint"})

	EndpointLatency = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "slot_sentinel_endpoint_latency_seconds",
		Help: "Latency of the last connectivity check",
	}, []string{"endpoint"})

	NetworkSkipRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slot_sentinel_network_skip_rate_percent",
		Help: "Overall network skip rate of the last collected range",
	})

	NetworkHealthScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slot_sentinel_network_health_score",
		Help: "Network health score of the last collected range (0-100)",
	})

	NetworkEfficiency = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slot_sentinel_network_efficiency_percent",
		Help: "Produced blocks as a percentage of assigned slots",
	})

	ValidatorsByCategory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "slot_sentinel_validators",
		Help: "Validators per performance category in the last collected range",
	}, []string{"category"})

	DistributionBucket = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "slot_sentinel_distribution_bucket_validators",
		Help: "Validators per skip-rate distribution bucket",
	}, []string{"bucket"})

	HealthAlerts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "slot_sentinel_health_alerts",
		Help: "Alerts raised by the last health assessment, by severity",
	}, []string{"severity"})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_sentinel_fetch_errors_total",
		Help: "Block production collections that failed, by error kind",
	}, []string{"kind"})

	LastCollection = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slot_sentinel_last_collection_timestamp_seconds",
		Help: "Unix time of the last successful collection",
	})
)

// RecordRPC counts a finished call and observes its duration.
func RecordRPC(method, outcome string, duration time.Duration) {
	RPCRequestTotal.WithLabelValues(method, outcome).Inc()
	RPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func RecordRetry(method, kind string) {
	RPCRetries.WithLabelValues(method, kind).Inc()
}

// ObserveLimiterWait has the signature ratelimit.Timed expects.
func ObserveLimiterWait(wait time.Duration) {
	RateLimiterWait.Observe(wait.Seconds())
}

// SetEndpointHealth sets the connectivity gauges for an endpoint
func SetEndpointHealth(endpoint string, healthy bool, latency time.Duration) {
	val := 0.0
	if healthy {
		val = 1.0
	}
	EndpointUp.WithLabelValues(endpoint).Set(val)
	EndpointLatency.WithLabelValues(endpoint).Set(latency.Seconds())
}

// SetNetwork publishes the headline numbers of a collection.
func SetNetwork(skipRate, score, efficiency float64, at time.Time) {
	NetworkSkipRate.Set(skipRate)
	NetworkHealthScore.Set(score)
	NetworkEfficiency.Set(efficiency)
	LastCollection.Set(float64(at.Unix()))
}

func SetCategoryCount(category string, count int) {
	ValidatorsByCategory.WithLabelValues(category).Set(float64(count))
}

func SetBucketCount(bucket string, count int) {
	DistributionBucket.WithLabelValues(bucket).Set(float64(count))
}

func SetAlertCount(severity string, count int) {
	HealthAlerts.WithLabelValues(severity).Set(float64(count))
}

func RecordFetchError(kind string) {
	FetchErrors.WithLabelValues(kind).Inc()
}
