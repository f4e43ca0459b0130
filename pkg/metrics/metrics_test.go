package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRPC(t *testing.T) {
	before := testutil.ToFloat64(RPCRequestTotal.WithLabelValues("getHealth", "success"))
	RecordRPC("getHealth", "success", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(RPCRequestTotal.WithLabelValues("getHealth", "success")))
}

func TestSetEndpointHealth(t *testing.T) {
	SetEndpointHealth("http://node", true, 150*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(EndpointUp.WithLabelValues("http://node")))
	assert.InDelta(t, 0.15, testutil.ToFloat64(EndpointLatency.WithLabelValues("http://node")), 1e-9)

	SetEndpointHealth("http://node", false, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(EndpointUp.WithLabelValues("http://node")))
}

func TestSetNetwork(t *testing.T) {
	at := time.Unix(1700000000, 0)
	SetNetwork(8, 61.5, 92, at)

	assert.Equal(t, 8.0, testutil.ToFloat64(NetworkSkipRate))
	assert.Equal(t, 61.5, testutil.ToFloat64(NetworkHealthScore))
	assert.Equal(t, 92.0, testutil.ToFloat64(NetworkEfficiency))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(LastCollection))
}

func TestLabelledGauges(t *testing.T) {
	SetCategoryCount("perfect", 3)
	SetBucketCount("Dead", 2)
	SetAlertCount("critical", 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(ValidatorsByCategory.WithLabelValues("perfect")))
	assert.Equal(t, 2.0, testutil.ToFloat64(DistributionBucket.WithLabelValues("Dead")))
	assert.Equal(t, 1.0, testutil.ToFloat64(HealthAlerts.WithLabelValues("critical")))
}
