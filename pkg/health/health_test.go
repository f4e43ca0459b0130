package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DashNode-Org/slot-sentinel/config"
	"github.com/DashNode-Org/slot-sentinel/pkg/analytics"
	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
	"github.com/DashNode-Org/slot-sentinel/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Pinger and Fetcher
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Endpoint() string {
	return "http://node1"
}

func (m *MockClient) TestConnection(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) FetchBlockProduction(ctx context.Context) (*analytics.FetchResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.FetchResult), args.Error(1)
}

func TestChecker_Healthy(t *testing.T) {
	m := new(MockClient)
	m.On("TestConnection", mock.Anything).Return(true, nil).Once()

	c := NewChecker(m, time.Minute, time.Second)
	status := c.CheckOnce(context.Background())

	assert.True(t, status.Healthy)
	assert.True(t, c.Healthy())
	assert.Equal(t, "http://node1", status.Endpoint)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EndpointUp.WithLabelValues("http://node1")))
	m.AssertExpectations(t)
}

func TestChecker_Unhealthy(t *testing.T) {
	m := new(MockClient)
	m.On("TestConnection", mock.Anything).
		Return(false, apperr.Timeout("getHealth", apperr.PhaseConnection, time.Second, context.DeadlineExceeded))

	c := NewChecker(m, time.Minute, time.Second)
	status := c.CheckOnce(context.Background())

	assert.False(t, status.Healthy)
	assert.False(t, c.Healthy())
	assert.NotEmpty(t, status.LastError)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.EndpointUp.WithLabelValues("http://node1")))
}

func TestChecker_DeadlineCoversConfiguredBudget(t *testing.T) {
	cfg := config.Default()
	cfg.RequestTimeout = time.Second
	cfg.RetryAttempts = 3

	var remaining time.Duration
	m := new(MockClient)
	m.On("TestConnection", mock.Anything).
		Run(func(args mock.Arguments) {
			deadline, ok := args.Get(0).(context.Context).Deadline()
			require.True(t, ok)
			remaining = time.Until(deadline)
		}).
		Return(true, nil).Once()

	NewChecker(m, time.Minute, cfg.CallBudget()).CheckOnce(context.Background())

	assert.Greater(t, remaining, time.Duration(cfg.RetryAttempts)*cfg.RequestTimeout)
	m.AssertExpectations(t)
}

func TestChecker_StartStopsWithContext(t *testing.T) {
	var calls int32
	m := new(MockClient)
	m.On("TestConnection", mock.Anything).
		Run(func(mock.Arguments) { atomic.AddInt32(&calls, 1) }).
		Return(true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewChecker(m, 5*time.Millisecond, time.Second).Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checker did not stop")
	}
}

func sampleResult(t *testing.T) *analytics.FetchResult {
	t.Helper()
	result, err := analytics.Analyze([]analytics.Entry{
		{Identity: "perfect", AssignedSlots: 100, ProducedBlocks: 100},
		{Identity: "good", AssignedSlots: 100, ProducedBlocks: 98},
		{Identity: "concerning", AssignedSlots: 100, ProducedBlocks: 90},
		{Identity: "bad", AssignedSlots: 100, ProducedBlocks: 80},
	}, analytics.SlotRange{FirstSlot: 1000, LastSlot: 2000}, time.Unix(1700000000, 0))
	require.NoError(t, err)
	result.FetchID = "fetch-1"
	return result
}

func TestCollector_PublishesLatest(t *testing.T) {
	result := sampleResult(t)
	m := new(MockClient)
	m.On("FetchBlockProduction", mock.Anything).Return(result, nil).Once()

	c := NewCollector(m, time.Minute)
	assert.Nil(t, c.Latest())

	got, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Same(t, result, got)
	assert.Same(t, result, c.Latest())
	assert.NoError(t, c.LastError())

	assert.Equal(t, 8.0, testutil.ToFloat64(metrics.NetworkSkipRate))
	assert.Equal(t, 92.0, testutil.ToFloat64(metrics.NetworkEfficiency))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(metrics.LastCollection))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidatorsByCategory.WithLabelValues(string(analytics.CategoryPerfect))))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DistributionBucket.WithLabelValues("poor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HealthAlerts.WithLabelValues(string(analytics.SeverityCritical))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HealthAlerts.WithLabelValues(string(analytics.SeverityWarning))))
}

func TestCollector_FailureKeepsPreviousResult(t *testing.T) {
	result := sampleResult(t)
	m := new(MockClient)
	m.On("FetchBlockProduction", mock.Anything).Return(result, nil).Once()
	m.On("FetchBlockProduction", mock.Anything).Return(nil, apperr.NoData(1, 2)).Once()

	c := NewCollector(m, time.Minute)
	_, err := c.Collect(context.Background())
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.FetchErrors.WithLabelValues("no_data"))
	_, err = c.Collect(context.Background())
	require.Error(t, err)

	assert.Same(t, result, c.Latest())
	assert.True(t, apperr.Is(c.LastError(), apperr.KindNoData))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.FetchErrors.WithLabelValues("no_data")))
	m.AssertExpectations(t)
}

func TestCollector_UnclassifiedError(t *testing.T) {
	m := new(MockClient)
	m.On("FetchBlockProduction", mock.Anything).Return(nil, errors.New("boom"))

	before := testutil.ToFloat64(metrics.FetchErrors.WithLabelValues("unknown"))
	_, err := NewCollector(m, time.Minute).Collect(context.Background())
	require.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.FetchErrors.WithLabelValues("unknown")))
}
