package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(entries ...Entry) []ValidatorRecord {
	out := make([]ValidatorRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewRecord(e.Identity, e.AssignedSlots, e.ProducedBlocks))
	}
	return out
}

func repeat(prefix string, n int, assigned, produced uint64) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{Identity: fmt.Sprintf("%s-%d", prefix, i), AssignedSlots: assigned, ProducedBlocks: produced}
	}
	return out
}

func assess(recs []ValidatorRecord) HealthAssessment {
	return AssessHealth(ComputeStatistics(recs), recs, fetchedAt)
}

func alertsIn(h HealthAssessment, category AlertCategory) []Alert {
	var out []Alert
	for _, a := range h.Alerts {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

func TestHealth_AllPerfect(t *testing.T) {
	h := assess(records(repeat("ok", 10, 100, 100)...))

	assert.Equal(t, 100.0, h.Score)
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Empty(t, h.Alerts)
	assert.NotNil(t, h.Alerts)
	assert.Equal(t, colorGreen, h.KeyMetrics.NetworkSkipRate.Color)
	assert.Equal(t, colorGreen, h.KeyMetrics.NetworkEfficiency.Color)
	assert.Equal(t, colorGreen, h.KeyMetrics.ConcerningValidators.Color)
}

func TestHealth_StatusThresholds(t *testing.T) {
	assert.Equal(t, StatusHealthy, statusFromScore(90))
	assert.Equal(t, StatusWarning, statusFromScore(89.99))
	assert.Equal(t, StatusWarning, statusFromScore(75))
	assert.Equal(t, StatusDegraded, statusFromScore(74.99))
	assert.Equal(t, StatusDegraded, statusFromScore(50))
	assert.Equal(t, StatusCritical, statusFromScore(49.99))
}

func TestHealthScore_Clamped(t *testing.T) {
	// no validators: only the skip rate component contributes
	assert.Equal(t, 40.0, HealthScore(Statistics{}))
	assert.Equal(t, 100.0, HealthScore(Statistics{TotalValidators: 1, NetworkEfficiency: 150}))
	// everything offline
	assert.Equal(t, 0.0, HealthScore(Statistics{TotalValidators: 2, ConcerningCount: 2, OverallSkipRate: 100}))
}

func TestHealth_ConcerningAlertCritical(t *testing.T) {
	h := assess(records(repeat("bad", 25, 100, 80)...))

	got := alertsIn(h, AlertValidatorCount)
	require.Len(t, got, 1)
	assert.Equal(t, SeverityCritical, got[0].Severity)
	assert.Equal(t,
		"25 validators have concerning skip rates (25 significant validators, 100.0% network impact, 500 total missed slots)",
		got[0].Message)
	assert.Equal(t, fetchedAt, got[0].TriggeredAt)
}

func TestHealth_ConcerningAlertWarning(t *testing.T) {
	entries := repeat("small", 21, 10, 4)
	entries = append(entries, repeat("big", 7, 1000, 1000)...)
	h := assess(records(entries...))

	got := alertsIn(h, AlertValidatorCount)
	require.Len(t, got, 1)
	assert.Equal(t, SeverityWarning, got[0].Severity)
	assert.Contains(t, got[0].Message, "21 validators have concerning skip rates (0 significant validators, 2.9% network impact")
}

func TestHealth_ConcerningAlertNeedsImpact(t *testing.T) {
	// 21 tiny concerning validators drowned out by a large healthy network
	entries := repeat("small", 21, 10, 4)
	entries = append(entries, repeat("big", 20, 1000, 1000)...)
	h := assess(records(entries...))

	assert.Empty(t, alertsIn(h, AlertValidatorCount))
}

func TestHealth_ConcerningAlertNeedsMoreThanTwenty(t *testing.T) {
	h := assess(records(repeat("bad", 20, 100, 80)...))

	assert.Empty(t, alertsIn(h, AlertValidatorCount))
	assert.Len(t, alertsIn(h, AlertSkipRate), 1)
}

func TestHealth_HighStakeAlert(t *testing.T) {
	entries := []Entry{
		{Identity: "whale", AssignedSlots: 2000, ProducedBlocks: 1700},
		{Identity: "edge", AssignedSlots: 1000, ProducedBlocks: 800}, // not above 1000 slots
	}
	entries = append(entries, repeat("ok", 40, 2000, 2000)...)
	h := assess(records(entries...))

	got := alertsIn(h, AlertValidatorCount)
	require.Len(t, got, 1)
	assert.Equal(t, SeverityCritical, got[0].Severity)
	assert.Equal(t, "1 high-stake validators have >10% skip rates (missed 300 slots total)", got[0].Message)
}

func TestHealth_LowEfficiencyAlert(t *testing.T) {
	h := assess(records(repeat("meh", 10, 100, 94)...))

	got := alertsIn(h, AlertNetworkEfficiency)
	require.Len(t, got, 1)
	assert.Equal(t, SeverityWarning, got[0].Severity)
	assert.Equal(t, "Low network efficiency: 94.0%", got[0].Message)
}

func TestHealth_KeyMetricColors(t *testing.T) {
	h := assess(records(repeat("fair", 10, 1000, 980)...))

	assert.Equal(t, "2.00%", h.KeyMetrics.NetworkSkipRate.Value)
	assert.Equal(t, colorYellow, h.KeyMetrics.NetworkSkipRate.Color)
	assert.Equal(t, "98.0%", h.KeyMetrics.NetworkEfficiency.Value)
	assert.Equal(t, colorYellow, h.KeyMetrics.NetworkEfficiency.Color)
	assert.Equal(t, "10", h.KeyMetrics.ActiveValidators.Value)
	assert.Equal(t, "Active validators", h.KeyMetrics.ActiveValidators.Subtitle)
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, "#22c55e", StatusHealthy.Color())
	assert.Equal(t, "#eab308", StatusWarning.Color())
	assert.Equal(t, "#f97316", StatusDegraded.Color())
	assert.Equal(t, "#ef4444", StatusCritical.Color())
}

func TestAlertCategoryString(t *testing.T) {
	assert.Equal(t, "Skip Rate", AlertSkipRate.String())
	assert.Equal(t, "Performance", AlertPerformance.String())
}
