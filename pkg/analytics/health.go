package analytics

import (
	"fmt"
	"strconv"
	"time"
)

// Weights of the health score components. They sum to 100.
const (
	weightSkipRate   = 40.0
	weightEfficiency = 30.0
	weightValidators = 30.0
)

// Score thresholds for the network status.
const (
	ThresholdHealthy  = 90.0
	ThresholdWarning  = 75.0
	ThresholdDegraded = 50.0
)

// Alert thresholds.
const (
	alertSkipRate          = 5.0
	alertConcerningCount   = 20
	alertImpactPercent     = 2.0
	alertImpactCritical    = 5.0
	alertSignificantCount  = 10
	alertEfficiencyPercent = 95.0
	alertHighStakeSkipRate = 10.0
	alertHighStakeMinSlots = 1000
)

const (
	colorGreen  = "#22c55e"
	colorYellow = "#eab308"
	colorOrange = "#f97316"
	colorRed    = "#ef4444"
)

type Status string

const (
	StatusHealthy  Status = "Healthy"
	StatusWarning  Status = "Warning"
	StatusDegraded Status = "Degraded"
	StatusCritical Status = "Critical"
)

func (s Status) Color() string {
	switch s {
	case StatusHealthy:
		return colorGreen
	case StatusWarning:
		return colorYellow
	case StatusDegraded:
		return colorOrange
	default:
		return colorRed
	}
}

type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

type AlertCategory string

const (
	AlertSkipRate          AlertCategory = "SkipRate"
	AlertValidatorCount    AlertCategory = "ValidatorCount"
	AlertNetworkEfficiency AlertCategory = "NetworkEfficiency"
	AlertPerformance       AlertCategory = "Performance"
)

func (c AlertCategory) String() string {
	switch c {
	case AlertSkipRate:
		return "Skip Rate"
	case AlertValidatorCount:
		return "Validator Count"
	case AlertNetworkEfficiency:
		return "Network Efficiency"
	case AlertPerformance:
		return "Performance"
	}
	return string(c)
}

type Alert struct {
	Severity    Severity      `json:"severity"`
	Message     string        `json:"message"`
	Category    AlertCategory `json:"category"`
	TriggeredAt time.Time     `json:"triggeredAt"`
}

type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendStable  Trend = "stable"
	TrendUnknown Trend = "unknown"
)

type MetricCard struct {
	Value         string  `json:"value"`
	PreviousValue *string `json:"previousValue,omitempty"`
	Trend         Trend   `json:"trend"`
	Color         string  `json:"color"`
	Subtitle      string  `json:"subtitle"`
}

type KeyMetrics struct {
	NetworkSkipRate      MetricCard `json:"networkSkipRate"`
	ActiveValidators     MetricCard `json:"activeValidators"`
	NetworkEfficiency    MetricCard `json:"networkEfficiency"`
	ConcerningValidators MetricCard `json:"concerningValidators"`
}

type HealthAssessment struct {
	Score      float64    `json:"healthScore"`
	Status     Status     `json:"status"`
	KeyMetrics KeyMetrics `json:"keyMetrics"`
	Alerts     []Alert    `json:"alerts"`
}

// HealthScore blends the skip rate (capped at 5%), production efficiency and
// the share of non-concerning validators into 0-100.
func HealthScore(stats Statistics) float64 {
	skip := (alertSkipRate - min(stats.OverallSkipRate, alertSkipRate)) / alertSkipRate * weightSkipRate
	efficiency := stats.NetworkEfficiency / 100 * weightEfficiency
	var validators float64
	if stats.TotalValidators > 0 {
		validators = float64(stats.TotalValidators-stats.ConcerningCount) / float64(stats.TotalValidators) * weightValidators
	}
	return clamp(skip+efficiency+validators, 0, 100)
}

func statusFromScore(score float64) Status {
	switch {
	case score >= ThresholdHealthy:
		return StatusHealthy
	case score >= ThresholdWarning:
		return StatusWarning
	case score >= ThresholdDegraded:
		return StatusDegraded
	default:
		return StatusCritical
	}
}

// AssessHealth scores the network and raises alerts. Alerts are rebuilt on
// every call and stamped with at.
func AssessHealth(stats Statistics, records []ValidatorRecord, at time.Time) HealthAssessment {
	score := HealthScore(stats)
	return HealthAssessment{
		Score:      score,
		Status:     statusFromScore(score),
		KeyMetrics: keyMetrics(stats),
		Alerts:     alerts(stats, records, at),
	}
}

func alerts(stats Statistics, records []ValidatorRecord, at time.Time) []Alert {
	out := []Alert{}

	if stats.OverallSkipRate > alertSkipRate {
		out = append(out, Alert{
			Severity:    SeverityCritical,
			Message:     fmt.Sprintf("High network skip rate: %.2f%%", stats.OverallSkipRate),
			Category:    AlertSkipRate,
			TriggeredAt: at,
		})
	}

	if stats.ConcerningCount > alertConcerningCount {
		var slots, missed uint64
		significant := 0
		for _, v := range records {
			if !v.Concerning() {
				continue
			}
			slots += v.AssignedSlots
			missed += v.MissedSlots
			if v.Significant() {
				significant++
			}
		}
		impact := percent(slots, stats.TotalAssignedSlots)

		if impact > alertImpactPercent || significant > alertSignificantCount {
			severity := SeverityWarning
			if impact > alertImpactCritical {
				severity = SeverityCritical
			}
			out = append(out, Alert{
				Severity: severity,
				Message: fmt.Sprintf("%d validators have concerning skip rates (%d significant validators, %.1f%% network impact, %d total missed slots)",
					stats.ConcerningCount, significant, impact, missed),
				Category:    AlertValidatorCount,
				TriggeredAt: at,
			})
		}
	}

	if stats.NetworkEfficiency < alertEfficiencyPercent {
		out = append(out, Alert{
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("Low network efficiency: %.1f%%", stats.NetworkEfficiency),
			Category:    AlertNetworkEfficiency,
			TriggeredAt: at,
		})
	}

	var badCount int
	var badMissed uint64
	for _, v := range records {
		if v.SkipRatePercent > alertHighStakeSkipRate && v.AssignedSlots > alertHighStakeMinSlots {
			badCount++
			badMissed += v.MissedSlots
		}
	}
	if badCount > 0 {
		out = append(out, Alert{
			Severity:    SeverityCritical,
			Message:     fmt.Sprintf("%d high-stake validators have >10%% skip rates (missed %d slots total)", badCount, badMissed),
			Category:    AlertValidatorCount,
			TriggeredAt: at,
		})
	}
	return out
}

func keyMetrics(stats Statistics) KeyMetrics {
	return KeyMetrics{
		NetworkSkipRate: MetricCard{
			Value:    fmt.Sprintf("%.2f%%", stats.OverallSkipRate),
			Trend:    TrendUnknown,
			Color:    ladderColor(stats.OverallSkipRate < 1, stats.OverallSkipRate < 3),
			Subtitle: "Network skip rate",
		},
		ActiveValidators: MetricCard{
			Value:    strconv.Itoa(stats.SignificantCount),
			Trend:    TrendUnknown,
			Color:    colorGreen,
			Subtitle: "Active validators",
		},
		NetworkEfficiency: MetricCard{
			Value:    fmt.Sprintf("%.1f%%", stats.NetworkEfficiency),
			Trend:    TrendUnknown,
			Color:    ladderColor(stats.NetworkEfficiency > 99, stats.NetworkEfficiency > 97),
			Subtitle: "Network efficiency",
		},
		ConcerningValidators: MetricCard{
			Value:    strconv.Itoa(stats.ConcerningCount),
			Trend:    TrendUnknown,
			Color:    ladderColor(stats.ConcerningCount == 0, stats.ConcerningCount < 10),
			Subtitle: "Concerning validators",
		},
	}
}

// ladderColor is green when good, yellow when fair, otherwise red.
func ladderColor(good, fair bool) string {
	switch {
	case good:
		return colorGreen
	case fair:
		return colorYellow
	default:
		return colorRed
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
