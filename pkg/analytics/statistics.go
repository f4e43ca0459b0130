package analytics

import "sort"

type Statistics struct {
	TotalValidators     int    `json:"totalValidators"`
	TotalAssignedSlots  uint64 `json:"totalAssignedSlots"`
	TotalProducedBlocks uint64 `json:"totalProducedBlocks"`
	TotalMissedSlots    uint64 `json:"totalMissedSlots"`

	OverallSkipRate     float64 `json:"overallSkipRatePercent"`
	AverageSkipRate     float64 `json:"averageSkipRatePercent"`
	MedianSkipRate      float64 `json:"medianSkipRatePercent"`
	WeightedSkipRate    float64 `json:"weightedSkipRatePercent"`
	SignificantSkipRate float64 `json:"significantSkipRatePercent"`
	HighStakeSkipRate   float64 `json:"highStakeSkipRatePercent"`

	PerfectCount     int `json:"perfectValidators"`
	ConcerningCount  int `json:"concerningValidators"`
	OfflineCount     int `json:"offlineValidators"`
	LowActivityCount int `json:"lowActivityValidators"`
	HighStakeCount   int `json:"highStakeValidators"`
	SignificantCount int `json:"significantValidators"`

	P90            float64 `json:"skipRateP90"`
	P95            float64 `json:"skipRateP95"`
	SignificantP90 float64 `json:"significantSkipRateP90"`
	SignificantP95 float64 `json:"significantSkipRateP95"`

	NetworkEfficiency         float64 `json:"networkEfficiencyPercent"`
	WeightedNetworkEfficiency float64 `json:"weightedNetworkEfficiencyPercent"`

	Significant SubsetStatistics `json:"significant"`
	HighStake   SubsetStatistics `json:"highStake"`
}

// SubsetStatistics repeats the rate and percentile figures for a subset of
// validators.
type SubsetStatistics struct {
	Validators      int     `json:"validators"`
	AssignedSlots   uint64  `json:"assignedSlots"`
	ProducedBlocks  uint64  `json:"producedBlocks"`
	MissedSlots     uint64  `json:"missedSlots"`
	SkipRate        float64 `json:"skipRatePercent"`
	AverageSkipRate float64 `json:"averageSkipRatePercent"`
	MedianSkipRate  float64 `json:"medianSkipRatePercent"`
	P90             float64 `json:"skipRateP90"`
	P95             float64 `json:"skipRateP95"`
	Efficiency      float64 `json:"efficiencyPercent"`
}

// ComputeStatistics aggregates records. It does not require them sorted.
func ComputeStatistics(records []ValidatorRecord) Statistics {
	all := subset(records, func(ValidatorRecord) bool { return true })
	significant := subset(records, ValidatorRecord.Significant)
	highStake := subset(records, ValidatorRecord.HighStake)

	stats := Statistics{
		TotalValidators:     len(records),
		TotalAssignedSlots:  all.AssignedSlots,
		TotalProducedBlocks: all.ProducedBlocks,
		TotalMissedSlots:    all.MissedSlots,

		OverallSkipRate:     all.SkipRate,
		AverageSkipRate:     all.AverageSkipRate,
		MedianSkipRate:      all.MedianSkipRate,
		SignificantSkipRate: significant.SkipRate,
		HighStakeSkipRate:   highStake.SkipRate,

		P90:            all.P90,
		P95:            all.P95,
		SignificantP90: significant.P90,
		SignificantP95: significant.P95,

		NetworkEfficiency:         all.Efficiency,
		WeightedNetworkEfficiency: significant.Efficiency,

		Significant: significant,
		HighStake:   highStake,
	}

	var weightedSum, totalWeight float64
	for _, v := range records {
		if v.Significant() {
			w := v.Weight()
			weightedSum += v.SkipRatePercent * w
			totalWeight += w
		}
		if v.Perfect() {
			stats.PerfectCount++
		}
		if v.Concerning() {
			stats.ConcerningCount++
		}
		if v.Offline() {
			stats.OfflineCount++
		}
		if v.LowActivity() {
			stats.LowActivityCount++
		}
	}
	if totalWeight > 0 {
		stats.WeightedSkipRate = weightedSum / totalWeight
	}
	stats.HighStakeCount = highStake.Validators
	stats.SignificantCount = significant.Validators
	return stats
}

func subset(records []ValidatorRecord, keep func(ValidatorRecord) bool) SubsetStatistics {
	var s SubsetStatistics
	var rates []float64
	var rateSum float64
	for _, v := range records {
		if !keep(v) {
			continue
		}
		s.Validators++
		s.AssignedSlots += v.AssignedSlots
		s.ProducedBlocks += v.ProducedBlocks
		s.MissedSlots += v.MissedSlots
		rates = append(rates, v.SkipRatePercent)
		rateSum += v.SkipRatePercent
	}
	if s.Validators == 0 {
		return s
	}
	sort.Float64s(rates)

	s.SkipRate = percent(s.MissedSlots, s.AssignedSlots)
	s.Efficiency = percent(s.ProducedBlocks, s.AssignedSlots)
	s.AverageSkipRate = rateSum / float64(s.Validators)
	s.MedianSkipRate = Median(rates)
	s.P90 = Percentile(rates, 90)
	s.P95 = Percentile(rates, 95)
	return s
}

// Percentile is the nearest-rank percentile of ascending values: the element
// at index floor((n-1)*pct/100), clamped. Zero for an empty slice.
func Percentile(sorted []float64, pct int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if pct < 0 {
		pct = 0
	}
	idx := (n - 1) * pct / 100
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// Median of ascending values, averaging the middle pair for even counts.
func Median(sorted []float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n%2 == 0:
		return (sorted[n/2-1] + sorted[n/2]) / 2
	default:
		return sorted[n/2]
	}
}
