package analytics

import "sort"

type Distribution struct {
	Buckets     []Bucket          `json:"buckets"`
	Percentiles []PercentilePoint `json:"percentiles"`
	PlotData    PlotData          `json:"plotData"`
}

type Bucket struct {
	Name           string  `json:"name"`
	Label          string  `json:"label"`
	MinPercent     float64 `json:"minPercent"`
	MaxPercent     float64 `json:"maxPercent"`
	ValidatorCount int     `json:"validatorCount"`
	PercentOfTotal float64 `json:"percentOfTotal"`
	TotalSlots     uint64  `json:"totalSlots"`
}

type PercentilePoint struct {
	Percentile      int     `json:"percentile"`
	SkipRatePercent float64 `json:"skipRatePercent"`
}

// PlotData holds parallel arrays ready for charting.
type PlotData struct {
	HistogramLabels []string  `json:"histogramLabels"`
	HistogramValues []int     `json:"histogramValues"`
	PercentileX     []int     `json:"percentileX"`
	PercentileY     []float64 `json:"percentileY"`
}

type bucketDef struct {
	name, label string
	min, max    float64
	match       func(rate float64) bool
}

// Every rate in [0,100] falls in exactly one bucket.
var bucketDefs = []bucketDef{
	{"perfect", "Perfect (0%)", 0, 0, func(r float64) bool { return r == 0 }},
	{"excellent", "Excellent (0-1%)", 0, 1, func(r float64) bool { return r > 0 && r < 1 }},
	{"good", "Good (1-2%)", 1, 2, halfOpen(1, 2)},
	{"average", "Average (2-5%)", 2, 5, halfOpen(2, 5)},
	{"concerning", "Concerning (5-10%)", 5, 10, halfOpen(5, 10)},
	{"poor", "Poor (10-25%)", 10, 25, halfOpen(10, 25)},
	{"critical", "Critical (25-50%)", 25, 50, halfOpen(25, 50)},
	{"failing", "Failing (50-99%)", 50, 100, halfOpen(50, 100)},
	{"dead", "Dead (100%)", 100, 100, func(r float64) bool { return r == 100 }},
}

func halfOpen(min, max float64) func(float64) bool {
	return func(r float64) bool { return r >= min && r < max }
}

// PercentileLadder lists the percentiles reported in a Distribution.
var PercentileLadder = []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 99}

func ComputeDistribution(records []ValidatorRecord) Distribution {
	total := len(records)
	d := Distribution{
		Buckets:     make([]Bucket, 0, len(bucketDefs)),
		Percentiles: make([]PercentilePoint, 0, len(PercentileLadder)),
		PlotData: PlotData{
			HistogramLabels: make([]string, 0, len(bucketDefs)),
			HistogramValues: make([]int, 0, len(bucketDefs)),
			PercentileX:     make([]int, 0, len(PercentileLadder)),
			PercentileY:     make([]float64, 0, len(PercentileLadder)),
		},
	}

	for _, def := range bucketDefs {
		b := Bucket{Name: def.name, Label: def.label, MinPercent: def.min, MaxPercent: def.max}
		for _, v := range records {
			if def.match(v.SkipRatePercent) {
				b.ValidatorCount++
				b.TotalSlots += v.AssignedSlots
			}
		}
		if total > 0 {
			b.PercentOfTotal = float64(b.ValidatorCount) * 100 / float64(total)
		}
		d.Buckets = append(d.Buckets, b)
		d.PlotData.HistogramLabels = append(d.PlotData.HistogramLabels, b.Label)
		d.PlotData.HistogramValues = append(d.PlotData.HistogramValues, b.ValidatorCount)
	}

	rates := make([]float64, len(records))
	for i, v := range records {
		rates[i] = v.SkipRatePercent
	}
	sort.Float64s(rates)

	for _, p := range PercentileLadder {
		value := Percentile(rates, p)
		d.Percentiles = append(d.Percentiles, PercentilePoint{Percentile: p, SkipRatePercent: value})
		d.PlotData.PercentileX = append(d.PlotData.PercentileX, p)
		d.PlotData.PercentileY = append(d.PlotData.PercentileY, value)
	}
	return d
}
