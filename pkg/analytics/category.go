package analytics

import "time"

// Category classifies one validator for time-series dashboards. Its cut
// points are left-closed, unlike the strict concerning predicate used for
// aggregate counts.
type Category string

const (
	CategoryPerfect      Category = "Perfect"
	CategoryExcellent    Category = "Excellent"
	CategoryGood         Category = "Good"
	CategoryAverage      Category = "Average"
	CategoryConcerning   Category = "Concerning"
	CategoryPoor         Category = "Poor"
	CategoryCritical     Category = "Critical"
	CategoryOffline      Category = "Offline"
	CategoryInsufficient Category = "Insufficient"
)

// Categories in display order.
var Categories = []Category{
	CategoryPerfect, CategoryExcellent, CategoryGood, CategoryAverage, CategoryConcerning,
	CategoryPoor, CategoryCritical, CategoryOffline, CategoryInsufficient,
}

// Categorize applies the per-validator thresholds. Too few slots trumps any rate.
func Categorize(skipRate float64, assignedSlots uint64) Category {
	switch {
	case assignedSlots < LowActivityMaxSlots:
		return CategoryInsufficient
	case skipRate >= 100:
		return CategoryOffline
	case skipRate >= 25:
		return CategoryCritical
	case skipRate >= 10:
		return CategoryPoor
	case skipRate >= 5:
		return CategoryConcerning
	case skipRate >= 3:
		return CategoryAverage
	case skipRate >= 1:
		return CategoryGood
	case skipRate > 0:
		return CategoryExcellent
	default:
		return CategoryPerfect
	}
}

var categoryStyle = map[Category]struct{ label, color string }{
	CategoryPerfect:      {"Perfect (0%)", "#22c55e"},
	CategoryExcellent:    {"Excellent (0-1%)", "#84cc16"},
	CategoryGood:         {"Good (1-3%)", "#eab308"},
	CategoryAverage:      {"Average (3-5%)", "#f97316"},
	CategoryConcerning:   {"Concerning (5-10%)", "#ef4444"},
	CategoryPoor:         {"Poor (10-25%)", "#dc2626"},
	CategoryCritical:     {"Critical (25%+)", "#991b1b"},
	CategoryOffline:      {"Offline (100%)", "#374151"},
	CategoryInsufficient: {"Insufficient Data", "#9ca3af"},
}

func (c Category) Label() string {
	return categoryStyle[c].label
}

func (c Category) Color() string {
	return categoryStyle[c].color
}

type Snapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	SlotRange       SlotRange `json:"slotRange"`
	Identity        string    `json:"identity"`
	SkipRatePercent float64   `json:"skipRatePercent"`
	AssignedSlots   uint64    `json:"assignedSlots"`
	ProducedBlocks  uint64    `json:"producedBlocks"`
	Category        Category  `json:"category"`
}

func snapshots(records []ValidatorRecord, rng SlotRange, at time.Time) []Snapshot {
	out := make([]Snapshot, 0, len(records))
	for _, v := range records {
		out = append(out, Snapshot{
			Timestamp:       at,
			SlotRange:       rng,
			Identity:        v.Identity,
			SkipRatePercent: v.SkipRatePercent,
			AssignedSlots:   v.AssignedSlots,
			ProducedBlocks:  v.ProducedBlocks,
			Category:        v.Category(),
		})
	}
	return out
}

// CountByCategory tallies records per category; every category is present.
func CountByCategory(records []ValidatorRecord) map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		counts[c] = 0
	}
	for _, v := range records {
		counts[v.Category()]++
	}
	return counts
}
