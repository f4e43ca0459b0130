// Package analytics turns raw per-validator slot counts into statistics,
// distributions, health assessments and per-validator categories. Everything
// here is pure: the same input and timestamp give the same result.
package analytics

import (
	"sort"
	"time"

	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
)

// FetchResult is everything derived from one block production response.
// Validators are sorted by ascending skip rate.
type FetchResult struct {
	FetchID      string            `json:"fetchId,omitempty"`
	Validators   []ValidatorRecord `json:"validators"`
	Statistics   Statistics        `json:"statistics"`
	Distribution Distribution      `json:"distribution"`
	Health       HealthAssessment  `json:"networkHealth"`
	Snapshots    []Snapshot        `json:"performanceSnapshots"`
	SlotRange    SlotRange         `json:"slotRange"`
	FetchedAt    time.Time         `json:"fetchedAt"`
}

// Analyze builds a FetchResult from entries in their original order. An empty
// input is a NoData error and yields no partial result.
func Analyze(entries []Entry, rng SlotRange, now time.Time) (*FetchResult, error) {
	if len(entries) == 0 {
		return nil, apperr.NoData(rng.FirstSlot, rng.LastSlot)
	}

	records := make([]ValidatorRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, NewRecord(e.Identity, e.AssignedSlots, e.ProducedBlocks))
	}
	SortBySkipRate(records)

	stats := ComputeStatistics(records)
	return &FetchResult{
		Validators:   records,
		Statistics:   stats,
		Distribution: ComputeDistribution(records),
		Health:       AssessHealth(stats, records, now),
		Snapshots:    snapshots(records, rng, now),
		SlotRange:    rng,
		FetchedAt:    now,
	}, nil
}

// SortBySkipRate orders records best first, keeping the input order for ties.
func SortBySkipRate(records []ValidatorRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SkipRatePercent < records[j].SkipRatePercent
	})
}

// Filter returns the records matching keep, in their current order.
func Filter(records []ValidatorRecord, keep func(ValidatorRecord) bool) []ValidatorRecord {
	out := []ValidatorRecord{}
	for _, v := range records {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
