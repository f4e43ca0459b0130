package analytics

import (
	"math"

	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
)

const (
	ConcerningThreshold   = 5.0  // skip rate percent, strict
	OfflineThreshold      = 100.0
	SignificantMinSlots   = 50
	HighStakeMinSlots     = 1000 // strict
	LowActivityMaxSlots   = 10   // strict
	lowSignificanceWeight = 0.1
)

type SlotRange struct {
	FirstSlot uint64 `json:"firstSlot"`
	LastSlot  uint64 `json:"lastSlot"`
}

// Count is LastSlot - FirstSlot, or zero for an inverted range.
func (r SlotRange) Count() uint64 {
	if r.LastSlot < r.FirstSlot {
		return 0
	}
	return r.LastSlot - r.FirstSlot
}

// Validate rejects ranges whose first slot is not strictly below the last.
func (r SlotRange) Validate() error {
	if r.FirstSlot >= r.LastSlot {
		return apperr.InvalidSlotRange(r.FirstSlot, r.LastSlot)
	}
	return nil
}

// Entry is one raw byIdentity value.
type Entry struct {
	Identity       string
	AssignedSlots  uint64
	ProducedBlocks uint64
}

type ValidatorRecord struct {
	Identity        string  `json:"identity"`
	AssignedSlots   uint64  `json:"assignedSlots"`
	ProducedBlocks  uint64  `json:"producedBlocks"`
	MissedSlots     uint64  `json:"missedSlots"`
	SkipRatePercent float64 `json:"skipRatePercent"`
}

func NewRecord(identity string, assigned, produced uint64) ValidatorRecord {
	var missed uint64
	if assigned > produced {
		missed = assigned - produced
	}
	return ValidatorRecord{
		Identity:        identity,
		AssignedSlots:   assigned,
		ProducedBlocks:  produced,
		MissedSlots:     missed,
		SkipRatePercent: percent(missed, assigned),
	}
}

// Perfect requires at least one assigned slot; an idle validator is not perfect.
func (v ValidatorRecord) Perfect() bool {
	return v.SkipRatePercent == 0 && v.AssignedSlots > 0
}

func (v ValidatorRecord) Concerning() bool {
	return v.SkipRatePercent > ConcerningThreshold
}

func (v ValidatorRecord) Offline() bool {
	return v.SkipRatePercent >= OfflineThreshold
}

func (v ValidatorRecord) Significant() bool {
	return v.AssignedSlots >= SignificantMinSlots
}

func (v ValidatorRecord) HighStake() bool {
	return v.AssignedSlots > HighStakeMinSlots
}

func (v ValidatorRecord) LowActivity() bool {
	return v.AssignedSlots < LowActivityMaxSlots
}

// Weight is the significance weight: logarithmic in assigned slots so large
// validators count more without dominating.
func (v ValidatorRecord) Weight() float64 {
	switch {
	case v.AssignedSlots == 0:
		return 0
	case v.AssignedSlots < SignificantMinSlots:
		return lowSignificanceWeight
	default:
		return math.Log(float64(v.AssignedSlots)) / 10
	}
}

func (v ValidatorRecord) Category() Category {
	return Categorize(v.SkipRatePercent, v.AssignedSlots)
}

// percent returns 100*part/whole, or 0 when whole is 0.
func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
