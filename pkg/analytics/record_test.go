package analytics

import (
	"math"
	"testing"

	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
	"github.com/stretchr/testify/assert"
)

func TestNewRecord(t *testing.T) {
	v := NewRecord("validator", 100, 95)
	assert.Equal(t, uint64(5), v.MissedSlots)
	assert.Equal(t, 5.0, v.SkipRatePercent)

	// more blocks than slots saturates at zero missed
	over := NewRecord("over", 50, 100)
	assert.Zero(t, over.MissedSlots)
	assert.Zero(t, over.SkipRatePercent)

	offline := NewRecord("offline", 100, 0)
	assert.Equal(t, 100.0, offline.SkipRatePercent)
	assert.True(t, offline.Offline())
}

func TestRecordPredicates(t *testing.T) {
	tests := []struct {
		name                                 string
		assigned, produced                   uint64
		perfect, concerning, offline         bool
		significant, highStake, lowActivity bool
	}{
		{"idle", 0, 0, false, false, false, false, false, true},
		{"tiny perfect", 5, 5, true, false, false, false, false, true},
		{"at low activity edge", 10, 10, true, false, false, false, false, false},
		{"at significance edge", 50, 47, false, true, false, true, false, false},
		{"just below significance", 49, 49, true, false, false, false, false, false},
		{"exactly five percent", 100, 95, false, false, false, true, false, false},
		{"at high stake edge", 1000, 1000, true, false, false, true, false, false},
		{"high stake", 1001, 900, false, true, false, true, true, false},
		{"offline", 200, 0, false, true, true, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRecord(tt.name, tt.assigned, tt.produced)
			assert.Equal(t, tt.perfect, v.Perfect(), "perfect")
			assert.Equal(t, tt.concerning, v.Concerning(), "concerning")
			assert.Equal(t, tt.offline, v.Offline(), "offline")
			assert.Equal(t, tt.significant, v.Significant(), "significant")
			assert.Equal(t, tt.highStake, v.HighStake(), "high stake")
			assert.Equal(t, tt.lowActivity, v.LowActivity(), "low activity")
		})
	}
}

func TestRecordWeight(t *testing.T) {
	assert.Equal(t, 0.0, NewRecord("a", 0, 0).Weight())
	assert.Equal(t, 0.1, NewRecord("b", 10, 10).Weight())
	assert.Equal(t, 0.1, NewRecord("c", 49, 40).Weight())
	assert.InDelta(t, math.Log(50)/10, NewRecord("d", 50, 50).Weight(), 1e-12)
	assert.InDelta(t, math.Log(5000)/10, NewRecord("e", 5000, 4000).Weight(), 1e-12)
}

func TestSlotRange(t *testing.T) {
	assert.Equal(t, uint64(1000), SlotRange{FirstSlot: 1000, LastSlot: 2000}.Count())
	assert.Zero(t, SlotRange{FirstSlot: 1000, LastSlot: 1000}.Count())
	assert.Zero(t, SlotRange{FirstSlot: 2000, LastSlot: 1000}.Count())

	assert.NoError(t, SlotRange{FirstSlot: 1, LastSlot: 2}.Validate())

	err := SlotRange{FirstSlot: 2000, LastSlot: 1000}.Validate()
	assert.True(t, apperr.Is(err, apperr.KindInvalidSlotRange))
	assert.True(t, apperr.IsConfigurationError(err))

	assert.Error(t, SlotRange{FirstSlot: 5, LastSlot: 5}.Validate())
}
