package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		rate  float64
		slots uint64
		want  Category
	}{
		{0, 100, CategoryPerfect},
		{0.5, 100, CategoryExcellent},
		{1, 100, CategoryGood},
		{2, 100, CategoryGood},
		{3, 100, CategoryAverage},
		{4.99, 100, CategoryAverage},
		{5, 100, CategoryConcerning},
		{7, 100, CategoryConcerning},
		{10, 100, CategoryPoor},
		{25, 100, CategoryCritical},
		{50, 100, CategoryCritical},
		{100, 100, CategoryOffline},
		{5, 5, CategoryInsufficient},
		{100, 9, CategoryInsufficient},
		{0, 0, CategoryInsufficient},
		{0, 10, CategoryPerfect},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.rate, tt.slots), "rate %v slots %d", tt.rate, tt.slots)
	}
}

func TestCategoryPresentation(t *testing.T) {
	assert.Equal(t, "Perfect (0%)", CategoryPerfect.Label())
	assert.Equal(t, "#22c55e", CategoryPerfect.Color())
	assert.Equal(t, "Concerning (5-10%)", CategoryConcerning.Label())
	assert.Equal(t, "#ef4444", CategoryConcerning.Color())
	assert.Equal(t, "Insufficient Data", CategoryInsufficient.Label())

	for _, c := range Categories {
		assert.NotEmpty(t, c.Label(), c)
		assert.NotEmpty(t, c.Color(), c)
	}
}

func TestCountByCategory(t *testing.T) {
	counts := CountByCategory(records(
		Entry{Identity: "a", AssignedSlots: 100, ProducedBlocks: 100},
		Entry{Identity: "b", AssignedSlots: 100, ProducedBlocks: 0},
		Entry{Identity: "c", AssignedSlots: 2, ProducedBlocks: 0},
	))

	assert.Len(t, counts, len(Categories))
	assert.Equal(t, 1, counts[CategoryPerfect])
	assert.Equal(t, 1, counts[CategoryOffline])
	assert.Equal(t, 1, counts[CategoryInsufficient])
	assert.Equal(t, 0, counts[CategoryPoor])
}
