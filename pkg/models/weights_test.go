package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeights_Sum(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 0.001)
	assert.Equal(t, 0.0, Weights{}.Sum())
}

func TestWeights_Normalized(t *testing.T) {
	w := Weights{Impact: 2, Urgency: 2, Effort: 2, Strategic: 2, Trend: 2}
	n := w.Normalized()
	assert.InDelta(t, 1.0, n.Sum(), 0.001)
	assert.InDelta(t, 0.2, n.Impact, 0.001)

	// Zero set stays zero instead of dividing by zero
	assert.Equal(t, Weights{}, Weights{}.Normalized())
}

func TestFactorScores_WeightedTotal(t *testing.T) {
	factors := FactorScores{Impact: 5, Urgency: 5, Effort: 5, Strategic: 5, Trend: 5}
	assert.InDelta(t, 5.0, factors.WeightedTotal(DefaultWeights()), 0.001)

	factors = FactorScores{Impact: 3.2, Urgency: 5, Effort: 3, Strategic: 3, Trend: 4.5}
	assert.InDelta(t, 3.745, factors.WeightedTotal(DefaultWeights()), 0.001)
}

func TestPriorityLevels_Complete(t *testing.T) {
	for total := 1; total <= 5; total++ {
		level, ok := PriorityLevels[total]
		assert.True(t, ok, "level %d", total)
		assert.NotEmpty(t, level.Label)
		assert.NotEmpty(t, level.Action)
		assert.NotEmpty(t, level.Color)
	}
}
