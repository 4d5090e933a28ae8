package models

import (
	"time"

	"github.com/google/uuid"
)

// Factor names, used consistently across weights, breakdowns and the API.
const (
	FactorImpact    = "impact"
	FactorUrgency   = "urgency"
	FactorEffort    = "effort"
	FactorStrategic = "strategic"
	FactorTrend     = "trend"
)

// FactorNames lists the five required factors in canonical order.
var FactorNames = []string{FactorImpact, FactorUrgency, FactorEffort, FactorStrategic, FactorTrend}

// Weights is one set of factor weights. A valid set is non-negative and
// sums to 1.0 within WeightSumTolerance.
type Weights struct {
	Impact    float64 `json:"impact"`
	Urgency   float64 `json:"urgency"`
	Effort    float64 `json:"effort"`
	Strategic float64 `json:"strategic"`
	Trend     float64 `json:"trend"`
}

// Sum returns the total of the five weights.
func (w Weights) Sum() float64 {
	return w.Impact + w.Urgency + w.Effort + w.Strategic + w.Trend
}

// Normalized returns a copy scaled to sum to 1.0. A zero set is returned
// unchanged.
func (w Weights) Normalized() Weights {
	sum := w.Sum()
	if sum == 0 {
		return w
	}
	return Weights{
		Impact:    w.Impact / sum,
		Urgency:   w.Urgency / sum,
		Effort:    w.Effort / sum,
		Strategic: w.Strategic / sum,
		Trend:     w.Trend / sum,
	}
}

// DefaultWeights is the stock configuration used when no explicit config
// has ever been activated.
func DefaultWeights() Weights {
	return Weights{Impact: 0.35, Urgency: 0.30, Effort: 0.20, Strategic: 0.10, Trend: 0.05}
}

// WeightConfig is a named, versioned weight set. At most one config is
// active at any time; configs are never mutated after creation.
type WeightConfig struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	Weights   Weights   `json:"weights" db:"weights"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WeightConfigRequest is the API payload for creating a config.
type WeightConfigRequest struct {
	Name       string             `json:"name" validate:"required,min=1,max=255"`
	Weights    map[string]float64 `json:"weights" validate:"required"`
	CreatedBy  string             `json:"created_by,omitempty"`
	MakeActive bool               `json:"make_active"`
}

// PreviewRequest asks for the effect of a candidate weight set on recently
// scored courses without persisting anything.
type PreviewRequest struct {
	Weights    map[string]float64 `json:"weights" validate:"required"`
	SampleSize int                `json:"sample_size,omitempty" validate:"omitempty,min=1,max=200"`
}

// PreviewDelta is one course's score movement under candidate weights.
type PreviewDelta struct {
	CourseID     string  `json:"course_id"`
	CurrentTotal int     `json:"current_total"`
	NewTotal     int     `json:"new_total"`
	Delta        int     `json:"delta"`
	RawCurrent   float64 `json:"raw_current"`
	RawNew       float64 `json:"raw_new"`
}
