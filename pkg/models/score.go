package models

import "time"

// FactorScores holds the five factor sub-scores, each on the 1-5 scale.
// Effort is inverted: higher means easier to fix.
type FactorScores struct {
	Impact    float64 `json:"impact"`
	Urgency   float64 `json:"urgency"`
	Effort    float64 `json:"effort"`
	Strategic float64 `json:"strategic"`
	Trend     float64 `json:"trend"`
}

// WeightedTotal applies a weight set to the factor scores. The result is
// the raw weighted sum before rounding to a priority level.
func (f FactorScores) WeightedTotal(w Weights) float64 {
	return f.Impact*w.Impact +
		f.Urgency*w.Urgency +
		f.Effort*w.Effort +
		f.Strategic*w.Strategic +
		f.Trend*w.Trend
}

// Evidence is one representative quote backing a score.
type Evidence struct {
	Quote     string     `json:"quote"`
	Source    string     `json:"source"`
	Severity  *string    `json:"severity,omitempty"`
	Rating    *float64   `json:"rating,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Explanation is the human-readable justification for a score.
type Explanation struct {
	PrimaryReason      string     `json:"primary_reason"`
	SupportingFactors  []string   `json:"supporting_factors,omitempty"`
	RecommendedActions []string   `json:"recommended_actions,omitempty"`
	Evidence           []Evidence `json:"evidence,omitempty"`
}

// ScoreBreakdown is the full output of one scoring pass over a group.
type ScoreBreakdown struct {
	Factors     FactorScores `json:"factors"`
	RawTotal    float64      `json:"raw_total"`
	Total       int          `json:"total"`
	Label       string       `json:"label"`
	Action      string       `json:"action"`
	Color       string       `json:"color"`
	Confidence  float64      `json:"confidence"`
	Explanation Explanation  `json:"explanation"`
}

// PriorityLevel is one row of the fixed score-to-label table.
type PriorityLevel struct {
	Score  int    `json:"score"`
	Label  string `json:"label"`
	Action string `json:"action"`
	Color  string `json:"color"`
}

// PriorityLevels maps each integer total to its label row. Static; never
// mutated at runtime.
var PriorityLevels = map[int]PriorityLevel{
	5: {Score: 5, Label: "CRITICAL", Action: "fix immediately", Color: "red"},
	4: {Score: 4, Label: "HIGH", Action: "fix this term", Color: "orange"},
	3: {Score: 3, Label: "MEDIUM", Action: "schedule for next revision", Color: "yellow"},
	2: {Score: 2, Label: "LOW", Action: "consider when convenient", Color: "blue"},
	1: {Score: 1, Label: "MINIMAL", Action: "monitor only", Color: "gray"},
}
