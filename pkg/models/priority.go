package models

import (
	"time"

	"github.com/google/uuid"
)

// CoursePriority is the persisted result of scoring one course's feedback
// group. Upserts are keyed by course_id, so recomputes are idempotent.
type CoursePriority struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	CourseID      string         `json:"course_id" db:"course_id"`
	Breakdown     ScoreBreakdown `json:"breakdown" db:"breakdown"`
	FeedbackCount int            `json:"feedback_count" db:"feedback_count"`
	WeightsName   string         `json:"weights_name" db:"weights_name"`
	ComputedAt    time.Time      `json:"computed_at" db:"computed_at"`
}

// RecomputeRequest is the API payload for triggering a recompute.
type RecomputeRequest struct {
	CourseIDs    []string `json:"course_ids,omitempty"`
	ForceRefresh bool     `json:"force_refresh"`
}

// RecomputeSummary reports the outcome of one recompute batch.
type RecomputeSummary struct {
	Processed int           `json:"processed"`
	Updated   int           `json:"updated"`
	Errors    int           `json:"errors"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}
