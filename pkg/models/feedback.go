package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback severity labels as assigned by the ingestion layer.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Feedback sources.
const (
	SourceCanvas = "canvas"
	SourceZoho   = "zoho"
	SourceManual = "manual"
)

// FeedbackRecord is one normalized unit of student feedback. Records are
// owned by the ingestion layer and are read-only here.
type FeedbackRecord struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CourseID  string     `json:"course_id" db:"course_id" validate:"required"`
	Text      string     `json:"text" db:"text"`
	Rating    *float64   `json:"rating,omitempty" db:"rating" validate:"omitempty,min=1,max=5"`
	Severity  *string    `json:"severity,omitempty" db:"severity" validate:"omitempty,oneof=critical high medium low"`
	Source    string     `json:"source" db:"source" validate:"required,oneof=canvas zoho manual"`
	StudentID *string    `json:"student_id,omitempty" db:"student_id"`
	CreatedAt *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// FeedbackGroup is a cluster of records scored together, typically all
// feedback for one course. Groups are derived on every scoring pass and
// never persisted.
type FeedbackGroup struct {
	Key     string           `json:"key"`
	Records []FeedbackRecord `json:"records"`
}

// GroupSummary holds roll-up statistics for one FeedbackGroup.
type GroupSummary struct {
	Count           int            `json:"count"`
	AvgRating       *float64       `json:"avg_rating,omitempty"`
	CategoryCounts  map[string]int `json:"category_counts"`
	ThemeCounts     map[string]int `json:"theme_counts"`
	CriticalCount   int            `json:"critical_count"`
	SuggestionCount int            `json:"suggestion_count"`
	LastActivity    *time.Time     `json:"last_activity,omitempty"`
}
