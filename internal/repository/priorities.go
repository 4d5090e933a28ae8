package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/pkg/models"
)

// PriorityRepository persists computed course priorities. Upserts key on
// course_id, so recomputing a course overwrites its previous result.
type PriorityRepository struct {
	db     DB
	logger *logrus.Logger
}

func NewPriorityRepository(db DB, logger *logrus.Logger) *PriorityRepository {
	return &PriorityRepository{db: db, logger: logger}
}

// Upsert writes one course priority in its own transaction.
func (r *PriorityRepository) Upsert(ctx context.Context, p *models.CoursePriority) error {
	breakdownJSON, err := json.Marshal(p.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO course_priorities (id, course_id, breakdown, feedback_count, weights_name, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (course_id) DO UPDATE
		SET breakdown = EXCLUDED.breakdown,
		    feedback_count = EXCLUDED.feedback_count,
		    weights_name = EXCLUDED.weights_name,
		    computed_at = EXCLUDED.computed_at
	`, p.ID, p.CourseID, breakdownJSON, p.FeedbackCount, p.WeightsName, p.ComputedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert priority for course %s: %w", p.CourseID, err)
	}

	return tx.Commit(ctx)
}

// GetByCourse returns the stored priority for one course.
func (r *PriorityRepository) GetByCourse(ctx context.Context, courseID string) (*models.CoursePriority, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, course_id, breakdown, feedback_count, weights_name, computed_at
		FROM course_priorities
		WHERE course_id = $1
	`, courseID)

	p, err := scanPriority(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get priority for course %s: %w", courseID, err)
	}
	return p, nil
}

// List returns stored priorities ordered by total score descending, then
// recency, limited to the given count.
func (r *PriorityRepository) List(ctx context.Context, limit int) ([]models.CoursePriority, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, course_id, breakdown, feedback_count, weights_name, computed_at
		FROM course_priorities
		ORDER BY (breakdown->>'total')::int DESC, computed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list priorities: %w", err)
	}
	defer rows.Close()

	var priorities []models.CoursePriority
	for rows.Next() {
		p, err := scanPriority(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan priority: %w", err)
		}
		priorities = append(priorities, *p)
	}

	return priorities, rows.Err()
}

// Sample returns the most recently computed priorities, used by weight
// previews to re-total stored factor sub-scores without re-classification.
func (r *PriorityRepository) Sample(ctx context.Context, limit int) ([]models.CoursePriority, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, course_id, breakdown, feedback_count, weights_name, computed_at
		FROM course_priorities
		ORDER BY computed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample priorities: %w", err)
	}
	defer rows.Close()

	var priorities []models.CoursePriority
	for rows.Next() {
		p, err := scanPriority(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan priority: %w", err)
		}
		priorities = append(priorities, *p)
	}

	return priorities, rows.Err()
}

func scanPriority(row rowScanner) (*models.CoursePriority, error) {
	var p models.CoursePriority
	var breakdownJSON []byte

	if err := row.Scan(&p.ID, &p.CourseID, &breakdownJSON, &p.FeedbackCount,
		&p.WeightsName, &p.ComputedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(breakdownJSON, &p.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}

	return &p, nil
}
