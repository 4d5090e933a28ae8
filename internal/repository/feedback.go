package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/pkg/models"
)

// FeedbackRepository reads normalized feedback records written by the
// ingestion layer. This side never writes them.
type FeedbackRepository struct {
	db     DB
	logger *logrus.Logger
}

func NewFeedbackRepository(db DB, logger *logrus.Logger) *FeedbackRepository {
	return &FeedbackRepository{db: db, logger: logger}
}

// ListCourses returns the distinct course ids that have feedback.
func (r *FeedbackRepository) ListCourses(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT course_id
		FROM feedback_records
		ORDER BY course_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan course id: %w", err)
		}
		courses = append(courses, id)
	}

	return courses, rows.Err()
}

// ListByCourse returns all feedback records for one course. Unparseable
// ratings or dates arrive as NULL from the ingestion layer and stay nil
// here; scoring degrades locally rather than failing the group.
func (r *FeedbackRepository) ListByCourse(ctx context.Context, courseID string) ([]models.FeedbackRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, course_id, text, rating, severity, source, student_id, created_at
		FROM feedback_records
		WHERE course_id = $1
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback for course %s: %w", courseID, err)
	}
	defer rows.Close()

	var records []models.FeedbackRecord
	for rows.Next() {
		var rec models.FeedbackRecord
		if err := rows.Scan(&rec.ID, &rec.CourseID, &rec.Text, &rec.Rating,
			&rec.Severity, &rec.Source, &rec.StudentID, &rec.CreatedAt); err != nil {
			r.logger.WithError(err).WithField("course_id", courseID).
				Warn("Skipping unreadable feedback row")
			continue
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
