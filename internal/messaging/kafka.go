package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/config"
	"github.com/edusignal/edusignal/pkg/models"
)

const consumerGroup = "priority-scorers"

// FeedbackIngestedEvent is published by the ingestion layer whenever new
// feedback lands for a course. Receiving one triggers a single-course
// recompute.
type FeedbackIngestedEvent struct {
	CourseID    string    `json:"course_id"`
	RecordCount int       `json:"record_count"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// PriorityUpdatedEvent is published after a course priority is upserted.
type PriorityUpdatedEvent struct {
	CourseID   string    `json:"course_id"`
	Total      int       `json:"total"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	ComputedAt time.Time `json:"computed_at"`
}

// MessageBus wraps the Kafka producer and consumer for the scoring
// pipeline's trigger and notification topics.
type MessageBus struct {
	writer *kafka.Writer
	reader *kafka.Reader
	logger *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topics.PriorityUpdated,
		Balancer:     &kafka.Hash{}, // Key by course id so updates stay ordered per course
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topics.FeedbackIngested,
		GroupID:        consumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})

	return &MessageBus{
		writer: writer,
		reader: reader,
		logger: logger,
	}, nil
}

// PublishPriorityUpdated emits the notification event for one recomputed
// course.
func (mb *MessageBus) PublishPriorityUpdated(ctx context.Context, p *models.CoursePriority) error {
	event := PriorityUpdatedEvent{
		CourseID:   p.CourseID,
		Total:      p.Breakdown.Total,
		Label:      p.Breakdown.Label,
		Confidence: p.Breakdown.Confidence,
		ComputedAt: p.ComputedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal priority event: %w", err)
	}

	return mb.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(p.CourseID),
		Value: data,
	})
}

// ConsumeFeedbackEvents blocks reading feedback-ingested events and hands
// each course id to the handler. A handler error is logged and the loop
// continues; the loop exits when the context is canceled.
func (mb *MessageBus) ConsumeFeedbackEvents(ctx context.Context, handler func(ctx context.Context, courseID string) error) error {
	for {
		msg, err := mb.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).Warn("Failed to read feedback event")
			continue
		}

		var event FeedbackIngestedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			mb.logger.WithError(err).Warn("Skipping malformed feedback event")
			continue
		}
		if event.CourseID == "" {
			mb.logger.Warn("Skipping feedback event with no course id")
			continue
		}

		if err := handler(ctx, event.CourseID); err != nil {
			mb.logger.WithError(err).WithField("course_id", event.CourseID).
				Error("Failed to process feedback event")
		}
	}
}

func (mb *MessageBus) Close() error {
	var firstErr error
	if err := mb.writer.Close(); err != nil {
		firstErr = err
	}
	if err := mb.reader.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
