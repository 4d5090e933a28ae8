package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/edusignal/edusignal/internal/config"
	"github.com/edusignal/edusignal/pkg/models"
)

type feedbackSource interface {
	ListCourses(ctx context.Context) ([]string, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.FeedbackRecord, error)
}

type priorityStore interface {
	Upsert(ctx context.Context, p *models.CoursePriority) error
	GetByCourse(ctx context.Context, courseID string) (*models.CoursePriority, error)
	List(ctx context.Context, limit int) ([]models.CoursePriority, error)
}

type priorityPublisher interface {
	PublishPriorityUpdated(ctx context.Context, p *models.CoursePriority) error
}

// PriorityOrchestrator drives recompute over courses: load records,
// aggregate, score under the active weights, upsert. One course failing
// never aborts the batch; it is logged, counted and skipped.
type PriorityOrchestrator struct {
	feedback   feedbackSource
	priorities priorityStore
	weights    *WeightConfigService
	aggregator *FeedbackAggregator
	engine     *ScoringEngine
	publisher  priorityPublisher
	cache      *redis.Client
	metrics    *Metrics
	config     *config.ScoringConfig
	logger     *logrus.Logger
}

func NewPriorityOrchestrator(
	feedback feedbackSource,
	priorities priorityStore,
	weights *WeightConfigService,
	aggregator *FeedbackAggregator,
	engine *ScoringEngine,
	publisher priorityPublisher,
	cache *redis.Client,
	metrics *Metrics,
	cfg *config.ScoringConfig,
	logger *logrus.Logger,
) *PriorityOrchestrator {
	return &PriorityOrchestrator{
		feedback:   feedback,
		priorities: priorities,
		weights:    weights,
		aggregator: aggregator,
		engine:     engine,
		publisher:  publisher,
		cache:      cache,
		metrics:    metrics,
		config:     cfg,
		logger:     logger,
	}
}

// RecomputeAll scores the given courses, or every course with feedback
// when courseIDs is empty. Courses run through a bounded worker pool; each
// course's persistence write is its own transaction, so a failure rolls
// back only that course.
func (o *PriorityOrchestrator) RecomputeAll(ctx context.Context, courseIDs []string, forceRefresh bool) (*models.RecomputeSummary, error) {
	started := time.Now()
	summary := &models.RecomputeSummary{StartedAt: started}

	if len(courseIDs) == 0 {
		var err error
		courseIDs, err = o.feedback.ListCourses(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list courses: %w", err)
		}
	}

	// One immutable weight snapshot for the whole batch
	weights, weightsName, err := o.weights.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active weights: %w", err)
	}

	poolSize := o.config.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize)

	for _, courseID := range courseIDs {
		courseID := courseID
		g.Go(func() error {
			updated, err := o.recomputeCourse(gctx, courseID, weights, weightsName, forceRefresh)

			mu.Lock()
			defer mu.Unlock()
			summary.Processed++
			switch {
			case err != nil:
				summary.Errors++
				if o.metrics != nil {
					o.metrics.CoursesFailed.Inc()
				}
				o.logger.WithError(err).WithField("course_id", courseID).
					Error("Failed to recompute course priority")
			case updated:
				summary.Updated++
				if o.metrics != nil {
					o.metrics.CoursesScored.Inc()
				}
			default:
				summary.Skipped++
				if o.metrics != nil {
					o.metrics.CoursesSkipped.Inc()
				}
			}
			// Per-course errors are absorbed here so the batch continues
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(started)
	if o.metrics != nil {
		o.metrics.RecomputeRuns.Inc()
		o.metrics.RecomputeSeconds.Observe(summary.Duration.Seconds())
	}

	o.logger.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"updated":   summary.Updated,
		"errors":    summary.Errors,
		"skipped":   summary.Skipped,
		"duration":  summary.Duration,
	}).Info("Recompute batch finished")

	return summary, nil
}

// RecomputeCourse scores a single course under the active weights, used by
// the Kafka trigger path and the single-course API.
func (o *PriorityOrchestrator) RecomputeCourse(ctx context.Context, courseID string) (*models.CoursePriority, error) {
	weights, weightsName, err := o.weights.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active weights: %w", err)
	}
	if _, err := o.recomputeCourse(ctx, courseID, weights, weightsName, true); err != nil {
		return nil, err
	}
	return o.priorities.GetByCourse(ctx, courseID)
}

func (o *PriorityOrchestrator) recomputeCourse(ctx context.Context, courseID string, weights models.Weights, weightsName string, forceRefresh bool) (updated bool, err error) {
	// A panicking classifier or malformed group must not take the batch down
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic scoring course %s: %v", courseID, r)
		}
	}()

	records, err := o.feedback.ListByCourse(ctx, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to load feedback: %w", err)
	}

	group := models.FeedbackGroup{Key: courseID, Records: records}
	summary := o.aggregator.Summarize(group)

	if !forceRefresh {
		if prev, err := o.priorities.GetByCourse(ctx, courseID); err == nil {
			if prev.FeedbackCount == summary.Count && prev.WeightsName == weightsName {
				return false, nil
			}
		}
	}

	breakdown := o.engine.Calculate(group, summary, weights, nil)

	priority := &models.CoursePriority{
		ID:            uuid.New(),
		CourseID:      courseID,
		Breakdown:     breakdown,
		FeedbackCount: summary.Count,
		WeightsName:   weightsName,
		ComputedAt:    time.Now().UTC(),
	}

	if err := o.priorities.Upsert(ctx, priority); err != nil {
		return false, err
	}

	o.cachePriority(ctx, priority)

	if o.publisher != nil {
		if err := o.publisher.PublishPriorityUpdated(ctx, priority); err != nil {
			o.logger.WithError(err).WithField("course_id", courseID).
				Warn("Failed to publish priority-updated event")
		}
	}

	o.logger.WithFields(logrus.Fields{
		"course_id": courseID,
		"total":     breakdown.Total,
		"label":     breakdown.Label,
		"responses": summary.Count,
	}).Debug("Course priority recomputed")

	return true, nil
}

// GetPriority serves one course's priority, cache first.
func (o *PriorityOrchestrator) GetPriority(ctx context.Context, courseID string) (*models.CoursePriority, error) {
	if cached := o.cachedPriority(ctx, courseID); cached != nil {
		return cached, nil
	}

	priority, err := o.priorities.GetByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	o.cachePriority(ctx, priority)
	return priority, nil
}

// ListPriorities returns stored priorities ranked by score.
func (o *PriorityOrchestrator) ListPriorities(ctx context.Context, limit int) ([]models.CoursePriority, error) {
	if limit <= 0 {
		limit = 50
	}
	priorities, err := o.priorities.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	if o.metrics != nil {
		byLevel := make(map[int]int)
		for _, p := range priorities {
			byLevel[p.Breakdown.Total]++
		}
		// Set all five levels so a level that emptied out reads zero
		// instead of holding its last value.
		for level := 1; level <= 5; level++ {
			o.metrics.PriorityLevels.WithLabelValues(strconv.Itoa(level)).Set(float64(byLevel[level]))
		}
	}

	return priorities, nil
}

func (o *PriorityOrchestrator) cachePriority(ctx context.Context, p *models.CoursePriority) {
	if o.cache == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	ttl := o.config.PriorityCacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if err := o.cache.Set(ctx, priorityCacheKey(p.CourseID), data, ttl).Err(); err != nil {
		o.logger.WithError(err).Warn("Failed to cache course priority")
	}
}

func (o *PriorityOrchestrator) cachedPriority(ctx context.Context, courseID string) *models.CoursePriority {
	if o.cache == nil {
		return nil
	}
	data, err := o.cache.Get(ctx, priorityCacheKey(courseID)).Bytes()
	if err != nil {
		return nil
	}
	var p models.CoursePriority
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return &p
}

func priorityCacheKey(courseID string) string {
	return "priority:" + courseID
}
