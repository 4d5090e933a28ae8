package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/config"
	"github.com/edusignal/edusignal/internal/repository"
	"github.com/edusignal/edusignal/pkg/models"
)

// WeightSumTolerance is the allowed deviation of a weight set's sum from 1.0.
const WeightSumTolerance = 0.001

// ValidationError describes everything wrong with a candidate weight set.
// It always carries the actual sum and a normalized suggestion so the
// caller can fix the set without guessing.
type ValidationError struct {
	MissingFactors  []string           `json:"missing_factors,omitempty"`
	UnknownFactors  []string           `json:"unknown_factors,omitempty"`
	NegativeFactors []string           `json:"negative_factors,omitempty"`
	Sum             float64            `json:"sum"`
	Suggestion      map[string]float64 `json:"suggestion,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.MissingFactors) > 0 {
		parts = append(parts, fmt.Sprintf("missing required factors: %s", strings.Join(e.MissingFactors, ", ")))
	}
	if len(e.UnknownFactors) > 0 {
		parts = append(parts, fmt.Sprintf("unknown factors: %s", strings.Join(e.UnknownFactors, ", ")))
	}
	if len(e.NegativeFactors) > 0 {
		parts = append(parts, fmt.Sprintf("negative factors: %s", strings.Join(e.NegativeFactors, ", ")))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("weights must sum to 1.0, got %.3f", e.Sum))
	}
	return strings.Join(parts, "; ")
}

// ErrDuplicateName is returned when creating a config whose name is taken.
var ErrDuplicateName = repository.ErrDuplicateName

// ErrConfigNotFound is returned when activating an unknown config.
var ErrConfigNotFound = repository.ErrNotFound

type weightConfigStore interface {
	GetActive(ctx context.Context) (*models.WeightConfig, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.WeightConfig, error)
	List(ctx context.Context) ([]models.WeightConfig, error)
	Create(ctx context.Context, cfg *models.WeightConfig, makeActive bool) error
	Activate(ctx context.Context, id uuid.UUID) error
}

type prioritySampler interface {
	Sample(ctx context.Context, limit int) ([]models.CoursePriority, error)
}

// WeightConfigService validates, creates, activates and previews weight
// configurations. Configs are immutable once created; changes go through
// new configs and the atomic activation swap in the repository.
type WeightConfigService struct {
	store   weightConfigStore
	sampler prioritySampler
	cache   *redis.Client
	config  *config.ScoringConfig
	logger  *logrus.Logger
	now     func() time.Time
}

func NewWeightConfigService(store weightConfigStore, sampler prioritySampler, cache *redis.Client, cfg *config.ScoringConfig, logger *logrus.Logger) *WeightConfigService {
	return &WeightConfigService{
		store:   store,
		sampler: sampler,
		cache:   cache,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Validate checks a candidate weight map: all five factors present, no
// extras, no negatives, sum within tolerance of 1.0. Values are never
// silently coerced; the error carries a normalized suggestion instead.
func (ws *WeightConfigService) Validate(weights map[string]float64) (models.Weights, error) {
	verr := &ValidationError{}

	known := make(map[string]bool, len(models.FactorNames))
	for _, name := range models.FactorNames {
		known[name] = true
		if _, ok := weights[name]; !ok {
			verr.MissingFactors = append(verr.MissingFactors, name)
		}
	}

	var unknown []string
	for name, value := range weights {
		if !known[name] {
			unknown = append(unknown, name)
			continue
		}
		if value < 0 {
			verr.NegativeFactors = append(verr.NegativeFactors, name)
		}
	}
	sort.Strings(unknown)
	verr.UnknownFactors = unknown

	w := models.Weights{
		Impact:    weights[models.FactorImpact],
		Urgency:   weights[models.FactorUrgency],
		Effort:    weights[models.FactorEffort],
		Strategic: weights[models.FactorStrategic],
		Trend:     weights[models.FactorTrend],
	}
	verr.Sum = w.Sum()

	if len(verr.MissingFactors) > 0 || len(verr.UnknownFactors) > 0 ||
		len(verr.NegativeFactors) > 0 || math.Abs(verr.Sum-1.0) > WeightSumTolerance {
		if verr.Sum > 0 && len(verr.NegativeFactors) == 0 {
			n := w.Normalized()
			verr.Suggestion = map[string]float64{
				models.FactorImpact:    n.Impact,
				models.FactorUrgency:   n.Urgency,
				models.FactorEffort:    n.Effort,
				models.FactorStrategic: n.Strategic,
				models.FactorTrend:     n.Trend,
			}
		}
		return models.Weights{}, verr
	}

	return w, nil
}

// Create validates and persists a new named config, optionally activating
// it in the same transaction.
func (ws *WeightConfigService) Create(ctx context.Context, name string, weights map[string]float64, createdBy string, makeActive bool) (*models.WeightConfig, error) {
	w, err := ws.Validate(weights)
	if err != nil {
		return nil, err
	}

	cfg := &models.WeightConfig{
		ID:        uuid.New(),
		Name:      name,
		Weights:   w,
		CreatedBy: createdBy,
		CreatedAt: ws.now().UTC(),
	}

	if err := ws.store.Create(ctx, cfg, makeActive); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, fmt.Errorf("weight config %q: %w", name, ErrDuplicateName)
		}
		return nil, fmt.Errorf("failed to create weight config: %w", err)
	}

	ws.logger.WithFields(logrus.Fields{
		"config_id": cfg.ID,
		"name":      cfg.Name,
		"active":    makeActive,
	}).Info("Weight config created")

	if makeActive {
		ws.invalidatePriorityCache(ctx)
	}

	return cfg, nil
}

// Activate makes the given config the single active one.
func (ws *WeightConfigService) Activate(ctx context.Context, id uuid.UUID) error {
	if err := ws.store.Activate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("weight config %s: %w", id, ErrConfigNotFound)
		}
		return fmt.Errorf("failed to activate weight config: %w", err)
	}

	ws.logger.WithField("config_id", id).Info("Weight config activated")
	ws.invalidatePriorityCache(ctx)
	return nil
}

// List returns all configs, newest first.
func (ws *WeightConfigService) List(ctx context.Context) ([]models.WeightConfig, error) {
	return ws.store.List(ctx)
}

// Active returns the weights to score with: the active config, or the
// configured defaults when none has been activated yet.
func (ws *WeightConfigService) Active(ctx context.Context) (models.Weights, string, error) {
	cfg, err := ws.store.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			d := ws.config.DefaultWeights
			return models.Weights{
				Impact:    d.Impact,
				Urgency:   d.Urgency,
				Effort:    d.Effort,
				Strategic: d.Strategic,
				Trend:     d.Trend,
			}, "default", nil
		}
		return models.Weights{}, "", err
	}
	return cfg.Weights, cfg.Name, nil
}

// PreviewImpact re-totals a sample of stored results under candidate
// weights using the persisted factor sub-scores. No re-classification, no
// writes; the operator sees the deltas before committing anything.
func (ws *WeightConfigService) PreviewImpact(ctx context.Context, weights map[string]float64, sampleSize int) ([]models.PreviewDelta, error) {
	w, err := ws.Validate(weights)
	if err != nil {
		return nil, err
	}

	if sampleSize <= 0 {
		sampleSize = ws.config.PreviewSampleSize
	}

	sample, err := ws.sampler.Sample(ctx, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to sample scored courses: %w", err)
	}

	deltas := make([]models.PreviewDelta, 0, len(sample))
	for _, p := range sample {
		rawNew := p.Breakdown.Factors.WeightedTotal(w)
		newTotal := roundHalfUp(rawNew)
		if newTotal < 1 {
			newTotal = 1
		} else if newTotal > 5 {
			newTotal = 5
		}

		deltas = append(deltas, models.PreviewDelta{
			CourseID:     p.CourseID,
			CurrentTotal: p.Breakdown.Total,
			NewTotal:     newTotal,
			Delta:        newTotal - p.Breakdown.Total,
			RawCurrent:   p.Breakdown.RawTotal,
			RawNew:       rawNew,
		})
	}

	return deltas, nil
}

// invalidatePriorityCache drops every cached priority entry after a weight
// change. SCAN keeps the cursor walk incremental; KEYS would block the
// shared cache while it enumerates.
func (ws *WeightConfigService) invalidatePriorityCache(ctx context.Context) {
	if ws.cache == nil {
		return
	}
	iter := ws.cache.Scan(ctx, 0, "priority:*", 100).Iterator()
	var stale []string
	for iter.Next(ctx) {
		stale = append(stale, iter.Val())
		if len(stale) >= 100 {
			if err := ws.cache.Del(ctx, stale...).Err(); err != nil {
				ws.logger.WithError(err).Warn("Failed to invalidate priority cache")
				return
			}
			stale = stale[:0]
		}
	}
	if err := iter.Err(); err != nil {
		ws.logger.WithError(err).Warn("Failed to scan priority cache keys")
		return
	}
	if len(stale) > 0 {
		if err := ws.cache.Del(ctx, stale...).Err(); err != nil {
			ws.logger.WithError(err).Warn("Failed to invalidate priority cache")
		}
	}
}
