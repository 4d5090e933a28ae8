package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusignal/edusignal/pkg/models"
)

type fakeFeedbackSource struct {
	mu      sync.Mutex
	courses []string
	records map[string][]models.FeedbackRecord
	errFor  map[string]error
}

func (f *fakeFeedbackSource) ListCourses(ctx context.Context) ([]string, error) {
	return f.courses, nil
}

func (f *fakeFeedbackSource) ListByCourse(ctx context.Context, courseID string) ([]models.FeedbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor[courseID]; err != nil {
		return nil, err
	}
	return f.records[courseID], nil
}

type fakePriorityStore struct {
	mu         sync.Mutex
	priorities map[string]*models.CoursePriority
	upsertErr  map[string]error
}

func newFakePriorityStore() *fakePriorityStore {
	return &fakePriorityStore{priorities: make(map[string]*models.CoursePriority)}
}

func (f *fakePriorityStore) Upsert(ctx context.Context, p *models.CoursePriority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertErr[p.CourseID]; err != nil {
		return err
	}
	f.priorities[p.CourseID] = p
	return nil
}

func (f *fakePriorityStore) GetByCourse(ctx context.Context, courseID string) (*models.CoursePriority, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.priorities[courseID]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

func (f *fakePriorityStore) List(ctx context.Context, limit int) ([]models.CoursePriority, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CoursePriority
	for _, p := range f.priorities {
		out = append(out, *p)
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakePublisher) PublishPriorityUpdated(ctx context.Context, p *models.CoursePriority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, p.CourseID)
	return nil
}

func newTestOrchestrator(t *testing.T, source *fakeFeedbackSource, store *fakePriorityStore, publisher priorityPublisher) *PriorityOrchestrator {
	t.Helper()
	logger := testLogger()
	classifier := NewResponseClassifier(logger)
	cfg := testScoringConfig()
	weights := newWeightService(&fakeWeightStore{}, &fakeSampler{})
	return NewPriorityOrchestrator(
		source, store, weights,
		NewFeedbackAggregator(classifier, logger),
		NewScoringEngine(classifier, cfg, logger),
		publisher, nil, nil, cfg, logger,
	)
}

func TestPriorityOrchestrator_RecomputeAll(t *testing.T) {
	source := &fakeFeedbackSource{
		courses: []string{"CS101", "CS201"},
		records: map[string][]models.FeedbackRecord{
			"CS101": {
				makeRecord("CS101", "The exam link is broken", strPtr(models.SeverityCritical), nil),
				makeRecord("CS101", "Cannot access the final quiz", strPtr(models.SeverityHigh), nil),
			},
			"CS201": {
				makeRecord("CS201", "Pretty good course overall", nil, nil),
			},
		},
	}
	store := newFakePriorityStore()
	publisher := &fakePublisher{}
	o := newTestOrchestrator(t, source, store, publisher)

	summary, err := o.RecomputeAll(context.Background(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Updated)
	assert.Equal(t, 0, summary.Errors)

	cs101, err := store.GetByCourse(context.Background(), "CS101")
	require.NoError(t, err)
	assert.Greater(t, cs101.Breakdown.Total, 1)
	assert.Equal(t, 2, cs101.FeedbackCount)
	assert.Equal(t, "default", cs101.WeightsName)

	assert.ElementsMatch(t, []string{"CS101", "CS201"}, publisher.events)
}

func TestPriorityOrchestrator_BatchIsolation(t *testing.T) {
	source := &fakeFeedbackSource{
		courses: []string{"CS101", "CS201", "CS301"},
		records: map[string][]models.FeedbackRecord{
			"CS101": {makeRecord("CS101", "fine", nil, nil)},
			"CS301": {makeRecord("CS301", "fine", nil, nil)},
		},
		errFor: map[string]error{"CS201": errors.New("connection reset")},
	}
	store := newFakePriorityStore()
	o := newTestOrchestrator(t, source, store, nil)

	summary, err := o.RecomputeAll(context.Background(), nil, false)
	require.NoError(t, err)

	// The failing course is counted, the rest of the batch still lands
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Updated)
	assert.Equal(t, 1, summary.Errors)

	_, err = store.GetByCourse(context.Background(), "CS101")
	assert.NoError(t, err)
	_, err = store.GetByCourse(context.Background(), "CS301")
	assert.NoError(t, err)
	_, err = store.GetByCourse(context.Background(), "CS201")
	assert.Error(t, err)
}

func TestPriorityOrchestrator_UpsertFailureIsolated(t *testing.T) {
	source := &fakeFeedbackSource{
		courses: []string{"CS101", "CS201"},
		records: map[string][]models.FeedbackRecord{
			"CS101": {makeRecord("CS101", "fine", nil, nil)},
			"CS201": {makeRecord("CS201", "fine", nil, nil)},
		},
	}
	store := newFakePriorityStore()
	store.upsertErr = map[string]error{"CS201": errors.New("serialization failure")}
	o := newTestOrchestrator(t, source, store, nil)

	summary, err := o.RecomputeAll(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Errors)
}

func TestPriorityOrchestrator_SkipUnchanged(t *testing.T) {
	source := &fakeFeedbackSource{
		courses: []string{"CS101"},
		records: map[string][]models.FeedbackRecord{
			"CS101": {makeRecord("CS101", "fine", nil, nil)},
		},
	}
	store := newFakePriorityStore()
	o := newTestOrchestrator(t, source, store, nil)
	ctx := context.Background()

	first, err := o.RecomputeAll(ctx, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Updated)

	second, err := o.RecomputeAll(ctx, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 1, second.Skipped)

	forced, err := o.RecomputeAll(ctx, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, forced.Updated)
}

func TestPriorityOrchestrator_ExplicitCourseList(t *testing.T) {
	source := &fakeFeedbackSource{
		courses: []string{"CS101", "CS201"},
		records: map[string][]models.FeedbackRecord{
			"CS101": {makeRecord("CS101", "fine", nil, nil)},
			"CS201": {makeRecord("CS201", "fine", nil, nil)},
		},
	}
	store := newFakePriorityStore()
	o := newTestOrchestrator(t, source, store, nil)

	summary, err := o.RecomputeAll(context.Background(), []string{"CS201"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	_, err = store.GetByCourse(context.Background(), "CS101")
	assert.Error(t, err)
}

func TestPriorityOrchestrator_RecomputeCourse(t *testing.T) {
	source := &fakeFeedbackSource{
		records: map[string][]models.FeedbackRecord{
			"CS101": {makeRecord("CS101", "The platform crashes on login", strPtr(models.SeverityHigh), nil)},
		},
	}
	store := newFakePriorityStore()
	o := newTestOrchestrator(t, source, store, nil)

	priority, err := o.RecomputeCourse(context.Background(), "CS101")
	require.NoError(t, err)
	assert.Equal(t, "CS101", priority.CourseID)
	assert.Equal(t, 1, priority.FeedbackCount)
}

func TestPriorityOrchestrator_CourseWithNoFeedback(t *testing.T) {
	source := &fakeFeedbackSource{
		courses: []string{"CS101"},
		records: map[string][]models.FeedbackRecord{},
	}
	store := newFakePriorityStore()
	o := newTestOrchestrator(t, source, store, nil)

	summary, err := o.RecomputeAll(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	priority, err := store.GetByCourse(context.Background(), "CS101")
	require.NoError(t, err)
	assert.Equal(t, 1, priority.Breakdown.Total)
	assert.Equal(t, 0.0, priority.Breakdown.Confidence)
}

func TestPriorityOrchestrator_PublishFailureIsNotFatal(t *testing.T) {
	source := &fakeFeedbackSource{
		courses: []string{"CS101"},
		records: map[string][]models.FeedbackRecord{
			"CS101": {makeRecord("CS101", "fine", nil, nil)},
		},
	}
	store := newFakePriorityStore()
	publisher := &fakePublisher{err: errors.New("broker unavailable")}
	o := newTestOrchestrator(t, source, store, publisher)

	summary, err := o.RecomputeAll(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Errors)
}

func TestPriorityOrchestrator_ListPriorities(t *testing.T) {
	source := &fakeFeedbackSource{
		courses: []string{"CS101", "CS201", "CS301"},
		records: map[string][]models.FeedbackRecord{
			"CS101": {makeRecord("CS101", "fine", nil, nil)},
			"CS201": {makeRecord("CS201", "fine", nil, nil)},
			"CS301": {makeRecord("CS301", "fine", nil, nil)},
		},
	}
	store := newFakePriorityStore()
	o := newTestOrchestrator(t, source, store, nil)
	ctx := context.Background()

	_, err := o.RecomputeAll(ctx, nil, false)
	require.NoError(t, err)

	priorities, err := o.ListPriorities(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, priorities, 2)
}

func TestPriorityOrchestrator_PriorityLevelGaugeResets(t *testing.T) {
	logger := testLogger()
	classifier := NewResponseClassifier(logger)
	cfg := testScoringConfig()
	metrics := NewMetrics()
	store := newFakePriorityStore()
	o := NewPriorityOrchestrator(
		&fakeFeedbackSource{}, store, newWeightService(&fakeWeightStore{}, &fakeSampler{}),
		NewFeedbackAggregator(classifier, logger),
		NewScoringEngine(classifier, cfg, logger),
		nil, nil, metrics, cfg, logger,
	)
	ctx := context.Background()

	store.priorities["CS101"] = &models.CoursePriority{
		CourseID: "CS101", Breakdown: models.ScoreBreakdown{Total: 5},
	}
	store.priorities["CS201"] = &models.CoursePriority{
		CourseID: "CS201", Breakdown: models.ScoreBreakdown{Total: 2},
	}

	_, err := o.ListPriorities(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PriorityLevels.WithLabelValues("5")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PriorityLevels.WithLabelValues("2")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PriorityLevels.WithLabelValues("3")))

	// The level-5 course drops out; its gauge must fall back to zero
	// rather than hold the previous reading.
	delete(store.priorities, "CS101")
	_, err = o.ListPriorities(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PriorityLevels.WithLabelValues("5")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PriorityLevels.WithLabelValues("2")))
}
