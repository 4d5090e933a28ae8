package services

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/edusignal/edusignal/pkg/models"
)

// GroupKeyFunc derives the grouping key for one record. The default groups
// by course.
type GroupKeyFunc func(models.FeedbackRecord) string

// GroupByCourse is the default grouping key.
func GroupByCourse(rec models.FeedbackRecord) string {
	return rec.CourseID
}

// FeedbackAggregator partitions feedback records into groups and computes
// roll-up statistics over them.
type FeedbackAggregator struct {
	classifier *ResponseClassifier
	logger     *logrus.Logger
}

func NewFeedbackAggregator(classifier *ResponseClassifier, logger *logrus.Logger) *FeedbackAggregator {
	return &FeedbackAggregator{classifier: classifier, logger: logger}
}

// Group partitions records by keyFn. Groups come back sorted by key so a
// recompute visits courses in a stable order; record order within a group
// carries no meaning for scoring.
func (fa *FeedbackAggregator) Group(records []models.FeedbackRecord, keyFn GroupKeyFunc) []models.FeedbackGroup {
	if keyFn == nil {
		keyFn = GroupByCourse
	}

	byKey := make(map[string][]models.FeedbackRecord)
	for _, rec := range records {
		key := keyFn(rec)
		byKey[key] = append(byKey[key], rec)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groups := make([]models.FeedbackGroup, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, models.FeedbackGroup{Key: key, Records: byKey[key]})
	}

	return groups
}

// Summarize computes roll-up statistics for one group. Null ratings are
// excluded from the average; category and theme counts come from running
// the classifier over every record's text.
func (fa *FeedbackAggregator) Summarize(group models.FeedbackGroup) models.GroupSummary {
	summary := models.GroupSummary{
		Count:          len(group.Records),
		CategoryCounts: make(map[string]int),
		ThemeCounts:    make(map[string]int),
	}

	var ratings []float64
	for _, rec := range group.Records {
		if rec.Rating != nil {
			ratings = append(ratings, *rec.Rating)
		}

		if rec.CreatedAt != nil {
			if summary.LastActivity == nil || rec.CreatedAt.After(*summary.LastActivity) {
				t := *rec.CreatedAt
				summary.LastActivity = &t
			}
		}

		category := fa.classifier.Categorize(rec.Text, "")
		summary.CategoryCounts[category]++

		analysis := fa.classifier.Analyze(rec.Text)
		if analysis.IsCritical {
			summary.CriticalCount++
		}
		if analysis.HasSuggestion {
			summary.SuggestionCount++
		}
		for _, theme := range analysis.Themes {
			summary.ThemeCounts[theme]++
		}
	}

	if len(ratings) > 0 {
		avg := stat.Mean(ratings, nil)
		summary.AvgRating = &avg
	}

	return summary
}
