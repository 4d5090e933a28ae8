package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the scoring pipeline.
type Metrics struct {
	CoursesScored    prometheus.Counter
	CoursesFailed    prometheus.Counter
	CoursesSkipped   prometheus.Counter
	RecomputeRuns    prometheus.Counter
	RecomputeSeconds prometheus.Histogram
	PriorityLevels   *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		CoursesScored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "edusignal_courses_scored_total",
			Help: "Courses successfully scored and upserted",
		}),
		CoursesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "edusignal_courses_failed_total",
			Help: "Courses that failed during recompute",
		}),
		CoursesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "edusignal_courses_skipped_total",
			Help: "Courses skipped because nothing changed",
		}),
		RecomputeRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "edusignal_recompute_runs_total",
			Help: "Recompute batches executed",
		}),
		RecomputeSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "edusignal_recompute_duration_seconds",
			Help:    "Wall time of recompute batches",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		PriorityLevels: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "edusignal_priority_level_courses",
			Help: "Courses currently at each priority level",
		}, []string{"level"}),
	}
}
