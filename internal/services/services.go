package services

import (
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/config"
	"github.com/edusignal/edusignal/internal/database"
	"github.com/edusignal/edusignal/internal/messaging"
	"github.com/edusignal/edusignal/internal/repository"
)

type Services struct {
	Health       *HealthService
	Classifier   *ResponseClassifier
	Aggregator   *FeedbackAggregator
	Engine       *ScoringEngine
	Weights      *WeightConfigService
	Orchestrator *PriorityOrchestrator
	RateLimit    *RateLimitService
	MessageBus   *messaging.MessageBus
	Metrics      *Metrics
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	healthService := NewHealthService(logger, db)
	metrics := NewMetrics()

	feedbackRepo := repository.NewFeedbackRepository(db.PG, logger)
	weightRepo := repository.NewWeightConfigRepository(db.PG, logger)
	priorityRepo := repository.NewPriorityRepository(db.PG, logger)

	classifier := NewResponseClassifier(logger)
	aggregator := NewFeedbackAggregator(classifier, logger)
	engine := NewScoringEngine(classifier, &cfg.Scoring, logger)
	weights := NewWeightConfigService(weightRepo, priorityRepo, db.Redis.Warm, &cfg.Scoring, logger)
	rateLimit := NewRateLimitService(&cfg.Auth.RateLimit, db.Redis.Hot, logger)

	var messageBus *messaging.MessageBus
	if cfg.Kafka.Enabled {
		var err error
		messageBus, err = messaging.NewMessageBus(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	var publisher priorityPublisher
	if messageBus != nil {
		publisher = messageBus
	}

	orchestrator := NewPriorityOrchestrator(
		feedbackRepo, priorityRepo, weights, aggregator, engine,
		publisher, db.Redis.Warm, metrics, &cfg.Scoring, logger,
	)

	return &Services{
		Health:       healthService,
		Classifier:   classifier,
		Aggregator:   aggregator,
		Engine:       engine,
		Weights:      weights,
		Orchestrator: orchestrator,
		RateLimit:    rateLimit,
		MessageBus:   messageBus,
		Metrics:      metrics,
	}, nil
}
