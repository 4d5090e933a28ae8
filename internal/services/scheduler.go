package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/config"
)

// Scheduler runs the nightly full recompute on a cron expression.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *PriorityOrchestrator
	logger       *logrus.Logger
}

func NewScheduler(cfg *config.SchedulerConfig, orchestrator *PriorityOrchestrator, logger *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:         cron.New(),
		orchestrator: orchestrator,
		logger:       logger,
	}

	_, err := s.cron.AddFunc(cfg.RecomputeCron, func() {
		summary, err := s.orchestrator.RecomputeAll(context.Background(), nil, false)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled recompute failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"processed": summary.Processed,
			"updated":   summary.Updated,
			"errors":    summary.Errors,
		}).Info("Scheduled recompute finished")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid recompute cron %q: %w", cfg.RecomputeCron, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
