package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/database"
)

type HealthService struct {
	logger *logrus.Logger
	db     *database.Database
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Critical  []string          `json:"critical_failures,omitempty"`
}

func NewHealthService(logger *logrus.Logger, db *database.Database) *HealthService {
	return &HealthService{logger: logger, db: db}
}

func (s *HealthService) CheckHealth() *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	checks := map[string]func() error{
		"postgresql": s.checkPostgreSQL,
		"redis_hot":  s.checkRedisHot,
		"redis_warm": s.checkRedisWarm,
	}

	healthy := true
	for name, check := range checks {
		if err := check(); err != nil {
			status.Services[name] = "unhealthy"
			status.Critical = append(status.Critical, name)
			healthy = false
			s.logger.WithError(err).Errorf("Service %s is unhealthy", name)
		} else {
			status.Services[name] = "healthy"
		}
	}

	if healthy {
		status.Status = "healthy"
	} else {
		status.Status = "unhealthy"
	}

	return status
}

func (s *HealthService) checkPostgreSQL() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.PG.Ping(ctx)
}

func (s *HealthService) checkRedisHot() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Redis.Hot.Ping(ctx).Err()
}

func (s *HealthService) checkRedisWarm() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Redis.Warm.Ping(ctx).Err()
}
