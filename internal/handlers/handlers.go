package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/services"
	"github.com/edusignal/edusignal/internal/validation"
)

type Handlers struct {
	Health    *HealthHandler
	Priority  *PriorityHandler
	Weights   *WeightsHandler
	Recompute *RecomputeHandler
}

func New(logger *logrus.Logger, services *services.Services, validator *validation.SchemaValidator) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(logger, services.Health),
		Priority:  NewPriorityHandler(logger, services.Orchestrator),
		Weights:   NewWeightsHandler(logger, services.Weights, validator),
		Recompute: NewRecomputeHandler(logger, services.Orchestrator, validator),
	}
}
