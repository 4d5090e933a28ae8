package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/services"
	"github.com/edusignal/edusignal/internal/validation"
	"github.com/edusignal/edusignal/pkg/models"
)

type RecomputeHandler struct {
	logger       *logrus.Logger
	orchestrator *services.PriorityOrchestrator
	validator    *validation.SchemaValidator
}

func NewRecomputeHandler(logger *logrus.Logger, orchestrator *services.PriorityOrchestrator, validator *validation.SchemaValidator) *RecomputeHandler {
	return &RecomputeHandler{
		logger:       logger,
		orchestrator: orchestrator,
		validator:    validator,
	}
}

// Run recomputes priorities for the requested courses, or for every course
// with feedback when none are named. The batch runs synchronously within
// the request deadline.
// POST /api/v1/recompute
func (h *RecomputeHandler) Run(c *gin.Context) {
	var req models.RecomputeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_REQUEST",
					"message": err.Error(),
				},
			})
			return
		}

		if result := h.validator.ValidateRecompute(req); !result.Valid {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "SCHEMA_VALIDATION_FAILED",
					"message": "Request does not match the recompute schema",
					"details": result.Errors,
				},
			})
			return
		}
	}

	summary, err := h.orchestrator.RecomputeAll(c.Request.Context(), req.CourseIDs, req.ForceRefresh)
	if err != nil {
		h.logger.WithError(err).Error("Recompute batch failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMPUTE_FAILED",
				"message": "Recompute batch failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
