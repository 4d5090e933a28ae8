package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/repository"
	"github.com/edusignal/edusignal/internal/services"
)

type PriorityHandler struct {
	logger       *logrus.Logger
	orchestrator *services.PriorityOrchestrator
}

func NewPriorityHandler(logger *logrus.Logger, orchestrator *services.PriorityOrchestrator) *PriorityHandler {
	return &PriorityHandler{
		logger:       logger,
		orchestrator: orchestrator,
	}
}

// List returns stored course priorities ranked by score.
// GET /api/v1/priorities?limit=50
func (h *PriorityHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_LIMIT",
					"message": "limit must be an integer between 1 and 500",
				},
			})
			return
		}
		limit = parsed
	}

	priorities, err := h.orchestrator.ListPriorities(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list priorities")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "LIST_FAILED",
				"message": "Failed to list course priorities",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"priorities": priorities,
		"count":      len(priorities),
	})
}

// Get returns one course's priority.
// GET /api/v1/priorities/:courseId
func (h *PriorityHandler) Get(c *gin.Context) {
	courseID := c.Param("courseId")

	priority, err := h.orchestrator.GetPriority(c.Request.Context(), courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "No priority computed for this course",
				},
			})
			return
		}
		h.logger.WithError(err).WithField("course_id", courseID).Error("Failed to get priority")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "GET_FAILED",
				"message": "Failed to get course priority",
			},
		})
		return
	}

	c.JSON(http.StatusOK, priority)
}
