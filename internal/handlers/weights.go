package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/services"
	"github.com/edusignal/edusignal/internal/validation"
	"github.com/edusignal/edusignal/pkg/models"
)

type WeightsHandler struct {
	logger    *logrus.Logger
	weights   *services.WeightConfigService
	validator *validation.SchemaValidator
	validate  *validator.Validate
}

func NewWeightsHandler(logger *logrus.Logger, weights *services.WeightConfigService, schemas *validation.SchemaValidator) *WeightsHandler {
	return &WeightsHandler{
		logger:    logger,
		weights:   weights,
		validator: schemas,
		validate:  validator.New(),
	}
}

// List returns all weight configs, newest first.
// GET /api/v1/weights
func (h *WeightsHandler) List(c *gin.Context) {
	configs, err := h.weights.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list weight configs")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "LIST_FAILED",
				"message": "Failed to list weight configs",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"configs": configs, "count": len(configs)})
}

// Create validates and stores a new weight config.
// POST /api/v1/weights
func (h *WeightsHandler) Create(c *gin.Context) {
	var req models.WeightConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	if result := h.validator.ValidateWeightConfig(req); !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "SCHEMA_VALIDATION_FAILED",
				"message": "Request does not match the weight config schema",
				"details": result.Errors,
			},
		})
		return
	}

	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = c.GetString("user")
	}

	cfg, err := h.weights.Create(c.Request.Context(), req.Name, req.Weights, createdBy, req.MakeActive)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cfg)
}

// Activate makes one config the single active one.
// POST /api/v1/weights/:id/activate
func (h *WeightsHandler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Config id must be a UUID",
			},
		})
		return
	}

	if err := h.weights.Activate(c.Request.Context(), id); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activated": id})
}

// Preview reports score deltas under candidate weights without persisting
// anything.
// POST /api/v1/weights/preview
func (h *WeightsHandler) Preview(c *gin.Context) {
	var req models.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	if result := h.validator.ValidatePreview(req); !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "SCHEMA_VALIDATION_FAILED",
				"message": "Request does not match the preview schema",
				"details": result.Errors,
			},
		})
		return
	}

	deltas, err := h.weights.PreviewImpact(c.Request.Context(), req.Weights, req.SampleSize)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deltas": deltas, "count": len(deltas)})
}

func (h *WeightsHandler) respondServiceError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": gin.H{
				"code":    "INVALID_WEIGHTS",
				"message": verr.Error(),
				"details": verr,
			},
		})
	case errors.Is(err, services.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{
			"error": gin.H{
				"code":    "DUPLICATE_NAME",
				"message": "A weight config with this name already exists",
			},
		})
	case errors.Is(err, services.ErrConfigNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Weight config not found",
			},
		})
	default:
		h.logger.WithError(err).Error("Weight config operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Weight config operation failed",
			},
		})
	}
}
