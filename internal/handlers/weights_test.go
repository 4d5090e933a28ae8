package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusignal/edusignal/internal/config"
	"github.com/edusignal/edusignal/internal/repository"
	"github.com/edusignal/edusignal/internal/services"
	"github.com/edusignal/edusignal/internal/validation"
	"github.com/edusignal/edusignal/pkg/models"
)

type fakeWeightStore struct {
	configs []models.WeightConfig
}

func (s *fakeWeightStore) GetActive(ctx context.Context) (*models.WeightConfig, error) {
	for i := range s.configs {
		if s.configs[i].IsActive {
			cfg := s.configs[i]
			return &cfg, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeWeightStore) GetByID(ctx context.Context, id uuid.UUID) (*models.WeightConfig, error) {
	for i := range s.configs {
		if s.configs[i].ID == id {
			cfg := s.configs[i]
			return &cfg, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeWeightStore) List(ctx context.Context) ([]models.WeightConfig, error) {
	return s.configs, nil
}

func (s *fakeWeightStore) Create(ctx context.Context, cfg *models.WeightConfig, makeActive bool) error {
	for i := range s.configs {
		if s.configs[i].Name == cfg.Name {
			return repository.ErrDuplicateName
		}
	}
	if makeActive {
		for i := range s.configs {
			s.configs[i].IsActive = false
		}
	}
	cfg.IsActive = makeActive
	s.configs = append(s.configs, *cfg)
	return nil
}

func (s *fakeWeightStore) Activate(ctx context.Context, id uuid.UUID) error {
	for i := range s.configs {
		if s.configs[i].ID == id {
			for j := range s.configs {
				s.configs[j].IsActive = s.configs[j].ID == id
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeSampler struct {
	priorities []models.CoursePriority
}

func (s *fakeSampler) Sample(ctx context.Context, limit int) ([]models.CoursePriority, error) {
	if limit < len(s.priorities) {
		return s.priorities[:limit], nil
	}
	return s.priorities, nil
}

func newWeightsRouter(t *testing.T, store *fakeWeightStore, sampler *fakeSampler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &config.ScoringConfig{PreviewSampleSize: 20}
	service := services.NewWeightConfigService(store, sampler, nil, cfg, logger)

	validator, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	handler := NewWeightsHandler(logger, service, validator)

	router := gin.New()
	router.GET("/api/v1/weights", handler.List)
	router.POST("/api/v1/weights", handler.Create)
	router.POST("/api/v1/weights/:id/activate", handler.Activate)
	router.POST("/api/v1/weights/preview", handler.Preview)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, _ := http.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWeightsHandler_Create(t *testing.T) {
	validBody := map[string]any{
		"name": "term-start",
		"weights": map[string]float64{
			"impact": 0.35, "urgency": 0.30, "effort": 0.20, "strategic": 0.10, "trend": 0.05,
		},
		"make_active": true,
	}

	t.Run("valid config is stored", func(t *testing.T) {
		store := &fakeWeightStore{}
		router := newWeightsRouter(t, store, &fakeSampler{})

		w := postJSON(t, router, "/api/v1/weights", validBody)

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, store.configs, 1)
		assert.True(t, store.configs[0].IsActive)
	})

	t.Run("invalid weight sum returns 422 with details", func(t *testing.T) {
		router := newWeightsRouter(t, &fakeWeightStore{}, &fakeSampler{})

		w := postJSON(t, router, "/api/v1/weights", map[string]any{
			"name": "bad",
			"weights": map[string]float64{
				"impact": 0.5, "urgency": 0.5, "effort": 0.5, "strategic": 0.5, "trend": 0.5,
			},
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_WEIGHTS")
		assert.Contains(t, w.Body.String(), "suggestion")
	})

	t.Run("missing factor rejected by schema", func(t *testing.T) {
		router := newWeightsRouter(t, &fakeWeightStore{}, &fakeSampler{})

		w := postJSON(t, router, "/api/v1/weights", map[string]any{
			"name":    "partial",
			"weights": map[string]float64{"impact": 1.0},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "SCHEMA_VALIDATION_FAILED")
	})

	t.Run("duplicate name returns 409", func(t *testing.T) {
		store := &fakeWeightStore{}
		router := newWeightsRouter(t, store, &fakeSampler{})

		first := postJSON(t, router, "/api/v1/weights", validBody)
		require.Equal(t, http.StatusCreated, first.Code)

		second := postJSON(t, router, "/api/v1/weights", validBody)
		assert.Equal(t, http.StatusConflict, second.Code)
		assert.Contains(t, second.Body.String(), "DUPLICATE_NAME")
	})
}

func TestWeightsHandler_Activate(t *testing.T) {
	t.Run("unknown id returns 404", func(t *testing.T) {
		router := newWeightsRouter(t, &fakeWeightStore{}, &fakeSampler{})

		req, _ := http.NewRequest("POST", "/api/v1/weights/"+uuid.NewString()+"/activate", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		router := newWeightsRouter(t, &fakeWeightStore{}, &fakeSampler{})

		req, _ := http.NewRequest("POST", "/api/v1/weights/not-a-uuid/activate", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_ID")
	})

	t.Run("existing id is activated", func(t *testing.T) {
		id := uuid.New()
		store := &fakeWeightStore{configs: []models.WeightConfig{
			{ID: id, Name: "existing", Weights: models.DefaultWeights()},
		}}
		router := newWeightsRouter(t, store, &fakeSampler{})

		req, _ := http.NewRequest("POST", "/api/v1/weights/"+id.String()+"/activate", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, store.configs[0].IsActive)
	})
}

func TestWeightsHandler_Preview(t *testing.T) {
	sampler := &fakeSampler{priorities: []models.CoursePriority{
		{
			CourseID: "CS101",
			Breakdown: models.ScoreBreakdown{
				Factors:  models.FactorScores{Impact: 5, Urgency: 5, Effort: 3, Strategic: 3, Trend: 3},
				RawTotal: 4.35,
				Total:    4,
			},
		},
	}}
	router := newWeightsRouter(t, &fakeWeightStore{}, sampler)

	w := postJSON(t, router, "/api/v1/weights/preview", map[string]any{
		"weights": map[string]float64{
			"impact": 0, "urgency": 1, "effort": 0, "strategic": 0, "trend": 0,
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Deltas []models.PreviewDelta `json:"deltas"`
		Count  int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, 5, resp.Deltas[0].NewTotal)
	assert.Equal(t, 1, resp.Deltas[0].Delta)
}

func TestWeightsHandler_List(t *testing.T) {
	store := &fakeWeightStore{configs: []models.WeightConfig{
		{ID: uuid.New(), Name: "a", Weights: models.DefaultWeights(), IsActive: true},
		{ID: uuid.New(), Name: "b", Weights: models.DefaultWeights()},
	}}
	router := newWeightsRouter(t, store, &fakeSampler{})

	req, _ := http.NewRequest("GET", "/api/v1/weights", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}
