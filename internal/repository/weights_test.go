package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusignal/edusignal/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func weightsJSON(t *testing.T, w models.Weights) []byte {
	t.Helper()
	data, err := json.Marshal(w)
	require.NoError(t, err)
	return data
}

func TestWeightConfigRepository_GetActive(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewWeightConfigRepository(mockDB, testLogger())

	t.Run("returns the active config", func(t *testing.T) {
		id := uuid.New()
		created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		w := models.DefaultWeights()

		mockDB.ExpectQuery("SELECT id, name, weights").
			WillReturnRows(pgxmock.NewRows(
				[]string{"id", "name", "weights", "created_by", "is_active", "created_at"}).
				AddRow(id, "term-start", weightsJSON(t, w), "ops", true, created))

		cfg, err := repo.GetActive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, id, cfg.ID)
		assert.Equal(t, "term-start", cfg.Name)
		assert.True(t, cfg.IsActive)
		assert.InDelta(t, 0.35, cfg.Weights.Impact, 0.001)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("no active config maps to ErrNotFound", func(t *testing.T) {
		mockDB.ExpectQuery("SELECT id, name, weights").
			WillReturnRows(pgxmock.NewRows(
				[]string{"id", "name", "weights", "created_by", "is_active", "created_at"}))

		_, err := repo.GetActive(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestWeightConfigRepository_Create(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewWeightConfigRepository(mockDB, testLogger())

	cfg := &models.WeightConfig{
		ID:        uuid.New(),
		Name:      "urgency-heavy",
		Weights:   models.DefaultWeights(),
		CreatedBy: "ops",
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("create inactive skips the deactivate", func(t *testing.T) {
		mockDB.ExpectBegin()
		mockDB.ExpectExec("INSERT INTO weight_configs").
			WithArgs(cfg.ID, cfg.Name, weightsJSON(t, cfg.Weights), cfg.CreatedBy, false, cfg.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockDB.ExpectCommit()

		require.NoError(t, repo.Create(context.Background(), cfg, false))
		assert.False(t, cfg.IsActive)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("create active deactivates the previous config in the same tx", func(t *testing.T) {
		mockDB.ExpectBegin()
		mockDB.ExpectExec("UPDATE weight_configs SET is_active = false").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockDB.ExpectExec("INSERT INTO weight_configs").
			WithArgs(cfg.ID, cfg.Name, weightsJSON(t, cfg.Weights), cfg.CreatedBy, true, cfg.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockDB.ExpectCommit()

		require.NoError(t, repo.Create(context.Background(), cfg, true))
		assert.True(t, cfg.IsActive)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("unique violation maps to ErrDuplicateName", func(t *testing.T) {
		mockDB.ExpectBegin()
		mockDB.ExpectExec("INSERT INTO weight_configs").
			WithArgs(cfg.ID, cfg.Name, weightsJSON(t, cfg.Weights), cfg.CreatedBy, false, cfg.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "weight_configs_name_key"})
		mockDB.ExpectRollback()

		err := repo.Create(context.Background(), cfg, false)
		assert.ErrorIs(t, err, ErrDuplicateName)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestWeightConfigRepository_Activate(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewWeightConfigRepository(mockDB, testLogger())
	id := uuid.New()

	t.Run("swaps the active flag atomically", func(t *testing.T) {
		mockDB.ExpectBegin()
		mockDB.ExpectExec("UPDATE weight_configs SET is_active = false").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockDB.ExpectExec("UPDATE weight_configs SET is_active = true").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockDB.ExpectCommit()

		require.NoError(t, repo.Activate(context.Background(), id))
		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("unknown id rolls back with ErrNotFound", func(t *testing.T) {
		mockDB.ExpectBegin()
		mockDB.ExpectExec("UPDATE weight_configs SET is_active = false").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockDB.ExpectExec("UPDATE weight_configs SET is_active = true").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockDB.ExpectRollback()

		err := repo.Activate(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})
}
