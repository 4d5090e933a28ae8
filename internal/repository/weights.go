package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/pkg/models"
)

// WeightConfigRepository persists weight configurations. The invariant that
// at most one config is active is enforced here: every activation runs as a
// deactivate-all-then-activate-one transaction.
type WeightConfigRepository struct {
	db     DB
	logger *logrus.Logger
}

func NewWeightConfigRepository(db DB, logger *logrus.Logger) *WeightConfigRepository {
	return &WeightConfigRepository{db: db, logger: logger}
}

// GetActive returns the currently active config, or ErrNotFound if none has
// been activated yet.
func (r *WeightConfigRepository) GetActive(ctx context.Context) (*models.WeightConfig, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, weights, created_by, is_active, created_at
		FROM weight_configs
		WHERE is_active = true
	`)

	cfg, err := scanWeightConfig(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active weight config: %w", err)
	}
	return cfg, nil
}

// GetByID returns one config by id.
func (r *WeightConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WeightConfig, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, weights, created_by, is_active, created_at
		FROM weight_configs
		WHERE id = $1
	`, id)

	cfg, err := scanWeightConfig(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get weight config %s: %w", id, err)
	}
	return cfg, nil
}

// List returns all configs, newest first.
func (r *WeightConfigRepository) List(ctx context.Context) ([]models.WeightConfig, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, weights, created_by, is_active, created_at
		FROM weight_configs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list weight configs: %w", err)
	}
	defer rows.Close()

	var configs []models.WeightConfig
	for rows.Next() {
		cfg, err := scanWeightConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weight config: %w", err)
		}
		configs = append(configs, *cfg)
	}

	return configs, rows.Err()
}

// Create inserts a new config. When makeActive is set the insert and the
// deactivation of the previous active config commit in one transaction, so
// there is never a window with zero or two active configs.
func (r *WeightConfigRepository) Create(ctx context.Context, cfg *models.WeightConfig, makeActive bool) error {
	weightsJSON, err := json.Marshal(cfg.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if makeActive {
		if _, err := tx.Exec(ctx, `UPDATE weight_configs SET is_active = false WHERE is_active = true`); err != nil {
			return fmt.Errorf("failed to deactivate current config: %w", err)
		}
	}

	cfg.IsActive = makeActive
	_, err = tx.Exec(ctx, `
		INSERT INTO weight_configs (id, name, weights, created_by, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, cfg.ID, cfg.Name, weightsJSON, cfg.CreatedBy, cfg.IsActive, cfg.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to insert weight config: %w", err)
	}

	return tx.Commit(ctx)
}

// Activate swaps the active flag to the given config atomically.
func (r *WeightConfigRepository) Activate(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE weight_configs SET is_active = false WHERE is_active = true`); err != nil {
		return fmt.Errorf("failed to deactivate current config: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE weight_configs SET is_active = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to activate config %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWeightConfig(row rowScanner) (*models.WeightConfig, error) {
	var cfg models.WeightConfig
	var weightsJSON []byte

	if err := row.Scan(&cfg.ID, &cfg.Name, &weightsJSON, &cfg.CreatedBy,
		&cfg.IsActive, &cfg.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(weightsJSON, &cfg.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}

	return &cfg, nil
}
