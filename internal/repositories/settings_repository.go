package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finportal/internal/models"
)

type SettingsRepository interface {
	List(ctx context.Context, category string) ([]*models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, s *models.Setting) error
}

type settingsRepository struct {
	DB *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{DB: db}
}

// List returns all settings, or only one category when category is non-empty.
func (r *settingsRepository) List(ctx context.Context, category string) ([]*models.Setting, error) {
	q := `SELECT key, value, COALESCE(category,''), COALESCE(type,'string'), updated_at FROM settings`
	args := []any{}
	if category != "" {
		q += ` WHERE category = $1`
		args = append(args, category)
	}
	q += ` ORDER BY category, key`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []*models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Category, &s.Type, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *settingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	const q = `SELECT key, value, COALESCE(category,''), COALESCE(type,'string'), updated_at FROM settings WHERE key = $1`
	var s models.Setting
	if err := r.DB.QueryRowContext(ctx, q, key).Scan(&s.Key, &s.Value, &s.Category, &s.Type, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &s, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *models.Setting) error {
	const q = `
		INSERT INTO settings (key, value, category, type, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, category = EXCLUDED.category, type = EXCLUDED.type, updated_at = NOW()
		RETURNING updated_at
	`
	if err := r.DB.QueryRowContext(ctx, q, s.Key, s.Value, s.Category, s.Type).Scan(&s.UpdatedAt); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}
