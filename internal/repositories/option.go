package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// OptionRepository persists [models.Option] key/value settings.
type OptionRepository struct {
	q Querier
}

// NewOptionRepository creates a new [OptionRepository] bound to q.
func NewOptionRepository(q Querier) *OptionRepository {
	return &OptionRepository{q: q}
}

// Lookup returns the value stored for key and whether it was present.
func (r *OptionRepository) Lookup(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.q.QueryRowContext(ctx, `SELECT value FROM options WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query option: %w", err)
	}
	return value, true, nil
}

// Get returns the value stored for key or [shared.ErrOptionNotFound].
func (r *OptionRepository) Get(ctx context.Context, key string) (string, error) {
	value, ok, err := r.Lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrOptionNotFound, key)
	}
	return value, nil
}

// Set stores value under key. Read-only options are refused with [shared.ErrProtectedOption].
func (r *OptionRepository) Set(ctx context.Context, key, value string) error {
	if models.IsReadOnlyOption(key) {
		return fmt.Errorf("%w: %s", shared.ErrProtectedOption, key)
	}
	return r.put(ctx, key, value)
}

// SetDefault stores value under key only when key is unset.
func (r *OptionRepository) SetDefault(ctx context.Context, key, value string) error {
	if _, err := r.q.ExecContext(ctx, `INSERT OR IGNORE INTO options (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("failed to seed option: %w", err)
	}
	return nil
}

// List returns every option ordered by key.
func (r *OptionRepository) List(ctx context.Context) ([]models.Option, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT key, value FROM options ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	var opts []models.Option
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.Key, &o.Value); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		opts = append(opts, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return opts, nil
}

func (r *OptionRepository) put(ctx context.Context, key, value string) error {
	query := `INSERT INTO options (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := r.q.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to store option: %w", err)
	}
	return nil
}
