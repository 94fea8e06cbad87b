package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// UserRepository persists [models.User] records.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new [UserRepository] bound to q.
func NewUserRepository(q Querier) *UserRepository {
	return &UserRepository{q: q}
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, username, name, status FROM users WHERE id = ?`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id), id)
}

// Exists reports whether a user with id is stored.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query user: %w", err)
	}
	return exists, nil
}

// Upsert inserts the user or updates the stored record in place.
//
// Empty username or name values never overwrite stored ones; status is always replaced.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id is empty", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO users (id, username, name, status) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = CASE WHEN excluded.username != '' THEN excluded.username ELSE users.username END,
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE users.name END,
			status = excluded.status
	`
	if _, err := r.q.ExecContext(ctx, query, u.ID, u.Username, u.Name, u.Status); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// Rename replaces the display name of an existing user.
func (r *UserRepository) Rename(ctx context.Context, id, name string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename user: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id))
}

// List returns every user ordered by ID.
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, username, name, status FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

func (r *UserRepository) scanOne(row *sql.Row, id string) (*models.User, error) {
	u, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) scanRow(s scanner) (*models.User, error) {
	var u models.User
	if err := s.Scan(&u.ID, &u.Username, &u.Name, &u.Status); err != nil {
		return nil, err
	}
	return &u, nil
}
