package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// VideoRepository persists [models.Video] records.
//
// Categories, keywords and thumbnails are stored as JSON arrays.
type VideoRepository struct {
	q Querier
}

// NewVideoRepository creates a new [VideoRepository] bound to q.
func NewVideoRepository(q Querier) *VideoRepository {
	return &VideoRepository{q: q}
}

const videoColumns = `id, user_id, title, description, categories, keywords, thumbnails, uploaded, duration, status`

// Get retrieves a video by ID.
func (r *VideoRepository) Get(ctx context.Context, id string) (*models.Video, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query video: %w", err)
	}
	return v, nil
}

// Ensure creates a video with only its ID unless one exists, reporting whether it was created.
func (r *VideoRepository) Ensure(ctx context.Context, id string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `INSERT OR IGNORE INTO videos (id) VALUES (?)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to create video: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// Upsert ensures the video exists and merges the present fields of patch into it.
func (r *VideoRepository) Upsert(ctx context.Context, id string, patch models.VideoPatch) (*models.Video, error) {
	if _, err := r.Ensure(ctx, id); err != nil {
		return nil, err
	}

	v, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !patch.Apply(v) {
		return v, nil
	}
	if err := r.save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// AddStatus sets flags on a video without touching the others.
func (r *VideoRepository) AddStatus(ctx context.Context, id string, flags models.VideoStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE videos SET status = status | ? WHERE id = ?`, flags, id)
	if err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, id))
}

func (r *VideoRepository) save(ctx context.Context, v *models.Video) error {
	categories, err := json.Marshal(orEmpty(v.Categories))
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	keywords, err := json.Marshal(orEmpty(v.Keywords))
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	thumbnails, err := json.Marshal(orEmpty(v.Thumbnails))
	if err != nil {
		return fmt.Errorf("failed to encode thumbnails: %w", err)
	}

	var uploaded sql.NullTime
	if v.Uploaded != nil {
		uploaded = sql.NullTime{Time: v.Uploaded.UTC(), Valid: true}
	}

	query := `
		UPDATE videos
		SET user_id = ?, title = ?, description = ?, categories = ?, keywords = ?, thumbnails = ?,
			uploaded = ?, duration = ?, status = ?
		WHERE id = ?
	`
	res, err := r.q.ExecContext(ctx, query,
		nullString(v.UserID),
		v.Title,
		v.Description,
		string(categories),
		string(keywords),
		string(thumbnails),
		uploaded,
		v.Duration,
		v.Status,
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, v.ID))
}

func (r *VideoRepository) scanRow(s scanner) (*models.Video, error) {
	var (
		v        models.Video
		userID   sql.NullString
		uploaded sql.NullTime
		cats     string
		keys     string
		thumbs   string
	)

	err := s.Scan(&v.ID, &userID, &v.Title, &v.Description, &cats, &keys, &thumbs, &uploaded, &v.Duration, &v.Status)
	if err != nil {
		return nil, err
	}

	v.UserID = userID.String
	if uploaded.Valid {
		t := uploaded.Time.UTC()
		v.Uploaded = &t
	}
	if err := json.Unmarshal([]byte(cats), &v.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories of %s: %w", v.ID, err)
	}
	if err := json.Unmarshal([]byte(keys), &v.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords of %s: %w", v.ID, err)
	}
	if err := json.Unmarshal([]byte(thumbs), &v.Thumbnails); err != nil {
		return nil, fmt.Errorf("failed to decode thumbnails of %s: %w", v.ID, err)
	}
	return &v, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
