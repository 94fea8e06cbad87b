package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// LocalVideoRepository persists [models.LocalVideo] records. Records are never updated.
type LocalVideoRepository struct {
	q Querier
}

// NewLocalVideoRepository creates a new [LocalVideoRepository] bound to q.
func NewLocalVideoRepository(q Querier) *LocalVideoRepository {
	return &LocalVideoRepository{q: q}
}

// Create inserts lv, generating its ID and creation time when unset.
func (r *LocalVideoRepository) Create(ctx context.Context, lv *models.LocalVideo) error {
	if lv.ID == "" {
		lv.ID = shared.GenerateID()
	}
	if lv.Created.IsZero() {
		lv.Created = time.Now().UTC()
	}

	query := `INSERT INTO local_videos (id, video_id, format, location, created, status) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query, lv.ID, lv.VideoID, lv.Format, lv.Location, lv.Created, lv.Status)
	if err != nil {
		return fmt.Errorf("failed to insert local video: %w", err)
	}
	return nil
}

// FindByFormats returns the local copies of videoID whose format is one of formats.
func (r *LocalVideoRepository) FindByFormats(ctx context.Context, videoID string, formats []models.Format) ([]*models.LocalVideo, error) {
	if len(formats) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(formats)+1)
	args = append(args, videoID)
	for _, f := range formats {
		args = append(args, f)
	}

	query := `
		SELECT id, video_id, format, location, created, status
		FROM local_videos
		WHERE video_id = ? AND format IN (` + placeholders(len(formats)) + `)
		ORDER BY created ASC
	`
	return r.list(ctx, query, args...)
}

// ListByVideo returns every local copy of videoID.
func (r *LocalVideoRepository) ListByVideo(ctx context.Context, videoID string) ([]*models.LocalVideo, error) {
	query := `
		SELECT id, video_id, format, location, created, status
		FROM local_videos
		WHERE video_id = ?
		ORDER BY created ASC
	`
	return r.list(ctx, query, videoID)
}

// ExistsAt reports whether videoID is already recorded at location.
func (r *LocalVideoRepository) ExistsAt(ctx context.Context, videoID, location string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM local_videos WHERE video_id = ? AND location = ?)`
	if err := r.q.QueryRowContext(ctx, query, videoID, location).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query local video: %w", err)
	}
	return exists, nil
}

func (r *LocalVideoRepository) list(ctx context.Context, query string, args ...any) ([]*models.LocalVideo, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query local videos: %w", err)
	}
	defer rows.Close()

	var out []*models.LocalVideo
	for rows.Next() {
		var lv models.LocalVideo
		if err := rows.Scan(&lv.ID, &lv.VideoID, &lv.Format, &lv.Location, &lv.Created, &lv.Status); err != nil {
			return nil, fmt.Errorf("failed to scan local video: %w", err)
		}
		out = append(out, &lv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
