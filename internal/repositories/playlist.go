package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// PlaylistRepository persists [models.Playlist] records.
type PlaylistRepository struct {
	q Querier
}

// NewPlaylistRepository creates a new [PlaylistRepository] bound to q.
func NewPlaylistRepository(q Querier) *PlaylistRepository {
	return &PlaylistRepository{q: q}
}

// Get retrieves a playlist by ID.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	query := `SELECT id, title, user_id, user_name, url, summary FROM playlists WHERE id = ?`

	p, err := r.scanRow(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}
	return p, nil
}

// Ensure returns the playlist with id, creating an empty one first if needed.
func (r *PlaylistRepository) Ensure(ctx context.Context, id string) (*models.Playlist, error) {
	if _, err := r.q.ExecContext(ctx, `INSERT OR IGNORE INTO playlists (id) VALUES (?)`, id); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	return r.Get(ctx, id)
}

// Update stores the metadata of an existing playlist.
func (r *PlaylistRepository) Update(ctx context.Context, p *models.Playlist) error {
	query := `
		UPDATE playlists
		SET title = ?, user_id = ?, user_name = ?, url = ?, summary = ?
		WHERE id = ?
	`
	res, err := r.q.ExecContext(ctx, query, p.Title, nullString(p.UserID), p.UserName, p.URL, p.Summary, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, p.ID))
}

// List returns every playlist ordered by ID.
func (r *PlaylistRepository) List(ctx context.Context) ([]*models.Playlist, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, title, user_id, user_name, url, summary FROM playlists ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

func (r *PlaylistRepository) scanRow(s scanner) (*models.Playlist, error) {
	var (
		p      models.Playlist
		userID sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Title, &userID, &p.UserName, &p.URL, &p.Summary); err != nil {
		return nil, err
	}
	p.UserID = userID.String
	return &p, nil
}

// PlaylistItemRepository persists the ordered membership of videos in playlists.
type PlaylistItemRepository struct {
	q Querier
}

// NewPlaylistItemRepository creates a new [PlaylistItemRepository] bound to q.
func NewPlaylistItemRepository(q Querier) *PlaylistItemRepository {
	return &PlaylistItemRepository{q: q}
}

// Has reports whether videoID is already an item of playlistID.
func (r *PlaylistItemRepository) Has(ctx context.Context, playlistID, videoID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM playlist_items WHERE playlist_id = ? AND video_id = ?)`
	if err := r.q.QueryRowContext(ctx, query, playlistID, videoID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query playlist item: %w", err)
	}
	return exists, nil
}

// Insert adds videoID to playlistID unless the pair already exists, in which case it returns false.
//
// A nil index appends after the current maximum (0 for an empty playlist). An explicit index that is
// already taken shifts that item and every later one up by one before inserting.
func (r *PlaylistItemRepository) Insert(ctx context.Context, playlistID, videoID string, index *int) (bool, error) {
	exists, err := r.Has(ctx, playlistID, videoID)
	if err != nil || exists {
		return false, err
	}

	var position int
	if index == nil {
		if position, err = r.nextIndex(ctx, playlistID); err != nil {
			return false, err
		}
	} else {
		position = *index
		if err := r.shiftFrom(ctx, playlistID, position); err != nil {
			return false, err
		}
	}

	query := `INSERT INTO playlist_items (playlist_id, position, video_id) VALUES (?, ?, ?)`
	if _, err := r.q.ExecContext(ctx, query, playlistID, position, videoID); err != nil {
		return false, fmt.Errorf("failed to insert playlist item: %w", err)
	}
	return true, nil
}

func (r *PlaylistItemRepository) nextIndex(ctx context.Context, playlistID string) (int, error) {
	var last sql.NullInt64
	query := `SELECT MAX(position) FROM playlist_items WHERE playlist_id = ?`
	if err := r.q.QueryRowContext(ctx, query, playlistID).Scan(&last); err != nil {
		return 0, fmt.Errorf("failed to query playlist length: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return int(last.Int64) + 1, nil
}

// shiftFrom moves every item at or after position up by one, highest first so the primary key never collides.
func (r *PlaylistItemRepository) shiftFrom(ctx context.Context, playlistID string, position int) error {
	var taken bool
	check := `SELECT EXISTS(SELECT 1 FROM playlist_items WHERE playlist_id = ? AND position = ?)`
	if err := r.q.QueryRowContext(ctx, check, playlistID, position).Scan(&taken); err != nil {
		return fmt.Errorf("failed to query playlist position: %w", err)
	}
	if !taken {
		return nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT position FROM playlist_items WHERE playlist_id = ? AND position >= ? ORDER BY position DESC`,
		playlistID, position)
	if err != nil {
		return fmt.Errorf("failed to query playlist positions: %w", err)
	}

	var positions []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan playlist position: %w", err)
		}
		positions = append(positions, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	update := `UPDATE playlist_items SET position = position + 1 WHERE playlist_id = ? AND position = ?`
	for _, p := range positions {
		if _, err := r.q.ExecContext(ctx, update, playlistID, p); err != nil {
			return fmt.Errorf("failed to shift playlist item %d: %w", p, err)
		}
	}
	return nil
}

// List returns the items of playlistID ordered by index.
func (r *PlaylistItemRepository) List(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	query := `SELECT playlist_id, position, video_id FROM playlist_items WHERE playlist_id = ? ORDER BY position ASC`
	rows, err := r.q.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist items: %w", err)
	}
	defer rows.Close()

	var items []models.PlaylistItem
	for rows.Next() {
		var it models.PlaylistItem
		if err := rows.Scan(&it.PlaylistID, &it.Index, &it.VideoID); err != nil {
			return nil, fmt.Errorf("failed to scan playlist item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// Count returns the number of items in playlistID.
func (r *PlaylistItemRepository) Count(ctx context.Context, playlistID string) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlist_items WHERE playlist_id = ?`, playlistID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count playlist items: %w", err)
	}
	return n, nil
}
