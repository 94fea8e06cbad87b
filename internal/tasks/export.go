package tasks

import (
	"context"
	"errors"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// PlaylistView collects the catalog state of a job's playlist without touching the network.
//
// Each entry carries the best local file for the job's lookup table, if any.
func (e *Engine) PlaylistView(ctx context.Context, job *models.Job) (*models.PlaylistExport, error) {
	settings, err := e.settings(ctx, job)
	if err != nil {
		return nil, err
	}

	store := e.catalog.Store()
	playlist, err := store.Playlists.Get(ctx, job.PlaylistID)
	if err != nil {
		return nil, err
	}
	items, err := store.Items.List(ctx, job.PlaylistID)
	if err != nil {
		return nil, err
	}

	export := &models.PlaylistExport{Playlist: *playlist}
	names := make(map[string]string)
	for _, item := range items {
		if !job.Range.Contains(item.Index) {
			continue
		}

		video, err := store.Videos.Get(ctx, item.VideoID)
		if err != nil {
			return nil, err
		}

		creator, ok := names[video.UserID]
		if !ok && video.UserID != "" {
			u, err := store.Users.Get(ctx, video.UserID)
			if err != nil && !errors.Is(err, shared.ErrUserNotFound) {
				return nil, err
			}
			if u != nil {
				creator = u.Name
			}
			names[video.UserID] = creator
		}

		locals, err := store.LocalVideos.FindByFormats(ctx, video.ID, settings.Formats)
		if err != nil {
			return nil, err
		}

		export.Entries = append(export.Entries, models.ExportEntry{
			Index:   item.Index,
			Video:   *video,
			Creator: creator,
			Local:   bestLocal(locals, settings.Formats),
		})
	}
	return export, nil
}
