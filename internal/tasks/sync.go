package tasks

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/repositories"
	"github.com/desertthunder/youfeed/internal/services"
	"github.com/desertthunder/youfeed/internal/shared"
)

// SuspendedUserName is the placeholder name stored for users whose lookup reported a removed account.
const SuspendedUserName = "(suspended)"

// SyncResult summarizes one walk of a remote feed.
type SyncResult struct {
	Playlist  *models.Playlist
	Pages     int
	Entries   int
	NewVideos int
	NewItems  int
}

// Sync walks every page of the job's remote feed and merges it into the catalog.
//
// Each page commits in its own transaction, so an interrupted walk leaves the catalog valid and
// the next run converges on the same state.
func (e *Engine) Sync(ctx context.Context, job *models.Job, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if e.feed == nil {
		return nil, fmt.Errorf("%w: feed provider not configured", shared.ErrServiceUnavailable)
	}

	store := e.catalog.Store()
	playlist, err := store.Playlists.Ensure(ctx, job.PlaylistID)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With("job", job.Name)
	result := &SyncResult{Playlist: playlist}
	req := services.PageRequest{Kind: job.Type, Resource: job.Resource()}

	var header *services.FeedPage
	for {
		e.sendProgress(progress, syncPageUpdate(job.Name, result.Pages+1, nil))

		page, err := e.feed.FetchPage(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of %s: %w", result.Pages+1, job.PlaylistID, err)
		}
		result.Pages++
		if header == nil {
			header = page
			logger.Info("syncing playlist", "title", page.Title, "owner", page.Author.Name)
		}

		users, err := e.lookupUsers(ctx, page.Entries)
		if err != nil {
			return nil, err
		}

		if err := e.applyPage(ctx, playlist.ID, page, users, result); err != nil {
			return nil, err
		}

		if page.Next == "" {
			break
		}
		req = services.PageRequest{Next: page.Next}
	}

	// The header is only recorded once every page merged.
	if err := e.applyHeader(ctx, playlist, header); err != nil {
		return nil, err
	}
	e.sendProgress(progress, syncPageUpdate(job.Name, result.Pages, playlist))

	logger.Debug("sync finished", "pages", result.Pages, "entries", result.Entries,
		"new_videos", result.NewVideos, "new_items", result.NewItems)
	e.sendProgress(progress, syncDoneUpdate(job.Name, result))
	return result, nil
}

// applyHeader records the playlist title and owner advertised by the feed.
func (e *Engine) applyHeader(ctx context.Context, playlist *models.Playlist, page *services.FeedPage) error {
	return e.catalog.InTx(ctx, func(s *repositories.Store) error {
		if page.Title != "" {
			playlist.Title = page.Title
		}
		if page.Author.Name != "" {
			playlist.UserName = page.Author.Name
		}
		if id := page.Author.UserID; id != "" {
			exists, err := s.Users.Exists(ctx, id)
			if err != nil {
				return err
			}
			if !exists {
				owner := &models.User{ID: id, Username: page.Author.Name, Name: page.Author.Name}
				if err := s.Users.Upsert(ctx, owner); err != nil {
					return err
				}
			}
			playlist.UserID = id
		}
		return s.Playlists.Update(ctx, playlist)
	})
}

// lookupUsers fetches every uploader of entries that the catalog does not know yet.
//
// Runs outside any transaction. A removed account yields a suspended placeholder; other
// failures are logged and leave the user out, so those entries keep no owner until a later run.
func (e *Engine) lookupUsers(ctx context.Context, entries []services.FeedEntry) (map[string]*models.User, error) {
	users := make(map[string]*models.User)
	store := e.catalog.Store()

	for _, entry := range entries {
		id := entry.UploaderID
		if id == "" {
			continue
		}
		if _, seen := users[id]; seen {
			continue
		}

		exists, err := store.Users.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		fu, err := e.feed.FetchUser(ctx, id)
		switch {
		case err == nil:
			users[id] = &models.User{ID: id, Username: fu.Username, Name: fu.Name}
		case errors.Is(err, shared.ErrUserSuspended):
			e.logger.Warn("user account is suspended", "user", id)
			users[id] = &models.User{ID: id, Name: SuspendedUserName, Status: models.UserSuspended}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			e.logger.Warn("failed to look up user", "user", id, "error", err)
			users[id] = nil
		}
	}
	return users, nil
}

// applyPage merges every entry of page in one transaction while holding the playlist's item lock.
//
// Looked-up users are stored with the first entry that credits them, so a placeholder repaired by
// one entry is not overwritten by the next.
func (e *Engine) applyPage(ctx context.Context, playlistID string, page *services.FeedPage, users map[string]*models.User, result *SyncResult) error {
	unlock := e.catalog.LockPlaylist(playlistID)
	defer unlock()

	var newVideos, newItems int
	err := e.catalog.InTx(ctx, func(s *repositories.Store) error {
		pending := maps.Clone(users)
		for _, entry := range page.Entries {
			created, inserted, err := applyEntry(ctx, s, playlistID, entry, pending)
			if err != nil {
				return fmt.Errorf("failed to apply entry %s: %w", entry.VideoID, err)
			}
			if created {
				newVideos++
			}
			if inserted {
				newItems++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	result.Entries += len(page.Entries)
	result.NewVideos += newVideos
	result.NewItems += newItems
	return nil
}

// applyEntry merges one feed entry. Users in pending are stored once and then removed from it.
func applyEntry(ctx context.Context, s *repositories.Store, playlistID string, entry services.FeedEntry, pending map[string]*models.User) (created, inserted bool, err error) {
	if created, err = s.Videos.Ensure(ctx, entry.VideoID); err != nil {
		return false, false, err
	}

	patch := entry.Patch()
	if id := entry.UploaderID; id != "" {
		if u := pending[id]; u != nil {
			if err := s.Users.Upsert(ctx, u); err != nil {
				return false, false, err
			}
			delete(pending, id)
		}
		known, err := repairUser(ctx, s, id, entry.UploaderName)
		if err != nil {
			return false, false, err
		}
		if !known {
			patch.UserID = nil
		}
	}

	if !patch.IsEmpty() {
		if _, err := s.Videos.Upsert(ctx, entry.VideoID, patch); err != nil {
			return false, false, err
		}
	}

	if inserted, err = s.Items.Insert(ctx, playlistID, entry.VideoID, entry.Position); err != nil {
		return false, false, err
	}
	return created, inserted, nil
}

// repairUser replaces the placeholder name of a suspended user with the uploader credit of an entry.
// It reports whether the user is stored at all.
func repairUser(ctx context.Context, s *repositories.Store, id, credit string) (bool, error) {
	u, err := s.Users.Get(ctx, id)
	if errors.Is(err, shared.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if credit != "" && u.Status.Has(models.UserSuspended) && u.Name == SuspendedUserName {
		if err := s.Users.Rename(ctx, id, credit); err != nil {
			return true, err
		}
	}
	return true, nil
}
