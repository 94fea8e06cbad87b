package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/repositories"
	"github.com/desertthunder/youfeed/internal/shared"
)

// LegacyJobStatus flags the jobs synthesized by an import: regenerate the manifest once, never download.
const LegacyJobStatus = models.JobNoDownload | models.JobRunOnce | models.JobLegacyImport

// LegacyPlaylist is one record of a legacy export directory.
type LegacyPlaylist struct {
	PlaylistID string        `json:"playlist_id"`
	Title      string        `json:"title"`
	Author     string        `json:"author"`
	AuthorID   string        `json:"author_id"`
	Videos     []LegacyVideo `json:"videos"`
}

// LegacyVideo is a video entry of a [LegacyPlaylist]. Location and Format describe an already downloaded file.
type LegacyVideo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Uploader    string `json:"uploader"`
	UploaderID  string `json:"uploader_id"`
	Duration    int    `json:"duration"`
	Format      int    `json:"fmt"`
	Location    string `json:"location"`
}

// ImportResult summarizes the import of one legacy record.
type ImportResult struct {
	Job         string
	PlaylistID  string
	Videos      int
	LocalVideos int
	JobCreated  bool
	Err         error
}

// Import folds every *.json legacy record in dir into the catalog.
//
// Each record becomes a playlist with its videos, users and local files plus one job named after
// the file. Importing the same directory again changes nothing. A malformed record is reported in
// its result and the remaining records are still imported.
func (e *Engine) Import(ctx context.Context, dir string, progress chan<- ProgressUpdate) ([]*ImportResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no legacy records in %s", shared.ErrInvalidInput, dir)
	}

	results := make([]*ImportResult, 0, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		res, err := e.importFile(ctx, name, path)
		if err != nil {
			e.logger.Error("failed to import legacy record", "file", path, "error", err)
			res = &ImportResult{Job: name, Err: err}
		}
		results = append(results, res)
		e.sendProgress(progress, importUpdate(i+1, len(files), name, res))
	}
	return results, nil
}

func (e *Engine) importFile(ctx context.Context, name, path string) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var record LegacyPlaylist
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidInput, filepath.Base(path), err)
	}
	if record.PlaylistID == "" {
		return nil, fmt.Errorf("%w: %s: playlist_id is required", shared.ErrInvalidInput, filepath.Base(path))
	}

	unlock := e.catalog.LockPlaylist(record.PlaylistID)
	defer unlock()

	res := &ImportResult{Job: name, PlaylistID: record.PlaylistID}
	err = e.catalog.InTx(ctx, func(s *repositories.Store) error {
		if err := importPlaylist(ctx, s, &record); err != nil {
			return err
		}

		for _, v := range record.Videos {
			if v.ID == "" {
				continue
			}
			local, err := importVideo(ctx, s, record.PlaylistID, v)
			if err != nil {
				return fmt.Errorf("video %s: %w", v.ID, err)
			}
			res.Videos++
			if local {
				res.LocalVideos++
			}
		}

		created, err := importJob(ctx, s, name, &record)
		res.JobCreated = created
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("imported legacy record", "job", name, "videos", res.Videos, "files", res.LocalVideos)
	return res, nil
}

func importPlaylist(ctx context.Context, s *repositories.Store, record *LegacyPlaylist) error {
	playlist, err := s.Playlists.Ensure(ctx, record.PlaylistID)
	if err != nil {
		return err
	}

	if record.AuthorID != "" {
		if err := ensureUser(ctx, s, record.AuthorID, record.Author); err != nil {
			return err
		}
		playlist.UserID = record.AuthorID
	}
	if record.Title != "" {
		playlist.Title = record.Title
	}
	if record.Author != "" {
		playlist.UserName = record.Author
	}
	return s.Playlists.Update(ctx, playlist)
}

// importVideo stores one legacy video and reports whether a local file was recorded for it.
func importVideo(ctx context.Context, s *repositories.Store, playlistID string, v LegacyVideo) (bool, error) {
	patch := models.VideoPatch{}
	if v.Title != "" {
		patch.Title = &v.Title
	}
	if v.Description != "" {
		patch.Description = &v.Description
	}
	if v.Duration > 0 {
		patch.Duration = &v.Duration
	}
	if v.UploaderID != "" {
		if err := ensureUser(ctx, s, v.UploaderID, v.Uploader); err != nil {
			return false, err
		}
		patch.UserID = &v.UploaderID
	}

	if _, err := s.Videos.Upsert(ctx, v.ID, patch); err != nil {
		return false, err
	}
	if _, err := s.Items.Insert(ctx, playlistID, v.ID, nil); err != nil {
		return false, err
	}

	if v.Location == "" || v.Format == 0 {
		return false, nil
	}
	location := filepath.ToSlash(v.Location)
	exists, err := s.LocalVideos.ExistsAt(ctx, v.ID, location)
	if err != nil || exists {
		return false, err
	}

	local := &models.LocalVideo{
		VideoID:  v.ID,
		Format:   models.Format(v.Format),
		Location: location,
		Status:   models.LocalImportedLegacy,
	}
	if err := s.LocalVideos.Create(ctx, local); err != nil {
		return false, err
	}
	return true, nil
}

func importJob(ctx context.Context, s *repositories.Store, name string, record *LegacyPlaylist) (bool, error) {
	if _, err := s.Jobs.Get(ctx, name); err == nil {
		return false, nil
	} else if !errors.Is(err, shared.ErrJobNotFound) {
		return false, err
	}

	kind := models.SourcePlaylist
	if strings.HasPrefix(record.PlaylistID, models.FavoritesPrefix) {
		kind = models.SourceFavorites
	}

	job := &models.Job{
		Name:       name,
		Type:       kind,
		PlaylistID: record.PlaylistID,
		Target:     name,
		Status:     LegacyJobStatus,
	}
	if err := job.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if err := s.Jobs.Create(ctx, job); err != nil {
		return false, err
	}
	return true, nil
}

// ensureUser creates the user unless it exists; existing records are left untouched.
func ensureUser(ctx context.Context, s *repositories.Store, id, name string) error {
	exists, err := s.Users.Exists(ctx, id)
	if err != nil || exists {
		return err
	}
	return s.Users.Upsert(ctx, &models.User{ID: id, Username: name, Name: name})
}
