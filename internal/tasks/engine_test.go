package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/repositories"
	"github.com/desertthunder/youfeed/internal/services"
	"github.com/desertthunder/youfeed/internal/shared"
	tu "github.com/desertthunder/youfeed/internal/testing"
)

var testDefaults = Defaults{
	Profile:         "mixed-avc",
	Quality:         1080,
	VideosFolder:    "videos",
	PlaylistsFolder: "playlists",
	XSPFRelPath:     true,
}

type testEnv struct {
	engine     *Engine
	catalog    *repositories.Catalog
	feed       *tu.MockFeed
	resolver   *tu.MockResolver
	downloader *tu.MockDownloader
	root       string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		catalog:    tu.NewCatalog(t),
		feed:       tu.NewMockFeed(),
		resolver:   tu.NewMockResolver(),
		downloader: tu.NewMockDownloader(0),
		root:       t.TempDir(),
	}

	engine, err := NewEngine(EngineOpts{
		Catalog:    env.catalog,
		Feed:       env.feed,
		Resolver:   env.resolver,
		Downloader: env.downloader,
		Defaults:   testDefaults,
		Root:       env.root,
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	env.engine = engine
	return env
}

func testEntry(id, uploader string, position int) services.FeedEntry {
	title := "Title " + id
	description := "About " + id
	duration := 61
	return services.FeedEntry{
		VideoID:      id,
		Position:     tu.Ptr(position),
		UploaderID:   uploader,
		UploaderName: "Name " + uploader,
		Title:        &title,
		Description:  &description,
		Keywords:     []string{"music"},
		Thumbnails:   []models.Thumbnail{{Width: 120, Height: 90, URL: "http://img.test/" + id + ".jpg"}},
		Duration:     &duration,
	}
}

func testPage(title string, next string, entries ...services.FeedEntry) *services.FeedPage {
	return &services.FeedPage{
		Title:   title,
		Author:  services.FeedAuthor{Name: "owner", UserID: "owner-id"},
		Entries: entries,
		Next:    next,
	}
}

func (env *testEnv) addUser(id string) {
	env.feed.Users[id] = &services.FeedUser{ID: id, Username: id, Name: "Name " + id}
}

func (env *testEnv) createJob(t *testing.T, job *models.Job) *models.Job {
	t.Helper()
	if job.Type == "" {
		job.Type = models.SourcePlaylist
	}
	store := env.catalog.Store()
	if _, err := store.Playlists.Ensure(context.Background(), job.PlaylistID); err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	if err := store.Jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	return job
}

func countRows(t *testing.T, c *repositories.Catalog, table string) int {
	t.Helper()
	var n int
	if err := c.DB().QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("NewEngine", func(t *testing.T) {
		t.Run("requires catalog", func(t *testing.T) {
			if _, err := NewEngine(EngineOpts{}); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("fills defaults", func(t *testing.T) {
			e, err := NewEngine(EngineOpts{Catalog: tu.NewCatalog(t)})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.workers != 1 {
				t.Errorf("expected 1 worker, got %d", e.workers)
			}
			if e.attempts != DefaultAttempts {
				t.Errorf("expected %d attempts, got %d", DefaultAttempts, e.attempts)
			}
			if !filepath.IsAbs(e.root) {
				t.Errorf("expected absolute root, got %s", e.root)
			}
		})
	})

	t.Run("settings", func(t *testing.T) {
		t.Run("configuration defaults", func(t *testing.T) {
			env := newTestEnv(t)
			s, err := env.engine.settings(ctx, &models.Job{Name: "j"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Profile != "mixed-avc" || s.Quality != 1080 {
				t.Errorf("unexpected profile/quality: %s/%d", s.Profile, s.Quality)
			}
			if len(s.Formats) != 5 || s.Formats[0] != 37 {
				t.Errorf("unexpected lookup table: %v", s.Formats)
			}
			if s.VideosFolder != "videos" || s.PlaylistsFolder != "playlists" || !s.RelPath {
				t.Errorf("unexpected storage settings: %+v", s)
			}
		})

		t.Run("options override defaults", func(t *testing.T) {
			env := newTestEnv(t)
			opts := env.catalog.Store().Options
			for key, value := range map[string]string{
				models.OptDefaultProfile:  "webm",
				models.OptDefaultQuality:  "720",
				models.OptVideosFolder:    "media",
				models.OptPlaylistsFolder: "lists",
				models.OptXSPFRelPath:     "no",
			} {
				if err := opts.Set(ctx, key, value); err != nil {
					t.Fatalf("failed to set %s: %v", key, err)
				}
			}

			s, err := env.engine.settings(ctx, &models.Job{Name: "j"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Profile != "webm" || s.Quality != 720 {
				t.Errorf("unexpected profile/quality: %s/%d", s.Profile, s.Quality)
			}
			if len(s.Formats) != 3 || s.Formats[0] != 45 {
				t.Errorf("unexpected lookup table: %v", s.Formats)
			}
			if s.VideosFolder != "media" || s.PlaylistsFolder != "lists" || s.RelPath {
				t.Errorf("unexpected storage settings: %+v", s)
			}
		})

		t.Run("job overrides options", func(t *testing.T) {
			env := newTestEnv(t)
			if err := env.catalog.Store().Options.Set(ctx, models.OptDefaultProfile, "webm"); err != nil {
				t.Fatal(err)
			}

			s, err := env.engine.settings(ctx, &models.Job{Name: "j", Profile: "avc", Quality: tu.Ptr(720)})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Profile != "avc" || s.Quality != 720 {
				t.Errorf("unexpected profile/quality: %s/%d", s.Profile, s.Quality)
			}
			if len(s.Formats) != 2 || s.Formats[0] != 22 || s.Formats[1] != 18 {
				t.Errorf("unexpected lookup table: %v", s.Formats)
			}
		})

		t.Run("unknown profile", func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.engine.settings(ctx, &models.Job{Name: "j", Profile: "vhs"})
			if !errors.Is(err, shared.ErrUnknownProfile) {
				t.Errorf("expected ErrUnknownProfile, got %v", err)
			}
		})

		t.Run("non-numeric quality option", func(t *testing.T) {
			env := newTestEnv(t)
			if err := env.catalog.Store().Options.Set(ctx, models.OptDefaultQuality, "hd"); err != nil {
				t.Fatal(err)
			}
			_, err := env.engine.settings(ctx, &models.Job{Name: "j"})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("parseBool", func(t *testing.T) {
		tests := []struct {
			in   string
			want bool
		}{
			{"true", true},
			{"True", true},
			{"yes", true},
			{" 1 ", true},
			{"false", false},
			{"no", false},
			{"", false},
		}
		for _, tt := range tests {
			if got := parseBool(tt.in); got != tt.want {
				t.Errorf("parseBool(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	})

	t.Run("sendProgress never blocks", func(t *testing.T) {
		env := newTestEnv(t)
		ch := make(chan ProgressUpdate, 1)
		env.engine.sendProgress(ch, ProgressUpdate{Message: "first"})
		env.engine.sendProgress(ch, ProgressUpdate{Message: "dropped"})
		env.engine.sendProgress(nil, ProgressUpdate{Message: "nil channel"})

		if got := <-ch; got.Message != "first" {
			t.Errorf("expected first update, got %q", got.Message)
		}
	})
}
