package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("OpenCatalog records schema version", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "youfeed.db")
		c, err := OpenCatalog(ctx, path)
		if err != nil {
			t.Fatalf("failed to open catalog: %v", err)
		}
		defer c.Close()

		version, err := c.Store().Options.Get(ctx, models.OptDBVersion)
		if err != nil {
			t.Fatalf("expected db_version option: %v", err)
		}
		latest, _ := shared.LatestSchemaVersion()
		if version != strconv.Itoa(latest) {
			t.Errorf("expected db_version %d, got %s", latest, version)
		}
	})

	t.Run("OpenCatalog rejects newer schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "youfeed.db")
		c, err := OpenCatalog(ctx, path)
		if err != nil {
			t.Fatalf("failed to open catalog: %v", err)
		}
		if _, err := c.DB().Exec("INSERT INTO schema_migrations (version) VALUES (9999)"); err != nil {
			t.Fatalf("failed to fake version: %v", err)
		}
		c.Close()

		if _, err := OpenCatalog(ctx, path); !errors.Is(err, shared.ErrUnknownSchemaVersion) {
			t.Errorf("expected ErrUnknownSchemaVersion, got %v", err)
		}
	})

	t.Run("InTx commits", func(t *testing.T) {
		c := NewCatalog(setupTestDB(t))
		err := c.InTx(ctx, func(s *Store) error {
			_, err := s.Videos.Ensure(ctx, "v1")
			return err
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := c.Store().Videos.Get(ctx, "v1"); err != nil {
			t.Errorf("video should be committed: %v", err)
		}
	})

	t.Run("InTx rolls back on error", func(t *testing.T) {
		c := NewCatalog(setupTestDB(t))
		boom := errors.New("boom")
		err := c.InTx(ctx, func(s *Store) error {
			if _, err := s.Videos.Ensure(ctx, "v1"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if _, err := c.Store().Videos.Get(ctx, "v1"); !errors.Is(err, shared.ErrVideoNotFound) {
			t.Errorf("video should be rolled back, got %v", err)
		}
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert and Get", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))

		if err := repo.Upsert(ctx, &models.User{ID: "u1", Username: "alice", Name: "Alice"}); err != nil {
			t.Fatalf("failed to upsert user: %v", err)
		}

		u, err := repo.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if u.Name != "Alice" || u.Username != "alice" {
			t.Errorf("unexpected user: %+v", u)
		}
	})

	t.Run("Upsert keeps known names", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		repo.Upsert(ctx, &models.User{ID: "u1", Username: "alice", Name: "Alice"})

		if err := repo.Upsert(ctx, &models.User{ID: "u1", Status: models.UserSuspended}); err != nil {
			t.Fatalf("failed to upsert user: %v", err)
		}

		u, _ := repo.Get(ctx, "u1")
		if u.Name != "Alice" {
			t.Errorf("empty name overwrote stored one: %q", u.Name)
		}
		if !u.Status.Has(models.UserSuspended) {
			t.Error("status should be replaced")
		}
	})

	t.Run("Rename", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		repo.Upsert(ctx, &models.User{ID: "u1", Name: "(suspended)"})

		if err := repo.Rename(ctx, "u1", "Bob"); err != nil {
			t.Fatalf("failed to rename: %v", err)
		}
		u, _ := repo.Get(ctx, "u1")
		if u.Name != "Bob" {
			t.Errorf("expected Bob, got %s", u.Name)
		}

		if err := repo.Rename(ctx, "missing", "X"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if _, err := repo.Get(ctx, "nobody"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
		exists, err := repo.Exists(ctx, "nobody")
		if err != nil || exists {
			t.Errorf("expected false, nil; got %v, %v", exists, err)
		}
	})
}

func TestVideoRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Ensure is idempotent", func(t *testing.T) {
		repo := NewVideoRepository(setupTestDB(t))

		created, err := repo.Ensure(ctx, "v1")
		if err != nil || !created {
			t.Fatalf("expected creation, got %v, %v", created, err)
		}
		created, err = repo.Ensure(ctx, "v1")
		if err != nil || created {
			t.Fatalf("expected no creation, got %v, %v", created, err)
		}
	})

	t.Run("Upsert merges field-wise", func(t *testing.T) {
		db := setupTestDB(t)
		NewUserRepository(db).Upsert(ctx, &models.User{ID: "u1", Name: "U"})
		repo := NewVideoRepository(db)

		uploaded := time.Date(2012, 1, 2, 3, 4, 5, 0, time.UTC)
		full := models.VideoPatch{
			UserID:      ptr("u1"),
			Title:       ptr("T"),
			Description: ptr("D"),
			Categories:  []string{"Music"},
			Keywords:    []string{"a", "b"},
			Thumbnails:  []models.Thumbnail{{Width: 120, Height: 90, URL: "http://img/0.jpg"}},
			Uploaded:    &uploaded,
			Duration:    ptr(215),
		}
		if _, err := repo.Upsert(ctx, "v1", full); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		if _, err := repo.Upsert(ctx, "v1", models.VideoPatch{Title: ptr("T2")}); err != nil {
			t.Fatalf("failed to upsert partial: %v", err)
		}

		v, err := repo.Get(ctx, "v1")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if v.Title != "T2" {
			t.Errorf("expected title T2, got %s", v.Title)
		}
		if v.Description != "D" || v.Duration != 215 || v.UserID != "u1" {
			t.Errorf("partial patch erased fields: %+v", v)
		}
		if len(v.Keywords) != 2 || v.Categories[0] != "Music" || v.Thumbnails[0].Width != 120 {
			t.Errorf("list fields not preserved: %+v", v)
		}
		if v.Uploaded == nil || !v.Uploaded.Equal(uploaded) {
			t.Errorf("uploaded not preserved: %v", v.Uploaded)
		}
	})

	t.Run("AddStatus", func(t *testing.T) {
		repo := NewVideoRepository(setupTestDB(t))
		repo.Ensure(ctx, "v1")

		repo.AddStatus(ctx, "v1", models.VideoPrivate)
		repo.AddStatus(ctx, "v1", models.VideoNoFormat)

		v, _ := repo.Get(ctx, "v1")
		if !v.Status.Has(models.VideoPrivate | models.VideoNoFormat) {
			t.Errorf("expected both flags, got %s", v.Status)
		}

		if err := repo.AddStatus(ctx, "missing", models.VideoPrivate); !errors.Is(err, shared.ErrVideoNotFound) {
			t.Errorf("expected ErrVideoNotFound, got %v", err)
		}
	})
}

func TestPlaylistItemRepository(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, videos ...string) *Store {
		s := NewStore(setupTestDB(t))
		if _, err := s.Playlists.Ensure(ctx, "PL"); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		for _, v := range videos {
			if _, err := s.Videos.Ensure(ctx, v); err != nil {
				t.Fatalf("failed to create video: %v", err)
			}
		}
		return s
	}

	order := func(t *testing.T, s *Store) []string {
		items, err := s.Items.List(ctx, "PL")
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}
		var ids []string
		for i, it := range items {
			if i > 0 && it.Index <= items[i-1].Index {
				t.Errorf("indices not strictly increasing: %v", items)
			}
			ids = append(ids, it.VideoID)
		}
		return ids
	}

	t.Run("append starts at zero and follows max", func(t *testing.T) {
		s := setup(t, "a", "b", "c")
		s.Items.Insert(ctx, "PL", "a", nil)
		s.Items.Insert(ctx, "PL", "b", ptr(10))
		s.Items.Insert(ctx, "PL", "c", nil)

		items, _ := s.Items.List(ctx, "PL")
		want := []int{0, 10, 11}
		for i, it := range items {
			if it.Index != want[i] {
				t.Errorf("item %d: expected index %d, got %d", i, want[i], it.Index)
			}
		}
	})

	t.Run("explicit index shifts collisions", func(t *testing.T) {
		s := setup(t, "a", "b", "c", "d")
		s.Items.Insert(ctx, "PL", "a", ptr(0))
		s.Items.Insert(ctx, "PL", "b", ptr(1))
		s.Items.Insert(ctx, "PL", "c", ptr(2))

		inserted, err := s.Items.Insert(ctx, "PL", "d", ptr(1))
		if err != nil || !inserted {
			t.Fatalf("expected insert, got %v, %v", inserted, err)
		}

		got := order(t, s)
		want := []string{"a", "d", "b", "c"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected order %v, got %v", want, got)
			}
		}

		items, _ := s.Items.List(ctx, "PL")
		if items[3].Index != 3 {
			t.Errorf("expected last index 3, got %d", items[3].Index)
		}
	})

	t.Run("existing pair short-circuits", func(t *testing.T) {
		s := setup(t, "a")
		s.Items.Insert(ctx, "PL", "a", ptr(5))

		inserted, err := s.Items.Insert(ctx, "PL", "a", ptr(0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inserted {
			t.Error("duplicate pair must not be inserted")
		}
		if n, _ := s.Items.Count(ctx, "PL"); n != 1 {
			t.Errorf("expected 1 item, got %d", n)
		}
	})
}

func TestLocalVideoRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore(setupTestDB(t))
	s.Videos.Ensure(ctx, "v1")

	for _, f := range []models.Format{18, 22} {
		lv := &models.LocalVideo{VideoID: "v1", Format: f, Location: fmt.Sprintf("videos/v1-%d.mp4", f)}
		if err := s.LocalVideos.Create(ctx, lv); err != nil {
			t.Fatalf("failed to create local video: %v", err)
		}
		if lv.ID == "" || lv.Created.IsZero() {
			t.Errorf("expected generated id and timestamp: %+v", lv)
		}
	}

	t.Run("FindByFormats filters", func(t *testing.T) {
		found, err := s.LocalVideos.FindByFormats(ctx, "v1", []models.Format{22, 35})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(found) != 1 || found[0].Format != 22 {
			t.Errorf("expected only format 22, got %+v", found)
		}
	})

	t.Run("FindByFormats empty table", func(t *testing.T) {
		found, err := s.LocalVideos.FindByFormats(ctx, "v1", nil)
		if err != nil || found != nil {
			t.Errorf("expected nil, nil; got %v, %v", found, err)
		}
	})

	t.Run("dangling video rejected", func(t *testing.T) {
		err := s.LocalVideos.Create(ctx, &models.LocalVideo{VideoID: "ghost", Format: 22, Location: "x.mp4"})
		if err == nil {
			t.Error("expected foreign key error")
		}
	})

	t.Run("ListByVideo", func(t *testing.T) {
		all, err := s.LocalVideos.ListByVideo(ctx, "v1")
		if err != nil || len(all) != 2 {
			t.Errorf("expected 2 local videos, got %d (%v)", len(all), err)
		}
	})
}

func TestJobRepository(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *Store {
		s := NewStore(setupTestDB(t))
		s.Playlists.Ensure(ctx, "PL")
		return s
	}

	t.Run("Create and Get round trip optional fields", func(t *testing.T) {
		s := newStore(t)
		rng, _ := models.ParseIndexRange("2:")
		job := &models.Job{
			Name: "music", Type: models.SourcePlaylist, PlaylistID: "PL", Target: "Music",
			Quality: ptr(720), Range: rng, Status: models.JobRunOnce,
		}
		if err := s.Jobs.Create(ctx, job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		got, err := s.Jobs.Get(ctx, "music")
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		if got.Profile != "" || got.Export != "" {
			t.Errorf("unset fields should stay empty: %+v", got)
		}
		if got.Quality == nil || *got.Quality != 720 {
			t.Errorf("expected quality 720, got %v", got.Quality)
		}
		if got.Range.String() != "2:" {
			t.Errorf("expected range 2:, got %q", got.Range.String())
		}
		if !got.Status.Has(models.JobRunOnce) {
			t.Errorf("expected runonce, got %s", got.Status)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		s := newStore(t)
		job := &models.Job{Name: "a", Type: models.SourcePlaylist, PlaylistID: "PL", Target: "a"}
		s.Jobs.Create(ctx, job)
		if err := s.Jobs.Create(ctx, job); !errors.Is(err, shared.ErrJobExists) {
			t.Errorf("expected ErrJobExists, got %v", err)
		}
	})

	t.Run("List enabledOnly", func(t *testing.T) {
		s := newStore(t)
		s.Jobs.Create(ctx, &models.Job{Name: "b", Type: models.SourcePlaylist, PlaylistID: "PL", Target: "b"})
		s.Jobs.Create(ctx, &models.Job{Name: "a", Type: models.SourcePlaylist, PlaylistID: "PL", Target: "a", Status: models.JobDisabled})

		all, _ := s.Jobs.List(ctx, false)
		if len(all) != 2 || all[0].Name != "a" {
			t.Errorf("expected two jobs ordered by name, got %v", all)
		}
		enabled, _ := s.Jobs.List(ctx, true)
		if len(enabled) != 1 || enabled[0].Name != "b" {
			t.Errorf("expected only b, got %v", enabled)
		}
	})

	t.Run("Update, SetStatus and Delete", func(t *testing.T) {
		s := newStore(t)
		job := &models.Job{Name: "a", Type: models.SourcePlaylist, PlaylistID: "PL", Target: "a"}
		s.Jobs.Create(ctx, job)

		job.Profile = "webm"
		job.Export = "/tmp/a.xspf"
		if err := s.Jobs.Update(ctx, job); err != nil {
			t.Fatalf("failed to update: %v", err)
		}
		if err := s.Jobs.SetStatus(ctx, "a", models.JobDisabled); err != nil {
			t.Fatalf("failed to set status: %v", err)
		}

		got, _ := s.Jobs.Get(ctx, "a")
		if got.Profile != "webm" || got.Export != "/tmp/a.xspf" || !got.Status.Has(models.JobDisabled) {
			t.Errorf("unexpected job after update: %+v", got)
		}

		if err := s.Jobs.Delete(ctx, "a"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := s.Jobs.Get(ctx, "a"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
		if _, err := s.Playlists.Get(ctx, "PL"); err != nil {
			t.Errorf("playlist should survive job deletion: %v", err)
		}
	})
}

func TestOptionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOptionRepository(setupTestDB(t))

	t.Run("Set and Get", func(t *testing.T) {
		if err := repo.Set(ctx, models.OptVideosFolder, "media"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := repo.Set(ctx, models.OptVideosFolder, "clips"); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}
		v, err := repo.Get(ctx, models.OptVideosFolder)
		if err != nil || v != "clips" {
			t.Errorf("expected clips, got %q (%v)", v, err)
		}
	})

	t.Run("SetDefault does not overwrite", func(t *testing.T) {
		repo.SetDefault(ctx, models.OptVideosFolder, "videos")
		v, _ := repo.Get(ctx, models.OptVideosFolder)
		if v != "clips" {
			t.Errorf("expected clips to survive, got %q", v)
		}
	})

	t.Run("db_version is protected", func(t *testing.T) {
		if err := repo.Set(ctx, models.OptDBVersion, "99"); !errors.Is(err, shared.ErrProtectedOption) {
			t.Errorf("expected ErrProtectedOption, got %v", err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, err := repo.Get(ctx, "nope"); !errors.Is(err, shared.ErrOptionNotFound) {
			t.Errorf("expected ErrOptionNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo.Set(ctx, models.OptDefaultProfile, "avc")
		opts, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(opts) != 2 || opts[0].Key != models.OptDefaultProfile {
			t.Errorf("expected options sorted by key, got %v", opts)
		}
	})
}
