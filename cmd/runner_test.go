package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/services"
	"github.com/desertthunder/youfeed/internal/shared"
	tu "github.com/desertthunder/youfeed/internal/testing"
)

type testRunner struct {
	runner     *Runner
	output     *bytes.Buffer
	config     *shared.Config
	feed       *tu.MockFeed
	resolver   *tu.MockResolver
	downloader *tu.MockDownloader
	dir        string
}

// newTestRunner wires a runner to an in-memory catalog, mock remotes and a temporary storage root.
func newTestRunner(t *testing.T) *testRunner {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Catalog.Path = filepath.Join(dir, "youfeed.db")
	config.Storage.Root = dir

	tr := &testRunner{
		output:     &bytes.Buffer{},
		config:     config,
		feed:       tu.NewMockFeed(),
		resolver:   tu.NewMockResolver(),
		downloader: tu.NewMockDownloader(0),
		dir:        dir,
	}
	tr.runner = NewRunner(RunnerOpts{
		ConfigPath: filepath.Join(dir, "config.toml"),
		Config:     config,
		Catalog:    tu.NewCatalog(t),
		Feed:       tr.feed,
		Resolver:   tr.resolver,
		Downloader: tr.downloader,
		Logger:     shared.NewLogger(io.Discard),
		Output:     tr.output,
	})
	return tr
}

func (tr *testRunner) run(args ...string) error {
	tr.output.Reset()
	return newApp(tr.runner).Run(context.Background(), append([]string{"youfeed"}, args...))
}

func (tr *testRunner) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := tr.run(args...); err != nil {
		t.Fatalf("youfeed %s: %v", strings.Join(args, " "), err)
	}
	return tr.output.String()
}

func testFeedPage(title string, ids ...string) *services.FeedPage {
	page := &services.FeedPage{
		Title:  title,
		Author: services.FeedAuthor{Name: "owner", UserID: "owner-id"},
	}
	for i, id := range ids {
		name := "Title " + id
		duration := 61
		page.Entries = append(page.Entries, services.FeedEntry{
			VideoID:  id,
			Position: tu.Ptr(i + 1),
			Title:    &name,
			Duration: &duration,
		})
	}
	return page
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.configPath != defaultConfigPath {
				t.Errorf("expected default config path, got %s", runner.configPath)
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.palette == nil {
				t.Error("expected a palette")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("missing file falls back to defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "none.toml"), Logger: shared.NewLogger(io.Discard)})

			config, err := runner.loadConfig()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Defaults.Profile != "mixed-avc" {
				t.Errorf("expected default profile, got %s", config.Defaults.Profile)
			}
		})

		t.Run("reads the file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := "[catalog]\npath = \"/tmp/other.db\"\n\n[download]\nworkers = 3\nattempts = 2\n"
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			runner := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.NewLogger(io.Discard)})

			config, err := runner.loadConfig()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Catalog.Path != "/tmp/other.db" || config.Download.Workers != 3 {
				t.Errorf("unexpected config: %+v", config)
			}
		})

		t.Run("invalid file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[download]\nworkers = 0\n"), 0644); err != nil {
				t.Fatal(err)
			}
			runner := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.NewLogger(io.Discard)})

			if _, err := runner.loadConfig(); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("global flags", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run("--verbose", "--quiet", "job", "list"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}

		tr.mustRun(t, "--verbose", "job", "list")
		if !tr.runner.verbose {
			t.Error("expected --verbose to enable verbose progress")
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("returns error on write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected error for write failure")
			}
		})
	})

	t.Run("renderTable", func(t *testing.T) {
		out := renderTable([]string{"Name", "Count"}, [][]string{{"a", "1"}, {"b"}}, []columnAlignment{alignLeft, alignRight})
		for _, want := range []string{"NAME", "COUNT", "a", "b"} {
			if !strings.Contains(out, want) {
				t.Errorf("table missing %q:\n%s", want, out)
			}
		}
		if renderTable(nil, nil, nil) != "" {
			t.Error("expected empty table without headers")
		}
	})
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Catalog.Path = filepath.Join(dir, "youfeed.db")
	config.Storage.Root = dir
	output := &bytes.Buffer{}

	runner := NewRunner(RunnerOpts{
		ConfigPath: filepath.Join(dir, "config.toml"),
		Config:     config,
		Logger:     shared.NewLogger(io.Discard),
		Output:     output,
	})
	t.Cleanup(func() { runner.close() })

	if err := newApp(runner).Run(context.Background(), []string{"youfeed", "setup"}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	tu.AssertFileExists(t, config.Catalog.Path)
	for _, folder := range []string{"videos", "playlists"} {
		if info, err := os.Stat(filepath.Join(dir, folder)); err != nil || !info.IsDir() {
			t.Errorf("expected %s folder to exist: %v", folder, err)
		}
	}

	store := runner.catalog.Store()
	if v, err := store.Options.Get(context.Background(), models.OptVideosFolder); err != nil || v != "videos" {
		t.Errorf("expected videos_folder to be seeded, got %q (%v)", v, err)
	}
	if !strings.Contains(output.String(), "Catalog ready") {
		t.Errorf("unexpected output: %s", output.String())
	}

	t.Run("is repeatable", func(t *testing.T) {
		if err := store.Options.Set(context.Background(), models.OptVideosFolder, "media"); err != nil {
			t.Fatal(err)
		}
		if err := newApp(runner).Run(context.Background(), []string{"youfeed", "setup"}); err != nil {
			t.Fatalf("second setup failed: %v", err)
		}
		if v, _ := store.Options.Get(context.Background(), models.OptVideosFolder); v != "media" {
			t.Errorf("setup must not overwrite options, got %q", v)
		}
	})
}

func TestConfigCommands(t *testing.T) {
	tr := newTestRunner(t)

	t.Run("set and get", func(t *testing.T) {
		tr.mustRun(t, "config", "set", models.OptDefaultQuality, "720")
		if out := tr.mustRun(t, "config", "get", models.OptDefaultQuality); out != "720\n" {
			t.Errorf("expected 720, got %q", out)
		}
	})

	t.Run("list", func(t *testing.T) {
		tr.mustRun(t, "config", "set", models.OptXSPFRelPath, "false")
		out := tr.mustRun(t, "config", "list")
		for _, want := range []string{models.OptDefaultQuality, models.OptXSPFRelPath, "false"} {
			if !strings.Contains(out, want) {
				t.Errorf("list missing %q:\n%s", want, out)
			}
		}

		out = tr.mustRun(t, "config", "list", "--json")
		if !strings.Contains(out, `"default_quality": "720"`) {
			t.Errorf("unexpected JSON: %s", out)
		}
	})

	t.Run("rejects bad values", func(t *testing.T) {
		tests := []struct {
			key, value string
			want       error
		}{
			{models.OptDBVersion, "99", shared.ErrProtectedOption},
			{models.OptDefaultQuality, "high", shared.ErrInvalidArgument},
			{models.OptDefaultProfile, "vhs", shared.ErrUnknownProfile},
			{models.OptXSPFRelPath, "maybe", shared.ErrInvalidArgument},
		}
		for _, tt := range tests {
			if err := tr.run("config", "set", tt.key, tt.value); !errors.Is(err, tt.want) {
				t.Errorf("%s=%s: expected %v, got %v", tt.key, tt.value, tt.want, err)
			}
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if err := tr.run("config", "get", "nope"); !errors.Is(err, shared.ErrOptionNotFound) {
			t.Errorf("expected ErrOptionNotFound, got %v", err)
		}
	})
}

func TestJobCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("add creates the playlist and the job", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.mustRun(t, "job", "add", "--profile", "avc", "--quality", "720", "--range", "2:", "--run-once", "mix", "PL1")

		store := tr.runner.catalog.Store()
		job, err := store.Jobs.Get(ctx, "mix")
		if err != nil {
			t.Fatal(err)
		}
		if job.PlaylistID != "PL1" || job.Profile != "avc" || *job.Quality != 720 || job.Range.String() != "2:" {
			t.Errorf("unexpected job: %+v", job)
		}
		if !job.Status.Has(models.JobRunOnce) {
			t.Errorf("expected run-once flag, got %s", job.Status)
		}
		if _, err := store.Playlists.Get(ctx, "PL1"); err != nil {
			t.Errorf("expected playlist row: %v", err)
		}
	})

	t.Run("add favorites", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.mustRun(t, "job", "add", "--type", "favorites", "favs", "alice")

		job, err := tr.runner.catalog.Store().Jobs.Get(ctx, "favs")
		if err != nil {
			t.Fatal(err)
		}
		if job.PlaylistID != models.FavoritesPrefix+"alice" || job.Resource() != "alice" {
			t.Errorf("unexpected job: %+v", job)
		}
	})

	t.Run("add validates before storing", func(t *testing.T) {
		tr := newTestRunner(t)
		tests := []struct {
			args []string
			want error
		}{
			{[]string{"job", "add", "mix"}, shared.ErrMissingArgument},
			{[]string{"job", "add", "--profile", "vhs", "mix", "PL1"}, shared.ErrUnknownProfile},
			{[]string{"job", "add", "--range", "x", "mix", "PL1"}, shared.ErrInvalidRange},
			{[]string{"job", "add", "--type", "channel", "mix", "PL1"}, shared.ErrInvalidFlag},
		}
		for _, tt := range tests {
			if err := tr.run(tt.args...); !errors.Is(err, tt.want) {
				t.Errorf("%v: expected %v, got %v", tt.args, tt.want, err)
			}
		}

		tr.mustRun(t, "job", "add", "mix", "PL1")
		if err := tr.run("job", "add", "mix", "PL2"); !errors.Is(err, shared.ErrJobExists) {
			t.Errorf("expected ErrJobExists, got %v", err)
		}
	})

	t.Run("change disable enable rm", func(t *testing.T) {
		tr := newTestRunner(t)
		store := tr.runner.catalog.Store()
		tr.mustRun(t, "job", "add", "--target", "old", "mix", "PL1")

		tr.mustRun(t, "job", "change", "--target", "new", "--no-download", "mix")
		job, _ := store.Jobs.Get(ctx, "mix")
		if job.Target != "new" || !job.Status.Has(models.JobNoDownload) {
			t.Errorf("unexpected job after change: %+v", job)
		}

		tr.mustRun(t, "job", "disable", "mix")
		job, _ = store.Jobs.Get(ctx, "mix")
		if !job.Status.Has(models.JobDisabled) || !job.Status.Has(models.JobNoDownload) {
			t.Errorf("disable must keep other flags, got %s", job.Status)
		}

		tr.mustRun(t, "job", "enable", "mix")
		job, _ = store.Jobs.Get(ctx, "mix")
		if job.Status.Has(models.JobDisabled) {
			t.Errorf("expected job to be enabled, got %s", job.Status)
		}

		tr.mustRun(t, "job", "rm", "mix")
		if _, err := store.Jobs.Get(ctx, "mix"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
		if _, err := store.Playlists.Get(ctx, "PL1"); err != nil {
			t.Errorf("rm must keep the playlist: %v", err)
		}
		if err := tr.run("job", "rm", "mix"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("list and show", func(t *testing.T) {
		tr := newTestRunner(t)
		if out := tr.mustRun(t, "job", "list"); !strings.Contains(out, "(none)") {
			t.Errorf("expected empty list, got %q", out)
		}

		tr.mustRun(t, "job", "add", "--quality", "480", "alpha", "PL1")
		tr.mustRun(t, "job", "add", "--disabled", "beta", "PL2")

		out := tr.mustRun(t, "job", "list")
		for _, want := range []string{"alpha", "beta", "480", "disabled"} {
			if !strings.Contains(out, want) {
				t.Errorf("list missing %q:\n%s", want, out)
			}
		}
		if out := tr.mustRun(t, "job", "list", "--enabled"); strings.Contains(out, "beta") {
			t.Errorf("--enabled listed a disabled job:\n%s", out)
		}

		out = tr.mustRun(t, "job", "show", "alpha")
		for _, want := range []string{"Job: alpha", "Resource:  PL1", "Quality:   480", "Items:     0"} {
			if !strings.Contains(out, want) {
				t.Errorf("show missing %q:\n%s", want, out)
			}
		}
	})
}

func TestRunCommand(t *testing.T) {
	t.Run("runs jobs and prints a summary", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.feed.Pages[tu.PageKey(models.SourcePlaylist, "PL1")] = testFeedPage("Road Trip", "V1", "V2")
		tr.resolver.Formats["V1"] = map[models.Format]string{22: "http://media.test/V1"}
		tr.resolver.Formats["V2"] = map[models.Format]string{18: "http://media.test/V2"}
		tr.mustRun(t, "job", "add", "mix", "PL1")

		out := tr.mustRun(t, "run")
		for _, want := range []string{"Job: mix", "Summary", "mix", "Road_Trip.xspf"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		tu.AssertFileExists(t, filepath.Join(tr.dir, "playlists", "Road_Trip.xspf"))
		if tr.downloader.TotalAttempts() != 2 {
			t.Errorf("expected 2 downloads, got %d", tr.downloader.TotalAttempts())
		}
	})

	t.Run("no-download flag", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.feed.Pages[tu.PageKey(models.SourcePlaylist, "PL1")] = testFeedPage("Mix", "V1")
		tr.resolver.Formats["V1"] = map[models.Format]string{22: "http://media.test/V1"}
		tr.mustRun(t, "job", "add", "mix", "PL1")

		out := tr.mustRun(t, "run", "-d", "mix")
		if tr.downloader.TotalAttempts() != 0 {
			t.Error("expected no downloads")
		}
		if !strings.Contains(out, "New video") {
			t.Errorf("expected the new video to be announced:\n%s", out)
		}
	})

	t.Run("a failing job does not fail the command", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.feed.PageErr = shared.ErrAPIRequest
		tr.mustRun(t, "job", "add", "mix", "PL1")

		out := tr.mustRun(t, "run")
		if !strings.Contains(out, "API request failed") {
			t.Errorf("expected the failure in the summary:\n%s", out)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run("run", "nope"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("refuses a locked catalog", func(t *testing.T) {
		tr := newTestRunner(t)
		lock := shared.NewCatalogLock(tr.config.Catalog.Path)
		if err := lock.Acquire(); err != nil {
			t.Fatal(err)
		}
		defer lock.Release()

		if err := tr.run("run"); !errors.Is(err, shared.ErrCatalogLocked) {
			t.Errorf("expected ErrCatalogLocked, got %v", err)
		}
	})
}

func TestImportCommand(t *testing.T) {
	tr := newTestRunner(t)
	dir := t.TempDir()
	record := `{"playlist_id": "PLold", "title": "Old", "author": "keeper", "author_id": "keeper-id",
		"videos": [{"id": "L1", "title": "First", "uploader": "Ann", "uploader_id": "ann", "duration": 60}]}`
	if err := os.WriteFile(filepath.Join(dir, "oldmix.json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	out := tr.mustRun(t, "import", dir)
	for _, want := range []string{"oldmix", "PLold", "job created", "broken"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	job, err := tr.runner.catalog.Store().Jobs.Get(context.Background(), "oldmix")
	if err != nil {
		t.Fatal(err)
	}
	if !job.Status.Has(models.JobLegacyImport) {
		t.Errorf("expected legacy flag, got %s", job.Status)
	}

	if err := tr.run("import"); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestExportCommand(t *testing.T) {
	tr := newTestRunner(t)
	tr.feed.Pages[tu.PageKey(models.SourcePlaylist, "PL1")] = testFeedPage("Road Trip", "V1", "V2")
	tr.resolver.Formats["V1"] = map[models.Format]string{22: "http://media.test/V1"}
	tr.mustRun(t, "job", "add", "mix", "PL1")
	tr.mustRun(t, "run", "mix")

	t.Run("to stdout", func(t *testing.T) {
		out := tr.mustRun(t, "export", "--format", "csv", "mix")
		for _, want := range []string{"Index,VideoID", "1,V1,Title V1", "2,V2,Title V2"} {
			if !strings.Contains(out, want) {
				t.Errorf("export missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("to a directory", func(t *testing.T) {
		dir := t.TempDir()
		tr.mustRun(t, "export", "-f", "markdown", "-o", dir, "mix")

		content := tu.MustReadFile(t, filepath.Join(dir, "mix.md"))
		if !strings.Contains(content, "# Road Trip") {
			t.Errorf("unexpected markdown:\n%s", content)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := tr.run("export", "--format", "json", "mix"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		if err := tr.run("export", "nope"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})
}
