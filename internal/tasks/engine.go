package tasks

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/quality"
	"github.com/desertthunder/youfeed/internal/repositories"
	"github.com/desertthunder/youfeed/internal/services"
	"github.com/desertthunder/youfeed/internal/shared"
)

// DefaultAttempts bounds the download attempts of one acquisition.
const DefaultAttempts = 5

// Defaults are the configuration values used when neither the job nor the catalog options set a value.
type Defaults struct {
	Profile         string
	Quality         int
	VideosFolder    string
	PlaylistsFolder string
	XSPFRelPath     bool
}

// DefaultsFromConfig extracts [Defaults] from the loaded configuration.
func DefaultsFromConfig(cfg *shared.Config) Defaults {
	return Defaults{
		Profile:         cfg.Defaults.Profile,
		Quality:         cfg.Defaults.Quality,
		VideosFolder:    cfg.Storage.VideosFolder,
		PlaylistsFolder: cfg.Storage.PlaylistsFolder,
		XSPFRelPath:     cfg.Defaults.XSPFRelPath,
	}
}

// EngineOpts wires the collaborators of an [Engine].
type EngineOpts struct {
	Catalog    *repositories.Catalog
	Feed       services.FeedProvider
	Resolver   services.VideoResolver
	Downloader services.Downloader
	Profiles   *quality.Registry
	Defaults   Defaults
	Root       string // Storage root; relative locations resolve against it
	Workers    int    // Concurrent acquisitions per job (default: 1)
	Attempts   int    // Download attempts per acquisition (default: 5)
	Logger     *log.Logger
}

// Engine runs synchronization jobs against the catalog.
type Engine struct {
	catalog    *repositories.Catalog
	feed       services.FeedProvider
	resolver   services.VideoResolver
	downloader services.Downloader
	profiles   *quality.Registry
	defaults   Defaults
	root       string
	workers    int
	attempts   int
	logger     *log.Logger
	videoLocks shared.KeyedMutex
}

// NewEngine creates an [Engine], filling unset options with defaults.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", shared.ErrInvalidInput)
	}
	if opts.Profiles == nil {
		reg, err := quality.NewRegistry(nil)
		if err != nil {
			return nil, err
		}
		opts.Profiles = reg
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Engine{
		catalog:    opts.Catalog,
		feed:       opts.Feed,
		resolver:   opts.Resolver,
		downloader: opts.Downloader,
		profiles:   opts.Profiles,
		defaults:   opts.Defaults,
		root:       root,
		workers:    opts.Workers,
		attempts:   opts.Attempts,
		logger:     opts.Logger,
	}, nil
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// jobSettings are the effective values for one job run.
type jobSettings struct {
	Profile         string
	Quality         int
	Formats         []models.Format
	VideosFolder    string
	PlaylistsFolder string
	RelPath         bool
}

// settings resolves job → catalog option → configuration default for every tunable.
func (e *Engine) settings(ctx context.Context, job *models.Job) (*jobSettings, error) {
	opts := e.catalog.Store().Options
	option := func(key, fallback string) (string, error) {
		v, ok, err := opts.Lookup(ctx, key)
		if err != nil {
			return "", err
		}
		if !ok || v == "" {
			return fallback, nil
		}
		return v, nil
	}

	s := &jobSettings{Profile: job.Profile}
	var err error

	if s.Profile == "" {
		if s.Profile, err = option(models.OptDefaultProfile, e.defaults.Profile); err != nil {
			return nil, err
		}
	}

	if job.Quality != nil {
		s.Quality = *job.Quality
	} else {
		raw, err := option(models.OptDefaultQuality, strconv.Itoa(e.defaults.Quality))
		if err != nil {
			return nil, err
		}
		if s.Quality, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a number", shared.ErrInvalidConfig, models.OptDefaultQuality, raw)
		}
	}

	formats, exact, err := e.profiles.Resolve(s.Profile, s.Quality)
	if err != nil {
		return nil, err
	}
	if !exact {
		e.logger.Warn("quality is not a level of the profile, using the next lower levels",
			"job", job.Name, "profile", s.Profile, "quality", s.Quality)
	}
	s.Formats = formats

	if s.VideosFolder, err = option(models.OptVideosFolder, e.defaults.VideosFolder); err != nil {
		return nil, err
	}
	if s.PlaylistsFolder, err = option(models.OptPlaylistsFolder, e.defaults.PlaylistsFolder); err != nil {
		return nil, err
	}

	relDefault := strconv.FormatBool(e.defaults.XSPFRelPath)
	raw, err := option(models.OptXSPFRelPath, relDefault)
	if err != nil {
		return nil, err
	}
	s.RelPath = parseBool(raw)
	return s, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on":
		return true
	default:
		return false
	}
}
