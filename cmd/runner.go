package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/youfeed/internal/quality"
	"github.com/desertthunder/youfeed/internal/repositories"
	"github.com/desertthunder/youfeed/internal/services"
	"github.com/desertthunder/youfeed/internal/shared"
	"github.com/desertthunder/youfeed/internal/tasks"
	"github.com/desertthunder/youfeed/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Configuration and the catalog are loaded on first use so that commands like setup can run before either exists.
type Runner struct {
	configPath string
	config     *shared.Config
	catalog    *repositories.Catalog
	feed       services.FeedProvider
	resolver   services.VideoResolver
	downloader services.Downloader
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette
	verbose    bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	ConfigPath string
	Config     *shared.Config
	Catalog    *repositories.Catalog
	Feed       services.FeedProvider
	Resolver   services.VideoResolver
	Downloader services.Downloader
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.ConfigPath == "" {
		opts.ConfigPath = defaultConfigPath
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		configPath: opts.ConfigPath,
		config:     opts.Config,
		catalog:    opts.Catalog,
		feed:       opts.Feed,
		resolver:   opts.Resolver,
		downloader: opts.Downloader,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    ui.PaletteFor(opts.Output),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, jobCommand, runCommand, importCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before applies the global flags.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}
	switch {
	case cmd.Bool("verbose") && cmd.Bool("quiet"):
		return ctx, fmt.Errorf("%w: --verbose and --quiet are mutually exclusive", shared.ErrInvalidFlag)
	case cmd.Bool("verbose"):
		r.verbose = true
		shared.SetLogLevel(r.logger, log.DebugLevel)
	case cmd.Bool("quiet"):
		shared.SetLogLevel(r.logger, log.ErrorLevel)
	}
	return ctx, nil
}

// loadConfig returns the configuration, reading it on first use. A missing file falls back to the built-in defaults.
func (r *Runner) loadConfig() (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
		return r.config, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return nil, err
	}
	r.config = config
	return config, nil
}

// openCatalog opens and migrates the catalog named by the configuration on first use.
func (r *Runner) openCatalog(ctx context.Context) (*repositories.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	config, err := r.loadConfig()
	if err != nil {
		return nil, err
	}

	r.logger.Debug("opening catalog", "path", config.Catalog.Path)
	catalog, err := repositories.OpenCatalog(ctx, config.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	r.catalog = catalog
	return catalog, nil
}

func (r *Runner) close() error {
	if r.catalog == nil {
		return nil
	}
	err := r.catalog.Close()
	r.catalog = nil
	return err
}

// profiles builds the quality registry with the custom profiles from the configuration.
func (r *Runner) profiles() (*quality.Registry, error) {
	config, err := r.loadConfig()
	if err != nil {
		return nil, err
	}
	return quality.NewRegistry(config.Profiles)
}

// newEngine wires a [tasks.Engine]. Remote clients that were not injected are built from the configuration.
func (r *Runner) newEngine(ctx context.Context) (*tasks.Engine, error) {
	config, err := r.loadConfig()
	if err != nil {
		return nil, err
	}
	catalog, err := r.openCatalog(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := r.profiles()
	if err != nil {
		return nil, err
	}

	feed := r.feed
	if feed == nil {
		feed = services.NewGDataFeed(services.GDataOpts{
			BaseURL:   config.Feed.BaseURL,
			APIToken:  config.Feed.APIToken,
			PageSize:  config.Feed.PageSize,
			RateLimit: config.Feed.RateLimit,
			Timeout:   config.Feed.Timeout.Duration,
			Logger:    r.logger,
		})
	}
	resolver := r.resolver
	if resolver == nil {
		resolver = services.NewProxyResolver(config.Resolver.BaseURL, config.Resolver.Timeout.Duration, nil)
	}
	downloader := r.downloader
	if downloader == nil {
		downloader = services.NewHTTPDownloader(config.Download.Timeout.Duration, nil)
	}

	return tasks.NewEngine(tasks.EngineOpts{
		Catalog:    catalog,
		Feed:       feed,
		Resolver:   resolver,
		Downloader: downloader,
		Profiles:   profiles,
		Defaults:   tasks.DefaultsFromConfig(config),
		Root:       config.Storage.Root,
		Workers:    config.Download.Workers,
		Attempts:   config.Download.Attempts,
		Logger:     r.logger,
	})
}

// lockCatalog takes the process-wide catalog lock for a mutating command.
func (r *Runner) lockCatalog() (release func(), err error) {
	config, err := r.loadConfig()
	if err != nil {
		return nil, err
	}

	lock := shared.NewCatalogLock(config.Catalog.Path)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	r.logger.Debug("catalog locked", "path", lock.Path())

	return func() {
		if err := lock.Release(); err != nil {
			r.logger.Warn("failed to release catalog lock", "path", lock.Path(), "error", err)
		}
	}, nil
}

// drainProgress prints updates in the background. The returned func closes the channel and waits for the printer.
func (r *Runner) drainProgress() (chan<- tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	printer := ui.NewPrinter(r.output, r.palette, r.verbose)

	go func() {
		defer close(done)
		printer.Drain(progress)
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
