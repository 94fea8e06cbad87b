package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, opens (and migrates) the catalog and seeds the folder options.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", r.configPath)
	}

	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	r.logger.Info("initializing catalog", "path", config.Catalog.Path)
	catalog, err := r.openCatalog(ctx)
	if err != nil {
		return err
	}

	store := catalog.Store()
	seeds := []models.Option{
		{Key: models.OptVideosFolder, Value: config.Storage.VideosFolder},
		{Key: models.OptPlaylistsFolder, Value: config.Storage.PlaylistsFolder},
	}
	for _, o := range seeds {
		if err := store.Options.SetDefault(ctx, o.Key, o.Value); err != nil {
			return err
		}

		folder, err := store.Options.Get(ctx, o.Key)
		if err != nil {
			return err
		}
		dir := shared.MakeAbsolute(folder, config.Storage.Root)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", o.Key, err)
		}
		r.logger.Debug("storage folder ready", "option", o.Key, "path", dir)
	}

	version, err := store.Options.Get(ctx, models.OptDBVersion)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for catalog: %v", config.Catalog.Path)
	r.writePlain("✓ Catalog ready at %s (schema version %s)\n", config.Catalog.Path, version)
	return nil
}

// ConfigList prints every catalog option.
func (r *Runner) ConfigList(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.openCatalog(ctx)
	if err != nil {
		return err
	}

	opts, err := catalog.Store().Options.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		values := make(map[string]string, len(opts))
		for _, o := range opts {
			values[o.Key] = o.Value
		}
		return r.writeJSON(values, true)
	}

	rows := make([][]string, 0, len(opts))
	for _, o := range opts {
		access := "read-write"
		if o.ReadOnly() {
			access = "read-only"
		}
		rows = append(rows, []string{o.Key, o.Value, access})
	}
	return r.writeTable([]string{"Key", "Value", "Access"}, rows, nil)
}

// ConfigGet prints the value of one option.
func (r *Runner) ConfigGet(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: option key is required", shared.ErrMissingArgument)
	}

	catalog, err := r.openCatalog(ctx)
	if err != nil {
		return err
	}

	value, err := catalog.Store().Options.Get(ctx, key)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", value)
}

// ConfigSet validates and stores one option. db_version is refused.
func (r *Runner) ConfigSet(ctx context.Context, cmd *cli.Command) error {
	key, value := cmd.StringArg("key"), cmd.StringArg("value")
	if key == "" {
		return fmt.Errorf("%w: option key is required", shared.ErrMissingArgument)
	}
	if err := r.validateOption(key, value); err != nil {
		return err
	}

	release, err := r.lockCatalog()
	if err != nil {
		return err
	}
	defer release()

	catalog, err := r.openCatalog(ctx)
	if err != nil {
		return err
	}
	if err := catalog.Store().Options.Set(ctx, key, value); err != nil {
		return err
	}

	r.logger.Info("option stored", "key", key, "value", value)
	return r.writePlain("✓ %s = %s\n", key, value)
}

func (r *Runner) validateOption(key, value string) error {
	switch key {
	case models.OptDBVersion:
		return fmt.Errorf("%w: %s", shared.ErrProtectedOption, key)
	case models.OptDefaultQuality:
		if q, err := strconv.Atoi(value); err != nil || q <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", shared.ErrInvalidArgument, key)
		}
	case models.OptDefaultProfile:
		profiles, err := r.profiles()
		if err != nil {
			return err
		}
		if _, err := profiles.Get(value); err != nil {
			return err
		}
	case models.OptXSPFRelPath:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s must be true or false", shared.ErrInvalidArgument, key)
		}
	case models.OptVideosFolder, models.OptPlaylistsFolder:
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", shared.ErrInvalidArgument, key)
		}
	}
	return nil
}
