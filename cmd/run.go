package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/youfeed/internal/formatter"
	"github.com/desertthunder/youfeed/internal/shared"
	"github.com/desertthunder/youfeed/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Run executes the named jobs, or every job when no name is given, and prints a per-job summary.
//
// The command succeeds when it completed, even if single videos or jobs failed; failures are listed in the summary.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	release, err := r.lockCatalog()
	if err != nil {
		return err
	}
	defer release()

	engine, err := r.newEngine(ctx)
	if err != nil {
		return err
	}

	opts := tasks.RunOptions{
		Force:      cmd.Bool("force-all"),
		CheckOnly:  cmd.Bool("check-only"),
		NoDownload: cmd.Bool("no-download"),
	}
	names := cmd.Args().Slice()
	r.logger.Debug("running jobs", "jobs", names, "force", opts.Force, "check_only", opts.CheckOnly, "no_download", opts.NoDownload)

	progress, wait := r.drainProgress()
	results, err := engine.RunJobs(ctx, names, opts, progress)
	wait()
	if err != nil {
		return err
	}

	return r.writeRunSummary(results)
}

func (r *Runner) writeRunSummary(results []*tasks.JobResult) error {
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, res := range results {
		status := "ok"
		switch {
		case res.Err != nil:
			status = r.palette.Err(res.Err.Error())
			failed++
		case res.Skipped:
			status = r.palette.Warn("disabled")
		case res.Failed > 0:
			status = r.palette.Warn(fmt.Sprintf("%d failed", res.Failed))
		}
		manifest := "-"
		if res.Manifest != "" {
			manifest = filepath.Base(res.Manifest)
		}
		rows = append(rows, []string{
			res.Job,
			strconv.Itoa(res.Items),
			strconv.Itoa(res.Acquired),
			strconv.Itoa(res.Downloaded),
			manifest,
			status,
		})
	}

	r.writePlainln("%s", r.palette.Title("Summary"))
	if err := r.writeTable(
		[]string{"Job", "Items", "Available", "Downloaded", "Manifest", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	); err != nil {
		return err
	}
	if failed > 0 {
		r.logger.Warn("some jobs failed", "failed", failed, "total", len(results))
	}
	return nil
}

// Import folds a directory of legacy records into the catalog.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.StringArg("dir")
	if dir == "" {
		return fmt.Errorf("%w: legacy directory is required", shared.ErrMissingArgument)
	}

	release, err := r.lockCatalog()
	if err != nil {
		return err
	}
	defer release()

	engine, err := r.newEngine(ctx)
	if err != nil {
		return err
	}

	progress, wait := r.drainProgress()
	results, err := engine.Import(ctx, dir, progress)
	wait()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status := "ok"
		switch {
		case res.Err != nil:
			status = r.palette.Err(res.Err.Error())
		case res.JobCreated:
			status = r.palette.OK("job created")
		}
		rows = append(rows, []string{
			res.Job,
			orDash(res.PlaylistID),
			strconv.Itoa(res.Videos),
			strconv.Itoa(res.LocalVideos),
			status,
		})
	}
	return r.writeTable(
		[]string{"Job", "Playlist", "Videos", "Files", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

// Export renders the catalog view of a job's playlist to stdout or a file.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("job")
	if name == "" {
		return fmt.Errorf("%w: job name is required", shared.ErrMissingArgument)
	}
	format := cmd.String("format")

	engine, err := r.newEngine(ctx)
	if err != nil {
		return err
	}
	catalog, err := r.openCatalog(ctx)
	if err != nil {
		return err
	}

	job, err := catalog.Store().Jobs.Get(ctx, name)
	if err != nil {
		return err
	}
	view, err := engine.PlaylistView(ctx, job)
	if err != nil {
		return err
	}
	data, err := formatter.Export(view, format)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		_, err := r.output.Write(data)
		return err
	}

	if info, err := os.Stat(output); err == nil && info.IsDir() {
		output = filepath.Join(output, shared.ToFilename(name)+"."+formatter.Extension(format))
	}
	if err := shared.WriteFileAtomic(output, data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	r.logger.Info("playlist exported", "job", name, "format", format, "path", output)
	return r.writePlain("✓ Exported %d entries to %s\n", len(view.Entries), output)
}
