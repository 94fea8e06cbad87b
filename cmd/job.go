package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/repositories"
	"github.com/desertthunder/youfeed/internal/shared"
	"github.com/urfave/cli/v3"
)

// JobAdd creates a job and the playlist row it points at.
func (r *Runner) JobAdd(ctx context.Context, cmd *cli.Command) error {
	name, resource := cmd.StringArg("name"), cmd.StringArg("resource")
	if name == "" || resource == "" {
		return fmt.Errorf("%w: job add <name> <playlist-or-user>", shared.ErrMissingArgument)
	}

	kind, err := models.ParseSourceType(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	job := &models.Job{
		Name:       name,
		Type:       kind,
		PlaylistID: models.PlaylistIDFor(kind, resource),
	}
	if err := r.applyJobFlags(cmd, job); err != nil {
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

	err = catalog.InTx(ctx, func(s *repositories.Store) error {
		if _, err := s.Playlists.Ensure(ctx, job.PlaylistID); err != nil {
			return err
		}
		return s.Jobs.Create(ctx, job)
	})
	if err != nil {
		return err
	}

	r.logger.Info("job created", "job", job.Name, "playlist", job.PlaylistID)
	return r.writePlain("✓ Job %s added for %s %s\n", job.Name, job.Type, job.Resource())
}

// JobChange applies the given flags to an existing job.
func (r *Runner) JobChange(ctx context.Context, cmd *cli.Command) error {
	return r.updateJob(ctx, cmd, func(job *models.Job) error {
		return r.applyJobFlags(cmd, job)
	})
}

// JobDisable sets the disabled flag of a job.
func (r *Runner) JobDisable(ctx context.Context, cmd *cli.Command) error {
	return r.updateJob(ctx, cmd, func(job *models.Job) error {
		job.Status = job.Status.With(models.JobDisabled)
		return nil
	})
}

// JobEnable clears the disabled flag of a job.
func (r *Runner) JobEnable(ctx context.Context, cmd *cli.Command) error {
	return r.updateJob(ctx, cmd, func(job *models.Job) error {
		job.Status = job.Status.Without(models.JobDisabled)
		return nil
	})
}

// JobRemove deletes a job. Its playlist and videos stay in the catalog.
func (r *Runner) JobRemove(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: job name is required", shared.ErrMissingArgument)
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
	if err := catalog.Store().Jobs.Delete(ctx, name); err != nil {
		return err
	}

	r.logger.Info("job removed", "job", name)
	return r.writePlain("✓ Job %s removed\n", name)
}

// JobList prints a table of jobs.
func (r *Runner) JobList(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.openCatalog(ctx)
	if err != nil {
		return err
	}

	jobs, err := catalog.Store().Jobs.List(ctx, cmd.Bool("enabled"))
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.Name,
			string(job.Type),
			job.Resource(),
			orDash(job.Target),
			orDash(job.Profile),
			qualityString(job.Quality),
			orDash(job.Range.String()),
			orDash(job.Status.String()),
		})
	}
	headers := []string{"Name", "Type", "Resource", "Target", "Profile", "Quality", "Range", "Status"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}
	return r.writeTable(headers, rows, aligns)
}

// JobShow prints one job and the stored state of its playlist.
func (r *Runner) JobShow(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: job name is required", shared.ErrMissingArgument)
	}

	catalog, err := r.openCatalog(ctx)
	if err != nil {
		return err
	}
	store := catalog.Store()

	job, err := store.Jobs.Get(ctx, name)
	if err != nil {
		return err
	}
	playlist, err := store.Playlists.Get(ctx, job.PlaylistID)
	if err != nil {
		return err
	}
	items, err := store.Items.Count(ctx, job.PlaylistID)
	if err != nil {
		return err
	}

	r.writePlainHeader("Job: " + job.Name)
	rows := [][]string{
		{"Type", string(job.Type)},
		{"Resource", job.Resource()},
		{"Target", orDash(job.Target)},
		{"Profile", orDash(job.Profile)},
		{"Quality", qualityString(job.Quality)},
		{"Range", orDash(job.Range.String())},
		{"Export", orDash(job.Export)},
		{"Status", orDash(job.Status.String())},
		{"Playlist", orDash(playlist.Title)},
		{"Owner", orDash(playlist.UserName)},
		{"Items", strconv.Itoa(items)},
	}
	for _, row := range rows {
		r.writePlain("%-10s %s\n", row[0]+":", row[1])
	}
	return nil
}

// updateJob loads the named job, applies fn and stores the result under the catalog lock.
func (r *Runner) updateJob(ctx context.Context, cmd *cli.Command, fn func(*models.Job) error) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: job name is required", shared.ErrMissingArgument)
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
	store := catalog.Store()

	job, err := store.Jobs.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := fn(job); err != nil {
		return err
	}
	if err := store.Jobs.Update(ctx, job); err != nil {
		return err
	}

	r.logger.Info("job updated", "job", job.Name, "status", job.Status)
	return r.writePlain("✓ Job %s updated\n", job.Name)
}

// applyJobFlags copies every flag the user set onto job. Values are validated before anything is stored.
func (r *Runner) applyJobFlags(cmd *cli.Command, job *models.Job) error {
	if cmd.IsSet("target") {
		job.Target = cmd.String("target")
	}
	if cmd.IsSet("profile") {
		profile := cmd.String("profile")
		if profile != "" {
			profiles, err := r.profiles()
			if err != nil {
				return err
			}
			if _, err := profiles.Get(profile); err != nil {
				return err
			}
		}
		job.Profile = profile
	}
	if cmd.IsSet("quality") {
		switch q := int(cmd.Int("quality")); {
		case q < 0:
			return fmt.Errorf("%w: quality must be positive", shared.ErrInvalidFlag)
		case q == 0:
			job.Quality = nil
		default:
			job.Quality = &q
		}
	}
	if cmd.IsSet("range") {
		rng, err := models.ParseIndexRange(cmd.String("range"))
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidRange, err)
		}
		job.Range = rng
	}
	if cmd.IsSet("export") {
		job.Export = cmd.String("export")
	}

	flags := []struct {
		name string
		bit  models.JobStatus
	}{
		{"disabled", models.JobDisabled},
		{"no-download", models.JobNoDownload},
		{"no-sync", models.JobNoSync},
		{"run-once", models.JobRunOnce},
	}
	for _, f := range flags {
		if !cmd.IsSet(f.name) {
			continue
		}
		if cmd.Bool(f.name) {
			job.Status = job.Status.With(f.bit)
		} else {
			job.Status = job.Status.Without(f.bit)
		}
	}

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func qualityString(q *int) string {
	if q == nil {
		return "-"
	}
	return strconv.Itoa(*q)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
