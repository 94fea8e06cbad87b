package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// RunOptions are the per-invocation switches of a run.
type RunOptions struct {
	Force      bool // run disabled jobs and retry flagged videos
	CheckOnly  bool // do not fetch anything that is not local yet
	NoDownload bool // announce new videos without downloading them
}

// JobResult summarizes one job run.
type JobResult struct {
	Job          string
	Skipped      bool
	Sync         *SyncResult
	Items        int
	Acquired     int
	Downloaded   int
	Failed       int
	Manifest     string
	Acquisitions []*Acquisition
	Err          error
}

// RunJob executes one job: sync, range filter, acquire, materialize.
//
// A disabled job is skipped unless opts.Force is set. A run-once job disables itself after succeeding.
// Imported legacy jobs fall back to their stored items when the feed cannot be synced.
func (e *Engine) RunJob(ctx context.Context, job *models.Job, opts RunOptions, progress chan<- ProgressUpdate) (*JobResult, error) {
	result := &JobResult{Job: job.Name}
	logger := e.logger.With("job", job.Name)

	if job.Status.Has(models.JobDisabled) && !opts.Force {
		logger.Info("job is disabled")
		result.Skipped = true
		return result, nil
	}

	e.sendProgress(progress, startJobUpdate(job))

	settings, err := e.settings(ctx, job)
	if err != nil {
		return nil, err
	}

	store := e.catalog.Store()
	if job.Status.Has(models.JobNoSync) {
		if _, err := store.Playlists.Get(ctx, job.PlaylistID); err != nil {
			return nil, err
		}
	} else {
		syncRes, err := e.Sync(ctx, job, progress)
		switch {
		case err == nil:
			result.Sync = syncRes
		case job.Status.Has(models.JobLegacyImport) && ctx.Err() == nil:
			logger.Warn("feed unavailable, using imported items", "error", err)
		default:
			return nil, err
		}
	}

	playlist, err := store.Playlists.Get(ctx, job.PlaylistID)
	if err != nil {
		return nil, err
	}

	items, err := store.Items.List(ctx, job.PlaylistID)
	if err != nil {
		return nil, err
	}
	if !job.Range.IsZero() {
		filtered := items[:0]
		for _, item := range items {
			if job.Range.Contains(item.Index) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	result.Items = len(items)

	acqOpts := AcquireOptions{
		CheckOnly:  opts.CheckOnly,
		NoDownload: opts.NoDownload || job.Status.Has(models.JobNoDownload),
		Force:      opts.Force,
	}
	acqs, err := e.AcquireAll(ctx, job.Name, items, settings.Formats, settings.VideosFolder, acqOpts, progress)
	if err != nil {
		return nil, err
	}
	result.Acquisitions = acqs
	for _, acq := range acqs {
		switch acq.Outcome {
		case OutcomeCached:
			result.Acquired++
		case OutcomeDownloaded:
			result.Acquired++
			result.Downloaded++
		case OutcomeResolveFailed, OutcomeDownloadFailed:
			result.Failed++
		}
	}

	if result.Manifest, err = e.Materialize(ctx, job, playlist, acqs, settings, progress); err != nil {
		return nil, err
	}

	if job.Status.Has(models.JobRunOnce) {
		job.Status = job.Status.With(models.JobDisabled)
		if err := store.Jobs.SetStatus(ctx, job.Name, job.Status); err != nil {
			return nil, fmt.Errorf("failed to disable run-once job: %w", err)
		}
		logger.Info("run-once job disabled")
	}
	return result, nil
}

// RunJobs runs the named jobs in order, or every stored job when names is empty.
//
// Unknown names fail the whole call before any job runs. A failing job is logged and recorded in
// its result; the remaining jobs still run. Only cancellation stops the loop early.
func (e *Engine) RunJobs(ctx context.Context, names []string, opts RunOptions, progress chan<- ProgressUpdate) ([]*JobResult, error) {
	jobs, err := e.selectJobs(ctx, names)
	if err != nil {
		return nil, err
	}

	results := make([]*JobResult, 0, len(jobs))
	for _, job := range jobs {
		res, err := e.RunJob(ctx, job, opts, progress)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			e.logger.Error("job failed", "job", job.Name, "error", err)
			res = &JobResult{Job: job.Name, Err: err}
		}
		results = append(results, res)
		e.sendProgress(progress, finishJobUpdate(res))
	}
	return results, nil
}

func (e *Engine) selectJobs(ctx context.Context, names []string) ([]*models.Job, error) {
	store := e.catalog.Store()
	if len(names) == 0 {
		return store.Jobs.List(ctx, false)
	}

	jobs := make([]*models.Job, 0, len(names))
	var errs []error
	for _, name := range names {
		job, err := store.Jobs.Get(ctx, name)
		if errors.Is(err, shared.ErrJobNotFound) {
			errs = append(errs, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return jobs, nil
}
