package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/quality"
	"github.com/desertthunder/youfeed/internal/services"
	"github.com/desertthunder/youfeed/internal/shared"
)

// AcquireOptions alter how far an acquisition may go on a cache miss.
type AcquireOptions struct {
	CheckOnly  bool // only report videos that are already local
	NoDownload bool // announce new videos without downloading them
	Force      bool // retry videos flagged private or without an acceptable format
}

// Outcome classifies how an acquisition ended.
type Outcome int

const (
	OutcomeCached Outcome = iota
	OutcomeDownloaded
	OutcomeMissing
	OutcomeFlagged
	OutcomePrivate
	OutcomeNoFormat
	OutcomeResolveFailed
	OutcomeDownloadFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCached:
		return "cached"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeMissing:
		return "missing"
	case OutcomeFlagged:
		return "flagged"
	case OutcomePrivate:
		return "private"
	case OutcomeNoFormat:
		return "no_format"
	case OutcomeResolveFailed:
		return "resolve_failed"
	case OutcomeDownloadFailed:
		return "download_failed"
	default:
		return ""
	}
}

// Acquisition is the result for one playlist item. Local is nil unless the outcome is cached or downloaded.
type Acquisition struct {
	Item    models.PlaylistItem
	Video   *models.Video
	Local   *models.LocalVideo
	Outcome Outcome
}

// Available reports whether a local file backs the acquisition.
func (a *Acquisition) Available() bool {
	return a != nil && a.Local != nil
}

// AcquireAll acquires every item with at most e.workers acquisitions in flight.
//
// Results keep the order of items. Only catalog errors and cancellation abort the batch; remote
// failures are recorded in the per-item outcome.
func (e *Engine) AcquireAll(ctx context.Context, jobName string, items []models.PlaylistItem, formats []models.Format, videosFolder string, opts AcquireOptions, progress chan<- ProgressUpdate) ([]*Acquisition, error) {
	results := make([]*Acquisition, len(items))
	total := len(items)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, item := range items {
		g.Go(func() error {
			video, err := e.catalog.Store().Videos.Get(gctx, item.VideoID)
			if err != nil {
				return err
			}

			acq, err := e.Acquire(gctx, jobName, video, formats, videosFolder, opts, progress)
			if err != nil {
				return err
			}
			acq.Item = item
			results[i] = acq

			step := int(done.Add(1))
			e.sendProgress(progress, acquireUpdate(jobName, step, total, video))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Acquire returns a local copy of video in the best acceptable format, downloading one when allowed.
//
// Only one acquisition per video id runs at a time across the engine. The returned error is
// reserved for catalog failures and cancellation.
func (e *Engine) Acquire(ctx context.Context, jobName string, video *models.Video, formats []models.Format, videosFolder string, opts AcquireOptions, progress chan<- ProgressUpdate) (*Acquisition, error) {
	unlock := e.videoLocks.Lock(video.ID)
	defer unlock()

	logger := e.logger.With("job", jobName, "video", video.ID)
	store := e.catalog.Store()
	acq := &Acquisition{Video: video}

	cached, err := store.LocalVideos.FindByFormats(ctx, video.ID, formats)
	if err != nil {
		return nil, err
	}
	if best := bestLocal(cached, formats); best != nil {
		acq.Local = best
		acq.Outcome = OutcomeCached
		return acq, nil
	}

	if opts.CheckOnly {
		acq.Outcome = OutcomeMissing
		return acq, nil
	}

	if !opts.Force && (video.Status.Has(models.VideoPrivate) || video.Status.Has(models.VideoNoFormat)) {
		logger.Debug("skipping flagged video", "status", video.Status)
		acq.Outcome = OutcomeFlagged
		return acq, nil
	}

	e.sendProgress(progress, newVideoUpdate(jobName, video, e.uploaderName(ctx, video)))
	logger.Info("new video", "title", video.Title)

	if opts.NoDownload {
		acq.Outcome = OutcomeMissing
		return acq, nil
	}

	if e.feed == nil || e.resolver == nil || e.downloader == nil {
		return nil, fmt.Errorf("%w: acquisition collaborators not configured", shared.ErrServiceUnavailable)
	}

	probe, err := e.feed.ProbeVideo(ctx, video.ID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("failed to probe video", "error", err)
		acq.Outcome = OutcomeResolveFailed
		return acq, nil
	}
	if services.IsPrivateProbe(probe) {
		logger.Warn("video is private", "title", video.Title)
		if err := store.Videos.AddStatus(ctx, video.ID, models.VideoPrivate); err != nil {
			return nil, err
		}
		video.Status = video.Status.With(models.VideoPrivate)
		acq.Outcome = OutcomePrivate
		return acq, nil
	}

	offered, err := e.resolver.Resolve(ctx, video.ID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("could not resolve video", "error", err)
		acq.Outcome = OutcomeResolveFailed
		return acq, nil
	}

	format, url, ok := pickFormat(formats, offered)
	if !ok {
		logger.Warn("video has no format allowed by the profile and quality settings")
		if err := store.Videos.AddStatus(ctx, video.ID, models.VideoNoFormat); err != nil {
			return nil, err
		}
		video.Status = video.Status.With(models.VideoNoFormat)
		acq.Outcome = OutcomeNoFormat
		return acq, nil
	}

	local, err := e.download(ctx, jobName, video, format, url, videosFolder, progress)
	if err != nil {
		return nil, err
	}
	if local == nil {
		acq.Outcome = OutcomeDownloadFailed
		return acq, nil
	}

	acq.Local = local
	acq.Outcome = OutcomeDownloaded
	return acq, nil
}

// download fetches url with up to e.attempts immediate attempts and records the file.
// A nil LocalVideo with a nil error means every attempt failed.
func (e *Engine) download(ctx context.Context, jobName string, video *models.Video, format models.Format, url, videosFolder string, progress chan<- ProgressUpdate) (*models.LocalVideo, error) {
	logger := e.logger.With("job", jobName, "video", video.ID)

	base := shared.ToFilename(video.ID + "-" + shared.GenerateHexID())
	location := filepath.Join(videosFolder, base+"."+quality.Extension(format))
	dest := shared.MakeAbsolute(location, e.root)

	var size int64
	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		e.sendProgress(progress, downloadStartUpdate(jobName, video, format, attempt, e.attempts))

		n, err := e.downloader.Download(ctx, url, dest, nil)
		if err == nil {
			size, lastErr = n, nil
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		logger.Warn("download attempt failed", "attempt", attempt, "of", e.attempts, "error", err)
	}
	if lastErr != nil {
		logger.Error("giving up on video", "attempts", e.attempts, "error", lastErr)
		return nil, nil
	}

	local := &models.LocalVideo{
		VideoID:  video.ID,
		Format:   format,
		Location: filepath.ToSlash(location),
	}
	if err := e.catalog.Store().LocalVideos.Create(ctx, local); err != nil {
		return nil, err
	}

	e.sendProgress(progress, downloadDoneUpdate(jobName, video, local, size))
	return local, nil
}

func (e *Engine) uploaderName(ctx context.Context, video *models.Video) string {
	if video.UserID == "" {
		return ""
	}
	u, err := e.catalog.Store().Users.Get(ctx, video.UserID)
	if err != nil {
		return ""
	}
	return u.Name
}

// bestLocal returns the candidate whose format ranks first in formats.
func bestLocal(candidates []*models.LocalVideo, formats []models.Format) *models.LocalVideo {
	var best *models.LocalVideo
	bestRank := len(formats)
	for _, lv := range candidates {
		rank := slices.Index(formats, lv.Format)
		if rank >= 0 && rank < bestRank {
			best, bestRank = lv, rank
		}
	}
	return best
}

// pickFormat returns the first format of the lookup table that the resolver offers.
func pickFormat(formats []models.Format, offered map[models.Format]string) (models.Format, string, bool) {
	for _, f := range formats {
		if url, ok := offered[f]; ok && url != "" {
			return f, url, true
		}
	}
	return 0, "", false
}
