package tasks

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/quality"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Job     string // Job the update belongs to, empty outside jobs
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	StartJob Phase = iota
	SyncPlaylist
	AcquireVideos
	DownloadVideo
	WriteManifest
	FinishJob
	ImportLegacy
)

func (p Phase) String() string {
	switch p {
	case StartJob:
		return "start_job"
	case SyncPlaylist:
		return "sync_playlist"
	case AcquireVideos:
		return "acquire_videos"
	case DownloadVideo:
		return "download_video"
	case WriteManifest:
		return "write_manifest"
	case FinishJob:
		return "finish_job"
	case ImportLegacy:
		return "import_legacy"
	default:
		return ""
	}
}

func startJobUpdate(job *models.Job) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StartJob,
		Job:     job.Name,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Job: %s", job.Name),
		Data:    job,
	}
}

func syncPageUpdate(job string, page int, pl *models.Playlist) ProgressUpdate {
	msg := fmt.Sprintf("Fetching page %d...", page)
	if pl != nil && pl.Title != "" {
		msg = fmt.Sprintf("Playlist: '%s' by %s (page %d)", pl.Title, pl.UserName, page)
	}
	return ProgressUpdate{
		Phase:   SyncPlaylist,
		Job:     job,
		Step:    page,
		Total:   0,
		Message: msg,
	}
}

func syncDoneUpdate(job string, res *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncPlaylist,
		Job:     job,
		Step:    res.Pages,
		Total:   res.Pages,
		Message: fmt.Sprintf("Synced %d entries (%d new videos, %d new items)", res.Entries, res.NewVideos, res.NewItems),
		Data:    res,
	}
}

func acquireUpdate(job string, step, total int, v *models.Video) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AcquireVideos,
		Job:     job,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, videoLabel(v)),
	}
}

func newVideoUpdate(job string, v *models.Video, uploader string) ProgressUpdate {
	msg := fmt.Sprintf("New video: '%s'", videoLabel(v))
	if uploader != "" {
		msg = fmt.Sprintf("New video: '%s' by %s", videoLabel(v), uploader)
	}
	return ProgressUpdate{
		Phase:   AcquireVideos,
		Job:     job,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    v,
	}
}

func downloadStartUpdate(job string, v *models.Video, f models.Format, attempt, attempts int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadVideo,
		Job:     job,
		Step:    attempt,
		Total:   attempts,
		Message: fmt.Sprintf("Downloading '%s' as %s (attempt %d/%d)", videoLabel(v), quality.Describe(f), attempt, attempts),
	}
}

func downloadDoneUpdate(job string, v *models.Video, lv *models.LocalVideo, size int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadVideo,
		Job:     job,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %s (%s, %s)", videoLabel(v), lv.Location, humanize.Bytes(uint64(max(size, 0)))),
		Data:    lv,
	}
}

func manifestUpdate(job, path string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Job:     job,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Wrote %s (%d tracks)", path, tracks),
	}
}

func finishJobUpdate(res *JobResult) ProgressUpdate {
	msg := fmt.Sprintf("✓ %s: %d/%d videos available", res.Job, res.Acquired, res.Items)
	if res.Err != nil {
		msg = fmt.Sprintf("✗ %s: %v", res.Job, res.Err)
	} else if res.Skipped {
		msg = fmt.Sprintf("- %s: disabled", res.Job)
	}
	return ProgressUpdate{
		Phase:   FinishJob,
		Job:     res.Job,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    res,
	}
}

func importUpdate(step, total int, name string, res *ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportLegacy,
		Job:     name,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Imported %s (%d videos, %d files)", step, total, name, res.Videos, res.LocalVideos),
		Data:    res,
	}
}

func videoLabel(v *models.Video) string {
	if v == nil {
		return ""
	}
	if v.Title != "" {
		return v.Title
	}
	return v.ID
}
