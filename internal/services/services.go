// package services defines the remote collaborators of a synchronization run
//
// Feed provider (GData Atom API), video resolver (HTTP proxy), media downloader
package services

import (
	"context"
	"time"

	"github.com/desertthunder/youfeed/internal/models"
)

// FeedProvider reads remote feed pages, user records and accessibility probes.
type FeedProvider interface {
	// FetchPage returns one page of a playlist or favorites feed.
	// When req.Next is set it is followed verbatim and Kind/Resource are ignored.
	FetchPage(ctx context.Context, req PageRequest) (*FeedPage, error)

	// FetchUser returns the display name and handle of a user, or [shared.ErrUserSuspended]
	// when the account was removed or suspended.
	FetchUser(ctx context.Context, userID string) (*FeedUser, error)

	// ProbeVideo returns up to [ProbeSize] leading bytes of the video's metadata document.
	ProbeVideo(ctx context.Context, videoID string) ([]byte, error)
}

// VideoResolver returns the download URLs offered for a video, keyed by format.
type VideoResolver interface {
	Resolve(ctx context.Context, videoID string) (map[models.Format]string, error)
}

// ProgressFunc receives the number of bytes written so far and the expected total (-1 when unknown).
type ProgressFunc func(written, total int64)

// Downloader transfers a media URL to a local file.
type Downloader interface {
	Download(ctx context.Context, url, dest string, progress ProgressFunc) (int64, error)
}

// ProbeSize is how many bytes [FeedProvider.ProbeVideo] reads.
const ProbeSize = 512

// PrivateSentinel is the probe body the remote returns for access-restricted videos.
const PrivateSentinel = "Private Video"

// IsPrivateProbe reports whether a probe identifies a private video.
func IsPrivateProbe(probe []byte) bool {
	return string(probe) == PrivateSentinel
}

// PageRequest selects the first page of a feed or a continuation.
type PageRequest struct {
	Kind     models.SourceType
	Resource string
	Next     string
}

// FeedPage is one page of a feed.
type FeedPage struct {
	Title   string
	Author  FeedAuthor
	Entries []FeedEntry
	Next    string
}

// FeedAuthor is the owner named in a feed header.
type FeedAuthor struct {
	Name   string
	UserID string
}

// FeedEntry is one video observed in a feed. Nil pointers and nil slices were absent from the payload.
type FeedEntry struct {
	VideoID      string
	Position     *int
	UploaderID   string
	UploaderName string
	Title        *string
	Description  *string
	Keywords     []string
	Categories   []string
	Thumbnails   []models.Thumbnail
	Uploaded     *time.Time
	Duration     *int
}

// Patch converts the entry into a [models.VideoPatch]. The uploader becomes the owner when known.
func (e FeedEntry) Patch() models.VideoPatch {
	p := models.VideoPatch{
		Title:       e.Title,
		Description: e.Description,
		Keywords:    e.Keywords,
		Categories:  e.Categories,
		Thumbnails:  e.Thumbnails,
		Uploaded:    e.Uploaded,
		Duration:    e.Duration,
	}
	if e.UploaderID != "" {
		id := e.UploaderID
		p.UserID = &id
	}
	return p
}

// FeedUser is the result of a user lookup.
type FeedUser struct {
	ID       string
	Username string
	Name     string
}
