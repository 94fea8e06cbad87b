package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Format is a remote encoding code (e.g. 22 for 720p MP4).
type Format int

// User is an uploader or playlist owner known to the catalog.
type User struct {
	ID       string
	Username string
	Name     string
	Status   UserStatus
}

// Thumbnail is one preview image advertised for a [Video].
type Thumbnail struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Time   string `json:"time,omitempty"`
	URL    string `json:"url"`
}

// Video is the catalog mirror of a remote video.
//
// A video may exist with only an ID; the remaining fields are filled by [VideoPatch.Apply].
type Video struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Categories  []string
	Keywords    []string
	Thumbnails  []Thumbnail
	Uploaded    *time.Time
	Duration    int
	Status      VideoStatus
}

// VideoPatch carries the fields observed in one feed entry.
//
// Nil pointers and nil slices are absent and leave the stored value untouched; a non-nil empty slice clears it.
type VideoPatch struct {
	UserID      *string
	Title       *string
	Description *string
	Categories  []string
	Keywords    []string
	Thumbnails  []Thumbnail
	Uploaded    *time.Time
	Duration    *int
}

// Apply merges the present fields of p into v and reports whether anything changed.
func (p VideoPatch) Apply(v *Video) bool {
	changed := false
	setString := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setStrings := func(dst *[]string, src []string) {
		if src != nil && !slices.Equal(*dst, src) {
			*dst = slices.Clone(src)
			changed = true
		}
	}

	setString(&v.UserID, p.UserID)
	setString(&v.Title, p.Title)
	setString(&v.Description, p.Description)
	setStrings(&v.Categories, p.Categories)
	setStrings(&v.Keywords, p.Keywords)

	if p.Thumbnails != nil && !slices.Equal(v.Thumbnails, p.Thumbnails) {
		v.Thumbnails = slices.Clone(p.Thumbnails)
		changed = true
	}
	if p.Uploaded != nil && (v.Uploaded == nil || !v.Uploaded.Equal(*p.Uploaded)) {
		t := *p.Uploaded
		v.Uploaded = &t
		changed = true
	}
	if p.Duration != nil && v.Duration != *p.Duration {
		v.Duration = *p.Duration
		changed = true
	}
	return changed
}

// IsEmpty reports whether the patch carries no fields.
func (p VideoPatch) IsEmpty() bool {
	return p.UserID == nil && p.Title == nil && p.Description == nil &&
		p.Categories == nil && p.Keywords == nil && p.Thumbnails == nil &&
		p.Uploaded == nil && p.Duration == nil
}

// Playlist is the catalog mirror of a remote playlist or a user's favorites.
type Playlist struct {
	ID       string
	Title    string
	UserID   string
	UserName string
	URL      string
	Summary  string
}

// PlaylistItem places a video at an index within a playlist. Indices are unique per playlist.
type PlaylistItem struct {
	PlaylistID string
	Index      int
	VideoID    string
}

// PlaylistExport is a catalog view of one playlist, in item order, for textual exports.
type PlaylistExport struct {
	Playlist Playlist
	Entries  []ExportEntry
}

// ExportEntry is one item of a [PlaylistExport]. Local is nil when no file has been acquired.
type ExportEntry struct {
	Index   int
	Video   Video
	Creator string
	Local   *LocalVideo
}

// LocalVideo is an acquired media file. Location is relative to the storage root.
type LocalVideo struct {
	ID       string
	VideoID  string
	Format   Format
	Location string
	Created  time.Time
	Status   LocalStatus
}

// SourceType selects which remote feed a [Job] walks.
type SourceType string

const (
	SourcePlaylist  SourceType = "playlist"
	SourceFavorites SourceType = "favorites"
)

// FavoritesPrefix marks catalog playlist ids that stand for a user's favorites feed.
const FavoritesPrefix = "yf_favorites:"

// ParseSourceType validates a job type name.
func ParseSourceType(s string) (SourceType, error) {
	switch t := SourceType(strings.ToLower(strings.TrimSpace(s))); t {
	case SourcePlaylist, SourceFavorites:
		return t, nil
	default:
		return "", fmt.Errorf("unknown job type %q (want playlist or favorites)", s)
	}
}

// PlaylistIDFor returns the catalog playlist id for a remote resource.
func PlaylistIDFor(t SourceType, resource string) string {
	if t == SourceFavorites {
		return FavoritesPrefix + resource
	}
	return resource
}

// ResourceFor recovers the remote resource (playlist id or user name) from a catalog playlist id.
func ResourceFor(t SourceType, playlistID string) string {
	if t == SourceFavorites {
		return strings.TrimPrefix(playlistID, FavoritesPrefix)
	}
	return playlistID
}

// Job is a named synchronization target.
//
// Profile "" and a nil Quality defer to the catalog options and then to configuration defaults.
// An empty Target names the manifest after the playlist title.
type Job struct {
	Name       string
	Type       SourceType
	PlaylistID string
	Target     string
	Profile    string
	Quality    *int
	Export     string
	Range      IndexRange
	Status     JobStatus
}

// Resource returns the remote resource the job walks.
func (j *Job) Resource() string {
	return ResourceFor(j.Type, j.PlaylistID)
}

// Validate checks the fields a job needs before it is stored.
func (j *Job) Validate() error {
	switch {
	case strings.TrimSpace(j.Name) == "":
		return fmt.Errorf("job name is required")
	case j.PlaylistID == "":
		return fmt.Errorf("job %s: playlist is required", j.Name)
	}
	if _, err := ParseSourceType(string(j.Type)); err != nil {
		return fmt.Errorf("job %s: %w", j.Name, err)
	}
	if j.Quality != nil && *j.Quality <= 0 {
		return fmt.Errorf("job %s: quality must be positive", j.Name)
	}
	return nil
}

// Option keys stored in the catalog.
const (
	OptVideosFolder    = "videos_folder"
	OptPlaylistsFolder = "playlists_folder"
	OptDefaultProfile  = "default_profile"
	OptDefaultQuality  = "default_quality"
	OptXSPFRelPath     = "xspf_relpath"
	OptDBVersion       = "db_version"
)

// Option is a persistent key/value setting.
type Option struct {
	Key   string
	Value string
}

// ReadOnly reports whether the option is maintained by the catalog itself.
func (o Option) ReadOnly() bool {
	return IsReadOnlyOption(o.Key)
}

// IsReadOnlyOption reports whether key may not be changed by users.
func IsReadOnlyOption(key string) bool {
	return key == OptDBVersion
}
