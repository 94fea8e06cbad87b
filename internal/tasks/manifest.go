package tasks

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

const (
	xspfNamespace = "http://xspf.org/ns/0/"
	xspfComment   = " Created by youfeed "
	watchURL      = "http://youtube.com/watch?v="
)

// Manifest is a playlist document referencing acquired local files.
type Manifest struct {
	Title   string
	Creator string
	Tracks  []Track
}

// Track is one entry of a [Manifest]. Duration is in milliseconds.
type Track struct {
	Locations  []string
	Title      string
	Creator    string
	Annotation string
	Duration   int
	Info       string
	Image      string
}

type xspfPlaylist struct {
	XMLName   xml.Name      `xml:"playlist"`
	Xmlns     string        `xml:"xmlns,attr"`
	Version   string        `xml:"version,attr"`
	Comment   xml.Comment   `xml:",comment"`
	Title     string        `xml:"title"`
	Creator   string        `xml:"creator"`
	TrackList xspfTrackList `xml:"trackList"`
}

type xspfTrackList struct {
	Tracks []xspfTrack `xml:"track"`
}

type xspfTrack struct {
	Locations  []string `xml:"location"`
	Title      string   `xml:"title,omitempty"`
	Creator    string   `xml:"creator,omitempty"`
	Annotation string   `xml:"annotation,omitempty"`
	Duration   int      `xml:"duration,omitempty"`
	Info       string   `xml:"info,omitempty"`
	Image      string   `xml:"image,omitempty"`
}

// Encode renders the manifest as an XSPF document. Equal manifests encode to equal bytes.
func (m *Manifest) Encode() ([]byte, error) {
	doc := xspfPlaylist{
		Xmlns:   xspfNamespace,
		Version: "1",
		Comment: xml.Comment(xspfComment),
		Title:   m.Title,
		Creator: m.Creator,
	}
	doc.TrackList.Tracks = make([]xspfTrack, 0, len(m.Tracks))
	for _, t := range m.Tracks {
		doc.TrackList.Tracks = append(doc.TrackList.Tracks, xspfTrack(t))
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// BuildManifest turns the available acquisitions into a [Manifest], dropping the rest.
//
// Every track carries the root-relative location when relPath is set and always the absolute one.
func (e *Engine) BuildManifest(ctx context.Context, playlist *models.Playlist, acqs []*Acquisition, relPath bool) (*Manifest, error) {
	m := &Manifest{Title: playlist.Title, Creator: playlist.UserName}
	names := make(map[string]string)

	for _, acq := range acqs {
		if !acq.Available() {
			continue
		}
		v := acq.Video

		creator, ok := names[v.UserID]
		if !ok && v.UserID != "" {
			u, err := e.catalog.Store().Users.Get(ctx, v.UserID)
			if err != nil && !errors.Is(err, shared.ErrUserNotFound) {
				return nil, err
			}
			if u != nil {
				creator = u.Name
			}
			names[v.UserID] = creator
		}

		locations := make([]string, 0, 2)
		if relPath {
			locations = append(locations, "file://"+filepath.ToSlash(acq.Local.Location))
		}
		abs := shared.MakeAbsolute(filepath.FromSlash(acq.Local.Location), e.root)
		locations = append(locations, "file://"+filepath.ToSlash(abs))

		track := Track{
			Locations:  locations,
			Title:      v.Title,
			Creator:    creator,
			Annotation: v.Description,
			Duration:   v.Duration * 1000,
			Info:       watchURL + v.ID,
		}
		if len(v.Thumbnails) > 0 {
			track.Image = v.Thumbnails[0].URL
		}
		m.Tracks = append(m.Tracks, track)
	}
	return m, nil
}

// Materialize writes the manifest for job into the playlists folder and to the job's export path.
// It returns the path of the primary manifest.
func (e *Engine) Materialize(ctx context.Context, job *models.Job, playlist *models.Playlist, acqs []*Acquisition, s *jobSettings, progress chan<- ProgressUpdate) (string, error) {
	m, err := e.BuildManifest(ctx, playlist, acqs, s.RelPath)
	if err != nil {
		return "", err
	}
	data, err := m.Encode()
	if err != nil {
		return "", err
	}

	target := job.Target
	if target == "" {
		target = playlist.Title
	}
	if target == "" {
		target = playlist.ID
	}

	name := shared.ToFilename(target) + ".xspf"
	path := shared.MakeAbsolute(filepath.Join(s.PlaylistsFolder, name), e.root)
	if err := shared.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}

	if job.Export != "" {
		export := shared.MakeAbsolute(job.Export, e.root)
		if err := shared.WriteFileAtomic(export, data); err != nil {
			return "", fmt.Errorf("failed to write manifest export: %w", err)
		}
	}

	e.logger.Info("wrote manifest", "job", job.Name, "path", path, "tracks", len(m.Tracks))
	e.sendProgress(progress, manifestUpdate(job.Name, path, len(m.Tracks)))
	return path, nil
}
