// package formatter renders catalog playlists as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/quality"
	"github.com/desertthunder/youfeed/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists the supported export formats.
var Formats = []string{FormatCSV, FormatMarkdown, FormatText}

// Export renders export in the named format.
func Export(export *models.PlaylistExport, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown, "md":
		return ExportToMarkdown(export)
	case FormatText, "text":
		return ExportToText(export)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q (want %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// Extension returns the file extension for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return "md"
	case FormatCSV:
		return "csv"
	default:
		return "txt"
	}
}

// ExportToCSV converts a PlaylistExport to CSV with columns: Index, VideoID, Title, Creator, Duration, Format, Location
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "VideoID", "Title", "Creator", "Duration", "Format", "Location"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range export.Entries {
		format, location := "", ""
		if e.Local != nil {
			format = strconv.Itoa(int(e.Local.Format))
			location = e.Local.Location
		}
		record := []string{
			strconv.Itoa(e.Index),
			e.Video.ID,
			e.Video.Title,
			e.Creator,
			strconv.Itoa(e.Video.Duration),
			format,
			location,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown, using the first video's thumbnail as cover
func ExportToMarkdown(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	pl := export.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", titleOf(pl))

	if cover := coverURL(export); cover != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", cover)
	}

	if pl.UserName != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", pl.UserName)
	}
	if pl.Summary != "" {
		fmt.Fprintf(&buf, "**Summary**: %s\n", pl.Summary)
	}
	fmt.Fprintf(&buf, "**Videos**: %d\n", len(export.Entries))
	fmt.Fprintf(&buf, "**Local**: %d\n\n", countLocal(export))

	buf.WriteString("## Videos\n\n")
	for _, e := range export.Entries {
		creator := ""
		if e.Creator != "" {
			creator = " - " + e.Creator
		}
		status := ""
		switch {
		case e.Local != nil:
			status = fmt.Sprintf(" (%s)", quality.Describe(e.Local.Format))
		case e.Video.Status != 0:
			status = fmt.Sprintf(" (%s)", e.Video.Status)
		}
		fmt.Fprintf(&buf, "%d. %s%s [%s]%s\n", e.Index, videoTitle(e.Video), creator, FormatDuration(e.Video.Duration), status)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	pl := export.Playlist

	fmt.Fprintf(&buf, "Playlist: %s\n", titleOf(pl))
	if pl.UserName != "" {
		fmt.Fprintf(&buf, "Owner: %s\n", pl.UserName)
	}
	fmt.Fprintf(&buf, "Videos: %d\n\n", len(export.Entries))

	for _, e := range export.Entries {
		marker := " "
		if e.Local != nil {
			marker = "*"
		}
		fmt.Fprintf(&buf, "%s %d. %s\n", marker, e.Index, videoTitle(e.Video))
	}

	return buf.Bytes(), nil
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func titleOf(pl models.Playlist) string {
	if pl.Title != "" {
		return pl.Title
	}
	return pl.ID
}

func videoTitle(v models.Video) string {
	if v.Title != "" {
		return v.Title
	}
	return v.ID
}

func coverURL(export *models.PlaylistExport) string {
	for _, e := range export.Entries {
		if len(e.Video.Thumbnails) > 0 {
			return e.Video.Thumbnails[0].URL
		}
	}
	return ""
}

func countLocal(export *models.PlaylistExport) int {
	n := 0
	for _, e := range export.Entries {
		if e.Local != nil {
			n++
		}
	}
	return n
}
