package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/tasks"
)

// Printer renders [tasks.ProgressUpdate] values as styled lines.
type Printer struct {
	w       io.Writer
	palette *Palette
	verbose bool
}

// NewPrinter creates a Printer writing to w. Per-attempt download lines are only shown when verbose is set.
func NewPrinter(w io.Writer, palette *Palette, verbose bool) *Printer {
	if palette == nil {
		palette = PaletteFor(w)
	}
	return &Printer{w: w, palette: palette, verbose: verbose}
}

// Drain prints updates until the channel is closed.
func (p *Printer) Drain(updates <-chan tasks.ProgressUpdate) {
	for u := range updates {
		p.Print(u)
	}
}

// Print writes one update.
func (p *Printer) Print(u tasks.ProgressUpdate) {
	if line, ok := p.Line(u); ok {
		fmt.Fprintln(p.w, line)
	}
}

// Line formats an update; ok is false for updates that are not shown.
func (p *Printer) Line(u tasks.ProgressUpdate) (line string, ok bool) {
	pal := p.palette
	switch u.Phase {
	case tasks.StartJob:
		return pal.Title(u.Message), true
	case tasks.SyncPlaylist:
		return "  " + u.Message, true
	case tasks.AcquireVideos:
		if _, isNew := u.Data.(*models.Video); isNew {
			return "  " + pal.Warn(u.Message), true
		}
		return "  " + pal.Help(u.Message), p.verbose
	case tasks.DownloadVideo:
		if _, done := u.Data.(*models.LocalVideo); done {
			return "  " + pal.OK(u.Message), true
		}
		return "  " + pal.Help(u.Message), p.verbose
	case tasks.WriteManifest:
		return "  " + pal.Help(u.Message), true
	case tasks.FinishJob:
		res, _ := u.Data.(*tasks.JobResult)
		switch {
		case res != nil && res.Err != nil:
			return pal.Err(u.Message), true
		case res != nil && res.Skipped:
			return pal.Warn(u.Message), true
		default:
			return pal.OK(u.Message), true
		}
	case tasks.ImportLegacy:
		if res, _ := u.Data.(*tasks.ImportResult); res != nil && res.Err != nil {
			return pal.Err(fmt.Sprintf("✗ %s: %v", u.Job, res.Err)), true
		}
		return pal.OK(u.Message), true
	default:
		return strings.TrimSpace(u.Message), u.Message != ""
	}
}
