package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
//
// A plain palette (see [PlainPalette]) renders text unchanged.
type Palette struct {
	plain bool
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// DefaultPalette is the palette used on color terminals.
func DefaultPalette() *Palette {
	return NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")
}

// PlainPalette returns a palette that never emits escape sequences.
func PlainPalette() *Palette {
	return &Palette{plain: true}
}

// PaletteFor picks [DefaultPalette] when w is a terminal and [PlainPalette] otherwise.
func PaletteFor(w io.Writer) *Palette {
	if ShouldColorize(w) {
		return DefaultPalette()
	}
	return PlainPalette()
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func (p *Palette) Title(s string) string { return p.render(p.title, s) }
func (p *Palette) OK(s string) string { return p.render(p.ok, s) }
func (p *Palette) Err(s string) string { return p.render(p.err, s) }
func (p *Palette) Warn(s string) string { return p.render(p.warn, s) }
func (p *Palette) Help(s string) string { return p.render(p.help, s) }

func (p *Palette) render(style lipgloss.Style, s string) string {
	if p.plain {
		return s
	}
	return style.Render(s)
}

// ShouldColorize reports whether w is an interactive terminal.
func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
