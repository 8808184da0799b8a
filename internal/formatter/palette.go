package formatter

import "github.com/charmbracelet/lipgloss"

// Palette is a simple stylesheet built with named [lipgloss.Style] fields.
//
// Colors are dropped automatically when the output is not a terminal.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// DefaultPalette is used by the report helpers.
var DefaultPalette = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: newBold(t),
		ok:    newBold(s),
		err:   newBold(e),
		warn:  newStyle(w),
		help:  newEm(h),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func newBold(fg string) lipgloss.Style {
	return newStyle(fg).Bold(true)
}

func newEm(fg string) lipgloss.Style {
	return newStyle(fg).Italic(true)
}
