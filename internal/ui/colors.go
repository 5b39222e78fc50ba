package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
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

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Title renders a heading.
func Title(text string) string {
	return styles.title.Render(text)
}

// Success renders a ✓ status line.
func Success(format string, args ...any) string {
	return styles.ok.Render("✓") + " " + fmt.Sprintf(format, args...)
}

// Failure renders a ✗ status line.
func Failure(format string, args ...any) string {
	return styles.err.Render("✗") + " " + fmt.Sprintf(format, args...)
}

// Warning renders a ! status line.
func Warning(format string, args ...any) string {
	return styles.warn.Render("! " + fmt.Sprintf(format, args...))
}

// Hint renders de-emphasized help text.
func Hint(format string, args ...any) string {
	return styles.help.Render(fmt.Sprintf(format, args...))
}
