// Package ui renders CLI output with a small [lipgloss] palette.
//
// Status helpers ([Success], [Failure], [Warning], [Hint]) prefix a styled marker; the views render tracks,
// playlists and the working set as plain numbered lists. Styles degrade to plain text when stdout is not a terminal.
package ui
