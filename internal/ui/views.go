package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/jamlist/internal/models"
)

// TrackLine renders one numbered track: "  1. Artist - Name (Album)  id".
func TrackLine(n int, t models.Track) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%3d. %s - %s", n, t.Artist, t.Name)
	if t.Album != "" {
		fmt.Fprintf(&b, " (%s)", t.Album)
	}
	b.WriteString("  ")
	b.WriteString(Hint("%s", t.ID))
	return b.String()
}

// TrackList renders tracks one per line, numbered from 1.
func TrackList(tracks []models.Track) string {
	if len(tracks) == 0 {
		return Hint("no tracks") + "\n"
	}

	var b strings.Builder
	for i, t := range tracks {
		b.WriteString(TrackLine(i+1, t))
		b.WriteByte('\n')
	}
	return b.String()
}

// PlaylistList renders playlist summaries one per line.
func PlaylistList(playlists []models.PlaylistSummary) string {
	if len(playlists) == 0 {
		return Hint("no playlists") + "\n"
	}

	var b strings.Builder
	for i, p := range playlists {
		fmt.Fprintf(&b, "%3d. %s  %s\n", i+1, p.Name, Hint("%s", p.ID))
	}
	return b.String()
}

// Tracklist renders a working set with its name, bound playlist and tracks.
func Tracklist(list *models.Tracklist) string {
	var b strings.Builder
	b.WriteString(Title(list.Name))
	b.WriteByte('\n')
	if list.PlaylistID != "" {
		b.WriteString(Hint("updates playlist %s", list.PlaylistID))
	} else {
		b.WriteString(Hint("saves as a new playlist"))
	}
	fmt.Fprintf(&b, "\n%d tracks\n\n", len(list.Tracks))
	b.WriteString(TrackList(list.Tracks))
	return b.String()
}
