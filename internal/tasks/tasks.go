package tasks

import (
	"context"

	"github.com/desertthunder/jamlist/internal/models"
)

// PlaylistSource reads the tracks of a remote playlist.
type PlaylistSource interface {
	Playlist(ctx context.Context, playlistID string) ([]models.Track, error)
}

// PlaylistService reads and writes remote playlists.
//
// SavePlaylist creates a playlist when playlistID is empty and updates it otherwise, returning the playlist id.
type PlaylistService interface {
	PlaylistSource
	SavePlaylist(ctx context.Context, name string, uris []string, playlistID string) (string, error)
}

// DraftStore persists the ordered working set of tracks.
//
// Add reports false when a track with the same id is already present; Remove reports false when none matched.
type DraftStore interface {
	Add(track models.Track) (bool, error)
	Remove(trackID string) (bool, error)
	List() ([]models.Track, error)
	Replace(tracks []models.Track) error
	Clear() error
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
