package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamlist/internal/models"
	"github.com/desertthunder/jamlist/internal/shared"
)

const (
	// KeyDraftName stores the working set's playlist name.
	KeyDraftName = "draft_name"
	// KeyDraftPlaylistID stores the id of the remote playlist the working set was loaded from.
	KeyDraftPlaylistID = "draft_playlist_id"
	// DefaultDraftName is the name of a fresh working set.
	DefaultDraftName = "New Playlist"
)

// Workspace is the working set of tracks the user is building into a playlist.
//
// It survives between invocations: tracks live in a [DraftStore] and the name and bound playlist id in a
// [models.KeyValueStore]. A working set loaded from a remote playlist saves back to it.
type Workspace struct {
	drafts DraftStore
	kv     models.KeyValueStore
	remote PlaylistService
	logger *log.Logger
}

// NewWorkspace creates a Workspace. remote may be nil for commands that never touch the network.
func NewWorkspace(drafts DraftStore, kv models.KeyValueStore, remote PlaylistService, logger *log.Logger) *Workspace {
	return &Workspace{
		drafts: drafts,
		kv:     kv,
		remote: remote,
		logger: shared.WithLogger(logger, "component", "workspace"),
	}
}

// Add appends track unless a track with the same id is already present. It reports whether the track was added.
func (w *Workspace) Add(track models.Track) (bool, error) {
	added, err := w.drafts.Add(track)
	if err != nil {
		return false, err
	}
	if !added {
		w.logger.Debug("track already in working set", "id", track.ID)
	}
	return added, nil
}

// Remove drops the track with trackID, keeping the order of the rest.
func (w *Workspace) Remove(trackID string) (bool, error) {
	if trackID == "" {
		return false, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	return w.drafts.Remove(trackID)
}

// Rename sets the playlist name used on save.
func (w *Workspace) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}
	return w.kv.Set(KeyDraftName, name)
}

// Name returns the playlist name, [DefaultDraftName] when none was set.
func (w *Workspace) Name() (string, error) {
	name, ok, err := w.kv.Get(KeyDraftName)
	if err != nil {
		return "", err
	}
	if !ok {
		return DefaultDraftName, nil
	}
	return name, nil
}

// PlaylistID returns the bound remote playlist id, or "" for a working set that will create a new playlist.
func (w *Workspace) PlaylistID() (string, error) {
	id, _, err := w.kv.Get(KeyDraftPlaylistID)
	return id, err
}

// Tracks returns the working set in order.
func (w *Workspace) Tracks() ([]models.Track, error) {
	return w.drafts.List()
}

// Tracklist returns the whole working set.
func (w *Workspace) Tracklist() (*models.Tracklist, error) {
	name, err := w.Name()
	if err != nil {
		return nil, err
	}
	playlistID, err := w.PlaylistID()
	if err != nil {
		return nil, err
	}
	tracks, err := w.Tracks()
	if err != nil {
		return nil, err
	}
	return &models.Tracklist{Name: name, PlaylistID: playlistID, Tracks: tracks}, nil
}

// Load replaces the working set with the tracks of a remote playlist and binds to it, so the next save updates it.
//
// Tracks without an id or uri (local files) are skipped.
func (w *Workspace) Load(ctx context.Context, playlistID, name string) (*models.Tracklist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if w.remote == nil {
		return nil, fmt.Errorf("%w: no playlist service configured", shared.ErrInvalidConfig)
	}

	tracks, err := w.remote.Playlist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist %s: %w", playlistID, err)
	}

	playable := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			w.logger.Debug("skipping track", "error", err)
			continue
		}
		playable = append(playable, t)
	}

	if err := w.drafts.Replace(playable); err != nil {
		return nil, err
	}
	if err := w.kv.Set(KeyDraftPlaylistID, playlistID); err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name == "" {
		name = DefaultDraftName
	}
	if err := w.kv.Set(KeyDraftName, name); err != nil {
		return nil, err
	}

	w.logger.Info("loaded playlist into working set", "id", playlistID, "tracks", len(playable))
	return w.Tracklist()
}

// Save writes the working set to the remote service and, on success, resets it.
//
// It returns the saved playlist id, or "" without calling the service when the name or the track list is empty.
// On failure the working set is left untouched.
func (w *Workspace) Save(ctx context.Context) (string, error) {
	list, err := w.Tracklist()
	if err != nil {
		return "", err
	}
	if list.Name == "" || len(list.Tracks) == 0 {
		w.logger.Debug("nothing to save", "name", list.Name, "tracks", len(list.Tracks))
		return "", nil
	}
	if w.remote == nil {
		return "", fmt.Errorf("%w: no playlist service configured", shared.ErrInvalidConfig)
	}

	id, err := w.remote.SavePlaylist(ctx, list.Name, list.URIs(), list.PlaylistID)
	if err != nil {
		return "", err
	}

	w.logger.Info("saved working set", "id", id, "tracks", len(list.Tracks), "update", list.PlaylistID != "")
	if err := w.Reset(); err != nil {
		return id, fmt.Errorf("playlist %s saved but the working set was not reset: %w", id, err)
	}
	return id, nil
}

// Reset empties the working set: default name, no tracks and no bound playlist.
func (w *Workspace) Reset() error {
	if err := w.drafts.Clear(); err != nil {
		return err
	}
	return w.kv.Delete(KeyDraftName, KeyDraftPlaylistID)
}
