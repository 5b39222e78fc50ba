package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/jamlist/internal/services"
	"github.com/desertthunder/jamlist/internal/shared"
	"github.com/desertthunder/jamlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// DraftShow prints the working set.
func (r *Runner) DraftShow(ctx context.Context, cmd *cli.Command) error {
	ws, err := r.openWorkspace(false)
	if err != nil {
		return err
	}

	list, err := ws.Tracklist()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, true)
	}
	return r.writePlain("%s", ui.Tracklist(list))
}

// DraftAdd searches for a term and adds the picked result to the working set.
func (r *Runner) DraftAdd(ctx context.Context, cmd *cli.Command) error {
	term := strings.TrimSpace(cmd.StringArg("term"))
	if term == "" {
		return fmt.Errorf("%w: search term", shared.ErrMissingArgument)
	}

	if _, err := r.authorize(ctx, false); err != nil {
		return err
	}
	client, err := r.spotifyClient()
	if err != nil {
		return err
	}

	tracks, err := client.Search(ctx, term)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("%w: no tracks match %q", shared.ErrNotFound, term)
	}

	return r.addResult(tracks, cmd.Int("pick"))
}

// DraftRemove removes a track from the working set.
func (r *Runner) DraftRemove(ctx context.Context, cmd *cli.Command) error {
	ws, err := r.openWorkspace(false)
	if err != nil {
		return err
	}

	trackID := strings.TrimSpace(cmd.StringArg("track-id"))
	removed, err := ws.Remove(trackID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: track %s is not in the working set", shared.ErrNotFound, trackID)
	}
	return r.writePlain("%s\n", ui.Success("Removed %s", trackID))
}

// DraftRename sets the working set's playlist name.
func (r *Runner) DraftRename(ctx context.Context, cmd *cli.Command) error {
	ws, err := r.openWorkspace(false)
	if err != nil {
		return err
	}

	if err := ws.Rename(cmd.StringArg("name")); err != nil {
		return err
	}

	name, err := ws.Name()
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Success("Renamed to %s", name))
}

// DraftLoad replaces the working set with an existing playlist. Without --name the playlist's own name is used.
func (r *Runner) DraftLoad(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.String("id"))
	name := cmd.String("name")

	if name == "" {
		playlists, err := r.userPlaylists(ctx)
		if err != nil {
			return err
		}
		for _, p := range playlists {
			if p.ID == id {
				name = p.Name
				break
			}
		}
	} else if _, err := r.authorize(ctx, false); err != nil {
		return err
	}

	ws, err := r.openWorkspace(true)
	if err != nil {
		return err
	}

	list, err := ws.Load(ctx, id, name)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Success("Loaded %s (%d tracks)", list.Name, len(list.Tracks)))
}

// DraftSave writes the working set to Spotify, creating or updating a playlist, and resets it on success.
func (r *Runner) DraftSave(ctx context.Context, cmd *cli.Command) error {
	ws, err := r.openWorkspace(false)
	if err != nil {
		return err
	}

	list, err := ws.Tracklist()
	if err != nil {
		return err
	}
	if len(list.Tracks) == 0 {
		return r.writePlain("%s\n", ui.Warning("The working set is empty, nothing to save"))
	}

	if _, err := r.authorize(ctx, false); err != nil {
		return err
	}
	if ws, err = r.openWorkspace(true); err != nil {
		return err
	}

	id, err := ws.Save(ctx)
	var saveErr *services.SaveError
	if errors.As(err, &saveErr) && saveErr.PlaylistID != "" {
		r.writePlain("%s\n", ui.Warning("Playlist %s was written partially (failed at %s); the working set was kept", saveErr.PlaylistID, saveErr.Step))
	}
	if err != nil {
		return err
	}
	if id == "" {
		return r.writePlain("%s\n", ui.Warning("Nothing to save"))
	}

	r.writePlain("%s\n", ui.Success("Saved %s (%d tracks)", list.Name, len(list.Tracks)))
	return r.writePlain("https://open.spotify.com/playlist/%s\n", id)
}

// DraftClear empties the working set.
func (r *Runner) DraftClear(ctx context.Context, cmd *cli.Command) error {
	ws, err := r.openWorkspace(false)
	if err != nil {
		return err
	}

	if err := ws.Reset(); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Success("Working set cleared"))
}
