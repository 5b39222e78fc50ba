package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/jamlist/internal/models"
	"github.com/desertthunder/jamlist/internal/shared"
	"github.com/desertthunder/jamlist/internal/tasks"
	"github.com/desertthunder/jamlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Search looks up tracks and optionally adds one of the results to the working set.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
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

	r.logger.Debug("searching tracks", "term", term)
	tracks, err := client.Search(ctx, term)
	if err != nil {
		return err
	}

	if n := cmd.Int("add"); n != 0 {
		if err := r.addResult(tracks, n); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}
	return r.writePlain("%s", ui.TrackList(tracks))
}

// addResult adds the nth (1-based) track of results to the working set.
func (r *Runner) addResult(results []models.Track, n int) error {
	if n < 1 || n > len(results) {
		return fmt.Errorf("%w: result %d out of range (1-%d)", shared.ErrInvalidArgument, n, len(results))
	}

	ws, err := r.openWorkspace(false)
	if err != nil {
		return err
	}

	track := results[n-1]
	added, err := ws.Add(track)
	if err != nil {
		return err
	}
	if !added {
		return r.writePlain("%s\n", ui.Warning("%s - %s is already in the working set", track.Artist, track.Name))
	}
	return r.writePlain("%s\n", ui.Success("Added %s - %s", track.Artist, track.Name))
}

// Playlists lists the current user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	playlists, err := r.userPlaylists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}
	return r.writePlain("%s", ui.PlaylistList(playlists))
}

// PlaylistShow lists the tracks of one playlist.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")

	if _, err := r.authorize(ctx, false); err != nil {
		return err
	}
	client, err := r.spotifyClient()
	if err != nil {
		return err
	}

	tracks, err := client.Playlist(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(models.Tracklist{PlaylistID: id, Tracks: tracks}, true)
	}
	return r.writePlain("%s", ui.TrackList(tracks))
}

// PlaylistsExport writes playlists to files. With no --id every playlist of the user is exported.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	playlists, err := r.userPlaylists(ctx)
	if err != nil {
		return err
	}

	if ids := cmd.StringSlice("id"); len(ids) > 0 {
		playlists, err = selectPlaylists(playlists, ids)
		if err != nil {
			return err
		}
	}

	client, err := r.spotifyClient()
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := tasks.BulkExport(ctx, progress, client, playlists, tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  r.config.Spotify.RateLimit,
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n%s\n", ui.Success("Exported %d of %d playlists to %s", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory))
	if result.FailedExports > 0 {
		r.writePlain("%s\n", ui.Warning("%d playlists failed, see %s", result.FailedExports, result.ManifestPath))
	}
	return nil
}

func (r *Runner) userPlaylists(ctx context.Context) ([]models.PlaylistSummary, error) {
	if _, err := r.authorize(ctx, false); err != nil {
		return nil, err
	}
	client, err := r.spotifyClient()
	if err != nil {
		return nil, err
	}
	return client.UserPlaylists(ctx)
}

// selectPlaylists keeps the playlists named by ids, in the order given. Unknown ids are exported under their id.
func selectPlaylists(all []models.PlaylistSummary, ids []string) ([]models.PlaylistSummary, error) {
	byID := make(map[string]models.PlaylistSummary, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}

	selected := make([]models.PlaylistSummary, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: empty playlist id", shared.ErrInvalidArgument)
		}
		p, ok := byID[id]
		if !ok {
			p = models.PlaylistSummary{ID: id, Name: id}
		}
		selected = append(selected, p)
	}
	return selected, nil
}
