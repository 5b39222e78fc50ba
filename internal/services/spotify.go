// Spotify Web API operations used by the playlist builder
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/jamlist/internal/models"
)

const (
	playlistBatchSize = 100
	playlistPageSize  = 50
)

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyAlbum struct {
	Name string `json:"name"`
}

// spotifyTrack is a track object. Artists may be empty and Album may be absent.
type spotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []spotifyArtist `json:"artists"`
	Album   *spotifyAlbum   `json:"album"`
	URI     string          `json:"uri"`
}

// toModel maps the track using only the first listed artist.
func (t spotifyTrack) toModel() models.Track {
	track := models.Track{ID: t.ID, Name: t.Name, URI: t.URI}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	if t.Album != nil {
		track.Album = t.Album.Name
	}
	return track
}

type searchResponse struct {
	Tracks *struct {
		Items []*spotifyTrack `json:"items"`
	} `json:"tracks"`
}

// playlistItem wraps a playlist entry; Track is null for entries removed from the catalog.
type playlistItem struct {
	Track *spotifyTrack `json:"track"`
}

type playlistTracksPage struct {
	Items []playlistItem `json:"items"`
	Next  *string        `json:"next"`
}

type playlistsPage struct {
	Items []*struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"items"`
	Next *string `json:"next"`
}

type userProfile struct {
	ID string `json:"id"`
}

type createPlaylistRequest struct {
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

type renamePlaylistRequest struct {
	Name string `json:"name"`
}

type playlistIDResponse struct {
	ID string `json:"id"`
}

type tracksRequest struct {
	URIs []string `json:"uris"`
}

// Search finds tracks matching term. A response without a tracks section yields an empty, non-nil slice.
func (c *SpotifyClient) Search(ctx context.Context, term string) ([]models.Track, error) {
	query := url.Values{"q": {term}, "type": {"track"}}

	var resp searchResponse
	if err := c.doRequest(ctx, "search", http.MethodGet, "/search", query, nil, &resp); err != nil {
		return nil, err
	}

	tracks := []models.Track{}
	if resp.Tracks == nil {
		return tracks, nil
	}
	for _, item := range resp.Tracks.Items {
		if item == nil {
			continue
		}
		tracks = append(tracks, item.toModel())
	}
	return tracks, nil
}

// UserPlaylists lists every playlist of the current user, following pagination.
func (c *SpotifyClient) UserPlaylists(ctx context.Context) ([]models.PlaylistSummary, error) {
	userID, err := c.identity.UserID(ctx)
	if err != nil {
		return nil, err
	}

	path := "/users/" + url.PathEscape(userID) + "/playlists"
	playlists := []models.PlaylistSummary{}

	for offset := 0; ; offset += playlistPageSize {
		query := url.Values{"limit": {strconv.Itoa(playlistPageSize)}, "offset": {strconv.Itoa(offset)}}

		var page playlistsPage
		if err := c.doRequest(ctx, "list playlists", http.MethodGet, path, query, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item == nil {
				continue
			}
			playlists = append(playlists, models.PlaylistSummary{ID: item.ID, Name: item.Name})
		}

		if page.Next == nil || len(page.Items) == 0 {
			return playlists, nil
		}
	}
}

// Playlist returns the tracks of playlistID in order, skipping entries with no track.
func (c *SpotifyClient) Playlist(ctx context.Context, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("playlist id is required")
	}

	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	tracks := []models.Track{}

	for offset := 0; ; offset += playlistBatchSize {
		query := url.Values{"limit": {strconv.Itoa(playlistBatchSize)}, "offset": {strconv.Itoa(offset)}}

		var page playlistTracksPage
		if err := c.doRequest(ctx, "get playlist", http.MethodGet, path, query, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil {
				continue
			}
			tracks = append(tracks, item.Track.toModel())
		}

		if page.Next == nil || len(page.Items) == 0 {
			return tracks, nil
		}
	}
}

// SavePlaylist writes name and uris to Spotify and returns the playlist id.
//
// An empty name or uris is a no-op that returns playlistID unchanged.
// With a playlistID the playlist is renamed and its tracks replaced; without one, a public playlist
// is created for the current user and the tracks appended. Batches of more than 100 URIs are split.
// Failures are [*SaveError] values naming the step that failed. The steps are not transactional.
func (c *SpotifyClient) SavePlaylist(ctx context.Context, name string, uris []string, playlistID string) (string, error) {
	if name == "" || len(uris) == 0 {
		c.logger.Debug("nothing to save", "name", name, "tracks", len(uris))
		return playlistID, nil
	}

	if playlistID != "" {
		return playlistID, c.updatePlaylist(ctx, playlistID, name, uris)
	}
	return c.createPlaylist(ctx, name, uris)
}

func (c *SpotifyClient) updatePlaylist(ctx context.Context, playlistID, name string, uris []string) error {
	path := "/playlists/" + url.PathEscape(playlistID)

	if err := c.doRequest(ctx, "rename playlist", http.MethodPut, path, nil, renamePlaylistRequest{Name: name}, nil); err != nil {
		return &SaveError{Step: StepRename, PlaylistID: playlistID, Err: err}
	}

	batches := chunk(uris, playlistBatchSize)
	if err := c.doRequest(ctx, "replace tracks", http.MethodPut, path+"/tracks", nil, tracksRequest{URIs: batches[0]}, nil); err != nil {
		return &SaveError{Step: StepReplaceTracks, PlaylistID: playlistID, Err: err}
	}

	if err := c.appendTracks(ctx, playlistID, batches[1:]); err != nil {
		return err
	}

	c.logger.Info("playlist updated", "id", playlistID, "tracks", len(uris))
	return nil
}

func (c *SpotifyClient) createPlaylist(ctx context.Context, name string, uris []string) (string, error) {
	userID, err := c.identity.UserID(ctx)
	if err != nil {
		return "", &SaveError{Step: StepResolveUser, Err: err}
	}

	var created playlistIDResponse
	path := "/users/" + url.PathEscape(userID) + "/playlists"
	if err := c.doRequest(ctx, "create playlist", http.MethodPost, path, nil, createPlaylistRequest{Name: name, Public: true}, &created); err != nil {
		return "", &SaveError{Step: StepCreatePlaylist, Err: err}
	}
	if created.ID == "" {
		return "", &SaveError{Step: StepCreatePlaylist, Err: fmt.Errorf("create playlist: response has no id")}
	}

	if err := c.appendTracks(ctx, created.ID, chunk(uris, playlistBatchSize)); err != nil {
		return created.ID, err
	}

	c.logger.Info("playlist created", "id", created.ID, "tracks", len(uris))
	return created.ID, nil
}

func (c *SpotifyClient) appendTracks(ctx context.Context, playlistID string, batches [][]string) error {
	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	for _, batch := range batches {
		if err := c.doRequest(ctx, "add tracks", http.MethodPost, path, nil, tracksRequest{URIs: batch}, nil); err != nil {
			return &SaveError{Step: StepAddTracks, PlaylistID: playlistID, Err: err}
		}
	}
	return nil
}

// fetchUserID calls the current user endpoint.
func (c *SpotifyClient) fetchUserID(ctx context.Context) (string, error) {
	var profile userProfile
	if err := c.doRequest(ctx, "current user", http.MethodGet, "/me", nil, nil, &profile); err != nil {
		return "", err
	}
	return profile.ID, nil
}

// chunk splits items into consecutive slices of at most size elements.
func chunk(items []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}
