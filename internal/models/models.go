// package models defines the data model shared by the playlist builder
package models

import "fmt"

// Track is a song as presented to the user. URI is the opaque identifier used when adding to a playlist.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	URI    string `json:"uri"`
}

// Validate checks the fields required to add a track to a playlist.
func (t Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("track id is required")
	}
	if t.URI == "" {
		return fmt.Errorf("track %s has no uri", t.ID)
	}
	return nil
}

// PlaylistSummary identifies one of the user's playlists.
type PlaylistSummary struct {
	ID   string `json:"playlistId"`
	Name string `json:"playlistName"`
}

// Tracklist is a named, ordered set of tracks, optionally bound to an existing playlist.
type Tracklist struct {
	Name       string  `json:"name"`
	PlaylistID string  `json:"playlistId,omitempty"`
	Tracks     []Track `json:"tracks"`
}

// URIs returns the track URIs in order.
func (t Tracklist) URIs() []string {
	uris := make([]string, 0, len(t.Tracks))
	for _, track := range t.Tracks {
		uris = append(uris, track.URI)
	}
	return uris
}

// KeyValueStore is durable string storage keyed by name.
//
// Get reports false when the key is absent. Delete ignores missing keys.
type KeyValueStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(keys ...string) error
}
