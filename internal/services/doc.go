// Package services implements the Spotify Web API client used by jamlist.
//
// # Client
//
// [SpotifyClient] exposes the four operations the playlist builder needs:
//   - [SpotifyClient.Search] : tracks matching a term
//   - [SpotifyClient.UserPlaylists] : the current user's playlists
//   - [SpotifyClient.Playlist] : the tracks of one playlist
//   - [SpotifyClient.SavePlaylist] : create a playlist or update an existing one
//
// Each call asks its [TokenSource] for a bearer token and refuses to proceed without one.
// Requests are paced with a token bucket and transient failures are retried with exponential backoff.
//
// # Identity
//
// [Identity] caches the current user id for playlist-scoped endpoints. Concurrent lookups share one request.
//
// # Errors
//
//   - [shared.ErrNotAuthenticated] : no token was available
//   - [shared.APIError] : non-2xx response, with status and the service's message
//   - [shared.TransportError] : the request never got a response
//   - [SaveError] : wraps any of the above with the save step that failed
package services
