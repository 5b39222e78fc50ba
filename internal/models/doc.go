// Package models defines the value types and storage contracts shared across jamlist.
//
//   - [Track] : a searchable song with its playlist URI
//   - [PlaylistSummary] : id and name of a user playlist
//   - [Tracklist] : a named, ordered working set of tracks
//   - [KeyValueStore] : durable key/value storage used for credentials and draft metadata
package models
