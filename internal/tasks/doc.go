// Package tasks holds the operations the CLI runs on top of the Spotify client and local storage.
//
// # Working set
//
// [Workspace] is the playlist being built. Tracks are added from search results or loaded from an existing
// playlist, and [Workspace.Save] writes them back:
//   - a working set with no bound playlist creates a new one
//   - a working set loaded with [Workspace.Load] renames and replaces the tracks of that playlist
//   - a successful save resets the working set to an empty "New Playlist"
//
// The working set persists between runs through a [DraftStore] and a key-value store.
//
// # Bulk export
//
// [BulkExport] fetches playlists at a limited rate and hands them to a pool of writers that render each one
// with the formatter package. Progress is reported on an optional channel of [ProgressUpdate]; sends never block.
package tasks
