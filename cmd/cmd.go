// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/jamlist/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand creates the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, initialize the database and run migrations",
		Action: r.Setup,
	}
}

// authCommand handles the Spotify authorization flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize jamlist in the browser (PKCE) and store the tokens",
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show whether a valid token is stored and who it belongs to",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored tokens",
				Action: r.AuthLogout,
			},
		},
	}
}

// searchCommand searches the Spotify catalog for tracks
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search Spotify for tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "term"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.IntFlag{
				Name:  "add",
				Usage: "Add result N (1-based) to the working set",
			},
		},
		Action: r.Search,
	}
}

// playlistsCommand lists and exports the user's playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your Spotify playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Playlists,
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Export playlists to files",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Playlist ID to export (repeatable, default: all playlists)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: " + strings.Join(formatter.Formats, ", "),
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: spotify_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent writers",
						Value: 5,
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

// playlistCommand shows one playlist
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Single playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "List the tracks of a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistShow,
			},
		},
	}
}

// draftCommand manages the working set of tracks
func draftCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "draft",
		Aliases: []string{"d"},
		Usage:   "Build a playlist: add, remove and rename tracks, then save",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the working set",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.DraftShow,
			},
			{
				Name:  "add",
				Usage: "Search for a track and add a result to the working set",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "term"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pick",
						Usage: "Which search result to add (1-based)",
						Value: 1,
					},
				},
				Action: r.DraftAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from the working set by ID",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track-id"},
				},
				Action: r.DraftRemove,
			},
			{
				Name:  "rename",
				Usage: "Set the playlist name used on save",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.DraftRename,
			},
			{
				Name:  "load",
				Usage: "Replace the working set with an existing playlist, which the next save updates",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Playlist name (default: the playlist's current name)",
					},
				},
				Action: r.DraftLoad,
			},
			{
				Name:   "save",
				Usage:  "Save the working set to Spotify",
				Action: r.DraftSave,
			},
			{
				Name:   "clear",
				Usage:  "Empty the working set",
				Action: r.DraftClear,
			},
		},
	}
}
