package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/jamlist/internal/shared"
	"github.com/desertthunder/jamlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when it is missing, then opens the database,
// which runs pending migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configName()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("%s\n", ui.Success("Created %s", configPath))
	} else if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.openStore(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	version, err := shared.CurrentVersion(r.db)
	if err != nil {
		return err
	}
	r.writePlain("%s\n", ui.Success("Database ready at %s (schema version %d)", r.config.Database.Path, version))

	if err := r.config.Validate(); err != nil {
		r.writePlain("%s\n", ui.Warning("%v", err))
		r.writePlain("%s\n", ui.Hint("Register an app at https://developer.spotify.com/dashboard, add %s as a redirect URI,",
			r.config.Credentials.Spotify.RedirectURI))
		r.writePlain("%s\n", ui.Hint("then set credentials.spotify.client_id in %s (or SPOTIFY_CLIENT_ID).", configPath))
		return nil
	}

	r.writePlain("%s\n", ui.Hint("Next: jamlist auth login"))
	return nil
}
