package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamlist/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(""); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	config, configPath, err := loadConfig(os.Getenv("JAMLIST_CONFIG"))
	if err != nil {
		logger.Fatal("failed to load config", "path", configPath, "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "jamlist",
		Usage:   "Search Spotify and build playlists from the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	err = app.Run(context.Background(), os.Args)
	if closeErr := runner.Close(context.Background()); closeErr != nil {
		logger.Debug("cleanup failed", "error", closeErr)
	}

	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated):
			logger.Error("not authenticated, run `jamlist auth login`", "error", err)
		case errors.Is(err, shared.ErrMissingCredentials):
			logger.Error("missing credentials, set credentials.spotify.client_id in "+configPath, "error", err)
		default:
			logger.Error("application error", "error", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file at path, falling back to ./config.toml. Only the default path may be missing,
// in which case the built-in defaults apply. Environment overrides are applied last.
func loadConfig(path string) (*shared.Config, string, error) {
	explicit := path != ""
	if !explicit {
		path = "config.toml"
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, path, err
		}
	} else if explicit {
		return nil, path, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
	}

	config.ApplyEnv()
	return config, path, nil
}
