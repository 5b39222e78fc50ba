package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamlist/internal/auth"
	"github.com/desertthunder/jamlist/internal/repositories"
	"github.com/desertthunder/jamlist/internal/server"
	"github.com/desertthunder/jamlist/internal/services"
	"github.com/desertthunder/jamlist/internal/shared"
	"github.com/desertthunder/jamlist/internal/tasks"
	"github.com/desertthunder/jamlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// callbackBrowser is the host environment used for authorization: an [auth.Browser] that can wait for the
// redirect to come back and release what it holds afterwards.
type callbackBrowser interface {
	auth.Browser
	Wait(ctx context.Context) error
	Close(ctx context.Context) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, authorization controller and API client are built on first use, so commands that never touch
// them (setup, help) work without a valid configuration.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db         *sql.DB
	store      *repositories.Store
	browser    callbackBrowser
	controller *auth.Controller
	client     *services.SpotifyClient
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB and Browser replace the configured database and the loopback callback server when set.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
	Browser    callbackBrowser
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Spotify.Timeout()}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		browser:    opts.Browser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, searchCommand, playlistsCommand, playlistCommand, draftCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Close releases the database and stops the callback server.
func (r *Runner) Close(ctx context.Context) error {
	var errs []error
	if r.browser != nil {
		errs = append(errs, r.browser.Close(ctx))
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}

func (r *Runner) openStore() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, err
		}
		r.db = db
	}

	r.store = repositories.NewStore(r.db)
	return r.store, nil
}

func (r *Runner) authController() (*auth.Controller, error) {
	if r.controller != nil {
		return r.controller, nil
	}

	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("%w (edit %s or run `jamlist setup`)", err, r.configName())
	}

	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	spotify := r.config.Credentials.Spotify
	if r.browser == nil {
		browser, err := server.NewCallbackBrowser(server.CallbackBrowserOpts{
			RedirectURI: spotify.RedirectURI,
			Addr:        net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port)),
			Prompt:      r.output,
			Logger:      r.logger,
		})
		if err != nil {
			return nil, err
		}
		r.browser = browser
	}

	controller, err := auth.NewController(auth.ControllerOpts{
		ClientID:       spotify.ClientID,
		RedirectURI:    spotify.RedirectURI,
		Scopes:         spotify.Scopes,
		AuthURL:        r.config.Spotify.AuthURL,
		TokenURL:       r.config.Spotify.TokenURL,
		VerifierLength: r.config.Spotify.VerifierLength,
		Store:          store.KV,
		Browser:        r.browser,
		HTTPClient:     r.httpClient,
		Logger:         r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.controller = controller
	return controller, nil
}

func (r *Runner) spotifyClient() (*services.SpotifyClient, error) {
	if r.client != nil {
		return r.client, nil
	}

	controller, err := r.authController()
	if err != nil {
		return nil, err
	}

	client, err := services.NewSpotifyClient(services.SpotifyClientOpts{
		BaseURL:    r.config.Spotify.APIURL,
		HTTPClient: r.httpClient,
		Tokens:     controller,
		RateLimit:  r.config.Spotify.RateLimit,
		MaxRetries: r.config.Spotify.MaxRetries,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.client = client
	return client, nil
}

// openWorkspace builds the working set. With remote unset it never touches the network or the config's credentials.
func (r *Runner) openWorkspace(remote bool) (*tasks.Workspace, error) {
	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	var svc tasks.PlaylistService
	if remote {
		client, err := r.spotifyClient()
		if err != nil {
			return nil, err
		}
		svc = client
	}

	return tasks.NewWorkspace(store.Drafts, store.KV, svc, r.logger), nil
}

// authorize returns a usable access token, completing a browser round trip when one is needed.
//
// With interactive unset a missing credential fails with [shared.ErrNotAuthenticated]; a failed refresh still
// sends the user through the browser since the controller has already started that.
func (r *Runner) authorize(ctx context.Context, interactive bool) (string, error) {
	controller, err := r.authController()
	if err != nil {
		return "", err
	}

	result, err := controller.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	if result.State == auth.NoToken {
		if !interactive {
			return "", fmt.Errorf("%w: no stored credentials", shared.ErrNotAuthenticated)
		}
		if err := controller.RedirectToAuth(ctx); err != nil {
			return "", err
		}
		result.State = auth.Redirecting
	}

	if result.State == auth.Redirecting {
		if err := r.awaitCallback(ctx); err != nil {
			return "", err
		}
		if loc := r.browser.Location(); loc != nil {
			if reason := loc.Query().Get("error"); reason != "" {
				return "", fmt.Errorf("%w: authorization denied: %s", shared.ErrNotAuthenticated, reason)
			}
		}
		if result, err = controller.AccessToken(ctx); err != nil {
			return "", err
		}
	}

	if !result.OK() {
		return "", fmt.Errorf("%w: authorization did not complete", shared.ErrNotAuthenticated)
	}
	return result.AccessToken, nil
}

func (r *Runner) awaitCallback(ctx context.Context) error {
	r.writePlain("%s\n", ui.Hint("Waiting for authorization in your browser..."))

	timeout := r.config.Server.CallbackTimeout()
	if timeout <= 0 {
		return r.browser.Wait(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.browser.Wait(ctx)
}

func (r *Runner) configName() string {
	if r.configPath == "" {
		return "config.toml"
	}
	return r.configPath
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
