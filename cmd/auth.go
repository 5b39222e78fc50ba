package main

import (
	"context"
	"time"

	"github.com/desertthunder/jamlist/internal/auth"
	"github.com/desertthunder/jamlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// AuthStatusReport is the output of `auth status --json`.
type AuthStatusReport struct {
	Authenticated bool      `json:"authenticated"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
	CanRefresh    bool      `json:"canRefresh"`
	UserID        string    `json:"userId,omitempty"`
}

// AuthLogin runs the authorization flow: cached token, refresh, or a browser round trip ending in a code exchange.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.authorize(ctx, true); err != nil {
		return err
	}

	client, err := r.spotifyClient()
	if err != nil {
		return err
	}

	userID, err := client.Identity().UserID(ctx)
	if err != nil {
		r.logger.Warn("authorized but failed to resolve user", "error", err)
		return r.writePlain("%s\n", ui.Success("Authorized"))
	}

	r.writePlain("%s\n", ui.Success("Authorized as %s", userID))
	return r.writePlain("%s\n", ui.Hint("Try: jamlist search \"artist or song\""))
}

// AuthStatus reports the stored credential without refreshing it. The user id is resolved only for a valid token.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	creds := auth.NewCredentialStore(store.KV)
	cred, err := creds.Load()
	if err != nil {
		return err
	}
	refreshToken, err := creds.RefreshToken()
	if err != nil {
		return err
	}

	report := AuthStatusReport{
		Authenticated: cred.Valid(time.Now()),
		CanRefresh:    refreshToken != "",
	}
	if cred != nil {
		report.ExpiresAt = cred.ExpiresAt
	}

	if report.Authenticated {
		if client, err := r.spotifyClient(); err == nil {
			if report.UserID, err = client.Identity().UserID(ctx); err != nil {
				r.logger.Warn("failed to resolve user", "error", err)
			}
		} else {
			r.logger.Debug("skipping user lookup", "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	switch {
	case report.Authenticated && report.UserID != "":
		r.writePlain("%s\n", ui.Success("Authenticated as %s", report.UserID))
	case report.Authenticated:
		r.writePlain("%s\n", ui.Success("Authenticated"))
	case report.CanRefresh:
		r.writePlain("%s\n", ui.Warning("Access token expired; it will be refreshed on the next request"))
	default:
		r.writePlain("%s\n", ui.Failure("Not authenticated"))
		return r.writePlain("%s\n", ui.Hint("Run: jamlist auth login"))
	}

	if !report.ExpiresAt.IsZero() {
		r.writePlain("Expires: %s\n", report.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthLogout removes the stored tokens and any pending code verifier.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	creds := auth.NewCredentialStore(store.KV)
	if err := creds.Clear(); err != nil {
		return err
	}
	if err := creds.DiscardVerifier(); err != nil {
		return err
	}

	r.logger.Info("credentials cleared")
	return r.writePlain("%s\n", ui.Success("Logged out"))
}
