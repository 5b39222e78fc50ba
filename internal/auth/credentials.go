package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/jamlist/internal/models"
)

// Storage keys for the persisted credential and PKCE session.
const (
	KeyAccessToken  = "spotify_access_token"
	KeyExpiresAt    = "spotify_token_expires_at"
	KeyRefreshToken = "spotify_refresh_token"
	KeyVerifier     = "spotify_code_verifier"
)

// Credential is the persisted token state. ExpiresAt is an absolute instant.
type Credential struct {
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string
}

// Valid reports whether the access token is usable at now, compared in epoch milliseconds.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.AccessToken != "" && now.UnixMilli() < c.ExpiresAt.UnixMilli()
}

// CredentialStore reads and writes credentials as four independent keys of a [models.KeyValueStore].
type CredentialStore struct {
	kv models.KeyValueStore
}

func NewCredentialStore(kv models.KeyValueStore) *CredentialStore {
	return &CredentialStore{kv: kv}
}

// Load returns the stored credential, or nil when the access token or its expiry is missing.
//
// An expiry that does not parse as epoch milliseconds is treated as missing.
func (s *CredentialStore) Load() (*Credential, error) {
	token, ok, err := s.kv.Get(KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}
	if !ok || token == "" {
		return nil, nil
	}

	raw, ok, err := s.kv.Get(KeyExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read token expiry: %w", err)
	}
	if !ok {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, nil
	}

	refresh, err := s.RefreshToken()
	if err != nil {
		return nil, err
	}

	return &Credential{
		AccessToken:  token,
		ExpiresAt:    time.UnixMilli(ms),
		RefreshToken: refresh,
	}, nil
}

// Save writes the access token and expiry, and the refresh token when present.
func (s *CredentialStore) Save(c Credential) error {
	if err := s.kv.Set(KeyAccessToken, c.AccessToken); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if err := s.kv.Set(KeyExpiresAt, strconv.FormatInt(c.ExpiresAt.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("failed to save token expiry: %w", err)
	}
	if c.RefreshToken != "" {
		if err := s.kv.Set(KeyRefreshToken, c.RefreshToken); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	}
	return nil
}

// Clear removes the access token, expiry and refresh token. The verifier is left alone.
func (s *CredentialStore) Clear() error {
	if err := s.kv.Delete(KeyAccessToken, KeyExpiresAt, KeyRefreshToken); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// RefreshToken returns the stored refresh token, or "" when there is none.
func (s *CredentialStore) RefreshToken() (string, error) {
	v, _, err := s.kv.Get(KeyRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	return v, nil
}

// SaveVerifier stores the PKCE verifier for the authorization in progress, replacing any earlier one.
func (s *CredentialStore) SaveVerifier(verifier string) error {
	if err := s.kv.Set(KeyVerifier, verifier); err != nil {
		return fmt.Errorf("failed to save code verifier: %w", err)
	}
	return nil
}

// Verifier returns the stored PKCE verifier, or "" when none was saved.
func (s *CredentialStore) Verifier() (string, error) {
	v, _, err := s.kv.Get(KeyVerifier)
	if err != nil {
		return "", fmt.Errorf("failed to read code verifier: %w", err)
	}
	return v, nil
}

// DiscardVerifier removes the PKCE verifier once it has been spent on an exchange.
func (s *CredentialStore) DiscardVerifier() error {
	if err := s.kv.Delete(KeyVerifier); err != nil {
		return fmt.Errorf("failed to discard code verifier: %w", err)
	}
	return nil
}
