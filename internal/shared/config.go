package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the public client registration used for the PKCE flow.
//
// No client secret is stored: the authorization code is bound to the verifier instead.
type SpotifyConfig struct {
	ClientID    string   `toml:"client_id"`
	RedirectURI string   `toml:"redirect_uri"`
	Scopes      []string `toml:"scopes"`
}

// SpotifyAPIConfig contains endpoint locations and client tuning.
type SpotifyAPIConfig struct {
	AuthURL        string  `toml:"auth_url"`
	TokenURL       string  `toml:"token_url"`
	APIURL         string  `toml:"api_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
	MaxRetries     int     `toml:"max_retries"`
	VerifierLength int     `toml:"verifier_length"`
}

// Timeout returns the HTTP client timeout as a [time.Duration].
func (c SpotifyAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the loopback callback server settings.
type ServerConfig struct {
	Host                   string `toml:"host"`
	Port                   int    `toml:"port"`
	CallbackTimeoutSeconds int    `toml:"callback_timeout_seconds"`
}

// CallbackTimeout returns how long to wait for the authorization callback.
func (c ServerConfig) CallbackTimeout() time.Duration {
	return time.Duration(c.CallbackTimeoutSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadEnv loads KEY=VALUE pairs from a dotenv file into the process environment.
//
// A missing file is not an error. Variables already set in the environment win.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from SPOTIFY_CLIENT_ID, SPOTIFY_REDIRECT_URI and JAMLIST_DB_PATH.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := os.Getenv("JAMLIST_DB_PATH"); v != "" {
		c.Database.Path = v
	}
}

// Validate checks that the configuration can drive the authorization flow.
func (c *Config) Validate() error {
	spotify := c.Credentials.Spotify
	if spotify.ClientID == "" || spotify.ClientID == "your_spotify_client_id" {
		return fmt.Errorf("%w: credentials.spotify.client_id must be set", ErrMissingCredentials)
	}

	redirect, err := url.Parse(spotify.RedirectURI)
	if err != nil || redirect.Scheme == "" || redirect.Host == "" {
		return fmt.Errorf("%w: credentials.spotify.redirect_uri %q is not an absolute URL", ErrInvalidConfig, spotify.RedirectURI)
	}

	for name, raw := range map[string]string{
		"spotify.auth_url":  c.Spotify.AuthURL,
		"spotify.token_url": c.Spotify.TokenURL,
		"spotify.api_url":   c.Spotify.APIURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" {
			return fmt.Errorf("%w: %s %q is not an absolute URL", ErrInvalidConfig, name, raw)
		}
	}

	if c.Spotify.VerifierLength < 43 || c.Spotify.VerifierLength > 128 {
		return fmt.Errorf("%w: spotify.verifier_length must be between 43 and 128", ErrInvalidConfig)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path must be set", ErrInvalidConfig)
	}

	return nil
}
