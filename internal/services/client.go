package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamlist/internal/auth"
	"github.com/desertthunder/jamlist/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIURL is the Spotify Web API root.
	DefaultAPIURL = "https://api.spotify.com/v1"

	defaultBackoff    = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
	maxErrorBody      = 64 << 10
)

// TokenSource supplies bearer tokens. [auth.Controller] is the production implementation.
type TokenSource interface {
	AccessToken(ctx context.Context) (auth.TokenResult, error)
}

// SpotifyClientOpts configures a [SpotifyClient].
//
// RateLimit is in requests per second; zero disables pacing. MaxRetries counts attempts after the first.
// MaxBackoff bounds every wait between attempts, including one asked for by Retry-After.
type SpotifyClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	RateLimit  float64
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Logger     *log.Logger
}

// SpotifyClient is a typed client for the subset of the Spotify Web API the playlist builder needs.
//
// Every call obtains a token from its [TokenSource] first and fails with [shared.ErrNotAuthenticated]
// rather than sending an unauthenticated request.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	identity   *Identity
	logger     *log.Logger
}

// NewSpotifyClient creates a client from opts.
func NewSpotifyClient(opts SpotifyClientOpts) (*SpotifyClient, error) {
	if opts.Tokens == nil {
		return nil, fmt.Errorf("%w: token source", shared.ErrMissingArgument)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: base url %q: %v", shared.ErrInvalidConfig, baseURL, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	maxBackoff := opts.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	c := &SpotifyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     opts.Tokens,
		limiter:    limiter,
		maxRetries: max(opts.MaxRetries, 0),
		backoff:    backoff,
		maxBackoff: max(maxBackoff, backoff),
		logger:     shared.WithLogger(opts.Logger, "component", "spotify"),
	}
	c.identity = NewIdentity(c.fetchUserID)
	return c, nil
}

// Identity returns the resolver caching the current user's id.
func (c *SpotifyClient) Identity() *Identity {
	return c.identity
}

func (c *SpotifyClient) accessToken(ctx context.Context, op string) (string, error) {
	result, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !result.OK() {
		return "", fmt.Errorf("%s: %w (%s)", op, shared.ErrNotAuthenticated, result.State)
	}
	return result.AccessToken, nil
}

// doRequest sends a JSON request and decodes a 2xx response into result when result is non-nil.
//
// Non-2xx responses become [shared.APIError]; failures to reach the host become [shared.TransportError].
func (c *SpotifyClient) doRequest(ctx context.Context, op, method, path string, query url.Values, body, result any) error {
	token, err := c.accessToken(ctx, op)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.doWithRetry(ctx, op, method, endpoint, payload, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("spotify request", "op", op, "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(op, resp)
	}

	if result == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func (c *SpotifyClient) newRequest(ctx context.Context, method, endpoint string, payload []byte, token string) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// parseAPIError reads the error body of resp, which is either the resource shape {"error":{"status","message"}}
// or the token endpoint shape {"error":"...","error_description":"..."}.
func parseAPIError(op string, resp *http.Response) error {
	apiErr := &shared.APIError{Op: op, StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var payload struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return apiErr
	}

	var nested struct {
		Message string `json:"message"`
	}
	var code string
	switch {
	case json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "":
		apiErr.Description = nested.Message
	case payload.ErrorDescription != "":
		apiErr.Description = payload.ErrorDescription
	case json.Unmarshal(payload.Error, &code) == nil:
		apiErr.Description = code
	}
	return apiErr
}
