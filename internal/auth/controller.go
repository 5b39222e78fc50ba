package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamlist/internal/models"
	"github.com/desertthunder/jamlist/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultScopes are the capabilities requested during authorization.
var DefaultScopes = []string{"user-read-private", "playlist-modify-public"}

// Browser is the host environment the authorization flow drives.
//
// Location is the page the user landed on (nil when there is none), Replace swaps it without adding history,
// and Navigate sends the user somewhere else entirely.
type Browser interface {
	Location() *url.URL
	Replace(u *url.URL)
	Navigate(ctx context.Context, rawURL string) error
}

// TokenState tags the outcome of [Controller.AccessToken].
type TokenState int

const (
	// NoToken means no usable token exists and no redirect was started.
	NoToken TokenState = iota
	// HasToken means AccessToken carries a valid bearer token.
	HasToken
	// Redirecting means the user was sent to the authorization endpoint and the current flow is over.
	Redirecting
)

func (s TokenState) String() string {
	switch s {
	case HasToken:
		return "token"
	case Redirecting:
		return "redirecting"
	default:
		return "no token"
	}
}

// TokenResult is the tagged result of asking for an access token.
type TokenResult struct {
	State       TokenState
	AccessToken string
}

// OK reports whether the result carries a usable token.
func (r TokenResult) OK() bool {
	return r.State == HasToken && r.AccessToken != ""
}

func hasToken(token string) TokenResult {
	return TokenResult{State: HasToken, AccessToken: token}
}

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	ClientID       string
	RedirectURI    string
	Scopes         []string
	AuthURL        string
	TokenURL       string
	VerifierLength int
	Store          models.KeyValueStore
	Browser        Browser
	HTTPClient     *http.Client
	Clock          func() time.Time
	Logger         *log.Logger
}

// Controller obtains access tokens from the credential cache, a refresh grant, or an authorization code exchange,
// and starts a new authorization when none of those work.
//
// Concurrent refreshes and exchanges of the same code are collapsed into one token request. That request is
// abandoned only when every caller waiting on it has given up.
type Controller struct {
	oauth          *oauth2.Config
	store          *CredentialStore
	browser        Browser
	httpClient     *http.Client
	now            func() time.Time
	verifierLength int
	logger         *log.Logger
	group          shared.FlightGroup
}

// NewController validates opts and builds a Controller.
func NewController(opts ControllerOpts) (*Controller, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: client id", shared.ErrMissingCredentials)
	}
	if opts.RedirectURI == "" {
		return nil, fmt.Errorf("%w: redirect uri", shared.ErrMissingCredentials)
	}
	if opts.AuthURL == "" || opts.TokenURL == "" {
		return nil, fmt.Errorf("%w: authorization and token endpoints are required", shared.ErrInvalidConfig)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: credential store", shared.ErrMissingArgument)
	}
	if opts.Browser == nil {
		return nil, fmt.Errorf("%w: browser", shared.ErrMissingArgument)
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	verifierLength := opts.VerifierLength
	if verifierLength == 0 {
		verifierLength = DefaultVerifierLength
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return &Controller{
		oauth: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURI,
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:          NewCredentialStore(opts.Store),
		browser:        opts.Browser,
		httpClient:     opts.HTTPClient,
		now:            now,
		verifierLength: verifierLength,
		logger:         shared.WithLogger(opts.Logger, "component", "auth"),
	}, nil
}

// Store exposes the credential store backing the controller.
func (c *Controller) Store() *CredentialStore {
	return c.store
}

// AccessToken returns a usable token, trying in order: the cached credential, a refresh grant, and an exchange
// of the authorization code found in the browser location.
//
// A failed refresh clears the stored credential, starts a new authorization and reports [Redirecting] without error.
// A failed exchange reports [NoToken] with an error and always removes the code from the location.
// With nothing to try it reports [NoToken] and a nil error, without touching the network.
func (c *Controller) AccessToken(ctx context.Context) (TokenResult, error) {
	cred, err := c.store.Load()
	if err != nil {
		return TokenResult{}, err
	}
	if cred.Valid(c.now()) {
		return hasToken(cred.AccessToken), nil
	}

	refreshToken, err := c.store.RefreshToken()
	if err != nil {
		return TokenResult{}, err
	}
	if refreshToken != "" {
		return c.collapse(ctx, "refresh", func(ctx context.Context) (TokenResult, error) {
			return c.refresh(ctx, refreshToken)
		})
	}

	if loc := c.browser.Location(); loc != nil {
		if code := loc.Query().Get("code"); code != "" {
			return c.collapse(ctx, "exchange:"+code, func(ctx context.Context) (TokenResult, error) {
				return c.exchange(ctx, loc, code)
			})
		}
	}

	return TokenResult{State: NoToken}, nil
}

// RedirectToAuth stores a fresh PKCE verifier and navigates to the authorization endpoint.
func (c *Controller) RedirectToAuth(ctx context.Context) error {
	verifier, err := GenerateVerifier(c.verifierLength)
	if err != nil {
		return err
	}
	if err := c.store.SaveVerifier(verifier); err != nil {
		return err
	}

	c.logger.Info("redirecting to authorization endpoint")
	if err := c.browser.Navigate(ctx, c.AuthCodeURL(verifier)); err != nil {
		return fmt.Errorf("failed to open authorization page: %w", err)
	}
	return nil
}

// AuthCodeURL builds the authorization URL for verifier.
//
// The query carries response_type, client_id, redirect_uri, scope, code_challenge_method and code_challenge.
func (c *Controller) AuthCodeURL(verifier string) string {
	return c.oauth.AuthCodeURL("",
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", DeriveChallenge(verifier)),
	)
}

// Logout forgets the stored credential.
func (c *Controller) Logout() error {
	c.logger.Info("clearing stored credentials")
	return c.store.Clear()
}

func (c *Controller) collapse(ctx context.Context, key string, fn func(ctx context.Context) (TokenResult, error)) (TokenResult, error) {
	v, err, joined := c.group.Do(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if joined {
		c.logger.Debug("joined in-flight token request", "step", key)
	}
	result, _ := v.(TokenResult)
	return result, err
}

func (c *Controller) refresh(ctx context.Context, refreshToken string) (TokenResult, error) {
	// another caller may have refreshed between our cache check and joining the group
	if cred, err := c.store.Load(); err == nil && cred.Valid(c.now()) {
		return hasToken(cred.AccessToken), nil
	}

	src := c.oauth.TokenSource(c.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		if ctx.Err() != nil {
			return TokenResult{}, fmt.Errorf("refresh access token: %w", ctx.Err())
		}

		c.logger.Warn("token refresh failed, starting new authorization", "error", c.classify("refresh access token", err))
		if err := c.store.Clear(); err != nil {
			return TokenResult{}, err
		}
		if err := c.RedirectToAuth(ctx); err != nil {
			return TokenResult{}, err
		}
		return TokenResult{State: Redirecting}, nil
	}

	if err := c.store.Save(c.credentialFrom(tok)); err != nil {
		return TokenResult{}, err
	}
	c.logger.Info("access token refreshed")
	return hasToken(tok.AccessToken), nil
}

func (c *Controller) exchange(ctx context.Context, loc *url.URL, code string) (TokenResult, error) {
	defer c.stripCode(loc)

	verifier, err := c.store.Verifier()
	if err != nil {
		return TokenResult{}, err
	}
	if verifier == "" {
		return TokenResult{}, fmt.Errorf("%w: authorization code received without a stored code verifier", shared.ErrNotAuthenticated)
	}

	tok, err := c.oauth.Exchange(c.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return TokenResult{}, c.classify("exchange authorization code", err)
	}

	if err := c.store.Save(c.credentialFrom(tok)); err != nil {
		return TokenResult{}, err
	}
	if err := c.store.DiscardVerifier(); err != nil {
		c.logger.Debug("failed to discard code verifier", "error", err)
	}

	c.logger.Info("authorization code exchanged")
	return hasToken(tok.AccessToken), nil
}

// stripCode replaces the location with a copy that has no code parameter.
func (c *Controller) stripCode(loc *url.URL) {
	u := *loc
	q := u.Query()
	q.Del("code")
	u.RawQuery = q.Encode()
	c.browser.Replace(&u)
}

// credentialFrom computes the absolute expiry from expires_in, falling back to the token's own expiry.
func (c *Controller) credentialFrom(tok *oauth2.Token) Credential {
	expiresAt := c.now()
	switch {
	case tok.ExpiresIn > 0:
		expiresAt = time.UnixMilli(c.now().UnixMilli() + tok.ExpiresIn*1000)
	case !tok.Expiry.IsZero():
		expiresAt = tok.Expiry
	}

	return Credential{
		AccessToken:  tok.AccessToken,
		ExpiresAt:    expiresAt,
		RefreshToken: tok.RefreshToken,
	}
}

func (c *Controller) clientContext(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// classify maps token endpoint failures onto [shared.APIError] and [shared.TransportError].
func (c *Controller) classify(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		apiErr := &shared.APIError{Op: op, Description: retrieveErr.ErrorDescription}
		if retrieveErr.Response != nil {
			apiErr.StatusCode = retrieveErr.Response.StatusCode
		}
		if apiErr.Description == "" {
			apiErr.Description = retrieveErr.ErrorCode
		}
		return apiErr
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &shared.TransportError{Op: op, Err: err}
	}

	return fmt.Errorf("%s: %w: %v", op, shared.ErrAPIRequest, err)
}
