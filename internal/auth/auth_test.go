package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/jamlist/internal/shared"
	tu "github.com/desertthunder/jamlist/internal/testing"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

type tokenServer struct {
	*httptest.Server
	calls atomic.Int32
	mu    sync.Mutex
	forms []url.Values
}

func newTokenServer(t *testing.T, status int, body string) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token form: %v", err)
		}
		ts.mu.Lock()
		ts.forms = append(ts.forms, r.PostForm)
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) lastForm(t *testing.T) url.Values {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.forms) == 0 {
		t.Fatal("token endpoint was never called")
	}
	return ts.forms[len(ts.forms)-1]
}

func newTestController(t *testing.T, tokenURL string, kv *tu.MemoryKV, browser Browser) *Controller {
	t.Helper()
	c, err := NewController(ControllerOpts{
		ClientID:    "client-123",
		RedirectURI: "http://127.0.0.1:3000/callback",
		AuthURL:     "https://accounts.example.com/authorize",
		TokenURL:    tokenURL,
		Store:       kv,
		Browser:     browser,
		Clock:       func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}
	return c
}

func seedCredential(t *testing.T, kv *tu.MemoryKV, token string, expiresAt time.Time, refresh string) {
	t.Helper()
	if err := NewCredentialStore(kv).Save(Credential{AccessToken: token, ExpiresAt: expiresAt, RefreshToken: refresh}); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}
}

const okTokenBody = `{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600,"refresh_token":"rotated-refresh"}`

func TestPKCE(t *testing.T) {
	t.Run("GenerateVerifier", func(t *testing.T) {
		for _, n := range []int{1, 43, 128} {
			v, err := GenerateVerifier(n)
			if err != nil {
				t.Fatalf("GenerateVerifier(%d) error: %v", n, err)
			}
			if len(v) != n {
				t.Errorf("expected length %d, got %d", n, len(v))
			}
			for _, r := range v {
				if !strings.ContainsRune(verifierAlphabet, r) {
					t.Errorf("verifier contains non-alphanumeric rune %q", r)
				}
			}
		}
	})

	t.Run("GenerateVerifier rejects non-positive length", func(t *testing.T) {
		for _, n := range []int{0, -1} {
			if _, err := GenerateVerifier(n); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("GenerateVerifier(%d) expected ErrInvalidArgument, got %v", n, err)
			}
		}
	})

	t.Run("GenerateVerifier is random", func(t *testing.T) {
		a, _ := GenerateVerifier(DefaultVerifierLength)
		b, _ := GenerateVerifier(DefaultVerifierLength)
		if a == b {
			t.Error("two verifiers should differ")
		}
	})

	t.Run("DeriveChallenge", func(t *testing.T) {
		// RFC 7636 appendix B
		got := DeriveChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
		want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
		if got != want {
			t.Errorf("DeriveChallenge() = %s, want %s", got, want)
		}
		if strings.ContainsAny(got, "+/=") {
			t.Errorf("challenge must be unpadded base64url: %s", got)
		}
	})
}

func TestCredentialStore(t *testing.T) {
	t.Run("Save and Load", func(t *testing.T) {
		kv := tu.NewMemoryKV()
		store := NewCredentialStore(kv)
		expires := time.UnixMilli(1_700_000_360_000)

		if err := store.Save(Credential{AccessToken: "a", ExpiresAt: expires, RefreshToken: "r"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		raw, _, _ := kv.Get(KeyExpiresAt)
		if raw != "1700000360000" {
			t.Errorf("expiry should be stored as epoch milliseconds, got %q", raw)
		}

		cred, err := store.Load()
		if err != nil || cred == nil {
			t.Fatalf("failed to load: %v", err)
		}
		if cred.AccessToken != "a" || cred.RefreshToken != "r" || !cred.ExpiresAt.Equal(expires) {
			t.Errorf("unexpected credential %+v", cred)
		}
	})

	t.Run("Load absent fields", func(t *testing.T) {
		tests := []struct {
			name string
			seed map[string]string
		}{
			{"empty", nil},
			{"no expiry", map[string]string{KeyAccessToken: "a"}},
			{"no access token", map[string]string{KeyExpiresAt: "1"}},
			{"garbled expiry", map[string]string{KeyAccessToken: "a", KeyExpiresAt: "soon"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				kv := tu.NewMemoryKV()
				for k, v := range tt.seed {
					kv.Set(k, v)
				}
				cred, err := NewCredentialStore(kv).Load()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if cred != nil {
					t.Errorf("expected no credential, got %+v", cred)
				}
			})
		}
	})

	t.Run("Save keeps refresh token when none supplied", func(t *testing.T) {
		kv := tu.NewMemoryKV()
		store := NewCredentialStore(kv)
		store.Save(Credential{AccessToken: "a", ExpiresAt: fixedNow, RefreshToken: "keep"})
		store.Save(Credential{AccessToken: "b", ExpiresAt: fixedNow})

		rt, _ := store.RefreshToken()
		if rt != "keep" {
			t.Errorf("expected refresh token to survive, got %q", rt)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		kv := tu.NewMemoryKV()
		store := NewCredentialStore(kv)
		store.Save(Credential{AccessToken: "a", ExpiresAt: fixedNow, RefreshToken: "r"})
		store.SaveVerifier("v")

		if err := store.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		keys := kv.Keys()
		if len(keys) != 1 || keys[0] != KeyVerifier {
			t.Errorf("expected only the verifier to remain, got %v", keys)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		kv := tu.NewMemoryKV()
		kv.Err = errors.New("disk full")
		store := NewCredentialStore(kv)
		if _, err := store.Load(); err == nil {
			t.Error("expected storage error")
		}

		for name, op := range map[string]func() error{
			"SaveVerifier":    func() error { return store.SaveVerifier("v") },
			"DiscardVerifier": store.DiscardVerifier,
		} {
			err := op()
			if !errors.Is(err, kv.Err) || !strings.Contains(err.Error(), "code verifier") {
				t.Errorf("%s: expected wrapped storage error, got %v", name, err)
			}
		}
	})

	t.Run("Valid compares milliseconds", func(t *testing.T) {
		cred := &Credential{AccessToken: "a", ExpiresAt: fixedNow.Add(500 * time.Microsecond)}
		if cred.Valid(fixedNow) {
			t.Error("expiry within the same millisecond is not in the future")
		}
		cred.ExpiresAt = fixedNow.Add(time.Millisecond)
		if !cred.Valid(fixedNow) {
			t.Error("expiry one millisecond ahead should be valid")
		}
		var none *Credential
		if none.Valid(fixedNow) {
			t.Error("nil credential is never valid")
		}
	})
}

func TestController(t *testing.T) {
	t.Run("NewController", func(t *testing.T) {
		kv := tu.NewMemoryKV()
		browser := tu.NewRecordingBrowser(t, "")
		base := ControllerOpts{
			ClientID: "id", RedirectURI: "http://127.0.0.1/cb",
			AuthURL: "https://a/authorize", TokenURL: "https://a/token",
			Store: kv, Browser: browser,
		}

		if _, err := NewController(base); err != nil {
			t.Fatalf("expected valid opts, got %v", err)
		}

		tests := []struct {
			name   string
			mutate func(*ControllerOpts)
			want   error
		}{
			{"no client id", func(o *ControllerOpts) { o.ClientID = "" }, shared.ErrMissingCredentials},
			{"no redirect", func(o *ControllerOpts) { o.RedirectURI = "" }, shared.ErrMissingCredentials},
			{"no token url", func(o *ControllerOpts) { o.TokenURL = "" }, shared.ErrInvalidConfig},
			{"no store", func(o *ControllerOpts) { o.Store = nil }, shared.ErrMissingArgument},
			{"no browser", func(o *ControllerOpts) { o.Browser = nil }, shared.ErrMissingArgument},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				opts := base
				tt.mutate(&opts)
				if _, err := NewController(opts); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("cached token issues no network calls", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, okTokenBody)
		kv := tu.NewMemoryKV()
		seedCredential(t, kv, "cached", fixedNow.Add(time.Minute), "refresh")
		browser := tu.NewRecordingBrowser(t, "http://127.0.0.1:3000/callback?code=ABC")
		c := newTestController(t, ts.URL, kv, browser)

		result, err := c.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.OK() || result.AccessToken != "cached" {
			t.Errorf("expected cached token, got %+v", result)
		}
		if ts.calls.Load() != 0 {
			t.Errorf("expected zero token calls, got %d", ts.calls.Load())
		}
		if len(browser.Replacements()) != 0 {
			t.Error("cached path should not touch the location")
		}
	})

	t.Run("expired token is refreshed and persisted", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, okTokenBody)
		kv := tu.NewMemoryKV()
		seedCredential(t, kv, "stale", fixedNow.Add(-time.Second), "old-refresh")
		c := newTestController(t, ts.URL, kv, tu.NewRecordingBrowser(t, ""))

		result, err := c.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.State != HasToken || result.AccessToken != "fresh-token" {
			t.Errorf("expected refreshed token, got %+v", result)
		}

		form := ts.lastForm(t)
		if form.Get("grant_type") != "refresh_token" || form.Get("refresh_token") != "old-refresh" || form.Get("client_id") != "client-123" {
			t.Errorf("unexpected refresh form %v", form)
		}

		cred, _ := c.Store().Load()
		if cred.AccessToken != "fresh-token" {
			t.Errorf("new token not persisted: %+v", cred)
		}
		wantExpiry := fixedNow.UnixMilli() + 3600*1000
		if cred.ExpiresAt.UnixMilli() != wantExpiry {
			t.Errorf("expected expiry %d, got %d", wantExpiry, cred.ExpiresAt.UnixMilli())
		}
		if cred.RefreshToken != "rotated-refresh" {
			t.Errorf("rotated refresh token not persisted: %q", cred.RefreshToken)
		}
	})

	t.Run("refresh without rotation keeps refresh token", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, `{"access_token":"fresh-token","expires_in":60}`)
		kv := tu.NewMemoryKV()
		seedCredential(t, kv, "stale", fixedNow.Add(-time.Second), "old-refresh")
		c := newTestController(t, ts.URL, kv, tu.NewRecordingBrowser(t, ""))

		if _, err := c.AccessToken(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rt, _ := c.Store().RefreshToken()
		if rt != "old-refresh" {
			t.Errorf("expected old refresh token to remain, got %q", rt)
		}
	})

	t.Run("failed refresh clears credentials and redirects once", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Refresh token revoked"}`)
		kv := tu.NewMemoryKV()
		seedCredential(t, kv, "stale", fixedNow.Add(-time.Second), "revoked")
		browser := tu.NewRecordingBrowser(t, "")
		c := newTestController(t, ts.URL, kv, browser)

		result, err := c.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("refresh failure should self-heal, got %v", err)
		}
		if result.State != Redirecting || result.OK() {
			t.Errorf("expected Redirecting, got %+v", result)
		}

		for _, key := range []string{KeyAccessToken, KeyExpiresAt, KeyRefreshToken} {
			if _, ok, _ := kv.Get(key); ok {
				t.Errorf("key %s should be cleared", key)
			}
		}
		if navs := browser.Navigations(); len(navs) != 1 {
			t.Fatalf("expected exactly one redirect, got %d", len(navs))
		}
		if v, _ := c.Store().Verifier(); v == "" {
			t.Error("redirect should persist a verifier")
		}
	})

	t.Run("refresh aborted by context keeps credentials", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		kv := tu.NewMemoryKV()
		seedCredential(t, kv, "stale", fixedNow.Add(-time.Second), "refresh")
		browser := tu.NewRecordingBrowser(t, "")
		c := newTestController(t, srv.URL, kv, browser)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if _, err := c.AccessToken(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", err)
		}
		if rt, _ := c.Store().RefreshToken(); rt != "refresh" {
			t.Error("credentials should survive a cancelled refresh")
		}
		if len(browser.Navigations()) != 0 {
			t.Error("cancelled refresh should not redirect")
		}
	})

	t.Run("code exchange persists credential and strips code", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, okTokenBody)
		kv := tu.NewMemoryKV()
		kv.Set(KeyVerifier, "stored-verifier")
		browser := tu.NewRecordingBrowser(t, "http://127.0.0.1:3000/callback?code=ABC&foo=bar")
		c := newTestController(t, ts.URL, kv, browser)

		result, err := c.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.OK() || result.AccessToken != "fresh-token" {
			t.Errorf("expected exchanged token, got %+v", result)
		}

		form := ts.lastForm(t)
		want := map[string]string{
			"grant_type":    "authorization_code",
			"code":          "ABC",
			"redirect_uri":  "http://127.0.0.1:3000/callback",
			"code_verifier": "stored-verifier",
			"client_id":     "client-123",
		}
		for k, v := range want {
			if form.Get(k) != v {
				t.Errorf("expected %s=%s, got %q", k, v, form.Get(k))
			}
		}

		for _, key := range []string{KeyAccessToken, KeyExpiresAt, KeyRefreshToken} {
			if _, ok, _ := kv.Get(key); !ok {
				t.Errorf("key %s should be persisted", key)
			}
		}

		loc := browser.Location()
		if loc.Query().Has("code") {
			t.Errorf("code should be stripped from %s", loc)
		}
		if loc.Query().Get("foo") != "bar" {
			t.Errorf("other parameters should survive: %s", loc)
		}
		if len(browser.Replacements()) != 1 || len(browser.Navigations()) != 0 {
			t.Error("code removal should replace the location, not navigate")
		}
	})

	t.Run("failed exchange strips code and persists nothing", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`)
		kv := tu.NewMemoryKV()
		kv.Set(KeyVerifier, "stored-verifier")
		browser := tu.NewRecordingBrowser(t, "http://127.0.0.1:3000/callback?code=BAD")
		c := newTestController(t, ts.URL, kv, browser)

		result, err := c.AccessToken(context.Background())
		if result.State != NoToken {
			t.Errorf("expected NoToken, got %+v", result)
		}
		var apiErr *shared.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusBadRequest || apiErr.Description != "Invalid authorization code" {
			t.Errorf("unexpected api error %+v", apiErr)
		}

		for _, key := range []string{KeyAccessToken, KeyExpiresAt, KeyRefreshToken} {
			if _, ok, _ := kv.Get(key); ok {
				t.Errorf("key %s should not be persisted", key)
			}
		}
		if browser.Location().Query().Has("code") {
			t.Error("code should be stripped after a failed exchange")
		}

		// the stripped location cannot replay the code
		if _, err := c.AccessToken(context.Background()); err != nil {
			t.Errorf("second call should find nothing to do, got %v", err)
		}
		if ts.calls.Load() != 1 {
			t.Errorf("expected one exchange attempt, got %d", ts.calls.Load())
		}
	})

	t.Run("exchange transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		tokenURL := srv.URL
		srv.Close()

		kv := tu.NewMemoryKV()
		kv.Set(KeyVerifier, "v")
		browser := tu.NewRecordingBrowser(t, "http://127.0.0.1:3000/callback?code=ABC")
		c := newTestController(t, tokenURL, kv, browser)

		_, err := c.AccessToken(context.Background())
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected transport error, got %v", err)
		}
		if browser.Location().Query().Has("code") {
			t.Error("code should be stripped after a transport failure")
		}
	})

	t.Run("code without verifier", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, okTokenBody)
		browser := tu.NewRecordingBrowser(t, "http://127.0.0.1:3000/callback?code=ABC")
		c := newTestController(t, ts.URL, tu.NewMemoryKV(), browser)

		result, err := c.AccessToken(context.Background())
		if result.State != NoToken || !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected NoToken with ErrNotAuthenticated, got %+v, %v", result, err)
		}
		if ts.calls.Load() != 0 {
			t.Error("no exchange should happen without a verifier")
		}
		if browser.Location().Query().Has("code") {
			t.Error("code should be stripped")
		}
	})

	t.Run("nothing available returns NoToken without network", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, okTokenBody)
		browser := tu.NewRecordingBrowser(t, "http://127.0.0.1:3000/")
		c := newTestController(t, ts.URL, tu.NewMemoryKV(), browser)

		result, err := c.AccessToken(context.Background())
		if err != nil || result.State != NoToken {
			t.Errorf("expected NoToken, got %+v, %v", result, err)
		}
		if ts.calls.Load() != 0 || len(browser.Navigations()) != 0 {
			t.Error("no network or navigation expected")
		}
	})

	t.Run("concurrent refreshes collapse", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			time.Sleep(50 * time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(okTokenBody))
		}))
		defer srv.Close()

		kv := tu.NewMemoryKV()
		seedCredential(t, kv, "stale", fixedNow.Add(-time.Second), "refresh")
		c := newTestController(t, srv.URL, kv, tu.NewRecordingBrowser(t, ""))

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := c.AccessToken(context.Background())
				if err != nil || result.AccessToken != "fresh-token" {
					t.Errorf("unexpected result %+v, %v", result, err)
				}
			}()
		}
		wg.Wait()

		if calls.Load() != 1 {
			t.Errorf("expected one refresh request, got %d", calls.Load())
		}
	})

	t.Run("joined refresh survives the first caller cancelling", func(t *testing.T) {
		arrived := make(chan struct{})
		release := make(chan struct{})
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				close(arrived)
			}
			<-release
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(okTokenBody))
		}))
		defer srv.Close()

		kv := tu.NewMemoryKV()
		seedCredential(t, kv, "stale", fixedNow.Add(-time.Second), "refresh")
		browser := tu.NewRecordingBrowser(t, "")
		c := newTestController(t, srv.URL, kv, browser)

		first, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := c.AccessToken(first)
			firstErr <- err
		}()
		<-arrived

		type tokenResult struct {
			result TokenResult
			err    error
		}
		second := make(chan tokenResult, 1)
		go func() {
			result, err := c.AccessToken(context.Background())
			second <- tokenResult{result, err}
		}()
		time.Sleep(20 * time.Millisecond)

		cancel()
		if err := <-firstErr; !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller expected context.Canceled, got %v", err)
		}

		close(release)
		res := <-second
		if res.err != nil || res.result.AccessToken != "fresh-token" {
			t.Errorf("live caller expected fresh-token, got %+v, %v", res.result, res.err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected one refresh request, got %d", calls.Load())
		}
		if len(browser.Navigations()) != 0 {
			t.Error("successful refresh should not redirect")
		}
	})

	t.Run("RedirectToAuth builds authorization URL", func(t *testing.T) {
		kv := tu.NewMemoryKV()
		browser := tu.NewRecordingBrowser(t, "")
		c := newTestController(t, "https://accounts.example.com/api/token", kv, browser)

		if err := c.RedirectToAuth(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		navs := browser.Navigations()
		if len(navs) != 1 {
			t.Fatalf("expected one navigation, got %d", len(navs))
		}
		u, err := url.Parse(navs[0])
		if err != nil {
			t.Fatalf("invalid auth url: %v", err)
		}
		if u.Host != "accounts.example.com" || u.Path != "/authorize" {
			t.Errorf("unexpected endpoint %s", u)
		}

		verifier, _ := c.Store().Verifier()
		if len(verifier) != DefaultVerifierLength {
			t.Errorf("expected %d char verifier, got %d", DefaultVerifierLength, len(verifier))
		}

		q := u.Query()
		want := map[string]string{
			"response_type":         "code",
			"client_id":             "client-123",
			"scope":                 "user-read-private playlist-modify-public",
			"code_challenge_method": "S256",
			"code_challenge":        DeriveChallenge(verifier),
			"redirect_uri":          "http://127.0.0.1:3000/callback",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("expected %s=%s, got %q", k, v, q.Get(k))
			}
		}
		if len(q) != len(want) {
			t.Errorf("unexpected extra parameters in %s", u.RawQuery)
		}
	})

	t.Run("RedirectToAuth navigation failure", func(t *testing.T) {
		browser := tu.NewRecordingBrowser(t, "")
		browser.NavigateErr = errors.New("no display")
		c := newTestController(t, "https://accounts.example.com/api/token", tu.NewMemoryKV(), browser)

		if err := c.RedirectToAuth(context.Background()); err == nil {
			t.Error("expected navigation error")
		}
	})

	t.Run("Logout", func(t *testing.T) {
		kv := tu.NewMemoryKV()
		seedCredential(t, kv, "a", fixedNow.Add(time.Hour), "r")
		c := newTestController(t, "https://accounts.example.com/api/token", kv, tu.NewRecordingBrowser(t, ""))

		if err := c.Logout(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result, err := c.AccessToken(context.Background())
		if err != nil || result.State != NoToken {
			t.Errorf("expected NoToken after logout, got %+v, %v", result, err)
		}
	})

	t.Run("expires_in drives expiry", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"access_token": "x", "expires_in": 10})
		ts := newTokenServer(t, http.StatusOK, string(body))
		kv := tu.NewMemoryKV()
		seedCredential(t, kv, "stale", fixedNow.Add(-time.Hour), "r")
		c := newTestController(t, ts.URL, kv, tu.NewRecordingBrowser(t, ""))

		c.AccessToken(context.Background())
		raw, _, _ := kv.Get(KeyExpiresAt)
		if raw != strconv.FormatInt(fixedNow.UnixMilli()+10_000, 10) {
			t.Errorf("unexpected stored expiry %s", raw)
		}
	})
}

func TestTokenState(t *testing.T) {
	tests := []struct {
		state TokenState
		want  string
	}{
		{NoToken, "no token"},
		{HasToken, "token"},
		{Redirecting, "redirecting"},
	}
	for _, tt := range tests {
		if tt.state.String() != tt.want {
			t.Errorf("%d.String() = %s, want %s", tt.state, tt.state.String(), tt.want)
		}
	}

	if (TokenResult{State: Redirecting}).OK() {
		t.Error("Redirecting is not OK")
	}
}
