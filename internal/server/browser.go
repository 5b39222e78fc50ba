package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamlist/internal/shared"
)

// CallbackBrowserOpts configures a [CallbackBrowser].
//
// Addr defaults to the host of RedirectURI. Open defaults to [shared.OpenBrowser]; when it fails the URL
// is printed to Prompt (stderr by default) for the user to open by hand.
type CallbackBrowserOpts struct {
	RedirectURI string
	Addr        string
	Open        func(rawURL string) error
	Prompt      io.Writer
	Logger      *log.Logger
}

// CallbackBrowser drives the authorization flow from a terminal.
//
// Navigate opens the system browser and starts a loopback server on the redirect address.
// The first request to the redirect path becomes the browser's Location; later requests are rejected.
type CallbackBrowser struct {
	redirect *url.URL
	addr     string
	open     func(string) error
	prompt   io.Writer
	logger   *log.Logger

	mu          sync.Mutex
	location    *url.URL
	callbackHit bool
	server      *http.Server
	listener    net.Listener
	received    chan struct{}
	once        sync.Once
}

// NewCallbackBrowser parses the redirect URI and prepares an idle browser. Nothing listens until Navigate.
func NewCallbackBrowser(opts CallbackBrowserOpts) (*CallbackBrowser, error) {
	redirect, err := url.Parse(opts.RedirectURI)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: redirect uri %q", shared.ErrInvalidConfig, opts.RedirectURI)
	}
	if redirect.Path == "" {
		redirect.Path = "/"
	}

	addr := opts.Addr
	if addr == "" {
		addr = redirect.Host
	}

	open := opts.Open
	if open == nil {
		open = shared.OpenBrowser
	}

	prompt := opts.Prompt
	if prompt == nil {
		prompt = os.Stderr
	}

	return &CallbackBrowser{
		redirect: redirect,
		addr:     addr,
		open:     open,
		prompt:   prompt,
		logger:   shared.WithLogger(opts.Logger, "component", "callback"),
		received: make(chan struct{}),
	}, nil
}

// Routes returns the GET pattern for the redirect path.
func (b *CallbackBrowser) Routes() []string {
	path := b.redirect.Path
	if path == "" {
		path = "/"
	}
	return []string{http.MethodGet + " " + path}
}

// Location returns a copy of the URL the authorization server redirected to, or nil before the callback.
func (b *CallbackBrowser) Location() *url.URL {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.location == nil {
		return nil
	}
	u := *b.location
	return &u
}

// Replace overwrites the current location.
func (b *CallbackBrowser) Replace(u *url.URL) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.location = u
}

// Navigate starts the callback listener if needed and opens rawURL in the system browser.
func (b *CallbackBrowser) Navigate(ctx context.Context, rawURL string) error {
	if err := b.listen(); err != nil {
		return err
	}

	if err := b.open(rawURL); err != nil {
		b.logger.Debug("could not open system browser", "error", err)
		fmt.Fprintf(b.prompt, "Open this URL in your browser to authorize jamlist:\n\n  %s\n\n", rawURL)
	}
	return nil
}

// Addr reports the address the callback listener is bound to, or "" when it is not running.
func (b *CallbackBrowser) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Wait blocks until the callback arrives or ctx ends.
func (b *CallbackBrowser) Wait(ctx context.Context) error {
	select {
	case <-b.received:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: no authorization callback received", shared.ErrTimeout)
		}
		return ctx.Err()
	}
}

// Close stops the callback listener.
func (b *CallbackBrowser) Close(ctx context.Context) error {
	b.mu.Lock()
	srv := b.server
	b.server = nil
	b.listener = nil
	b.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (b *CallbackBrowser) listen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.server != nil {
		return nil
	}

	listener, err := net.Listen("tcp", b.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", b.addr, err)
	}

	router := NewBasicRouter()
	router.Use(LoggingMiddleware(b.logger))
	router.Handler(b)

	b.listener = listener
	b.server = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("callback server stopped", "error", err)
		}
	}(b.server)

	b.logger.Debug("callback server listening", "addr", listener.Addr().String(), "path", b.redirect.Path)
	return nil
}

// ServeHTTP records the first callback as the browser location and renders a result page.
func (b *CallbackBrowser) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	if b.callbackHit {
		b.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	b.callbackHit = true

	loc := *b.redirect
	loc.RawQuery = r.URL.RawQuery
	b.location = &loc
	b.mu.Unlock()

	defer b.once.Do(func() { close(b.received) })

	query := r.URL.Query()
	page := resultPage{
		Title:   "Authorization Successful",
		Message: "You can close this window and return to the terminal.",
		Class:   "ok",
	}
	status := http.StatusOK

	if query.Get("code") == "" {
		page.Title = "Authorization Failed"
		page.Class = "fail"
		page.Message = query.Get("error_description")
		if page.Message == "" {
			page.Message = query.Get("error")
		}
		if page.Message == "" {
			page.Message = "No authorization code was returned."
		}
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := resultTemplate.Execute(w, page); err != nil {
		b.logger.Debug("failed to render callback page", "error", err)
	}
}

type resultPage struct {
	Title   string
	Message string
	Class   string
}

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        h1.ok { color: #1DB954; }
        h1.fail { color: #E22134; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 class="{{.Class}}">{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))
