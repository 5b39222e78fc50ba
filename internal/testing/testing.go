// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing.
//
// Every request is recorded so tests can assert on call counts.
type MockRoundTripper struct {
	mu       sync.Mutex
	response *http.Response
	err      error
	requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.response, m.err
}

// Calls returns how many requests reached the round tripper.
func (m *MockRoundTripper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MemoryKV is an in-memory models.KeyValueStore.
//
// Setting Err makes every operation fail with it.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]string
	Err  error
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", false, m.Err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryKV) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecordingBrowser is a host environment double that records navigations and history replacements.
type RecordingBrowser struct {
	mu        sync.Mutex
	location  *url.URL
	navigated []string
	replaced  []string

	// NavigateErr is returned from Navigate when set.
	NavigateErr error
}

// NewRecordingBrowser starts at rawURL; an empty string means no location.
func NewRecordingBrowser(t *testing.T, rawURL string) *RecordingBrowser {
	t.Helper()
	b := &RecordingBrowser{}
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			t.Fatalf("invalid browser location %q: %v", rawURL, err)
		}
		b.location = u
	}
	return b
}

func (b *RecordingBrowser) Location() *url.URL {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.location == nil {
		return nil
	}
	u := *b.location
	return &u
}

func (b *RecordingBrowser) Replace(u *url.URL) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.location = u
	b.replaced = append(b.replaced, u.String())
}

func (b *RecordingBrowser) Navigate(ctx context.Context, rawURL string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NavigateErr != nil {
		return b.NavigateErr
	}
	b.navigated = append(b.navigated, rawURL)
	return nil
}

// Navigations returns every URL passed to Navigate.
func (b *RecordingBrowser) Navigations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.navigated...)
}

// Replacements returns every URL passed to Replace.
func (b *RecordingBrowser) Replacements() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.replaced...)
}

// JSONResponse builds an [http.Response] with a JSON body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
