package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/jamlist/internal/shared"
)

// Identity resolves and caches the current user's id for the life of the process.
//
// The cache is only populated by a successful lookup. Concurrent lookups share one request, which keeps going
// while any caller still waits on it.
type Identity struct {
	fetch  func(ctx context.Context) (string, error)
	mu     sync.Mutex
	userID string
	group  shared.FlightGroup
}

// NewIdentity creates a resolver around fetch.
func NewIdentity(fetch func(ctx context.Context) (string, error)) *Identity {
	return &Identity{fetch: fetch}
}

// UserID returns the cached id or fetches it.
func (i *Identity) UserID(ctx context.Context) (string, error) {
	if id := i.cached(); id != "" {
		return id, nil
	}

	v, err, _ := i.group.Do(ctx, "user", func(ctx context.Context) (any, error) {
		if id := i.cached(); id != "" {
			return id, nil
		}

		id, err := i.fetch(ctx)
		if err != nil {
			return "", err
		}
		if id == "" {
			return "", fmt.Errorf("current user: %w: response has no id", shared.ErrAPIRequest)
		}

		i.mu.Lock()
		i.userID = id
		i.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Reset forgets the cached id.
func (i *Identity) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.userID = ""
}

func (i *Identity) cached() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.userID
}
