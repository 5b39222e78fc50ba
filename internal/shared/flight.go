package shared

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FlightGroup collapses concurrent calls with the same key into one, like [singleflight.Group].
//
// The shared call runs on a context that is cancelled only once every caller waiting on it has returned,
// so one caller giving up does not fail the others. Each caller still returns as soon as its own context ends.
type FlightGroup struct {
	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Do runs fn once per key among concurrent callers. shared reports whether the result went to more than one caller.
func (g *FlightGroup) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (v any, err error, shared bool) {
	if err := ctx.Err(); err != nil {
		return nil, err, false
	}

	g.mu.Lock()
	if g.flights == nil {
		g.flights = make(map[string]*flight)
	}
	f, ok := g.flights[key]
	if !ok || f.ctx.Err() != nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		g.flights[key] = f
	}
	f.waiters++
	ch := g.group.DoChan(key, func() (any, error) {
		defer g.finish(key, f)
		return fn(f.ctx)
	})
	g.mu.Unlock()

	select {
	case res := <-ch:
		g.leave(key, f)
		return res.Val, res.Err, res.Shared
	case <-ctx.Done():
		g.leave(key, f)
		return nil, ctx.Err(), false
	}
}

func (g *FlightGroup) finish(key string, f *flight) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.flights[key] == f {
		delete(g.flights, key)
	}
	f.cancel()
}

func (g *FlightGroup) leave(key string, f *flight) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if g.flights[key] == f {
		delete(g.flights, key)
		g.group.Forget(key)
	}
}
