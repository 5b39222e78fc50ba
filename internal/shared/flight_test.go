package shared

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFlightGroup(t *testing.T) {
	t.Run("concurrent calls share one run", func(t *testing.T) {
		var g FlightGroup
		var runs atomic.Int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err, _ := g.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
					runs.Add(1)
					<-release
					return "value", nil
				})
				if err != nil || v != "value" {
					t.Errorf("unexpected result %v, %v", v, err)
				}
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		if runs.Load() != 1 {
			t.Errorf("expected one run, got %d", runs.Load())
		}
	})

	t.Run("joined caller outlives the first caller's cancellation", func(t *testing.T) {
		var g FlightGroup
		started := make(chan struct{})
		release := make(chan struct{})
		fn := func(ctx context.Context) (any, error) {
			close(started)
			select {
			case <-release:
				return "value", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		first, cancelFirst := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err, _ := g.Do(first, "k", fn)
			firstErr <- err
		}()
		<-started

		second := make(chan any, 1)
		go func() {
			v, err, _ := g.Do(context.Background(), "k", fn)
			if err != nil {
				t.Errorf("joined caller failed: %v", err)
			}
			second <- v
		}()
		time.Sleep(20 * time.Millisecond)

		cancelFirst()
		if err := <-firstErr; !errors.Is(err, context.Canceled) {
			t.Errorf("first caller should see its own cancellation, got %v", err)
		}

		close(release)
		if v := <-second; v != "value" {
			t.Errorf("joined caller expected value, got %v", v)
		}
	})

	t.Run("run is cancelled once every caller leaves", func(t *testing.T) {
		var g FlightGroup
		stopped := make(chan error, 1)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err, _ := g.Do(ctx, "k", func(ctx context.Context) (any, error) {
			<-ctx.Done()
			stopped <- ctx.Err()
			return nil, ctx.Err()
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}

		select {
		case err := <-stopped:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("run should see cancellation, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("run was not cancelled after the last caller left")
		}

		v, err, _ := g.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
			return "fresh", ctx.Err()
		})
		if err != nil || v != "fresh" {
			t.Errorf("next call should start a live run, got %v, %v", v, err)
		}
	})

	t.Run("cancelled context never starts a run", func(t *testing.T) {
		var g FlightGroup
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err, _ := g.Do(ctx, "k", func(ctx context.Context) (any, error) {
			t.Error("fn should not run")
			return nil, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
