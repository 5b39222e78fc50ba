package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/jamlist/internal/shared"
)

// doWithRetry sends the request, pacing through the limiter and retrying transient failures.
//
// 429 is retried for every method. Transport errors and 5xx are retried only for idempotent methods.
// When retries run out the last response is returned so its status reaches the caller.
func (c *SpotifyClient) doWithRetry(ctx context.Context, op, method, endpoint string, payload []byte, token string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%s: rate limiter: %w", op, err)
			}
		}

		req, err := c.newRequest(ctx, method, endpoint, payload, token)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%s: request canceled: %w", op, ctx.Err())
		}

		retryAfter, retry := shouldRetry(method, resp, err)
		if !retry || attempt >= c.maxRetries {
			if err != nil {
				return nil, &shared.TransportError{Op: op, Err: err}
			}
			return resp, nil
		}

		if err != nil {
			c.logger.Warn("retrying after error", "op", op, "attempt", attempt+1, "max", c.maxRetries, "error", err)
		} else {
			c.logger.Warn("retrying after status", "op", op, "attempt", attempt+1, "max", c.maxRetries, "status", resp.StatusCode)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if err := sleepWithContext(ctx, c.retryDelay(attempt, retryAfter)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func shouldRetry(method string, resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, idempotent(method)
	}
	if resp == nil {
		return 0, false
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return parseRetryAfter(resp), true
	case resp.StatusCode >= http.StatusInternalServerError:
		return parseRetryAfter(resp), idempotent(method)
	}
	return 0, false
}

// retryDelay doubles the base backoff per attempt, or uses Retry-After when the server sent one.
// Both are clamped to maxBackoff.
func (c *SpotifyClient) retryDelay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, c.maxBackoff)
	}

	delay := c.backoff
	for range attempt {
		if delay >= c.maxBackoff {
			break
		}
		delay *= 2
	}
	return min(delay, c.maxBackoff)
}

// parseRetryAfter reads Retry-After as delay seconds or an HTTP date.
func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}

	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
