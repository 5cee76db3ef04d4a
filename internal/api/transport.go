// AngelaMos | 2026
// transport.go

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/civiclens/console-client/internal/credentials"
)

// TokenSource yields the bearer token to attach, or "" for none.
type TokenSource interface {
	Token() string
}

var _ TokenSource = (*credentials.Store)(nil)

// BearerRoundTripper attaches the cached bearer token and a request
// correlation ID to every outgoing call. An absent token is not an
// error; the request simply goes out unauthenticated.
type BearerRoundTripper struct {
	Base   http.RoundTripper
	Tokens TokenSource
}

func (b *BearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := b.Base
	if base == nil {
		base = http.DefaultTransport
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("X-Request-ID", uuid.New().String())

	if b.Tokens != nil {
		if token := b.Tokens.Token(); token != "" {
			clone.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return base.RoundTrip(clone)
}

// BackoffFunc returns the backoff duration for a retry attempt.
type BackoffFunc func(attempt int) time.Duration

// RetryOptions configures retry behavior for the transport.
type RetryOptions struct {
	MaxRetries int
	Backoff    BackoffFunc
}

// RetryRoundTripper retries idempotent requests on network errors and
// 5xx/429 responses. Login and the other mutations are POSTs and are
// never replayed.
type RetryRoundTripper struct {
	Base    http.RoundTripper
	Options RetryOptions
}

func (r *RetryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := r.Base
	if base == nil {
		base = http.DefaultTransport
	}

	backoff := r.Options.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff(100*time.Millisecond, 2*time.Second)
	}

	attempt := 0
	for {
		resp, err := base.RoundTrip(req)
		if attempt >= r.Options.MaxRetries || !shouldRetry(req, resp, err) {
			return resp, err
		}

		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}

		attempt++
		if waitErr := sleepWithContext(req.Context(), backoff(attempt)); waitErr != nil {
			return nil, waitErr
		}
	}
}

// ExponentialBackoff returns a backoff function with exponential growth.
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if max <= 0 {
		max = 2 * time.Second
	}
	return func(attempt int) time.Duration {
		if attempt <= 0 {
			return base
		}
		delay := base << (attempt - 1)
		if delay > max {
			return max
		}
		return delay
	}
}

func shouldRetry(req *http.Request, resp *http.Response, err error) bool {
	if !isIdempotent(req.Method) {
		return false
	}
	if err != nil {
		if errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return true
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= http.StatusInternalServerError
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
