package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"
)

// StatusError is a non-2xx answer from an upstream HTTP API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// NewStatusError builds a StatusError from resp, truncating body to 200 bytes
// and reading a delay-seconds Retry-After header.
func NewStatusError(provider string, resp *http.Response, body []byte) *StatusError {
	text := string(body)
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	e := &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: text}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		e.RetryAfter = time.Duration(secs) * time.Second
	}
	return e
}

// Backoff controls how an operation is retried.
type Backoff struct {
	MaxAttempts    int
	Initial        time.Duration
	Max            time.Duration
	Multiplier     float64
	AttemptTimeout time.Duration
	// Retryable decides whether err is worth another attempt. Nil means IsTransient.
	Retryable func(err error) bool
}

// DefaultBackoff allows three attempts of up to 30s each.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts:    3,
		Initial:        time.Second,
		Max:            5 * time.Second,
		Multiplier:     2,
		AttemptTimeout: 30 * time.Second,
	}
}

// IsTransient reports whether err looks like a failure that may clear on its own:
// 429 and 5xx answers, attempt timeouts, dropped or refused connections.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Delay returns the wait before attempt+1, with up to 10% jitter.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := time.Duration(float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt-1)))
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	if jitter := int64(delay) / 10; jitter > 0 {
		delay += time.Duration(rand.Int64N(jitter))
	}
	return delay
}

// Retry runs op until it succeeds, fails with a non-retryable error, or
// MaxAttempts is reached. Each attempt gets its own AttemptTimeout.
func Retry[T any](ctx context.Context, b Backoff, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	retryable := b.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	attempts := max(b.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if b.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, b.AttemptTimeout)
		}
		result, err := op(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts || ctx.Err() != nil || !retryable(err) {
			break
		}

		delay := b.Delay(attempt)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > delay {
			delay = statusErr.RetryAfter
			if b.Max > 0 && delay > b.Max {
				delay = b.Max
			}
		}
		slog.DebugContext(ctx, "Retrying after transient error", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
