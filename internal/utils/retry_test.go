package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff() Backoff {
	b := DefaultBackoff()
	b.Initial = time.Millisecond
	b.Max = 5 * time.Millisecond
	return b
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"too many requests", &StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"service unavailable", &StatusError{StatusCode: http.StatusServiceUnavailable}, true},
		{"wrapped bad gateway", fmt.Errorf("call: %w", &StatusError{StatusCode: http.StatusBadGateway}), true},
		{"bad request", &StatusError{StatusCode: http.StatusBadRequest}, false},
		{"unauthorized", &StatusError{StatusCode: http.StatusUnauthorized}, false},
		{"attempt timeout", context.DeadlineExceeded, true},
		{"caller cancelled", context.Canceled, false},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"plain error", errors.New("decode failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestNewStatusError(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")

	err := NewStatusError("generation", resp, []byte("slow down"))
	assert.Equal(t, 3*time.Second, err.RetryAfter)
	assert.Equal(t, "generation API error (status 429): slow down", err.Error())

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err = NewStatusError("edamam", &http.Response{StatusCode: 500, Header: http.Header{}}, long)
	assert.Len(t, err.Body, 203)
	assert.Zero(t, err.RetryAfter)
}

func TestRetry_Success(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastBackoff(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRetry_RecoversFromTransientError(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastBackoff(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &StatusError{StatusCode: http.StatusServiceUnavailable}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRetry_MaxAttemptsExhausted(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastBackoff(), func(ctx context.Context) (int, error) {
		calls++
		return 0, &StatusError{StatusCode: http.StatusBadGateway}
	})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastBackoff(), func(ctx context.Context) (int, error) {
		calls++
		return 0, &StatusError{StatusCode: http.StatusBadRequest}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_CustomClassifier(t *testing.T) {
	b := fastBackoff()
	b.Retryable = func(err error) bool { return err.Error() == "again" }

	calls := 0
	_, err := Retry(context.Background(), b, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("again")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_CallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := fastBackoff()
	b.Initial = time.Second
	b.Max = time.Second

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Retry(ctx, b, func(ctx context.Context) (int, error) {
		return 0, &StatusError{StatusCode: http.StatusServiceUnavailable}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRetry_AttemptTimeout(t *testing.T) {
	b := fastBackoff()
	b.MaxAttempts = 2
	b.AttemptTimeout = 10 * time.Millisecond

	calls := 0
	_, err := Retry(context.Background(), b, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond, Multiplier: 2}

	assert.GreaterOrEqual(t, b.Delay(1), 100*time.Millisecond)
	assert.Less(t, b.Delay(1), 111*time.Millisecond)
	assert.GreaterOrEqual(t, b.Delay(2), 200*time.Millisecond)
	assert.GreaterOrEqual(t, b.Delay(5), 300*time.Millisecond)
	assert.Less(t, b.Delay(5), 331*time.Millisecond)
}

func TestRetry_HonorsRetryAfterUpToMax(t *testing.T) {
	b := fastBackoff()
	b.MaxAttempts = 2
	b.Max = 30 * time.Millisecond

	calls := 0
	start := time.Now()
	_, err := Retry(context.Background(), b, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &StatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: time.Hour}
		}
		return 1, nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
}
