package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	apperrors "github.com/socialchef/chef/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_PassesResultThrough(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	inner := asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		calls++
		if string(task.Payload()) == "fail" {
			return boom
		}
		return nil
	})

	h := SentryMiddleware(TracingMiddleware(inner))

	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(TypeGenerateRecipe, []byte("ok"))))
	assert.ErrorIs(t, h.ProcessTask(context.Background(), asynq.NewTask(TypeGenerateRecipe, []byte("fail"))), boom)
	assert.Equal(t, 2, calls)
}

func TestReportable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable failure", errors.New("redis down"), true},
		{"bad payload", fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry), false},
		{
			"client mistake",
			fmt.Errorf("%w: %w", apperrors.NewValidationError("unknown chef", "UNKNOWN_CHEF", ""), asynq.SkipRetry),
			false,
		},
		{
			"permanent server failure",
			fmt.Errorf("%w: %w", apperrors.NewInternalError("boom", "INTERNAL", nil), asynq.SkipRetry),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reportable(tt.err))
		})
	}
}

func TestWorkerMetrics_Record(t *testing.T) {
	m, err := NewWorkerMetrics()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.Record(context.Background(), JobOutcome{Chef: "giovanni", Status: "success", HasImage: true, Duration: time.Second})
	})

	var nilMetrics *WorkerMetrics
	assert.NotPanics(t, func() {
		nilMetrics.Record(context.Background(), JobOutcome{Status: "error"})
	})
}
