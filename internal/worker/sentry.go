package worker

import (
	"context"
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	apperrors "github.com/socialchef/chef/internal/errors"
)

// SentryMiddleware reports task failures that are worth a human look.
// Intermediate failures of a task that asynq will retry are breadcrumbs;
// the last attempt is captured as an exception.
func SentryMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		taskID, _ := asynq.GetTaskID(ctx)
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("task_type", t.Type())
			scope.SetTag("job_id", taskID)
			scope.SetContext("task", sentry.Context{
				"retry":         retried,
				"max_retry":     maxRetry,
				"payload_bytes": len(t.Payload()),
			})
		})
		ctx = sentry.SetHubOnContext(ctx, hub)

		err := h.ProcessTask(ctx, t)
		if err == nil || !reportable(err) {
			return err
		}

		if !errors.Is(err, asynq.SkipRetry) && retried < maxRetry {
			hub.AddBreadcrumb(&sentry.Breadcrumb{
				Category: "task",
				Message:  err.Error(),
				Level:    sentry.LevelWarning,
			}, nil)
			return err
		}

		hub.WithScope(func(scope *sentry.Scope) {
			if appErr, ok := apperrors.As(err); ok {
				scope.SetTag("error_code", appErr.Code())
				scope.SetFingerprint([]string{t.Type(), appErr.Code()})
			}
			hub.CaptureException(err)
		})
		return err
	})
}

// reportable filters out client mistakes such as unknown chefs or bad payloads.
func reportable(err error) bool {
	if !errors.Is(err, asynq.SkipRetry) {
		return true
	}
	appErr, ok := apperrors.As(err)
	return ok && appErr.StatusCode >= 500
}
