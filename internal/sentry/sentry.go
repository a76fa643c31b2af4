// Package sentry reports unexpected failures from the API and the worker.
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	apperrors "github.com/socialchef/chef/internal/errors"
)

// Init configures the global Sentry client. An empty DSN leaves reporting off.
// Tracing stays with OpenTelemetry.
func Init(dsn, env, serviceName, serviceVersion string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		ServerName:       serviceName,
		Release:          serviceName + "@" + serviceVersion,
		AttachStacktrace: true,
		TracesSampleRate: 0,
		BeforeSend:       dropClientErrors,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return nil
}

// dropClientErrors discards events whose exception is an operational 4xx AppError.
func dropClientErrors(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint == nil || hint.OriginalException == nil {
		return event
	}
	if appErr, ok := apperrors.As(hint.OriginalException); ok && appErr.IsOperational && appErr.StatusCode < 500 {
		return nil
	}
	return event
}

// Flush waits up to timeout for queued events. Call it during shutdown.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Recover reports a panic in progress. Use it deferred at the top of main.
func Recover() {
	sentry.Recover()
}

// CaptureError reports err on the hub bound to ctx, or the current hub.
// AppErrors are tagged with their type and code.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if appErr, ok := apperrors.As(err); ok {
			scope.SetTag("error_type", string(appErr.Type))
			scope.SetTag("error_code", appErr.Code())
			if !appErr.IsOperational {
				scope.SetLevel(sentry.LevelFatal)
			}
		}
		hub.CaptureException(err)
	})
}
