package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	apperrors "github.com/socialchef/chef/internal/errors"
	"github.com/socialchef/chef/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = telemetry.Tracer("socialchef/chef/worker")

// TracingMiddleware starts a consumer span per task. Task ids double as job
// ids, so the span can be found from a job status lookup.
func TracingMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		taskID, _ := asynq.GetTaskID(ctx)
		queueName, _ := asynq.GetQueueName(ctx)
		retryCount, _ := asynq.GetRetryCount(ctx)

		ctx, span := tracer.Start(ctx, "process "+t.Type(),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "asynq"),
				attribute.String("messaging.operation", "process"),
				attribute.String("messaging.destination.name", queueName),
				attribute.String("messaging.message.id", taskID),
				attribute.Int("messaging.message.body.size", len(t.Payload())),
				attribute.Int("asynq.retry_count", retryCount),
			),
		)
		defer span.End()

		err := h.ProcessTask(ctx, t)
		if err == nil {
			return nil
		}

		span.RecordError(err)
		span.SetAttributes(attribute.Bool("asynq.skip_retry", errors.Is(err, asynq.SkipRetry)))
		if appErr, ok := apperrors.As(err); ok {
			span.SetAttributes(
				attribute.String("error.type", string(appErr.Type)),
				attribute.String("error.code", appErr.Code()),
			)
		}
		span.SetStatus(codes.Error, "task failed")
		return err
	})
}
