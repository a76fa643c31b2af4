package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("socialchef/chef/worker")

// JobOutcome summarizes one run of a generation task.
type JobOutcome struct {
	Chef     string
	Status   string
	Retry    int
	HasImage bool
	Duration time.Duration
}

// WorkerMetrics counts generation jobs by chef and outcome.
type WorkerMetrics struct {
	jobs     metric.Int64Counter
	duration metric.Float64Histogram
	retries  metric.Int64Histogram
	images   metric.Int64Counter
}

func NewWorkerMetrics() (*WorkerMetrics, error) {
	jobs, err := meter.Int64Counter(
		"chef.jobs.total",
		metric.WithDescription("Generation jobs processed, by chef and status"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"chef.job.duration",
		metric.WithDescription("Wall time of a generation job including enrichment"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Histogram(
		"chef.job.retry",
		metric.WithDescription("Retry count at which a generation job finished"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3),
	)
	if err != nil {
		return nil, err
	}

	images, err := meter.Int64Counter(
		"chef.jobs.with_image",
		metric.WithDescription("Completed generation jobs that carry an image"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerMetrics{jobs: jobs, duration: duration, retries: retries, images: images}, nil
}

// Record is a no-op on a nil receiver so the processor runs without metrics.
func (m *WorkerMetrics) Record(ctx context.Context, o JobOutcome) {
	if m == nil {
		return
	}

	chef := attribute.String("chef", o.Chef)
	m.jobs.Add(ctx, 1, metric.WithAttributes(chef, attribute.String("status", o.Status)))
	m.duration.Record(ctx, o.Duration.Seconds(), metric.WithAttributes(chef))
	m.retries.Record(ctx, int64(o.Retry), metric.WithAttributes(attribute.String("status", o.Status)))
	if o.HasImage {
		m.images.Add(ctx, 1, metric.WithAttributes(chef))
	}
}
