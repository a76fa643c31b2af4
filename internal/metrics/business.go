package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	meter = otel.Meter("socialchef/chef")

	noopMeter = noop.NewMeterProvider().Meter("socialchef/chef")

	// Generation metrics
	RecipeGenerationsTotal   metric.Int64Counter
	RecipeGenerationDuration metric.Float64Histogram

	// Image enrichment metrics
	ImageFetchAttemptsTotal metric.Int64Counter
	ImageFetchDuration      metric.Float64Histogram
	ImageEnrichmentTotal    metric.Int64Counter

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram
)

func init() {
	// Instruments are usable before Init so packages and tests never see nil.
	RecipeGenerationsTotal, _ = noopMeter.Int64Counter("recipe.generations.total")
	RecipeGenerationDuration, _ = noopMeter.Float64Histogram("recipe.generation.duration")
	ImageFetchAttemptsTotal, _ = noopMeter.Int64Counter("image.fetch.attempts.total")
	ImageFetchDuration, _ = noopMeter.Float64Histogram("image.fetch.duration")
	ImageEnrichmentTotal, _ = noopMeter.Int64Counter("image.enrichment.total")
	ExternalAPICallsTotal, _ = noopMeter.Int64Counter("external.api.calls.total")
	ExternalAPIDuration, _ = noopMeter.Float64Histogram("external.api.duration")
}

func Init() error {
	var err error

	// Generation metrics
	RecipeGenerationsTotal, err = meter.Int64Counter(
		"recipe.generations.total",
		metric.WithDescription("Total number of recipe generations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RecipeGenerationDuration, err = meter.Float64Histogram(
		"recipe.generation.duration",
		metric.WithDescription("Duration of recipe generation including enrichment"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	// Image enrichment metrics
	ImageFetchAttemptsTotal, err = meter.Int64Counter(
		"image.fetch.attempts.total",
		metric.WithDescription("Total number of image fetch attempts across rotated credentials"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ImageFetchDuration, err = meter.Float64Histogram(
		"image.fetch.duration",
		metric.WithDescription("Duration of a single image fetch attempt"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2, 5, 10),
	)
	if err != nil {
		return err
	}

	ImageEnrichmentTotal, err = meter.Int64Counter(
		"image.enrichment.total",
		metric.WithDescription("Total number of enrichment runs by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	// External API metrics
	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	return nil
}

// RegisterSessionState reports 1 while the generation session is loaded and 0 before.
func RegisterSessionState(loaded func() bool) error {
	_, err := meter.Int64ObservableGauge(
		"chef.session.loaded",
		metric.WithDescription("Whether the generation session has been built"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			if loaded() {
				o.Observe(1)
			} else {
				o.Observe(0)
			}
			return nil
		}),
	)
	return err
}
