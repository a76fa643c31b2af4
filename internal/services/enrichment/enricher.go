// Package enrichment attaches an illustrative image to a generated recipe by
// rotating through image API credentials under a bounded attempt budget.
package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/socialchef/chef/internal/credentials"
	"github.com/socialchef/chef/internal/metrics"
	"github.com/socialchef/chef/internal/recipe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Fetcher looks up an image for a query with one credential pair.
// A nil image with a nil error means nothing was found.
type Fetcher interface {
	Fetch(ctx context.Context, query, id, key string) (*recipe.Image, error)
}

const (
	DefaultMaxAttempts  = 2
	DefaultFetchTimeout = 10 * time.Second
)

// Enricher runs the credential-rotation loop.
type Enricher struct {
	fetcher     Fetcher
	creds       credentials.Set
	maxAttempts int
	timeout     time.Duration
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithMaxAttempts sets the attempt cap. The loop stops once more than n
// fetches have been made, so at most n+1 calls happen.
func WithMaxAttempts(n int) Option {
	return func(e *Enricher) {
		if n >= 0 {
			e.maxAttempts = n
		}
	}
}

// WithFetchTimeout bounds each individual fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Enricher) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEnricher creates an Enricher over creds.
func NewEnricher(fetcher Fetcher, creds credentials.Set, opts ...Option) *Enricher {
	e := &Enricher{
		fetcher:     fetcher,
		creds:       creds,
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns an image for title, or nil when none could be found.
// Fetch errors count as a spent attempt and never abort the loop.
func (e *Enricher) Enrich(ctx context.Context, title string) *recipe.Image {
	if e == nil || e.fetcher == nil || e.creds.Empty() {
		recordOutcome(ctx, "no_credentials")
		return nil
	}

	query := strings.ToLower(title)
	attempts := 0
	for i, pair := range e.creds.Pairs() {
		if attempts > e.maxAttempts {
			slog.InfoContext(ctx, "Image attempt budget exhausted", "attempts", attempts, "max_attempts", e.maxAttempts)
			recordOutcome(ctx, "budget_exhausted")
			return nil
		}

		image, err := e.fetch(ctx, query, pair)
		attempts++

		if err != nil {
			slog.WarnContext(ctx, "Image fetch failed",
				"credential_index", i,
				"attempt", attempts,
				"error", err,
			)
			continue
		}
		if image != nil {
			slog.DebugContext(ctx, "Image found", "credential_index", i, "attempt", attempts)
			recordOutcome(ctx, "found")
			return image
		}
	}

	recordOutcome(ctx, "not_found")
	return nil
}

func (e *Enricher) fetch(ctx context.Context, query string, pair credentials.Pair) (*recipe.Image, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	startTime := time.Now()
	image, err := e.fetcher.Fetch(fetchCtx, query, pair.ID, pair.Key)

	status := "miss"
	switch {
	case err != nil:
		status = "error"
	case image != nil:
		status = "hit"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	metrics.ImageFetchAttemptsTotal.Add(ctx, 1, attrs)
	metrics.ImageFetchDuration.Record(ctx, time.Since(startTime).Seconds(), attrs)

	return image, err
}

func recordOutcome(ctx context.Context, outcome string) {
	metrics.ImageEnrichmentTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
