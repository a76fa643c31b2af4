// Package chef orchestrates recipe generation: model call, decoding,
// parsing and image enrichment.
package chef

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/socialchef/chef/internal/errors"
	"github.com/socialchef/chef/internal/metrics"
	"github.com/socialchef/chef/internal/recipe"
	"github.com/socialchef/chef/internal/services/generation"
	"github.com/socialchef/chef/internal/telemetry"
	"github.com/socialchef/chef/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = telemetry.Tracer("socialchef/chef")

// ImageEnricher finds an image for a recipe title.
type ImageEnricher interface {
	Enrich(ctx context.Context, title string) *recipe.Image
}

// Session is a loaded generation pipeline. It is read-only after
// construction and safe for concurrent use.
type Session struct {
	generator  generation.Generator
	tokenizer  generation.Tokenizer
	normalizer *recipe.Normalizer
	enricher   ImageEnricher
	presets    generation.Presets
	reduced    bool
}

// NewSession creates a session that calls the model.
func NewSession(generator generation.Generator, tokenizer generation.Tokenizer, enricher ImageEnricher, presets generation.Presets) *Session {
	return &Session{
		generator:  generator,
		tokenizer:  tokenizer,
		normalizer: recipe.NewNormalizer(tokenizer.SpecialTokens()),
		enricher:   enricher,
		presets:    withDefaultPresets(presets),
	}
}

// NewReducedSession creates a session that serves the bundled sample
// recipe instead of calling the model. Images are still looked up.
func NewReducedSession(enricher ImageEnricher, presets generation.Presets) *Session {
	return &Session{
		enricher: enricher,
		presets:  withDefaultPresets(presets),
		reduced:  true,
	}
}

func withDefaultPresets(presets generation.Presets) generation.Presets {
	if len(presets) == 0 {
		return generation.Presets(generation.DefaultPresets())
	}
	return presets
}

// Reduced reports whether the session serves sample output.
func (s *Session) Reduced() bool {
	return s.reduced
}

// Chefs lists the available preset names.
func (s *Session) Chefs() []string {
	return s.presets.Names()
}

// Resolve picks the preset for chef and overlays overrides on top of it.
func (s *Session) Resolve(chef string, overrides generation.Config) (generation.Config, error) {
	preset, ok := s.presets.Lookup(chef)
	if !ok {
		return generation.Config{}, apperrors.NewValidationError(
			fmt.Sprintf("unknown chef %q", chef),
			"UNKNOWN_CHEF",
			fmt.Sprintf("Choose one of: %v", s.presets.Names()),
		)
	}
	return preset.Merge(overrides), nil
}

// Generate produces a recipe for the items prompt.
// Malformed model output yields a partially filled record, not an error.
func (s *Session) Generate(ctx context.Context, items string, cfg generation.Config) (*recipe.Record, error) {
	ctx, span := tracer.Start(ctx, "chef.Generate")
	defer span.End()
	span.SetAttributes(attribute.Bool("chef.reduced", s.reduced))

	startTime := time.Now()
	status := "success"
	defer func() {
		attrs := metric.WithAttributes(attribute.String("status", status))
		metrics.RecipeGenerationsTotal.Add(ctx, 1, attrs)
		metrics.RecipeGenerationDuration.Record(ctx, time.Since(startTime).Seconds(), attrs)
	}()

	var rec *recipe.Record
	if s.reduced {
		rec = recipe.Sample(0)
	} else {
		var err error
		rec, err = s.generate(ctx, items, cfg.Forced())
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
			return nil, err
		}
	}

	if s.enricher != nil {
		rec.Image = s.enricher.Enrich(ctx, rec.Title)
	}

	slog.InfoContext(ctx, "Recipe generated",
		"title", rec.Title,
		"ingredients", len(rec.Ingredients),
		"directions", len(rec.Directions),
		"has_image", rec.HasImage(),
		"reduced", s.reduced,
	)
	return rec, nil
}

func (s *Session) generate(ctx context.Context, items string, cfg generation.Config) (*recipe.Record, error) {
	candidates, err := s.generator.Generate(ctx, items, cfg)
	if err != nil {
		var statusErr *utils.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
			appErr := apperrors.NewRateLimitError("model endpoint is throttling requests", "GENERATION_RATE_LIMITED",
				"Wait a moment and try again.")
			appErr.Err = err
			return nil, appErr
		}
		return nil, apperrors.NewRecipeGenerationError("recipe generation failed", "GENERATION_FAILED", err)
	}
	if len(candidates) == 0 {
		return nil, apperrors.NewRecipeGenerationError("model returned no sequences", "GENERATION_EMPTY", nil)
	}

	text := s.tokenizer.Decode(candidates[0].TokenIDs, false)
	return recipe.Parse(s.normalizer.Normalize(text)), nil
}
