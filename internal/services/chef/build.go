package chef

import (
	"context"
	"log/slog"

	"github.com/socialchef/chef/internal/cache"
	"github.com/socialchef/chef/internal/config"
	"github.com/socialchef/chef/internal/credentials"
	apperrors "github.com/socialchef/chef/internal/errors"
	"github.com/socialchef/chef/internal/services/edamam"
	"github.com/socialchef/chef/internal/services/enrichment"
	"github.com/socialchef/chef/internal/services/generation"
)

// Build returns a BuildFunc that assembles a session from cfg.
// images may be nil, which disables image caching.
func Build(cfg *config.Config, images *cache.ImageCache) BuildFunc {
	return func(ctx context.Context) (*Session, error) {
		creds := credentials.Parse(cfg.EdamamAppIDs, cfg.EdamamAppKeys)
		if creds.Empty() {
			slog.WarnContext(ctx, "Image credentials missing or mismatched, enrichment disabled")
		} else {
			slog.InfoContext(ctx, "Image credentials loaded", "count", creds.Len(), "ids", creds.IDs())
		}

		var fetcher enrichment.Fetcher = edamam.NewClient(cfg.EdamamBaseURL, 0)
		if images.Enabled() {
			fetcher = enrichment.NewCachedFetcher(fetcher, images)
		}
		enricher := enrichment.NewEnricher(fetcher, creds,
			enrichment.WithMaxAttempts(cfg.ImageMaxAttempts),
			enrichment.WithFetchTimeout(cfg.ImageFetchTimeout),
		)
		presets := generation.Presets(cfg.Chefs)

		if cfg.ReducedMode {
			slog.InfoContext(ctx, "Reduced mode: serving sample recipes")
			return NewReducedSession(enricher, presets), nil
		}

		if cfg.GenerationURL == "" {
			return nil, apperrors.NewModelUnavailableError("generation endpoint not configured", "MODEL_UNAVAILABLE", nil)
		}
		tokenizer, err := generation.LoadTokenizer(cfg.TokenizerPath)
		if err != nil {
			return nil, apperrors.NewModelUnavailableError("failed to load tokenizer", "MODEL_UNAVAILABLE", err)
		}
		generator := generation.NewClient(cfg.GenerationURL, cfg.GenerationAPIKey, cfg.GenerationTimeout)

		slog.InfoContext(ctx, "Generation session ready",
			"endpoint", cfg.GenerationURL,
			"special_tokens", len(tokenizer.SpecialTokens()),
		)
		return NewSession(generator, tokenizer, enricher, presets), nil
	}
}
