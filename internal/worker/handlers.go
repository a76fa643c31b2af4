package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/socialchef/chef/internal/cache"
	"github.com/socialchef/chef/internal/db"
	apperrors "github.com/socialchef/chef/internal/errors"
	"github.com/socialchef/chef/internal/services/chef"
	"golang.org/x/sync/errgroup"
)

// SessionSource hands out the shared generation session.
type SessionSource interface {
	Get(ctx context.Context) (*chef.Session, error)
}

// JobWriter records job progress for pollers.
type JobWriter interface {
	Put(ctx context.Context, job *cache.Job) error
}

// RecipeSaver persists generated recipes.
type RecipeSaver interface {
	Save(ctx context.Context, r *db.Recipe) error
}

type RecipeProcessor struct {
	sessions SessionSource
	jobs     JobWriter
	recipes  RecipeSaver
	metrics  *WorkerMetrics
}

func NewRecipeProcessor(sessions SessionSource, jobs JobWriter, recipes RecipeSaver, metrics *WorkerMetrics) *RecipeProcessor {
	return &RecipeProcessor{
		sessions: sessions,
		jobs:     jobs,
		recipes:  recipes,
		metrics:  metrics,
	}
}

func (p *RecipeProcessor) HandleGenerateRecipe(ctx context.Context, t *asynq.Task) error {
	startTime := time.Now()
	outcome := JobOutcome{Status: "success"}
	outcome.Retry, _ = asynq.GetRetryCount(ctx)
	defer func() {
		outcome.Duration = time.Since(startTime)
		p.metrics.Record(ctx, outcome)
	}()

	var payload GenerateRecipePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		outcome.Status = "invalid"
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	job := &cache.Job{
		ID:     payload.JobID,
		Status: cache.JobRunning,
		Items:  payload.Prompt,
		Chef:   payload.Chef,
	}
	outcome.Chef = payload.Chef
	slog.InfoContext(ctx, "Generating recipe", "job_id", job.ID, "chef", job.Chef, "items", len(payload.Items))
	p.putJob(ctx, job)

	session, err := p.sessions.Get(ctx)
	if err != nil {
		outcome.Status = "error"
		return p.fail(ctx, job, err)
	}

	cfg, err := session.Resolve(payload.Chef, payload.Parameters)
	if err != nil {
		outcome.Status = "invalid"
		return p.fail(ctx, job, err)
	}

	rec, err := session.Generate(ctx, payload.Prompt, cfg)
	if err != nil {
		outcome.Status = "error"
		return p.fail(ctx, job, err)
	}

	stored := &db.Recipe{
		ID:     uuid.New(),
		Items:  payload.Items,
		Chef:   payload.Chef,
		Record: rec,
	}
	job.Status = cache.JobCompleted
	job.Recipe = rec
	job.RecipeID = stored.ID.String()

	outcome.HasImage = rec.HasImage()

	// History is best effort; the job record is what pollers wait for.
	var g errgroup.Group
	g.Go(func() error {
		if err := p.recipes.Save(ctx, stored); err != nil {
			slog.WarnContext(ctx, "Failed to save recipe history", "job_id", job.ID, "recipe_id", stored.ID, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		return p.jobs.Put(ctx, job)
	})
	if err := g.Wait(); err != nil {
		outcome.Status = "error"
		return fmt.Errorf("failed to store job result: %w", err)
	}

	slog.InfoContext(ctx, "Recipe job completed", "job_id", job.ID, "recipe_id", job.RecipeID, "title", rec.Title)
	return nil
}

// fail marks the job failed once no retry will follow, and tells asynq
// whether to retry.
func (p *RecipeProcessor) fail(ctx context.Context, job *cache.Job, err error) error {
	retryable := true
	if appErr, ok := apperrors.As(err); ok {
		retryable = appErr.IsRetryable() || appErr.Type == apperrors.ErrorTypeModelUnavailable
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	final := !retryable || retried >= maxRetry

	slog.ErrorContext(ctx, "Recipe job failed",
		"job_id", job.ID,
		"retry", retried,
		"final", final,
		"error", err,
	)

	job.Error = err.Error()
	if final {
		job.Status = cache.JobFailed
	}
	p.putJob(ctx, job)

	if !retryable {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return err
}

func (p *RecipeProcessor) putJob(ctx context.Context, job *cache.Job) {
	if err := p.jobs.Put(ctx, job); err != nil {
		slog.WarnContext(ctx, "Failed to update job status", "job_id", job.ID, "status", job.Status, "error", err)
	}
}
