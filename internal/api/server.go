package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/socialchef/chef/internal/cache"
	"github.com/socialchef/chef/internal/config"
	"github.com/socialchef/chef/internal/db"
	apperrors "github.com/socialchef/chef/internal/errors"
	"github.com/socialchef/chef/internal/middleware"
	"github.com/socialchef/chef/internal/sentry"
	"github.com/socialchef/chef/internal/services/chef"
	"github.com/socialchef/chef/internal/services/generation"
)

// SessionSource hands out the shared generation session.
type SessionSource interface {
	Get(ctx context.Context) (*chef.Session, error)
}

// JobStore reads and writes asynchronous job state.
type JobStore interface {
	Put(ctx context.Context, job *cache.Job) error
	Get(ctx context.Context, id string) (*cache.Job, error)
	Enabled() bool
}

// RecipeStore reads and writes generated recipe history.
type RecipeStore interface {
	Save(ctx context.Context, r *db.Recipe) error
	Get(ctx context.Context, id uuid.UUID) (*db.Recipe, error)
}

// Enqueuer schedules background tasks. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	cfg      *config.Config
	sessions SessionSource
	jobs     JobStore
	recipes  RecipeStore
	queue    Enqueuer
	presets  generation.Presets
}

func NewServer(cfg *config.Config, sessions SessionSource, jobs JobStore, recipes RecipeStore, queue Enqueuer) *Server {
	presets := generation.Presets(cfg.Chefs)
	if len(presets) == 0 {
		presets = generation.DefaultPresets()
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		jobs:     jobs,
		recipes:  recipes,
		queue:    queue,
		presets:  presets,
	}
}

// Routes returns the /api router. Every route sits behind the bearer auth middleware.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.AuthMiddleware(s.cfg))

	r.Get("/chefs", s.HandleListChefs)
	r.Post("/recipes", s.HandleGenerateRecipe)
	r.Post("/recipes/jobs", s.HandleEnqueueRecipe)
	r.Get("/recipes/jobs/{jobID}", s.HandleJobStatus)
	r.Get("/recipes/{recipeID}", s.HandleGetRecipe)
	return r
}

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type errorBody struct {
	Error *apperrors.AppError `json:"error"`
}

// writeError renders err as JSON. Errors that are not AppErrors become 500s.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError("internal server error", "INTERNAL", err)
	}

	if appErr.StatusCode >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"path", r.URL.Path,
			"type", appErr.Type,
			"code", appErr.Code(),
			"error", err,
		)
		sentry.CaptureError(r.Context(), err)
	}

	writeJSON(w, appErr.StatusCode, errorBody{Error: appErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
