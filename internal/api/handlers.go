package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/socialchef/chef/internal/cache"
	"github.com/socialchef/chef/internal/db"
	apperrors "github.com/socialchef/chef/internal/errors"
	"github.com/socialchef/chef/internal/middleware"
	"github.com/socialchef/chef/internal/recipe"
	"github.com/socialchef/chef/internal/services/generation"
	"github.com/socialchef/chef/internal/validation"
	"github.com/socialchef/chef/internal/worker"
)

// ItemList accepts either "a, b, c" or ["a", "b", "c"].
type ItemList string

func (l *ItemList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = ItemList(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("items must be a string or an array of strings")
	}
	*l = ItemList(strings.Join(list, ","))
	return nil
}

type GenerateRecipeRequest struct {
	Items      ItemList          `json:"items"`
	Chef       string            `json:"chef,omitempty"`
	Parameters generation.Config `json:"parameters"`
}

type RecipeResponse struct {
	ID    string   `json:"id"`
	Chef  string   `json:"chef"`
	Items []string `json:"items"`
	*recipe.Record
}

type generationRequest struct {
	prompt string
	items  []string
	chef   string
	params generation.Config
}

// parseGenerationRequest decodes and validates the body shared by the
// synchronous and queued endpoints.
func (s *Server) parseGenerationRequest(r *http.Request) (*generationRequest, error) {
	var req GenerateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid request body", "INVALID_BODY", err.Error())
	}

	prompt, items, err := validation.ItemsPrompt(string(req.Items))
	if err != nil {
		return nil, err
	}

	chefName := strings.ToLower(strings.TrimSpace(req.Chef))
	if chefName == "" {
		chefName = generation.DefaultChef
	}
	if _, ok := s.presets.Lookup(chefName); !ok {
		return nil, apperrors.NewValidationError("unknown chef \""+req.Chef+"\"", "UNKNOWN_CHEF",
			"Choose one of: "+strings.Join(s.presets.Names(), ", "))
	}

	return &generationRequest{prompt: prompt, items: items, chef: chefName, params: req.Parameters}, nil
}

// HandleGenerateRecipe generates a recipe synchronously.
func (s *Server) HandleGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := s.parseGenerationRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	session, err := s.sessions.Get(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cfg, err := session.Resolve(req.chef, req.params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := session.Generate(ctx, req.prompt, cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stored := &db.Recipe{ID: uuid.New(), Items: req.items, Chef: req.chef, Record: rec}
	if err := s.recipes.Save(ctx, stored); err != nil {
		slog.WarnContext(ctx, "Failed to save recipe history", "recipe_id", stored.ID, "error", err)
	}

	userID, _ := middleware.GetUserID(ctx)
	slog.InfoContext(ctx, "Recipe served", "recipe_id", stored.ID, "chef", req.chef, "user_id", userID)

	writeJSON(w, http.StatusOK, RecipeResponse{
		ID:     stored.ID.String(),
		Chef:   req.chef,
		Items:  req.items,
		Record: rec,
	})
}

type EnqueueRecipeResponse struct {
	JobID  string          `json:"job_id"`
	Status cache.JobStatus `json:"status"`
}

func (s *Server) jobsEnabled() bool {
	return s.jobs != nil && s.jobs.Enabled()
}

func errJobsDisabled() error {
	return apperrors.NewUnavailableError("background jobs are not configured", "JOBS_DISABLED",
		"Set REDIS_URL and run the worker, or use POST /api/recipes.")
}

// HandleEnqueueRecipe queues a generation job for the worker.
func (s *Server) HandleEnqueueRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.queue == nil || !s.jobsEnabled() {
		writeError(w, r, errJobsDisabled())
		return
	}

	req, err := s.parseGenerationRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jobID := uuid.New().String()
	job := &cache.Job{ID: jobID, Status: cache.JobQueued, Items: req.prompt, Chef: req.chef}
	if err := s.jobs.Put(ctx, job); err != nil {
		writeError(w, r, apperrors.NewInternalError("failed to create job", "JOB_CREATE_FAILED", err))
		return
	}

	task, err := worker.NewGenerateRecipeTask(worker.GenerateRecipePayload{
		JobID:      jobID,
		Items:      req.items,
		Prompt:     req.prompt,
		Chef:       req.chef,
		Parameters: req.params,
	})
	if err != nil {
		writeError(w, r, apperrors.NewInternalError("failed to create task", "TASK_CREATE_FAILED", err))
		return
	}

	if _, err := s.queue.EnqueueContext(ctx, task); err != nil {
		job.Status = cache.JobFailed
		job.Error = "failed to enqueue"
		_ = s.jobs.Put(ctx, job)
		writeError(w, r, apperrors.NewInternalError("failed to enqueue task", "ENQUEUE_FAILED", err))
		return
	}

	writeJSON(w, http.StatusAccepted, EnqueueRecipeResponse{JobID: jobID, Status: cache.JobQueued})
}

// HandleJobStatus returns the state of a queued job.
func (s *Server) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, r, apperrors.NewValidationError("job id is required", "JOB_ID_REQUIRED", ""))
		return
	}

	if !s.jobsEnabled() {
		writeError(w, r, errJobsDisabled())
		return
	}

	job, err := s.jobs.Get(r.Context(), jobID)
	if err != nil {
		writeError(w, r, apperrors.NewInternalError("failed to load job", "JOB_LOAD_FAILED", err))
		return
	}
	if job == nil {
		writeError(w, r, apperrors.NewNotFoundError("job not found", "JOB_NOT_FOUND", "Jobs expire after 24 hours."))
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// HandleGetRecipe returns a previously generated recipe.
func (s *Server) HandleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "recipeID"))
	if err != nil {
		writeError(w, r, apperrors.NewValidationError("invalid recipe id", "INVALID_RECIPE_ID", "Recipe ids are UUIDs."))
		return
	}

	stored, err := s.recipes.Get(r.Context(), id)
	if errors.Is(err, db.ErrRecipeNotFound) {
		writeError(w, r, apperrors.NewNotFoundError("recipe not found", "RECIPE_NOT_FOUND", ""))
		return
	}
	if err != nil {
		writeError(w, r, apperrors.NewInternalError("failed to load recipe", "RECIPE_LOAD_FAILED", err))
		return
	}

	writeJSON(w, http.StatusOK, RecipeResponse{
		ID:     stored.ID.String(),
		Chef:   stored.Chef,
		Items:  stored.Items,
		Record: stored.Record,
	})
}

type ChefsResponse struct {
	Chefs   []string `json:"chefs"`
	Default string   `json:"default"`
}

// HandleListChefs lists the available chef presets.
func (s *Server) HandleListChefs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ChefsResponse{
		Chefs:   s.presets.Names(),
		Default: generation.DefaultChef,
	})
}
