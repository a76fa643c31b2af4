package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/socialchef/chef/internal/api"
	"github.com/socialchef/chef/internal/cache"
	"github.com/socialchef/chef/internal/config"
	"github.com/socialchef/chef/internal/db"
	"github.com/socialchef/chef/internal/services/chef"
	"github.com/socialchef/chef/internal/worker"
)

const (
	testSecret = "integration-secret"
	testIssuer = "https://auth.socialchef.test"
)

// ============================================================================
// Test Token Helpers
// ============================================================================

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func validToken(t *testing.T, userID string) string {
	return signToken(t, testSecret, jwt.MapClaims{
		"sub": userID,
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
}

// ============================================================================
// In-memory stores
// ============================================================================

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]cache.Job
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]cache.Job)}
}

func (m *memJobStore) Put(_ context.Context, job *cache.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobStore) Get(_ context.Context, id string) (*cache.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

func (m *memJobStore) Enabled() bool { return true }

type memRecipeStore struct {
	mu      sync.Mutex
	recipes map[uuid.UUID]db.Recipe
}

func newMemRecipeStore() *memRecipeStore {
	return &memRecipeStore{recipes: make(map[uuid.UUID]db.Recipe)}
}

func (m *memRecipeStore) Save(_ context.Context, r *db.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.recipes[r.ID] = *r
	return nil
}

func (m *memRecipeStore) Get(_ context.Context, id uuid.UUID) (*db.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok {
		return nil, db.ErrRecipeNotFound
	}
	return &r, nil
}

// captureQueue records tasks instead of sending them to Redis.
type captureQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (q *captureQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: "default"}, nil
}

func (q *captureQueue) drain() []*asynq.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	tasks := q.tasks
	q.tasks = nil
	return tasks
}

// ============================================================================
// Fake Edamam
// ============================================================================

// fakeEdamam rejects every app id except goodID and answers goodID with one image hit.
type fakeEdamam struct {
	*httptest.Server
	goodID string
	calls  atomic.Int32
}

func newFakeEdamam(t *testing.T, goodID string) *fakeEdamam {
	t.Helper()
	f := &fakeEdamam{goodID: goodID}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Query().Get("app_id") != f.goodID {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","message":"Unauthorized app_id"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": []any{
				map[string]any{"recipe": map[string]any{
					"label": r.URL.Query().Get("q"),
					"url":   "https://example.com/recipe",
					"images": map[string]any{
						"REGULAR": map[string]any{"url": "https://img.example.com/regular.jpg"},
					},
				}},
			},
		})
	}))
	t.Cleanup(f.Close)
	return f
}

// ============================================================================
// Stack
// ============================================================================

type stack struct {
	router    http.Handler
	jobs      *memJobStore
	recipes   *memRecipeStore
	queue     *captureQueue
	processor *worker.RecipeProcessor
}

// newStack wires the API and the worker processor around one reduced-mode
// loader, the way cmd/server and cmd/worker do against Redis and Postgres.
func newStack(t *testing.T, cfg *config.Config) *stack {
	t.Helper()
	cfg.SetChefDefaults()

	loader := chef.NewLoader(chef.Build(cfg, nil))
	s := &stack{
		jobs:    newMemJobStore(),
		recipes: newMemRecipeStore(),
		queue:   &captureQueue{},
	}
	s.processor = worker.NewRecipeProcessor(loader, s.jobs, s.recipes, nil)

	apiServer := api.NewServer(cfg, loader, s.jobs, s.recipes, s.queue)
	r := chi.NewRouter()
	r.Get("/health", api.HandleHealth)
	r.Mount("/api", apiServer.Routes())
	s.router = r
	return s
}

func (s *stack) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, stringsReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}
