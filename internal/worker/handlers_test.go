package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/socialchef/chef/internal/cache"
	"github.com/socialchef/chef/internal/db"
	apperrors "github.com/socialchef/chef/internal/errors"
	"github.com/socialchef/chef/internal/services/chef"
	"github.com/socialchef/chef/internal/services/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mocks

type MockJobs struct {
	mock.Mock
	mu       sync.Mutex
	statuses []cache.JobStatus
	last     cache.Job
}

func (m *MockJobs) Put(ctx context.Context, job *cache.Job) error {
	m.mu.Lock()
	m.statuses = append(m.statuses, job.Status)
	m.last = *job
	m.mu.Unlock()
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockRecipes struct {
	mock.Mock
}

func (m *MockRecipes) Save(ctx context.Context, r *db.Recipe) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

type staticSessions struct {
	session *chef.Session
	err     error
}

func (s staticSessions) Get(context.Context) (*chef.Session, error) {
	return s.session, s.err
}

func newTask(t *testing.T, payload GenerateRecipePayload) *asynq.Task {
	t.Helper()
	task, err := NewGenerateRecipeTask(payload)
	require.NoError(t, err)
	return task
}

func TestHandleGenerateRecipe_Success(t *testing.T) {
	jobs := new(MockJobs)
	jobs.On("Put", mock.Anything, mock.Anything).Return(nil)
	recipes := new(MockRecipes)
	recipes.On("Save", mock.Anything, mock.MatchedBy(func(r *db.Recipe) bool {
		return r.Chef == "giovanni" && r.Record != nil && r.Record.Title != ""
	})).Return(nil)

	p := NewRecipeProcessor(staticSessions{session: chef.NewReducedSession(nil, nil)}, jobs, recipes, nil)

	err := p.HandleGenerateRecipe(context.Background(), newTask(t, GenerateRecipePayload{
		JobID:  "job-1",
		Items:  []string{"chickpeas", "spinach"},
		Prompt: "items: chickpeas, spinach",
		Chef:   "giovanni",
	}))
	require.NoError(t, err)

	assert.Equal(t, []cache.JobStatus{cache.JobRunning, cache.JobCompleted}, jobs.statuses)
	assert.Equal(t, "Roasted Chickpea And Spinach Curry", jobs.last.Recipe.Title)
	assert.NotEmpty(t, jobs.last.RecipeID)
	recipes.AssertExpectations(t)
}

func TestHandleGenerateRecipe_HistoryFailureIsNotFatal(t *testing.T) {
	jobs := new(MockJobs)
	jobs.On("Put", mock.Anything, mock.Anything).Return(nil)
	recipes := new(MockRecipes)
	recipes.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	p := NewRecipeProcessor(staticSessions{session: chef.NewReducedSession(nil, nil)}, jobs, recipes, nil)

	err := p.HandleGenerateRecipe(context.Background(), newTask(t, GenerateRecipePayload{JobID: "job-2", Prompt: "items: x"}))
	require.NoError(t, err)
	assert.Equal(t, cache.JobCompleted, jobs.last.Status)
}

func TestHandleGenerateRecipe_JobStoreFailureRetries(t *testing.T) {
	jobs := new(MockJobs)
	jobs.On("Put", mock.Anything, mock.MatchedBy(func(j *cache.Job) bool { return j.Status == cache.JobRunning })).Return(nil)
	jobs.On("Put", mock.Anything, mock.MatchedBy(func(j *cache.Job) bool { return j.Status == cache.JobCompleted })).
		Return(errors.New("redis down"))
	recipes := new(MockRecipes)
	recipes.On("Save", mock.Anything, mock.Anything).Return(nil)

	p := NewRecipeProcessor(staticSessions{session: chef.NewReducedSession(nil, nil)}, jobs, recipes, nil)

	err := p.HandleGenerateRecipe(context.Background(), newTask(t, GenerateRecipePayload{JobID: "job-3", Prompt: "items: x"}))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleGenerateRecipe_UnknownChefSkipsRetry(t *testing.T) {
	jobs := new(MockJobs)
	jobs.On("Put", mock.Anything, mock.Anything).Return(nil)
	recipes := new(MockRecipes)

	p := NewRecipeProcessor(staticSessions{session: chef.NewReducedSession(nil, nil)}, jobs, recipes, nil)

	err := p.HandleGenerateRecipe(context.Background(), newTask(t, GenerateRecipePayload{JobID: "job-4", Prompt: "items: x", Chef: "gordon"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.False(t, reportable(err))
	assert.Equal(t, cache.JobFailed, jobs.last.Status)
	assert.Contains(t, jobs.last.Error, "gordon")
	recipes.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestHandleGenerateRecipe_SessionUnavailable(t *testing.T) {
	jobs := new(MockJobs)
	jobs.On("Put", mock.Anything, mock.Anything).Return(nil)
	loadErr := apperrors.NewModelUnavailableError("failed to load tokenizer", "MODEL_UNAVAILABLE", errors.New("missing"))

	p := NewRecipeProcessor(staticSessions{err: loadErr}, jobs, new(MockRecipes), nil)

	err := p.HandleGenerateRecipe(context.Background(), newTask(t, GenerateRecipePayload{JobID: "job-5", Prompt: "items: x"}))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "model load failures are retried")
	assert.True(t, reportable(err))
	assert.Equal(t, cache.JobFailed, jobs.last.Status)
}

func TestHandleGenerateRecipe_InvalidPayload(t *testing.T) {
	p := NewRecipeProcessor(staticSessions{}, new(MockJobs), new(MockRecipes), nil)

	err := p.HandleGenerateRecipe(context.Background(), asynq.NewTask(TypeGenerateRecipe, []byte("{not json")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestNewGenerateRecipeTask(t *testing.T) {
	payload := GenerateRecipePayload{
		JobID:      "job-6",
		Items:      []string{"rice"},
		Prompt:     "items: rice",
		Chef:       "scheherazade",
		Parameters: generation.Config{TopK: 10, Extra: map[string]any{"seed": float64(3)}},
	}

	task, err := NewGenerateRecipeTask(payload)
	require.NoError(t, err)
	assert.Equal(t, TypeGenerateRecipe, task.Type())

	var decoded GenerateRecipePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, payload, decoded)
}
