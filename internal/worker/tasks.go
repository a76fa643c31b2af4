package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/socialchef/chef/internal/services/generation"
)

// Task type constants
const (
	TypeGenerateRecipe = "generate:recipe"
)

// GenerateRecipePayload is the payload for recipe generation tasks
type GenerateRecipePayload struct {
	JobID      string            `json:"job_id"`
	Items      []string          `json:"items"`
	Prompt     string            `json:"prompt"`
	Chef       string            `json:"chef"`
	Parameters generation.Config `json:"parameters"`
}

// NewGenerateRecipeTask creates a new recipe generation task
func NewGenerateRecipeTask(payload GenerateRecipePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateRecipe, data,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.TaskID(payload.JobID),
	), nil
}
