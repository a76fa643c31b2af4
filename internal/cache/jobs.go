package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/socialchef/chef/internal/recipe"
)

// JobStatus is the lifecycle state of an asynchronous generation job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// DefaultJobTTL bounds how long job results stay readable.
const DefaultJobTTL = 24 * time.Hour

// Job is the state of a generation job as seen by pollers.
type Job struct {
	ID        string         `json:"job_id"`
	Status    JobStatus      `json:"status"`
	Items     string         `json:"items"`
	Chef      string         `json:"chef"`
	RecipeID  string         `json:"recipe_id,omitempty"`
	Recipe    *recipe.Record `json:"recipe,omitempty"`
	Error     string         `json:"error,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// JobStore keeps job state in Redis.
type JobStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewJobStore creates a job store. A nil client disables it.
func NewJobStore(client *redis.Client, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &JobStore{
		client: client,
		prefix: "job:",
		ttl:    ttl,
	}
}

// Enabled reports whether the store is backed by Redis.
func (s *JobStore) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *JobStore) key(id string) string {
	return s.prefix + id
}

// Put writes job, stamping UpdatedAt.
func (s *JobStore) Put(ctx context.Context, job *Job) error {
	if !s.Enabled() {
		return nil
	}

	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(job.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job %s: %w", job.ID, err)
	}
	return nil
}

// Get returns the job with id, or nil when it is unknown or expired.
func (s *JobStore) Get(ctx context.Context, id string) (*Job, error) {
	if !s.Enabled() {
		return nil, nil
	}

	data, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &job, nil
}
