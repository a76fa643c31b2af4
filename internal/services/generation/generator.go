// Package generation talks to the sequence-generation model and decodes its output.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/socialchef/chef/internal/httpclient"
	"github.com/socialchef/chef/internal/metrics"
	"github.com/socialchef/chef/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Candidate is one generated sequence.
type Candidate struct {
	TokenIDs []int `json:"generated_token_ids"`
}

// Generator produces token id sequences for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg Config) ([]Candidate, error)
}

// Client calls a text2text inference endpoint that returns raw token ids.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	backoff    utils.Backoff
}

// NewClient creates a generation client. A zero timeout defaults to 60s per attempt.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	backoff := utils.DefaultBackoff()
	backoff.AttemptTimeout = timeout
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpclient.New(0),
		backoff:    backoff,
	}
}

type generateRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters"`
}

// Generate posts the prompt and returns the generated candidates.
func (c *Client) Generate(ctx context.Context, prompt string, cfg Config) ([]Candidate, error) {
	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		attrs := []attribute.KeyValue{attribute.String("provider", "generation")}
		metrics.ExternalAPIDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}()

	params, err := cfg.Parameters()
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation parameters: %w", err)
	}
	body, err := json.Marshal(generateRequest{Inputs: prompt, Parameters: params})
	if err != nil {
		return nil, err
	}

	return utils.Retry(ctx, c.backoff, func(ctx context.Context) ([]Candidate, error) {
		return c.do(ctx, body)
	})
}

func (c *Client) do(ctx context.Context, body []byte) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Generation"), http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, utils.NewStatusError("generation", resp, respBody)
	}

	var candidates []Candidate
	if err := json.Unmarshal(respBody, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	return candidates, nil
}
