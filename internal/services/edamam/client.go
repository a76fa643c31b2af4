// Package edamam looks up recipe photos through the Edamam recipe search API.
package edamam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/socialchef/chef/internal/httpclient"
	"github.com/socialchef/chef/internal/metrics"
	"github.com/socialchef/chef/internal/recipe"
	"github.com/socialchef/chef/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultBaseURL is the public Edamam API host.
const DefaultBaseURL = "https://api.edamam.com"

const searchPath = "/api/recipes/v2"

// Client searches Edamam for an image matching a recipe title.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an Edamam client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpclient.New(timeout),
	}
}

type searchResponse struct {
	Hits []struct {
		Recipe struct {
			Label  string `json:"label"`
			Image  string `json:"image"`
			URL    string `json:"url"`
			Images map[string]struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"recipe"`
	} `json:"hits"`
}

// Fetch searches for query with one credential pair and returns the first
// hit that carries an image. No hits is not an error: it returns nil.
func (c *Client) Fetch(ctx context.Context, query, appID, appKey string) (*recipe.Image, error) {
	startTime := time.Now()
	defer func() {
		attrs := []attribute.KeyValue{attribute.String("provider", "edamam")}
		metrics.ExternalAPIDuration.Record(ctx, time.Since(startTime).Seconds(), metric.WithAttributes(attrs...))
		metrics.ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}()

	params := url.Values{}
	params.Set("type", "public")
	params.Set("q", query)
	params.Set("app_id", appID)
	params.Set("app_key", appKey)

	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Edamam"), http.MethodGet, c.baseURL+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewStatusError("edamam", resp, body)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode edamam response: %w", err)
	}

	for _, hit := range result.Hits {
		imageURL := hit.Recipe.Image
		if regular, ok := hit.Recipe.Images["REGULAR"]; ok && regular.URL != "" {
			imageURL = regular.URL
		}
		if imageURL == "" {
			continue
		}
		return &recipe.Image{
			URL:    imageURL,
			Source: hit.Recipe.URL,
			Label:  hit.Recipe.Label,
		}, nil
	}

	return nil, nil
}
