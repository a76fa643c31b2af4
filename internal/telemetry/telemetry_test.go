package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetry_NoEndpoint(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), "test-service", "v1.0.0", "test", "", nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw  string
		want Endpoint
	}{
		{
			raw:  "https://otlp.example.com",
			want: Endpoint{Host: "otlp.example.com", TracePath: "/v1/traces", LogPath: "/v1/logs", MetricPath: "/v1/metrics"},
		},
		{
			raw:  "http://localhost:4318",
			want: Endpoint{Host: "localhost:4318", Insecure: true, TracePath: "/v1/traces", LogPath: "/v1/logs", MetricPath: "/v1/metrics"},
		},
		{
			raw:  "https://otlp-gateway.grafana.net/otlp",
			want: Endpoint{Host: "otlp-gateway.grafana.net", TracePath: "/otlp/v1/traces", LogPath: "/otlp/v1/logs", MetricPath: "/otlp/v1/metrics"},
		},
		{
			raw:  "https://collector.example.com/ingest/v1/traces",
			want: Endpoint{Host: "collector.example.com", TracePath: "/ingest/v1/traces", LogPath: "/ingest/v1/logs", MetricPath: "/ingest/v1/metrics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEndpoint(tt.raw))
		})
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders("Authorization=Basic abc, x-scope = chef ,broken,=novalue")

	assert.Equal(t, map[string]string{
		"Authorization": "Basic abc",
		"x-scope":       "chef",
	}, got)
	assert.Empty(t, ParseHeaders(""))
}

func TestTracer(t *testing.T) {
	assert.NotNil(t, Tracer("test-tracer"))
}
