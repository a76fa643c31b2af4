package edamam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/recipes/v2", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "public", q.Get("type"))
		assert.Equal(t, "chicken curry", q.Get("q"))
		assert.Equal(t, "id-1", q.Get("app_id"))
		assert.Equal(t, "key-1", q.Get("app_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":[
			{"recipe":{"label":"No Photo","image":""}},
			{"recipe":{"label":"Chicken Curry","image":"https://img/thumb.jpg","url":"https://example.com/curry",
			  "images":{"REGULAR":{"url":"https://img/regular.jpg"}}}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	image, err := client.Fetch(context.Background(), "chicken curry", "id-1", "key-1")
	require.NoError(t, err)
	require.NotNil(t, image)

	assert.Equal(t, "https://img/regular.jpg", image.URL)
	assert.Equal(t, "https://example.com/curry", image.Source)
	assert.Equal(t, "Chicken Curry", image.Label)
}

func TestClient_FetchNoHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":[]}`))
	}))
	defer server.Close()

	image, err := NewClient(server.URL, time.Second).Fetch(context.Background(), "nothing", "id", "key")
	require.NoError(t, err)
	assert.Nil(t, image)
}

func TestClient_FetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Unauthorized app_id"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	image, err := NewClient(server.URL, time.Second).Fetch(context.Background(), "soup", "bad", "bad")
	require.Error(t, err)
	assert.Nil(t, image)
	assert.Contains(t, err.Error(), "status 401")
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("", 0).baseURL)
	assert.Equal(t, "http://localhost:9999", NewClient("http://localhost:9999/", 0).baseURL)
}
