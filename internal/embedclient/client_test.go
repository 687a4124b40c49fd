package embedclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsEmptyBaseURL(t *testing.T) {
	_, err := New(Config{Model: "bge-m3"})
	assert.Error(t, err)
}

func TestNew_RejectsEmptyModel(t *testing.T) {
	_, err := New(Config{BaseURL: "http://localhost:11434"})
	assert.Error(t, err)
}

func TestEmbed_ReturnsFirstEmbeddingFromResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-m3", req.Model)
		assert.Equal(t, "fn add(a, b) { a + b }", req.Input)

		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2, 0.3}}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Model: "bge-m3"})
	require.NoError(t, err)
	defer c.Close()

	vec, err := c.Embed(context.Background(), "fn add(a, b) { a + b }")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbed_ErrorsOnEmptyEmbeddingsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: nil})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Model: "bge-m3", MaxRetries: 1})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestEmbed_ErrorsOnDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2}}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Model: "bge-m3", Dimensions: 3, MaxRetries: 1})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestEmbed_RetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2, 3}}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Model: "bge-m3", MaxRetries: 5})
	require.NoError(t, err)
	defer c.Close()

	vec, err := c.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestEmbed_RespectsContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1}}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Model: "bge-m3", Timeout: 5 * time.Millisecond, MaxRetries: 1})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Embed(context.Background(), "text")
	assert.Error(t, err)
}
