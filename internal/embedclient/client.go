// Package embedclient talks to a local embedding server over the Ollama
// /api/embed wire format. akin only ever needs single-vector embeddings for
// one code unit's body at a time, so unlike a bulk indexer's embedder this
// client has no batching, progress callback, or thermal-timeout machinery.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vimo-dev/akin/internal/apperr"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
	PoolSize   int
}

// Client embeds text against a running Ollama-compatible server.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	baseURL    string
	model      string
	dimensions int
	timeout    time.Duration
	maxRetries int
	breaker    *apperr.CircuitBreaker
}

const defaultPoolSize = 4

// New creates a Client. BaseURL and Model must be non-empty.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperr.New(apperr.ErrCodeConfigInvalid, "embed base_url must not be empty", nil)
	}
	if cfg.Model == "" {
		return nil, apperr.New(apperr.ErrCodeConfigInvalid, "embed model must not be empty", nil)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	transport := &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		MaxConnsPerHost:     poolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{Transport: transport},
		transport:  transport,
		baseURL:    baseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    timeout,
		maxRetries: maxRetries,
		breaker:    apperr.NewCircuitBreaker("embedder:" + baseURL),
	}, nil
}

// embedRequest is the Ollama /api/embed request body.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the Ollama /api/embed response body.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the vector for text, retrying any failed attempt (HTTP
// errors, an empty response, or a wrong-dimension vector alike) with
// exponential backoff. Once the server has failed enough consecutive Embed
// calls to trip the circuit breaker, further calls fail immediately with
// apperr.ErrCircuitOpen instead of each paying the dial/read timeout against
// a server that is known to be down.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	retryCfg := apperr.DefaultRetryConfig()
	retryCfg.MaxRetries = c.maxRetries - 1
	if retryCfg.MaxRetries < 0 {
		retryCfg.MaxRetries = 0
	}

	var vec []float32
	err := c.breaker.Execute(func() error {
		v, err := apperr.RetryWithResult(ctx, retryCfg, func() ([]float32, error) {
			return c.doEmbed(ctx, text)
		})
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (c *Client) doEmbed(ctx context.Context, text string) ([]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeEmbedderHTTP, "failed to marshal embed request", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeEmbedderHTTP, "failed to build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeEmbedderHTTP, "embed request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperr.New(apperr.ErrCodeEmbedderHTTP,
			fmt.Sprintf("embed server returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.New(apperr.ErrCodeEmbedderHTTP, "failed to decode embed response", err)
	}
	if len(parsed.Embeddings) == 0 {
		return nil, apperr.New(apperr.ErrCodeEmbedderEmpty, "embed server returned no embeddings", nil)
	}

	vec := parsed.Embeddings[0]
	if c.dimensions > 0 && len(vec) != c.dimensions {
		return nil, apperr.New(apperr.ErrCodeDimensionMismatch,
			fmt.Sprintf("embed server returned %d dims, expected %d", len(vec), c.dimensions), nil).
			WithDetail("got", fmt.Sprintf("%d", len(vec))).
			WithDetail("want", fmt.Sprintf("%d", c.dimensions))
	}

	return vec, nil
}

// Dimensions returns the configured embedding dimensionality (0 if unset).
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Close releases pooled connections.
func (c *Client) Close() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}
