package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// UpdatePath is the suggestion service endpoint
const UpdatePath = "/api/update"

// Client sends one update request to a suggestion service
type Client interface {
	Suggest(ctx context.Context, token string, req UpdateRequest) (*UpdateResponse, error)
}

// HTTPClient calls a remote suggestion service
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the service at baseURL
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// Suggest implements Client
func (c *HTTPClient) Suggest(ctx context.Context, token string, body UpdateRequest) (*UpdateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UpdatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &msg) == nil && msg.Message != "" {
			return nil, fmt.Errorf("service returned %d: %s", resp.StatusCode, msg.Message)
		}
		return nil, fmt.Errorf("service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out UpdateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &out, nil
}

// LocalClient serves requests with an in-process Generator
type LocalClient struct {
	gen *Generator
}

// NewLocalClient wraps a Generator
func NewLocalClient(gen *Generator) *LocalClient {
	return &LocalClient{gen: gen}
}

// Suggest implements Client. The credential has already been checked by
// the Requester; the generator authenticates with its own API key.
func (c *LocalClient) Suggest(ctx context.Context, _ string, req UpdateRequest) (*UpdateResponse, error) {
	if c.gen == nil {
		return nil, ErrNoAPIKey
	}
	return c.gen.Generate(ctx, req)
}
