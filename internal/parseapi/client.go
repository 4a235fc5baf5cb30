// Package parseapi talks to a remote parse service and also defines its
// wire format.
package parseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/race"
)

// DefaultTimeout bounds a single parse request
const DefaultTimeout = 10 * time.Second

// Request is the body sent to the parse service
type Request struct {
	Code string `json:"code"`
}

// Response is the parse service reply. A non-empty Error is a syntax error.
type Response struct {
	Deprecated []domain.Finding `json:"deprecated"`
	Error      string           `json:"error,omitempty"`
}

// Paths maps a language to its parse endpoint
var Paths = map[domain.Language]string{
	domain.LanguageJavaScript: "/api/js/parse",
	domain.LanguagePython:     "/api/python/parse",
}

// Client is a detect.Parser backed by the remote parse service
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a parse service client. token is sent as a bearer credential.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// Parse implements detect.Parser
func (c *Client) Parse(ctx context.Context, file domain.SourceFile) ([]domain.Finding, error) {
	path, ok := Paths[file.Language]
	if !ok {
		return nil, fmt.Errorf("%s: %w", file.Name, domain.ErrUnsupportedFileType)
	}
	if c.token == "" {
		return nil, domain.ErrMissingCredential
	}

	resp, err := race.WithTimeout(ctx, c.timeout, func(ctx context.Context) (*Response, error) {
		return c.post(ctx, path, Request{Code: file.Content})
	})
	if err != nil {
		if errors.Is(err, race.ErrTimeout) {
			return nil, fmt.Errorf("parse request timed out after %s", c.timeout)
		}
		return nil, err
	}

	if resp.Error != "" {
		return nil, domain.SyntaxErrorFromMessage(resp.Error)
	}
	if resp.Deprecated == nil {
		return []domain.Finding{}, nil
	}
	return resp.Deprecated, nil
}

func (c *Client) post(ctx context.Context, path string, body Request) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("parse: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse: request failed: %w", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse: read response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse: service returned %d: %s", res.StatusCode, string(respBody))
	}
	// Syntax errors come back with a non-200 status and a populated error field.
	if res.StatusCode != http.StatusOK && out.Error == "" {
		return nil, fmt.Errorf("parse: service returned %d: %s", res.StatusCode, string(respBody))
	}
	return &out, nil
}
