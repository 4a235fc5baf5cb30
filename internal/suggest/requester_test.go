package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/logging"
)

type fakeClient struct {
	calls atomic.Int32
	resp  *UpdateResponse
	err   error
	block chan struct{}
	got   UpdateRequest
	token string
}

func (f *fakeClient) Suggest(ctx context.Context, token string, req UpdateRequest) (*UpdateResponse, error) {
	f.calls.Add(1)
	f.got = req
	f.token = token
	if f.block != nil {
		<-f.block
	}
	return f.resp, f.err
}

var twoFindings = []domain.Finding{
	{Type: "var_usage", Line: 10, Message: "use let"},
	{Type: "arguments.callee", Line: 10, Message: "named function"},
}

func TestRequestEmptyFindingsSkipsCall(t *testing.T) {
	client := &fakeClient{}
	r := NewRequester(client, "token", time.Second, 0, logging.Discard())

	got, err := r.Request(context.Background(), nil, "code", domain.LanguageJavaScript)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, client.calls.Load())
}

func TestRequestMissingTokenYieldsPlaceholders(t *testing.T) {
	client := &fakeClient{}
	r := NewRequester(client, "", time.Second, 0, logging.Discard())

	got, err := r.Request(context.Background(), twoFindings, "code", domain.LanguageJavaScript)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, "Failed to generate suggestion: Authentication token missing.", s.Suggestion)
	}
	assert.Zero(t, client.calls.Load())
}

func TestRequestAlignsAndFillsMissing(t *testing.T) {
	client := &fakeClient{resp: &UpdateResponse{UpdatedSuggestions: []UpdatedSuggestion{
		{Type: "var_usage", UpdatedCode: "const x = 1;"},
	}}}
	r := NewRequester(client, "token", time.Second, 0, logging.Discard())

	got, err := r.Request(context.Background(), twoFindings, "var x = 1;", domain.LanguageJavaScript)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "const x = 1;", got[0].Suggestion)
	assert.Equal(t, NoSuggestion, got[1].Suggestion)
	assert.Equal(t, "arguments.callee", got[1].Type)

	assert.Equal(t, int32(1), client.calls.Load())
	assert.Equal(t, "token", client.token)
	assert.Equal(t, "JavaScript", client.got.Language)
	assert.Len(t, client.got.Patterns, 2)
}

func TestRequestTruncatesSource(t *testing.T) {
	client := &fakeClient{resp: &UpdateResponse{}}
	r := NewRequester(client, "token", time.Second, 5, logging.Discard())

	_, err := r.Request(context.Background(), twoFindings, "héllo world", domain.LanguagePython)
	require.NoError(t, err)
	assert.Equal(t, "héllo", client.got.LegacyCode)
}

func TestRequestTimeout(t *testing.T) {
	client := &fakeClient{block: make(chan struct{})}
	defer close(client.block)
	r := NewRequester(client, "token", 20*time.Millisecond, 0, logging.Discard())

	_, err := r.Request(context.Background(), twoFindings, "code", domain.LanguageJavaScript)
	assert.ErrorIs(t, err, domain.ErrSuggestionTimeout)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRequestTransportError(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	r := NewRequester(client, "token", time.Second, 0, logging.Discard())

	_, err := r.Request(context.Background(), twoFindings, "code", domain.LanguageJavaScript)
	assert.ErrorIs(t, err, domain.ErrSuggestionTransport)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UpdatePath, r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		var req UpdateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Language == "Cobol" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Unsupported language"})
			return
		}
		_ = json.NewEncoder(w).Encode(UpdateResponse{UpdatedSuggestions: []UpdatedSuggestion{{Type: "x", UpdatedCode: "y"}}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL + "/")
	resp, err := c.Suggest(context.Background(), "abc", UpdateRequest{LegacyCode: "x", Language: "Python", Patterns: twoFindings})
	require.NoError(t, err)
	require.Len(t, resp.UpdatedSuggestions, 1)

	_, err = c.Suggest(context.Background(), "abc", UpdateRequest{LegacyCode: "x", Language: "Cobol"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Unsupported language"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "日本", truncate("日本語", 2))
}
