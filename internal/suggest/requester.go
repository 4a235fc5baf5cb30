package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/race"
)

// DefaultTimeout bounds one suggestion request
const DefaultTimeout = 10 * time.Second

// Requester asks the suggestion service for replacements of a file's findings
type Requester struct {
	client       Client
	token        string
	timeout      time.Duration
	maxCodeChars int
	logger       *log.Logger
}

// NewRequester creates a Requester. token is the bearer credential; an empty
// token never reaches the network.
func NewRequester(client Client, token string, timeout time.Duration, maxCodeChars int, logger *log.Logger) *Requester {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxCodeChars <= 0 {
		maxCodeChars = DefaultMaxCodeChars
	}
	return &Requester{
		client:       client,
		token:        token,
		timeout:      timeout,
		maxCodeChars: maxCodeChars,
		logger:       logger,
	}
}

// Request returns one Suggestion per finding, in finding order.
// Timeouts wrap domain.ErrSuggestionTimeout and transport failures wrap
// domain.ErrSuggestionTransport.
func (r *Requester) Request(ctx context.Context, findings []domain.Finding, source string, lang domain.Language) ([]domain.Suggestion, error) {
	if len(findings) == 0 {
		return []domain.Suggestion{}, nil
	}

	if r.token == "" {
		r.logger.Warn("no credential, skipping suggestion request", "findings", len(findings))
		return placeholders(findings, MissingTokenSuggestion), nil
	}

	req := UpdateRequest{
		LegacyCode: truncate(source, r.maxCodeChars),
		Language:   string(lang),
		Patterns:   findings,
	}

	resp, err := race.WithTimeout(ctx, r.timeout, func(ctx context.Context) (*UpdateResponse, error) {
		return r.client.Suggest(ctx, r.token, req)
	})
	if err != nil {
		if errors.Is(err, race.ErrTimeout) {
			return nil, fmt.Errorf("%w after %s", domain.ErrSuggestionTimeout, r.timeout)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrSuggestionTransport, err)
	}

	return align(findings, resp.UpdatedSuggestions), nil
}

// align pairs findings with the positional replies; missing replies get a placeholder
func align(findings []domain.Finding, updated []UpdatedSuggestion) []domain.Suggestion {
	out := make([]domain.Suggestion, len(findings))
	for i, f := range findings {
		code := NoSuggestion
		if i < len(updated) && updated[i].UpdatedCode != "" {
			code = updated[i].UpdatedCode
		}
		out[i] = domain.Suggestion{Finding: f, Suggestion: code}
	}
	return out
}

func placeholders(findings []domain.Finding, text string) []domain.Suggestion {
	out := make([]domain.Suggestion, len(findings))
	for i, f := range findings {
		out[i] = domain.Suggestion{Finding: f, Suggestion: text}
	}
	return out
}

// truncate keeps at most n characters of s
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
