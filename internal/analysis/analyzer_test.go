package analysis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juparave/legacyfix/internal/detect"
	"github.com/juparave/legacyfix/internal/docs"
	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/logging"
	"github.com/juparave/legacyfix/internal/suggest"
)

// parserFunc lets tests fake parse results per file
type parserFunc func(ctx context.Context, file domain.SourceFile) ([]domain.Finding, error)

func (f parserFunc) Parse(ctx context.Context, file domain.SourceFile) ([]domain.Finding, error) {
	return f(ctx, file)
}

type clientFunc func(ctx context.Context, token string, req suggest.UpdateRequest) (*suggest.UpdateResponse, error)

func (f clientFunc) Suggest(ctx context.Context, token string, req suggest.UpdateRequest) (*suggest.UpdateResponse, error) {
	return f(ctx, token, req)
}

type docSourceFunc func(ctx context.Context, patternType string) (domain.Documentation, error)

func (f docSourceFunc) Lookup(ctx context.Context, patternType string) (domain.Documentation, error) {
	return f(ctx, patternType)
}

var findingsByFile = map[string][]domain.Finding{
	"a.js": {
		{Type: "var_usage", Line: 10, Message: "Use let or const instead of var."},
		{Type: "arguments.callee", Line: 10, Message: "arguments.callee is deprecated."},
		{Type: "React.createClass", Line: 2, Message: "React.createClass is deprecated."},
	},
	"slow.js": {
		{Type: "Promise.defer", Line: 1, Message: "Promise.defer is deprecated."},
	},
}

func fakeParser(calls *atomic.Int32) detect.Parser {
	return parserFunc(func(_ context.Context, file domain.SourceFile) ([]domain.Finding, error) {
		if calls != nil {
			calls.Add(1)
		}
		if file.Name == "broken.py" {
			return nil, &domain.SyntaxError{Line: 3, Message: "unexpected \":\""}
		}
		return findingsByFile[file.Name], nil
	})
}

// sameFixClient replies with one fix per line so same-line findings merge
func sameFixClient(calls *atomic.Int32, block <-chan struct{}) suggest.Client {
	return clientFunc(func(ctx context.Context, _ string, req suggest.UpdateRequest) (*suggest.UpdateResponse, error) {
		calls.Add(1)
		if req.Patterns[0].Type == "Promise.defer" && block != nil {
			select {
			case <-block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		out := make([]suggest.UpdatedSuggestion, len(req.Patterns))
		for i, p := range req.Patterns {
			fix := "fix-for-" + p.Type
			if p.Line == 10 {
				fix = "X"
			}
			out[i] = suggest.UpdatedSuggestion{Type: p.Type, UpdatedCode: fix}
		}
		return &suggest.UpdateResponse{UpdatedSuggestions: out}, nil
	})
}

func newAnalyzer(t *testing.T, parser detect.Parser, client suggest.Client, src docs.Source, timeout time.Duration) *Analyzer {
	t.Helper()
	logger := logging.Discard()
	return New(
		detect.NewRegistry(0),
		parser,
		suggest.NewRequester(client, "token", timeout, 0, logger),
		docs.NewEnricher(src, 50*time.Millisecond, logger),
		logger,
		WithConcurrency(4),
	)
}

func files(names ...string) []domain.SourceFile {
	out := make([]domain.SourceFile, len(names))
	for i, n := range names {
		out[i] = domain.NewSourceFile(n, "content of "+n)
	}
	return out
}

func TestAnalyzeMixedFiles(t *testing.T) {
	var suggestCalls atomic.Int32
	a := newAnalyzer(t, fakeParser(nil), sameFixClient(&suggestCalls, nil), nil, time.Second)

	run, err := a.Analyze(context.Background(), files("a.js", "b.py", "c.txt"))
	require.NoError(t, err)
	require.Len(t, run.Reports, 3)
	assert.NotEmpty(t, run.ID)

	assert.Equal(t, "a.js", run.Reports[0].File)
	require.Equal(t, domain.OutcomeSuggestions, run.Reports[0].Outcome.Kind)
	got := run.Reports[0].Outcome.Suggestions
	require.Len(t, got, 2)
	assert.Equal(t, 10, got[0].Line)
	assert.Equal(t, "X", got[0].Suggestion)
	assert.Equal(t, "var_usage, arguments.callee", got[0].Type)
	assert.Equal(t, "Use let or const instead of var.; arguments.callee is deprecated.", got[0].Message)
	assert.Contains(t, got[0].Documentation.URL, "Statements/let")
	assert.Equal(t, "React.createClass", got[1].Type)

	assert.Equal(t, "b.py", run.Reports[1].File)
	assert.Equal(t, domain.NoIssuesOutcome("No deprecated patterns found."), run.Reports[1].Outcome)

	assert.Equal(t, "c.txt", run.Reports[2].File)
	assert.Equal(t, domain.ErrorOutcome("Unsupported file type."), run.Reports[2].Outcome)

	assert.Equal(t, int32(1), suggestCalls.Load())
	assert.Equal(t, 2, run.TotalSuggestions())
}

func TestAnalyzeTimeoutIsolated(t *testing.T) {
	var suggestCalls atomic.Int32
	block := make(chan struct{})
	defer close(block)
	a := newAnalyzer(t, fakeParser(nil), sameFixClient(&suggestCalls, block), nil, 50*time.Millisecond)

	run, err := a.Analyze(context.Background(), files("slow.js", "a.js"))
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeError, run.Reports[0].Outcome.Kind)
	assert.Contains(t, run.Reports[0].Outcome.Message, "timed out")
	assert.Empty(t, run.Reports[0].Outcome.Suggestions)

	assert.Equal(t, domain.OutcomeSuggestions, run.Reports[1].Outcome.Kind)
	assert.Len(t, run.Reports[1].Outcome.Suggestions, 2)
}

func TestAnalyzeTransportError(t *testing.T) {
	client := clientFunc(func(context.Context, string, suggest.UpdateRequest) (*suggest.UpdateResponse, error) {
		return nil, errors.New("connection reset")
	})
	a := newAnalyzer(t, fakeParser(nil), client, nil, time.Second)

	run, err := a.Analyze(context.Background(), files("a.js"))
	require.NoError(t, err)
	assert.True(t, run.Reports[0].IsError())
	assert.Contains(t, run.Reports[0].Outcome.Message, "connection reset")
}

func TestAnalyzeDocsFailureUsesPlaceholder(t *testing.T) {
	var suggestCalls atomic.Int32
	src := docSourceFunc(func(context.Context, string) (domain.Documentation, error) {
		return domain.Documentation{}, errors.New("offline")
	})
	a := newAnalyzer(t, fakeParser(nil), sameFixClient(&suggestCalls, nil), src, time.Second)

	run, err := a.Analyze(context.Background(), files("a.js"))
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuggestions, run.Reports[0].Outcome.Kind)
	for _, s := range run.Reports[0].Outcome.Suggestions {
		assert.Equal(t, domain.UnavailableDocumentation, s.Documentation)
	}
}

func TestAnalyzeSyntaxError(t *testing.T) {
	var suggestCalls atomic.Int32
	a := newAnalyzer(t, fakeParser(nil), sameFixClient(&suggestCalls, nil), nil, time.Second)

	run, err := a.Analyze(context.Background(), files("broken.py"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeError, run.Reports[0].Outcome.Kind)
	assert.Contains(t, run.Reports[0].Outcome.Message, "line 3")
	assert.Zero(t, suggestCalls.Load())
}

func TestAnalyzeNoFindingsSkipsSuggestions(t *testing.T) {
	var suggestCalls atomic.Int32
	a := newAnalyzer(t, fakeParser(nil), sameFixClient(&suggestCalls, nil), nil, time.Second)

	run, err := a.Analyze(context.Background(), files("clean.js", "clean.py"))
	require.NoError(t, err)
	assert.Equal(t, 2, run.Count(domain.OutcomeNoIssues))
	assert.Zero(t, suggestCalls.Load())
}

func TestAnalyzeOversizedFile(t *testing.T) {
	var parseCalls, suggestCalls atomic.Int32
	logger := logging.Discard()
	a := New(detect.NewRegistry(8), fakeParser(&parseCalls),
		suggest.NewRequester(sameFixClient(&suggestCalls, nil), "token", time.Second, 0, logger),
		docs.NewEnricher(nil, time.Second, logger), logger)

	run, err := a.Analyze(context.Background(), files("a.js"))
	require.NoError(t, err)
	assert.True(t, run.Reports[0].IsError())
	assert.Contains(t, run.Reports[0].Outcome.Message, "file too large")
	assert.Zero(t, parseCalls.Load())
}

func TestAnalyzeRecoversPanic(t *testing.T) {
	var suggestCalls atomic.Int32
	parser := parserFunc(func(_ context.Context, file domain.SourceFile) ([]domain.Finding, error) {
		if file.Name == "boom.js" {
			panic("walker exploded")
		}
		return nil, nil
	})
	a := newAnalyzer(t, parser, sameFixClient(&suggestCalls, nil), nil, time.Second)

	run, err := a.Analyze(context.Background(), files("boom.js", "fine.py"))
	require.NoError(t, err)
	assert.True(t, run.Reports[0].IsError())
	assert.Contains(t, run.Reports[0].Outcome.Message, "walker exploded")
	assert.Equal(t, domain.OutcomeNoIssues, run.Reports[1].Outcome.Kind)
}

func TestAnalyzeClientPanicIsolated(t *testing.T) {
	var suggestCalls atomic.Int32
	fixes := sameFixClient(&suggestCalls, nil)
	client := clientFunc(func(ctx context.Context, token string, req suggest.UpdateRequest) (*suggest.UpdateResponse, error) {
		if req.Patterns[0].Type == "Promise.defer" {
			panic("client exploded")
		}
		return fixes.Suggest(ctx, token, req)
	})
	a := newAnalyzer(t, fakeParser(nil), client, nil, time.Second)

	run, err := a.Analyze(context.Background(), files("slow.js", "a.js"))
	require.NoError(t, err)
	require.Len(t, run.Reports, 2)

	assert.True(t, run.Reports[0].IsError())
	assert.Contains(t, run.Reports[0].Outcome.Message, "client exploded")
	assert.Equal(t, domain.OutcomeSuggestions, run.Reports[1].Outcome.Kind)
	assert.Len(t, run.Reports[1].Outcome.Suggestions, 2)
}

func TestAnalyzeDocsPanicUsesPlaceholder(t *testing.T) {
	var suggestCalls atomic.Int32
	src := docSourceFunc(func(context.Context, string) (domain.Documentation, error) {
		panic("lookup exploded")
	})
	a := newAnalyzer(t, fakeParser(nil), sameFixClient(&suggestCalls, nil), src, time.Second)

	run, err := a.Analyze(context.Background(), files("a.js"))
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuggestions, run.Reports[0].Outcome.Kind)
	for _, s := range run.Reports[0].Outcome.Suggestions {
		assert.Equal(t, domain.UnavailableDocumentation, s.Documentation)
	}
}

func TestAnalyzeNoFiles(t *testing.T) {
	var suggestCalls atomic.Int32
	a := newAnalyzer(t, fakeParser(nil), sameFixClient(&suggestCalls, nil), nil, time.Second)

	_, err := a.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoFiles)
}

func TestAnalyzeKeepsInputOrder(t *testing.T) {
	var suggestCalls atomic.Int32
	a := newAnalyzer(t, fakeParser(nil), sameFixClient(&suggestCalls, nil), nil, time.Second)

	names := []string{"1.js", "2.py", "3.txt", "4.js", "5.py", "6.js", "7.js", "8.py", "9.rb"}
	run, err := a.Analyze(context.Background(), files(names...))
	require.NoError(t, err)
	for i, n := range names {
		assert.Equal(t, n, run.Reports[i].File)
	}
}

func TestSessionRunsOnce(t *testing.T) {
	var parseCalls, suggestCalls atomic.Int32
	a := newAnalyzer(t, fakeParser(&parseCalls), sameFixClient(&suggestCalls, nil), nil, time.Second)

	s := a.NewSession(files("a.js", "b.py"))
	first, err := s.Run(context.Background())
	require.NoError(t, err)
	second, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(2), parseCalls.Load())
	assert.Equal(t, int32(1), suggestCalls.Load())
}

func TestAnalyzeWithTreeSitterParsers(t *testing.T) {
	var suggestCalls atomic.Int32
	registry := detect.NewRegistry(0)
	a := newAnalyzer(t, registry, sameFixClient(&suggestCalls, nil), nil, time.Second)

	run, err := a.Analyze(context.Background(), []domain.SourceFile{
		domain.NewSourceFile("a.js", "const x = 1;\nlet y = x + 1;\n"),
		domain.NewSourceFile("b.py", "x = 1\ny = 2\nprint x\n"),
		domain.NewSourceFile("c.txt", "plain text"),
	})
	require.NoError(t, err)
	require.Len(t, run.Reports, 3)

	assert.Equal(t, domain.OutcomeNoIssues, run.Reports[0].Outcome.Kind)

	require.Equal(t, domain.OutcomeSuggestions, run.Reports[1].Outcome.Kind)
	require.Len(t, run.Reports[1].Outcome.Suggestions, 1)
	got := run.Reports[1].Outcome.Suggestions[0]
	assert.Equal(t, 3, got.Line)
	assert.Equal(t, "print_statement", got.Type)
	assert.Equal(t, "fix-for-print_statement", got.Suggestion)

	assert.Equal(t, domain.ErrorOutcome("Unsupported file type."), run.Reports[2].Outcome)
	assert.Equal(t, int32(1), suggestCalls.Load())
}
