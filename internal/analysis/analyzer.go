// Package analysis runs the per-file pipeline: parse, request suggestions,
// merge and enrich, for every submitted file concurrently.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/juparave/legacyfix/internal/detect"
	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/merge"
	"github.com/juparave/legacyfix/internal/observability"
)

// DefaultMaxConcurrentFiles bounds how many file pipelines run at once
const DefaultMaxConcurrentFiles = 8

// Checker rejects files before any parse attempt
type Checker interface {
	Check(file domain.SourceFile) error
}

// Requester returns one suggestion per finding
type Requester interface {
	Request(ctx context.Context, findings []domain.Finding, source string, lang domain.Language) ([]domain.Suggestion, error)
}

// Enricher attaches documentation to a merged suggestion and never fails
type Enricher interface {
	Enrich(ctx context.Context, m domain.MergedSuggestion) domain.EnrichedSuggestion
}

// Analyzer drives the pipeline for a set of files
type Analyzer struct {
	checker       Checker
	parser        detect.Parser
	requester     Requester
	enricher      Enricher
	logger        *log.Logger
	tracer        trace.Tracer
	metrics       *observability.AnalysisMetrics
	maxConcurrent int
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithConcurrency limits the number of files analyzed at once
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxConcurrent = n
		}
	}
}

// WithMetrics records per-file outcomes
func WithMetrics(m *observability.AnalysisMetrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithTracer overrides the global tracer
func WithTracer(t trace.Tracer) Option {
	return func(a *Analyzer) { a.tracer = t }
}

// New creates an Analyzer. checker and parser are usually the same
// *detect.Registry; a remote parser can be paired with the local registry
// so size and language checks still happen before the network.
func New(checker Checker, parser detect.Parser, requester Requester, enricher Enricher, logger *log.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		checker:       checker,
		parser:        parser,
		requester:     requester,
		enricher:      enricher,
		logger:        logger,
		tracer:        otel.Tracer("github.com/juparave/legacyfix/internal/analysis"),
		maxConcurrent: DefaultMaxConcurrentFiles,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs every file's pipeline and returns the reports in input order.
// A failing file only affects its own report; the run fails only on empty input.
func (a *Analyzer) Analyze(ctx context.Context, files []domain.SourceFile) (domain.AnalysisRun, error) {
	if len(files) == 0 {
		return domain.AnalysisRun{}, domain.ErrNoFiles
	}

	run := domain.AnalysisRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Reports:   make([]domain.FileReport, len(files)),
	}
	logger := a.logger.With("run", run.ID)
	logger.Info("analysis started", "files", len(files))

	var g errgroup.Group
	g.SetLimit(a.maxConcurrent)

	for i, file := range files {
		g.Go(func() error {
			run.Reports[i] = domain.FileReport{
				File:    file.Name,
				Outcome: a.analyzeFile(ctx, logger, file),
			}
			return nil
		})
	}
	_ = g.Wait()

	run.Duration = time.Since(run.StartedAt)
	logger.Info("analysis complete",
		"suggestions", run.TotalSuggestions(),
		"errors", run.Count(domain.OutcomeError),
		"elapsed", run.Duration.Round(time.Millisecond))

	return run, nil
}

func (a *Analyzer) analyzeFile(ctx context.Context, logger *log.Logger, file domain.SourceFile) (outcome domain.Outcome) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analyze "+file.Name,
		trace.WithAttributes(
			attribute.String("file.name", file.Name),
			attribute.String("file.language", string(file.Language)),
		))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("file pipeline panicked", "file", file.Name, "panic", r)
			outcome = domain.ErrorOutcome(fmt.Sprintf("internal error: %v", r))
		}
		if outcome.Kind == domain.OutcomeError {
			span.SetStatus(codes.Error, outcome.Message)
		}
		span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))
		span.End()
		a.metrics.RecordFile(ctx, string(outcome.Kind), len(outcome.Suggestions), time.Since(start))
	}()

	return a.pipeline(ctx, logger.With("file", file.Name), file)
}

func (a *Analyzer) pipeline(ctx context.Context, logger *log.Logger, file domain.SourceFile) domain.Outcome {
	if !file.Language.IsSupported() {
		return domain.ErrorOutcome(domain.MsgUnsupportedFileType)
	}
	if err := a.checker.Check(file); err != nil {
		if errors.Is(err, domain.ErrUnsupportedFileType) {
			return domain.ErrorOutcome(domain.MsgUnsupportedFileType)
		}
		logger.Warn("file rejected", "err", err)
		return domain.ErrorOutcome(err.Error())
	}

	findings, err := a.parser.Parse(ctx, file)
	if err != nil {
		logger.Warn("parse failed", "err", err)
		return domain.ErrorOutcome(err.Error())
	}
	if len(findings) == 0 {
		return domain.NoIssuesOutcome(domain.MsgNoIssues)
	}
	logger.Debug("patterns detected", "findings", len(findings))

	suggestions, err := a.requester.Request(ctx, findings, file.Content, file.Language)
	if err != nil {
		logger.Warn("suggestion request failed", "err", err)
		return domain.ErrorOutcome(err.Error())
	}

	return domain.SuggestionsOutcome(a.enrichAll(ctx, merge.Merge(suggestions)))
}

// enrichAll enriches every merged suggestion concurrently, keeping order
func (a *Analyzer) enrichAll(ctx context.Context, merged []domain.MergedSuggestion) []domain.EnrichedSuggestion {
	enriched := make([]domain.EnrichedSuggestion, len(merged))

	var g errgroup.Group
	for i, m := range merged {
		g.Go(func() error {
			enriched[i] = a.enricher.Enrich(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	return enriched
}
