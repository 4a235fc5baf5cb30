// Package app wires configuration into the analysis pipeline, the report
// writer, the notifier and the HTTP service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/juparave/legacyfix/internal/analysis"
	"github.com/juparave/legacyfix/internal/config"
	"github.com/juparave/legacyfix/internal/detect"
	"github.com/juparave/legacyfix/internal/docs"
	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/notify"
	"github.com/juparave/legacyfix/internal/observability"
	"github.com/juparave/legacyfix/internal/parseapi"
	"github.com/juparave/legacyfix/internal/report"
	"github.com/juparave/legacyfix/internal/server"
	"github.com/juparave/legacyfix/internal/source"
	"github.com/juparave/legacyfix/internal/suggest"
)

// AnalyzeOptions control a CLI analysis run
type AnalyzeOptions struct {
	Paths        []string
	ChangedSince string // git ref; when set, only files changed since it are analyzed
	Format       string
	Color        bool
	Output       io.Writer
	Save         bool
	Email        bool
}

// Runner orchestrates a full analysis or the HTTP service
type Runner struct {
	config *config.Config
	logger *log.Logger
}

// NewRunner creates a new Runner instance
func NewRunner(cfg *config.Config, logger *log.Logger) *Runner {
	return &Runner{config: cfg, logger: logger}
}

// pipeline holds the components shared by every Analyzer a Runner builds
type pipeline struct {
	registry   *detect.Registry
	parser     detect.Parser
	client     suggest.Client
	local      *suggest.LocalClient
	localToken string
	enricher   *docs.Enricher
	metrics    *observability.AnalysisMetrics
	cfg        config.AnalysisConfig
	suggestCfg config.SuggestConfig
	logger     *log.Logger
}

func (r *Runner) newPipeline() (*pipeline, error) {
	maxBytes, err := r.config.MaxFileBytes()
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		registry:   detect.NewRegistry(maxBytes),
		enricher:   docs.NewEnricher(docs.StaticSource{}, r.config.Analysis.DocsTimeout, r.logger),
		cfg:        r.config.Analysis,
		suggestCfg: r.config.Suggest,
		logger:     r.logger,
	}
	p.parser = p.registry

	if url := r.config.Analysis.ParseServiceURL; url != "" {
		r.logger.Info("using remote parse service", "url", url)
		p.parser = parseapi.NewClient(url, r.config.Auth.Token, r.config.Analysis.ParseTimeout)
	}

	gen, err := suggest.NewGenerator(r.config.Suggest, r.logger)
	switch {
	case err == nil:
		r.logger.Debug("suggestion model ready", "model", gen.Model())
		p.local = suggest.NewLocalClient(gen)
	case errors.Is(err, suggest.ErrNoAPIKey):
		r.logger.Debug("no model API key, in-process suggestions disabled")
	default:
		return nil, fmt.Errorf("initializing suggestion generator: %w", err)
	}

	if url := r.config.Analysis.SuggestServiceURL; url != "" {
		r.logger.Info("using remote suggestion service", "url", url)
		p.client = suggest.NewHTTPClient(url)
		p.localToken = r.config.Auth.Token
	} else if p.local != nil {
		// the model key is the credential for in-process generation
		p.client = p.local
		p.localToken = r.config.Suggest.APIKey
	} else {
		p.client = suggest.NewLocalClient(nil)
	}

	return p, nil
}

// analyzer builds an Analyzer whose suggestion requests carry token
func (p *pipeline) analyzer(token string) *analysis.Analyzer {
	requester := suggest.NewRequester(p.client, token, p.cfg.SuggestionTimeout, p.suggestCfg.MaxCodeChars, p.logger)
	return analysis.New(p.registry, p.parser, requester, p.enricher, p.logger,
		analysis.WithConcurrency(p.cfg.MaxConcurrentFiles),
		analysis.WithMetrics(p.metrics),
	)
}

// Analyze collects the files, runs the pipeline and renders the report
func (r *Runner) Analyze(ctx context.Context, opts AnalyzeOptions) (*domain.AnalysisRun, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	paths := opts.Paths
	if opts.ChangedSince != "" {
		repo := "."
		if len(paths) > 0 {
			repo = paths[0]
		}
		changed, err := source.ChangedFiles(ctx, repo, opts.ChangedSince)
		if err != nil {
			return nil, fmt.Errorf("listing changed files: %w", err)
		}
		r.logger.Info("changed files", "since", opts.ChangedSince, "count", len(changed))
		paths = changed
	}

	maxBytes, err := r.config.MaxFileBytes()
	if err != nil {
		return nil, err
	}
	files, err := source.NewCollector(maxBytes, r.logger).Collect(paths)
	if err != nil {
		return nil, fmt.Errorf("collecting files: %w", err)
	}

	p, err := r.newPipeline()
	if err != nil {
		return nil, err
	}

	run, err := p.analyzer(p.localToken).NewSession(files).Run(ctx)
	if err != nil {
		return nil, err
	}

	formatter := report.NewFormatter(r.config.Reports.OutputDir, report.NewStyles(opts.Color))
	format := opts.Format
	if format == "" {
		format = r.config.Reports.Format
	}

	if opts.Output != nil {
		out, err := formatter.Render(&run, format)
		if err != nil {
			return nil, err
		}
		if _, err := opts.Output.Write(out); err != nil {
			return nil, fmt.Errorf("writing report: %w", err)
		}
	}

	if opts.Save {
		path, err := formatter.Write(&run, format)
		if err != nil {
			return nil, err
		}
		r.logger.Info("report saved", "path", path)
	}

	if opts.Email || r.config.Email.Enabled {
		notifier, err := notify.NewService(r.config.Email, r.logger)
		if err != nil {
			return nil, fmt.Errorf("initializing email service: %w", err)
		}
		if err := notifier.SendReport(ctx, &run); err != nil {
			return nil, fmt.Errorf("sending email: %w", err)
		}
		r.logger.Info("report emailed", "to", r.config.Email.ToAddress)
	}

	return &run, nil
}

// Serve runs the HTTP service until ctx is cancelled
func (r *Runner) Serve(ctx context.Context) error {
	if err := r.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	metricsHandler, provider, err := observability.Prometheus()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("meter provider shutdown failed", "err", err)
		}
	}()

	meter := provider.Meter("github.com/juparave/legacyfix")
	red, err := observability.NewREDMetrics(meter)
	if err != nil {
		return err
	}

	p, err := r.newPipeline()
	if err != nil {
		return err
	}
	if p.metrics, err = observability.NewAnalysisMetrics(meter); err != nil {
		return err
	}

	deps := server.Deps{
		Registry:    p.registry,
		NewAnalyzer: p.analyzer,
		Metrics:     metricsHandler,
		RED:         red,
	}
	if p.local != nil {
		deps.Suggester = p.local
	} else {
		r.logger.Warn("no model API key, /api/update is disabled")
	}

	return server.New(r.config.Server, r.config.Auth, deps, r.logger).ListenAndServe(ctx)
}
