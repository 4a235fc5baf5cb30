// Package server exposes the parse, suggestion and analysis services over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/juparave/legacyfix/internal/analysis"
	"github.com/juparave/legacyfix/internal/config"
	"github.com/juparave/legacyfix/internal/detect"
	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/logging"
	"github.com/juparave/legacyfix/internal/observability"
	"github.com/juparave/legacyfix/internal/parseapi"
	"github.com/juparave/legacyfix/internal/suggest"
)

const (
	serverIdleTimeout = 120 * time.Second
	shutdownTimeout   = 10 * time.Second
	maxBodyBytes      = 64 << 20
)

// AnalyzerFactory builds an Analyzer whose suggestion requests carry token
type AnalyzerFactory func(token string) *analysis.Analyzer

// Deps are the components served over HTTP
type Deps struct {
	Registry    *detect.Registry
	Suggester   suggest.Client
	NewAnalyzer AnalyzerFactory
	Metrics     http.Handler
	Tracer      trace.Tracer
	RED         *observability.REDMetrics
}

// Server hosts the HTTP API
type Server struct {
	cfg     config.ServerConfig
	auth    config.AuthConfig
	deps    Deps
	logger  *log.Logger
	limiter *ipLimiter
}

// New creates a Server
func New(cfg config.ServerConfig, auth config.AuthConfig, deps Deps, logger *log.Logger) *Server {
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("github.com/juparave/legacyfix/internal/server")
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 100
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = 15 * time.Minute
	}
	return &Server{
		cfg:     cfg,
		auth:    auth,
		deps:    deps,
		logger:  logger,
		limiter: newIPLimiter(cfg.RateLimit, cfg.RateWindow),
	}
}

// Handler returns the routed, traced handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	api := func(h http.HandlerFunc) http.Handler {
		return requireAuth(s.auth.Tokens, h)
	}
	mux.Handle("POST /api/js/parse", api(s.handleParse(domain.LanguageJavaScript)))
	mux.Handle("POST /api/python/parse", api(s.handleParse(domain.LanguagePython)))
	mux.Handle("POST /api/update", s.limiter.middleware(api(s.handleUpdate)))
	mux.Handle("POST /api/analyze", api(s.handleAnalyze))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}

	return withRequestLogger(s.logger, observability.HTTPMiddleware(s.deps.Tracer, s.deps.RED, mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleParse(lang domain.Language) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req parseapi.Request
		if err := decode(w, r, &req); err != nil {
			writeMessage(r.Context(), w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Code == "" {
			writeMessage(r.Context(), w, http.StatusBadRequest, "Missing code")
			return
		}

		file := domain.SourceFile{Name: "input", Content: req.Code, Language: lang}
		findings, err := s.deps.Registry.Parse(r.Context(), file)

		var syntaxErr *domain.SyntaxError
		switch {
		case err == nil:
			if findings == nil {
				findings = []domain.Finding{}
			}
			writeJSON(r.Context(), w, http.StatusOK, parseapi.Response{Deprecated: findings})
		case errors.Is(err, domain.ErrFileTooLarge):
			writeMessage(r.Context(), w, http.StatusBadRequest, err.Error())
		case errors.As(err, &syntaxErr):
			writeJSON(r.Context(), w, http.StatusUnprocessableEntity,
				parseapi.Response{Deprecated: []domain.Finding{}, Error: syntaxErr.Diagnostic()})
		default:
			logging.FromContext(r.Context(), s.logger).Error("parse failed", "err", err)
			writeMessage(r.Context(), w, http.StatusInternalServerError, "Failed to parse code")
		}
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Suggester == nil {
		writeMessage(r.Context(), w, http.StatusServiceUnavailable, "Suggestion service is not configured")
		return
	}

	var req suggest.UpdateRequest
	if err := decode(w, r, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "patterns" {
			writeMessage(r.Context(), w, http.StatusBadRequest, "Missing or invalid patterns")
			return
		}
		writeMessage(r.Context(), w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var reqErr *suggest.RequestError
	if err := suggest.Validate(req); errors.As(err, &reqErr) {
		writeMessage(r.Context(), w, http.StatusBadRequest, reqErr.Message)
		return
	}

	resp, err := s.deps.Suggester.Suggest(r.Context(), TokenFromContext(r.Context()), req)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("suggestion failed", "err", err)
		writeMessage(r.Context(), w, http.StatusInternalServerError, "Failed to update code: "+err.Error())
		return
	}
	if resp.UpdatedSuggestions == nil {
		resp.UpdatedSuggestions = []suggest.UpdatedSuggestion{}
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	Files []struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	} `json:"files"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.deps.NewAnalyzer == nil {
		writeMessage(r.Context(), w, http.StatusServiceUnavailable, "Analysis is not configured")
		return
	}

	var req AnalyzeRequest
	if err := decode(w, r, &req); err != nil {
		writeMessage(r.Context(), w, http.StatusBadRequest, "Invalid request body")
		return
	}

	files := make([]domain.SourceFile, len(req.Files))
	for i, f := range req.Files {
		files[i] = domain.NewSourceFile(f.Name, f.Content)
	}

	session := s.deps.NewAnalyzer(TokenFromContext(r.Context())).NewSession(files)
	run, err := session.Run(r.Context())
	if errors.Is(err, domain.ErrNoFiles) {
		writeMessage(r.Context(), w, http.StatusBadRequest, "No files submitted")
		return
	}
	if err != nil {
		writeMessage(r.Context(), w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, run)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeJSON encodes value as the JSON response body
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(value); err != nil {
		logging.FromContext(ctx, log.Default()).Error("failed to encode JSON response", "err", err)
	}
}

func writeMessage(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeJSON(ctx, w, status, map[string]string{"message": message})
}
