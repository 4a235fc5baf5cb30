package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	oai "github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/openai/openai-go/option"

	"github.com/juparave/legacyfix/internal/config"
)

// ErrNoAPIKey is returned when the generator has no model credential
var ErrNoAPIKey = errors.New("no model API key configured: set GEMINI_API_KEY or OPENAI_API_KEY")

// GenerateFunc sends a prompt to a model and returns its text reply
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// Generator produces replacement code for deprecated patterns using an LLM
type Generator struct {
	logger   *log.Logger
	generate GenerateFunc
	modelID  string
	retries  int
	backoff  time.Duration
	maxChars int
}

// NewGenerator creates a Generator backed by genkit
func NewGenerator(cfg config.SuggestConfig, logger *log.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	ctx := context.Background()

	var g *genkit.Genkit
	modelID := cfg.Model

	switch cfg.Provider {
	case "openai":
		// OpenAI-compatible API
		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}

		if modelID == "" {
			modelID = "gpt-4o-mini"
		}
		if !strings.Contains(modelID, "/") {
			modelID = "openai/" + modelID
		}

		g = genkit.Init(ctx,
			genkit.WithDefaultModel(modelID),
			genkit.WithPlugins(&oai.OpenAI{APIKey: cfg.APIKey, Opts: opts}),
		)

	case "googleai":
		fallthrough
	default:
		// Google AI (Gemini)
		if modelID == "" {
			modelID = "gemini-2.0-flash"
		}
		if !strings.Contains(modelID, "/") {
			modelID = "googleai/" + modelID
		}

		g = genkit.Init(ctx,
			genkit.WithDefaultModel(modelID),
			genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.APIKey}),
		)
	}

	gen := NewGeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return genkit.GenerateText(ctx, g,
			ai.WithModelName(modelID),
			ai.WithPrompt(prompt),
		)
	}, logger)
	gen.modelID = modelID
	gen.retries = max(cfg.Retries, 1)
	if cfg.MaxCodeChars > 0 {
		gen.maxChars = cfg.MaxCodeChars
	}
	return gen, nil
}

// NewGeneratorFunc creates a Generator around an arbitrary model call
func NewGeneratorFunc(fn GenerateFunc, logger *log.Logger) *Generator {
	return &Generator{
		logger:   logger,
		generate: fn,
		modelID:  "custom",
		retries:  3,
		backoff:  time.Second,
		maxChars: DefaultMaxCodeChars,
	}
}

// Model returns the model identifier in use
func (g *Generator) Model() string {
	return g.modelID
}

// Validate checks an update request the way the service does before any model call
func Validate(req UpdateRequest) error {
	if req.LegacyCode == "" || req.Language == "" {
		return &RequestError{Message: "Missing legacyCode or language"}
	}
	if !IsSupportedLanguage(req.Language) {
		return &RequestError{Message: "Unsupported language"}
	}
	if req.Patterns == nil {
		return &RequestError{Message: "Missing or invalid patterns"}
	}
	return nil
}

// Generate asks the model for one replacement per pattern
func (g *Generator) Generate(ctx context.Context, req UpdateRequest) (*UpdateResponse, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if len(req.Patterns) == 0 {
		return &UpdateResponse{UpdatedSuggestions: []UpdatedSuggestion{}}, nil
	}

	prompt := buildPrompt(req, g.maxChars)

	answer, err := g.generateWithRetry(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating suggestions: %w", err)
	}

	suggestions, err := parseResponse(answer)
	if err != nil {
		g.logger.Error("invalid model response", "error", err, "raw", answer)
		return nil, fmt.Errorf("invalid response format from model: %w", err)
	}

	return &UpdateResponse{UpdatedSuggestions: suggestions}, nil
}

// generateWithRetry retries failed model calls with exponential backoff
func (g *Generator) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	delay := g.backoff

	var lastErr error
	for attempt := 1; attempt <= g.retries; attempt++ {
		answer, err := g.generate(ctx, prompt)
		if err == nil {
			if strings.TrimSpace(answer) == "" {
				return "", errors.New("no suggestions returned from model")
			}
			return answer, nil
		}

		lastErr = err
		if attempt == g.retries {
			break
		}
		g.logger.Warn("model call failed, retrying", "attempt", attempt, "of", g.retries, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return "", fmt.Errorf("failed after %d attempts: %w", g.retries, lastErr)
}
