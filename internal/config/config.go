package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Suggest  SuggestConfig  `yaml:"suggest"`
	Auth     AuthConfig     `yaml:"auth"`
	Server   ServerConfig   `yaml:"server"`
	Email    EmailConfig    `yaml:"email"`
	Reports  ReportsConfig  `yaml:"reports"`
	Logging  LoggingConfig  `yaml:"logging"`
	Verbose  bool           `yaml:"-"` // Set via CLI only
}

// AnalysisConfig holds pipeline limits and service endpoints
type AnalysisConfig struct {
	MaxFileSize        string        `yaml:"max_file_size"` // e.g. "5MB"
	MaxConcurrentFiles int           `yaml:"max_concurrent_files"`
	ParseTimeout       time.Duration `yaml:"parse_timeout"`
	SuggestionTimeout  time.Duration `yaml:"suggestion_timeout"`
	DocsTimeout        time.Duration `yaml:"docs_timeout"`
	ParseServiceURL    string        `yaml:"parse_service_url"`   // empty parses locally
	SuggestServiceURL  string        `yaml:"suggest_service_url"` // empty generates in-process
}

// SuggestConfig holds LLM settings for the suggestion generator
type SuggestConfig struct {
	Provider     string `yaml:"provider"` // googleai, openai
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"` // Custom API endpoint for OpenAI-compatible providers
	MaxCodeChars int    `yaml:"max_code_chars"`
	Retries      int    `yaml:"retries"`
}

// AuthConfig holds bearer credentials
type AuthConfig struct {
	Token  string   `yaml:"token"`  // sent to remote services
	Tokens []string `yaml:"tokens"` // accepted by the HTTP server; empty accepts any bearer token
}

// ServerConfig holds HTTP service settings
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	RateLimit    int           `yaml:"rate_limit"` // suggestion requests per window and client
	RateWindow   time.Duration `yaml:"rate_window"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// EmailConfig holds email delivery settings
type EmailConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromAddress  string `yaml:"from_address"`
	FromName     string `yaml:"from_name"`
	ToAddress    string `yaml:"to_address"`
}

// ReportsConfig holds report storage settings
type ReportsConfig struct {
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"` // text, json, html
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxFileSize:        "5MiB",
			MaxConcurrentFiles: 8,
			ParseTimeout:       10 * time.Second,
			SuggestionTimeout:  10 * time.Second,
			DocsTimeout:        5 * time.Second,
		},
		Suggest: SuggestConfig{
			Provider:     "googleai",
			Model:        "gemini-2.0-flash",
			MaxCodeChars: 10000,
			Retries:      3,
		},
		Server: ServerConfig{
			Addr:         ":5000",
			RateLimit:    100,
			RateWindow:   15 * time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Email: EmailConfig{
			SMTPPort: 587,
			FromName: "legacyfix",
		},
		Reports: ReportsConfig{
			OutputDir: "reports",
			Format:    "text",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from file and merges with defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Determine config file path
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil // Use defaults if can't find home
		}
		path = filepath.Join(homeDir, ".config", "legacyfix", "config.yaml")
	}

	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Reports.OutputDir = expandPath(cfg.Reports.OutputDir)

	return cfg, nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// MaxFileBytes returns the parsed analysis.max_file_size
func (c *Config) MaxFileBytes() (int, error) {
	n, err := humanize.ParseBytes(c.Analysis.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("max_file_size: %w", err)
	}
	return int(n), nil //nolint:gosec // bounded by Validate
}

// Validate checks if the configuration is valid and fills secrets from the environment
func (c *Config) Validate() error {
	n, err := c.MaxFileBytes()
	if err != nil {
		return err
	}
	if n <= 0 || n > 1<<30 {
		return fmt.Errorf("max_file_size must be between 1B and 1GiB, got %s", c.Analysis.MaxFileSize)
	}

	if c.Analysis.MaxConcurrentFiles <= 0 {
		return fmt.Errorf("max_concurrent_files must be positive")
	}
	if c.Analysis.SuggestionTimeout <= 0 || c.Analysis.DocsTimeout <= 0 || c.Analysis.ParseTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}

	if c.Suggest.MaxCodeChars <= 0 {
		return fmt.Errorf("max_code_chars must be positive")
	}
	if c.Suggest.Retries <= 0 {
		c.Suggest.Retries = 1
	}

	switch c.Reports.Format {
	case "text", "json", "html":
	default:
		return fmt.Errorf("unknown report format %q", c.Reports.Format)
	}

	if c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("smtp_host is required when email is enabled")
		}
		if c.Email.ToAddress == "" {
			return fmt.Errorf("to_address is required when email is enabled")
		}
	}

	if c.Suggest.APIKey == "" {
		// Check environment variable
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.Suggest.APIKey = key
		} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			c.Suggest.APIKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.Suggest.APIKey = key
		}
	}

	if c.Auth.Token == "" {
		c.Auth.Token = os.Getenv("LEGACYFIX_TOKEN")
	}

	return nil
}
