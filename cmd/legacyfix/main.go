package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/juparave/legacyfix/internal/app"
	"github.com/juparave/legacyfix/internal/config"
	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/logging"
	"github.com/juparave/legacyfix/internal/report"
)

var version = "0.1.0"

type globalFlags struct {
	cfgFile string
	verbose bool
	token   string
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "legacyfix",
		Short:         "Find deprecated JavaScript and Python patterns and suggest modern replacements",
		Long:          `legacyfix parses source files, detects deprecated patterns, asks a language model for replacement code and attaches reference documentation to every suggestion.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.cfgFile, "config", "c", "", "Path to config file (default: ~/.config/legacyfix/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.token, "token", "", "Bearer token for the parse and suggestion services (default: $LEGACYFIX_TOKEN)")

	rootCmd.AddCommand(newAnalyzeCmd(&flags), newServeCmd(&flags))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load reads the config file and applies the global flags
func load(flags *globalFlags) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(flags.cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.token != "" {
		cfg.Auth.Token = flags.token
	}
	cfg.Verbose = flags.verbose

	level := cfg.Logging.Level
	if cfg.Verbose {
		level = "debug"
	}
	return cfg, logging.New(level, "legacyfix"), nil
}

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	var (
		format       string
		colorMode    string
		changedSince string
		save         bool
		email        bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyze files or directories for deprecated patterns",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(flags)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}

			runner := app.NewRunner(cfg, logger)
			run, err := runner.Analyze(cmd.Context(), app.AnalyzeOptions{
				Paths:        args,
				ChangedSince: changedSince,
				Format:       format,
				Color:        report.IsColorEnabled(colorMode, os.Stdout),
				Output:       cmd.OutOrStdout(),
				Save:         save,
				Email:        email,
			})
			if err != nil {
				return err
			}

			if run.Count(domain.OutcomeError) > 0 {
				return fmt.Errorf("%d of %d files failed", run.Count(domain.OutcomeError), len(run.Reports))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Report format: text, json, html (default from config)")
	cmd.Flags().StringVar(&colorMode, "color", "auto", "Color output: auto, always, never")
	cmd.Flags().StringVar(&changedSince, "changed-since", "", "Only analyze files changed since this git ref")
	cmd.Flags().BoolVar(&save, "save", false, "Also write the report to the reports directory")
	cmd.Flags().BoolVar(&email, "email", false, "Email the HTML report")

	return cmd
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the parse, suggestion and analysis HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return app.NewRunner(cfg, logger).Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config, :5000)")

	return cmd
}
