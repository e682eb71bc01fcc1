package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/xaenox/project-shield/internal/classifier"
	"github.com/xaenox/project-shield/pkg/config"
	"github.com/xaenox/project-shield/pkg/logger"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "scopectl",
		Short: "Check client requests against a project's scope of work",
		Long: `scopectl runs the scope analyzer from the command line.

It classifies a client request as in_scope, out_of_scope,
clarification_needed or revision against a list of scope items and reports
any scope creep phrases it finds.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file (defaults and environment only when empty)")

	rootCmd.AddCommand(newAnalyzeCmd(&configPath))
	rootCmd.AddCommand(newLexiconsCmd(&configPath))
	return rootCmd
}

// newAnalyzer builds the analyzer described by the config at path. The
// returned logger writes to stderr and must be synced by the caller.
func newAnalyzer(path string) (*classifier.Analyzer, *zap.Logger, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}

	analyzerConfig, err := cfg.AnalyzerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load analyzer settings: %w", err)
	}
	return classifier.NewAnalyzer(analyzerConfig, log), log, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
