package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xaenox/project-shield/internal/bot"
	"github.com/xaenox/project-shield/internal/classifier"
	"github.com/xaenox/project-shield/internal/service"
	"github.com/xaenox/project-shield/internal/storage"
	"github.com/xaenox/project-shield/pkg/config"
	"github.com/xaenox/project-shield/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		log.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		log.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(ctx, cfg.StorageConfig(), log)
		if err != nil {
			log.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize analyzer
	analyzerConfig, err := cfg.AnalyzerConfig()
	if err != nil {
		log.Fatal("Failed to load analyzer settings", zap.Error(err))
	}
	analyzer := classifier.NewAnalyzer(analyzerConfig, log)
	log.Info("Scope analyzer ready", zap.String("strategy", string(analyzer.Strategy())))

	svc := service.New(store, analyzer, log, cfg.Analyzer.BulkConcurrency)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, store, svc, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	if cfg.Analyzer.PendingSchedule != "" {
		sched, err := bot.ParseSchedule(cfg.Analyzer.PendingSchedule)
		if err != nil {
			log.Fatal("Invalid pending sweep schedule", zap.Error(err))
		}
		log.Info("Pending sweep scheduled", zap.String("schedule", cfg.Analyzer.PendingSchedule))
		go b.RunPendingSweep(ctx, sched)
	}

	// Start the bot
	if err := b.Start(ctx); err != nil {
		log.Fatal("Bot error", zap.Error(err))
	}
	log.Info("Bot stopped")
}
