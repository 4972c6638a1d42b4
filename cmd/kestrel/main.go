// Kestrel - Credit score classification that deploys in 60 seconds.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/classify"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/model"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/stats"
	"github.com/opensource-finance/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Predictor from artifact, falling back to the built-in
	// scorecard when no artifact file is present
	predictor := loadPredictor(cfg.Model)
	slog.Info("model loaded",
		"version", predictor.Info().Version,
		"classes", predictor.Info().TargetClasses,
	)

	// Initialize Validation Rule Engine
	engine, err := rules.NewEngine(100)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}

	// Load rules from database, seeding the built-in range checks on first run
	if err := loadRulesFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Initialize Classification Processor
	processor := classify.NewProcessor()
	slog.Info("classification processor initialized")

	// Initialize Stats Service
	statsSvc := stats.NewService(repo, cacheImpl)
	slog.Info("stats service initialized")

	// Initialize async dataset Worker
	datasetWorker := worker.NewWorker(busImpl, repo)
	if err := datasetWorker.Start(); err != nil {
		slog.Error("failed to start dataset worker", "error", err)
		os.Exit(1)
	}
	slog.Info("dataset worker started")

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, predictor, processor, statsSvc, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop dataset worker first
	if err := datasetWorker.Stop(); err != nil {
		slog.Error("failed to stop dataset worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// loadPredictor loads the scorecard artifact from disk. A missing or broken
// artifact falls back to the built-in default so a bare checkout still serves.
func loadPredictor(cfg domain.ModelConfig) domain.Predictor {
	if cfg.ArtifactPath != "" {
		sc, err := model.Load(cfg.ArtifactPath)
		if err == nil {
			slog.Info("loaded model artifact", "path", cfg.ArtifactPath)
			return sc
		}
		slog.Warn("failed to load model artifact, using built-in default",
			"path", cfg.ArtifactPath,
			"error", err,
		)
	}
	return model.NewScorecard(model.DefaultArtifact())
}

// loadRulesFromDatabase loads validation rules from the database into the
// engine. An empty database is seeded with the built-in range checks so
// predictions are validated out of the box; rules can be replaced via the API.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	dbRules, err := repo.ListRuleConfigs(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return engine.LoadRules(rules.DefaultRuleConfigs())
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	defaults := rules.DefaultRuleConfigs()
	slog.Info("seeding built-in validation rules", "count", len(defaults))
	for _, cfg := range defaults {
		if err := repo.SaveRuleConfig(ctx, cfg); err != nil {
			slog.Warn("failed to seed rule", "id", cfg.ID, "error", err)
		}
	}
	return engine.LoadRules(defaults)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 KESTREL                  ║")
	fmt.Println("  ║    Credit Score Classification Engine     ║")
	fmt.Println("  ║       Every score, explained.             ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /predict           - Classify a credit profile")
	fmt.Println("    GET  /predictions/{id}  - Get prediction by ID")
	fmt.Println("    GET  /model             - Model artifact metadata")
	fmt.Println("    GET  /rules             - List validation rules")
	fmt.Println("    POST /rules             - Create a validation rule")
	fmt.Println("    POST /rules/reload      - Hot-reload rules from database")
	fmt.Println("    POST /datasets          - Schedule dataset generation")
	fmt.Println("    GET  /datasets          - List dataset runs")
	fmt.Println("    GET  /datasets/{id}     - Get dataset run by ID")
	fmt.Println("    GET  /stats             - Prediction statistics")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println()
}
