package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/careverify/clinic-trust-engine/internal/api/rest"
	"github.com/careverify/clinic-trust-engine/internal/infrastructure/cache"
	"github.com/careverify/clinic-trust-engine/internal/infrastructure/config"
	"github.com/careverify/clinic-trust-engine/internal/infrastructure/database"
	"github.com/careverify/clinic-trust-engine/internal/infrastructure/repository"
	"github.com/careverify/clinic-trust-engine/internal/infrastructure/telemetry"
	"github.com/careverify/clinic-trust-engine/internal/ml/bundle"
	"github.com/careverify/clinic-trust-engine/internal/ml/features"
	"github.com/careverify/clinic-trust-engine/internal/service/biometrics"
	"github.com/careverify/clinic-trust-engine/internal/service/risk"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build zap logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Model stores. Missing artifacts are not fatal: the risk endpoints
	// return 503 and behavior classification falls back to heuristics
	// until a bundle is loaded via /model/reload.
	riskStore := bundle.NewStore()
	if err := riskStore.Reload(cfg.Model.RiskBundlePath); err != nil {
		logger.Warn("risk model not loaded", "path", cfg.Model.RiskBundlePath, "error", err)
	}
	behaviorStore := bundle.NewStore()
	if err := behaviorStore.Reload(cfg.Model.BehaviorBundlePath); err != nil {
		logger.Warn("behavior model not loaded, using heuristic fallback",
			"path", cfg.Model.BehaviorBundlePath, "error", err)
	}

	engineer := features.NewEngineer()

	var riskOpts []risk.Option
	riskOpts = append(riskOpts, risk.WithMaxBatchSize(cfg.Model.MaxBatchSize))

	if cfg.Database.URL != "" {
		pool, err := database.Connect(ctx, &cfg.Database, zapLogger)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer pool.Close()
		riskOpts = append(riskOpts, risk.WithRepository(repository.NewAssessmentRepository(pool)))
	}

	if cfg.Redis.URL != "" {
		assessmentCache, err := cache.NewAssessmentCache(&cfg.Redis, zapLogger)
		if err != nil {
			log.Fatalf("failed to build assessment cache: %v", err)
		}
		defer assessmentCache.Close()
		riskOpts = append(riskOpts, risk.WithCache(assessmentCache))
	}

	services := rest.Services{
		Risk:          risk.NewService(riskStore, engineer, logger, riskOpts...),
		Behavior:      biometrics.NewClassifier(behaviorStore, logger),
		BehaviorStore: behaviorStore,
	}
	handler := rest.NewHandler(services, rest.BundlePaths{
		Risk:     cfg.Model.RiskBundlePath,
		Behavior: cfg.Model.BehaviorBundlePath,
	}, logger)

	server := rest.NewServer(cfg.Server, handler, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown incomplete", "error", err)
		}
	}
}
