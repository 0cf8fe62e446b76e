package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vet-pain-mcp-server/internal/api"
	"github.com/vet-pain-mcp-server/internal/catalog"
	"github.com/vet-pain-mcp-server/internal/config"
	"github.com/vet-pain-mcp-server/internal/domain"
	"github.com/vet-pain-mcp-server/internal/health"
	"github.com/vet-pain-mcp-server/internal/logging"
	"github.com/vet-pain-mcp-server/internal/service"
	"github.com/vet-pain-mcp-server/pkg/external"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	if closer, ok := logger.Out.(io.Closer); ok && cfg.Logging.Output == logging.OutputFile {
		defer closer.Close()
	}

	logger.WithField("environment", cfg.Environment).Infof("Starting vet pain server on %s:%d", cfg.Server.Host, cfg.Server.Port)

	// Reference data, embedded unless a catalog dir is configured
	refs, err := catalog.LoadDir(logger, cfg.Catalog.Dir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalog")
	}

	engine := service.NewInterpretationEngine(logger)
	assessments, err := service.NewAssessmentService(logger, refs, engine, cfg.Sessions.MaxSessions)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create assessment service")
	}

	doses := service.NewDoseCalculator(logger, refs)
	cri := service.NewCRICalculator(logger, refs)
	calculators, err := service.NewCalculatorSessions(logger, refs, doses, cri, cfg.Sessions.MaxSessions)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create calculator sessions")
	}

	// AI advisory stays disabled without an API key
	provider, err := external.NewAdvisoryProvider(cfg.Advisory, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create advisory provider")
	}
	var cache domain.AdvisoryCache
	if provider != nil {
		cache, err = external.NewAdvisoryCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create advisory cache")
		}
		if closer, ok := cache.(io.Closer); ok {
			defer closer.Close()
		}
	}
	advisory := service.NewAdvisoryService(logger, provider, cache, cfg.Cache.DefaultTTL)

	var checks []health.HealthCheck
	if cache != nil {
		checks = append(checks, &health.CacheHealthCheck{Cache: cache})
	}
	if breaker, ok := provider.(health.BreakerState); ok {
		checks = append(checks, &health.CircuitBreakerHealthCheck{Breaker: breaker})
	}

	// Create server
	server := api.NewServer(configManager, api.Dependencies{
		Logger:       logger,
		Catalog:      refs,
		Assessments:  assessments,
		Doses:        doses,
		CRI:          cri,
		Calculators:  calculators,
		Advisory:     advisory,
		HealthChecks: checks,
	})

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
