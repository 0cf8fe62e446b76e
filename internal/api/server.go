package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vet-pain-mcp-server/internal/domain"
	"github.com/vet-pain-mcp-server/internal/health"
	"github.com/vet-pain-mcp-server/internal/middleware"
	"github.com/vet-pain-mcp-server/internal/service"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Catalog is the reference data served by the API
type Catalog interface {
	domain.ScaleCatalog
	domain.DrugCatalog
}

// Dependencies are the services the HTTP handlers delegate to
type Dependencies struct {
	Logger      *logrus.Logger
	Catalog     Catalog
	Assessments *service.AssessmentService
	Doses       *service.DoseCalculator
	CRI         *service.CRICalculator
	Calculators *service.CalculatorSessions
	Advisory    *service.AdvisoryService

	// HealthChecks are reported next to the catalog and session checks
	HealthChecks []health.HealthCheck
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server

	catalog     Catalog
	assessments *service.AssessmentService
	doses       *service.DoseCalculator
	cri         *service.CRICalculator
	calculators *service.CalculatorSessions
	advisory    *service.AdvisoryService
	health      *health.HealthChecker
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if gin.Mode() != gin.TestMode {
		if cfg.Logging.Level == "debug" {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	checker := health.NewHealthChecker(deps.Logger, Version, 0)
	checker.RegisterCheck(&health.CatalogHealthCheck{Count: func() int { return len(deps.Catalog.AllScales()) }})
	checker.RegisterCheck(&health.SessionsHealthCheck{Active: deps.Assessments.Len, Max: cfg.Sessions.MaxSessions})
	for _, check := range deps.HealthChecks {
		checker.RegisterCheck(check)
	}

	server := &Server{
		configManager: configManager,
		logger:        deps.Logger,
		router:        router,
		catalog:       deps.Catalog,
		assessments:   deps.Assessments,
		doses:         deps.Doses,
		cri:           deps.CRI,
		calculators:   deps.Calculators,
		advisory:      deps.Advisory,
		health:        checker,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Handler returns the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/scales", s.handleListScales)
		v1.GET("/scales/:id", s.handleGetScale)
		v1.POST("/scales/:id/interpret", s.handleInterpretScale)

		v1.POST("/assessments", s.handleStartAssessment)
		v1.GET("/assessments/:id", s.handleGetAssessment)
		v1.PUT("/assessments/:id/answers", s.handleSetAnswer)
		v1.POST("/assessments/:id/submit", s.handleSubmitAssessment)
		v1.DELETE("/assessments/:id", s.handleDiscardAssessment)

		v1.GET("/drugs", s.handleListDrugs)
		v1.POST("/dose", s.handleCalculateDose)
		v1.POST("/dose/sessions", s.handleStartDoseSession)
		v1.GET("/dose/sessions/:id", s.handleGetDoseSession)
		v1.PUT("/dose/sessions/:id", s.handleUpdateDoseSession)
		v1.POST("/dose/sessions/:id/calculate", s.handleCalculateDoseSession)
		v1.DELETE("/dose/sessions/:id", s.handleDiscardDoseSession)

		v1.GET("/cri/drugs", s.handleListCRIDrugs)
		v1.POST("/cri", s.handleCalculateCRI)
		v1.POST("/cri/sessions", s.handleStartCRISession)
		v1.GET("/cri/sessions/:id", s.handleGetCRISession)
		v1.PUT("/cri/sessions/:id", s.handleUpdateCRISession)
		v1.POST("/cri/sessions/:id/calculate", s.handleCalculateCRISession)
		v1.DELETE("/cri/sessions/:id", s.handleDiscardCRISession)

		v1.POST("/advisory", s.handleAdvisory)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := s.health.Check(c.Request.Context())

	code := http.StatusOK
	if status.Overall == health.HealthStateUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":           status.Overall,
		"timestamp":        status.Timestamp,
		"version":          status.Version,
		"uptime":           status.Uptime.String(),
		"scales":           len(s.catalog.AllScales()),
		"active_sessions":  s.assessments.Len(),
		"advisory_enabled": s.advisory.Enabled(),
		"components":       status.Components,
	})
}

// corsMiddleware configures CORS for the allowed origins
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.CorrelationIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.CorrelationIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
