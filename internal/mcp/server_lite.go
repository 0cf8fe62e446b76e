// Package mcp provides the MCP server implementation.
// This file contains the lightweight stdio server that needs no external services.
package mcp

import (
	"context"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/vet-pain-mcp-server/internal/catalog"
	litecfg "github.com/vet-pain-mcp-server/internal/config"
	"github.com/vet-pain-mcp-server/internal/domain"
	"github.com/vet-pain-mcp-server/internal/logging"
	"github.com/vet-pain-mcp-server/internal/service"
	"github.com/vet-pain-mcp-server/pkg/external"
)

// ServerName identifies the lite server to MCP clients
const ServerName = "vet-pain-mcp-server-lite"

// ServerVersion is reported during the MCP handshake
const ServerVersion = "v1.0.0"

// LiteServer is a lightweight MCP server exposing the pain assessment tools
// over stdio. Sessions and advisory results live in process memory unless a
// Redis URL is configured.
type LiteServer struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	logger    *logrus.Logger

	catalog     *catalog.Catalog
	assessments *service.AssessmentService
	doses       *service.DoseCalculator
	cri         *service.CRICalculator
	advisory    *service.AdvisoryService

	provider domain.AdvisoryProvider
	cache    domain.AdvisoryCache
	closers  []io.Closer
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// WithCatalog sets the reference catalog instead of loading it.
func WithCatalog(c *catalog.Catalog) LiteServerOption {
	return func(s *LiteServer) error {
		s.catalog = c
		return nil
	}
}

// WithAdvisoryProvider sets the advisory provider, enabling request_advisory
// without a Gemini API key.
func WithAdvisoryProvider(provider domain.AdvisoryProvider) LiteServerOption {
	return func(s *LiteServer) error {
		s.provider = provider
		return nil
	}
}

// WithAdvisoryCache sets the advisory cache.
func WithAdvisoryCache(cache domain.AdvisoryCache) LiteServerOption {
	return func(s *LiteServer) error {
		s.cache = cache
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	if cfg.Transport != "stdio" {
		return nil, fmt.Errorf("unsupported transport %q: only stdio is available", cfg.Transport)
	}

	server := &LiteServer{config: cfg}

	// Apply options
	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Stdout carries the protocol, so the default logger writes to stderr or a file
	if server.logger == nil {
		logger, err := logging.New(cfg.LoggingConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		server.logger = logger
		if closer, ok := logger.Out.(io.Closer); ok && cfg.LogFile != "" {
			server.closers = append(server.closers, closer)
		}
	}

	if server.catalog == nil {
		var err error
		server.catalog, err = catalog.LoadDir(server.logger, cfg.CatalogDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	engine := service.NewInterpretationEngine(server.logger)
	assessments, err := service.NewAssessmentService(server.logger, server.catalog, engine, cfg.MaxSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to create assessment service: %w", err)
	}
	server.assessments = assessments
	server.doses = service.NewDoseCalculator(server.logger, server.catalog)
	server.cri = service.NewCRICalculator(server.logger, server.catalog)

	if err := server.initAdvisory(); err != nil {
		return nil, err
	}

	// Create MCP server
	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)

	server.registerMCPTools()
	server.registerMCPResources()
	server.registerMCPPrompts()

	server.logger.WithFields(logrus.Fields{
		"scales":           len(server.catalog.AllScales()),
		"advisory_enabled": server.advisory.Enabled(),
	}).Info("Lite server initialized successfully")
	return server, nil
}

// initAdvisory wires the Gemini provider and cache when an API key is configured
func (s *LiteServer) initAdvisory() error {
	if s.provider == nil {
		provider, err := external.NewAdvisoryProvider(s.config.AdvisoryConfig(), s.logger)
		if err != nil {
			return fmt.Errorf("failed to create advisory provider: %w", err)
		}
		s.provider = provider
	}

	if s.provider != nil && s.cache == nil {
		cache, err := external.NewAdvisoryCache(s.config.CacheConfig())
		if err != nil {
			return fmt.Errorf("failed to create advisory cache: %w", err)
		}
		if closer, ok := cache.(io.Closer); ok {
			s.closers = append(s.closers, closer)
		}
		s.cache = cache
	}

	s.advisory = service.NewAdvisoryService(s.logger, s.provider, s.cache, s.config.CacheTTL)
	return nil
}

// registerMCPTools registers the tools with the MCP SDK.
func (s *LiteServer) registerMCPTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_scales",
		Description: "List the validated pain scales, optionally filtered by species (dog, cat) and pain type (acute, chronic).",
	}, s.handleListScales)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_scale",
		Description: "Return a pain scale with its questions, answer options and scoring rule.",
	}, s.handleGetScale)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "interpret_scale",
		Description: "Score a completed pain scale. Answers map question ids to option scores, slider values or text.",
	}, s.handleInterpretScale)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_drugs",
		Description: "List analgesic drugs with dose ranges and presentations, optionally for one species.",
	}, s.handleListDrugs)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "calculate_dose",
		Description: "Calculate the total mg and the amount of a presentation to give, with patient adjustment notes.",
	}, s.handleCalculateDose)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_cri_drugs",
		Description: "List the constant rate infusion drugs and the calculator defaults.",
	}, s.handleListCRIDrugs)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "calculate_cri",
		Description: "Plan a constant rate infusion prepared in a fluid bag or a syringe driver.",
	}, s.handleCalculateCRI)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "request_advisory",
		Description: "Ask the AI collaborator for a second opinion on a finished assessment. Requires GEMINI_API_KEY.",
	}, s.handleRequestAdvisory)

	s.logger.WithField("tool_count", 8).Debug("Registered MCP tools")
}

// Start runs the MCP server over stdio until ctx is cancelled or the client disconnects.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.WithField("transport_type", s.config.Transport).Info("Starting vet pain MCP server (Lite)...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	for _, c := range s.closers {
		if err := c.Close(); err != nil && s.logger != nil {
			s.logger.WithError(err).Error("Failed to close resource")
		}
	}
	s.closers = nil
	return nil
}
