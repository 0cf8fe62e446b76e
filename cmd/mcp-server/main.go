package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vet-pain-mcp-server/internal/config"
	"github.com/vet-pain-mcp-server/internal/mcp"
)

// Runs the stdio MCP server from config.yaml, .env and VETPAIN_* variables.
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

	// Create MCP server
	server, err := mcp.NewLiteServer(config.LiteConfigFromConfig(configManager.GetConfig()))
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	// Start MCP server
	if err := server.Start(ctx); err != nil {
		server.Close()
		log.Fatalf("MCP server failed to start: %v", err)
	}
}
