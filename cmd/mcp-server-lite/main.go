// Package main provides the lightweight stdio entry point for the vet pain MCP server.
// It needs no external services: catalogs are embedded and sessions live in memory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vet-pain-mcp-server/internal/config"
	"github.com/vet-pain-mcp-server/internal/mcp"
	"github.com/vet-pain-mcp-server/internal/setup"
)

func main() {
	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cmd := setup.NewCommand(os.Stdin)
		cmd.SetArgs(os.Args[2:])
		if err := cmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	// Create lite MCP server
	server, err := mcp.NewLiteServer(cfg)
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
		log.Fatalf("MCP server failed: %v", err)
	}
}
