// Package main provides the long-running localrag server. With SERVER_MODE=true
// it serves the HTTP API and MCP over HTTP; otherwise it speaks MCP on
// stdin/stdout and keeps the HTTP API running in the background.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/localrag/internal/app"
	"github.com/bull/localrag/internal/config"
)

var version = "dev"

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(os.Getenv("LOCALRAG_CONFIG"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// stdout carries MCP messages in stdio mode
	logger := app.NewLogger(cfg, os.Stderr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize pipeline: %v", err)
	}

	if err := run(ctx, a); err != nil {
		logger.Error("server error", "error", err)
		_ = a.Close()
		os.Exit(1)
	}
	if err := a.Close(); err != nil {
		logger.Warn("close failed", "error", err)
	}
}

func run(ctx context.Context, a *app.App) error {
	sessions, err := a.Sessions(ctx)
	if err != nil {
		return err
	}

	mcp := a.MCPServer(version)
	srv, err := a.HTTPServer(sessions, mcp)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("HTTP shutdown failed", "error", err)
		}
	}()

	if a.Config.ServerMode {
		// HTTP mode: serve API and MCP over HTTP for remote clients
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			return nil
		}
	}

	// Stdio mode: MCP over stdin/stdout for local clients. A failing HTTP
	// listener is logged and does not stop the MCP session.
	go func() {
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Warn("HTTP server error", "error", err)
		}
	}()

	a.Logger.Info("Starting localrag MCP server (stdio mode)", "version", version)
	if err := mcp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
