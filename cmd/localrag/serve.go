package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API, MCP endpoint and metrics over HTTP",
	Long: `Starts the HTTP server on PORT:

  POST   /api/chat                 ask a question
  GET    /api/conversations/:id    conversation history
  DELETE /api/conversations        clear all conversations
  GET    /api/stats                index statistics
  GET    /api/health               health check
  GET    /metrics                  Prometheus metrics
  *      /mcp                      MCP streamable HTTP endpoint`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.Sessions(ctx)
		if err != nil {
			return err
		}

		srv, err := a.HTTPServer(sessions, a.MCPServer(version))
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
