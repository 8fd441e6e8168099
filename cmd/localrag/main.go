// Package main provides the localrag CLI: ingestion, one-shot queries, an
// interactive chat and the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/localrag/internal/app"
	"github.com/bull/localrag/internal/config"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "localrag",
	Short: "Local retrieval-augmented question answering over your documents",
	Long: `localrag indexes the documents in DATA_PATH into a local vector store and
answers questions about them with a locally hosted language model.

Configuration is read from defaults, then an optional YAML file (--config or
LOCALRAG_CONFIG), then environment variables such as CHUNK_SIZE, LLM_MODEL,
EMBEDDING_MODEL, OLLAMA_URL, CHROMA_PATH and DATA_PATH.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $LOCALRAG_CONFIG)")
	rootCmd.AddCommand(ingestCmd, queryCmd, statsCmd, chatCmd, serveCmd)
	rootCmd.Version = version
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openApp loads configuration and builds the pipeline. Logs go to stderr so
// command output on stdout stays clean.
func openApp(ctx context.Context) (*app.App, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("LOCALRAG_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, app.NewLogger(cfg, os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	return a, nil
}
