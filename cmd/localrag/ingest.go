package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/localrag/internal/app"
	"github.com/bull/localrag/internal/indexer"
	"github.com/bull/localrag/internal/loader"
	"github.com/bull/localrag/internal/watch"
)

var ingestFlags struct {
	reset  bool
	stats  bool
	watch  bool
	github string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index the documents in the data directory",
	Long: `Loads every supported document under DATA_PATH, splits it into chunks and
adds the chunks that are not yet in the vector store.

Re-running ingest is safe: chunks already stored are skipped. Entries for
deleted or edited documents are only removed by --reset.

Supported files:
  .txt .text       pages separated by form feeds
  .md .markdown    one page per H1/H2 section`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.BoolVar(&ingestFlags.reset, "reset", false, "clear the index before ingesting")
	f.BoolVar(&ingestFlags.stats, "stats", false, "print index statistics and exit")
	f.BoolVar(&ingestFlags.watch, "watch", false, "keep running and re-ingest when documents change")
	f.StringVar(&ingestFlags.github, "github", "", "ingest markdown from a GitHub location (owner/repo[/path]) instead of DATA_PATH")
	ingestCmd.MarkFlagsMutuallyExclusive("watch", "github")
	ingestCmd.MarkFlagsMutuallyExclusive("stats", "reset")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if ingestFlags.stats {
		return printStats(ctx, out, a)
	}

	if ingestFlags.reset {
		if err := a.Pipeline.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset index: %w", err)
		}
		fmt.Fprintln(out, "Index cleared")
	}

	src, err := a.Source(ingestFlags.github)
	if err != nil {
		return err
	}

	if err := ingestOnce(ctx, out, a, src); err != nil {
		return err
	}
	if !ingestFlags.watch {
		return nil
	}

	w, err := watch.New(a.Config.DataPath, watch.DefaultDebounce, a.Logger)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(out, "\nWatching %s for changes (Ctrl+C to stop)...\n", src.Location())
	return w.Run(ctx, func(ctx context.Context) error {
		fmt.Fprintln(out)
		return ingestOnce(ctx, out, a, src)
	})
}

func ingestOnce(ctx context.Context, out io.Writer, a *app.App, src loader.Source) error {
	start := time.Now()
	fmt.Fprintf(out, "Loading documents from %s...\n", src.Location())

	pages, err := src.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded %d pages\n", len(pages))

	report, err := a.Pipeline.Ingest(ctx, pages)
	if err != nil {
		var storageErr *indexer.StorageError
		if errors.As(err, &storageErr) {
			fmt.Fprintf(out, "Ingestion stopped after adding %d chunks; re-run ingest to continue\n", storageErr.Added)
		}
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Chunks:   %d\n", report.Total)
	fmt.Fprintf(out, "  Existing: %d\n", report.Existing)
	fmt.Fprintf(out, "  New:      %d\n", report.Added)
	if report.Added == 0 {
		fmt.Fprintln(out, "No new documents to add")
	} else {
		fmt.Fprintf(out, "Added %d new chunks in %d batches\n", report.Added, report.Batches)
	}

	stats, err := a.Pipeline.Stats(ctx)
	if err != nil {
		fmt.Fprintf(out, "Document count unavailable: %v\n", err)
	} else {
		fmt.Fprintf(out, "Documents in index: %d\n", stats.DocumentCount)
	}
	fmt.Fprintf(out, "Done in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func printStats(ctx context.Context, out io.Writer, a *app.App) error {
	stats, err := a.Pipeline.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Documents:    %d\n", stats.DocumentCount)
	fmt.Fprintf(out, "Backing path: %s\n", stats.BackingPath)
	return nil
}
