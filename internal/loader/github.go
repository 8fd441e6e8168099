package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/localrag/internal/chunking"
	"github.com/bull/localrag/internal/github"
)

// GitHubSource loads documents from a directory of a GitHub repository.
// Source IDs have the form "owner/repo/<path relative to the base directory>".
type GitHubSource struct {
	fetcher *github.Fetcher
	md      *MarkdownSplitter
	logger  *slog.Logger
}

func NewGitHubSource(fetcher *github.Fetcher, logger *slog.Logger) *GitHubSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubSource{fetcher: fetcher, md: NewMarkdownSplitter(), logger: logger}
}

func (g *GitHubSource) Location() string { return "github.com/" + g.fetcher.Repository() }

func (g *GitHubSource) Load(ctx context.Context) ([]chunking.Page, error) {
	paths, err := g.fetcher.ListDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	if sha, err := g.fetcher.GetLatestCommitSHA(ctx); err != nil {
		g.logger.Warn("Could not resolve latest commit", "repo", g.fetcher.Repository(), "error", err)
	} else {
		g.logger.Info("Loading documents", "repo", g.fetcher.Repository(), "commit", sha, "files", len(paths))
	}

	var pages []chunking.Page
	for _, p := range paths {
		doc, err := g.fetcher.FetchDoc(ctx, p)
		if err != nil {
			return nil, err
		}
		filePages, err := Pages(g.md, g.fetcher.Repository()+"/"+doc.Path, FormatOf(doc.Path), []byte(doc.Content))
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", doc.Path, err)
		}
		g.logger.Debug("Fetched document", "path", doc.Path, "sha", doc.SHA, "pages", len(filePages))
		pages = append(pages, filePages...)
	}
	return pages, nil
}
