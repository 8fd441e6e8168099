package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bull/localrag/internal/chunking"
)

// DirSource loads every supported file below a root directory. Source IDs
// are slash-separated paths relative to the root's parent, e.g. "data/a.txt",
// so they stay stable across machines.
type DirSource struct {
	root   string
	md     *MarkdownSplitter
	logger *slog.Logger
}

func NewDirSource(root string, logger *slog.Logger) *DirSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSource{root: root, md: NewMarkdownSplitter(), logger: logger}
}

func (d *DirSource) Location() string { return d.root }

// Root returns the directory being loaded.
func (d *DirSource) Root() string { return d.root }

func (d *DirSource) Load(ctx context.Context) ([]chunking.Page, error) {
	info, err := os.Stat(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path %s is not a directory", d.root)
	}

	var files []string
	err = filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if p != d.root && entry.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if FormatOf(p) == FormatUnknown {
			d.logger.Debug("Skipping unsupported file", "path", p)
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", d.root, err)
	}
	sort.Strings(files)

	var pages []chunking.Page
	for _, p := range files {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		filePages, err := Pages(d.md, d.sourceID(p), FormatOf(p), content)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", p, err)
		}
		d.logger.Debug("Loaded document", "path", p, "pages", len(filePages))
		pages = append(pages, filePages...)
	}

	d.logger.Info("Loaded documents", "root", d.root, "files", len(files), "pages", len(pages))
	return pages, nil
}

func (d *DirSource) sourceID(p string) string {
	rel, err := filepath.Rel(filepath.Dir(filepath.Clean(d.root)), p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
