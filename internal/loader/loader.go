// Package loader turns document collections into pages ready for chunking.
package loader

import (
	"context"
	"path"
	"strings"

	"github.com/bull/localrag/internal/chunking"
)

// Source produces the pages of a document collection.
type Source interface {
	Load(ctx context.Context) ([]chunking.Page, error)
	// Location describes where the documents come from, for logs and CLI output.
	Location() string
}

// pageBreak separates pages in plain-text documents.
const pageBreak = "\f"

// Format identifies how a document's bytes are split into pages.
type Format int

const (
	FormatUnknown Format = iota
	FormatText
	FormatMarkdown
)

// FormatOf picks a format from the file extension.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".text":
		return FormatText
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatUnknown
	}
}

// Pages splits one document into numbered pages. Plain text is split on form
// feeds; markdown becomes one page per H1/H2 section. Page numbers are
// 0-based and count blank pages, so a page keeps its number when its
// neighbours change.
func Pages(md *MarkdownSplitter, sourceID string, format Format, content []byte) ([]chunking.Page, error) {
	var texts []string

	switch format {
	case FormatText:
		texts = strings.Split(string(content), pageBreak)
	case FormatMarkdown:
		sections, err := md.Split(content)
		if err != nil {
			return nil, err
		}
		for _, s := range sections {
			texts = append(texts, s.Text())
		}
	default:
		return nil, nil
	}

	pages := make([]chunking.Page, 0, len(texts))
	for i, t := range texts {
		pages = append(pages, chunking.Page{SourceID: sourceID, Number: i, Text: t})
	}
	return pages, nil
}
