package chunking

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidConfig is returned when chunk size and overlap cannot produce progress.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// DefaultSeparators are tried in order: paragraph, line, word, then a hard cut.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits pages into windows of at most Size characters, each sharing
// exactly Overlap characters with its predecessor on the same page.
// Lengths are counted in runes.
type Chunker struct {
	size       int
	overlap    int
	separators [][]rune
}

// New creates a chunker. With no separators, DefaultSeparators is used.
// An empty separator stands for a hard cut at the size limit.
func New(size, overlap int, separators ...string) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap cannot be negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)", ErrInvalidConfig, overlap, size)
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	c := &Chunker{size: size, overlap: overlap}
	for _, sep := range separators {
		if sep == "" {
			// Hard cuts are the fallback; anything after it would never be tried.
			break
		}
		c.separators = append(c.separators, []rune(sep))
	}
	return c, nil
}

// Size returns the maximum chunk length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks every page in order. Blank pages produce no chunks.
func (c *Chunker) Split(pages []Page) []Chunk {
	var chunks []Chunk
	for _, p := range pages {
		chunks = append(chunks, c.SplitPage(p)...)
	}
	return chunks
}

// SplitPage chunks a single page, numbering chunks from 0.
func (c *Chunker) SplitPage(p Page) []Chunk {
	if strings.TrimSpace(p.Text) == "" {
		return nil
	}

	var chunks []Chunk
	for _, window := range c.windows([]rune(p.Text)) {
		if strings.TrimSpace(window) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			SourceID: p.SourceID,
			Page:     p.Number,
			Position: len(chunks),
			Text:     window,
		})
	}
	return chunks
}

// windows walks the text left to right. Each window ends at the latest
// preferred separator that still leaves the next window room to advance past
// the overlap, falling back to a hard cut at the size limit.
func (c *Chunker) windows(text []rune) []string {
	n := len(text)
	var out []string

	start := 0
	for {
		end := start + c.size
		if end >= n {
			out = append(out, string(text[start:]))
			return out
		}

		minCut := start + max(c.overlap+1, c.size/2)
		cut := end
		for _, sep := range c.separators {
			if at := lastCut(text, sep, minCut, end); at > 0 {
				cut = at
				break
			}
		}

		// A blank window would be dropped by SplitPage and break the overlap
		// chain, so take the full window instead.
		if isBlank(text[start:cut]) {
			cut = end
		}

		out = append(out, string(text[start:cut]))
		start = cut - c.overlap
	}
}

// lastCut returns the largest index just past an occurrence of sep such that
// the index lies in [lo, hi], or -1.
func lastCut(text, sep []rune, lo, hi int) int {
	for cut := hi; cut >= lo; cut-- {
		from := cut - len(sep)
		if from < 0 {
			return -1
		}
		if runesEqual(text[from:cut], sep) {
			return cut
		}
	}
	return -1
}

func isBlank(text []rune) bool {
	for _, r := range text {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
