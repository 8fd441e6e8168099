// Package chunking splits document pages into overlapping chunks and assigns
// each chunk a deterministic identifier.
package chunking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidChunkID is returned by ParseChunkID for malformed identifiers.
var ErrInvalidChunkID = errors.New("invalid chunk id")

// Page is one page of raw text produced by a document loader.
type Page struct {
	SourceID string // Document path or URL
	Number   int    // 0-based page number within the source
	Text     string
}

// Chunk is a contiguous slice of a page's text.
type Chunk struct {
	SourceID string
	Page     int
	Position int // 0-based index of this chunk within its page
	Text     string
}

// ID returns the chunk's deterministic identifier.
func (c Chunk) ID() string {
	return ChunkID(c.SourceID, c.Page, c.Position)
}

// ChunkID joins source, page and position into "source:page:position".
// Source IDs may themselves contain colons; the last two fields are always numeric,
// so ParseChunkID can recover the original triple.
func ChunkID(sourceID string, page, position int) string {
	return fmt.Sprintf("%s:%d:%d", sourceID, page, position)
}

// ParseChunkID is the inverse of ChunkID.
func ParseChunkID(id string) (sourceID string, page, position int, err error) {
	last := strings.LastIndex(id, ":")
	if last < 0 {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidChunkID, id)
	}
	mid := strings.LastIndex(id[:last], ":")
	if mid < 0 {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidChunkID, id)
	}

	page, err = strconv.Atoi(id[mid+1 : last])
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: page in %q", ErrInvalidChunkID, id)
	}
	position, err = strconv.Atoi(id[last+1:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: position in %q", ErrInvalidChunkID, id)
	}
	return id[:mid], page, position, nil
}
