// Package retrieval finds stored chunks relevant to a query and classifies
// how trustworthy the match is.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bull/localrag/internal/storage"
)

// ErrInvalidQuery is returned for queries that are empty after trimming.
var ErrInvalidQuery = errors.New("query cannot be empty")

// MaxSuggestions caps the weak matches carried by a LowConfidence outcome.
const MaxSuggestions = 3

// Kind classifies a retrieval outcome.
type Kind string

const (
	// NoMatch means the store returned nothing at all.
	NoMatch Kind = "no_match"
	// LowConfidence means results exist but all score below the threshold.
	LowConfidence Kind = "low_confidence"
	// Matched means at least one result met the threshold.
	Matched Kind = "matched"
)

// Match is a stored chunk together with its similarity to the query.
type Match struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

// Outcome is the result of one retrieval.
type Outcome struct {
	Kind Kind `json:"kind"`
	// Matches holds every result at or above the threshold, in store order.
	Matches []Match `json:"matches,omitempty"`
	// Suggestions holds up to MaxSuggestions unfiltered results for LowConfidence.
	Suggestions []Match `json:"suggestions,omitempty"`
}

// SourceIDs returns the chunk IDs an answer built from this outcome cites.
func (o *Outcome) SourceIDs() []string {
	list := o.Matches
	if o.Kind == LowConfidence {
		list = o.Suggestions
	}
	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	return ids
}

// Embedder embeds a single query.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs nearest-neighbour queries.
type Searcher interface {
	QueryNearest(ctx context.Context, vector []float32, k int) ([]storage.Hit, error)
}

// Retriever embeds queries and searches the store.
type Retriever struct {
	embedder Embedder
	searcher Searcher
}

// New creates a retriever.
func New(embedder Embedder, searcher Searcher) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher}
}

// Retrieve returns the k nearest chunks classified against threshold.
// Empty queries fail with ErrInvalidQuery; a weak or empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, threshold float64) (*Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.searcher.QueryNearest(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return Classify(hits, threshold), nil
}

// Classify partitions hits into NoMatch, LowConfidence or Matched.
func Classify(hits []storage.Hit, threshold float64) *Outcome {
	if len(hits) == 0 {
		return &Outcome{Kind: NoMatch}
	}

	var passing []Match
	for _, h := range hits {
		if h.Score >= threshold {
			passing = append(passing, toMatch(h))
		}
	}
	if len(passing) > 0 {
		return &Outcome{Kind: Matched, Matches: passing}
	}

	weak := hits[:min(len(hits), MaxSuggestions)]
	suggestions := make([]Match, len(weak))
	for i, h := range weak {
		suggestions[i] = toMatch(h)
	}
	return &Outcome{Kind: LowConfidence, Suggestions: suggestions}
}

func toMatch(h storage.Hit) Match {
	return Match{ID: h.ID, Text: h.Text, Metadata: h.Metadata, Score: h.Score}
}
