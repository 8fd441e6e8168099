// Package mcp exposes the document pipeline as Model Context Protocol tools.
package mcp

// AskInput defines the input parameters for the ask_documents tool.
type AskInput struct {
	// Question is answered from the indexed documents.
	Question string `json:"question" jsonschema:"The question to answer from the indexed documents"`
}

// AskOutput contains the synthesized answer.
type AskOutput struct {
	Answer string `json:"answer"`
	// Outcome is one of no_match, low_confidence, matched, generation_failed.
	Outcome string `json:"outcome"`
	// Sources lists the chunk IDs the answer is based on.
	Sources        []string `json:"sources"`
	Attempts       int      `json:"attempts"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
}

// SearchInput defines the input parameters for the search_documents tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"The semantic search query"`
	// MaxResults caps the number of returned chunks.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of chunks to return"`
}

// SearchOutput contains retrieval results without generation.
type SearchOutput struct {
	// Outcome is one of no_match, low_confidence, matched.
	Outcome string         `json:"outcome"`
	Results []SearchResult `json:"results"`
	// Message provides informational context (e.g., "No matching documents found").
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single chunk match.
type SearchResult struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   string  `json:"page"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// StatsInput takes no parameters.
type StatsInput struct{}

// StatsOutput reports the index size.
type StatsOutput struct {
	DocumentCount int    `json:"document_count"`
	BackingPath   string `json:"backing_path"`
	Available     bool   `json:"available"`
	Error         string `json:"error,omitempty"`
}
