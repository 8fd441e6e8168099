package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/localrag/internal/answer"
	"github.com/bull/localrag/internal/pipeline"
	"github.com/bull/localrag/internal/retrieval"
	"github.com/bull/localrag/internal/storage"
)

// Pipeline is the part of the pipeline facade the tools call.
type Pipeline interface {
	Answer(ctx context.Context, query string) (*answer.Answer, error)
	Search(ctx context.Context, query string) (*retrieval.Outcome, error)
	Stats(ctx context.Context) (pipeline.Stats, error)
}

// makeAskHandler creates the ask_documents tool handler.
// Generation failures are not tool errors; they come back with outcome
// generation_failed and the error text as the answer.
func makeAskHandler(p Pipeline) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		ans, err := p.Answer(ctx, input.Question)
		if err != nil {
			return nil, AskOutput{}, fmt.Errorf("failed to answer: %w", err)
		}

		sources := ans.Sources
		if sources == nil {
			sources = []string{}
		}
		return nil, AskOutput{
			Answer:         ans.Text,
			Outcome:        string(ans.Kind),
			Sources:        sources,
			Attempts:       ans.Attempts,
			ElapsedSeconds: ans.Elapsed.Seconds(),
		}, nil
	}
}

// makeSearchHandler creates the search_documents tool handler.
// Matched outcomes return the chunks above the threshold; low-confidence
// outcomes return the weak suggestions so the caller can judge them.
func makeSearchHandler(p Pipeline) func(
	context.Context, *mcp.CallToolRequest, SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, SearchOutput, error,
	) {
		outcome, err := p.Search(ctx, input.Query)
		if err != nil {
			return nil, SearchOutput{}, fmt.Errorf("search failed: %w", err)
		}

		matches := outcome.Matches
		var message string
		switch outcome.Kind {
		case retrieval.NoMatch:
			message = "No matching documents found. Try ingesting documents or broader search terms."
		case retrieval.LowConfidence:
			matches = outcome.Suggestions
			message = "No result met the similarity threshold; showing the closest chunks."
		}

		if input.MaxResults > 0 && len(matches) > input.MaxResults {
			matches = matches[:input.MaxResults]
		}

		results := make([]SearchResult, 0, len(matches))
		for _, m := range matches {
			results = append(results, SearchResult{
				ID:     m.ID,
				Source: m.Metadata[storage.MetaSource],
				Page:   m.Metadata[storage.MetaPage],
				Score:  m.Score,
				Text:   m.Text,
			})
		}

		return nil, SearchOutput{
			Outcome: string(outcome.Kind),
			Results: results,
			Message: message,
		}, nil
	}
}

// makeStatsHandler creates the index_stats tool handler. An unreachable
// store is reported in the output rather than as a tool error.
func makeStatsHandler(p Pipeline) func(
	context.Context, *mcp.CallToolRequest, StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (
		*mcp.CallToolResult, StatsOutput, error,
	) {
		stats, err := p.Stats(ctx)
		out := StatsOutput{
			DocumentCount: stats.DocumentCount,
			BackingPath:   stats.BackingPath,
			Available:     err == nil,
		}

		var unavailable *pipeline.StatsUnavailableError
		switch {
		case errors.As(err, &unavailable):
			out.Error = unavailable.Error()
		case err != nil:
			return nil, StatsOutput{}, fmt.Errorf("failed to read stats: %w", err)
		}
		return nil, out, nil
	}
}
