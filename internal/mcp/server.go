package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Pipeline Pipeline
	// Name and Version identify the server to clients.
	Name    string
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "localrag"
	}
	if version == "" {
		version = "v0.1.0"
	}

	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_documents",
		Description: "Answer a question from the locally indexed documents. Returns the answer, the chunk IDs it is based on, and whether the match was confident.",
	}, makeAskHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search the indexed documents semantically without generating an answer. Returns scored chunks.",
	}, makeSearchHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Report how many chunks are indexed and where the index is stored.",
	}, makeStatsHandler(cfg.Pipeline))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
