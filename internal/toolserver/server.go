// Package toolserver implements the built-in MCP tool server exposed by the
// tools subcommand. It serves the sample time and weather tools over stdio so
// a fresh checkout has working tools without any external server processes.
package toolserver

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kyungsub/mcpchat/internal/log"
)

// Server wraps the MCP SDK server with the built-in tool set.
type Server struct {
	mcpServer *mcp.Server
	logger    log.Logger
}

// Config holds tool server identity and dependencies.
type Config struct {
	Name    string
	Version string
	Logger  log.Logger
}

// NewServer creates the built-in tool server with all tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		logger: logger,
	}

	if err := s.registerTimeTools(); err != nil {
		return nil, fmt.Errorf("registering time tools: %w", err)
	}
	if err := s.registerWeatherTools(); err != nil {
		return nil, fmt.Errorf("registering weather tools: %w", err)
	}
	return s, nil
}

// Run serves MCP on the given transport until ctx is cancelled or the peer
// disconnects. Blocking.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("tool server running")
	return s.mcpServer.Run(ctx, transport)
}

// schemaFor infers the JSON schema for a tool input struct. Input structs
// are fixed at compile time, so a schema failure is a bug.
func schemaFor[T any]() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("inferring input schema: %w", err)
	}
	return schema, nil
}

// textResult builds a successful text-only tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult builds a tool-level error result. The text travels back to the
// model verbatim so it can explain the failure or retry with better input.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
