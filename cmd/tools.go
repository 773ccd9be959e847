package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kyungsub/mcpchat/internal/toolserver"
)

// executeTools runs the built-in MCP tool server over stdio. The chat side
// launches it through mcp_server.json ("command": "mcpchat", "args":
// ["tools"]), and any other MCP client can use it the same way.
func executeTools() error {
	logger := initLogger()

	srv, err := toolserver.NewServer(toolserver.Config{
		Name:    "mcpchat-tools",
		Version: AppVersion,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating tool server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// stdout carries JSON-RPC; all logging goes to stderr.
	return srv.Run(ctx, &mcp.StdioTransport{})
}
