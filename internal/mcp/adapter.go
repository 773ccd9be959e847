package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kyungsub/mcpchat/internal/config"
	"github.com/kyungsub/mcpchat/internal/log"
)

// Adapter manages the connection lifecycle for a single tool server:
// connect, enumerate, invoke, close. Each adapter is independently fallible;
// a fault here never propagates beyond the owning registry entry.
//
// Connection lifetime is explicit and scoped: Connect at registry discovery,
// Close at process shutdown. Nothing is cleaned up implicitly.
type Adapter struct {
	name    string
	cfg     config.ServerConfig
	logger  log.Logger
	session *sdk.ClientSession
}

// NewAdapter creates an adapter for the named server. The connection is not
// established until Connect is called.
func NewAdapter(name string, cfg config.ServerConfig, logger log.Logger) *Adapter {
	return &Adapter{
		name:   name,
		cfg:    cfg,
		logger: logger.With("server", name),
	}
}

// Name returns the configured server name.
func (a *Adapter) Name() string { return a.name }

// Connect establishes the MCP session over the configured transport.
// Stdio servers are launched as child processes; URL servers are dialed over
// streamable HTTP. The ctx deadline bounds the whole handshake.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.session != nil {
		return nil
	}

	client := sdk.NewClient(&sdk.Implementation{
		Name:    "mcpchat",
		Version: "1.0.0",
	}, nil)

	var transport sdk.Transport
	if a.cfg.Command != "" {
		// The ctx deadline bounds the handshake only; the child process
		// must outlive it, until Close terminates the session.
		cmd := exec.Command(a.cfg.Command, a.cfg.Args...)
		cmd.Env = append(os.Environ(), envSlice(a.cfg.Env)...)
		cmd.Stderr = os.Stderr
		transport = &sdk.CommandTransport{Command: cmd}
	} else {
		transport = &sdk.StreamableClientTransport{Endpoint: a.cfg.URL}
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to tool server %q: %w", a.name, err)
	}

	a.session = session
	a.logger.Debug("tool server connected")
	return nil
}

// ListTools enumerates the tools the server exposes.
func (a *Adapter) ListTools(ctx context.Context) ([]*sdk.Tool, error) {
	if a.session == nil {
		return nil, fmt.Errorf("listing tools on %q: %w", a.name, ErrNotConnected)
	}

	res, err := a.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing tools on %q: %w", a.name, err)
	}
	return res.Tools, nil
}

// Call invokes a tool and returns its textual result.
//
// A protocol-level failure is returned as a plain error. An application-level
// error (IsError result) becomes a RemoteToolError carrying the remote error
// text verbatim, so callers can feed it back into the model's context.
func (a *Adapter) Call(ctx context.Context, tool string, args map[string]any) (string, error) {
	if a.session == nil {
		return "", fmt.Errorf("calling %q on %q: %w", tool, a.name, ErrNotConnected)
	}

	res, err := a.session.CallTool(ctx, &sdk.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("calling %q on %q: %w", tool, a.name, err)
	}

	text := contentText(res.Content)
	if res.IsError {
		return "", &RemoteToolError{Server: a.name, Tool: tool, Message: text}
	}
	return text, nil
}

// Close terminates the session and, for stdio servers, the child process.
func (a *Adapter) Close() error {
	if a.session == nil {
		return nil
	}
	err := a.session.Close()
	a.session = nil
	if err != nil {
		return fmt.Errorf("closing tool server %q: %w", a.name, err)
	}
	a.logger.Debug("tool server closed")
	return nil
}

// contentText flattens MCP content blocks into a single string.
// Non-text blocks are ignored; tool servers in this system speak text.
func contentText(content []sdk.Content) string {
	var sb strings.Builder
	for _, c := range content {
		if tc, ok := c.(*sdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// envSlice converts an env map to the KEY=VALUE slice form exec.Cmd expects.
func envSlice(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}
