// Package mcp implements the tool-server client side of mcpchat: per-server
// connection adapters and the registry that aggregates their tools into one
// uniform, read-only set.
//
// Discovery policy: per-server failures are isolated (skipped with a warning);
// discovery as a whole fails only when every configured server failed, or when
// two servers expose the same tool name (a configuration error that is never
// resolved by shadowing).
package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kyungsub/mcpchat/internal/config"
	"github.com/kyungsub/mcpchat/internal/log"
)

// Tool is the registry's uniform descriptor for one callable tool,
// normalized across all connected servers. InputSchema is carried as the SDK
// delivers it, an untyped JSON Schema document; consumers that need structure
// re-marshal it.
type Tool struct {
	Name        string
	Description string
	Server      string
	InputSchema any
}

// serverConn is the slice of adapter behavior the registry depends on.
// *Adapter satisfies it; tests substitute fakes.
type serverConn interface {
	ListTools(ctx context.Context) ([]*sdk.Tool, error)
	Call(ctx context.Context, tool string, args map[string]any) (string, error)
	Close() error
}

// connectFunc dials one tool server and enumerates its tools.
// Production uses mcpConnect; tests inject fakes.
type connectFunc func(ctx context.Context, name string, cfg config.ServerConfig, logger log.Logger) (serverConn, []*sdk.Tool, error)

// Registry aggregates tools from all configured tool servers.
//
// The tool set is built once by Discover and read-only afterward; only Close
// mutates connection state again. Reads are safe for concurrent use across
// sessions; the underlying connections are shared.
type Registry struct {
	logger  log.Logger
	connect connectFunc

	mu       sync.RWMutex
	tools    map[string]Tool
	conns    map[string]serverConn
	toolConn map[string]serverConn // tool name -> owning connection
}

// Option configures a Registry.
type Option func(*Registry)

// withConnect replaces the dial function. Test hook.
func withConnect(fn connectFunc) Option {
	return func(r *Registry) { r.connect = fn }
}

// NewRegistry creates an empty registry. Call Discover to populate it.
func NewRegistry(logger log.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:   logger.With("component", "registry"),
		connect:  mcpConnect,
		tools:    make(map[string]Tool),
		conns:    make(map[string]serverConn),
		toolConn: make(map[string]serverConn),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// mcpConnect is the production dial path: build an Adapter, connect within the
// server's startup budget, and enumerate its tools.
func mcpConnect(ctx context.Context, name string, cfg config.ServerConfig, logger log.Logger) (serverConn, []*sdk.Tool, error) {
	adapter := NewAdapter(name, cfg, logger)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout())
	defer cancel()

	if err := adapter.Connect(connectCtx); err != nil {
		return nil, nil, err
	}
	tools, err := adapter.ListTools(connectCtx)
	if err != nil {
		_ = adapter.Close()
		return nil, nil, err
	}
	return adapter, tools, nil
}

// Discover connects to every configured server and aggregates their tools.
//
// Zero configured servers yields an empty registry (running without tools is
// valid). With at least one configured server, zero successful connections is
// a DiscoveryError. A tool-name collision across servers fails discovery
// entirely and closes everything already connected.
func (r *Registry) Discover(ctx context.Context, servers map[string]config.ServerConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(servers) == 0 {
		r.logger.Warn("no tool servers configured, registry is empty")
		return nil
	}

	// Deterministic connection order so collision reports are stable.
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := make(map[string]error)
	for _, name := range names {
		conn, tools, err := r.connect(ctx, name, servers[name], r.logger)
		if err != nil {
			r.logger.Warn("tool server unavailable, skipping", "server", name, "error", err)
			failures[name] = err
			continue
		}

		if err := r.addServerLocked(name, conn, tools); err != nil {
			_ = conn.Close()
			r.closeAllLocked()
			return err
		}
	}

	if len(r.conns) == 0 {
		return &DiscoveryError{Failures: failures}
	}

	r.logger.Info("tool discovery complete",
		"servers", len(r.conns),
		"tools", len(r.tools),
		"failed_servers", len(failures))
	return nil
}

// addServerLocked registers a connected server's tools, rejecting collisions.
func (r *Registry) addServerLocked(name string, conn serverConn, tools []*sdk.Tool) error {
	for _, t := range tools {
		if existing, ok := r.tools[t.Name]; ok {
			return fmt.Errorf("%w: %q exposed by both %q and %q",
				ErrDuplicateTool, t.Name, existing.Server, name)
		}
	}
	for _, t := range tools {
		r.tools[t.Name] = Tool{
			Name:        t.Name,
			Description: t.Description,
			Server:      name,
			InputSchema: t.InputSchema,
		}
		r.toolConn[t.Name] = conn
		r.logger.Debug("tool registered", "tool", t.Name, "server", name)
	}
	r.conns[name] = conn
	return nil
}

// Get returns the descriptor for a tool name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns all registered tools, sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted tool names, for display surfaces.
func (r *Registry) Names() []string {
	tools := r.Tools()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// Invoke routes a tool call to the server that owns the tool.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	conn, ok := r.toolConn[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return conn.Call(ctx, name, args)
}

// Close shuts down every server connection. Safe to call more than once.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeAllLocked()
}

func (r *Registry) closeAllLocked() error {
	var firstErr error
	for name, conn := range r.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.conns, name)
	}
	r.tools = make(map[string]Tool)
	r.toolConn = make(map[string]serverConn)
	return firstErr
}
