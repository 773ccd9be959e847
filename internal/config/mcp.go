package config

// mcp.go loads tool-server definitions from the mcp_server.json document.
//
// The document has a single recognized top-level key, "mcpServers", mapping a
// server name to its connection parameters. Two transport shapes are supported:
// a command to launch (stdio transport) or a URL (streamable HTTP transport).
// A missing file yields an empty server set, not an error: running without tool
// servers is a valid, if less useful, mode.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// ErrInvalidServerConfig indicates a tool-server entry that defines neither a
// command nor a URL, or defines both.
var ErrInvalidServerConfig = errors.New("invalid tool server config")

// DefaultStartupTimeout bounds how long discovery waits for a single server to
// come up and answer the tool enumeration request.
const DefaultStartupTimeout = 10 * time.Second

// ServerConfig holds the connection parameters for one tool server.
type ServerConfig struct {
	// Command and Args launch a local server process speaking MCP over stdio.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	// Env holds additional environment variables for the launched process.
	Env map[string]string `json:"env,omitempty"`

	// URL connects to an already-running server over streamable HTTP.
	URL string `json:"url,omitempty"`

	// StartupTimeoutSeconds bounds connect + tool enumeration for this server.
	// Zero means DefaultStartupTimeout.
	StartupTimeoutSeconds int `json:"startupTimeoutSeconds,omitempty"`
}

// StartupTimeout returns the per-server discovery budget.
func (s ServerConfig) StartupTimeout() time.Duration {
	if s.StartupTimeoutSeconds > 0 {
		return time.Duration(s.StartupTimeoutSeconds) * time.Second
	}
	return DefaultStartupTimeout
}

// Validate checks that the entry selects exactly one transport.
func (s ServerConfig) Validate() error {
	if s.Command == "" && s.URL == "" {
		return fmt.Errorf("%w: needs either command or url", ErrInvalidServerConfig)
	}
	if s.Command != "" && s.URL != "" {
		return fmt.Errorf("%w: command and url are mutually exclusive", ErrInvalidServerConfig)
	}
	return nil
}

// serverDocument mirrors the on-disk shape of mcp_server.json.
type serverDocument struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// LoadServers reads tool-server definitions from the given path.
//
// Returns an empty map when the file does not exist. A file that exists but
// cannot be parsed, or an entry that fails validation, is a configuration
// error and is returned as such. Silently dropping a server the user wrote
// down would be worse than failing loudly.
func LoadServers(path string, logger *slog.Logger) (map[string]ServerConfig, error) {
	if path == "" {
		path = DefaultServerConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("tool server config not found, no tools will be loaded", "path", path)
			return map[string]ServerConfig{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc serverDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for name, sc := range doc.MCPServers {
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("server %q: %w", name, err)
		}
	}

	if doc.MCPServers == nil {
		doc.MCPServers = map[string]ServerConfig{}
	}
	return doc.MCPServers, nil
}
