package mcp

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for registry operations, checked with errors.Is().
var (
	// ErrToolNotFound indicates a tool name that no connected server exposes.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDuplicateTool indicates two servers exposing the same tool name.
	// This is a configuration error: the registry never resolves a collision
	// by letting one server shadow the other.
	ErrDuplicateTool = errors.New("duplicate tool name")

	// ErrNotConnected indicates an adapter operation before Connect or after Close.
	ErrNotConnected = errors.New("tool server not connected")
)

// DiscoveryError reports that no configured tool server could be reached.
// Individual server failures are isolated and logged; discovery fails as a
// whole only when every configured server failed.
type DiscoveryError struct {
	// Failures maps server name to the error that disqualified it.
	Failures map[string]error
}

func (e *DiscoveryError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Failures[name]))
	}
	return fmt.Sprintf("tool discovery failed for all %d configured servers (%s)",
		len(e.Failures), strings.Join(parts, "; "))
}

// RemoteToolError carries an application-level error returned by a tool server.
// Message preserves the remote error text verbatim so the model can react to it.
type RemoteToolError struct {
	Server  string
	Tool    string
	Message string
}

func (e *RemoteToolError) Error() string {
	return fmt.Sprintf("tool %q on server %q failed: %s", e.Tool, e.Server, e.Message)
}
