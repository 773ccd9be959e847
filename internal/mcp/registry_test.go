package mcp

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungsub/mcpchat/internal/config"
	"github.com/kyungsub/mcpchat/internal/log"
)

// fakeConn is an in-memory serverConn for registry tests.
type fakeConn struct {
	tools   []*sdk.Tool
	callFn  func(tool string, args map[string]any) (string, error)
	closed  bool
	callLog []string
}

func (f *fakeConn) ListTools(context.Context) ([]*sdk.Tool, error) { return f.tools, nil }

func (f *fakeConn) Call(_ context.Context, tool string, args map[string]any) (string, error) {
	f.callLog = append(f.callLog, tool)
	if f.callFn != nil {
		return f.callFn(tool, args)
	}
	return "ok", nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

// fakeDialer returns a connectFunc serving the given conns by server name.
// Servers not present in the map fail to connect.
func fakeDialer(conns map[string]*fakeConn) connectFunc {
	return func(_ context.Context, name string, _ config.ServerConfig, _ log.Logger) (serverConn, []*sdk.Tool, error) {
		conn, ok := conns[name]
		if !ok {
			return nil, nil, errors.New("connection refused")
		}
		return conn, conn.tools, nil
	}
}

func serverConfigs(names ...string) map[string]config.ServerConfig {
	out := make(map[string]config.ServerConfig, len(names))
	for _, n := range names {
		out[n] = config.ServerConfig{Command: "/usr/bin/true"}
	}
	return out
}

func TestDiscoverEmptyConfigIsNotFatal(t *testing.T) {
	r := NewRegistry(log.NewNop(), withConnect(fakeDialer(nil)))

	err := r.Discover(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, r.Tools())
}

func TestDiscoverAllServersUnreachable(t *testing.T) {
	r := NewRegistry(log.NewNop(), withConnect(fakeDialer(nil)))

	err := r.Discover(context.Background(), serverConfigs("weather", "time"))

	var derr *DiscoveryError
	require.ErrorAs(t, err, &derr)
	assert.Len(t, derr.Failures, 2)
}

func TestDiscoverPartialFailureIsIsolated(t *testing.T) {
	conns := map[string]*fakeConn{
		"time": {tools: []*sdk.Tool{{Name: "get_current_time", Description: "time lookup"}}},
	}
	r := NewRegistry(log.NewNop(), withConnect(fakeDialer(conns)))

	err := r.Discover(context.Background(), serverConfigs("time", "weather"))

	require.NoError(t, err)
	require.Len(t, r.Tools(), 1)
	tool, ok := r.Get("get_current_time")
	require.True(t, ok)
	assert.Equal(t, "time", tool.Server)
}

func TestDiscoverNameCollisionFailsDiscovery(t *testing.T) {
	conns := map[string]*fakeConn{
		"alpha": {tools: []*sdk.Tool{{Name: "get_weather"}}},
		"beta":  {tools: []*sdk.Tool{{Name: "get_weather"}}},
	}
	r := NewRegistry(log.NewNop(), withConnect(fakeDialer(conns)))

	err := r.Discover(context.Background(), serverConfigs("alpha", "beta"))

	require.ErrorIs(t, err, ErrDuplicateTool)
	assert.Contains(t, err.Error(), "get_weather")
	// Collision is fatal: nothing stays connected or registered.
	assert.Empty(t, r.Tools())
	assert.True(t, conns["alpha"].closed)
	assert.True(t, conns["beta"].closed)
}

func TestInvokeRoutesToOwningServer(t *testing.T) {
	timeConn := &fakeConn{
		tools: []*sdk.Tool{{Name: "get_current_time"}},
		callFn: func(tool string, args map[string]any) (string, error) {
			return "2025-01-01 09:00:00 KST", nil
		},
	}
	weatherConn := &fakeConn{tools: []*sdk.Tool{{Name: "get_weather"}}}
	r := NewRegistry(log.NewNop(), withConnect(fakeDialer(map[string]*fakeConn{
		"time":    timeConn,
		"weather": weatherConn,
	})))
	require.NoError(t, r.Discover(context.Background(), serverConfigs("time", "weather")))

	out, err := r.Invoke(context.Background(), "get_current_time", map[string]any{"timezone": "Asia/Seoul"})

	require.NoError(t, err)
	assert.Equal(t, "2025-01-01 09:00:00 KST", out)
	assert.Equal(t, []string{"get_current_time"}, timeConn.callLog)
	assert.Empty(t, weatherConn.callLog)
}

func TestInvokeUnknownTool(t *testing.T) {
	r := NewRegistry(log.NewNop(), withConnect(fakeDialer(nil)))

	_, err := r.Invoke(context.Background(), "nonexistent", nil)

	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestInvokePropagatesRemoteError(t *testing.T) {
	conn := &fakeConn{
		tools: []*sdk.Tool{{Name: "get_weather"}},
		callFn: func(string, map[string]any) (string, error) {
			return "", &RemoteToolError{Server: "weather", Tool: "get_weather", Message: "unknown location 'Atlantis'"}
		},
	}
	r := NewRegistry(log.NewNop(), withConnect(fakeDialer(map[string]*fakeConn{"weather": conn})))
	require.NoError(t, r.Discover(context.Background(), serverConfigs("weather")))

	_, err := r.Invoke(context.Background(), "get_weather", map[string]any{"location": "Atlantis"})

	var rerr *RemoteToolError
	require.ErrorAs(t, err, &rerr)
	// Remote error text is preserved verbatim.
	assert.Equal(t, "unknown location 'Atlantis'", rerr.Message)
}

func TestCloseIsIdempotent(t *testing.T) {
	conn := &fakeConn{tools: []*sdk.Tool{{Name: "get_weather"}}}
	r := NewRegistry(log.NewNop(), withConnect(fakeDialer(map[string]*fakeConn{"weather": conn})))
	require.NoError(t, r.Discover(context.Background(), serverConfigs("weather")))

	require.NoError(t, r.Close())
	assert.True(t, conn.closed)
	require.NoError(t, r.Close())

	_, err := r.Invoke(context.Background(), "get_weather", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestNamesSorted(t *testing.T) {
	conn := &fakeConn{tools: []*sdk.Tool{
		{Name: "get_weather"},
		{Name: "convert_time"},
		{Name: "get_current_time"},
	}}
	r := NewRegistry(log.NewNop(), withConnect(fakeDialer(map[string]*fakeConn{"all": conn})))
	require.NoError(t, r.Discover(context.Background(), serverConfigs("all")))

	assert.Equal(t, []string{"convert_time", "get_current_time", "get_weather"}, r.Names())
}
