// Package app assembles the application: Genkit with the Ollama plugin, the
// tool-server registry, and the session factory the UI surfaces build on.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/ollama"
	"golang.org/x/time/rate"

	"github.com/kyungsub/mcpchat/internal/agent"
	"github.com/kyungsub/mcpchat/internal/config"
	"github.com/kyungsub/mcpchat/internal/log"
	"github.com/kyungsub/mcpchat/internal/mcp"
)

// App holds the long-lived application components. One App serves any number
// of sessions; sessions share the model handle, the tool registry, and the
// rate limiter that paces calls to the local model server.
type App struct {
	Config   *config.Config
	Genkit   *genkit.Genkit
	Registry *mcp.Registry

	model    ai.Model
	toolRefs []ai.ToolRef
	limiter  *rate.Limiter
	logger   log.Logger
}

// New initializes the application: Genkit with the Ollama plugin, the chat
// model, tool-server discovery, and the registry-backed tool bindings.
// Failures are returned, not logged-and-ignored, so callers can surface the
// reason through their own status channel.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	o := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
	g := genkit.Init(ctx, genkit.WithPlugins(o))

	model := o.DefineModel(g,
		ollama.ModelDefinition{Name: cfg.ModelName, Type: "chat"},
		&ai.ModelOptions{
			Label: cfg.ModelName,
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				Tools:      true,
				SystemRole: true,
			},
		})
	logger.Info("model registered", "model", cfg.FullModelName(), "host", cfg.OllamaHost)

	servers, err := config.LoadServers(cfg.ServerConfigPath, logger)
	if err != nil {
		return nil, fmt.Errorf("loading tool server config: %w", err)
	}

	registry := mcp.NewRegistry(logger)
	if err := registry.Discover(ctx, servers); err != nil {
		return nil, fmt.Errorf("tool discovery: %w", err)
	}
	logger.Info("tools discovered", "tools", registry.Names())

	toolRefs, err := agent.BindRegistryTools(g, registry)
	if err != nil {
		_ = registry.Close()
		return nil, fmt.Errorf("binding tools: %w", err)
	}

	return &App{
		Config:   cfg,
		Genkit:   g,
		Registry: registry,
		model:    model,
		toolRefs: toolRefs,
		// Local model servers handle one generation at a time well;
		// pacing requests avoids queue pileup when turns loop on tools.
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
		logger:  logger,
	}, nil
}

// SessionOptions carries per-session generation settings. Defaults derives
// them from configuration; UI surfaces override individual fields.
type SessionOptions struct {
	Temperature    float64
	SystemPrompt   string
	Timeout        time.Duration
	RecursionLimit int
}

// Defaults returns session options derived from the loaded configuration.
func (a *App) Defaults() SessionOptions {
	return SessionOptions{
		Temperature:    a.Config.Temperature,
		SystemPrompt:   a.Config.SystemPrompt,
		Timeout:        a.Config.TurnTimeout(),
		RecursionLimit: a.Config.RecursionLimit,
	}
}

// NewSession creates an independent conversation with its own thread
// identifier and message history.
func (a *App) NewSession(opts SessionOptions) *agent.Session {
	model := agent.NewGenkitModel(agent.GenkitModelConfig{
		Genkit:       a.Genkit,
		Model:        a.model,
		SystemPrompt: opts.SystemPrompt,
		Temperature:  opts.Temperature,
		Tools:        a.toolRefs,
		Limiter:      a.limiter,
		Logger:       a.logger,
	})
	loop := agent.NewController(model, a.Registry, opts.RecursionLimit, opts.Timeout, a.logger)
	return agent.NewSession(agent.SessionConfig{
		Controller:   loop,
		SystemPrompt: opts.SystemPrompt,
		Temperature:  opts.Temperature,
		Logger:       a.logger,
	})
}

// ToolNames lists the discovered tools in sorted order.
func (a *App) ToolNames() []string { return a.Registry.Names() }

// Close releases tool-server connections.
func (a *App) Close() error {
	a.logger.Info("shutting down")
	return a.Registry.Close()
}
