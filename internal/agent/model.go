package agent

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/kyungsub/mcpchat/internal/log"
)

// GenkitModel adapts a Genkit model handle to the loop's Model interface.
// It owns the per-conversation generation settings: system prompt,
// temperature, the bound tool set, and a rate limiter that smooths bursts
// against the local model server.
type GenkitModel struct {
	g            *genkit.Genkit
	model        ai.Model
	systemPrompt string
	temperature  float64
	tools        []ai.ToolRef
	limiter      *rate.Limiter
	logger       log.Logger
}

// GenkitModelConfig collects the construction parameters for GenkitModel.
type GenkitModelConfig struct {
	Genkit       *genkit.Genkit
	Model        ai.Model
	SystemPrompt string
	Temperature  float64
	Tools        []ai.ToolRef
	Limiter      *rate.Limiter
	Logger       log.Logger
}

// NewGenkitModel wires a model handle with its generation settings.
func NewGenkitModel(cfg GenkitModelConfig) *GenkitModel {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &GenkitModel{
		g:            cfg.Genkit,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		tools:        cfg.Tools,
		limiter:      cfg.Limiter,
		logger:       logger,
	}
}

// Generate runs one generation call. Tool requests are returned to the
// caller rather than executed by the framework, so the reasoning loop stays
// in charge of dispatch order and budgets.
func (m *GenkitModel) Generate(ctx context.Context, req ModelRequest) (*ai.ModelResponse, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	opts := []ai.GenerateOption{
		ai.WithModel(m.model),
		ai.WithSystem(m.systemPrompt),
		ai.WithMessages(req.Messages...),
		ai.WithReturnToolRequests(true),
		ai.WithConfig(&ai.GenerationCommonConfig{Temperature: m.temperature}),
	}
	if len(m.tools) > 0 {
		opts = append(opts, ai.WithTools(m.tools...))
	}
	if req.Stream != nil {
		opts = append(opts, ai.WithStreaming(req.Stream))
	}

	resp, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return resp, nil
}
