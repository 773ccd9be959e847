package agent

import (
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kyungsub/mcpchat/internal/mcp"
)

// BindRegistryTools registers every discovered tool with Genkit so the model
// sees its name, description and input schema, and returns the refs to pass
// on generation calls. Handlers delegate to the registry, which routes the
// call to the owning tool server.
func BindRegistryTools(g *genkit.Genkit, reg *mcp.Registry) ([]ai.ToolRef, error) {
	tools := reg.Tools()
	refs := make([]ai.ToolRef, 0, len(tools))
	for _, t := range tools {
		schema, err := toGenkitSchema(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", t.Name, err)
		}
		name := t.Name
		tool := genkit.DefineToolWithInputSchema(g, name, t.Description, schema,
			func(toolCtx *ai.ToolContext, input any) (any, error) {
				args, _ := input.(map[string]any)
				return reg.Invoke(toolCtx.Context, name, args)
			})
		refs = append(refs, tool)
	}
	return refs, nil
}

// toGenkitSchema bridges the untyped schema document the MCP SDK delivers to
// the map form Genkit's tool definitions expect. Both sides serialize to
// plain JSON Schema, so the conversion is a marshal round trip.
func toGenkitSchema(s any) (map[string]any, error) {
	if s == nil {
		return map[string]any{"type": "object"}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling input schema: %w", err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("converting input schema: %w", err)
	}
	return out, nil
}
