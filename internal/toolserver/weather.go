package toolserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// WeatherInput is the input for the get_weather tool.
type WeatherInput struct {
	Location string `json:"location" jsonschema:"City name to get the current weather for, e.g. 'Seoul'."`
}

// Canned conditions keyed by lowercase city name. A stand-in for a real
// weather API; the lookup shape matches what an API-backed version returns.
var weatherByCity = map[string]string{
	"seoul":  "The current weather in Seoul is clear with a temperature of 25 degrees.",
	"suwon":  "The current weather in Suwon is partly cloudy with a temperature of 23 degrees.",
	"london": "The current weather in London is rainy with a temperature of 15 degrees.",
}

// weather looks up the conditions for location.
func weather(location string) (string, error) {
	if strings.TrimSpace(location) == "" {
		return "", fmt.Errorf("location must not be empty")
	}
	if report, ok := weatherByCity[strings.ToLower(strings.TrimSpace(location))]; ok {
		return report, nil
	}
	return "", fmt.Errorf("no weather data for %q, check the city name", location)
}

func (s *Server) registerWeatherTools() error {
	schema, err := schemaFor[WeatherInput]()
	if err != nil {
		return err
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_weather",
		Description: "Get the current weather for a city.",
		InputSchema: schema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in WeatherInput) (*mcp.CallToolResult, any, error) {
		s.logger.Debug("get_weather called", "location", in.Location)
		report, err := weather(in.Location)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(report), nil, nil
	})
	return nil
}
