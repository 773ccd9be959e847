package toolserver

import (
	"context"
	"fmt"
	"time"

	// Embed the timezone database so IANA lookups work on hosts and
	// containers that ship without one.
	_ "time/tzdata"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultTimezone is used when the model omits the timezone argument.
const DefaultTimezone = "Asia/Seoul"

// CurrentTimeInput is the input for the get_current_time tool.
type CurrentTimeInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"IANA timezone name, e.g. 'America/New_York'. Defaults to 'Asia/Seoul'."`
}

// clock is swappable in tests.
var clock = time.Now

// currentTime resolves the timezone and formats the current time there.
func currentTime(tz string) (string, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("unknown timezone %q, use an IANA name such as 'America/New_York'", tz)
	}
	now := clock().In(loc)
	return fmt.Sprintf("The current time in %s is %s.", tz, now.Format("2006-01-02 15:04:05 MST")), nil
}

func (s *Server) registerTimeTools() error {
	schema, err := schemaFor[CurrentTimeInput]()
	if err != nil {
		return err
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_current_time",
		Description: "Get the current time in a given IANA timezone. Defaults to Asia/Seoul when no timezone is given.",
		InputSchema: schema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in CurrentTimeInput) (*mcp.CallToolResult, any, error) {
		s.logger.Debug("get_current_time called", "timezone", in.Timezone)
		text, err := currentTime(in.Timezone)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(text), nil, nil
	})
	return nil
}
