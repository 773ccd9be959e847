package agent

// EventKind discriminates the events emitted while a turn streams.
type EventKind int

const (
	// EventTextDelta carries an incremental fragment of assistant text.
	EventTextDelta EventKind = iota
	// EventToolCallRequested marks the model asking for a tool invocation.
	EventToolCallRequested
	// EventToolResult carries the output of a completed tool invocation.
	EventToolResult
	// EventOther covers provider events the aggregator does not consume.
	EventOther
)

// Event is one element of a turn's stream. Exactly the fields relevant to
// its Kind are populated; the rest stay zero.
type Event struct {
	Kind EventKind

	// Text is the fragment for EventTextDelta.
	Text string

	// Tool, Args, Result and ErrText describe tool activity for
	// EventToolCallRequested and EventToolResult. ErrText is non-empty when
	// the invocation failed; Result and ErrText are mutually exclusive.
	Tool    string
	Args    map[string]any
	Result  string
	ErrText string
}

// TextDeltaEvent wraps an assistant text fragment.
func TextDeltaEvent(text string) Event {
	return Event{Kind: EventTextDelta, Text: text}
}

// ToolCallEvent records the model requesting a tool.
func ToolCallEvent(tool string, args map[string]any) Event {
	return Event{Kind: EventToolCallRequested, Tool: tool, Args: args}
}

// ToolResultEvent records a successful tool invocation.
func ToolResultEvent(tool string, args map[string]any, result string) Event {
	return Event{Kind: EventToolResult, Tool: tool, Args: args, Result: result}
}

// ToolErrorEvent records a failed tool invocation; the error text is carried
// verbatim so the model and the user see what the tool server reported.
func ToolErrorEvent(tool string, args map[string]any, errText string) Event {
	return Event{Kind: EventToolResult, Tool: tool, Args: args, ErrText: errText}
}
