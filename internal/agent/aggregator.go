package agent

import "strings"

// NoTextualResponse is the answer placeholder used when a turn completes
// without the model emitting any assistant text.
const NoTextualResponse = "no textual response produced"

// ToolInvocation is one entry of a turn's tool trace. Sequence is strictly
// increasing in dispatch order, starting at 0.
type ToolInvocation struct {
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args,omitempty"`
	Result   string         `json:"result,omitempty"`
	ErrText  string         `json:"error,omitempty"`
	Sequence int            `json:"sequence"`
}

// TurnResult is the outcome of one submitted query: the final answer text,
// the ordered tool trace, and the error when the turn failed. A failed turn
// still carries a human-readable Answer describing what went wrong.
type TurnResult struct {
	Answer    string
	ToolTrace []ToolInvocation
	Err       error
}

// Aggregator folds a turn's event stream into an answer and a tool trace in
// a single pass. It preserves arrival order: text fragments concatenate in
// the order fed, tool results are numbered in the order dispatched.
//
// An Aggregator covers exactly one turn and is not safe for concurrent use;
// the reasoning loop feeds it from a single goroutine.
type Aggregator struct {
	text  strings.Builder
	trace []ToolInvocation
	live  func(string)
}

// NewAggregator returns an empty aggregator. live, when non-nil, receives
// each text fragment as it arrives for incremental display.
func NewAggregator(live func(delta string)) *Aggregator {
	return &Aggregator{live: live}
}

// Feed consumes one event. Tool-call requests and unrecognized events leave
// the buffers untouched.
func (a *Aggregator) Feed(ev Event) {
	switch ev.Kind {
	case EventTextDelta:
		a.text.WriteString(ev.Text)
		if a.live != nil {
			a.live(ev.Text)
		}
	case EventToolResult:
		a.trace = append(a.trace, ToolInvocation{
			Tool:     ev.Tool,
			Args:     ev.Args,
			Result:   ev.Result,
			ErrText:  ev.ErrText,
			Sequence: len(a.trace),
		})
	}
}

// TextLen reports how many bytes of assistant text have accumulated so far.
func (a *Aggregator) TextLen() int { return a.text.Len() }

// Finalize returns the trimmed answer text and the tool trace. An empty
// answer is replaced with the NoTextualResponse placeholder so callers never
// render a blank reply.
func (a *Aggregator) Finalize() (answer string, trace []ToolInvocation) {
	answer = strings.TrimSpace(a.text.String())
	if answer == "" {
		answer = NoTextualResponse
	}
	return answer, a.trace
}
