package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/kyungsub/mcpchat/internal/log"
)

// State is the reasoning loop's phase within a turn.
type State int

const (
	// StateIdle means no turn is in flight.
	StateIdle State = iota
	// StateAwaitingModel means a model generation is in progress.
	StateAwaitingModel
	// StateToolDispatch means requested tool calls are being executed.
	StateToolDispatch
	// StateDone means the last turn finished with a final answer.
	StateDone
	// StateFailed means the last turn aborted with an error.
	StateFailed
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolDispatch:
		return "tool_dispatch"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Model is the narrow generation surface the loop depends on. The production
// implementation is GenkitModel; tests substitute fakes.
type Model interface {
	Generate(ctx context.Context, req ModelRequest) (*ai.ModelResponse, error)
}

// ModelRequest carries one generation call. Stream, when non-nil, receives
// chunks as the provider produces them.
type ModelRequest struct {
	Messages []*ai.Message
	Stream   func(ctx context.Context, chunk *ai.ModelResponseChunk) error
}

// Invoker executes a named tool. Satisfied by *mcp.Registry.
type Invoker interface {
	Invoke(ctx context.Context, tool string, args map[string]any) (string, error)
}

// Controller drives the model/tool loop for one conversation. Each turn it
// calls the model, executes any requested tools sequentially, feeds the
// results back, and repeats until the model answers without tool requests or
// a budget trips. The step counter resets every turn; the wall-clock timeout
// covers the whole turn including tool execution.
//
// A Controller is owned by a single Session and is not safe for concurrent
// turns.
type Controller struct {
	model   Model
	invoker Invoker
	limit   int
	timeout time.Duration
	logger  log.Logger

	state   State
	history []*ai.Message
}

// NewController wires a loop over the given model and tool invoker. limit is
// the per-turn tool-dispatch budget, timeout the per-turn wall clock.
func NewController(model Model, invoker Invoker, limit int, timeout time.Duration, logger log.Logger) *Controller {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Controller{
		model:   model,
		invoker: invoker,
		limit:   limit,
		timeout: timeout,
		logger:  logger,
		state:   StateIdle,
	}
}

// State reports the loop's current phase.
func (c *Controller) State() State { return c.state }

// HistoryLen reports the number of committed conversation messages.
func (c *Controller) HistoryLen() int { return len(c.history) }

// RunTurn executes one turn for query. onDelta, when non-nil, receives
// assistant text fragments as they stream. The returned TurnResult always
// carries a displayable Answer; Err is set when the turn failed.
//
// History commits are per step: the model's message and the tool results it
// triggered are appended together after the step completes, so an aborted
// turn never leaves a half-applied step behind.
func (c *Controller) RunTurn(ctx context.Context, query string, onDelta func(string)) *TurnResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	agg := NewAggregator(onDelta)
	working := append(slices.Clone(c.history), ai.NewUserMessage(ai.NewTextPart(query)))
	steps := 0

	for {
		c.state = StateAwaitingModel
		before := agg.TextLen()
		resp, err := c.model.Generate(ctx, ModelRequest{
			Messages: working,
			Stream: func(_ context.Context, chunk *ai.ModelResponseChunk) error {
				agg.Feed(TextDeltaEvent(chunk.Text()))
				return nil
			},
		})
		if err != nil {
			return c.fail(ctx, err, agg)
		}
		// Non-streaming providers deliver the text only on the final
		// response; feed it once so the answer is never lost.
		if agg.TextLen() == before && resp.Text() != "" {
			agg.Feed(TextDeltaEvent(resp.Text()))
		}

		reqs := resp.ToolRequests()
		if len(reqs) == 0 {
			working = append(working, resp.Message)
			c.history = working
			c.state = StateDone
			answer, trace := agg.Finalize()
			c.logger.Debug("turn complete", "steps", steps, "tools", len(trace))
			return &TurnResult{Answer: answer, ToolTrace: trace}
		}

		steps++
		if steps > c.limit {
			c.state = StateFailed
			_, trace := agg.Finalize()
			c.logger.Warn("step budget exhausted", "limit", c.limit)
			return &TurnResult{
				Answer:    fmt.Sprintf("could not complete within the step budget of %d tool calls", c.limit),
				ToolTrace: trace,
				Err:       ErrBudgetExceeded,
			}
		}

		c.state = StateToolDispatch
		stepMsgs := []*ai.Message{resp.Message}
		for _, req := range reqs {
			args, _ := req.Input.(map[string]any)
			agg.Feed(ToolCallEvent(req.Name, args))
			c.logger.Debug("dispatching tool", "tool", req.Name, "step", steps)

			out, err := c.invoker.Invoke(ctx, req.Name, args)
			if err != nil {
				if ctx.Err() != nil {
					return c.fail(ctx, err, agg)
				}
				// Tool failures feed back to the model as results, not
				// aborts; the model decides how to recover.
				agg.Feed(ToolErrorEvent(req.Name, args, err.Error()))
				stepMsgs = append(stepMsgs, toolResultMessage(req, map[string]any{"error": err.Error()}))
				continue
			}
			agg.Feed(ToolResultEvent(req.Name, args, out))
			stepMsgs = append(stepMsgs, toolResultMessage(req, out))
		}

		working = append(working, stepMsgs...)
		c.history = working
	}
}

// fail classifies a turn-aborting error and builds the failure result. A
// cancelled or expired context discards the partial transcript so an aborted
// turn is never mistaken for a complete one.
func (c *Controller) fail(ctx context.Context, err error, agg *Aggregator) *TurnResult {
	c.state = StateFailed
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		c.logger.Warn("turn timed out", "timeout", c.timeout)
		return &TurnResult{
			Answer: fmt.Sprintf("the turn timed out after %s", c.timeout),
			Err:    fmt.Errorf("%w after %s", ErrTurnTimeout, c.timeout),
		}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		c.logger.Info("turn cancelled")
		return &TurnResult{Answer: "the turn was cancelled", Err: context.Canceled}
	default:
		c.logger.Error("model invocation failed", "error", err)
		answer, trace := agg.Finalize()
		if answer == NoTextualResponse {
			answer = "the model could not be reached; check that the model server is running"
		}
		return &TurnResult{
			Answer:    answer,
			ToolTrace: trace,
			Err:       fmt.Errorf("%w: %v", ErrModelInvocation, err),
		}
	}
}

// toolResultMessage wraps a tool's output as the tool-role message the next
// generation call consumes. Ref ties the result back to its request.
func toolResultMessage(req *ai.ToolRequest, output any) *ai.Message {
	return &ai.Message{
		Role: ai.RoleTool,
		Content: []*ai.Part{
			ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   req.Name,
				Ref:    req.Ref,
				Output: output,
			}),
		},
	}
}
