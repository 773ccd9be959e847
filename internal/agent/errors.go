// Package agent implements the conversational core of mcpchat: the reasoning
// loop that interleaves model generation with tool calls, the aggregator that
// folds the resulting event stream into a transcript, and the session surface
// exposed to UI adapters.
package agent

import "errors"

// Sentinel errors for turn outcomes, checked with errors.Is().
var (
	// ErrEmptyQuery indicates an empty or whitespace-only query.
	// Rejected before any model call; no state is mutated.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrBusy indicates a Submit while another turn is in flight on the same
	// session. Concurrent submissions are rejected, not queued.
	ErrBusy = errors.New("session busy: a turn is already in flight")

	// ErrBudgetExceeded indicates the tool-dispatch step budget was exhausted
	// before the model produced a final answer.
	ErrBudgetExceeded = errors.New("step budget exceeded")

	// ErrTurnTimeout indicates the wall-clock turn timeout fired.
	ErrTurnTimeout = errors.New("turn timed out")

	// ErrModelInvocation indicates the underlying model call itself failed.
	ErrModelInvocation = errors.New("model invocation failed")
)
