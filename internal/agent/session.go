package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kyungsub/mcpchat/internal/log"
)

// Session is one conversation: a thread identifier, the generation settings
// chosen at construction, and the reasoning loop that carries the history.
// Submissions are serialized; a Submit while a turn is in flight is rejected
// with ErrBusy rather than queued.
type Session struct {
	id           uuid.UUID
	systemPrompt string
	temperature  float64
	loop         *Controller
	logger       log.Logger

	mu sync.Mutex
}

// SessionConfig collects the construction parameters for a Session.
type SessionConfig struct {
	Controller   *Controller
	SystemPrompt string
	Temperature  float64
	Logger       log.Logger
}

// NewSession creates a conversation with a fresh thread identifier.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	id := uuid.New()
	return &Session{
		id:           id,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		loop:         cfg.Controller,
		logger:       logger.With("thread_id", id.String()),
	}
}

// ThreadID returns the session's stable identifier.
func (s *Session) ThreadID() uuid.UUID { return s.id }

// Temperature returns the sampling temperature the session was built with.
func (s *Session) Temperature() float64 { return s.temperature }

// SystemPrompt returns the system prompt the session was built with.
func (s *Session) SystemPrompt() string { return s.systemPrompt }

// Submit runs one turn for query and returns its result. See SubmitStream
// for incremental output.
func (s *Session) Submit(ctx context.Context, query string) *TurnResult {
	return s.SubmitStream(ctx, query, nil)
}

// SubmitStream runs one turn, delivering assistant text fragments to onDelta
// as they arrive. Empty or whitespace-only queries are rejected before any
// model call. The returned TurnResult always has a displayable Answer.
func (s *Session) SubmitStream(ctx context.Context, query string, onDelta func(string)) *TurnResult {
	if strings.TrimSpace(query) == "" {
		return &TurnResult{Answer: "Please enter a message.", Err: ErrEmptyQuery}
	}
	if !s.mu.TryLock() {
		s.logger.Warn("submission rejected, turn in flight")
		return &TurnResult{Answer: "A response is still being generated; please wait.", Err: ErrBusy}
	}
	defer s.mu.Unlock()

	s.logger.Debug("turn started", "query_len", len(query))
	res := s.loop.RunTurn(ctx, query, onDelta)
	if res.Err != nil {
		s.logger.Warn("turn failed", "error", res.Err)
	}
	return res
}
