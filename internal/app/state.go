package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Phase is the application's initialization phase.
type Phase int

const (
	// PhaseNotStarted means initialization has not begun.
	PhaseNotStarted Phase = iota
	// PhaseInProgress means initialization is running.
	PhaseInProgress
	// PhaseReady means initialization completed and sessions can be served.
	PhaseReady
	// PhaseFailed means initialization aborted; the reason is retained.
	PhaseFailed
)

// String implements fmt.Stringer for log and status output.
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseInProgress:
		return "in_progress"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrInitInProgress is returned by Begin when an attempt is already running.
var ErrInitInProgress = errors.New("initialization already in progress")

// InitState tracks startup as an explicit state machine instead of a pair of
// boolean flags, so "not started", "starting", "ready" and "failed with this
// reason" are distinct observable states. A failed attempt can be retried;
// each attempt settles exactly once.
type InitState struct {
	mu     sync.Mutex
	phase  Phase
	reason error
	done   chan struct{}
}

// NewInitState returns a state machine in PhaseNotStarted.
func NewInitState() *InitState {
	return &InitState{phase: PhaseNotStarted}
}

// Begin marks an initialization attempt as running. Only one attempt runs at
// a time; a new attempt is allowed from PhaseNotStarted or PhaseFailed.
func (s *InitState) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case PhaseInProgress:
		return ErrInitInProgress
	case PhaseReady:
		return errors.New("already initialized")
	}
	s.phase = PhaseInProgress
	s.reason = nil
	s.done = make(chan struct{})
	return nil
}

// Ready settles the running attempt as successful.
func (s *InitState) Ready() {
	s.settle(PhaseReady, nil)
}

// Fail settles the running attempt with its reason.
func (s *InitState) Fail(reason error) {
	s.settle(PhaseFailed, reason)
}

func (s *InitState) settle(phase Phase, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInProgress {
		return
	}
	s.phase = phase
	s.reason = reason
	close(s.done)
}

// Phase reports the current phase and, for PhaseFailed, the reason.
func (s *InitState) Phase() (Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase, s.reason
}

// Wait blocks until the running attempt settles or ctx expires. It returns
// nil when the attempt succeeded and the failure reason when it did not.
// Calling Wait before Begin reports the current phase immediately.
func (s *InitState) Wait(ctx context.Context) error {
	s.mu.Lock()
	phase, reason, done := s.phase, s.reason, s.done
	s.mu.Unlock()

	switch phase {
	case PhaseReady:
		return nil
	case PhaseFailed:
		return reason
	case PhaseNotStarted:
		return errors.New("initialization not started")
	}

	select {
	case <-done:
		_, reason := s.Phase()
		return reason
	case <-ctx.Done():
		return ctx.Err()
	}
}
