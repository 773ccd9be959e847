package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitStateLifecycle(t *testing.T) {
	s := NewInitState()

	phase, reason := s.Phase()
	assert.Equal(t, PhaseNotStarted, phase)
	assert.NoError(t, reason)

	require.NoError(t, s.Begin())
	phase, _ = s.Phase()
	assert.Equal(t, PhaseInProgress, phase)

	s.Ready()
	phase, reason = s.Phase()
	assert.Equal(t, PhaseReady, phase)
	assert.NoError(t, reason)
}

func TestInitStateFailureRetainsReason(t *testing.T) {
	s := NewInitState()
	require.NoError(t, s.Begin())

	cause := errors.New("model server unreachable")
	s.Fail(cause)

	phase, reason := s.Phase()
	assert.Equal(t, PhaseFailed, phase)
	assert.ErrorIs(t, reason, cause)
}

func TestInitStateBeginRejectsConcurrentAttempt(t *testing.T) {
	s := NewInitState()
	require.NoError(t, s.Begin())
	assert.ErrorIs(t, s.Begin(), ErrInitInProgress)
}

func TestInitStateRetryAfterFailure(t *testing.T) {
	s := NewInitState()
	require.NoError(t, s.Begin())
	s.Fail(errors.New("first attempt"))

	require.NoError(t, s.Begin())
	s.Ready()

	phase, reason := s.Phase()
	assert.Equal(t, PhaseReady, phase)
	assert.NoError(t, reason)
}

func TestInitStateSettleIsWriteOncePerAttempt(t *testing.T) {
	s := NewInitState()
	require.NoError(t, s.Begin())
	s.Ready()
	// A late failure report must not overwrite the settled state.
	s.Fail(errors.New("straggler"))

	phase, reason := s.Phase()
	assert.Equal(t, PhaseReady, phase)
	assert.NoError(t, reason)
}

func TestInitStateWaitBlocksUntilSettled(t *testing.T) {
	s := NewInitState()
	require.NoError(t, s.Begin())

	done := make(chan error, 1)
	go func() {
		done <- s.Wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before the attempt settled")
	case <-time.After(20 * time.Millisecond):
	}

	s.Ready()
	require.NoError(t, <-done)
}

func TestInitStateWaitHonorsContext(t *testing.T) {
	s := NewInitState()
	require.NoError(t, s.Begin())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	s.Ready()
}

func TestInitStateWaitAfterFailureReturnsReason(t *testing.T) {
	s := NewInitState()
	require.NoError(t, s.Begin())
	cause := errors.New("discovery failed")
	s.Fail(cause)

	assert.ErrorIs(t, s.Wait(context.Background()), cause)
}
