package agent

import (
	"context"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gateModel blocks Generate until release is closed, so tests can hold a
// turn in flight deterministically.
type gateModel struct {
	started chan struct{}
	release chan struct{}
	calls   int
}

func (m *gateModel) Generate(ctx context.Context, _ ModelRequest) (*ai.ModelResponse, error) {
	m.calls++
	close(m.started)
	select {
	case <-m.release:
		return textResponse("done"), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestSession(model Model) *Session {
	ctrl := NewController(model, &fakeInvoker{}, 100, time.Minute, nil)
	return NewSession(SessionConfig{
		Controller:   ctrl,
		SystemPrompt: "You are a helpful AI assistant capable of using tools.",
		Temperature:  0.9,
	})
}

func TestSubmitRejectsEmptyQuery(t *testing.T) {
	model := &fakeModel{script: []*ai.ModelResponse{textResponse("unused")}}
	sess := newTestSession(model)

	for _, query := range []string{"", "   ", "\n\t "} {
		res := sess.Submit(context.Background(), query)
		require.ErrorIs(t, res.Err, ErrEmptyQuery)
		assert.NotEmpty(t, res.Answer)
	}
	assert.Equal(t, 0, model.calls, "validation failures must not reach the model")
}

func TestSubmitWhileBusyRejected(t *testing.T) {
	model := &gateModel{started: make(chan struct{}), release: make(chan struct{})}
	sess := newTestSession(model)

	first := make(chan *TurnResult)
	go func() {
		first <- sess.Submit(context.Background(), "slow question")
	}()
	<-model.started

	res := sess.Submit(context.Background(), "impatient question")
	require.ErrorIs(t, res.Err, ErrBusy)

	close(model.release)
	require.NoError(t, (<-first).Err)
	assert.Equal(t, 1, model.calls, "the rejected submission must not start a turn")
}

func TestSubmitAfterCompletionSucceeds(t *testing.T) {
	model := &fakeModel{script: []*ai.ModelResponse{textResponse("first"), textResponse("second")}}
	sess := newTestSession(model)

	res := sess.Submit(context.Background(), "one")
	require.NoError(t, res.Err)
	assert.Equal(t, "first", res.Answer)

	res = sess.Submit(context.Background(), "two")
	require.NoError(t, res.Err)
	assert.Equal(t, "second", res.Answer)
}

func TestSessionsHaveDistinctThreadIDs(t *testing.T) {
	a := newTestSession(&fakeModel{script: []*ai.ModelResponse{textResponse("x")}})
	b := newTestSession(&fakeModel{script: []*ai.ModelResponse{textResponse("x")}})
	assert.NotEqual(t, a.ThreadID(), b.ThreadID())
}

func TestSessionExposesGenerationSettings(t *testing.T) {
	sess := newTestSession(&fakeModel{script: []*ai.ModelResponse{textResponse("x")}})
	assert.InDelta(t, 0.9, sess.Temperature(), 1e-9)
	assert.Equal(t, "You are a helpful AI assistant capable of using tools.", sess.SystemPrompt())
}
