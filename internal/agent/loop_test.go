package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel replays a script of responses. When the script runs out it
// repeats the last entry, which keeps pathological-loop tests simple.
type fakeModel struct {
	script []*ai.ModelResponse
	err    error
	calls  int
	stream bool
	block  bool
}

func (m *fakeModel) Generate(ctx context.Context, req ModelRequest) (*ai.ModelResponse, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls - 1
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	resp := m.script[i]
	if m.stream && req.Stream != nil {
		for _, part := range resp.Message.Content {
			if part.IsText() {
				chunk := &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart(part.Text)}}
				if err := req.Stream(ctx, chunk); err != nil {
					return nil, err
				}
			}
		}
	}
	return resp, nil
}

type fakeInvoker struct {
	out   map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeInvoker) Invoke(_ context.Context, tool string, _ map[string]any) (string, error) {
	f.calls = append(f.calls, tool)
	if err, ok := f.errs[tool]; ok {
		return "", err
	}
	return f.out[tool], nil
}

func textResponse(text string) *ai.ModelResponse {
	return &ai.ModelResponse{Message: &ai.Message{
		Role:    ai.RoleModel,
		Content: []*ai.Part{ai.NewTextPart(text)},
	}}
}

func toolRequestResponse(tool string, args map[string]any) *ai.ModelResponse {
	return &ai.ModelResponse{Message: &ai.Message{
		Role: ai.RoleModel,
		Content: []*ai.Part{ai.NewToolRequestPart(&ai.ToolRequest{
			Name:  tool,
			Input: args,
			Ref:   "ref-1",
		})},
	}}
}

func TestRunTurnAnswerWithoutTools(t *testing.T) {
	model := &fakeModel{script: []*ai.ModelResponse{textResponse("hello there")}}
	ctrl := NewController(model, &fakeInvoker{}, 100, time.Minute, nil)

	res := ctrl.RunTurn(context.Background(), "hi", nil)

	require.NoError(t, res.Err)
	assert.Equal(t, "hello there", res.Answer)
	assert.Empty(t, res.ToolTrace)
	assert.Equal(t, StateDone, ctrl.State())
	// user message plus model reply
	assert.Equal(t, 2, ctrl.HistoryLen())
	assert.Equal(t, 1, model.calls)
}

func TestRunTurnSingleToolRound(t *testing.T) {
	model := &fakeModel{script: []*ai.ModelResponse{
		toolRequestResponse("get_weather", map[string]any{"location": "Seoul"}),
		textResponse("It is sunny in Seoul."),
	}}
	inv := &fakeInvoker{out: map[string]string{"get_weather": "sunny, 24C"}}
	ctrl := NewController(model, inv, 100, time.Minute, nil)

	res := ctrl.RunTurn(context.Background(), "weather in seoul?", nil)

	require.NoError(t, res.Err)
	assert.Equal(t, "It is sunny in Seoul.", res.Answer)
	require.Len(t, res.ToolTrace, 1)
	assert.Equal(t, "get_weather", res.ToolTrace[0].Tool)
	assert.Equal(t, "sunny, 24C", res.ToolTrace[0].Result)
	assert.Equal(t, []string{"get_weather"}, inv.calls)
	// user, tool request, tool result, final answer
	assert.Equal(t, 4, ctrl.HistoryLen())
}

func TestRunTurnStreamsDeltas(t *testing.T) {
	model := &fakeModel{
		script: []*ai.ModelResponse{textResponse("streamed answer")},
		stream: true,
	}
	ctrl := NewController(model, &fakeInvoker{}, 100, time.Minute, nil)

	var deltas []string
	res := ctrl.RunTurn(context.Background(), "hi", func(d string) { deltas = append(deltas, d) })

	require.NoError(t, res.Err)
	assert.Equal(t, "streamed answer", res.Answer)
	assert.Equal(t, []string{"streamed answer"}, deltas)
}

func TestRunTurnToolErrorFedBackToModel(t *testing.T) {
	model := &fakeModel{script: []*ai.ModelResponse{
		toolRequestResponse("get_weather", map[string]any{"location": "Seoul"}),
		textResponse("The weather service is unavailable right now."),
	}}
	inv := &fakeInvoker{errs: map[string]error{"get_weather": errors.New("upstream returned 503")}}
	ctrl := NewController(model, inv, 100, time.Minute, nil)

	res := ctrl.RunTurn(context.Background(), "weather?", nil)

	require.NoError(t, res.Err, "a tool failure must not abort the turn")
	assert.Equal(t, "The weather service is unavailable right now.", res.Answer)
	require.Len(t, res.ToolTrace, 1)
	assert.Equal(t, "upstream returned 503", res.ToolTrace[0].ErrText)
	assert.Equal(t, StateDone, ctrl.State())
}

func TestRunTurnStepBudgetExhaustion(t *testing.T) {
	// The model requests the same tool forever.
	model := &fakeModel{script: []*ai.ModelResponse{
		toolRequestResponse("get_current_time", map[string]any{"timezone": "UTC"}),
	}}
	inv := &fakeInvoker{out: map[string]string{"get_current_time": "12:00"}}
	ctrl := NewController(model, inv, 3, time.Minute, nil)

	res := ctrl.RunTurn(context.Background(), "what time is it?", nil)

	require.ErrorIs(t, res.Err, ErrBudgetExceeded)
	assert.Equal(t, StateFailed, ctrl.State())
	assert.Len(t, inv.calls, 3, "dispatch stops at the configured limit")
	assert.Contains(t, res.Answer, "step budget")
}

func TestRunTurnTimeout(t *testing.T) {
	model := &fakeModel{block: true}
	ctrl := NewController(model, &fakeInvoker{}, 100, 20*time.Millisecond, nil)

	res := ctrl.RunTurn(context.Background(), "hi", nil)

	require.ErrorIs(t, res.Err, ErrTurnTimeout)
	assert.Equal(t, StateFailed, ctrl.State())
	assert.Empty(t, res.ToolTrace, "an aborted turn returns no partial transcript")
}

func TestRunTurnCancellation(t *testing.T) {
	model := &fakeModel{block: true}
	ctrl := NewController(model, &fakeInvoker{}, 100, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res := ctrl.RunTurn(ctx, "hi", nil)

	require.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, StateFailed, ctrl.State())
}

func TestRunTurnModelError(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	ctrl := NewController(model, &fakeInvoker{}, 100, time.Minute, nil)

	res := ctrl.RunTurn(context.Background(), "hi", nil)

	require.ErrorIs(t, res.Err, ErrModelInvocation)
	assert.Equal(t, StateFailed, ctrl.State())
	assert.NotEmpty(t, res.Answer, "a failed turn still carries a displayable answer")
	assert.Equal(t, 0, ctrl.HistoryLen(), "a failed first turn commits nothing")
}

func TestRunTurnStepCounterResetsPerTurn(t *testing.T) {
	model := &fakeModel{script: []*ai.ModelResponse{
		toolRequestResponse("get_current_time", nil),
		textResponse("noon"),
		toolRequestResponse("get_current_time", nil),
		textResponse("still noon"),
	}}
	inv := &fakeInvoker{out: map[string]string{"get_current_time": "12:00"}}
	ctrl := NewController(model, inv, 2, time.Minute, nil)

	res := ctrl.RunTurn(context.Background(), "time?", nil)
	require.NoError(t, res.Err)

	res = ctrl.RunTurn(context.Background(), "and now?", nil)
	require.NoError(t, res.Err, "the budget must reset between turns")
	assert.Equal(t, "still noon", res.Answer)
}

func TestRunTurnNoTextYieldsPlaceholder(t *testing.T) {
	resp := &ai.ModelResponse{Message: &ai.Message{Role: ai.RoleModel, Content: []*ai.Part{}}}
	model := &fakeModel{script: []*ai.ModelResponse{resp}}
	ctrl := NewController(model, &fakeInvoker{}, 100, time.Minute, nil)

	res := ctrl.RunTurn(context.Background(), "hi", nil)

	require.NoError(t, res.Err)
	assert.Equal(t, NoTextualResponse, res.Answer)
}
