package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kyungsub/mcpchat/internal/agent"
	"github.com/kyungsub/mcpchat/internal/app"
	"github.com/kyungsub/mcpchat/internal/log"
)

// ChatHandler handles the chat and tool-list endpoints.
type ChatHandler struct {
	backend Backend
	logger  log.Logger
}

// ChatRequest is the POST /api/chat request body.
type ChatRequest struct {
	Query            string `json:"query"`
	ShowToolActivity bool   `json:"show_tool_activity,omitempty"`
}

// ChatResponse is the POST /api/chat response body. Error is set when the
// turn failed; Answer still carries a displayable message in that case.
// ToolsUsed lists the distinct tool names in first-use order; ToolActivity
// carries the full trace and is opt-in via the request flag.
type ChatResponse struct {
	Answer       string                 `json:"answer"`
	ToolsUsed    []string               `json:"tools_used,omitempty"`
	ToolActivity []agent.ToolInvocation `json:"tool_activity,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// ToolsResponse is the GET /api/tools response body.
type ToolsResponse struct {
	Tools []string `json:"tools"`
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
	mux.HandleFunc("GET /api/tools", h.tools)
}

// readyWait is how long a chat request waits for a still-starting backend
// to settle before answering 503.
const readyWait = 2 * time.Second

// chat runs one turn on the shared conversation. Requests that arrive while
// initialization is still running wait briefly for it to settle; after that
// they get 503 with the current phase, so the form can poll instead of
// hanging.
func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	phase, reason := h.backend.Phase()
	if phase == app.PhaseNotStarted || phase == app.PhaseInProgress {
		waitCtx, cancel := context.WithTimeout(r.Context(), readyWait)
		_ = h.backend.WaitReady(waitCtx)
		cancel()
		phase, reason = h.backend.Phase()
	}
	switch phase {
	case app.PhaseReady:
	case app.PhaseFailed:
		writeError(w, http.StatusServiceUnavailable, "initialization_failed", reason.Error())
		return
	default:
		w.Header().Set("Retry-After", "2")
		writeError(w, http.StatusServiceUnavailable, "initializing", "the assistant is still starting up")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a query field")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "empty_query", "query must not be empty")
		return
	}

	res := h.backend.Submit(r.Context(), req.Query)

	resp := ChatResponse{Answer: res.Answer, ToolsUsed: distinctTools(res.ToolTrace)}
	if req.ShowToolActivity {
		resp.ToolActivity = res.ToolTrace
	}
	switch {
	case res.Err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(res.Err, agent.ErrBusy):
		writeError(w, http.StatusConflict, "busy", res.Answer)
	case errors.Is(res.Err, agent.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "empty_query", res.Answer)
	default:
		// Budget, timeout and model failures render in the form like any
		// other reply, with the error tagged for programmatic callers.
		h.logger.Warn("chat turn failed", "error", res.Err)
		resp.Error = res.Err.Error()
		writeJSON(w, http.StatusOK, resp)
	}
}

// distinctTools collapses a trace to tool names in first-use order.
func distinctTools(trace []agent.ToolInvocation) []string {
	var names []string
	seen := make(map[string]bool, len(trace))
	for _, inv := range trace {
		if seen[inv.Tool] {
			continue
		}
		seen[inv.Tool] = true
		names = append(names, inv.Tool)
	}
	return names
}

// tools lists the discovered tools.
func (h *ChatHandler) tools(w http.ResponseWriter, _ *http.Request) {
	names := h.backend.ToolNames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, ToolsResponse{Tools: names})
}
