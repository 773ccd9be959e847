// Package api provides the HTTP chat surface for mcpchat.
//
// Endpoints:
//
//	GET  /           chat form page
//	POST /api/chat   run one turn on the shared conversation
//	GET  /api/tools  list discovered tools
//	GET  /health     liveness probe
//	GET  /ready      readiness probe (initialization state)
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: probe endpoints
//   - chat.go: chat and tool-list endpoints
//   - page.go: embedded chat form page
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kyungsub/mcpchat/internal/agent"
	"github.com/kyungsub/mcpchat/internal/app"
	"github.com/kyungsub/mcpchat/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8100"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response. Turns
	// can run for minutes, so this tracks the turn budget rather than a
	// typical request.
	WriteTimeout = 6 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Backend is what the HTTP layer needs from the application. The serve
// command implements it over App and InitState; tests substitute fakes.
type Backend interface {
	// Phase reports initialization progress; the error is the failure
	// reason when the phase is PhaseFailed.
	Phase() (app.Phase, error)
	// WaitReady blocks until initialization settles or ctx expires. It
	// returns nil once the backend is ready and the failure reason when
	// startup failed.
	WaitReady(ctx context.Context) error
	// Submit runs one turn on the server's shared conversation.
	Submit(ctx context.Context, query string) *agent.TurnResult
	// ToolNames lists the discovered tools.
	ToolNames() []string
}

// Server is the HTTP server for the chat form and its JSON API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(backend Backend, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{mux: mux, logger: logger}

	health := &HealthHandler{backend: backend, logger: logger}
	health.RegisterRoutes(mux)

	chat := &ChatHandler{backend: backend, logger: logger}
	chat.RegisterRoutes(mux)

	mux.HandleFunc("GET /", servePage)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery first, then logging.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
