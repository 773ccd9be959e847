package cmd

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kyungsub/mcpchat/api"
	"github.com/kyungsub/mcpchat/internal/agent"
	"github.com/kyungsub/mcpchat/internal/app"
	"github.com/kyungsub/mcpchat/internal/config"
	"github.com/kyungsub/mcpchat/internal/log"
)

// executeServe starts the HTTP chat form server.
func executeServe(args []string) error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.ServeAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, *addr, logger)
}

// runServe starts the HTTP server immediately and initializes the
// application in the background, so the form page loads and shows progress
// instead of the browser spinning on a dead port.
func runServe(ctx context.Context, cfg *config.Config, addr string, logger log.Logger) error {
	backend := &serveBackend{state: app.NewInitState()}

	if err := backend.state.Begin(); err != nil {
		return err
	}
	go func() {
		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			logger.Error("initialization failed", "error", err)
			backend.state.Fail(err)
			return
		}
		backend.install(a)
		backend.state.Ready()
		logger.Info("initialization complete", "tools", a.ToolNames())
	}()
	defer backend.close(logger)

	return api.NewServer(backend, logger).Run(ctx, addr)
}

// serveBackend adapts the application to the HTTP layer. The form talks to
// one shared conversation, matching the single-thread chat page model.
type serveBackend struct {
	state *app.InitState

	mu      sync.Mutex
	app     *app.App
	session *agent.Session
}

// install publishes the initialized application. Called once, before the
// state settles to ready.
func (b *serveBackend) install(a *app.App) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.app = a
	b.session = a.NewSession(a.Defaults())
}

func (b *serveBackend) close(logger log.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app == nil {
		return
	}
	if err := b.app.Close(); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
}

// Phase implements api.Backend.
func (b *serveBackend) Phase() (app.Phase, error) {
	return b.state.Phase()
}

// WaitReady implements api.Backend.
func (b *serveBackend) WaitReady(ctx context.Context) error {
	return b.state.Wait(ctx)
}

// Submit implements api.Backend. Only reachable once the handler has seen
// PhaseReady, so the session is always installed here.
func (b *serveBackend) Submit(ctx context.Context, query string) *agent.TurnResult {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	return session.Submit(ctx, query)
}

// ToolNames implements api.Backend.
func (b *serveBackend) ToolNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app == nil {
		return nil
	}
	return b.app.ToolNames()
}
