package cmd

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kyungsub/mcpchat/internal/agent"
	"github.com/kyungsub/mcpchat/internal/app"
	"github.com/kyungsub/mcpchat/internal/config"
	"github.com/kyungsub/mcpchat/internal/log"
)

// chatOptions holds the flag-adjustable settings for one chat run.
type chatOptions struct {
	temperature  float64
	systemPrompt string
	timeoutSecs  int
	showTools    bool
}

// executeChat parses chat flags and runs the interactive loop.
func executeChat(args []string) error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Flag defaults come from configuration so either source works.
	opts := chatOptions{}
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.Float64Var(&opts.temperature, "temp", cfg.Temperature, "sampling temperature, 0.0 to 1.0")
	fs.StringVar(&opts.systemPrompt, "system-prompt", cfg.SystemPrompt, "system prompt for the conversation")
	fs.IntVar(&opts.timeoutSecs, "timeout", cfg.TurnTimeoutSeconds, "per-turn timeout in seconds")
	fs.BoolVar(&opts.showTools, "show-tools", false, "print tool activity after each answer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.temperature < 0.0 || opts.temperature > 1.0 {
		logger.Warn("temperature out of range, using default",
			"configured", opts.temperature, "default", config.DefaultTemperature)
		opts.temperature = config.DefaultTemperature
	}
	if opts.timeoutSecs < 1 {
		return fmt.Errorf("%w: --timeout must be >= 1s", config.ErrInvalidTimeout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runChat(ctx, cfg, opts, logger)
}

// runChat initializes the application and drives the read-eval-print loop
// until the user leaves or the context is cancelled. Both paths are a normal
// exit, not an error.
func runChat(ctx context.Context, cfg *config.Config, opts chatOptions, logger log.Logger) error {
	fmt.Println("Initializing...")
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	session := a.NewSession(app.SessionOptions{
		Temperature:    opts.temperature,
		SystemPrompt:   opts.systemPrompt,
		Timeout:        time.Duration(opts.timeoutSecs) * time.Second,
		RecursionLimit: cfg.RecursionLimit,
	})

	fmt.Printf("Model: %s\n", cfg.FullModelName())
	if names := a.ToolNames(); len(names) > 0 {
		fmt.Printf("Tools: %s\n", strings.Join(names, ", "))
	} else {
		fmt.Println("Tools: none")
	}
	fmt.Println(`Type "quit", "exit" or "bye" to leave.`)
	fmt.Println()

	// Reading stdin in a goroutine lets the prompt loop also notice
	// context cancellation from SIGINT.
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println("\nBye.")
			return nil
		case line, ok := <-lines:
			if !ok {
				// EOF, or a scanner error worth reporting.
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				fmt.Println("\nBye.")
				return nil
			}
			if isExitCommand(line) {
				fmt.Println("Bye.")
				return nil
			}
			runTurn(ctx, session, line, opts.showTools)
		}
	}
}

// runTurn submits one query and renders the result. Failures are displayed,
// never fatal: the loop continues with the next prompt.
func runTurn(ctx context.Context, session *agent.Session, query string, showTools bool) {
	var streamed int
	res := session.SubmitStream(ctx, query, func(delta string) {
		streamed += len(delta)
		fmt.Print(delta)
	})
	if streamed == 0 {
		fmt.Print(res.Answer)
	}
	fmt.Println()

	if showTools {
		for _, inv := range res.ToolTrace {
			if inv.ErrText != "" {
				fmt.Printf("Tool Used: %s (error: %s)\n", inv.Tool, inv.ErrText)
				continue
			}
			fmt.Printf("Tool Used: %s\n", inv.Tool)
		}
	}
	fmt.Println()
}

// isExitCommand reports whether the input asks to leave the chat.
func isExitCommand(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit", "bye":
		return true
	}
	return false
}
