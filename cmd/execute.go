// Package cmd contains the mcpchat entry points: the interactive chat loop,
// the HTTP serve mode, and the built-in MCP tool server.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kyungsub/mcpchat/internal/log"
)

// Execute is the main entry point for the mcpchat CLI.
//
// Design: Following the pattern used by kubectl, hugo, and other standard Go
// CLI tools, all application logic is contained in the cmd package, leaving
// main.go as a minimal entry point.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			return executeServe(os.Args[2:])
		case "tools":
			return executeTools()
		case "chat":
			return executeChat(os.Args[2:])
		}
	}

	// Interactive chat is the default mode.
	return executeChat(os.Args[1:])
}

// initLogger initializes the structured logger with appropriate log level.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
//
// Logs go to stderr: in chat mode stdout carries the conversation, and in
// tools mode stdout is reserved for JSON-RPC.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)
	return logger
}

// printHelp displays the help message for the mcpchat CLI.
func printHelp() {
	fmt.Println("mcpchat - chat with a local model that can use MCP tools")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mcpchat              Start interactive chat mode (default)")
	fmt.Println("  mcpchat chat         Start interactive chat mode")
	fmt.Println("  mcpchat serve        Serve the chat form over HTTP")
	fmt.Println("  mcpchat tools        Run the built-in MCP tool server (stdio)")
	fmt.Println("  mcpchat version      Show version information")
	fmt.Println("  mcpchat help         Show this help")
	fmt.Println()
	fmt.Println("Chat flags:")
	fmt.Println("  --temp float           Sampling temperature, 0.0 to 1.0")
	fmt.Println("  --system-prompt string System prompt for the conversation")
	fmt.Println("  --timeout int          Per-turn timeout in seconds")
	fmt.Println("  --show-tools           Print tool activity after each answer")
	fmt.Println()
	fmt.Println("Serve flags:")
	fmt.Println("  --addr string          Listen address (default from config)")
	fmt.Println()
	fmt.Println("Chat commands:")
	fmt.Println("  quit, exit, bye        Leave the chat")
	fmt.Println("  Ctrl+C                 Leave the chat")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  MCPCHAT_MODEL_NAME     Ollama model to chat with")
	fmt.Println("  MCPCHAT_OLLAMA_HOST    Ollama server address")
	fmt.Println("  MCPCHAT_SERVER_CONFIG  Path to mcp_server.json")
	fmt.Println("  MCPCHAT_SERVE_ADDR     Listen address for serve mode")
	fmt.Println("  DEBUG                  Enable debug logging")
}
