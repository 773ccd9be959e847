// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (MCPCHAT_* overrides)
//  2. Config file (~/.mcpchat/config.yaml, or ./config.yaml)
//  3. Default values
//
// Tool-server endpoints are configured separately in mcp_server.json (see mcp.go);
// that file keeps the original JSON shape so existing server definitions work as-is.
//
// Validation happens at load time (fail-fast) with sentinel errors for errors.Is()
// checks. The one exception is Temperature: an out-of-range value falls back to the
// default with a logged warning instead of failing, so a bad flag or stale config
// file never blocks the chat loop.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidRecursionLimit indicates the step budget is out of range.
	ErrInvalidRecursionLimit = errors.New("invalid recursion limit")

	// ErrInvalidTimeout indicates the turn timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

const (
	// DefaultTemperature is the model sampling temperature used when none is
	// configured or the configured value is out of the [0.0, 1.0] range.
	DefaultTemperature = 0.9

	// DefaultSystemPrompt is used when no system prompt is configured.
	DefaultSystemPrompt = "You are a helpful AI assistant capable of using tools."

	// DefaultRecursionLimit is the maximum number of tool-dispatch hops per turn.
	DefaultRecursionLimit = 100

	// DefaultTurnTimeout is the wall-clock budget for one complete turn.
	DefaultTurnTimeout = 5 * time.Minute

	// DefaultServerConfigPath is where tool-server definitions are read from.
	DefaultServerConfigPath = "mcp_server.json"
)

// Config stores application configuration.
type Config struct {
	// Model configuration
	ModelName   string  `mapstructure:"model_name"`
	OllamaHost  string  `mapstructure:"ollama_host"`
	Temperature float64 `mapstructure:"temperature"`

	// Conversation configuration
	SystemPrompt       string `mapstructure:"system_prompt"`
	RecursionLimit     int    `mapstructure:"recursion_limit"`
	TurnTimeoutSeconds int    `mapstructure:"turn_timeout_seconds"`

	// Tool-server configuration file (mcpServers JSON document)
	ServerConfigPath string `mapstructure:"server_config_path"`

	// Serve mode
	ServeAddr string `mapstructure:"serve_addr"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	// Configuration directory: ~/.mcpchat/
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".mcpchat"))
	}
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", "qwen2.5:14b")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("recursion_limit", DefaultRecursionLimit)
	v.SetDefault("turn_timeout_seconds", int(DefaultTurnTimeout/time.Second))
	v.SetDefault("server_config_path", DefaultServerConfigPath)
	v.SetDefault("serve_addr", "127.0.0.1:8100")
}

func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "MCPCHAT_MODEL_NAME")
	mustBind("ollama_host", "MCPCHAT_OLLAMA_HOST")
	mustBind("server_config_path", "MCPCHAT_SERVER_CONFIG")
	mustBind("serve_addr", "MCPCHAT_SERVE_ADDR")
}

// normalize folds out-of-range soft values back to defaults.
// Temperature is the only soft value: the CLI contract says an out-of-range
// temperature warns and falls back rather than failing.
func (c *Config) normalize() {
	if c.Temperature < 0.0 || c.Temperature > 1.0 {
		slog.Warn("temperature out of range, using default",
			"configured", c.Temperature,
			"default", DefaultTemperature)
		c.Temperature = DefaultTemperature
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
}

// Validate checks hard configuration constraints.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if c.OllamaHost == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidOllamaHost)
	}
	if c.RecursionLimit < 1 {
		return fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidRecursionLimit, c.RecursionLimit)
	}
	if c.TurnTimeoutSeconds < 1 {
		return fmt.Errorf("%w: must be >= 1s, got %ds", ErrInvalidTimeout, c.TurnTimeoutSeconds)
	}
	return nil
}

// TurnTimeout returns the wall-clock turn budget as a duration.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutSeconds) * time.Second
}

// FullModelName returns the provider-qualified model name for Genkit,
// e.g. "ollama/qwen2.5:14b".
func (c *Config) FullModelName() string {
	return "ollama/" + c.ModelName
}
