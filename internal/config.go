package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/beatsheet/internal/llm"
	"github.com/starford/beatsheet/internal/outline"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	LLM     LLMConfig         `yaml:"llm"`
	Outline OutlineConfig     `yaml:"outline"`
	Export  ExportConfig      `yaml:"export"`
	Auth    AuthConfig        `yaml:"auth"`
	Relay   RelayConfig       `yaml:"relay"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Outline.Validate(); err != nil {
		return fmt.Errorf("outline: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := c.Relay.Validate(); err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LLMConfig selects the model backend.
//
// Provider "relay" calls the story-relay receive_result method at RelayURL.
// Provider "anthropic" calls the Messages API and needs APIKey.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	RelayURL    string        `yaml:"relay_url"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(llm.ProviderRelay, llm.ProviderAnthropic)),
		validation.Field(&c.RelayURL,
			validation.When(c.Provider == llm.ProviderRelay, validation.Required),
			is.RequestURL),
		validation.Field(&c.BaseURL, is.RequestURL),
		validation.Field(&c.APIKey, validation.When(c.Provider == llm.ProviderAnthropic, validation.Required)),
		validation.Field(&c.MaxTokens, validation.Min(0)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Client converts the section into llm.Config.
func (c *LLMConfig) Client() llm.Config {
	return llm.Config{
		Provider:    c.Provider,
		RelayURL:    c.RelayURL,
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

// OutlineConfig holds session defaults.
type OutlineConfig struct {
	BeatsPerAct   int  `yaml:"beats_per_act"`
	DefaultActOne bool `yaml:"default_act_one"`
	// HistoryLimit caps saved versions per session; 0 keeps all.
	HistoryLimit int `yaml:"history_limit"`
}

// Validate validates the outline configuration.
func (c *OutlineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BeatsPerAct, validation.Required,
			validation.Min(outline.MinBeatsPerAct), validation.Max(outline.MaxBeatsPerAct)),
		validation.Field(&c.HistoryLimit, validation.Min(0)),
	)
}

// SessionOptions converts the section into session options.
func (c *OutlineConfig) SessionOptions() []outline.SessionOption {
	return []outline.SessionOption{
		outline.WithDefaultBeats(c.BeatsPerAct),
		outline.WithDefaultActOne(c.DefaultActOne),
		outline.WithHistoryLimit(c.HistoryLimit),
	}
}

// ExportConfig holds the export archive location. An empty Dir disables archiving.
type ExportConfig struct {
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.When(c.Dir != "", validation.Required)),
	)
}

// Enabled reports whether exports are archived.
func (c *ExportConfig) Enabled() bool {
	return c.Dir != ""
}

// RelayConfig holds the demo relay server configuration.
type RelayConfig struct {
	Port int `yaml:"port"`
}

// Address returns the relay listen address.
func (c *RelayConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the relay configuration.
func (c *RelayConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		LLM: LLMConfig{
			Provider:    llm.ProviderRelay,
			RelayURL:    "http://localhost:8081",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Outline: OutlineConfig{
			BeatsPerAct: outline.DefaultBeatsPerAct,
		},
		Export: ExportConfig{
			SQLitePath: "./beatsheet.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Relay: RelayConfig{
			Port: 8081,
		},
	}
}
