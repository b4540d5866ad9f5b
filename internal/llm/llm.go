// Package llm provides the model-call collaborators used for outline generation.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/starford/beatsheet/internal/apperr"
)

// Providers.
const (
	ProviderRelay     = "relay"
	ProviderAnthropic = "anthropic"
)

// Completer executes a prompt and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider    string
	RelayURL    string
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// New builds the completer named by cfg.Provider.
func New(cfg Config) (Completer, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case ProviderRelay, "":
		return NewRelayClient(cfg.RelayURL, client), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, client)
	}
	return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
}

func callError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrModelCall, fmt.Sprintf(format, args...))
}
