package internal

import (
	"io"

	"github.com/starford/beatsheet/internal/llm"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	completer llm.Completer
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithCompleter overrides the model backend built from the llm section.
func WithCompleter(c llm.Completer) Option {
	return func(a *application) {
		a.completer = c
	}
}

// WithLogOutput sends structured logs to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
