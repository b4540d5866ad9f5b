// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/beatsheet/internal/api"
	"github.com/starford/beatsheet/internal/export"
	"github.com/starford/beatsheet/internal/index"
	"github.com/starford/beatsheet/internal/llm"
	"github.com/starford/beatsheet/internal/mcpserver"
	"github.com/starford/beatsheet/internal/metrics"
	"github.com/starford/beatsheet/internal/outline"
	"github.com/starford/beatsheet/internal/outlineservice"
	"github.com/starford/beatsheet/internal/relay"
	"github.com/starford/beatsheet/internal/sse"
	"github.com/starford/beatsheet/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger installs the structured JSON logger as the default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *application) model() (llm.Completer, error) {
	if a.completer != nil {
		return a.completer, nil
	}
	c, err := llm.New(a.config.LLM.Client())
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}
	return c, nil
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.Int("beats_per_act", cfg.Outline.BeatsPerAct),
		slog.String("export_dir", cfg.Export.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	completer, err := app.model()
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	ctx, stop := withSignals(ctx, logger)
	defer stop()

	svcOpts := []outlineservice.Option{
		outlineservice.WithPublisher(broker),
		outlineservice.WithSessionOptions(cfg.Outline.SessionOptions()...),
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Optional export archive.
	if cfg.Export.Enabled() {
		store, err := storage.NewFS(cfg.Export.Dir)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		db, err := index.Open(cfg.Export.SQLitePath)
		if err != nil {
			return fmt.Errorf("init index: %w", err)
		}
		defer db.Close()

		if err := index.Sync(db, store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		svcOpts = append(svcOpts, outlineservice.WithArchive(export.NewArchive(store, db)))

		g.Go(func() error {
			if err := index.Watch(gCtx, db, store, store.Root(), logger, broker.PublishExportEvent); err != nil {
				logger.Warn("export watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	svc := outlineservice.NewService(completer, svcOpts...)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, svc, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))
	g.Go(func() error {
		return listen(logger, httpServer)
	})
	g.Go(func() error {
		return shutdownOnDone(gCtx, logger, httpServer)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// newHTTPHandler builds the root router: health, metrics and the API under /api.
func newHTTPHandler(cfg *Config, svc *outlineservice.Service, events http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", healthOK)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))
	return r
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// RunRelay serves the demo story relay until ctx ends or a signal arrives.
func RunRelay(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", relay.NewServer().Router())

	ctx, stop := withSignals(ctx, logger)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Relay.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting relay server", slog.String("address", cfg.Relay.Address()))
		return listen(logger, srv)
	})
	g.Go(func() error {
		return shutdownOnDone(gCtx, logger, srv)
	})
	return g.Wait()
}

// RunMCP serves the outline tools over stdio. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	completer, err := app.model()
	if err != nil {
		return err
	}
	svc := outlineservice.NewService(completer,
		outlineservice.WithSessionOptions(app.config.Outline.SessionOptions()...))

	srv, err := mcpserver.New(ctx, svc)
	if err != nil {
		return err
	}
	logger.Info("MCP server starting", slog.String("session", srv.SessionID()))
	return srv.ServeStdio()
}

// Generate runs one full generation outside any server.
func Generate(ctx context.Context, brief outline.Brief, opts ...Option) (outline.Outline, error) {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return outline.Outline{}, err
	}
	app.logger()

	completer, err := app.model()
	if err != nil {
		return outline.Outline{}, err
	}
	sess := outline.NewSession(completer, app.config.Outline.SessionOptions()...)
	started := time.Now()
	err = sess.Generate(ctx, brief)
	metrics.RecordGeneration(outline.ModeGenerate.String(), started, err)
	if err != nil {
		return outline.Outline{}, err
	}
	return sess.Current(), nil
}

func listen(logger *slog.Logger, srv *http.Server) error {
	logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// shutdownOnDone stops srv once ctx ends.
func shutdownOnDone(ctx context.Context, logger *slog.Logger, srv *http.Server) error {
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}
	return nil
}

// withSignals cancels the returned context on SIGINT or SIGTERM.
func withSignals(ctx context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Context cancelled, initiating shutdown")
	}()
	return ctx, stop
}
