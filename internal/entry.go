// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/fsdriver/internal/api"
	"github.com/starford/fsdriver/internal/catalog"
	"github.com/starford/fsdriver/internal/mcpserver"
	"github.com/starford/fsdriver/internal/objectservice"
	"github.com/starford/fsdriver/internal/sse"
	"github.com/starford/fsdriver/internal/storage"
)

// runtime holds the components shared by the HTTP and MCP front ends.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	driver  storage.Driver
	db      *catalog.DB // nil when the catalog is disabled
	version string
}

func (a *application) init(logOut io.Writer) (*runtime, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("provider", cfg.Store.Provider),
		slog.String("base_path", cfg.Store.BasePath),
		slog.Bool("catalog_enabled", cfg.Catalog.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	driver, err := storage.New(cfg.Store.Driver(logger))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, driver: driver, version: a.version}
	if rt.version == "" {
		rt.version = "dev"
	}

	if cfg.Catalog.Enabled {
		db, err := catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("init catalog: %w", err)
		}
		if err := catalog.Sync(db, driver, logger); err != nil {
			logger.Warn("initial catalog sync failed", slog.String("error", err.Error()))
		}
		rt.db = db
	}

	return rt, nil
}

func (rt *runtime) close() {
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

// index returns the catalog as an interface, nil when disabled.
func (rt *runtime) index() catalog.Index {
	if rt.db == nil {
		return nil
	}
	return rt.db
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	rt, err := app.init(os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	logger := rt.logger

	// SSE broker.
	broker := sse.NewBroker(rt.driver.Provider(), 2*time.Second)
	defer broker.Close()

	svc := objectservice.NewService(rt.driver, rt.index(), broker.Notify)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ok, err := rt.driver.ObjectExists(""); err != nil || !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the catalog in step with changes made outside the API.
	if fs, ok := rt.driver.(*storage.FS); ok && rt.db != nil && cfg.Catalog.Watch {
		g.Go(func() error {
			if err := catalog.Watch(gCtx, rt.db, rt.driver, fs.Root(), logger, broker.Notify); err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	rt, err := app.init(os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	svc := objectservice.NewService(rt.driver, rt.index(), nil)
	rt.logger.Info("Serving MCP on stdio", slog.String("provider", rt.driver.Provider()))
	return mcpserver.New(svc, rt.version).ServeStdio()
}
