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

	"github.com/figlinq/contents-gateway/internal/api"
	"github.com/figlinq/contents-gateway/internal/contents"
	"github.com/figlinq/contents-gateway/internal/credentials"
	"github.com/figlinq/contents-gateway/internal/figlinq"
	"github.com/figlinq/contents-gateway/internal/mcpserver"
	"github.com/figlinq/contents-gateway/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. In MCP mode stdout belongs to the
	// protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("figlinq_base_url", cfg.Figlinq.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Resolve initial credentials: file takes precedence over static config.
	apiKey, csrfToken := cfg.Figlinq.APIKey, cfg.Figlinq.CSRFToken
	if cfg.Figlinq.CredentialsFile != "" {
		creds, err := credentials.Load(cfg.Figlinq.CredentialsFile)
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}
		apiKey, csrfToken = creds.APIKey, creds.CSRFToken
	}

	// Remote API client.
	client := figlinq.NewClient(figlinq.Config{
		BaseURL:   cfg.Figlinq.BaseURL,
		APIKey:    apiKey,
		CSRFToken: csrfToken,
		Timeout:   cfg.Figlinq.Timeout,
	})

	// SSE broker carries the fileChanged stream to UI clients.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// The adapter: content-provider contract over the remote API.
	provider := contents.NewRemote(client, contents.WithNotifier(broker.PublishChange))
	defer provider.Dispose()

	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(provider).ServeStdio()
	}

	// Build API router.
	apiRouter := api.NewRouter(provider, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Hot-reload credentials when the file changes.
	if cfg.Figlinq.CredentialsFile != "" {
		g.Go(func() error {
			return credentials.Watch(gCtx, cfg.Figlinq.CredentialsFile, logger, func(creds credentials.Credentials) {
				client.SetCredentials(creds.APIKey, creds.CSRFToken)
			})
		})
	}

	// Start HTTP server.
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
