package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/erazemk/holdfolio/internal/api"
	"github.com/erazemk/holdfolio/internal/observability"
	"github.com/erazemk/holdfolio/internal/store"
	"github.com/erazemk/holdfolio/internal/web"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the web UI and JSON API" }
func (*serveCmd) Usage() string {
	return `holdfolio [-config file] [-env file] [-log file] serve [-addr host:port]

  Serves the dashboard pages, the /api JSON endpoints and /metrics.
  The database is created and migrated on first start.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address (overrides server.addr)")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.close()

	if err := c.run(ctx, e); err != nil {
		slog.Error("server error", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *serveCmd) run(ctx context.Context, e *env) error {
	cfg := e.cfg
	if c.addr != "" {
		cfg.Server.Addr = c.addr
	}

	jwtSecret, err := store.ResolveJWTSecret(ctx, e.db, cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("resolving JWT secret: %w", err)
	}

	metrics, err := observability.New()
	if err != nil {
		return fmt.Errorf("setting up metrics: %w", err)
	}

	apiRouter := api.NewRouter(api.Config{
		DB:              e.db,
		JWTSecret:       jwtSecret,
		TokenTTL:        cfg.Auth.TokenTTL,
		AllowSignup:     cfg.Auth.AllowSignup,
		CORSOrigins:     cfg.Server.CORSOrigins,
		ImportMaxBytes:  cfg.Import.MaxBytes,
		ImportBatchSize: cfg.Import.BatchSize,
		DashboardDays:   cfg.Dashboard.Days,
		Metrics:         metrics,
	})
	webRouter, err := web.NewRouter(web.Config{
		DB:              e.db,
		JWTSecret:       jwtSecret,
		TokenTTL:        cfg.Auth.TokenTTL,
		AllowSignup:     cfg.Auth.AllowSignup,
		ImportMaxBytes:  cfg.Import.MaxBytes,
		ImportBatchSize: cfg.Import.BatchSize,
		DashboardDays:   cfg.Dashboard.Days,
		Metrics:         metrics,
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.LoggingMiddleware(metrics.Middleware(mux)),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.Server.Addr, "signup", cfg.Auth.AllowSignup)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
