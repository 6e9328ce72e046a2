package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/engineio/internal/config"
	"github.com/vango-dev/engineio/pkg/middleware"
	"github.com/vango-dev/engineio/pkg/server"
)

func serveCmd() *cobra.Command {
	cfg, loadErr := config.Load()
	if cfg == nil {
		cfg = &config.Config{}
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Engine.IO echo server",
		Long: `Run an Engine.IO server with the echo application.

Settings come from ENGINEIO_* environment variables and can be
overridden with flags.

Examples:
  engineio serve
  engineio serve --addr=:3000 --path=/socket
  ENGINEIO_LOG_LEVEL=debug engineio serve --allow-upgrades=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	bindFlags(cmd.Flags(), cfg)
	return cmd
}

// app is the assembled HTTP surface of the serve command.
type app struct {
	router http.Handler
	eio    *server.Server
}

func newApp(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eio := server.New(cfg.ToServerConfig(logger))
	registerEcho(eio, logger)

	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))
	metrics.InstrumentSessions(eio.Sessions())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "ok sessions=%d\n", eio.Stats().Active)
	})
	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	eio.Attach(r.With(metrics.Handler, middleware.OpenTelemetry()), cfg.Path)

	return &app{router: r, eio: eio}, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(cfg, logger, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: a.router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "path", cfg.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// http.Server.Shutdown does not track hijacked WebSocket connections.
	if err := a.eio.Shutdown(shutdownCtx); err != nil {
		logger.Warn("engine.io shutdown", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}
