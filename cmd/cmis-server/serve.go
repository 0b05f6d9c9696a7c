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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-cmis/pkg/cmis/api"
	"github.com/tendant/simple-cmis/pkg/cmis/config"
	"github.com/tendant/simple-cmis/pkg/cmis/metrics"
	"github.com/tendant/simple-cmis/pkg/cmis/service"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the repository HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []config.Option
			if port != "" {
				opts = append(opts, config.WithPort(port))
			}
			cfg, err := loadConfig(cmd, opts...)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides CMIS_PORT)")

	return cmd
}

func serve(cfg *config.ServerConfig) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	opts := []service.Option{service.WithLogger(logger)}
	if cfg.MetricsEnabled {
		metrics.InitRegistry()
		opts = append(opts, service.WithMetrics(metrics.NewServiceMetrics(metrics.GetRegistry())))
	}

	svc, closeFn, err := cfg.BuildService(opts...)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Error("Failed to close change log", "error", err)
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{
			"status":      "healthy",
			"environment": cfg.Environment,
		})
	})
	if metrics.IsEnabled() {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}
	r.Mount("/api/v1", api.NewHandler(svc, logger).Routes())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Simple CMIS server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"repository", cfg.RepositoryName,
			"change_log", cfg.ChangeLog,
			"metrics", cfg.MetricsEnabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}
