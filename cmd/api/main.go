// Package main is the entry point for the growthwatch API server.
//
// It loads configuration, resolves the reference tables (embedded, file or
// remote bundle), builds the interpretation engine and mounts the /v1/growth
// routes on the core chassis. Outside local mode request latency is published
// to CloudWatch.
//
// SIGINT and SIGTERM trigger a graceful shutdown.
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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/go-chi/chi/v5"

	"growthwatch/internal/api/handlers"
	"growthwatch/internal/assessment"
	"growthwatch/internal/config"
	"growthwatch/internal/core"
	"growthwatch/internal/external"
	"growthwatch/internal/growth"
	"growthwatch/internal/reference"
	"growthwatch/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("growthwatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.String(),
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	metrics, err := newMetrics(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv, err := buildServer(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	return runHTTPServer(srv, cfg, logger)
}

// newMetrics returns the CloudWatch request recorder, or nil in local mode.
// The recorder is flushed by core.Server.Shutdown.
func newMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.MetricsCollector, error) {
	if cfg.IsLocal() {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	cw := telemetry.NewCloudWatchMetrics(client, cfg.Observability.MetricNamespace, logger)
	return telemetry.NewRequestMetrics(cw, telemetry.WithFlushInterval(cfg.Observability.MetricFlushInterval)), nil
}

// buildServer resolves the reference tables and wires the growth routes.
// metrics may be nil.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics core.MetricsCollector) (*core.Server, error) {
	loadCtx, cancel := context.WithTimeout(ctx, cfg.Reference.FetchTimeout+5*time.Second)
	defer cancel()

	store, err := reference.Load(loadCtx, reference.Options{
		Path:    cfg.Reference.Path,
		URL:     cfg.Reference.URL,
		Fetcher: external.FetcherFor(cfg.IsLocal(), cfg.Reference.FetchTimeout, "growthwatch/"+cfg.Build.Version),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading reference tables: %w", err)
	}

	engine := growth.NewEngine(store, logger)
	service := assessment.NewService(engine, assessment.Options{
		BatchMaxItems:    cfg.Batch.MaxItems,
		BatchConcurrency: cfg.Batch.Concurrency,
	}, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	if metrics != nil {
		srv.Metrics = metrics
	}

	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
		ProbeName: "reference_tables",
		Fn: func(ctx context.Context) error {
			if len(store.Summaries()) == 0 {
				return errors.New("no reference tables loaded")
			}
			return nil
		},
	})

	growthHandler := handlers.NewGrowthHandler(service, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Route("/growth", growthHandler.RegisterRoutes)
	})

	srv.MountRoutes()
	return srv, nil
}

const shutdownGrace = 10 * time.Second

// runHTTPServer serves until SIGINT or SIGTERM, then drains in-flight
// requests for up to shutdownGrace.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		listenErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("draining HTTP connections", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newLogger returns a JSON logger on stdout. Unknown level names fall back
// to info.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
