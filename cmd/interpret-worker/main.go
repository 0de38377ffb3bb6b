// Package main is the entrypoint for the interpretation worker Lambda.
//
// The worker is triggered by SQS with InterpretMessages, interprets each
// measurement and publishes InterpretResultMessages to SQS_RESULTS_QUEUE.
// Failed messages are reported through partial batch responses.
//
// This file handles dependency wiring (cold start) and delegates all business
// logic to the internal/worker package.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"growthwatch/internal/assessment"
	"growthwatch/internal/config"
	"growthwatch/internal/external"
	"growthwatch/internal/growth"
	"growthwatch/internal/queue"
	"growthwatch/internal/reference"
	"growthwatch/internal/telemetry"
	"growthwatch/internal/types"
	"growthwatch/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.LogLevel)
	logger.Info("interpret worker initializing (cold start)",
		"environment", cfg.Environment,
		"version", cfg.Build.String(),
	)

	ctx := context.Background()
	h, err := buildHandler(ctx, cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("worker initialization failed", "error", err)
		os.Exit(1)
	}

	// Local mode: read one SQS event from stdin instead of starting the
	// Lambda runtime.
	// Usage: cat event.json | go run ./cmd/interpret-worker
	if cfg.IsLocal() {
		logger.Info("APP_ENV=local: reading SQS event from stdin")
		if err := runLocal(ctx, h, os.Stdin, logger); err != nil {
			logger.Error("handler execution failed", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(h.Handle)
}

// buildHandler wires the worker. Without a results queue in local mode the
// results are written to out as JSON lines.
func buildHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*worker.Handler, error) {
	store, err := reference.Load(ctx, reference.Options{
		Path:    cfg.Reference.Path,
		URL:     cfg.Reference.URL,
		Fetcher: external.FetcherFor(cfg.IsLocal(), cfg.Reference.FetchTimeout, "growthwatch-worker/"+cfg.Build.Version),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading reference tables: %w", err)
	}
	service := assessment.NewService(growth.NewEngine(store, logger), assessment.Options{}, logger)

	if cfg.IsLocal() && cfg.AWS.ResultsQueue == "" {
		return worker.NewHandler(service, &writerPublisher{w: out}, nil, logger), nil
	}
	if cfg.AWS.ResultsQueue == "" {
		return nil, fmt.Errorf("SQS_RESULTS_QUEUE is required outside local mode")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS SDK config: %w", err)
	}

	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	publisher := queue.NewResultPublisher(sqsClient, cfg.AWS.ResultsQueue)

	var metrics worker.MetricsPublisher
	if !cfg.IsLocal() {
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = telemetry.NewCloudWatchMetrics(cwClient, cfg.Observability.MetricNamespace, logger)
	}

	logger.Info("interpret worker initialized",
		"results_queue", cfg.AWS.ResultsQueue,
		"metric_namespace", cfg.Observability.MetricNamespace,
	)
	return worker.NewHandler(service, publisher, metrics, logger), nil
}

// runLocal decodes one SQS event from r and runs it through h.
func runLocal(ctx context.Context, h *worker.Handler, r io.Reader, logger *slog.Logger) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no input received on stdin")
	}

	var event events.SQSEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode SQS event: %w", err)
	}

	resp, err := h.Handle(ctx, event)
	if err != nil {
		return err
	}
	logger.Info("handler execution completed",
		"records", len(event.Records),
		"batch_item_failures", len(resp.BatchItemFailures),
	)
	return nil
}

// newLogger returns a JSON logger on w at the LOG_LEVEL threshold. Unknown
// level names fall back to info.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// writerPublisher emits each result as one JSON line.
type writerPublisher struct {
	w io.Writer
}

func (p *writerPublisher) Publish(_ context.Context, msgs []types.InterpretResultMessage) ([]int, error) {
	enc := json.NewEncoder(p.w)
	for i, m := range msgs {
		if err := enc.Encode(m); err != nil {
			failed := make([]int, 0, len(msgs)-i)
			for j := i; j < len(msgs); j++ {
				failed = append(failed, j)
			}
			return failed, fmt.Errorf("write result: %w", err)
		}
	}
	return nil, nil
}
