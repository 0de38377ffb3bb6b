// Package worker implements the interpretation worker: it consumes
// InterpretMessages from SQS, interprets each measurement, and publishes
// InterpretResultMessages to the results queue.
//
// Delivery semantics:
//   - Malformed or invalid messages are acknowledged and counted as rejected;
//     redelivery cannot fix them.
//   - Messages whose interpretation fails for an internal reason, or whose
//     result could not be published, are reported as BatchItemFailures so
//     SQS redelivers only those.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"growthwatch/internal/assessment"
	"growthwatch/internal/growth"
	"growthwatch/internal/telemetry"
	"growthwatch/internal/types"
)

// Interpreter is the subset of assessment.Service the worker needs.
type Interpreter interface {
	Interpret(ctx context.Context, m assessment.Measurement) (*growth.Interpretation, error)
	Trend(ctx context.Context, req assessment.TrendRequest) (*growth.TrendResult, error)
}

// Publisher sends results and reports which ones were not accepted.
type Publisher interface {
	Publish(ctx context.Context, msgs []types.InterpretResultMessage) ([]int, error)
}

// MetricsPublisher receives the per-invocation counters.
type MetricsPublisher interface {
	PublishInvocation(ctx context.Context, stats telemetry.InvocationStats) error
}

// Handler holds the dependencies for the interpretation Lambda handler.
type Handler struct {
	service   Interpreter
	publisher Publisher
	metrics   MetricsPublisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewHandler wires a Handler. metrics may be nil.
func NewHandler(service Interpreter, publisher Publisher, metrics MetricsPublisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:   service,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Handle processes one SQS batch. It returns an error only when the whole
// batch should be retried, which never happens: failures are reported per
// message.
func (h *Handler) Handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var (
		response events.SQSEventResponse
		stats    telemetry.InvocationStats
		results  []types.InterpretResultMessage
		sources  []string
	)

	for _, record := range event.Records {
		result, err := h.processRecord(ctx, record)
		switch {
		case errors.Is(err, errRejected):
			stats.Rejected++
		case err != nil:
			h.logger.Error("interpretation failed",
				"message_id", record.MessageId,
				"error", err,
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		default:
			stats.Processed++
			countClassifications(&stats, result.interpretation)
			results = append(results, result.message)
			sources = append(sources, record.MessageId)
		}
	}

	if len(results) > 0 {
		failed, err := h.publisher.Publish(ctx, results)
		if err != nil {
			h.logger.Error("result publish failed",
				"failed", len(failed),
				"total", len(results),
				"error", err,
			)
		}
		for _, idx := range failed {
			if idx < 0 || idx >= len(sources) {
				continue
			}
			stats.PublishFailed++
			stats.Processed--
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: sources[idx]})
		}
	}

	if h.metrics != nil {
		if err := h.metrics.PublishInvocation(ctx, stats); err != nil {
			h.logger.Warn("failed to publish worker metrics", "error", err)
		}
	}

	h.logger.Info("interpretation batch complete",
		"records", len(event.Records),
		"processed", stats.Processed,
		"rejected", stats.Rejected,
		"retry", len(response.BatchItemFailures),
	)

	return response, nil
}

// errRejected marks a message that is acknowledged without a result.
var errRejected = errors.New("message rejected")

type processed struct {
	message        types.InterpretResultMessage
	interpretation *growth.Interpretation
}

func (h *Handler) processRecord(ctx context.Context, record events.SQSMessage) (*processed, error) {
	var msg types.InterpretMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.Warn("malformed interpret message",
			"message_id", record.MessageId,
			"error", err,
		)
		return nil, errRejected
	}

	logger := h.logger.With(
		"message_id", record.MessageId,
		"request_id", msg.RequestID,
		"subject_id", msg.SubjectID,
		"trace_id", msg.TraceID,
	)

	m, trendReq, err := toRequests(msg)
	if err != nil {
		logger.Warn("invalid interpret message", "error", err)
		return nil, errRejected
	}
	ctx = types.WithRequestID(ctx, msg.RequestID)

	interp, err := h.service.Interpret(ctx, m)
	if err != nil {
		if isClientError(err) {
			logger.Warn("interpretation rejected", "error", err)
			return nil, errRejected
		}
		return nil, fmt.Errorf("interpret: %w", err)
	}

	out := types.InterpretResultMessage{
		ResultID:       h.newID(),
		RequestID:      msg.RequestID,
		SubjectID:      msg.SubjectID,
		ProcessedAt:    h.now(),
		Interpretation: interp,
		TraceID:        msg.TraceID,
	}

	if trendReq != nil {
		trend, err := h.service.Trend(ctx, *trendReq)
		switch {
		case err == nil:
			out.Trend = trend
		case isClientError(err):
			logger.Warn("trend skipped", "error", err)
		default:
			return nil, fmt.Errorf("trend: %w", err)
		}
	}

	return &processed{message: out, interpretation: interp}, nil
}

// toRequests validates msg and builds the service requests. The current
// measurement is appended to the history when it carries a weight, so the
// trend always ends at the visit being interpreted.
func toRequests(msg types.InterpretMessage) (assessment.Measurement, *assessment.TrendRequest, error) {
	if msg.RequestID == "" {
		return assessment.Measurement{}, nil, types.NewAppError(types.ErrCodeValidationMissingField, "request_id is required", nil)
	}
	sex, err := types.ParseSex(string(msg.Sex))
	if err != nil {
		return assessment.Measurement{}, nil, types.NewAppError(types.ErrCodeValidationInvalidSex, "sex must be male or female", err)
	}

	checks := []struct {
		name  string
		value float64
	}{
		{"age_months", msg.AgeMonths},
		{"weight_kg", msg.WeightKg},
		{"height_cm", msg.HeightCm},
	}
	for _, c := range checks {
		if err := types.ValidateMeasurementRange(c.name, c.value); err != nil {
			return assessment.Measurement{}, nil, types.NewAppError(types.ErrCodeValidationOutOfRange, err.Error(), err)
		}
	}
	if len(msg.History) > types.MaxHistoryPoints {
		return assessment.Measurement{}, nil, types.NewAppError(types.ErrCodeValidationOutOfRange,
			fmt.Sprintf("history exceeds %d points", types.MaxHistoryPoints), nil)
	}

	m := assessment.Measurement{
		Sex:       sex,
		AgeMonths: msg.AgeMonths,
		WeightKg:  msg.WeightKg,
		HeightCm:  msg.HeightCm,
	}

	if len(msg.History) == 0 {
		return m, nil, nil
	}

	history := make([]growth.WeightPoint, 0, len(msg.History)+1)
	currentListed := false
	for _, p := range msg.History {
		if err := types.ValidateMeasurementRange("age_months", p.AgeMonths); err != nil {
			return assessment.Measurement{}, nil, types.NewAppError(types.ErrCodeValidationOutOfRange, err.Error(), err)
		}
		if p.AgeMonths == msg.AgeMonths {
			currentListed = true
		}
		history = append(history, growth.WeightPoint{AgeMonths: p.AgeMonths, WeightKg: p.WeightKg})
	}
	// Producers may already list the current visit in history.
	if msg.WeightKg > 0 && !currentListed {
		history = append(history, growth.WeightPoint{AgeMonths: msg.AgeMonths, WeightKg: msg.WeightKg})
	}
	return m, &assessment.TrendRequest{Sex: sex, History: history}, nil
}

// isClientError reports whether err is an AppError in the 4xx range.
func isClientError(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code.IsClientError()
}

func countClassifications(stats *telemetry.InvocationStats, in *growth.Interpretation) {
	if in == nil || !in.Available {
		return
	}
	for _, r := range []growth.IndicatorResult{in.HeightForAge, in.WeightForAge, in.WeightForHeight, in.BMIForAge} {
		stats.Count(r.Indicator, r.Severity)
	}
	stats.Count(types.IndicatorWaterlow, in.Waterlow.Severity)
}
