// Package telemetry publishes growthwatch metrics to CloudWatch.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"growthwatch/internal/types"
)

// maxDatumsPerCall is the PutMetricData limit.
const maxDatumsPerCall = 1000

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Classification identifies one ClassificationCount series.
type Classification struct {
	Indicator types.Indicator
	Status    types.Severity
}

// InvocationStats aggregates the outcome of one worker invocation.
type InvocationStats struct {
	Processed       int
	Rejected        int
	PublishFailed   int
	Classifications map[Classification]int
}

// Count records one classification.
func (s *InvocationStats) Count(indicator types.Indicator, status types.Severity) {
	if s.Classifications == nil {
		s.Classifications = make(map[Classification]int)
	}
	s.Classifications[Classification{Indicator: indicator, Status: status}]++
}

// CloudWatchMetrics emits worker and API metrics under a namespace.
//
// Metrics emitted:
//   - InterpretationsProcessed, InterpretationsRejected, ResultPublishFailed: no dims
//   - ClassificationCount: Dims {Indicator, Status}
//   - APILatency: Dims {Endpoint, Status}, sent by RequestMetrics
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a publisher. An empty namespace selects
// types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

// PublishInvocation sends the stats of one worker invocation. Zero counters
// are still sent so dashboards show explicit zeros.
func (m *CloudWatchMetrics) PublishInvocation(ctx context.Context, stats InvocationStats) error {
	data := []cwtypes.MetricDatum{
		countDatum(types.MetricInterpretationsProcessed, stats.Processed),
		countDatum(types.MetricInterpretationsRejected, stats.Rejected),
		countDatum(types.MetricResultPublishFailed, stats.PublishFailed),
	}

	keys := make([]Classification, 0, len(stats.Classifications))
	for k := range stats.Classifications {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Indicator != keys[j].Indicator {
			return keys[i].Indicator < keys[j].Indicator
		}
		return keys[i].Status < keys[j].Status
	})
	for _, k := range keys {
		d := countDatum(types.MetricClassificationCount, stats.Classifications[k])
		d.Dimensions = []cwtypes.Dimension{
			{Name: aws.String(types.DimIndicator), Value: aws.String(string(k.Indicator))},
			{Name: aws.String(types.DimStatus), Value: aws.String(string(k.Status))},
		}
		data = append(data, d)
	}

	return m.put(ctx, data)
}

func (m *CloudWatchMetrics) put(ctx context.Context, data []cwtypes.MetricDatum) error {
	for i := 0; i < len(data); i += maxDatumsPerCall {
		end := min(i+maxDatumsPerCall, len(data))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data[i:end],
		})
		if err != nil {
			return fmt.Errorf("put metric data: %w", err)
		}
	}
	return nil
}

func countDatum(name string, n int) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
	}
}
