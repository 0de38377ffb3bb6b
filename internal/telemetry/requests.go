package telemetry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"growthwatch/internal/types"
)

const (
	defaultRequestBuffer = 4096
	defaultFlushInterval = time.Minute

	// requestFlushTimeout bounds one flush, including the final one on Close.
	requestFlushTimeout = 5 * time.Second
)

type requestSeries struct {
	endpoint string
	status   string
}

type requestSample struct {
	series requestSeries
	ms     float64
}

type latencyStats struct {
	count, sum, min, max float64
}

func (s *latencyStats) add(v float64) {
	if s.count == 0 || v < s.min {
		s.min = v
	}
	if s.count == 0 || v > s.max {
		s.max = v
	}
	s.count++
	s.sum += v
}

// RequestMetrics implements core.MetricsCollector on top of CloudWatchMetrics.
//
// RecordRequest never blocks: samples go to a bounded buffer that a single
// flusher goroutine drains. The flusher folds samples into one APILatency
// statistic set per {Endpoint, Status} and sends them every flush interval,
// so each flush costs at most one PutMetricData call per 1000 series.
// Samples arriving while the buffer is full are dropped and counted.
type RequestMetrics struct {
	metrics  *CloudWatchMetrics
	logger   *slog.Logger
	interval time.Duration
	samples  chan requestSample

	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool

	dropped  atomic.Int64
	reported int64 // owned by the flusher
}

// RequestMetricsOption customises a RequestMetrics at construction.
type RequestMetricsOption func(*RequestMetrics)

// WithBufferSize sets how many samples may wait for the flusher.
func WithBufferSize(n int) RequestMetricsOption {
	return func(r *RequestMetrics) {
		if n > 0 {
			r.samples = make(chan requestSample, n)
		}
	}
}

// WithFlushInterval sets how often aggregated latency is sent.
func WithFlushInterval(d time.Duration) RequestMetricsOption {
	return func(r *RequestMetrics) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewRequestMetrics starts the flusher. Callers must Close the recorder to
// send the last partial interval.
func NewRequestMetrics(metrics *CloudWatchMetrics, opts ...RequestMetricsOption) *RequestMetrics {
	r := newRequestMetrics(metrics, opts...)
	go r.run()
	return r
}

func newRequestMetrics(metrics *CloudWatchMetrics, opts ...RequestMetricsOption) *RequestMetrics {
	r := &RequestMetrics{
		metrics:  metrics,
		logger:   metrics.logger,
		interval: defaultFlushInterval,
		samples:  make(chan requestSample, defaultRequestBuffer),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordRequest implements core.MetricsCollector.
func (r *RequestMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	if r.closed.Load() {
		r.dropped.Add(1)
		return
	}
	s := requestSample{
		series: requestSeries{endpoint: method + " " + endpoint, status: status},
		ms:     float64(duration) / float64(time.Millisecond),
	}
	select {
	case r.samples <- s:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many samples were discarded since start.
func (r *RequestMetrics) Dropped() int64 { return r.dropped.Load() }

// Close stops the flusher after sending whatever is still buffered. It is
// safe to call more than once; later calls return the first result.
func (r *RequestMetrics) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.stop)
		<-r.stopped
	})
	return r.closeErr
}

func (r *RequestMetrics) run() {
	defer close(r.stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	pending := make(map[requestSeries]*latencyStats)
	for {
		select {
		case s := <-r.samples:
			r.fold(pending, s)
		case <-ticker.C:
			if err := r.flush(pending); err != nil {
				r.logger.Warn("failed to flush api latency metrics", "error", err)
			}
		case <-r.stop:
		drain:
			for {
				select {
				case s := <-r.samples:
					r.fold(pending, s)
				default:
					break drain
				}
			}
			r.closeErr = r.flush(pending)
			return
		}
	}
}

func (r *RequestMetrics) fold(pending map[requestSeries]*latencyStats, s requestSample) {
	st, ok := pending[s.series]
	if !ok {
		st = &latencyStats{}
		pending[s.series] = st
	}
	st.add(s.ms)
}

// flush sends and clears pending. Series are dropped on failure rather than
// carried into the next interval.
func (r *RequestMetrics) flush(pending map[requestSeries]*latencyStats) error {
	if n := r.dropped.Load() - r.reported; n > 0 {
		r.logger.Warn("api latency samples dropped", "dropped", n, "dropped_total", r.reported+n)
		r.reported += n
	}
	if len(pending) == 0 {
		return nil
	}

	keys := make([]requestSeries, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].endpoint != keys[j].endpoint {
			return keys[i].endpoint < keys[j].endpoint
		}
		return keys[i].status < keys[j].status
	})

	data := make([]cwtypes.MetricDatum, 0, len(keys))
	for _, k := range keys {
		st := pending[k]
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Unit:       cwtypes.StandardUnitMilliseconds,
			StatisticValues: &cwtypes.StatisticSet{
				SampleCount: aws.Float64(st.count),
				Sum:         aws.Float64(st.sum),
				Minimum:     aws.Float64(st.min),
				Maximum:     aws.Float64(st.max),
			},
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(types.DimEndpoint), Value: aws.String(k.endpoint)},
				{Name: aws.String(types.DimStatus), Value: aws.String(k.status)},
			},
		})
	}
	clear(pending)

	ctx, cancel := context.WithTimeout(context.Background(), requestFlushTimeout)
	defer cancel()
	return r.metrics.put(ctx, data)
}
