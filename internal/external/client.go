// Package external holds the outbound HTTP clients of growthwatch. Every
// call goes through BaseClient, which wraps a circuit breaker around the
// request, retries throttled and failing upstreams, and turns whatever is
// left into an AppError.
package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"growthwatch/internal/types"
)

// RetryPolicy bounds how often and how long BaseClient waits between attempts.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy is used for reference table downloads.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, MinWait: 500 * time.Millisecond, MaxWait: 10 * time.Second}
}

// BaseClient is embedded by concrete clients such as ReferenceFetcher.
type BaseClient struct {
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	retryPolicy RetryPolicy
	userAgent   string
	sleepFn     func(context.Context, time.Duration) error
}

// BaseClientOption customises a BaseClient at construction.
type BaseClientOption func(*BaseClient)

// WithSleepFunc replaces the wait between attempts.
func WithSleepFunc(fn func(context.Context, time.Duration) error) BaseClientOption {
	return func(c *BaseClient) { c.sleepFn = fn }
}

// WithTransport swaps the round tripper. The caller's http.Client is copied,
// never modified.
func WithTransport(rt http.RoundTripper) BaseClientOption {
	return func(c *BaseClient) {
		hc := *c.client
		hc.Transport = rt
		c.client = &hc
	}
}

// WithRedirectPolicy installs fn as the CheckRedirect hook.
func WithRedirectPolicy(fn func(req *http.Request, via []*http.Request) error) BaseClientOption {
	return func(c *BaseClient) {
		hc := *c.client
		hc.CheckRedirect = fn
		c.client = &hc
	}
}

// newBreaker trips after six consecutive failures and probes again after 30s.
func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
}

// NewBaseClient builds a client with its own breaker named breakerName.
func NewBaseClient(httpClient *http.Client, breakerName string, policy RetryPolicy, userAgent string, opts ...BaseClientOption) *BaseClient {
	return NewBaseClientWithBreaker(httpClient, newBreaker(breakerName), policy, userAgent, opts...)
}

// NewBaseClientWithBreaker builds a client around an existing breaker, so
// several clients can share one failure budget.
func NewBaseClientWithBreaker(
	httpClient *http.Client,
	breaker *gobreaker.CircuitBreaker[*http.Response],
	policy RetryPolicy,
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	c := &BaseClient{
		client:      httpClient,
		breaker:     breaker,
		retryPolicy: policy,
		userAgent:   userAgent,
		sleepFn:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryable reports whether status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// Do sends req, propagating the request ID and User-Agent. 429 and 5xx
// answers are retried up to MaxRetries times; any other response is handed
// back unchanged and the caller must close its body. When retries run out,
// the breaker is open or the context ends during a wait, Do returns an
// upstream AppError.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if id := types.GetRequestID(req.Context()); id != "" {
		req.Header.Set("X-Request-Id", id)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	body, err := snapshotBody(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to buffer request body", err)
	}

	var (
		resp    *http.Response
		callErr error
	)
	attempts := c.retryPolicy.MaxRetries + 1
	for attempt := range attempts {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, callErr = c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.client.Do(req)
			if err != nil {
				return nil, err
			}
			if retryable(r.StatusCode) {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if callErr == nil {
			return resp, nil
		}
		if breakerOpen(callErr) {
			break
		}
		if resp != nil && !retryable(resp.StatusCode) {
			return resp, nil
		}
		if attempt == attempts-1 {
			break
		}

		wait := c.computeBackoff(attempt, resp)
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}
		if err := c.sleepFn(req.Context(), wait); err != nil {
			callErr = err
			break
		}
	}

	appErr := mapError(resp, callErr)
	if resp != nil {
		resp.Body.Close()
	}
	return nil, appErr
}

// snapshotBody drains req.Body so it can be replayed on every attempt.
func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

func breakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// computeBackoff honours a Retry-After header when present and otherwise
// picks a jittered exponential delay. The result always lies in
// [MinWait, MaxWait].
func (c *BaseClient) computeBackoff(attempt int, resp *http.Response) time.Duration {
	lo, hi := c.retryPolicy.MinWait, c.retryPolicy.MaxWait

	if d, ok := retryAfter(resp); ok {
		return min(max(d, lo), hi)
	}

	ceiling := hi
	if attempt < 32 {
		ceiling = min(lo<<attempt, hi)
	}
	if ceiling <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(ceiling-lo)+1))
}

// retryAfter parses the Retry-After header as delta-seconds or an HTTP date.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at), true
	}
	return 0, false
}

func mapError(resp *http.Response, err error) *types.AppError {
	switch {
	case breakerOpen(err):
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "circuit breaker is open; upstream service unavailable", err)
	case resp != nil && resp.StatusCode == http.StatusTooManyRequests:
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "upstream rate limit exceeded", err)
	case resp != nil && resp.StatusCode >= http.StatusInternalServerError:
		return types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d after retries", resp.StatusCode), err)
	default:
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "upstream request failed", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
