package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthwatch/internal/security"
	"growthwatch/internal/types"
)

func newTestFetcher() *ReferenceFetcher {
	return NewReferenceFetcher(0, "GrowthWatch-Test/1.0", WithSleepFunc(noopSleep))
}

func TestReferenceFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.Header.Get("Accept"), "application/zstd")
		_, _ = w.Write([]byte(`{"version":"test"}`))
	}))
	defer server.Close()

	body, err := newTestFetcher().Fetch(context.Background(), server.URL+"/tables.json")
	require.NoError(t, err)
	assert.Equal(t, `{"version":"test"}`, string(body))
}

func TestReferenceFetcher_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamReferenceSource, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Details["status"])
}

func TestReferenceFetcher_InvalidURL(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), "://nope")

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationInvalidRequest, appErr.Code)
}

func TestReferenceFetcher_TooLarge(t *testing.T) {
	big := strings.Repeat("x", maxReferenceBytes+1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(big))
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "reference tables exceed size limit", appErr.Message)
}

func TestGuardedReferenceFetcher_RefusesLoopback(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := NewGuardedReferenceFetcher(0, "GrowthWatch-Test/1.0", WithSleepFunc(noopSleep))
	_, err := f.Fetch(context.Background(), server.URL+"/tables.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, security.ErrBlockedAddress)
	assert.Zero(t, hits)
}

func TestFetcherFor_LocalAllowsLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	body, err := FetcherFor(true, 0, "test", WithSleepFunc(noopSleep)).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	_, err = FetcherFor(false, 0, "test", WithSleepFunc(noopSleep)).Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, security.ErrBlockedAddress)
}
