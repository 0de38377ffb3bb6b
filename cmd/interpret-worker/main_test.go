package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthwatch/internal/config"
	"growthwatch/internal/types"
)

func setLocalEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"REFERENCE_TABLES_PATH", "REFERENCE_TABLES_URL", "SQS_RESULTS_QUEUE", "AWS_ENDPOINT_URL",
		"BATCH_MAX_ITEMS", "BATCH_CONCURRENCY", "REFERENCE_FETCH_TIMEOUT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("APP_ENV", "local")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunLocal_WritesResults(t *testing.T) {
	setLocalEnv(t)
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	var out bytes.Buffer
	h, err := buildHandler(context.Background(), cfg, discardLogger(), &out)
	require.NoError(t, err)

	body, err := json.Marshal(types.InterpretMessage{
		RequestID: "req-1",
		SubjectID: "child-1",
		Sex:       types.SexFemale,
		AgeMonths: 12,
		WeightKg:  8.9,
		HeightCm:  74,
	})
	require.NoError(t, err)
	event := `{"Records":[{"messageId":"m-1","body":` + string(mustQuote(t, string(body))) + `}]}`

	require.NoError(t, runLocal(context.Background(), h, strings.NewReader(event), discardLogger()))

	var result types.InterpretResultMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "req-1", result.RequestID)
	assert.NotEmpty(t, result.ResultID)
	assert.NotNil(t, result.Interpretation)
}

func TestRunLocal_InputErrors(t *testing.T) {
	setLocalEnv(t)
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	h, err := buildHandler(context.Background(), cfg, discardLogger(), io.Discard)
	require.NoError(t, err)

	err = runLocal(context.Background(), h, strings.NewReader(""), discardLogger())
	assert.ErrorContains(t, err, "no input")

	err = runLocal(context.Background(), h, strings.NewReader("{"), discardLogger())
	assert.ErrorContains(t, err, "decode SQS event")
}

func TestBuildHandler_RequiresQueueOutsideLocal(t *testing.T) {
	setLocalEnv(t)
	t.Setenv("APP_ENV", "dev")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	_, err = buildHandler(context.Background(), cfg, discardLogger(), io.Discard)
	assert.ErrorContains(t, err, "SQS_RESULTS_QUEUE")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriterPublisher_ReportsRemainingOnError(t *testing.T) {
	p := &writerPublisher{w: failingWriter{}}
	failed, err := p.Publish(context.Background(), make([]types.InterpretResultMessage, 3))
	assert.Equal(t, []int{0, 1, 2}, failed)
	assert.ErrorContains(t, err, "closed")
}

func TestNewLogger_HonoursLevel(t *testing.T) {
	tests := []struct {
		level      string
		debugShown bool
		infoShown  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"error", false, false},
		{"unknown", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			logger.Debug("debug line")
			logger.Info("info line")

			assert.Equal(t, tt.debugShown, strings.Contains(buf.String(), "debug line"))
			assert.Equal(t, tt.infoShown, strings.Contains(buf.String(), "info line"))
		})
	}
}

func mustQuote(t *testing.T, s string) []byte {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return b
}
