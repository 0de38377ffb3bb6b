package types

import (
	"context"
	"testing"
)

func TestWithRequestID_GetRequestID(t *testing.T) {
	t.Run("round-trip stores and retrieves request id", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-abc")
		if got := GetRequestID(ctx); got != "req-abc" {
			t.Errorf("GetRequestID() = %q, want %q", got, "req-abc")
		}
	})

	t.Run("missing request id returns empty string", func(t *testing.T) {
		if got := GetRequestID(context.Background()); got != "" {
			t.Errorf("GetRequestID() = %q, want empty", got)
		}
	})
}
