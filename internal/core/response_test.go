package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"growthwatch/internal/types"
)

func TestOK_WrapsInEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	OK(w, r, map[string]float64{"z_score": -1.25})

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"data":{"z_score":-1.25}}` {
		t.Errorf("unexpected body %s", got)
	}
}

func TestJSON_MarshalFailureFallsBack(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	JSON(w, r, http.StatusOK, map[string]any{"bad": make(chan int)})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestError_AppErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", types.NewAppError(types.ErrCodeValidationInvalidSex, "sex must be male or female", nil), http.StatusBadRequest, "validation_invalid_sex"},
		{"domain", types.NewAppError(types.ErrCodeDomainInvalidMeasurement, "measurement must be positive", nil), http.StatusUnprocessableEntity, "domain_invalid_measurement"},
		{"not found", types.NewAppError(types.ErrCodeNotFoundReferenceTable, "missing", nil), http.StatusNotFound, "not_found_reference_table"},
		{"upstream", types.NewAppError(types.ErrCodeUpstreamReferenceSource, "down", nil), http.StatusBadGateway, "upstream_reference_source_unavailable"},
		{"wrapped", errors.Join(errors.New("ctx"), types.NewAppError(types.ErrCodeValidationOutOfRange, "too big", nil)), http.StatusBadRequest, "validation_value_out_of_range"},
		{"generic", errors.New("db password is hunter2"), http.StatusInternalServerError, "internal_unexpected_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r = r.WithContext(types.WithRequestID(r.Context(), "req-9"))

			Error(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var resp APIErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, resp.Error.Code)
			}
			if resp.Error.RequestID != "req-9" {
				t.Errorf("expected request id req-9, got %q", resp.Error.RequestID)
			}
			if strings.Contains(resp.Error.Message, "hunter2") {
				t.Error("generic error message leaked to client")
			}
		})
	}
}

func TestError_IncludesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeDomainInvalidReference, "reference median must be positive", nil,
		map[string]any{"field": "reference median"}))

	var resp APIErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Details["field"] != "reference median" {
		t.Errorf("expected details to be forwarded, got %v", resp.Error.Details)
	}
}

type decodeTarget struct {
	Sex      string  `json:"sex"`
	WeightKg float64 `json:"weight_kg"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"sex":"male","weight_kg":9.1}`, ""},
		{"empty", ``, "must not be empty"},
		{"syntax", `{"sex":`, "invalid JSON"},
		{"malformed token", `{"sex" "male"}`, "malformed JSON"},
		{"unknown field", `{"sex":"male","weight_lb":20}`, "unknown field"},
		{"wrong type", `{"weight_kg":"heavy"}`, "invalid value for field"},
		{"two values", `{"sex":"male"}{"sex":"female"}`, "single JSON object"},
		{"too large", `{"sex":"` + strings.Repeat("x", maxRequestBodySize) + `"}`, "must not exceed 1MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst decodeTarget
			err := DecodeJSON(w, r, &dst)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if dst.Sex != "male" || dst.WeightKg != 9.1 {
					t.Errorf("unexpected decode result %+v", dst)
				}
				return
			}

			var appErr *types.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *types.AppError, got %T: %v", err, err)
			}
			if appErr.Code != types.ErrCodeValidationInvalidRequest {
				t.Errorf("expected validation_invalid_request, got %s", appErr.Code)
			}
			if !strings.Contains(appErr.Message, tt.wantErr) {
				t.Errorf("message %q does not contain %q", appErr.Message, tt.wantErr)
			}
		})
	}
}
