package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies the Error() format: "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationInvalidSex,
		Message: "sex must be male or female",
	}

	expected := "validation_invalid_sex: sex must be male or female"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("measurement must be positive")
	appErr := &AppError{
		Code:    ErrCodeDomainInvalidMeasurement,
		Message: "cannot compute z-score",
		Err:     underlying,
	}

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() returned unexpected error: got %v, want %v", appErr.Unwrap(), underlying)
	}
	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should find the underlying error through Unwrap")
	}
}

// TestAppErrorErrorsAs verifies that errors.As can extract AppError from an error chain.
func TestAppErrorErrorsAs(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeNotFoundReferenceTable,
		Message: "no table for cdc/bmi/female",
	}
	wrappedErr := fmt.Errorf("lookup failed: %w", appErr)

	var target *AppError
	if !errors.As(wrappedErr, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeNotFoundReferenceTable {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeNotFoundReferenceTable)
	}
}

func TestNewAppErrorWithDetails(t *testing.T) {
	appErr := NewAppErrorWithDetails(
		ErrCodeValidationOutOfRange,
		"height out of range",
		nil,
		map[string]any{"field": "height_cm", "value": 400.0},
	)

	if appErr.Code != ErrCodeValidationOutOfRange {
		t.Errorf("Code = %q, want %q", appErr.Code, ErrCodeValidationOutOfRange)
	}
	if appErr.Details["field"] != "height_cm" {
		t.Errorf("Details[\"field\"] = %v, want \"height_cm\"", appErr.Details["field"])
	}
}

// TestAppErrorWithDetails verifies WithDetails merges into a copy.
func TestAppErrorWithDetails(t *testing.T) {
	original := NewAppErrorWithDetails(
		ErrCodeValidationMissingField,
		"field is required",
		nil,
		map[string]any{"field": "sex"},
	)

	enhanced := original.WithDetails(map[string]any{"suggestion": "use male or female"})

	if _, ok := original.Details["suggestion"]; ok {
		t.Error("WithDetails should not mutate the original error")
	}
	if enhanced.Details["field"] != "sex" {
		t.Errorf("enhanced should retain original detail: field = %v", enhanced.Details["field"])
	}
	if enhanced.Details["suggestion"] != "use male or female" {
		t.Errorf("enhanced should have new detail: suggestion = %v", enhanced.Details["suggestion"])
	}
	if enhanced.Code != original.Code || enhanced.Message != original.Message {
		t.Errorf("Code and Message should carry over")
	}
}

func TestAppErrorWithDetailsNilOriginal(t *testing.T) {
	original := NewAppError(ErrCodeNotFoundReferenceTable, "not found", nil)
	enhanced := original.WithDetails(map[string]any{"family": "cdc"})

	if enhanced.Details["family"] != "cdc" {
		t.Errorf("WithDetails on nil original should work: family = %v", enhanced.Details["family"])
	}
}

func TestErrorCodeHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationInvalidSex, http.StatusBadRequest},
		{ErrCodeValidationInvalidMetric, http.StatusBadRequest},
		{ErrCodeValidationInvalidFamily, http.StatusBadRequest},
		{ErrCodeValidationInvalidNumber, http.StatusBadRequest},
		{ErrCodeValidationOutOfRange, http.StatusBadRequest},
		{ErrCodeValidationInvalidDate, http.StatusBadRequest},
		{ErrCodeValidationBatchSize, http.StatusBadRequest},
		{ErrCodeValidationDuplicateID, http.StatusBadRequest},
		{ErrCodeValidationInvalidRequest, http.StatusBadRequest},
		{ErrCodeValidationInvalidMessage, http.StatusBadRequest},

		{ErrCodeDomainInvalidMeasurement, http.StatusUnprocessableEntity},
		{ErrCodeDomainInvalidReference, http.StatusUnprocessableEntity},

		{ErrCodeValidationMethodNotAllowed, http.StatusBadRequest},

		{ErrCodeNotFoundReferenceTable, http.StatusNotFound},
		{ErrCodeNotFoundRoute, http.StatusNotFound},

		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrCodeInternalReferenceTables, http.StatusInternalServerError},

		{ErrCodeUpstreamReferenceSource, http.StatusBadGateway},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			got := tt.code.HTTPStatus()
			if got != tt.wantStatus {
				t.Errorf("ErrorCode(%q).HTTPStatus() = %d, want %d", tt.code, got, tt.wantStatus)
			}
		})
	}
}

func TestErrorCodeHTTPStatusUnknown(t *testing.T) {
	unknown := ErrorCode("totally_unknown_error")
	if unknown.HTTPStatus() != http.StatusInternalServerError {
		t.Errorf("unknown ErrorCode.HTTPStatus() = %d, want %d", unknown.HTTPStatus(), http.StatusInternalServerError)
	}
}

func TestAppErrorFmtStringer(t *testing.T) {
	appErr := NewAppError(ErrCodeDomainInvalidMeasurement, "weight must be positive", nil)
	result := fmt.Sprintf("got error: %v", appErr)
	expected := "got error: domain_invalid_measurement: weight must be positive"
	if result != expected {
		t.Errorf("fmt.Sprintf(\"%%v\") = %q, want %q", result, expected)
	}
}

func TestErrorCodeIsClientError(t *testing.T) {
	clientCodes := []ErrorCode{ErrCodeValidationInvalidSex, ErrCodeDomainInvalidMeasurement, ErrCodeNotFoundReferenceTable}
	for _, c := range clientCodes {
		if !c.IsClientError() {
			t.Errorf("%s.IsClientError() = false, want true", c)
		}
	}
	for _, c := range []ErrorCode{ErrCodeInternalUnexpected, ErrCodeUpstreamUnavailable, ErrorCode("unknown")} {
		if c.IsClientError() {
			t.Errorf("%s.IsClientError() = true, want false", c)
		}
	}
}

func TestAppErrorWithDetails_NilOriginalDetails(t *testing.T) {
	original := NewAppError(ErrCodeValidationOutOfRange, "too large", nil)
	enhanced := original.WithDetails(map[string]any{"max": 130.0})
	if original.Details != nil {
		t.Error("WithDetails should not populate the original's details")
	}
	if enhanced.Details["max"] != 130.0 {
		t.Errorf("Details[\"max\"] = %v, want 130", enhanced.Details["max"])
	}
}
