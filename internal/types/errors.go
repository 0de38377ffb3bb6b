package types

import (
	"maps"
	"net/http"
	"strings"
)

// ErrorCode is the machine-readable identifier returned to clients. Its
// prefix selects the HTTP status.
type ErrorCode string

const (
	// Validation (400)
	ErrCodeValidationMissingField   ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidSex     ErrorCode = "validation_invalid_sex"
	ErrCodeValidationInvalidMetric  ErrorCode = "validation_invalid_metric"
	ErrCodeValidationInvalidFamily  ErrorCode = "validation_invalid_family"
	ErrCodeValidationInvalidNumber  ErrorCode = "validation_invalid_number"
	ErrCodeValidationOutOfRange     ErrorCode = "validation_value_out_of_range"
	ErrCodeValidationInvalidDate    ErrorCode = "validation_invalid_date"
	ErrCodeValidationBatchSize      ErrorCode = "validation_batch_size_exceeded"
	ErrCodeValidationDuplicateID    ErrorCode = "validation_duplicate_item_id"
	ErrCodeValidationInvalidRequest ErrorCode = "validation_invalid_request"
	ErrCodeValidationInvalidMessage ErrorCode = "validation_invalid_message"

	// ErrCodeValidationMethodNotAllowed is rendered with 405 by the router
	// rather than through HTTPStatus.
	ErrCodeValidationMethodNotAllowed ErrorCode = "validation_method_not_allowed"

	// Domain (422): the input is well-formed but outside the LMS transform's domain.
	ErrCodeDomainInvalidMeasurement ErrorCode = "domain_invalid_measurement"
	ErrCodeDomainInvalidReference   ErrorCode = "domain_invalid_reference"

	// Not Found (404)
	ErrCodeNotFoundReferenceTable ErrorCode = "not_found_reference_table"
	ErrCodeNotFoundRoute          ErrorCode = "not_found_route"

	// Internal (500) and upstream (502)
	ErrCodeInternalUnexpected      ErrorCode = "internal_unexpected_error"
	ErrCodeInternalReferenceTables ErrorCode = "internal_reference_tables_invalid"
	ErrCodeUpstreamReferenceSource ErrorCode = "upstream_reference_source_unavailable"
	ErrCodeUpstreamUnavailable     ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited     ErrorCode = "upstream_rate_limited"
)

// statusByPrefix assigns an HTTP status to each error-code family. Codes
// outside every family are treated as internal.
var statusByPrefix = []struct {
	prefix string
	status int
}{
	{"validation_", http.StatusBadRequest},
	{"domain_", http.StatusUnprocessableEntity},
	{"not_found_", http.StatusNotFound},
	{"upstream_", http.StatusBadGateway},
	{"internal_", http.StatusInternalServerError},
}

// HTTPStatus returns the status the API answers with for c.
func (c ErrorCode) HTTPStatus() int {
	for _, f := range statusByPrefix {
		if strings.HasPrefix(string(c), f.prefix) {
			return f.status
		}
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether c describes a problem with the caller's input
// (any 4xx family). Queue consumers drop such messages instead of retrying.
func (c ErrorCode) IsClientError() bool {
	s := c.HTTPStatus()
	return s >= 400 && s < 500
}

// AppError carries a stable code, a client-safe message and optional
// structured details. Err holds the cause and is never shown to clients.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus is shorthand for e.Code.HTTPStatus().
func (e *AppError) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e whose details are e's overlaid with extra.
// e itself is left untouched.
func (e *AppError) WithDetails(extra map[string]any) *AppError {
	merged := maps.Clone(e.Details)
	if merged == nil {
		merged = make(map[string]any, len(extra))
	}
	maps.Copy(merged, extra)

	cp := *e
	cp.Details = merged
	return &cp
}

// NewAppError wraps err (which may be nil) under code and message.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return NewAppErrorWithDetails(code, message, err, nil)
}

// NewAppErrorWithDetails is NewAppError plus a details map that is rendered
// in the API error envelope.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}
