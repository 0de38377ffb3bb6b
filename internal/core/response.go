package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"growthwatch/internal/types"
)

// maxRequestBodySize caps POST bodies. A full batch of interpretations is
// far below this.
const maxRequestBodySize = 1 << 20

// APIResponse wraps every successful payload as {"data": ...}.
type APIResponse struct {
	Data any `json:"data"`
}

// APIErrorResponse wraps every failure as {"error": {...}}.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an error. Wrapped causes never
// appear here.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// newErrorResponse builds the error envelope for r.
func newErrorResponse(r *http.Request, code types.ErrorCode, message string, details map[string]any) APIErrorResponse {
	return APIErrorResponse{Error: ErrorDetail{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: types.GetRequestID(r.Context()),
	}}
}

// JSON encodes data with the given status. A value that cannot be encoded
// (a NaN z-score, say) turns into a 500 envelope instead of a half-written body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(newErrorResponse(r, types.ErrCodeInternalUnexpected, "failed to encode response", nil))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// OK writes data inside the success envelope with status 200.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusOK, APIResponse{Data: data})
}

// Error writes err as an error envelope. An *types.AppError anywhere in the
// chain decides status, code, message and details; anything else is reported
// as internal_unexpected_error with a fixed message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		JSON(w, r, http.StatusInternalServerError,
			newErrorResponse(r, types.ErrCodeInternalUnexpected, "an unexpected error occurred", nil))
		return
	}
	JSON(w, r, appErr.HTTPStatus(),
		newErrorResponse(r, appErr.Code, appErr.Message, appErr.Details))
}

// DecodeJSON strictly decodes one JSON object from the request body into dst.
// Oversized bodies, unknown fields, type mismatches, trailing values and empty
// bodies are all rejected as validation_invalid_request.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return invalidBody("request body must contain a single JSON object", nil, nil)
	}
	return nil
}

func invalidBody(message string, err error, details map[string]any) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidRequest, message, err, details)
}

// decodeError classifies a json.Decoder failure.
func decodeError(err error) *types.AppError {
	var (
		tooLarge  *http.MaxBytesError
		syntax    *json.SyntaxError
		typeError *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &tooLarge):
		return invalidBody("request body must not exceed 1MB", err, nil)
	case errors.As(err, &syntax):
		return invalidBody("malformed JSON in request body", err, map[string]any{"offset": syntax.Offset})
	case errors.As(err, &typeError):
		return invalidBody("invalid value for field", err, map[string]any{
			"field":    typeError.Field,
			"expected": typeError.Type.String(),
		})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return invalidBody("unknown field in request body: "+strings.TrimPrefix(err.Error(), "json: unknown field "), err, nil)
	case errors.Is(err, io.EOF):
		return invalidBody("request body must not be empty", err, nil)
	default:
		return invalidBody("invalid JSON in request body", err, nil)
	}
}
