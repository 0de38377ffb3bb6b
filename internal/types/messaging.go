package types

import "time"

// HistoryPoint is one prior weight observation carried in a worker message.
type HistoryPoint struct {
	AgeMonths float64 `json:"age_months"`
	WeightKg  float64 `json:"weight_kg"`
}

// InterpretMessage is the SQS payload asking for an interpretation.
// JSON tags use snake_case to match the producers' wire format.
type InterpretMessage struct {
	RequestID string         `json:"request_id"`
	SubjectID string         `json:"subject_id"`
	Sex       Sex            `json:"sex"`
	AgeMonths float64        `json:"age_months"`
	WeightKg  float64        `json:"weight_kg"`
	HeightCm  float64        `json:"height_cm"`
	History   []HistoryPoint `json:"history,omitempty"`

	// TraceID is propagated to the result for X-Ray correlation.
	TraceID string `json:"trace_id,omitempty"`
}

// InterpretResultMessage is published to the results queue once a message
// has been processed. Interpretation and Trend hold the engine's result types
// serialized as JSON objects.
type InterpretResultMessage struct {
	ResultID       string    `json:"result_id"`
	RequestID      string    `json:"request_id"`
	SubjectID      string    `json:"subject_id"`
	ProcessedAt    time.Time `json:"processed_at"`
	Interpretation any       `json:"interpretation"`
	Trend          any       `json:"trend,omitempty"`
	TraceID        string    `json:"trace_id,omitempty"`
}
