package types

import "fmt"

// Plausibility limits for inputs accepted at the service boundary.
// The growth engine itself only rejects non-positive values; these bounds
// catch unit mix-ups (grams for kilograms, metres for centimetres).
const (
	MinAgeMonths = 0.0
	MaxAgeMonths = 240.0
	MaxWeightKg  = 250.0
	MaxHeightCm  = 250.0
	MaxBMI       = 100.0
	MaxAbsZScore = 10.0

	// MaxHistoryPoints bounds a single trend request.
	MaxHistoryPoints = 500
)

// MeasurementMetadata defines the accepted range for a measured quantity.
type MeasurementMetadata struct {
	ID          string     `json:"id"`
	Unit        string     `json:"unit"`
	Range       [2]float64 `json:"valid_range"`
	Description string     `json:"description"`
}

// StandardMeasurements defines the authoritative input ranges.
var StandardMeasurements = map[string]MeasurementMetadata{
	"age_months": {ID: "age_months", Unit: "months", Range: [2]float64{MinAgeMonths, MaxAgeMonths}, Description: "Age at measurement"},
	"weight_kg":  {ID: "weight_kg", Unit: "kg", Range: [2]float64{0, MaxWeightKg}, Description: "Body weight"},
	"height_cm":  {ID: "height_cm", Unit: "cm", Range: [2]float64{0, MaxHeightCm}, Description: "Recumbent length or standing height"},
	"bmi":        {ID: "bmi", Unit: "kg/m2", Range: [2]float64{0, MaxBMI}, Description: "Body mass index"},
	"z":          {ID: "z", Unit: "sd", Range: [2]float64{-MaxAbsZScore, MaxAbsZScore}, Description: "Standard deviation score"},
}

// ValidateMeasurementRange checks a value against its StandardMeasurements entry.
func ValidateMeasurementRange(name string, value float64) error {
	meta, ok := StandardMeasurements[name]
	if !ok {
		return fmt.Errorf("%s: unknown measurement '%s'", ErrCodeValidationInvalidRequest, name)
	}
	if value < meta.Range[0] || value > meta.Range[1] {
		return fmt.Errorf("%s: %s %.2f outside valid range [%.2f, %.2f]",
			ErrCodeValidationOutOfRange, name, value, meta.Range[0], meta.Range[1])
	}
	return nil
}

// MetricRangeName maps a metric to the StandardMeasurements key of its raw value.
func MetricRangeName(m Metric) string {
	switch m {
	case MetricWeight:
		return "weight_kg"
	case MetricHeight:
		return "height_cm"
	default:
		return "bmi"
	}
}
