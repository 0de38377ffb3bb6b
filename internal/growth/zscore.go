package growth

import (
	"fmt"
	"math"

	"growthwatch/internal/types"
)

// lZeroThreshold is the |L| below which the Box-Cox transform degenerates to
// its log-normal limit.
const lZeroThreshold = 0.01

// DomainError reports a measurement or reference value outside the domain of
// the LMS transform.
type DomainError struct {
	Field string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s must be positive, got %g", e.Field, e.Value)
}

// IsReference reports whether the offending value came from the reference table.
func (e *DomainError) IsReference() bool {
	return e.Field == "reference median"
}

// ZScoreLMS converts x to a z-score under lms.
func ZScoreLMS(x float64, lms LMS) (float64, error) {
	if x <= 0 || math.IsNaN(x) {
		return 0, &DomainError{Field: "measurement", Value: x}
	}
	if lms.M <= 0 {
		return 0, &DomainError{Field: "reference median", Value: lms.M}
	}
	if math.Abs(lms.L) < lZeroThreshold {
		return math.Log(x/lms.M) / lms.S, nil
	}
	return (math.Pow(x/lms.M, lms.L) - 1) / (lms.L * lms.S), nil
}

// MeasurementForZLMS is the inverse of ZScoreLMS. When the power form has no
// real solution (1+L*S*z <= 0) it falls back to the log-normal form.
func MeasurementForZLMS(z float64, lms LMS) float64 {
	if math.Abs(lms.L) < lZeroThreshold {
		return lms.M * math.Exp(lms.S*z)
	}
	base := 1 + lms.L*lms.S*z
	if base <= 0 {
		return lms.M * math.Exp(lms.S*z)
	}
	return lms.M * math.Pow(base, 1/lms.L)
}

// curveMeasurementForZ is MeasurementForZLMS with an extra guard used for
// plotting: results that are non-positive or beyond ten medians are replaced
// by the log-normal value.
func curveMeasurementForZ(z float64, lms LMS) float64 {
	v := MeasurementForZLMS(z, lms)
	if v <= 0 || v > lms.M*10 || math.IsNaN(v) || math.IsInf(v, 0) {
		return lms.M * math.Exp(lms.S*z)
	}
	return v
}

// ZScore returns the unrounded z-score of value for the metric at ageMonths.
func (e *Engine) ZScore(value, ageMonths float64, sex types.Sex, metric types.Metric) (float64, error) {
	lms, err := e.lmsAt(metric, sex, ageMonths)
	if err != nil {
		return 0, err
	}
	return ZScoreLMS(value, lms)
}

// MeasurementForZ returns the measurement lying at z for the metric at ageMonths.
func (e *Engine) MeasurementForZ(z, ageMonths float64, sex types.Sex, metric types.Metric) (float64, error) {
	lms, err := e.lmsAt(metric, sex, ageMonths)
	if err != nil {
		return 0, err
	}
	return MeasurementForZLMS(z, lms), nil
}

// Median returns the reference median (M) for the metric at ageMonths.
func (e *Engine) Median(ageMonths float64, sex types.Sex, metric types.Metric) (float64, error) {
	lms, err := e.lmsAt(metric, sex, ageMonths)
	if err != nil {
		return 0, err
	}
	return lms.M, nil
}
