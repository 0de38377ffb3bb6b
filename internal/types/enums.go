package types

import "fmt"

// Sex is the biological sex used to select a reference table.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Valid reports whether s is one of the supported values.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// ParseSex accepts the canonical values plus the single-letter and
// Indonesian clinic forms ("L" laki-laki, "P" perempuan).
func ParseSex(raw string) (Sex, error) {
	switch raw {
	case "male", "MALE", "Male", "m", "M", "L", "laki-laki":
		return SexMale, nil
	case "female", "FEMALE", "Female", "f", "F", "P", "perempuan":
		return SexFemale, nil
	default:
		return "", fmt.Errorf("%s: unsupported sex %q", ErrCodeValidationInvalidSex, raw)
	}
}

// Metric identifies the anthropometric quantity a table describes.
type Metric string

const (
	MetricWeight Metric = "weight"
	MetricHeight Metric = "height"
	MetricBMI    Metric = "bmi"
)

// AllMetrics lists every metric a complete reference bundle must carry.
var AllMetrics = []Metric{MetricWeight, MetricHeight, MetricBMI}

func (m Metric) Valid() bool {
	switch m {
	case MetricWeight, MetricHeight, MetricBMI:
		return true
	}
	return false
}

// ParseMetric validates a metric name from an external boundary.
func ParseMetric(raw string) (Metric, error) {
	m := Metric(raw)
	if !m.Valid() {
		return "", fmt.Errorf("%s: unsupported metric %q", ErrCodeValidationInvalidMetric, raw)
	}
	return m, nil
}

// Family identifies the reference population a table belongs to.
type Family string

const (
	FamilyWHO Family = "who"
	FamilyCDC Family = "cdc"
)

// AllFamilies lists every family a complete reference bundle must carry.
var AllFamilies = []Family{FamilyWHO, FamilyCDC}

func (f Family) Valid() bool {
	return f == FamilyWHO || f == FamilyCDC
}

// ParseFamily validates a family name from an external boundary.
func ParseFamily(raw string) (Family, error) {
	f := Family(raw)
	if !f.Valid() {
		return "", fmt.Errorf("%s: unsupported family %q", ErrCodeValidationInvalidFamily, raw)
	}
	return f, nil
}

// TrendStatus is the coarse verdict of a growth trend analysis.
type TrendStatus string

const (
	TrendStable     TrendStatus = "stable"
	TrendImproving  TrendStatus = "improving"
	TrendFaltering  TrendStatus = "faltering"
	TrendConcerning TrendStatus = "concerning"
	TrendNeutral    TrendStatus = "neutral"
)

// Severity mirrors the colour coding clinicians use for status labels.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityElevated Severity = "elevated"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeveritySevere   Severity = "severe"
)

// Indicator names a clinical index produced by an interpretation.
type Indicator string

const (
	IndicatorHeightForAge    Indicator = "height_for_age"
	IndicatorWeightForAge    Indicator = "weight_for_age"
	IndicatorWeightForHeight Indicator = "weight_for_height"
	IndicatorBMIForAge       Indicator = "bmi_for_age"
	IndicatorWaterlow        Indicator = "waterlow"
)
