package growth

import (
	"fmt"
	"math"

	"growthwatch/internal/types"
)

// IndicatorResult is one z-score based index of an Interpretation.
type IndicatorResult struct {
	Indicator types.Indicator `json:"indicator"`
	Label     string          `json:"label"`
	ZScore    float64         `json:"z_score"`
	SDBand    string          `json:"sd_band"`
	Reason    string          `json:"reason"`
	Severity  types.Severity  `json:"severity"`
}

// WaterlowResult is the percent-of-ideal-weight index of an Interpretation.
type WaterlowResult struct {
	Label    string         `json:"label"`
	Percent  float64        `json:"percent"`
	Reason   string         `json:"reason"`
	Severity types.Severity `json:"severity"`
}

// Interpretation is the full clinical reading of one measurement.
//
// When Available is false the measurement was incomplete, Note explains why,
// and the indicator blocks are zero values.
type Interpretation struct {
	Available bool         `json:"available"`
	Note      string       `json:"note,omitempty"`
	Family    types.Family `json:"family,omitempty"`

	HeightForAge    IndicatorResult `json:"height_for_age"`
	WeightForAge    IndicatorResult `json:"weight_for_age"`
	WeightForHeight IndicatorResult `json:"weight_for_height"`
	BMIForAge       IndicatorResult `json:"bmi_for_age"`
	Waterlow        WaterlowResult  `json:"waterlow"`

	IdealBodyWeightKg float64 `json:"ideal_body_weight_kg"`
	HeightAgeMonths   float64 `json:"height_age_months"`
	BMI               float64 `json:"bmi"`
}

// Notes attached to unavailable interpretations.
const (
	NoteMissingWeight = "Berat badan belum diukur; interpretasi tidak tersedia."
	NoteMissingHeight = "Tinggi badan belum diukur; interpretasi tidak tersedia."
)

// Interpret computes every index for one measurement.
//
// Non-positive weight or height is a data-quality gap, reported through
// Available=false rather than an error. Errors are configuration or domain
// failures from the reference tables.
func (e *Engine) Interpret(weightKg, heightCm, ageMonths float64, sex types.Sex) (*Interpretation, error) {
	if !(weightKg > 0) {
		return &Interpretation{Note: NoteMissingWeight}, nil
	}
	if !(heightCm > 0) {
		return &Interpretation{Note: NoteMissingHeight}, nil
	}

	heightZ, err := e.ZScore(heightCm, ageMonths, sex, types.MetricHeight)
	if err != nil {
		return nil, fmt.Errorf("height-for-age: %w", err)
	}
	weightZ, err := e.ZScore(weightKg, ageMonths, sex, types.MetricWeight)
	if err != nil {
		return nil, fmt.Errorf("weight-for-age: %w", err)
	}

	heightM := heightCm / 100
	bmi := weightKg / (heightM * heightM)
	bmiZ, err := e.ZScore(bmi, ageMonths, sex, types.MetricBMI)
	if err != nil {
		return nil, fmt.Errorf("bmi-for-age: %w", err)
	}

	ibw, err := e.IdealBodyWeight(heightCm, sex)
	if err != nil {
		return nil, fmt.Errorf("ideal body weight: %w", err)
	}
	percent := weightKg / ibw * 100
	wfhZ := ApproximateWFHZ(percent)

	heightMedian, err := e.Median(ageMonths, sex, types.MetricHeight)
	if err != nil {
		return nil, err
	}
	weightMedian, err := e.Median(ageMonths, sex, types.MetricWeight)
	if err != nil {
		return nil, err
	}
	heightAge, err := e.HeightAge(heightCm, sex)
	if err != nil {
		return nil, fmt.Errorf("height age: %w", err)
	}

	hfaLabel := ClassifyHeightForAge(heightZ)
	wfaLabel := ClassifyWeightForAge(weightZ)
	wfhLabel := ClassifyWeightForHeight(wfhZ)
	bmiLabel := ClassifyBMIForAge(bmiZ)
	wlLabel := ClassifyWaterlow(percent)

	return &Interpretation{
		Available: true,
		Family:    SelectFamily(ageMonths),
		HeightForAge: IndicatorResult{
			Indicator: types.IndicatorHeightForAge,
			Label:     hfaLabel,
			ZScore:    round(heightZ, 2),
			SDBand:    SDBand(heightZ),
			Reason: fmt.Sprintf("TB: %.1f cm, TB median: %.1f cm, Z-Score: %.2f (%s)",
				heightCm, heightMedian, heightZ, SDBand(heightZ)),
			Severity: SeverityOf(hfaLabel),
		},
		WeightForAge: IndicatorResult{
			Indicator: types.IndicatorWeightForAge,
			Label:     wfaLabel,
			ZScore:    round(weightZ, 2),
			SDBand:    SDBand(weightZ),
			Reason: fmt.Sprintf("BB: %.1f kg, BB median: %.1f kg, Z-Score: %.2f (%s)",
				weightKg, weightMedian, weightZ, SDBand(weightZ)),
			Severity: SeverityOf(wfaLabel),
		},
		WeightForHeight: IndicatorResult{
			Indicator: types.IndicatorWeightForHeight,
			Label:     wfhLabel,
			ZScore:    round(wfhZ, 2),
			SDBand:    SDBand(wfhZ),
			Reason:    fmt.Sprintf("BB: %.1f kg / IBW: %.1f kg = %.1f%%", weightKg, ibw, percent),
			Severity:  SeverityOf(wfhLabel),
		},
		BMIForAge: IndicatorResult{
			Indicator: types.IndicatorBMIForAge,
			Label:     bmiLabel,
			ZScore:    round(bmiZ, 2),
			SDBand:    SDBand(bmiZ),
			Reason:    fmt.Sprintf("IMT: %.1f kg/m², Z-Score: %.2f (%s)", bmi, bmiZ, SDBand(bmiZ)),
			Severity:  SeverityOf(bmiLabel),
		},
		Waterlow: WaterlowResult{
			Label:   wlLabel,
			Percent: round(percent, 1),
			Reason: fmt.Sprintf("BB Aktual: %.1f kg / BB Ideal (Height Age): %.1f kg × 100 = %.1f%%",
				weightKg, ibw, percent),
			Severity: SeverityOf(wlLabel),
		},
		IdealBodyWeightKg: round(ibw, 2),
		HeightAgeMonths:   round(heightAge, 1),
		BMI:               round(bmi, 2),
	}, nil
}

// WaterlowSummary is the wasting/stunting pair older clients consume.
type WaterlowSummary struct {
	Available         bool    `json:"available"`
	Note              string  `json:"note,omitempty"`
	Wasting           string  `json:"wasting"`
	WastingReason     string  `json:"wasting_reason"`
	Stunting          string  `json:"stunting"`
	StuntingReason    string  `json:"stunting_reason"`
	IdealBodyWeightKg float64 `json:"ibw"`
	HeightAgeMonths   float64 `json:"height_age"`
}

// WaterlowSummary projects Interpret onto the legacy wasting/stunting shape.
func (e *Engine) WaterlowSummary(weightKg, heightCm, ageMonths float64, sex types.Sex) (*WaterlowSummary, error) {
	in, err := e.Interpret(weightKg, heightCm, ageMonths, sex)
	if err != nil {
		return nil, err
	}
	return SummarizeWaterlow(in), nil
}

// SummarizeWaterlow builds the legacy summary from an existing Interpretation.
func SummarizeWaterlow(in *Interpretation) *WaterlowSummary {
	if !in.Available {
		return &WaterlowSummary{Note: in.Note}
	}
	return &WaterlowSummary{
		Available:         true,
		Wasting:           in.Waterlow.Label,
		WastingReason:     in.Waterlow.Reason,
		Stunting:          in.HeightForAge.Label,
		StuntingReason:    in.HeightForAge.Reason,
		IdealBodyWeightKg: in.IdealBodyWeightKg,
		HeightAgeMonths:   in.HeightAgeMonths,
	}
}

// round rounds x to the given number of decimal places, half away from zero.
func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
