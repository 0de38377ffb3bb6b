package growth

import "growthwatch/internal/types"

// Status labels. They are the clinic's bilingual strings and are treated as
// opaque values by callers.
const (
	LabelVeryTall        = "Very Tall (Perawakan Sangat Tinggi)"
	LabelNormal          = "Normal"
	LabelStunted         = "Stunted (Perawakan Pendek)"
	LabelSeverelyStunted = "Severely Stunted (Perawakan Sangat Pendek)"

	LabelRiskWeight          = "Risiko BB Lebih"
	LabelUnderweight         = "Underweight (BB Kurang)"
	LabelSeverelyUnderweight = "Severely Underweight (BB Sangat Kurang)"

	LabelObese          = "Obese (Obesitas)"
	LabelOverweight     = "Overweight (Gizi Lebih)"
	LabelRiskOverweight = "Possible Risk of Overweight"
	LabelWellNourished  = "Normal (Gizi Baik)"
	LabelWasted         = "Wasted (Gizi Kurang)"
	LabelSeverelyWasted = "Severely Wasted (Gizi Buruk)"

	LabelWaterlowObese          = "Obesitas"
	LabelWaterlowOverweight     = "Overweight"
	LabelWaterlowNormal         = "Gizi Baik"
	LabelWaterlowUndernourished = "Gizi Kurang"
	LabelWaterlowSevere         = "Gizi Buruk"
)

var labelSeverity = map[string]types.Severity{
	LabelVeryTall:        types.SeverityNormal,
	LabelNormal:          types.SeverityNormal,
	LabelStunted:         types.SeverityModerate,
	LabelSeverelyStunted: types.SeveritySevere,

	LabelRiskWeight:          types.SeverityElevated,
	LabelUnderweight:         types.SeverityModerate,
	LabelSeverelyUnderweight: types.SeveritySevere,

	LabelObese:          types.SeverityHigh,
	LabelOverweight:     types.SeverityElevated,
	LabelRiskOverweight: types.SeverityElevated,
	LabelWellNourished:  types.SeverityNormal,
	LabelWasted:         types.SeverityModerate,
	LabelSeverelyWasted: types.SeveritySevere,

	LabelWaterlowObese:          types.SeverityHigh,
	LabelWaterlowOverweight:     types.SeverityElevated,
	LabelWaterlowNormal:         types.SeverityNormal,
	LabelWaterlowUndernourished: types.SeverityModerate,
	LabelWaterlowSevere:         types.SeveritySevere,
}

// SeverityOf returns the colour-coding severity of a status label.
// Unknown labels are normal.
func SeverityOf(label string) types.Severity {
	if s, ok := labelSeverity[label]; ok {
		return s
	}
	return types.SeverityNormal
}

// ClassifyHeightForAge applies the height-for-age (TB/U) cut-offs.
func ClassifyHeightForAge(z float64) string {
	switch {
	case z > 3:
		return LabelVeryTall
	case z >= -2:
		return LabelNormal
	case z >= -3:
		return LabelStunted
	default:
		return LabelSeverelyStunted
	}
}

// ClassifyWeightForAge applies the weight-for-age (BB/U) cut-offs.
func ClassifyWeightForAge(z float64) string {
	switch {
	case z > 1:
		return LabelRiskWeight
	case z >= -2:
		return LabelNormal
	case z >= -3:
		return LabelUnderweight
	default:
		return LabelSeverelyUnderweight
	}
}

// ClassifyWeightForHeight applies the weight-for-height (BB/TB) cut-offs.
func ClassifyWeightForHeight(z float64) string {
	return classifyWasting(z)
}

// ClassifyBMIForAge applies the BMI-for-age (IMT/U) cut-offs, which are the
// same as weight-for-height.
func ClassifyBMIForAge(z float64) string {
	return classifyWasting(z)
}

func classifyWasting(z float64) string {
	switch {
	case z > 3:
		return LabelObese
	case z > 2:
		return LabelOverweight
	case z > 1:
		return LabelRiskOverweight
	case z >= -2:
		return LabelWellNourished
	case z >= -3:
		return LabelWasted
	default:
		return LabelSeverelyWasted
	}
}

// ClassifyWaterlow applies the Waterlow percent-of-ideal-weight cut-offs.
func ClassifyWaterlow(percent float64) string {
	switch {
	case percent > 120:
		return LabelWaterlowObese
	case percent > 110:
		return LabelWaterlowOverweight
	case percent >= 90:
		return LabelWaterlowNormal
	case percent >= 70:
		return LabelWaterlowUndernourished
	default:
		return LabelWaterlowSevere
	}
}

// ApproximateWFHZ maps a percent-of-ideal-weight to a representative
// weight-for-height z-score. It is a coarse stand-in for a true
// weight-for-length z-score, not a substitute for one.
func ApproximateWFHZ(percent float64) float64 {
	switch {
	case percent > 120:
		return 3.5
	case percent > 110:
		return 2.5
	case percent > 100:
		return 0.5
	case percent >= 90:
		return -0.5
	case percent >= 80:
		return -1.5
	case percent >= 70:
		return -2.5
	default:
		return -3.5
	}
}

// SDBand describes which standard-deviation band z falls in.
func SDBand(z float64) string {
	switch {
	case z > 3:
		return "> 3 SD"
	case z > 2:
		return "2-3 SD"
	case z > 1:
		return "1-2 SD"
	case z >= -1:
		return "-1 to 1 SD"
	case z >= -2:
		return "-2 to -1 SD"
	case z >= -3:
		return "-3 to -2 SD"
	default:
		return "< -3 SD"
	}
}
