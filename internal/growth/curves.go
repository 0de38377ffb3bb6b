package growth

import "growthwatch/internal/types"

type curveLine struct {
	name string
	z    float64
}

// Percentile z-scores for the CDC chart lines.
var cdcPercentiles = []curveLine{
	{"P3", -1.880794},
	{"P5", -1.644854},
	{"P10", -1.281552},
	{"P25", -0.67449},
	{"P50", 0},
	{"P75", 0.67449},
	{"P85", 1.036433},
	{"P90", 1.281552},
	{"P95", 1.644854},
	{"P97", 1.880794},
}

var whoSDLines = []curveLine{
	{"SD-3", -3},
	{"SD-2", -2},
	{"SD-1", -1},
	{"SD0", 0},
	{"SD+1", 1},
	{"SD+2", 2},
	{"SD+3", 3},
}

// CurveRow holds the reference lines at one table age.
type CurveRow struct {
	AgeMonths float64            `json:"age_months"`
	Values    map[string]float64 `json:"values"`
}

// CurveSet is a chartable set of reference lines for one table.
type CurveSet struct {
	Family types.Family `json:"family"`
	Metric types.Metric `json:"metric"`
	Sex    types.Sex    `json:"sex"`
	Lines  []string     `json:"lines"`
	Rows   []CurveRow   `json:"rows"`
}

// Curves returns reference lines for a table: SD lines -3..+3 for WHO and
// percentile lines for CDC (P85 only for BMI). Values are rounded to 2 dp.
func (e *Engine) Curves(metric types.Metric, sex types.Sex, family types.Family) (*CurveSet, error) {
	rows, err := e.tables.Table(family, metric, sex)
	if err != nil {
		return nil, err
	}

	lines := whoSDLines
	if family == types.FamilyCDC {
		lines = make([]curveLine, 0, len(cdcPercentiles))
		for _, p := range cdcPercentiles {
			if p.name == "P85" && metric != types.MetricBMI {
				continue
			}
			lines = append(lines, p)
		}
	}

	set := &CurveSet{
		Family: family,
		Metric: metric,
		Sex:    sex,
		Lines:  make([]string, len(lines)),
		Rows:   make([]CurveRow, len(rows)),
	}
	for i, l := range lines {
		set.Lines[i] = l.name
	}
	for i, r := range rows {
		lms := LMS{L: r.L, M: r.M, S: r.S}
		values := make(map[string]float64, len(lines))
		for _, l := range lines {
			values[l.name] = round(curveMeasurementForZ(l.z, lms), 2)
		}
		set.Rows[i] = CurveRow{AgeMonths: r.AgeMonths, Values: values}
	}
	return set, nil
}
