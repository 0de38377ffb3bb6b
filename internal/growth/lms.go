package growth

import (
	"sort"

	"growthwatch/internal/reference"
)

// LMS holds the Box-Cox power (L), median (M) and coefficient of variation (S)
// of a reference distribution at one key.
type LMS struct {
	L float64 `json:"l"`
	M float64 `json:"m"`
	S float64 `json:"s"`
}

// Interpolate returns the LMS triple at ageMonths.
//
// Rows are re-sorted by age on a copy. Targets at or beyond either end clamp
// to that end's row; otherwise L, M and S are interpolated linearly between
// the bracketing rows.
func Interpolate(ageMonths float64, rows []reference.Point) LMS {
	keyed := make([]keyedLMS, len(rows))
	for i, r := range rows {
		keyed[i] = keyedLMS{key: r.AgeMonths, lms: LMS{L: r.L, M: r.M, S: r.S}}
	}
	return interpolateKeyed(ageMonths, keyed)
}

// InterpolateLength is Interpolate for the length-indexed weight-for-length table.
func InterpolateLength(lengthCm float64, rows []reference.LengthPoint) LMS {
	keyed := make([]keyedLMS, len(rows))
	for i, r := range rows {
		keyed[i] = keyedLMS{key: r.LengthCm, lms: LMS{L: r.L, M: r.M, S: r.S}}
	}
	return interpolateKeyed(lengthCm, keyed)
}

type keyedLMS struct {
	key float64
	lms LMS
}

func interpolateKeyed(target float64, rows []keyedLMS) LMS {
	if len(rows) == 0 {
		return LMS{}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].key < rows[j].key })

	first, last := rows[0], rows[len(rows)-1]
	if target <= first.key {
		return first.lms
	}
	if target >= last.key {
		return last.lms
	}

	lower, upper := first, last
	for i := 0; i < len(rows)-1; i++ {
		if target >= rows[i].key && target <= rows[i+1].key {
			lower, upper = rows[i], rows[i+1]
			break
		}
	}
	if upper.key == lower.key {
		return lower.lms
	}

	ratio := (target - lower.key) / (upper.key - lower.key)
	return LMS{
		L: lower.lms.L + (upper.lms.L-lower.lms.L)*ratio,
		M: lower.lms.M + (upper.lms.M-lower.lms.M)*ratio,
		S: lower.lms.S + (upper.lms.S-lower.lms.S)*ratio,
	}
}
