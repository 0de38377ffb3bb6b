package growth

import (
	"sort"

	"growthwatch/internal/reference"
	"growthwatch/internal/types"
)

// wflMaxLengthCm is the upper end of the weight-for-length table.
const wflMaxLengthCm = 110.0

// HeightAge returns the age at which heightCm is the reference median.
//
// Heights up to the tallest WHO median are resolved against WHO only; taller
// heights against CDC only. Within the chosen table heights beyond either end
// clamp to that end's age.
func (e *Engine) HeightAge(heightCm float64, sex types.Sex) (float64, error) {
	who, err := e.tables.Table(types.FamilyWHO, types.MetricHeight, sex)
	if err != nil {
		return 0, err
	}
	sortByMedian(who)
	if heightCm <= who[len(who)-1].M {
		return ageForMedian(heightCm, who), nil
	}

	cdc, err := e.tables.Table(types.FamilyCDC, types.MetricHeight, sex)
	if err != nil {
		return 0, err
	}
	sortByMedian(cdc)
	return ageForMedian(heightCm, cdc), nil
}

func sortByMedian(rows []reference.Point) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].M < rows[j].M })
}

// ageForMedian inverts a median-sorted table, interpolating age linearly
// between the medians that straddle value.
func ageForMedian(value float64, sorted []reference.Point) float64 {
	first, last := sorted[0], sorted[len(sorted)-1]
	if value <= first.M {
		return first.AgeMonths
	}
	if value >= last.M {
		return last.AgeMonths
	}
	for i := 0; i < len(sorted)-1; i++ {
		lo, hi := sorted[i], sorted[i+1]
		if value >= lo.M && value <= hi.M {
			if hi.M == lo.M {
				return lo.AgeMonths
			}
			fraction := (value - lo.M) / (hi.M - lo.M)
			return lo.AgeMonths + fraction*(hi.AgeMonths-lo.AgeMonths)
		}
	}
	return 0
}

// IdealBodyWeight returns the reference median weight for a child of heightCm.
//
// Up to 110 cm the weight-for-length table is used. Above that the weight
// median at the child's height-age stands in.
func (e *Engine) IdealBodyWeight(heightCm float64, sex types.Sex) (float64, error) {
	if heightCm <= wflMaxLengthCm {
		rows, err := e.tables.LengthTable(sex)
		if err != nil {
			return 0, err
		}
		return InterpolateLength(heightCm, rows).M, nil
	}

	hAge, err := e.HeightAge(heightCm, sex)
	if err != nil {
		return 0, err
	}
	lms, err := e.lmsAt(types.MetricWeight, sex, hAge)
	if err != nil {
		return 0, err
	}
	return lms.M, nil
}
