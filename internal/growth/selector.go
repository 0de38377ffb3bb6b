package growth

import (
	"growthwatch/internal/reference"
	"growthwatch/internal/types"
)

// WHOMaxAgeMonths is the last age served by the WHO tables. Older ages use CDC.
const WHOMaxAgeMonths = 60.0

// SelectFamily picks the reference family for an age: WHO up to and including
// 60 months, CDC above.
func SelectFamily(ageMonths float64) types.Family {
	if ageMonths > WHOMaxAgeMonths {
		return types.FamilyCDC
	}
	return types.FamilyWHO
}

// StandardData returns the reference rows governing (metric, sex) at ageMonths.
// It fails only when the table source lacks the table.
func (e *Engine) StandardData(metric types.Metric, sex types.Sex, ageMonths float64) ([]reference.Point, error) {
	return e.tables.Table(SelectFamily(ageMonths), metric, sex)
}
