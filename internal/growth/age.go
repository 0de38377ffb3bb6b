package growth

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DaysPerMonth is the mean month length used to convert ages in days.
const DaysPerMonth = 30.44

// AgeInMonths returns the age between dob and measuredAt in months, to one
// decimal. Partial days count as whole days and the order of the two dates
// does not matter.
func AgeInMonths(dob, measuredAt time.Time) float64 {
	days := math.Ceil(math.Abs(measuredAt.Sub(dob).Hours()) / 24)
	return round(days/DaysPerMonth, 1)
}

// DetailedAge renders the calendar age between birth and ref in the clinic's
// wording, e.g. "2 tahun, 3 bulan, 4 hari". Zero components are omitted
// except that a same-day age reads "0 hari".
func DetailedAge(birth, ref time.Time) string {
	years := ref.Year() - birth.Year()
	months := int(ref.Month()) - int(birth.Month())
	days := ref.Day() - birth.Day()

	if days < 0 {
		months--
		// Day 0 of ref's month is the last day of the month before it.
		days += time.Date(ref.Year(), ref.Month(), 0, 0, 0, 0, 0, time.UTC).Day()
	}
	if months < 0 {
		years--
		months += 12
	}

	var parts []string
	if years > 0 {
		parts = append(parts, fmt.Sprintf("%d tahun", years))
	}
	if months > 0 {
		parts = append(parts, fmt.Sprintf("%d bulan", months))
	}
	if days > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d hari", days))
	}
	return strings.Join(parts, ", ")
}
