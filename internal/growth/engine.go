// Package growth implements the anthropometric interpretation engine.
//
// It locates a child's weight, height and BMI against LMS reference tables
// (WHO 0-60 months, CDC beyond 60 months), converts measurements to z-scores,
// classifies nutritional status per several clinical indices, and analyses
// weight trends across visits. Every operation is a pure function of its
// inputs and the immutable reference tables, so an Engine is safe for
// concurrent use.
package growth

import (
	"log/slog"

	"growthwatch/internal/reference"
	"growthwatch/internal/types"
)

// TableSource provides validated reference tables. *reference.Store satisfies it.
type TableSource interface {
	Table(family types.Family, metric types.Metric, sex types.Sex) ([]reference.Point, error)
	LengthTable(sex types.Sex) ([]reference.LengthPoint, error)
}

// Engine evaluates measurements against a TableSource.
type Engine struct {
	tables TableSource
	logger *slog.Logger
}

// NewEngine creates an Engine. A nil logger falls back to slog.Default().
func NewEngine(tables TableSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tables: tables,
		logger: logger,
	}
}

// Default returns an Engine over the embedded reference bundle.
func Default() *Engine {
	return NewEngine(reference.Default(), nil)
}

// lmsAt selects the family for ageMonths and interpolates the metric's table.
func (e *Engine) lmsAt(metric types.Metric, sex types.Sex, ageMonths float64) (LMS, error) {
	rows, err := e.StandardData(metric, sex, ageMonths)
	if err != nil {
		return LMS{}, err
	}
	if n := len(rows); n > 0 && (ageMonths < rows[0].AgeMonths || ageMonths > rows[n-1].AgeMonths) {
		e.logger.Debug("age outside reference table, using edge row",
			"metric", metric,
			"sex", sex,
			"age_months", ageMonths,
			"table_first_month", rows[0].AgeMonths,
			"table_last_month", rows[n-1].AgeMonths,
		)
	}
	return Interpolate(ageMonths, rows), nil
}
