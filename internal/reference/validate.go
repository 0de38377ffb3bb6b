package reference

import (
	"fmt"

	"growthwatch/internal/types"
)

// NewStore validates b and builds an immutable Store from it.
//
// Every (family, metric, sex) combination must be present and non-empty,
// keys must be strictly increasing, and every row needs S > 0 and M > 0.
// Weight-for-length is required for both sexes.
func NewStore(b *Bundle) (*Store, error) {
	if b == nil {
		return nil, &ConfigurationError{Reason: "nil bundle"}
	}

	s := &Store{
		version: b.Version,
		source:  b.Source,
		tables:  make(map[tableKey][]Point, len(b.Tables)),
		lengths: make(map[types.Sex][]LengthPoint, 2),
	}

	for _, f := range b.Approximate {
		if !f.Valid() {
			return nil, &ConfigurationError{Family: f, Reason: "unknown approximate family"}
		}
		s.approximate = append(s.approximate, f)
	}

	for _, t := range b.Tables {
		cfgErr := &ConfigurationError{Family: t.Family, Metric: t.Metric, Sex: t.Sex}
		if !t.Family.Valid() || !t.Metric.Valid() || !t.Sex.Valid() {
			cfgErr.Reason = "unknown table identity"
			return nil, cfgErr
		}
		key := tableKey{t.Family, t.Metric, t.Sex}
		if _, dup := s.tables[key]; dup {
			cfgErr.Reason = "duplicate table"
			return nil, cfgErr
		}
		if err := validateRows(t.Rows); err != nil {
			cfgErr.Reason = err.Error()
			return nil, cfgErr
		}
		rows := make([]Point, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = Point{AgeMonths: r[0], L: r[1], M: r[2], S: r[3]}
		}
		s.tables[key] = rows
	}

	for _, t := range b.WeightForLength {
		cfgErr := &ConfigurationError{Metric: types.MetricWeight, Sex: t.Sex}
		if !t.Sex.Valid() {
			cfgErr.Reason = "unknown weight-for-length sex"
			return nil, cfgErr
		}
		if _, dup := s.lengths[t.Sex]; dup {
			cfgErr.Reason = "duplicate weight-for-length table"
			return nil, cfgErr
		}
		if err := validateRows(t.Rows); err != nil {
			cfgErr.Reason = "weight-for-length " + err.Error()
			return nil, cfgErr
		}
		rows := make([]LengthPoint, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = LengthPoint{LengthCm: r[0], L: r[1], M: r[2], S: r[3]}
		}
		s.lengths[t.Sex] = rows
	}

	for _, f := range types.AllFamilies {
		for _, m := range types.AllMetrics {
			for _, sex := range []types.Sex{types.SexMale, types.SexFemale} {
				if _, ok := s.tables[tableKey{f, m, sex}]; !ok {
					return nil, &ConfigurationError{Family: f, Metric: m, Sex: sex, Reason: ReasonTableMissing}
				}
			}
		}
	}
	for _, sex := range []types.Sex{types.SexMale, types.SexFemale} {
		if _, ok := s.lengths[sex]; !ok {
			return nil, &ConfigurationError{Sex: sex, Reason: "weight-for-length table missing"}
		}
	}

	return s, nil
}

func validateRows(rows [][4]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("table empty")
	}
	for i, r := range rows {
		if r[2] <= 0 {
			return fmt.Errorf("row %d: M must be positive, got %g", i, r[2])
		}
		if r[3] <= 0 {
			return fmt.Errorf("row %d: S must be positive, got %g", i, r[3])
		}
		if i > 0 && r[0] <= rows[i-1][0] {
			return fmt.Errorf("row %d: key %g not strictly greater than %g", i, r[0], rows[i-1][0])
		}
	}
	return nil
}
