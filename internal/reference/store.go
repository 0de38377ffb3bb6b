// Package reference holds the LMS reference tables the growth engine reads.
//
// Tables are loaded once per process into an immutable Store, validated at
// load time, and shared read-only. The default bundle (WHO 0-60 months, CDC
// 24-240 months, WHO weight-for-length 50-110 cm) is embedded in the binary;
// alternative bundles can be read from a local file or fetched from a URL.
package reference

import (
	"sort"

	"growthwatch/internal/types"
)

// Point is one row of an age-indexed LMS table.
type Point struct {
	AgeMonths float64 `json:"age_months"`
	L         float64 `json:"l"`
	M         float64 `json:"m"`
	S         float64 `json:"s"`
}

// LengthPoint is one row of the length-indexed weight-for-length table.
type LengthPoint struct {
	LengthCm float64 `json:"length_cm"`
	L        float64 `json:"l"`
	M        float64 `json:"m"`
	S        float64 `json:"s"`
}

type tableKey struct {
	family types.Family
	metric types.Metric
	sex    types.Sex
}

// Store is an immutable, validated set of reference tables.
// It is safe for concurrent use; every accessor returns a copy.
type Store struct {
	version     string
	source      string
	approximate []types.Family
	tables      map[tableKey][]Point
	lengths     map[types.Sex][]LengthPoint
}

// Version returns the bundle version string.
func (s *Store) Version() string { return s.version }

// Source returns the provenance note carried by the bundle.
func (s *Store) Source() string { return s.source }

// Approximate returns the families the bundle flags as approximated.
func (s *Store) Approximate() []types.Family {
	return append([]types.Family(nil), s.approximate...)
}

// Table returns a copy of the rows for (family, metric, sex), sorted by age.
// A missing table is a configuration defect and yields *ConfigurationError.
func (s *Store) Table(family types.Family, metric types.Metric, sex types.Sex) ([]Point, error) {
	rows, ok := s.tables[tableKey{family, metric, sex}]
	if !ok || len(rows) == 0 {
		return nil, &ConfigurationError{
			Family: family,
			Metric: metric,
			Sex:    sex,
			Reason: ReasonTableMissing,
		}
	}
	out := make([]Point, len(rows))
	copy(out, rows)
	return out, nil
}

// LengthTable returns a copy of the weight-for-length rows for sex.
func (s *Store) LengthTable(sex types.Sex) ([]LengthPoint, error) {
	rows, ok := s.lengths[sex]
	if !ok || len(rows) == 0 {
		return nil, &ConfigurationError{
			Sex:    sex,
			Reason: "weight-for-length table missing",
		}
	}
	out := make([]LengthPoint, len(rows))
	copy(out, rows)
	return out, nil
}

// Summary describes one table for health and listing endpoints.
type Summary struct {
	Family types.Family `json:"family"`
	Metric types.Metric `json:"metric"`
	Sex    types.Sex    `json:"sex"`
	Rows   int          `json:"rows"`
	MinKey float64      `json:"min_key"`
	MaxKey float64      `json:"max_key"`
}

// Summaries lists the age-indexed tables in a stable order.
func (s *Store) Summaries() []Summary {
	out := make([]Summary, 0, len(s.tables))
	for k, rows := range s.tables {
		out = append(out, Summary{
			Family: k.family,
			Metric: k.metric,
			Sex:    k.sex,
			Rows:   len(rows),
			MinKey: rows[0].AgeMonths,
			MaxKey: rows[len(rows)-1].AgeMonths,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family > out[j].Family // who before cdc
		}
		if out[i].Metric != out[j].Metric {
			return out[i].Metric < out[j].Metric
		}
		return out[i].Sex < out[j].Sex
	})
	return out
}
