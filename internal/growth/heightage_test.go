package growth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthwatch/internal/reference"
	"growthwatch/internal/types"
)

func TestHeightAge(t *testing.T) {
	e := Default()

	tests := []struct {
		name   string
		height float64
		sex    types.Sex
		want   float64
	}{
		{"below first WHO median clamps to birth", 45, types.SexMale, 0},
		{"exact WHO median", 87.1161, types.SexMale, 24},
		{"between WHO medians", 72, types.SexMale, 9.02384761904762},
		{"girl between WHO medians", 80, types.SexFemale, 17.317291927861895},
		{"taller than WHO resolves against CDC", 120, types.SexMale, 80.51612903225808},
		{"beyond last CDC median clamps", 200, types.SexMale, 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.HeightAge(tt.height, tt.sex)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestIdealBodyWeight(t *testing.T) {
	e := Default()

	tests := []struct {
		name   string
		height float64
		sex    types.Sex
		want   float64
	}{
		{"weight-for-length interpolation", 72, types.SexMale, 8.98},
		{"girl weight-for-length", 75, types.SexFemale, 9.15},
		{"upper end of weight-for-length", 110, types.SexMale, 18.7},
		{"below weight-for-length clamps", 45, types.SexMale, 3.4},
		{"above 110 cm uses weight at height-age", 120, types.SexMale, 22.261290322580646},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.IdealBodyWeight(tt.height, tt.sex)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// missingTables serves the embedded store but hides selected tables.
type missingTables struct {
	store  *reference.Store
	family types.Family
	metric types.Metric
	noWFL  bool
}

func (m missingTables) Table(f types.Family, metric types.Metric, s types.Sex) ([]reference.Point, error) {
	if f == m.family && metric == m.metric {
		return nil, &reference.ConfigurationError{Family: f, Metric: metric, Sex: s, Reason: "table missing"}
	}
	return m.store.Table(f, metric, s)
}

func (m missingTables) LengthTable(s types.Sex) ([]reference.LengthPoint, error) {
	if m.noWFL {
		return nil, &reference.ConfigurationError{Sex: s, Reason: "weight-for-length table missing"}
	}
	return m.store.LengthTable(s)
}

func TestEngine_MissingTablesSurfaceConfigurationErrors(t *testing.T) {
	var cfgErr *reference.ConfigurationError

	e := NewEngine(missingTables{store: reference.Default(), family: types.FamilyCDC, metric: types.MetricHeight}, nil)
	_, err := e.HeightAge(150, types.SexFemale)
	require.True(t, errors.As(err, &cfgErr))

	// WHO-only heights never touch the CDC table.
	_, err = e.HeightAge(80, types.SexFemale)
	require.NoError(t, err)

	e = NewEngine(missingTables{store: reference.Default(), noWFL: true}, nil)
	_, err = e.IdealBodyWeight(80, types.SexMale)
	require.True(t, errors.As(err, &cfgErr))

	_, err = e.Interpret(9, 80, 12, types.SexMale)
	require.True(t, errors.As(err, &cfgErr))
}
