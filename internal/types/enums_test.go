package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSex(t *testing.T) {
	tests := []struct {
		raw     string
		want    Sex
		wantErr bool
	}{
		{"male", SexMale, false},
		{"M", SexMale, false},
		{"L", SexMale, false},
		{"female", SexFemale, false},
		{"P", SexFemale, false},
		{"perempuan", SexFemale, false},
		{"", "", true},
		{"other", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSex(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, strings.HasPrefix(err.Error(), string(ErrCodeValidationInvalidSex)))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMetricAndFamily(t *testing.T) {
	for _, m := range AllMetrics {
		got, err := ParseMetric(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMetric("head_circumference")
	assert.Error(t, err)

	for _, f := range AllFamilies {
		got, err := ParseFamily(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err = ParseFamily("iotf")
	assert.Error(t, err)
}

func TestValidateMeasurementRange(t *testing.T) {
	assert.NoError(t, ValidateMeasurementRange("age_months", 0))
	assert.NoError(t, ValidateMeasurementRange("age_months", 240))
	assert.Error(t, ValidateMeasurementRange("age_months", 240.5))
	assert.Error(t, ValidateMeasurementRange("weight_kg", -1))
	assert.NoError(t, ValidateMeasurementRange("z", -10))
	assert.Error(t, ValidateMeasurementRange("head_cm", 40))

	err := ValidateMeasurementRange("height_cm", 900)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ErrCodeValidationOutOfRange))
}

func TestMetricRangeName(t *testing.T) {
	assert.Equal(t, "weight_kg", MetricRangeName(MetricWeight))
	assert.Equal(t, "height_cm", MetricRangeName(MetricHeight))
	assert.Equal(t, "bmi", MetricRangeName(MetricBMI))
}
