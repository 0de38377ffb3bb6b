package growth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthwatch/internal/types"
)

// A 24-month-old boy at 9.1 kg and 72.0 cm: severely stunted, underweight,
// but proportionate for his length.
func TestInterpret_StuntedBoyAtTwoYears(t *testing.T) {
	got, err := Default().Interpret(9.1, 72.0, 24, types.SexMale)
	require.NoError(t, err)
	require.True(t, got.Available)

	assert.Equal(t, types.FamilyWHO, got.Family)

	assert.Equal(t, LabelSeverelyStunted, got.HeightForAge.Label)
	assert.Equal(t, -4.95, got.HeightForAge.ZScore)
	assert.Equal(t, "< -3 SD", got.HeightForAge.SDBand)
	assert.Equal(t, types.SeveritySevere, got.HeightForAge.Severity)
	assert.Equal(t, "TB: 72.0 cm, TB median: 87.1 cm, Z-Score: -4.95 (< -3 SD)", got.HeightForAge.Reason)

	assert.Equal(t, LabelUnderweight, got.WeightForAge.Label)
	assert.Equal(t, -2.54, got.WeightForAge.ZScore)
	assert.Equal(t, "BB: 9.1 kg, BB median: 12.2 kg, Z-Score: -2.54 (-3 to -2 SD)", got.WeightForAge.Reason)

	assert.Equal(t, LabelRiskOverweight, got.BMIForAge.Label)
	assert.Equal(t, 1.14, got.BMIForAge.ZScore)
	assert.Equal(t, "IMT: 17.6 kg/m², Z-Score: 1.14 (1-2 SD)", got.BMIForAge.Reason)
	assert.Equal(t, 17.55, got.BMI)

	assert.Equal(t, LabelWellNourished, got.WeightForHeight.Label)
	assert.Equal(t, 0.5, got.WeightForHeight.ZScore)
	assert.Equal(t, "BB: 9.1 kg / IBW: 9.0 kg = 101.3%", got.WeightForHeight.Reason)

	assert.Equal(t, LabelWaterlowNormal, got.Waterlow.Label)
	assert.Equal(t, 101.3, got.Waterlow.Percent)
	assert.Equal(t, "BB Aktual: 9.1 kg / BB Ideal (Height Age): 9.0 kg × 100 = 101.3%", got.Waterlow.Reason)

	assert.Equal(t, 8.98, got.IdealBodyWeightKg)
	assert.Equal(t, 9.0, got.HeightAgeMonths)
}

func TestInterpret_MissingMeasurements(t *testing.T) {
	e := Default()

	got, err := e.Interpret(0, 80, 12, types.SexFemale)
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.Equal(t, NoteMissingWeight, got.Note)
	assert.Empty(t, got.HeightForAge.Label)

	got, err = e.Interpret(9, -1, 12, types.SexFemale)
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.Equal(t, NoteMissingHeight, got.Note)
}

func TestInterpret_SchoolAgeUsesCDC(t *testing.T) {
	got, err := Default().Interpret(22, 120, 84, types.SexMale)
	require.NoError(t, err)
	assert.Equal(t, types.FamilyCDC, got.Family)
	assert.InDelta(t, 80.5, got.HeightAgeMonths, 1e-9)
	assert.InDelta(t, 22.26, got.IdealBodyWeightKg, 1e-9)
	assert.Equal(t, LabelWaterlowNormal, got.Waterlow.Label)
}

func TestWaterlowSummary(t *testing.T) {
	got, err := Default().WaterlowSummary(9.1, 72.0, 24, types.SexMale)
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.Equal(t, LabelWaterlowNormal, got.Wasting)
	assert.Equal(t, LabelSeverelyStunted, got.Stunting)
	assert.Equal(t, "TB: 72.0 cm, TB median: 87.1 cm, Z-Score: -4.95 (< -3 SD)", got.StuntingReason)
	assert.Contains(t, got.WastingReason, "= 101.3%")
	assert.Equal(t, 8.98, got.IdealBodyWeightKg)
	assert.Equal(t, 9.0, got.HeightAgeMonths)

	missing, err := Default().WaterlowSummary(5, 0, 6, types.SexMale)
	require.NoError(t, err)
	assert.False(t, missing.Available)
	assert.Equal(t, NoteMissingHeight, missing.Note)
}
