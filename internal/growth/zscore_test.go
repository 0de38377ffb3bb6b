package growth

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthwatch/internal/types"
)

func TestZScoreLMS_AtMedianIsZero(t *testing.T) {
	for _, lms := range []LMS{{L: 1, M: 87.1, S: 0.035}, {L: 0, M: 10, S: 0.1}, {L: -1.2, M: 16, S: 0.08}} {
		z, err := ZScoreLMS(lms.M, lms)
		require.NoError(t, err)
		assert.InDelta(t, 0, z, 1e-12)
	}
}

func TestZScoreLMS_Branches(t *testing.T) {
	// Power branch: L=1 reduces to (x/M - 1)/S.
	z, err := ZScoreLMS(72, LMS{L: 1, M: 87.1161, S: 0.03507})
	require.NoError(t, err)
	assert.InDelta(t, -4.947725143708087, z, 1e-9)

	// Log branch: |L| < 0.01.
	z, err = ZScoreLMS(11, LMS{L: 0.005, M: 10, S: 0.1})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.1)/0.1, z, 1e-12)
}

func TestZScoreLMS_DomainErrors(t *testing.T) {
	tests := []struct {
		name      string
		x         float64
		lms       LMS
		reference bool
	}{
		{"zero measurement", 0, LMS{L: 1, M: 10, S: 0.1}, false},
		{"negative measurement", -3, LMS{L: 1, M: 10, S: 0.1}, false},
		{"NaN measurement", math.NaN(), LMS{L: 1, M: 10, S: 0.1}, false},
		{"zero median", 5, LMS{L: 1, M: 0, S: 0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, err := ZScoreLMS(tt.x, tt.lms)
			require.Error(t, err)
			assert.False(t, math.IsNaN(z))

			var domainErr *DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.reference, domainErr.IsReference())
		})
	}
}

func TestMeasurementForZLMS_RoundTrip(t *testing.T) {
	cases := []LMS{
		{L: 1, M: 87.1161, S: 0.03507},
		{L: 0.3487, M: 3.3464, S: 0.14602},
		{L: 0.004, M: 10, S: 0.1},
		{L: -0.3053, M: 13.4069, S: 0.0956},
		{L: -2.2, M: 15.2, S: 0.085},
	}
	for _, lms := range cases {
		for _, z := range []float64{-3, -2, -1, -0.5, 0, 0.5, 1, 2, 3} {
			x := MeasurementForZLMS(z, lms)
			back, err := ZScoreLMS(x, lms)
			require.NoError(t, err)
			assert.InDelta(t, z, back, 1e-6, "lms=%+v z=%v", lms, z)
		}
	}
}

func TestMeasurementForZLMS_FallbackWhenBaseNonPositive(t *testing.T) {
	lms := LMS{L: 2, M: 10, S: 0.2}
	// 1 + 2*0.2*(-3) = -0.2
	got := MeasurementForZLMS(-3, lms)
	assert.InDelta(t, 10*math.Exp(0.2*-3), got, 1e-12)
}

func TestCurveMeasurementForZ_GuardsRunaway(t *testing.T) {
	lms := LMS{L: -0.5, M: 15, S: 0.6}
	// 1 + (-0.5)(0.6)(3) = 0.1, and 0.1^-2 puts the value at a hundred medians.
	assert.Greater(t, MeasurementForZLMS(3, lms), 150.0)
	assert.InDelta(t, 15*math.Exp(0.6*3), curveMeasurementForZ(3, lms), 1e-9)
}

func TestZScore_Monotonic(t *testing.T) {
	e := Default()
	for _, metric := range types.AllMetrics {
		for _, age := range []float64{0, 11.5, 60, 61, 150} {
			prev := math.Inf(-1)
			lo, _ := e.MeasurementForZ(-3, age, types.SexFemale, metric)
			hi, _ := e.MeasurementForZ(3, age, types.SexFemale, metric)
			for i := 0; i <= 20; i++ {
				x := lo + (hi-lo)*float64(i)/20
				z, err := e.ZScore(x, age, types.SexFemale, metric)
				require.NoError(t, err)
				assert.Greater(t, z, prev, "metric=%s age=%v x=%v", metric, age, x)
				prev = z
			}
		}
	}
}

func TestEngine_RoundTripAcrossTables(t *testing.T) {
	e := Default()
	for _, sex := range []types.Sex{types.SexMale, types.SexFemale} {
		for _, metric := range types.AllMetrics {
			for _, age := range []float64{0, 24, 59.5, 60.01, 120, 240} {
				x, err := e.MeasurementForZ(1.5, age, sex, metric)
				require.NoError(t, err)
				z, err := e.ZScore(x, age, sex, metric)
				require.NoError(t, err)
				assert.InDelta(t, 1.5, z, 1e-6)
			}
		}
	}
}

func TestSelectFamily(t *testing.T) {
	assert.Equal(t, types.FamilyWHO, SelectFamily(0))
	assert.Equal(t, types.FamilyWHO, SelectFamily(60))
	assert.Equal(t, types.FamilyCDC, SelectFamily(60.01))
	assert.Equal(t, types.FamilyCDC, SelectFamily(240))
}

func TestEngine_StandardSwitchAtSixtyMonths(t *testing.T) {
	e := Default()

	atSixty, err := e.ZScore(110, 60, types.SexMale, types.MetricHeight)
	require.NoError(t, err)
	assert.InDelta(t, 0.007812037151633709, atSixty, 1e-9)

	justAfter, err := e.ZScore(110, 60.01, types.SexMale, types.MetricHeight)
	require.NoError(t, err)
	assert.InDelta(t, 0.17306685539054537, justAfter, 1e-9)

	rows, err := e.StandardData(types.MetricHeight, types.SexMale, 60)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rows[0].AgeMonths)

	rows, err = e.StandardData(types.MetricHeight, types.SexMale, 60.01)
	require.NoError(t, err)
	assert.Equal(t, 24.0, rows[0].AgeMonths)
}
