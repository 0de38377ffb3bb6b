package growth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"growthwatch/internal/types"
)

func TestClassifyHeightForAge_Boundaries(t *testing.T) {
	tests := []struct {
		z    float64
		want string
	}{
		{3.01, LabelVeryTall},
		{3, LabelNormal},
		{0, LabelNormal},
		{-2, LabelNormal},
		{-2.01, LabelStunted},
		{-3, LabelStunted},
		{-3.01, LabelSeverelyStunted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyHeightForAge(tt.z), "z=%v", tt.z)
	}
}

func TestClassifyWeightForAge_Boundaries(t *testing.T) {
	tests := []struct {
		z    float64
		want string
	}{
		{1.01, LabelRiskWeight},
		{1, LabelNormal},
		{-2, LabelNormal},
		{-2.01, LabelUnderweight},
		{-3, LabelUnderweight},
		{-3.01, LabelSeverelyUnderweight},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyWeightForAge(tt.z), "z=%v", tt.z)
	}
}

func TestClassifyWastingIndices_Boundaries(t *testing.T) {
	tests := []struct {
		z    float64
		want string
	}{
		{3.01, LabelObese},
		{3, LabelOverweight},
		{2.01, LabelOverweight},
		{2, LabelRiskOverweight},
		{1.01, LabelRiskOverweight},
		{1, LabelWellNourished},
		{-2, LabelWellNourished},
		{-2.01, LabelWasted},
		{-3, LabelWasted},
		{-3.01, LabelSeverelyWasted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyBMIForAge(tt.z), "bmi z=%v", tt.z)
		assert.Equal(t, tt.want, ClassifyWeightForHeight(tt.z), "wfh z=%v", tt.z)
	}
}

func TestClassifyWaterlow_Boundaries(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{120.1, LabelWaterlowObese},
		{120, LabelWaterlowOverweight},
		{110.1, LabelWaterlowOverweight},
		{110, LabelWaterlowNormal},
		{90, LabelWaterlowNormal},
		{89.9, LabelWaterlowUndernourished},
		{70, LabelWaterlowUndernourished},
		{69.9, LabelWaterlowSevere},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyWaterlow(tt.percent), "percent=%v", tt.percent)
	}
}

func TestApproximateWFHZ_Boundaries(t *testing.T) {
	tests := []struct {
		percent float64
		want    float64
	}{
		{120.1, 3.5},
		{120, 2.5},
		{110.1, 2.5},
		{110, 0.5},
		{100.1, 0.5},
		{100, -0.5},
		{90, -0.5},
		{89.9, -1.5},
		{80, -1.5},
		{79.9, -2.5},
		{70, -2.5},
		{69.9, -3.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ApproximateWFHZ(tt.percent), "percent=%v", tt.percent)
	}
}

func TestSDBand_Boundaries(t *testing.T) {
	tests := []struct {
		z    float64
		want string
	}{
		{3.01, "> 3 SD"},
		{3, "2-3 SD"},
		{2, "1-2 SD"},
		{1, "-1 to 1 SD"},
		{-1, "-1 to 1 SD"},
		{-1.01, "-2 to -1 SD"},
		{-2, "-2 to -1 SD"},
		{-2.01, "-3 to -2 SD"},
		{-3, "-3 to -2 SD"},
		{-3.01, "< -3 SD"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SDBand(tt.z), "z=%v", tt.z)
	}
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, types.SeveritySevere, SeverityOf(LabelSeverelyStunted))
	assert.Equal(t, types.SeveritySevere, SeverityOf(LabelWaterlowSevere))
	assert.Equal(t, types.SeverityModerate, SeverityOf(LabelWasted))
	assert.Equal(t, types.SeverityModerate, SeverityOf(LabelUnderweight))
	assert.Equal(t, types.SeverityElevated, SeverityOf(LabelRiskOverweight))
	assert.Equal(t, types.SeverityElevated, SeverityOf(LabelRiskWeight))
	assert.Equal(t, types.SeverityHigh, SeverityOf(LabelObese))
	assert.Equal(t, types.SeverityHigh, SeverityOf(LabelWaterlowObese))
	assert.Equal(t, types.SeverityNormal, SeverityOf(LabelVeryTall))
	assert.Equal(t, types.SeverityNormal, SeverityOf("something else"))
}

func TestClassifyTrend_Boundaries(t *testing.T) {
	tests := []struct {
		zDiff, zPrevious float64
		want             types.TrendStatus
	}{
		{-0.6701, 0, types.TrendFaltering},
		{-0.67, 0, types.TrendNeutral},
		{-0.7, -2.5, types.TrendFaltering},
		{1.01, -3, types.TrendConcerning},
		{1.0, 0, types.TrendNeutral},
		{1.0, -2.5, types.TrendImproving},
		{0.19, -3, types.TrendStable},
		{-0.19, 0, types.TrendStable},
		{0.2, 0, types.TrendNeutral},
		{-0.2, 0, types.TrendNeutral},
		{0.5, -2, types.TrendNeutral},
		{0.5, -2.01, types.TrendImproving},
		{-0.5, -3, types.TrendNeutral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyTrend(tt.zDiff, tt.zPrevious), "zDiff=%v zPrevious=%v", tt.zDiff, tt.zPrevious)
	}
}

func TestTrendText_EmbedsChange(t *testing.T) {
	msg, desc := trendText(types.TrendFaltering, -0.7)
	assert.Equal(t, "Waspada: Tren Melambat", msg)
	assert.Contains(t, desc, "sebesar 0.70 SD")

	msg, desc = trendText(types.TrendConcerning, 1.25)
	assert.Equal(t, "Waspada: Kenaikan Terlalu Cepat", msg)
	assert.Contains(t, desc, "naik 1.25 SD")
}
