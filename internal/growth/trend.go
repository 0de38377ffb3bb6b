package growth

import (
	"fmt"
	"math"
	"sort"

	"growthwatch/internal/types"
)

// Trend thresholds on the change in weight-for-age z between the two most
// recent visits.
const (
	FalteringZDrop  = -0.67
	RapidGainZRise  = 1.0
	StableZBand     = 0.2
	CatchUpZCeiling = -2.0
	MinTrendPoints  = 2
)

// WeightPoint is one weight observation at a given age.
type WeightPoint struct {
	AgeMonths float64 `json:"age_months"`
	WeightKg  float64 `json:"weight_kg"`
}

// TrendResult is the verdict of a weight trend analysis.
// Velocity and ZScoreChange are nil when no comparison could be made.
type TrendResult struct {
	Status             types.TrendStatus `json:"status"`
	Message            string            `json:"message"`
	Description        string            `json:"description"`
	VelocityKgPerMonth *float64          `json:"velocity,omitempty"`
	ZScoreChange       *float64          `json:"z_score_change,omitempty"`
}

// Trend compares the weight-for-age z-scores of the two most recent points.
//
// Points with non-positive weight are skipped as data-quality gaps. The first
// matching rule wins: a drop beyond 0.67 SD is faltering, a rise beyond 1 SD
// is concerning, a change under 0.2 SD is stable, any rise from below -2 SD
// is improving, and anything else is neutral.
func (e *Engine) Trend(history []WeightPoint, sex types.Sex) (*TrendResult, error) {
	points := make([]WeightPoint, 0, len(history))
	for _, p := range history {
		if p.WeightKg > 0 {
			points = append(points, p)
		}
	}

	if len(points) < MinTrendPoints {
		return &TrendResult{
			Status:      types.TrendNeutral,
			Message:     "Data Berkelanjutan Belum Cukup",
			Description: "Butuh minimal 2 data untuk menganalisis tren pertumbuhan.",
		}, nil
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].AgeMonths < points[j].AgeMonths })
	latest := points[len(points)-1]
	previous := points[len(points)-2]

	ageDiff := latest.AgeMonths - previous.AgeMonths
	if ageDiff <= 0 {
		return &TrendResult{
			Status:      types.TrendNeutral,
			Message:     "Data Invalid",
			Description: "Selisih umur tidak valid.",
		}, nil
	}

	zLatest, err := e.ZScore(latest.WeightKg, latest.AgeMonths, sex, types.MetricWeight)
	if err != nil {
		return nil, fmt.Errorf("latest weight z-score: %w", err)
	}
	zPrevious, err := e.ZScore(previous.WeightKg, previous.AgeMonths, sex, types.MetricWeight)
	if err != nil {
		return nil, fmt.Errorf("previous weight z-score: %w", err)
	}

	zDiff := zLatest - zPrevious
	velocity := (latest.WeightKg - previous.WeightKg) / ageDiff
	change := round(zDiff, 2)

	result := &TrendResult{
		VelocityKgPerMonth: &velocity,
		ZScoreChange:       &change,
	}

	result.Status = classifyTrend(zDiff, zPrevious)
	result.Message, result.Description = trendText(result.Status, zDiff)
	return result, nil
}

// classifyTrend applies the trend rules in priority order. Every comparison
// is strict, so a change of exactly -0.67, 1.0 or 0.2 SD falls through to the
// next rule, and a previous z of exactly -2 does not count as catch-up.
func classifyTrend(zDiff, zPrevious float64) types.TrendStatus {
	switch {
	case zDiff < FalteringZDrop:
		return types.TrendFaltering
	case zDiff > RapidGainZRise:
		return types.TrendConcerning
	case math.Abs(zDiff) < StableZBand:
		return types.TrendStable
	case zDiff > 0 && zPrevious < CatchUpZCeiling:
		return types.TrendImproving
	default:
		return types.TrendNeutral
	}
}

func trendText(status types.TrendStatus, zDiff float64) (message, description string) {
	switch status {
	case types.TrendFaltering:
		return "Waspada: Tren Melambat",
			fmt.Sprintf("Terjadi penurunan Z-Score sebesar %.2f SD sejak kunjungan terakhir. Risiko growth faltering.", math.Abs(zDiff))
	case types.TrendConcerning:
		return "Waspada: Kenaikan Terlalu Cepat",
			fmt.Sprintf("Z-Score naik %.2f SD. Perlu evaluasi diet untuk mencegah obesitas.", zDiff)
	case types.TrendStable:
		return "Pertumbuhan Stabil", "Mengikuti kurva dengan baik."
	case types.TrendImproving:
		return "Kabar Baik: Ada Perbaikan", "Anak mulai mengejar (catch-up growth). Teruskan intervensi nutrisi."
	default:
		return "Tren Normal", "Anak tumbuh sesuai jalur pertumbuhannya."
	}
}
