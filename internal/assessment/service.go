// Package assessment is the service layer between transports (HTTP, SQS) and
// the growth engine. It validates requests, resolves visit ages from dates,
// runs batch interpretations concurrently, and maps engine failures to
// AppErrors.
package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"growthwatch/internal/growth"
	"growthwatch/internal/reference"
	"growthwatch/internal/types"
)

const (
	// DefaultBatchMaxItems bounds a batch when no limit is configured.
	DefaultBatchMaxItems = 100

	// DefaultBatchConcurrency is the number of items interpreted in parallel.
	DefaultBatchConcurrency = 8

	// DateLayout is the calendar date format accepted for birth and visit dates.
	DateLayout = "2006-01-02"
)

// Engine is the subset of *growth.Engine the service depends on.
type Engine interface {
	StandardData(metric types.Metric, sex types.Sex, ageMonths float64) ([]reference.Point, error)
	ZScore(value, ageMonths float64, sex types.Sex, metric types.Metric) (float64, error)
	MeasurementForZ(z, ageMonths float64, sex types.Sex, metric types.Metric) (float64, error)
	HeightAge(heightCm float64, sex types.Sex) (float64, error)
	IdealBodyWeight(heightCm float64, sex types.Sex) (float64, error)
	Interpret(weightKg, heightCm, ageMonths float64, sex types.Sex) (*growth.Interpretation, error)
	WaterlowSummary(weightKg, heightCm, ageMonths float64, sex types.Sex) (*growth.WaterlowSummary, error)
	Trend(history []growth.WeightPoint, sex types.Sex) (*growth.TrendResult, error)
	Curves(metric types.Metric, sex types.Sex, family types.Family) (*growth.CurveSet, error)
}

// Measurement is a single interpretation request.
type Measurement struct {
	Sex       types.Sex `json:"sex" validate:"required,oneof=male female"`
	AgeMonths float64   `json:"age_months" validate:"gte=0,lte=240"`
	WeightKg  float64   `json:"weight_kg" validate:"gte=0,lte=250"`
	HeightCm  float64   `json:"height_cm" validate:"gte=0,lte=250"`
}

// StandardResult is a reference table lookup.
type StandardResult struct {
	Family types.Family      `json:"family"`
	Metric types.Metric      `json:"metric"`
	Sex    types.Sex         `json:"sex"`
	Rows   []reference.Point `json:"rows"`
}

// TrendRequest asks for a weight trend over visits.
type TrendRequest struct {
	Sex     types.Sex            `json:"sex" validate:"required,oneof=male female"`
	History []growth.WeightPoint `json:"history" validate:"max=500,dive"`
}

// Visit is one dated clinic measurement. Zero weight or height means the
// quantity was not measured.
type Visit struct {
	ID       string  `json:"id,omitempty"`
	Date     string  `json:"date" validate:"required"`
	WeightKg float64 `json:"weight_kg" validate:"gte=0,lte=250"`
	HeightCm float64 `json:"height_cm" validate:"gte=0,lte=250"`
}

// AssessRequest carries a subject's visit history.
type AssessRequest struct {
	Sex         types.Sex `json:"sex" validate:"required,oneof=male female"`
	DateOfBirth string    `json:"date_of_birth" validate:"required"`
	Visits      []Visit   `json:"visits" validate:"required,min=1,max=500,dive"`
}

// VisitSummary is a visit with its derived age and BMI.
type VisitSummary struct {
	ID          string  `json:"id,omitempty"`
	Date        string  `json:"date"`
	AgeMonths   float64 `json:"age_months"`
	DetailedAge string  `json:"detailed_age"`
	WeightKg    float64 `json:"weight_kg"`
	HeightCm    float64 `json:"height_cm"`
	BMI         float64 `json:"bmi"`
}

// AssessResult is the clinical picture for a subject: every visit, the
// interpretation of the latest complete visit and the weight trend.
type AssessResult struct {
	Sex            types.Sex              `json:"sex"`
	Visits         []VisitSummary         `json:"visits"`
	Latest         *VisitSummary          `json:"latest,omitempty"`
	Interpretation *growth.Interpretation `json:"interpretation"`
	Trend          *growth.TrendResult    `json:"trend,omitempty"`
}

// BatchItem is one entry of a batch interpretation; ID is caller-supplied.
type BatchItem struct {
	ID string `json:"id" validate:"required,max=128"`
	Measurement
}

// BatchResult separates successes from failures.
type BatchResult struct {
	Results map[string]*growth.Interpretation `json:"results"`
	Errors  map[string]ErrorDetail            `json:"errors,omitempty"`
}

// ErrorDetail is a lightweight error structure used in batch error maps.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Service defines the growth operations exposed to transports.
type Service interface {
	StandardData(ctx context.Context, metric types.Metric, sex types.Sex, ageMonths float64) (*StandardResult, error)
	ZScore(ctx context.Context, metric types.Metric, sex types.Sex, ageMonths, value float64) (float64, error)
	MeasurementForZ(ctx context.Context, metric types.Metric, sex types.Sex, ageMonths, z float64) (float64, error)
	HeightAge(ctx context.Context, sex types.Sex, heightCm float64) (float64, error)
	IdealBodyWeight(ctx context.Context, sex types.Sex, heightCm float64) (float64, error)
	Interpret(ctx context.Context, m Measurement) (*growth.Interpretation, error)
	Waterlow(ctx context.Context, m Measurement) (*growth.WaterlowSummary, error)
	Trend(ctx context.Context, req TrendRequest) (*growth.TrendResult, error)
	Curves(ctx context.Context, metric types.Metric, sex types.Sex, family types.Family) (*growth.CurveSet, error)
	Assess(ctx context.Context, req AssessRequest) (*AssessResult, error)
	InterpretBatch(ctx context.Context, items []BatchItem) (*BatchResult, error)
}

// Options tunes batch behaviour. Zero values select the defaults.
type Options struct {
	BatchMaxItems    int
	BatchConcurrency int
}

type service struct {
	engine  Engine
	logger  *slog.Logger
	maxItem int
	workers int
}

// NewService creates a Service over engine.
func NewService(engine Engine, opts Options, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchMaxItems <= 0 {
		opts.BatchMaxItems = DefaultBatchMaxItems
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = DefaultBatchConcurrency
	}
	return &service{
		engine:  engine,
		logger:  logger,
		maxItem: opts.BatchMaxItems,
		workers: opts.BatchConcurrency,
	}
}

func (s *service) StandardData(_ context.Context, metric types.Metric, sex types.Sex, ageMonths float64) (*StandardResult, error) {
	rows, err := s.engine.StandardData(metric, sex, ageMonths)
	if err != nil {
		return nil, toAppError(err)
	}
	return &StandardResult{
		Family: growth.SelectFamily(ageMonths),
		Metric: metric,
		Sex:    sex,
		Rows:   rows,
	}, nil
}

func (s *service) ZScore(_ context.Context, metric types.Metric, sex types.Sex, ageMonths, value float64) (float64, error) {
	z, err := s.engine.ZScore(value, ageMonths, sex, metric)
	if err != nil {
		return 0, toAppError(err)
	}
	return z, nil
}

func (s *service) MeasurementForZ(_ context.Context, metric types.Metric, sex types.Sex, ageMonths, z float64) (float64, error) {
	v, err := s.engine.MeasurementForZ(z, ageMonths, sex, metric)
	if err != nil {
		return 0, toAppError(err)
	}
	return v, nil
}

func (s *service) HeightAge(_ context.Context, sex types.Sex, heightCm float64) (float64, error) {
	if heightCm <= 0 {
		return 0, toAppError(&growth.DomainError{Field: "height_cm", Value: heightCm})
	}
	age, err := s.engine.HeightAge(heightCm, sex)
	if err != nil {
		return 0, toAppError(err)
	}
	return age, nil
}

func (s *service) IdealBodyWeight(_ context.Context, sex types.Sex, heightCm float64) (float64, error) {
	if heightCm <= 0 {
		return 0, toAppError(&growth.DomainError{Field: "height_cm", Value: heightCm})
	}
	w, err := s.engine.IdealBodyWeight(heightCm, sex)
	if err != nil {
		return 0, toAppError(err)
	}
	return w, nil
}

func (s *service) Interpret(_ context.Context, m Measurement) (*growth.Interpretation, error) {
	in, err := s.engine.Interpret(m.WeightKg, m.HeightCm, m.AgeMonths, m.Sex)
	if err != nil {
		return nil, toAppError(err)
	}
	return in, nil
}

func (s *service) Waterlow(_ context.Context, m Measurement) (*growth.WaterlowSummary, error) {
	summary, err := s.engine.WaterlowSummary(m.WeightKg, m.HeightCm, m.AgeMonths, m.Sex)
	if err != nil {
		return nil, toAppError(err)
	}
	return summary, nil
}

func (s *service) Trend(_ context.Context, req TrendRequest) (*growth.TrendResult, error) {
	tr, err := s.engine.Trend(req.History, req.Sex)
	if err != nil {
		return nil, toAppError(err)
	}
	return tr, nil
}

func (s *service) Curves(_ context.Context, metric types.Metric, sex types.Sex, family types.Family) (*growth.CurveSet, error) {
	set, err := s.engine.Curves(metric, sex, family)
	if err != nil {
		return nil, toAppError(err)
	}
	return set, nil
}

// Assess derives age and BMI for every visit, interprets the most recent
// visit that has both weight and height, and computes the weight trend
// across all visits.
func (s *service) Assess(ctx context.Context, req AssessRequest) (*AssessResult, error) {
	dob, err := parseDate("date_of_birth", req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	type datedVisit struct {
		at      time.Time
		summary VisitSummary
	}
	dated := make([]datedVisit, 0, len(req.Visits))
	for i, v := range req.Visits {
		at, err := parseDate(fmt.Sprintf("visits[%d].date", i), v.Date)
		if err != nil {
			return nil, err
		}
		if at.Before(dob) {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidDate,
				"visit date precedes date of birth", nil,
				map[string]any{"field": fmt.Sprintf("visits[%d].date", i), "value": v.Date})
		}

		bmi := 0.0
		if v.WeightKg > 0 && v.HeightCm > 0 {
			h := v.HeightCm / 100
			bmi = math.Round(v.WeightKg/(h*h)*100) / 100
		}
		dated = append(dated, datedVisit{
			at: at,
			summary: VisitSummary{
				ID:          v.ID,
				Date:        at.Format(DateLayout),
				AgeMonths:   growth.AgeInMonths(dob, at),
				DetailedAge: growth.DetailedAge(dob, at),
				WeightKg:    v.WeightKg,
				HeightCm:    v.HeightCm,
				BMI:         bmi,
			},
		})
	}
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].at.Before(dated[j].at) })

	result := &AssessResult{
		Sex:    req.Sex,
		Visits: make([]VisitSummary, len(dated)),
	}
	history := make([]growth.WeightPoint, len(dated))
	for i, d := range dated {
		result.Visits[i] = d.summary
		history[i] = growth.WeightPoint{AgeMonths: d.summary.AgeMonths, WeightKg: d.summary.WeightKg}
	}

	for i := len(result.Visits) - 1; i >= 0; i-- {
		v := result.Visits[i]
		if v.WeightKg > 0 && v.HeightCm > 0 {
			latest := v
			result.Latest = &latest
			break
		}
	}

	if result.Latest == nil {
		result.Interpretation = &growth.Interpretation{Note: NoteNoCompleteVisit}
		return result, nil
	}

	in, err := s.Interpret(ctx, Measurement{
		Sex:       req.Sex,
		AgeMonths: result.Latest.AgeMonths,
		WeightKg:  result.Latest.WeightKg,
		HeightCm:  result.Latest.HeightCm,
	})
	if err != nil {
		return nil, err
	}
	result.Interpretation = in

	trend, err := s.engine.Trend(history, req.Sex)
	if err != nil {
		return nil, toAppError(err)
	}
	result.Trend = trend

	return result, nil
}

// NoteNoCompleteVisit explains an assessment without any complete visit.
const NoteNoCompleteVisit = "Belum ada kunjungan dengan berat dan tinggi badan; interpretasi tidak tersedia."

// InterpretBatch interprets items concurrently. A failing item is recorded in
// Errors under its ID and does not affect the others.
func (s *service) InterpretBatch(ctx context.Context, items []BatchItem) (*BatchResult, error) {
	if len(items) == 0 {
		return &BatchResult{
			Results: make(map[string]*growth.Interpretation),
		}, nil
	}

	if len(items) > s.maxItem {
		return nil, &types.AppError{
			Code:    types.ErrCodeValidationBatchSize,
			Message: fmt.Sprintf("batch size %d exceeds maximum of %d items", len(items), s.maxItem),
		}
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationDuplicateID,
				"batch item ids must be unique", nil, map[string]any{"id": it.ID})
		}
		seen[it.ID] = struct{}{}
	}

	var mu sync.Mutex
	results := make(map[string]*growth.Interpretation, len(items))
	errorMap := make(map[string]ErrorDetail)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, it := range items {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			in, err := s.Interpret(gCtx, it.Measurement)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Error isolation: record and let the rest of the batch proceed.
				errorMap[it.ID] = errorDetail(err)
				return nil
			}
			results[it.ID] = in
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &types.AppError{
			Code:    types.ErrCodeInternalUnexpected,
			Message: fmt.Sprintf("batch interpretation aborted: %v", err),
			Err:     err,
		}
	}

	s.logger.Debug("batch interpretation complete",
		"request_id", types.GetRequestID(ctx),
		"items", len(items),
		"succeeded", len(results),
		"failed", len(errorMap),
	)

	result := &BatchResult{Results: results}
	if len(errorMap) > 0 {
		result.Errors = errorMap
	}
	return result, nil
}

func errorDetail(err error) ErrorDetail {
	if appErr, ok := toAppError(err).(*types.AppError); ok {
		return ErrorDetail{Code: string(appErr.Code), Message: appErr.Message}
	}
	return ErrorDetail{Code: string(types.ErrCodeInternalUnexpected), Message: err.Error()}
}

func parseDate(field, raw string) (time.Time, error) {
	for _, layout := range []string{DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidDate,
		fmt.Sprintf("%s must be a YYYY-MM-DD date", field), nil,
		map[string]any{"field": field, "value": raw})
}
