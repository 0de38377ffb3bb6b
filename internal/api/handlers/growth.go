// Package handlers contains the HTTP handler implementations for the
// growthwatch API.
//
// This file implements the growth handler:
//   - Reference lookups (GET /v1/growth/standards, /zscore, /measurement)
//   - Height-age and ideal body weight (GET /v1/growth/height-age, /ideal-weight)
//   - Clinical interpretation (POST /v1/growth/interpret, /interpret/batch, /waterlow)
//   - Weight trend and visit assessment (POST /v1/growth/trend, /assess)
//   - Chart curves (GET /v1/growth/curves)
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"growthwatch/internal/assessment"
	"growthwatch/internal/core"
	"growthwatch/internal/growth"
	"growthwatch/internal/types"
)

// GrowthService defines the service contract for the growth handler.
// Matches assessment.Service but is defined locally so tests can supply a
// narrow mock.
type GrowthService interface {
	StandardData(ctx context.Context, metric types.Metric, sex types.Sex, ageMonths float64) (*assessment.StandardResult, error)
	ZScore(ctx context.Context, metric types.Metric, sex types.Sex, ageMonths, value float64) (float64, error)
	MeasurementForZ(ctx context.Context, metric types.Metric, sex types.Sex, ageMonths, z float64) (float64, error)
	HeightAge(ctx context.Context, sex types.Sex, heightCm float64) (float64, error)
	IdealBodyWeight(ctx context.Context, sex types.Sex, heightCm float64) (float64, error)
	Interpret(ctx context.Context, m assessment.Measurement) (*growth.Interpretation, error)
	Waterlow(ctx context.Context, m assessment.Measurement) (*growth.WaterlowSummary, error)
	Trend(ctx context.Context, req assessment.TrendRequest) (*growth.TrendResult, error)
	Curves(ctx context.Context, metric types.Metric, sex types.Sex, family types.Family) (*growth.CurveSet, error)
	Assess(ctx context.Context, req assessment.AssessRequest) (*assessment.AssessResult, error)
	InterpretBatch(ctx context.Context, items []assessment.BatchItem) (*assessment.BatchResult, error)
}

// GrowthHandler maps HTTP requests to GrowthService methods.
type GrowthHandler struct {
	service   GrowthService
	validator *core.Validator
	logger    *slog.Logger
}

// NewGrowthHandler creates a new GrowthHandler with the provided dependencies.
func NewGrowthHandler(svc GrowthService, val *core.Validator, logger *slog.Logger) *GrowthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if val == nil {
		val = core.NewValidator(logger)
	}
	return &GrowthHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the growth endpoints onto the mux. The caller
// chooses the prefix, normally /v1/growth.
func (h *GrowthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/standards", h.HandleStandards)
	r.Get("/zscore", h.HandleZScore)
	r.Get("/measurement", h.HandleMeasurement)
	r.Get("/height-age", h.HandleHeightAge)
	r.Get("/ideal-weight", h.HandleIdealWeight)
	r.Get("/curves", h.HandleCurves)
	r.Post("/interpret", h.HandleInterpret)
	r.Post("/interpret/batch", h.HandleInterpretBatch)
	r.Post("/waterlow", h.HandleWaterlow)
	r.Post("/trend", h.HandleTrend)
	r.Post("/assess", h.HandleAssess)
}

// ZScoreResponse is returned by GET /zscore.
type ZScoreResponse struct {
	Metric    types.Metric `json:"metric"`
	Sex       types.Sex    `json:"sex"`
	Family    types.Family `json:"family"`
	AgeMonths float64      `json:"age_months"`
	Value     float64      `json:"value"`
	ZScore    float64      `json:"z_score"`
	SDBand    string       `json:"sd_band"`
}

// MeasurementResponse is returned by GET /measurement.
type MeasurementResponse struct {
	Metric    types.Metric `json:"metric"`
	Sex       types.Sex    `json:"sex"`
	Family    types.Family `json:"family"`
	AgeMonths float64      `json:"age_months"`
	ZScore    float64      `json:"z_score"`
	Value     float64      `json:"value"`
}

// HeightAgeResponse is returned by GET /height-age.
type HeightAgeResponse struct {
	Sex             types.Sex `json:"sex"`
	HeightCm        float64   `json:"height_cm"`
	HeightAgeMonths float64   `json:"height_age_months"`
}

// IdealWeightResponse is returned by GET /ideal-weight.
type IdealWeightResponse struct {
	Sex               types.Sex `json:"sex"`
	HeightCm          float64   `json:"height_cm"`
	IdealBodyWeightKg float64   `json:"ideal_body_weight_kg"`
}

// BatchInterpretRequest is the body of POST /interpret/batch.
type BatchInterpretRequest struct {
	Items []assessment.BatchItem `json:"items" validate:"required,dive"`
}

// HandleStandards handles GET /v1/growth/standards.
func (h *GrowthHandler) HandleStandards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric, sex, age, err := parseMetricSexAge(q)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.service.StandardData(r.Context(), metric, sex, age)
	if err != nil {
		h.fail(w, r, "standards lookup failed", err)
		return
	}
	core.OK(w, r, res)
}

// HandleZScore handles GET /v1/growth/zscore.
func (h *GrowthHandler) HandleZScore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric, sex, age, err := parseMetricSexAge(q)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	value, err := parseFloatParam(q, "value", types.MetricRangeName(metric))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	z, err := h.service.ZScore(r.Context(), metric, sex, age, value)
	if err != nil {
		h.fail(w, r, "z-score failed", err)
		return
	}
	core.OK(w, r, ZScoreResponse{
		Metric:    metric,
		Sex:       sex,
		Family:    growth.SelectFamily(age),
		AgeMonths: age,
		Value:     value,
		ZScore:    z,
		SDBand:    growth.SDBand(z),
	})
}

// HandleMeasurement handles GET /v1/growth/measurement.
func (h *GrowthHandler) HandleMeasurement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric, sex, age, err := parseMetricSexAge(q)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	z, err := parseFloatParam(q, "z", "z")
	if err != nil {
		core.Error(w, r, err)
		return
	}

	value, err := h.service.MeasurementForZ(r.Context(), metric, sex, age, z)
	if err != nil {
		h.fail(w, r, "inverse z-score failed", err)
		return
	}
	core.OK(w, r, MeasurementResponse{
		Metric:    metric,
		Sex:       sex,
		Family:    growth.SelectFamily(age),
		AgeMonths: age,
		ZScore:    z,
		Value:     value,
	})
}

// HandleHeightAge handles GET /v1/growth/height-age.
func (h *GrowthHandler) HandleHeightAge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sex, heightCm, err := parseSexHeight(q)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	age, err := h.service.HeightAge(r.Context(), sex, heightCm)
	if err != nil {
		h.fail(w, r, "height-age failed", err)
		return
	}
	core.OK(w, r, HeightAgeResponse{Sex: sex, HeightCm: heightCm, HeightAgeMonths: age})
}

// HandleIdealWeight handles GET /v1/growth/ideal-weight.
func (h *GrowthHandler) HandleIdealWeight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sex, heightCm, err := parseSexHeight(q)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	ibw, err := h.service.IdealBodyWeight(r.Context(), sex, heightCm)
	if err != nil {
		h.fail(w, r, "ideal body weight failed", err)
		return
	}
	core.OK(w, r, IdealWeightResponse{Sex: sex, HeightCm: heightCm, IdealBodyWeightKg: ibw})
}

// HandleCurves handles GET /v1/growth/curves. family defaults to who.
func (h *GrowthHandler) HandleCurves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric, err := parseMetric(q)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	sex, err := parseSex(q.Get("sex"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	family := types.FamilyWHO
	if raw := q.Get("family"); raw != "" {
		family, err = types.ParseFamily(raw)
		if err != nil {
			core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidFamily,
				"family must be who or cdc", nil, map[string]any{"value": raw}))
			return
		}
	}

	set, err := h.service.Curves(r.Context(), metric, sex, family)
	if err != nil {
		h.fail(w, r, "curves failed", err)
		return
	}
	core.OK(w, r, set)
}

// HandleInterpret handles POST /v1/growth/interpret.
func (h *GrowthHandler) HandleInterpret(w http.ResponseWriter, r *http.Request) {
	var req assessment.Measurement
	if !h.decode(w, r, &req, &req.Sex) {
		return
	}

	res, err := h.service.Interpret(r.Context(), req)
	if err != nil {
		h.fail(w, r, "interpretation failed", err)
		return
	}
	core.OK(w, r, res)
}

// HandleInterpretBatch handles POST /v1/growth/interpret/batch.
func (h *GrowthHandler) HandleInterpretBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchInterpretRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	for i := range req.Items {
		normalizeSex(&req.Items[i].Sex)
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.service.InterpretBatch(r.Context(), req.Items)
	if err != nil {
		h.fail(w, r, "batch interpretation failed", err)
		return
	}
	core.OK(w, r, res)
}

// HandleWaterlow handles POST /v1/growth/waterlow.
func (h *GrowthHandler) HandleWaterlow(w http.ResponseWriter, r *http.Request) {
	var req assessment.Measurement
	if !h.decode(w, r, &req, &req.Sex) {
		return
	}

	res, err := h.service.Waterlow(r.Context(), req)
	if err != nil {
		h.fail(w, r, "waterlow summary failed", err)
		return
	}
	core.OK(w, r, res)
}

// HandleTrend handles POST /v1/growth/trend.
func (h *GrowthHandler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	var req assessment.TrendRequest
	if !h.decode(w, r, &req, &req.Sex) {
		return
	}

	res, err := h.service.Trend(r.Context(), req)
	if err != nil {
		h.fail(w, r, "trend failed", err)
		return
	}
	core.OK(w, r, res)
}

// HandleAssess handles POST /v1/growth/assess.
func (h *GrowthHandler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessment.AssessRequest
	if !h.decode(w, r, &req, &req.Sex) {
		return
	}

	res, err := h.service.Assess(r.Context(), req)
	if err != nil {
		h.fail(w, r, "assessment failed", err)
		return
	}
	core.OK(w, r, res)
}

// decode reads and validates a JSON body. sex points into dst and is
// normalized before validation so clinic aliases ("L", "P") are accepted.
// It writes the error response itself and reports whether to continue.
func (h *GrowthHandler) decode(w http.ResponseWriter, r *http.Request, dst any, sex *types.Sex) bool {
	if err := core.DecodeJSON(w, r, dst); err != nil {
		core.Error(w, r, err)
		return false
	}
	normalizeSex(sex)
	if err := h.validator.ValidateStruct(dst); err != nil {
		core.Error(w, r, err)
		return false
	}
	return true
}

// fail logs server-side failures and writes the error response.
func (h *GrowthHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if status := httpStatus(err); status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg,
			"error", err,
			"request_id", types.GetRequestID(r.Context()),
		)
	}
	core.Error(w, r, err)
}

func httpStatus(err error) int {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

func normalizeSex(sex *types.Sex) {
	if parsed, err := types.ParseSex(string(*sex)); err == nil {
		*sex = parsed
	}
}

func parseSex(raw string) (types.Sex, error) {
	if raw == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, "sex query parameter is required", nil)
	}
	sex, err := types.ParseSex(raw)
	if err != nil {
		return "", types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidSex,
			"sex must be male or female", err, map[string]any{"value": raw})
	}
	return sex, nil
}

func parseMetric(q url.Values) (types.Metric, error) {
	raw := q.Get("metric")
	if raw == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, "metric query parameter is required", nil)
	}
	metric, err := types.ParseMetric(raw)
	if err != nil {
		return "", types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidMetric,
			"metric must be one of weight, height, bmi", err, map[string]any{"value": raw})
	}
	return metric, nil
}

// parseFloatParam reads a required numeric parameter and checks it against
// the plausibility range registered under rangeName.
func parseFloatParam(q url.Values, name, rangeName string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, types.NewAppError(types.ErrCodeValidationMissingField,
			fmt.Sprintf("%s query parameter is required", name), nil)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidNumber,
			fmt.Sprintf("%s must be a valid number", name), nil, map[string]any{"value": raw})
	}
	if meta, ok := types.StandardMeasurements[rangeName]; ok {
		if v < meta.Range[0] || v > meta.Range[1] {
			return 0, types.NewAppErrorWithDetails(types.ErrCodeValidationOutOfRange,
				fmt.Sprintf("%s must be between %g and %g %s", name, meta.Range[0], meta.Range[1], meta.Unit),
				nil, map[string]any{"field": name, "value": v})
		}
	}
	return v, nil
}

func parseMetricSexAge(q url.Values) (types.Metric, types.Sex, float64, error) {
	metric, err := parseMetric(q)
	if err != nil {
		return "", "", 0, err
	}
	sex, err := parseSex(q.Get("sex"))
	if err != nil {
		return "", "", 0, err
	}
	age, err := parseFloatParam(q, "age_months", "age_months")
	if err != nil {
		return "", "", 0, err
	}
	return metric, sex, age, nil
}

func parseSexHeight(q url.Values) (types.Sex, float64, error) {
	sex, err := parseSex(q.Get("sex"))
	if err != nil {
		return "", 0, err
	}
	height, err := parseFloatParam(q, "height_cm", "height_cm")
	if err != nil {
		return "", 0, err
	}
	return sex, height, nil
}
