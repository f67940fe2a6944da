package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"automiles/ml"
	"automiles/monitoring"
)

// ModelSource hands out the process's load result. *ml.Loader implements it.
type ModelSource interface {
	Load() ml.LoadResult
}

type HandlersConfig struct {
	ModelPath     string
	DefaultWeight float64
	Step          float64
	CacheSize     int
}

type Handlers struct {
	models        ModelSource
	modelPath     string
	defaultWeight float64
	step          float64
	logger        *zap.Logger
	memo          *lru.Cache[float64, ml.Estimate]
	metrics       *monitoring.MetricsCollector
}

func NewHandlers(models ModelSource, config HandlersConfig, logger *zap.Logger) (*Handlers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultWeight == 0 {
		config.DefaultWeight = 3.0
	}
	if config.Step == 0 {
		config.Step = 0.1
	}
	h := &Handlers{
		models:        models,
		modelPath:     config.ModelPath,
		defaultWeight: config.DefaultWeight,
		step:          config.Step,
		logger:        logger,
		metrics:       monitoring.NewMetricsCollector(),
	}
	if config.CacheSize > 0 {
		memo, err := lru.New[float64, ml.Estimate](config.CacheSize)
		if err != nil {
			return nil, err
		}
		h.memo = memo
	}
	return h, nil
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /calculate", h.handleCalculate)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	mux.Handle("GET /static/", staticHandler())
}

func (h *Handlers) missingModelMessage() string {
	return fmt.Sprintf("Model file not found. Please ensure '%s' is in the same directory.", filepath.Base(h.modelPath))
}

// estimate runs the prediction path, serving repeats from the memo. Only
// successes are stored; the model never changes once loaded.
func (h *Handlers) estimate(weight float64) (ml.Estimate, error) {
	if h.memo != nil {
		if est, ok := h.memo.Get(weight); ok {
			h.metrics.Inc(monitoring.MetricPredictions)
			return est, nil
		}
	}
	start := time.Now()
	est, err := ml.Calculate(h.models.Load(), weight)
	switch {
	case errors.Is(err, ml.ErrModelUnavailable):
		h.metrics.Inc(monitoring.MetricModelUnavailable)
		return ml.Estimate{}, err
	case errors.Is(err, ml.ErrWeightOutOfRange):
		h.metrics.Inc(monitoring.MetricInvalidInput)
		return ml.Estimate{}, err
	case err != nil:
		h.metrics.Inc(monitoring.MetricPredictionErrors)
		return ml.Estimate{}, err
	}
	h.metrics.Inc(monitoring.MetricPredictions)
	h.metrics.Set(monitoring.MetricPredictionLatency, time.Since(start).Seconds())
	if h.memo != nil {
		h.memo.Add(weight, est)
	}
	return est, nil
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.newPage(formatWeight(h.defaultWeight)))
}

func (h *Handlers) handleCalculate(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.FormValue("weight"))
	view := h.newPage(raw)

	weight, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) {
		h.metrics.Inc(monitoring.MetricInvalidInput)
		view.FieldError = fmt.Sprintf("Enter a number between %.1f and %.1f.", ml.MinWeight, ml.MaxWeight)
		h.render(w, r, http.StatusBadRequest, view)
		return
	}

	est, err := h.estimate(weight)
	switch {
	case err == nil:
		view.Result = &est
	case errors.Is(err, ml.ErrModelUnavailable):
		view.Warning = "Model could not be loaded."
	default:
		h.logger.Warn("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Float64("weight", weight),
			zap.Error(err))
		view.Error = "An error occurred during prediction: " + err.Error()
	}
	h.render(w, r, http.StatusOK, view)
}

type predictRequest struct {
	Weight *float64 `json:"weight"`
}

type predictResponse struct {
	Weight     float64 `json:"weight"`
	MPG        float64 `json:"mpg"`
	MPGDisplay string  `json:"mpg_display"`
	WeightLbs  string  `json:"weight_lbs"`
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Weight == nil {
		h.metrics.Inc(monitoring.MetricInvalidInput)
		writeError(w, http.StatusBadRequest, "weight is required")
		return
	}

	est, err := h.estimate(*req.Weight)
	switch {
	case errors.Is(err, ml.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, "model could not be loaded")
		return
	case err != nil:
		h.logger.Warn("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Float64("weight", *req.Weight),
			zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Weight:     est.Weight,
		MPG:        est.MPG,
		MPGDisplay: est.MPGLabel(),
		WeightLbs:  est.WeightLabel(),
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"model_loaded": h.models.Load().OK(),
	})
}

func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": h.metrics.Snapshot(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
