// Package httpapi is the service's HTTP surface (spec §4.11): a single
// POST /generate endpoint over the comment generation pipeline, plus
// /health and /metrics. It mirrors the teacher's internal/http handler and
// middleware conventions (correlation IDs, Prometheus instrumentation,
// graceful-shutdown in-flight tracking), generalized from weather-API
// health to pipeline health: error rate and overload are now measured
// against orchestrator runs rather than raw upstream calls.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-alert-service/internal/degraded"
	"github.com/kjstillabower/weather-alert-service/internal/idle"
	"github.com/kjstillabower/weather-alert-service/internal/lifecycle"
	"github.com/kjstillabower/weather-alert-service/internal/model"
	"github.com/kjstillabower/weather-alert-service/internal/observability"
	"github.com/kjstillabower/weather-alert-service/internal/orchestrator"
	"github.com/kjstillabower/weather-alert-service/internal/overload"
)

// HealthConfig holds the lifecycle thresholds for the health handler,
// identical in shape to the teacher's httphandler.HealthConfig.
type HealthConfig struct {
	OverloadWindow         time.Duration
	OverloadThresholdPct   int
	RateLimitRPS           int
	DegradedWindow         time.Duration
	DegradedErrorPct       int
	IdleWindow             time.Duration
	IdleThresholdReqPerMin int
	MinimumLifespan        time.Duration
	StartTime              time.Time
}

// Handler holds the pipeline and dependencies for the HTTP surface.
type Handler struct {
	pipeline         *orchestrator.Pipeline
	healthConfig     *HealthConfig
	logger           *zap.Logger
	locationMinLen   int
	locationMaxLen   int
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(pipeline *orchestrator.Pipeline, healthConfig *HealthConfig, logger *zap.Logger, locationMinLen, locationMaxLen int) *Handler {
	return &Handler{
		pipeline:       pipeline,
		healthConfig:   healthConfig,
		logger:         logger,
		locationMinLen: locationMinLen,
		locationMaxLen: locationMaxLen,
	}
}

// generateRequest is the POST /generate request body (spec §4.11).
type generateRequest struct {
	Location        string  `json:"location"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	Datetime        string  `json:"datetime"`
	LLMProvider     string  `json:"llm_provider"`
	ExcludePrevious bool    `json:"exclude_previous"`
	PrevWeatherText string  `json:"prev_weather_text"`
	PrevAdviceText  string  `json:"prev_advice_text"`
}

// generateResponse is the POST /generate response body.
type generateResponse struct {
	FinalComment string         `json:"final_comment"`
	Metadata     map[string]any `json:"metadata"`
	Errors       []string       `json:"errors"`
	Success      bool           `json:"success"`
}

// Generate handles POST /generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Location) == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "location is required")
		return
	}

	target := time.Now()
	if req.Datetime != "" {
		parsed, err := time.Parse(time.RFC3339, req.Datetime)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_DATETIME", "datetime must be RFC3339")
			return
		}
		target = parsed
	}

	provider := model.LLMProvider(req.LLMProvider)
	if provider == "" {
		provider = model.ProviderOpenAI
	}

	idle.RecordRequest()
	state, err := h.pipeline.Generate(r.Context(), req.Location, req.Lat, req.Lon, target, provider, req.ExcludePrevious, req.PrevWeatherText, req.PrevAdviceText)
	if err != nil {
		degraded.RecordError()
		writeError(w, r, http.StatusServiceUnavailable, "GENERATION_CANCELED", err.Error())
		return
	}
	if state.Success {
		degraded.RecordSuccess()
	} else {
		degraded.RecordError()
	}

	errs := make([]string, 0, len(state.Errors))
	for _, e := range state.Errors {
		errs = append(errs, string(e.Kind)+": "+e.Message)
	}
	status := http.StatusOK
	if !state.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, generateResponse{
		FinalComment: state.FinalComment,
		Metadata:     state.Metadata,
		Errors:       errs,
		Success:      state.Success,
	})
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-comment-service",
		"version":   "dev",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	threshold := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() * float64(h.healthConfig.OverloadThresholdPct) / 100
	if threshold > 0 && float64(overload.RequestCount(h.healthConfig.OverloadWindow)) > threshold {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	if h.healthConfig.IdleWindow > 0 && h.healthConfig.MinimumLifespan > 0 && time.Since(h.healthConfig.StartTime) >= h.healthConfig.MinimumLifespan {
		if idle.RequestCount(h.healthConfig.IdleWindow) < h.healthConfig.IdleThresholdReqPerMin {
			return healthResult{"idle", http.StatusOK, "low_traffic"}
		}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errorsN, total := degraded.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errorsN) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value(correlationIDKey); v != nil {
		corrID, _ = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// NewRouter builds the mux.Router wiring /generate, /health, and /metrics,
// in the teacher's middleware order (correlation ID, then metrics, then
// per-route timeout/rate-limit). limiter is the token bucket applied to
// /generate, grounded on the teacher's internal/http.RateLimitMiddleware;
// pass nil to disable rate limiting.
func NewRouter(h *Handler, logger *zap.Logger, requestTimeout time.Duration, limiter *rate.Limiter) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	genRouter := router.PathPrefix("/generate").Subrouter()
	genRouter.Use(TimeoutMiddleware(requestTimeout))
	genRouter.Use(RateLimitMiddleware(limiter))
	genRouter.HandleFunc("", h.Generate).Methods("POST")

	return router
}
