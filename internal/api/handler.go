package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/classify"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// predictionCacheTTL bounds how long an identical feature vector is served
// from cache before being rescored.
const predictionCacheTTL = 10 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	engine    *rules.Engine
	predictor domain.Predictor
	processor *classify.Processor
	stats     *stats.Service
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, predictor domain.Predictor, processor *classify.Processor, statsSvc *stats.Service, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		engine:    engine,
		predictor: predictor,
		processor: processor,
		stats:     statsSvc,
		version:   version,
	}
}

// PredictResponse is the response for POST /predict.
type PredictResponse struct {
	PredictionID  string                    `json:"predictionId"`
	Label         string                    `json:"label"`
	Score         float64                   `json:"score"`
	Probabilities map[string]float64        `json:"probabilities"`
	Warnings      []string                  `json:"warnings,omitempty"`
	Metadata      domain.PredictionMetadata `json:"metadata"`
}

// Predict handles POST /predict requests.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var features domain.FeatureVector
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// 1. Validation rules
	rulesStart := time.Now()
	ruleResults, err := h.engine.EvaluateAll(ctx, &features)
	if err != nil {
		slog.Error("rule evaluation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "rule evaluation failed",
		})
		return
	}
	rulesMs := time.Since(rulesStart).Milliseconds()

	if classify.ValidationFailed(ruleResults) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "input validation failed",
			"reasons": classify.FailureReasons(ruleResults),
		})
		return
	}

	// 2. Cache lookup by feature hash
	featureHash := hashFeatures(&features)
	if h.cache != nil {
		if cached, err := h.cache.GetPrediction(ctx, featureHash); err == nil && cached != nil {
			cached.Metadata.Cached = true
			cached.Metadata.TraceID = traceID
			writeJSON(w, http.StatusOK, predictResponse(cached))
			return
		}
	}

	// 3. Model scoring
	predictStart := time.Now()
	output, err := h.predictor.Predict(ctx, &features)
	if err != nil {
		slog.Error("prediction failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "prediction failed",
		})
		return
	}
	predictMs := time.Since(predictStart).Milliseconds()

	// 4. Assemble prediction record
	prediction := h.processor.Process(ctx, &classify.Input{
		Features:     &features,
		RuleResults:  ruleResults,
		Output:       output,
		TraceID:      traceID,
		ModelVersion: h.predictor.Info().Version,
		RulesMs:      rulesMs,
		PredictMs:    predictMs,
		StartTime:    start,
	})

	// 5. Persist and cache
	if h.repo != nil {
		if err := h.repo.SavePrediction(ctx, prediction); err != nil {
			slog.Error("failed to save prediction", "id", prediction.ID, "error", err)
		}
	}
	if h.cache != nil {
		if err := h.cache.SetPrediction(ctx, featureHash, prediction, predictionCacheTTL); err != nil {
			slog.Error("failed to cache prediction", "id", prediction.ID, "error", err)
		}
	}

	// 6. Side channels: counters and event publication
	if h.stats != nil {
		if _, err := h.stats.RecordPrediction(ctx, prediction.Label, 3600); err != nil {
			slog.Error("failed to record prediction counter", "error", err)
		}
	}
	if h.bus != nil {
		payload, _ := json.Marshal(prediction)
		if err := h.bus.Publish(ctx, domain.TopicPredictionCompleted, payload); err != nil {
			slog.Error("failed to publish prediction", "id", prediction.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, predictResponse(prediction))
}

func predictResponse(pred *domain.Prediction) PredictResponse {
	return PredictResponse{
		PredictionID:  pred.ID,
		Label:         pred.Label,
		Score:         pred.Score,
		Probabilities: pred.Probabilities,
		Warnings:      pred.Warnings,
		Metadata:      pred.Metadata,
	}
}

// hashFeatures produces a stable digest of a feature vector. Struct field
// order is fixed, so the JSON encoding is canonical.
func hashFeatures(f *domain.FeatureVector) string {
	data, _ := json.Marshal(f)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetPrediction retrieves a stored prediction by ID.
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	predID := chi.URLParam(r, "id")

	if predID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "prediction id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	pred, err := h.repo.GetPrediction(ctx, predID)
	if err != nil {
		slog.Error("failed to get prediction", "id", predID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "prediction not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, pred)
}

// ModelInfo returns metadata about the loaded model artifact.
func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.predictor.Info())
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns all loaded rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves a rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a rule.
type CreateRuleRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Expression  string            `json:"expression"`
	Bands       []domain.RuleBand `json:"bands"`
	Enabled     bool              `json:"enabled"`
}

// CreateRule creates a new rule and saves it to the database.
// After saving, call POST /rules/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	ruleConfig := &domain.RuleConfig{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Bands:       req.Bands,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression before persisting
	if err := h.engine.ValidateRule(ruleConfig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveRuleConfig(ctx, ruleConfig); err != nil {
			slog.Error("failed to save rule config", "id", ruleConfig.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("rule created", "id", ruleConfig.ID, "name", ruleConfig.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    ruleConfig,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads all rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListRuleConfigs(ctx)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// CreateDatasetRequest is the request body for POST /datasets.
type CreateDatasetRequest struct {
	Rows      int     `json:"rows"`
	Seed      int64   `json:"seed"`
	Path      string  `json:"path,omitempty"`
	NoiseRate float64 `json:"noiseRate,omitempty"`
}

// CreateDatasetRun schedules an async dataset generation job.
func (h *Handler) CreateDatasetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Rows <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rows must be positive",
		})
		return
	}
	if req.Path == "" {
		req.Path = "data/raw/credit_score_data.csv"
	}

	run := &domain.DatasetRun{
		ID:        uuid.New().String(),
		Rows:      req.Rows,
		Seed:      req.Seed,
		Path:      req.Path,
		Status:    domain.RunPending,
		CreatedAt: time.Now().UTC(),
	}

	if h.repo != nil {
		if err := h.repo.SaveDatasetRun(ctx, run); err != nil {
			slog.Error("failed to save dataset run", "id", run.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save dataset run",
			})
			return
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"runId":     run.ID,
		"rows":      req.Rows,
		"seed":      req.Seed,
		"path":      req.Path,
		"noiseRate": req.NoiseRate,
	})
	if err := h.bus.Publish(ctx, domain.TopicDatasetRequested, payload); err != nil {
		slog.Error("failed to publish dataset request", "id", run.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to schedule dataset run",
		})
		return
	}

	slog.Info("dataset run scheduled", "id", run.ID, "rows", req.Rows, "seed", req.Seed)
	writeJSON(w, http.StatusAccepted, run)
}

// GetDatasetRun retrieves a dataset run by ID.
func (h *Handler) GetDatasetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	if runID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "run id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	run, err := h.repo.GetDatasetRun(ctx, runID)
	if err != nil {
		slog.Error("failed to get dataset run", "id", runID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "dataset run not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// ListDatasetRuns returns all dataset runs, newest first.
func (h *Handler) ListDatasetRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	runs, err := h.repo.ListDatasetRuns(ctx)
	if err != nil {
		slog.Error("failed to list dataset runs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list dataset runs",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Stats returns prediction volume and label distribution for a window.
// The window is given in seconds via ?window=, default one hour.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "stats service not available",
		})
		return
	}

	windowSecs := 3600
	if v := r.URL.Query().Get("window"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "window must be a positive integer",
			})
			return
		}
		windowSecs = parsed
	}

	summary, err := h.stats.Summarize(ctx, windowSecs)
	if err != nil {
		slog.Error("failed to summarize predictions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute stats",
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
