// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/metrics"
	"github.com/moodloop/moodloop/internal/oracle"
	"github.com/moodloop/moodloop/internal/profile"
	"github.com/moodloop/moodloop/internal/recommend"
	"github.com/moodloop/moodloop/internal/store"
)

// Handler holds the collaborators the HTTP layer dispatches into.
type Handler struct {
	engine      *recommend.Engine
	oracle      oracle.Client
	profiler    *profile.Profiler
	st          *store.Store
	catalogPath string
	logger      zerolog.Logger
	startTime   time.Time
}

// NewHandler creates the handler set.
func NewHandler(
	engine *recommend.Engine,
	oracleClient oracle.Client,
	profiler *profile.Profiler,
	st *store.Store,
	catalogPath string,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		engine:      engine,
		oracle:      oracleClient,
		profiler:    profiler,
		st:          st,
		catalogPath: catalogPath,
		logger:      logger.With().Str("component", "api").Logger(),
		startTime:   time.Now(),
	}
}

// analyzeResponse pairs the oracle's reading with the derived target.
type analyzeResponse struct {
	State   analyzeState   `json:"state"`
	Desired affect.Desired `json:"desired"`
}

type analyzeState struct {
	Valence        float64                     `json:"valence"`
	Arousal        float64                     `json:"arousal"`
	Stress         float64                     `json:"stress"`
	PrimaryEmotion string                      `json:"primary_emotion"`
	Confidence     float64                     `json:"confidence"`
	Vector         [oracle.EmotionDims]float64 `json:"vector"`
	Timestamp      time.Time                   `json:"timestamp"`
}

// AnalyzeEmotion handles POST /api/v1/emotion/analyze.
func (h *Handler) AnalyzeEmotion(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	start := time.Now()
	analysis, err := h.oracle.Analyze(r.Context(), req.UserID, req.Text)
	if err != nil {
		metrics.RecordOracleRequest("failure", time.Since(start))
		if errors.Is(err, oracle.ErrUnavailable) {
			respondError(w, http.StatusServiceUnavailable, CodeInternal, "emotion oracle unavailable", nil)
			return
		}
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("oracle analyze failed")
		respondInternal(w, "emotion analysis failed")
		return
	}
	metrics.RecordOracleRequest("success", time.Since(start))

	respondSuccess(w, analyzeResponse{
		State: analyzeState{
			Valence:        analysis.State.Valence,
			Arousal:        analysis.State.Arousal,
			Stress:         analysis.State.Stress,
			PrimaryEmotion: analysis.PrimaryEmotion,
			Confidence:     analysis.State.Confidence,
			Vector:         analysis.Vector,
			Timestamp:      analysis.Timestamp,
		},
		Desired: affect.DeriveDesired(analysis.State),
	})
}

// Recommend handles POST /api/v1/recommend.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var override *affect.Desired
	if req.DesiredState != nil {
		d := req.DesiredState.toDesired()
		override = &d
	}

	resp, err := h.engine.Recommend(r.Context(), req.UserID, req.CurrentState.toState(), override, req.Limit)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	metrics.RecommendationsServed.Add(float64(len(resp.Recommendations)))
	respondSuccess(w, resp)
}

// Feedback handles POST /api/v1/feedback.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.engine.Feedback(r.Context(), recommend.FeedbackInput{
		UserID:        req.UserID,
		ContentID:     req.ContentID,
		StateAfter:    req.ActualPostState.toState(),
		Completed:     req.Completed,
		WatchDuration: req.WatchDuration,
		TotalDuration: req.TotalDuration,
		Rating:        req.Rating,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	metrics.RecordFeedback(result.Reward.Total)
	respondSuccess(w, result)
}

// Progress handles GET /api/v1/progress/{user_id}.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		respondInvalid(w, "user_id is required", nil)
		return
	}
	respondSuccess(w, h.engine.Progress(userID))
}

// progressSummary is the condensed analytics view.
type progressSummary struct {
	Stage            string  `json:"stage"`
	ConvergenceScore float64 `json:"convergence_score"`
	TotalExperiences int     `json:"total_experiences"`
	Epsilon          float64 `json:"epsilon"`
	AvgReward        float64 `json:"avg_reward"`
}

// ProgressSummary handles GET /api/v1/progress/{user_id}/summary.
func (h *Handler) ProgressSummary(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		respondInvalid(w, "user_id is required", nil)
		return
	}
	p := h.engine.Progress(userID)
	respondSuccess(w, progressSummary{
		Stage:            p.Stage,
		ConvergenceScore: p.ConvergenceScore,
		TotalExperiences: p.TotalExperiences,
		Epsilon:          p.Epsilon,
		AvgReward:        p.AvgReward,
	})
}

// CatalogReload handles POST /api/v1/catalog/reload: re-profile the catalog
// file and swap the vector index atomically.
func (h *Handler) CatalogReload(w http.ResponseWriter, r *http.Request) {
	items, err := profile.LoadCatalogFile(h.catalogPath)
	if err != nil {
		metrics.RecordCatalogReload(0, err)
		h.logger.Error().Err(err).Str("path", h.catalogPath).Msg("catalog reload failed")
		respondInternal(w, "catalog reload failed")
		return
	}
	if len(items) == 0 {
		metrics.RecordCatalogReload(0, errors.New("empty catalog"))
		respondInvalid(w, "catalog file contains no items", map[string]any{"reason": ReasonCatalogEmpty})
		return
	}
	if err := h.profiler.Load(items); err != nil {
		metrics.RecordCatalogReload(0, err)
		h.logger.Error().Err(err).Msg("catalog profiling failed")
		respondInternal(w, "catalog profiling failed")
		return
	}

	metrics.RecordCatalogReload(len(items), nil)
	h.logger.Info().Int("items", len(items)).Msg("catalog reloaded")
	respondSuccess(w, map[string]any{"items": len(items)})
}

// PolicyReset handles POST /api/v1/policy/{user_id}/reset: restore epsilon
// to the initial value. The default leaves the Q-table alone; scope=full
// also wipes the user's learned Q-values.
func (h *Handler) PolicyReset(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		respondInvalid(w, "user_id is required", nil)
		return
	}

	scope := r.URL.Query().Get("scope")
	switch scope {
	case "", "exploration":
		scope = "exploration"
		h.engine.ResetExploration(userID)
	case "full":
		if err := h.engine.ResetPolicy(userID); err != nil {
			h.logger.Error().Err(err).Str("user_id", userID).Msg("policy reset failed")
			respondInternal(w, "policy reset failed")
			return
		}
	default:
		respondInvalid(w, "scope must be \"exploration\" or \"full\"", map[string]any{"scope": scope})
		return
	}

	p := h.engine.Progress(userID)
	respondSuccess(w, map[string]any{"user_id": userID, "epsilon": p.Epsilon, "scope": scope})
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready. Ready means the store is
// open and the catalog has been profiled.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	items := h.profiler.Len()
	if h.st == nil || items == 0 {
		respondJSON(w, http.StatusServiceUnavailable, Envelope{
			Success: false,
			Error: &APIError{
				Code:    CodeInternal,
				Message: "not ready",
				Details: map[string]any{"catalog_items": items},
			},
		})
		return
	}
	respondSuccess(w, map[string]any{"status": "ready", "catalog_items": items})
}

// writeEngineError maps engine errors onto the envelope's stable codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrInvalidState):
		respondInvalid(w, "affect state out of range", map[string]any{"reason": ReasonStateOutOfRange})
	case errors.Is(err, recommend.ErrNoPending):
		respondError(w, http.StatusNotFound, CodeInvalidInput, "no pending session for this user and content",
			map[string]any{"reason": ReasonNoPendingSession})
	case errors.Is(err, recommend.ErrBusy):
		respondError(w, http.StatusTooManyRequests, CodeInternal, "another request for this user is in flight",
			map[string]any{"reason": ReasonUserBusy})
	case r.Context().Err() != nil:
		respondError(w, http.StatusRequestTimeout, CodeInternal, "request canceled", nil)
	default:
		h.logger.Error().Err(err).Msg("engine operation failed")
		respondInternal(w, "internal failure")
	}
}
