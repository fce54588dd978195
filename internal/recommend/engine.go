// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/experience"
	"github.com/moodloop/moodloop/internal/metrics"
	"github.com/moodloop/moodloop/internal/policy"
	"github.com/moodloop/moodloop/internal/predict"
	"github.com/moodloop/moodloop/internal/profile"
	"github.com/moodloop/moodloop/internal/reward"
	"github.com/moodloop/moodloop/internal/session"
	"github.com/moodloop/moodloop/internal/vecindex"
)

// Config tunes the engine.
type Config struct {
	// DefaultLimit applies when a request passes limit <= 0.
	DefaultLimit int
	// MaxLimit caps the requested list length.
	MaxLimit int
	// CandidateMultiplier widens retrieval: search k = multiplier * limit.
	CandidateMultiplier int
	// ExplorationBonus is added to an injected candidate's combined score.
	ExplorationBonus float64
	// CacheTTL bounds how long a recommend response may be replayed.
	// Feedback invalidates the user's entries regardless.
	CacheTTL time.Duration
	// Seed fixes the exploration RNG. 0 seeds from the clock.
	Seed int64
	// Learning holds the Q-update hyperparameters.
	Learning policy.LearningParams
}

// DefaultConfig matches the published behavior of the service.
var DefaultConfig = Config{
	DefaultLimit:        5,
	MaxLimit:            20,
	CandidateMultiplier: 3,
	ExplorationBonus:    0.20,
	CacheTTL:            500 * time.Millisecond,
	Learning:            policy.DefaultLearningParams,
}

// GoalEmbedder produces the retrieval vector for a transition goal.
// Implemented by the embed codec.
type GoalEmbedder interface {
	EmbedGoal(current affect.State, desired affect.Desired) ([]float64, error)
}

// Engine wires the learning loop together. All collaborators are injected;
// the engine holds no global state.
type Engine struct {
	cfg      Config
	idx      *vecindex.Index
	profiler *profile.Profiler
	embedder GoalEmbedder
	qstore   *policy.QStore
	explore  *policy.ExplorationController
	rewards  *reward.Calculator
	expLog   *experience.Log
	sessions *session.Store
	logger   zerolog.Logger
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	resp    Response
	expires time.Time
}

// responseCacheType labels the engine's response cache in the cache metrics.
const responseCacheType = "response"

// NewEngine creates the engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(
	cfg Config,
	idx *vecindex.Index,
	profiler *profile.Profiler,
	embedder GoalEmbedder,
	qstore *policy.QStore,
	explore *policy.ExplorationController,
	rewards *reward.Calculator,
	expLog *experience.Log,
	sessions *session.Store,
	logger zerolog.Logger,
) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultConfig.MaxLimit
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = DefaultConfig.CandidateMultiplier
	}
	if cfg.ExplorationBonus <= 0 {
		cfg.ExplorationBonus = DefaultConfig.ExplorationBonus
	}
	if cfg.Learning == (policy.LearningParams{}) {
		cfg.Learning = policy.DefaultLearningParams
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		cfg:      cfg,
		idx:      idx,
		profiler: profiler,
		embedder: embedder,
		qstore:   qstore,
		explore:  explore,
		rewards:  rewards,
		expLog:   expLog,
		sessions: sessions,
		logger:   logger.With().Str("component", "engine").Logger(),
		now:      time.Now,
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec // exploration sampling, not crypto
		locks:    make(map[string]*sync.Mutex),
		cache:    make(map[string]cacheEntry),
	}
}

// userLock returns the mutex serializing one user's mutations.
func (e *Engine) userLock(userID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	mu, ok := e.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[userID] = mu
	}
	return mu
}

// Recommend runs the full pipeline for one user. An empty catalog yields an
// empty list, not an error. A contended user lock yields ErrBusy.
func (e *Engine) Recommend(ctx context.Context, userID string, current affect.State, desiredOverride *affect.Desired, limit int) (Response, error) {
	if err := current.Validate(); err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	current = current.Clamped()

	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	mu := e.userLock(userID)
	if !mu.TryLock() {
		return Response{}, ErrBusy
	}
	defer mu.Unlock()

	if resp, ok := e.cachedResponse(userID, limit); ok {
		return resp, nil
	}

	desired := affect.DeriveDesired(current)
	if desiredOverride != nil {
		desired = desiredOverride.Clamped()
	}

	epsilon := e.explore.Epsilon(userID)

	resp := Response{
		DesiredState:    desired,
		ExplorationRate: epsilon,
		Timestamp:       e.now().UTC(),
	}

	if e.idx.Len() == 0 {
		resp.Recommendations = []Recommendation{}
		return resp, nil
	}

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	goalVec, err := e.embedder.EmbedGoal(current, desired)
	if err != nil {
		return Response{}, fmt.Errorf("embed goal: %w", err)
	}

	hits := e.idx.Search(goalVec, e.cfg.CandidateMultiplier*limit)

	cands := make([]candidate, 0, len(hits))
	for _, hit := range hits {
		prof, ok := e.profiler.Get(hit.ID)
		if !ok {
			continue
		}
		cands = append(cands, candidate{contentID: hit.ID, profile: prof, similarity: hit.Score})
	}

	stateKey := affect.Hash(current)
	ranked := rankCandidates(cands, e.qstore.StateEntries(userID, stateKey), current, desired)
	ranked = e.injectExploration(ranked, epsilon)

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	resp.Recommendations = make([]Recommendation, 0, len(ranked))
	for _, s := range ranked {
		rec := Recommendation{
			ContentID:        s.contentID,
			Title:            s.profile.Title,
			QValue:           s.qValue,
			Similarity:       s.similarity,
			CombinedScore:    s.combined,
			PredictedOutcome: predict.Predict(current, s.profile),
			Reasoning:        buildReasoning(s, current, desired),
			IsExploration:    s.exploration,
		}
		resp.Recommendations = append(resp.Recommendations, rec)

		if err := e.sessions.Put(session.Pending{
			UserID:      userID,
			ContentID:   s.contentID,
			StateBefore: current,
			Desired:     desired,
			Exploration: s.exploration,
		}); err != nil {
			return Response{}, fmt.Errorf("record session: %w", err)
		}
	}

	e.storeCache(userID, limit, resp)

	e.logger.Debug().
		Str("user_id", userID).
		Str("state_key", stateKey.String()).
		Int("candidates", len(cands)).
		Int("returned", len(resp.Recommendations)).
		Float64("epsilon", epsilon).
		Msg("recommendation served")

	return resp, nil
}

// injectExploration walks the lower half of the ranked list and, with
// probability epsilon per position, bumps the candidate's score by the
// exploration bonus. A bump re-sorts the list.
func (e *Engine) injectExploration(ranked []scored, epsilon float64) []scored {
	if len(ranked) < 2 || epsilon <= 0 {
		return ranked
	}

	injected := false
	for i := len(ranked) / 2; i < len(ranked); i++ {
		e.rngMu.Lock()
		roll := e.rng.Float64()
		e.rngMu.Unlock()
		if roll < epsilon {
			ranked[i].combined += e.cfg.ExplorationBonus
			ranked[i].exploration = true
			injected = true
			metrics.ExplorationInjections.Inc()
		}
	}
	if injected {
		sortScored(ranked, false, 0)
	}
	return ranked
}

// cachedResponse replays a fresh response for (user, limit) if one exists.
func (e *Engine) cachedResponse(userID string, limit int) (Response, bool) {
	if e.cfg.CacheTTL <= 0 {
		return Response{}, false
	}
	key := fmt.Sprintf("%s:%d", userID, limit)

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	entry, ok := e.cache[key]
	if !ok || e.now().After(entry.expires) {
		delete(e.cache, key)
		metrics.CacheMisses.WithLabelValues(responseCacheType).Inc()
		return Response{}, false
	}
	metrics.CacheHits.WithLabelValues(responseCacheType).Inc()
	return entry.resp, true
}

func (e *Engine) storeCache(userID string, limit int, resp Response) {
	if e.cfg.CacheTTL <= 0 {
		return
	}
	key := fmt.Sprintf("%s:%d", userID, limit)

	e.cacheMu.Lock()
	e.cache[key] = cacheEntry{resp: resp, expires: e.now().Add(e.cfg.CacheTTL)}
	e.cacheMu.Unlock()
}

// invalidateUser drops all cached responses for a user. Called on feedback
// so a later recommend reflects the update.
func (e *Engine) invalidateUser(userID string) {
	prefix := userID + ":"
	e.cacheMu.Lock()
	for key := range e.cache {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(e.cache, key)
		}
	}
	e.cacheMu.Unlock()
}

// Progress returns the analytics view for a user.
func (e *Engine) Progress(userID string) experience.Progress {
	records := e.expLog.Recent(userID, 0)
	es := e.explore.Get(userID)
	params := e.explore.Params()
	return experience.ComputeProgress(records, experience.PolicyView{
		Epsilon:        es.Epsilon,
		EpsilonInitial: params.Initial,
		EpsilonMin:     params.Min,
		AvgReward:      es.AvgReward,
	})
}

// ResetExploration restores a user's epsilon to the initial value without
// touching the Q-table.
func (e *Engine) ResetExploration(userID string) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()
	e.explore.Reset(userID)
	e.invalidateUser(userID)
}

// ResetPolicy wipes a user's learned state entirely: the Q-table, in memory
// and in the store, plus the exploration schedule.
func (e *Engine) ResetPolicy(userID string) error {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	if err := e.qstore.Reset(userID); err != nil {
		return err
	}
	e.explore.Reset(userID)
	e.invalidateUser(userID)
	metrics.UpdatePolicyGauges(userID, e.explore.Epsilon(userID), 0)

	e.logger.Info().Str("user_id", userID).Msg("policy reset")
	return nil
}
