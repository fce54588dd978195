// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package policy

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodloop/moodloop/internal/store"
)

// ExplorationParams govern epsilon-greedy decay.
type ExplorationParams struct {
	// Initial is the epsilon assigned to a new user.
	Initial float64
	// Min is the epsilon floor.
	Min float64
	// Decay multiplies epsilon after each feedback.
	Decay float64
}

// DefaultExplorationParams match the published behavior of the service.
var DefaultExplorationParams = ExplorationParams{Initial: 0.30, Min: 0.05, Decay: 0.995}

// rewardEMAAlpha weights the exponential moving average of rewards.
const rewardEMAAlpha = 0.1

// ExplorationState is a user's exploration bookkeeping.
type ExplorationState struct {
	Epsilon       float64   `json:"epsilon"`
	AvgReward     float64   `json:"avg_reward"`
	FeedbackCount int       `json:"feedback_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ExplorationController tracks per-user epsilon and reward averages.
type ExplorationController struct {
	params    ExplorationParams
	st        *store.Store
	persister *store.Persister
	logger    zerolog.Logger

	mu    sync.Mutex
	users map[string]*ExplorationState
}

// NewExplorationController creates a controller with the given parameters.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewExplorationController(params ExplorationParams, st *store.Store, persister *store.Persister, logger zerolog.Logger) *ExplorationController {
	return &ExplorationController{
		params:    params,
		st:        st,
		persister: persister,
		logger:    logger.With().Str("component", "exploration").Logger(),
		users:     make(map[string]*ExplorationState),
	}
}

func explorationKey(userID string) string {
	return fmt.Sprintf("user:%s:exploration", userID)
}

// state returns the user's state, loading or initializing it. Caller holds c.mu.
func (c *ExplorationController) state(userID string) *ExplorationState {
	if s, ok := c.users[userID]; ok {
		return s
	}

	s := &ExplorationState{Epsilon: c.params.Initial}
	if c.st != nil {
		var stored ExplorationState
		err := c.st.GetJSON(explorationKey(userID), &stored)
		switch {
		case err == nil:
			*s = stored
		case !errors.Is(err, store.ErrNotFound):
			c.logger.Error().Err(err).Str("user_id", userID).Msg("exploration load failed")
		}
	}
	c.users[userID] = s
	return s
}

// Params returns the controller's decay parameters.
func (c *ExplorationController) Params() ExplorationParams {
	return c.params
}

// Get returns a copy of the user's exploration state.
func (c *ExplorationController) Get(userID string) ExplorationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.state(userID)
}

// Epsilon returns the user's current epsilon.
func (c *ExplorationController) Epsilon(userID string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state(userID).Epsilon
}

// RecordFeedback folds one reward into the moving average and decays epsilon
// toward the floor. Returns the updated state.
func (c *ExplorationController) RecordFeedback(userID string, reward float64) ExplorationState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state(userID)
	if s.FeedbackCount == 0 {
		s.AvgReward = reward
	} else {
		s.AvgReward = rewardEMAAlpha*reward + (1-rewardEMAAlpha)*s.AvgReward
	}
	s.FeedbackCount++

	s.Epsilon *= c.params.Decay
	if s.Epsilon < c.params.Min {
		s.Epsilon = c.params.Min
	}
	s.UpdatedAt = time.Now().UTC()

	c.persist(userID, *s)
	return *s
}

// Reset restores the user to the initial epsilon and clears the averages.
func (c *ExplorationController) Reset(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &ExplorationState{Epsilon: c.params.Initial, UpdatedAt: time.Now().UTC()}
	c.users[userID] = s
	c.persist(userID, *s)
}

func (c *ExplorationController) persist(userID string, s ExplorationState) {
	if c.st == nil || c.persister == nil {
		return
	}
	key := explorationKey(userID)
	st := c.st
	c.persister.Mark(key, func() error {
		return st.SetJSON(key, s)
	})
}
