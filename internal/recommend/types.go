// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package recommend orchestrates the recommendation pipeline and the
// feedback loop that trains the per-user policy: desired-state inference,
// vector retrieval, hybrid ranking, exploration injection, outcome
// prediction, and the Q-update on feedback.
package recommend

import (
	"errors"
	"time"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/experience"
	"github.com/moodloop/moodloop/internal/predict"
	"github.com/moodloop/moodloop/internal/reward"
)

// Engine errors surfaced to the API layer.
var (
	// ErrBusy means the user's serialized mutation lock could not be
	// taken promptly.
	ErrBusy = errors.New("recommend: user busy")
	// ErrInvalidState means the submitted affect state was not finite.
	ErrInvalidState = errors.New("recommend: invalid state")
)

// Recommendation is one ranked item.
type Recommendation struct {
	ContentID        string          `json:"content_id"`
	Title            string          `json:"title"`
	QValue           float64         `json:"q_value"`
	Similarity       float64         `json:"similarity"`
	CombinedScore    float64         `json:"combined_score"`
	PredictedOutcome predict.Outcome `json:"predicted_outcome"`
	Reasoning        string          `json:"reasoning"`
	IsExploration    bool            `json:"is_exploration"`
}

// Response is the recommend operation's payload.
type Response struct {
	Recommendations []Recommendation `json:"recommendations"`
	DesiredState    affect.Desired   `json:"desired_state"`
	ExplorationRate float64          `json:"exploration_rate"`
	Timestamp       time.Time        `json:"timestamp"`
}

// FeedbackInput is the feedback operation's input.
type FeedbackInput struct {
	UserID        string
	ContentID     string
	StateAfter    affect.State
	Completed     bool
	WatchDuration float64
	TotalDuration float64
	Rating        *float64
}

// FeedbackResult reports the learning step taken for one feedback.
type FeedbackResult struct {
	Reward           reward.Breakdown    `json:"reward"`
	PolicyUpdated    bool                `json:"policy_updated"`
	NewQValue        float64             `json:"new_q_value"`
	LearningProgress experience.Progress `json:"learning_progress"`
}
