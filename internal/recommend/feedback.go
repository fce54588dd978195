// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package recommend

import (
	"context"
	"fmt"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/experience"
	"github.com/moodloop/moodloop/internal/metrics"
	"github.com/moodloop/moodloop/internal/reward"
	"github.com/moodloop/moodloop/internal/session"
)

// ErrNoPending re-exports the session error so API callers need only this
// package.
var ErrNoPending = session.ErrNoPending

// Feedback closes the loop for one recommendation: recover the pending
// session, score the transition, log the experience, apply the Q-update,
// and decay exploration. The whole step runs under the user's lock and is
// all-or-nothing: a failure before the policy update restores the session.
func (e *Engine) Feedback(ctx context.Context, in FeedbackInput) (FeedbackResult, error) {
	if err := in.StateAfter.Validate(); err != nil {
		return FeedbackResult{}, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	after := in.StateAfter.Clamped()

	mu := e.userLock(in.UserID)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return FeedbackResult{}, err
	}

	pending, err := e.sessions.Take(in.UserID, in.ContentID)
	if err != nil {
		return FeedbackResult{}, err
	}

	breakdown := e.rewards.Compute(pending.StateBefore, after, pending.Desired, reward.Completion{
		Completed:     in.Completed,
		WatchDuration: in.WatchDuration,
		TotalDuration: in.TotalDuration,
	})

	keyBefore := affect.Hash(pending.StateBefore)
	keyAfter := affect.Hash(after)

	// Everything past this point mutates in-memory state only and cannot
	// fail; the session is already consumed.
	maxNext := e.qstore.MaxQ(in.UserID, keyAfter)
	entry := e.qstore.Update(in.UserID, keyBefore, in.ContentID, breakdown.Total, maxNext, e.cfg.Learning)

	e.expLog.Append(experience.Experience{
		UserID:        in.UserID,
		Timestamp:     e.now().UTC(),
		StateBefore:   pending.StateBefore,
		ContentID:     in.ContentID,
		StateAfter:    after,
		Desired:       pending.Desired,
		Reward:        breakdown.Total,
		Completed:     in.Completed,
		WatchDuration: in.WatchDuration,
		TotalDuration: in.TotalDuration,
		Rating:        in.Rating,
		Exploration:   pending.Exploration,
	})

	es := e.explore.RecordFeedback(in.UserID, breakdown.Total)
	e.invalidateUser(in.UserID)
	metrics.UpdatePolicyGauges(in.UserID, es.Epsilon, e.qstore.Size(in.UserID))

	e.logger.Info().
		Str("user_id", in.UserID).
		Str("content_id", in.ContentID).
		Str("state_key", keyBefore.String()).
		Float64("reward", breakdown.Total).
		Float64("q_new", entry.Q).
		Msg("feedback applied")

	return FeedbackResult{
		Reward:           breakdown,
		PolicyUpdated:    true,
		NewQValue:        entry.Q,
		LearningProgress: e.Progress(in.UserID),
	}, nil
}
