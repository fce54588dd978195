// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package oracle wraps the external text-to-affect analyzer. The service
// treats it as opaque: text in, continuous affect state out. The HTTP client
// carries its own retry, rate limit, and circuit breaker; the static client
// is a deterministic lexicon used in tests and as a degraded fallback.
package oracle

import (
	"context"
	"time"

	"github.com/moodloop/moodloop/internal/affect"
)

// EmotionDims is the length of the auxiliary emotion vector.
const EmotionDims = 8

// Analysis is the oracle's verdict on a piece of text.
type Analysis struct {
	State          affect.State         `json:"state"`
	PrimaryEmotion string               `json:"primary_emotion"`
	Vector         [EmotionDims]float64 `json:"vector"`
	Timestamp      time.Time            `json:"timestamp"`
}

// Client analyzes free-form text into an affect state.
type Client interface {
	Analyze(ctx context.Context, userID, text string) (Analysis, error)
}
