// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package predict estimates the post-viewing affect state for a (current
// state, content profile) pair. Pure arithmetic, no learning.
package predict

import (
	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/profile"
)

// Outcome is the predicted post-viewing state.
type Outcome struct {
	Valence    float64 `json:"valence"`
	Arousal    float64 `json:"arousal"`
	Stress     float64 `json:"stress"`
	Confidence float64 `json:"confidence"`
}

// stress relief per unit of content intensity
const stressReliefFactor = 0.3

// confidence model bounds
const (
	confidenceBase       = 0.70
	confidenceComplexity = 0.20
	confidenceMin        = 0.30
	confidenceMax        = 0.95
)

// Predict applies the content profile's expected deltas to the current
// state. Confidence shrinks with content complexity: the effect of complex
// content is harder to foresee.
func Predict(current affect.State, p profile.Profile) Outcome {
	current = current.Clamped()
	return Outcome{
		Valence:    clamp(current.Valence+p.ValenceDelta, -1, 1),
		Arousal:    clamp(current.Arousal+p.ArousalDelta, -1, 1),
		Stress:     clamp(current.Stress-stressReliefFactor*p.Intensity, 0, 1),
		Confidence: clamp(confidenceBase-confidenceComplexity*p.Complexity, confidenceMin, confidenceMax),
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
