// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package predict

import (
	"math"
	"testing"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/profile"
)

func TestPredictAppliesDeltas(t *testing.T) {
	current := affect.State{Valence: -0.2, Arousal: 0.1, Stress: 0.6, Confidence: 0.9}
	p := profile.Profile{ValenceDelta: 0.4, ArousalDelta: 0.4, Intensity: 0.7, Complexity: 0.6}

	out := Predict(current, p)

	if math.Abs(out.Valence-0.2) > 1e-9 {
		t.Errorf("valence = %v, want 0.2", out.Valence)
	}
	if math.Abs(out.Arousal-0.5) > 1e-9 {
		t.Errorf("arousal = %v, want 0.5", out.Arousal)
	}
	// 0.6 - 0.3*0.7 = 0.39
	if math.Abs(out.Stress-0.39) > 1e-9 {
		t.Errorf("stress = %v, want 0.39", out.Stress)
	}
	// 0.70 - 0.20*0.6 = 0.58
	if math.Abs(out.Confidence-0.58) > 1e-9 {
		t.Errorf("confidence = %v, want 0.58", out.Confidence)
	}
}

func TestPredictClampsAxes(t *testing.T) {
	current := affect.State{Valence: 0.9, Arousal: -0.9, Stress: 0.1, Confidence: 0.9}
	p := profile.Profile{ValenceDelta: 0.5, ArousalDelta: -0.5, Intensity: 1.0}

	out := Predict(current, p)
	if out.Valence != 1 {
		t.Errorf("valence = %v, want clamp at 1", out.Valence)
	}
	if out.Arousal != -1 {
		t.Errorf("arousal = %v, want clamp at -1", out.Arousal)
	}
	if out.Stress != 0 {
		t.Errorf("stress = %v, want clamp at 0", out.Stress)
	}
}

func TestPredictConfidenceBounds(t *testing.T) {
	current := affect.State{}

	// Complexity 0 would give 0.70; complexity > 2 would fall below the floor.
	out := Predict(current, profile.Profile{Complexity: 0})
	if math.Abs(out.Confidence-0.70) > 1e-9 {
		t.Errorf("confidence = %v, want 0.70", out.Confidence)
	}
	out = Predict(current, profile.Profile{Complexity: 5})
	if out.Confidence != 0.30 {
		t.Errorf("confidence = %v, want floor 0.30", out.Confidence)
	}
}
