// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package reward

import (
	"math"
	"testing"

	"github.com/moodloop/moodloop/internal/affect"
)

func desired(v, a float64) affect.Desired {
	return affect.Desired{TargetValence: v, TargetArousal: a, Intensity: affect.IntensityModerate}
}

func TestComputeSuccessfulTransition(t *testing.T) {
	c := NewCalculator(DefaultParams)

	before := affect.State{Valence: -0.60, Arousal: 0.20, Stress: 0.70, Confidence: 0.9}
	after := affect.State{Valence: 0.30, Arousal: -0.10, Stress: 0.40, Confidence: 0.9}
	b := c.Compute(before, after, desired(0.50, -0.20), Completion{
		Completed: true, WatchDuration: 30, TotalDuration: 30,
	})

	if b.Total < 0.55 || b.Total > 0.85 {
		t.Errorf("total = %v, want within [0.55, 0.85]", b.Total)
	}
	if b.Proximity != 0.10 {
		t.Errorf("proximity = %v, want 0.10 (landed near target)", b.Proximity)
	}
	if b.Completion != 0 {
		t.Errorf("completion = %v, want 0 for completed", b.Completion)
	}
	if b.Direction <= 0.59 {
		t.Errorf("direction = %v, want near 0.6 for aligned movement", b.Direction)
	}
}

func TestComputeBackfire(t *testing.T) {
	c := NewCalculator(DefaultParams)

	before := affect.State{Valence: -0.60, Arousal: 0.20, Stress: 0.70, Confidence: 0.9}
	after := affect.State{Valence: -0.50, Arousal: 0.60, Stress: 0.80, Confidence: 0.9}
	b := c.Compute(before, after, desired(0.50, -0.20), Completion{
		Completed: false, WatchDuration: 5, TotalDuration: 30,
	})

	if b.Total >= 0 {
		t.Errorf("total = %v, want negative for a backfired transition", b.Total)
	}
	if b.Completion != -0.20 {
		t.Errorf("completion = %v, want -0.20 for abandonment", b.Completion)
	}
	if b.Direction >= 0 {
		t.Errorf("direction = %v, want negative for opposed movement", b.Direction)
	}
}

func TestComputeBounded(t *testing.T) {
	c := NewCalculator(DefaultParams)

	cases := []struct {
		before, after affect.State
		des           affect.Desired
		comp          Completion
	}{
		{affect.State{Valence: -1, Arousal: -1}, affect.State{Valence: 1, Arousal: 1}, desired(1, 1), Completion{Completed: true}},
		{affect.State{Valence: 1, Arousal: 1}, affect.State{Valence: -1, Arousal: -1}, desired(1, 1), Completion{WatchDuration: 0, TotalDuration: 30}},
		{affect.State{}, affect.State{}, desired(0, 0), Completion{}},
		{affect.State{Valence: 5, Arousal: -5}, affect.State{Valence: -5, Arousal: 5}, desired(-2, 2), Completion{Completed: true}},
	}
	for i, tc := range cases {
		b := c.Compute(tc.before, tc.after, tc.des, tc.comp)
		if b.Total < -1 || b.Total > 1 {
			t.Errorf("case %d: total = %v outside [-1, 1]", i, b.Total)
		}
	}
}

func TestDirectionZeroMovement(t *testing.T) {
	c := NewCalculator(DefaultParams)

	s := affect.State{Valence: 0.2, Arousal: 0.2}
	b := c.Compute(s, s, desired(0.5, 0.5), Completion{Completed: true})
	if b.Direction != 0 {
		t.Errorf("direction = %v, want 0 for no movement", b.Direction)
	}

	// Desired equals before: direction is also defined as 0.
	b = c.Compute(s, affect.State{Valence: 0.4, Arousal: 0.4}, desired(0.2, 0.2), Completion{Completed: true})
	if b.Direction != 0 {
		t.Errorf("direction = %v, want 0 for zero desired delta", b.Direction)
	}
}

func TestCompletionPenaltyLadder(t *testing.T) {
	cases := []struct {
		comp Completion
		want float64
	}{
		{Completion{Completed: true, WatchDuration: 1, TotalDuration: 30}, 0},
		{Completion{WatchDuration: 2, TotalDuration: 30}, -0.20},
		{Completion{WatchDuration: 10, TotalDuration: 30}, -0.10},
		{Completion{WatchDuration: 20, TotalDuration: 30}, -0.05},
		{Completion{WatchDuration: 28, TotalDuration: 30}, 0},
		{Completion{WatchDuration: 5, TotalDuration: 0}, -0.20},
	}
	for i, tc := range cases {
		if got := completionPenalty(tc.comp); got != tc.want {
			t.Errorf("case %d: penalty = %v, want %v", i, got, tc.want)
		}
	}
}

func TestProximityThresholdBoundary(t *testing.T) {
	c := NewCalculator(DefaultParams)
	before := affect.State{Valence: -0.5, Arousal: 0}

	// Exactly at the threshold: no bonus (strict less-than).
	after := affect.State{Valence: 0.30, Arousal: 0}
	b := c.Compute(before, after, desired(0.60, 0), Completion{Completed: true})
	if b.Proximity != 0 {
		t.Errorf("proximity = %v at exact threshold, want 0", b.Proximity)
	}

	after = affect.State{Valence: 0.35, Arousal: 0}
	b = c.Compute(before, after, desired(0.60, 0), Completion{Completed: true})
	if b.Proximity != 0.10 {
		t.Errorf("proximity = %v inside threshold, want 0.10", b.Proximity)
	}
}

func TestComputeDeterministic(t *testing.T) {
	c := NewCalculator(DefaultParams)
	before := affect.State{Valence: -0.31, Arousal: 0.17, Stress: 0.6}
	after := affect.State{Valence: 0.12, Arousal: -0.28, Stress: 0.4}
	comp := Completion{WatchDuration: 17, TotalDuration: 30}

	a := c.Compute(before, after, desired(0.4, -0.3), comp)
	for i := 0; i < 10; i++ {
		b := c.Compute(before, after, desired(0.4, -0.3), comp)
		if a != b {
			t.Fatalf("run %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestMagnitudeNormalization(t *testing.T) {
	// Corner-to-corner movement is the maximum, scoring exactly 0.4.
	c := NewCalculator(DefaultParams)
	before := affect.State{Valence: -1, Arousal: -1}
	after := affect.State{Valence: 1, Arousal: 1}
	b := c.Compute(before, after, desired(1, 1), Completion{Completed: true})
	if math.Abs(b.Magnitude-0.4) > 1e-9 {
		t.Errorf("magnitude = %v, want 0.4 at maximum movement", b.Magnitude)
	}
}
