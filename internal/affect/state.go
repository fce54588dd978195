// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package affect defines the continuous and discrete emotional state model.
//
// A State is a point in the valence/arousal/stress space with an attached
// confidence. States are bucketed onto a 5x5x3 lattice of Keys for the
// tabular policy; bucketing is uniform, left-closed and right-open except at
// the upper domain bound, so neighboring continuous states may alias to the
// same key by design.
package affect

import (
	"fmt"
	"math"
)

// Axis domain bounds.
const (
	ValenceMin = -1.0
	ValenceMax = 1.0
	ArousalMin = -1.0
	ArousalMax = 1.0
	StressMin  = 0.0
	StressMax  = 1.0
)

// Lattice dimensions for discrete state keys.
const (
	ValenceBuckets = 5
	ArousalBuckets = 5
	StressBuckets  = 3
)

// State is a continuous affect state.
type State struct {
	// Valence is the unpleasant..pleasant axis in [-1, 1].
	Valence float64 `json:"valence"`

	// Arousal is the calm..activated axis in [-1, 1].
	Arousal float64 `json:"arousal"`

	// Stress is the stress level in [0, 1].
	Stress float64 `json:"stress"`

	// Confidence is the oracle's confidence in this reading, in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Clamped returns a copy of the state with every axis clamped to its domain.
// Non-finite values are rejected upstream by Validate.
func (s State) Clamped() State {
	return State{
		Valence:    clamp(s.Valence, ValenceMin, ValenceMax),
		Arousal:    clamp(s.Arousal, ArousalMin, ArousalMax),
		Stress:     clamp(s.Stress, StressMin, StressMax),
		Confidence: clamp(s.Confidence, 0, 1),
	}
}

// Validate reports whether all axes are finite.
func (s State) Validate() error {
	for _, v := range []float64{s.Valence, s.Arousal, s.Stress, s.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("affect state contains non-finite value: %w", ErrStateOutOfRange)
		}
	}
	return nil
}

// Intensity classifies how large a desired transition is.
type Intensity string

const (
	IntensitySubtle      Intensity = "subtle"
	IntensityModerate    Intensity = "moderate"
	IntensitySignificant Intensity = "significant"
)

// Scalar maps an intensity class onto [0, 1] for the embedding codec.
func (i Intensity) Scalar() float64 {
	switch i {
	case IntensitySubtle:
		return 0.25
	case IntensityModerate:
		return 0.5
	case IntensitySignificant:
		return 0.85
	default:
		return 0.5
	}
}

// Valid reports whether the intensity is one of the known classes.
func (i Intensity) Valid() bool {
	switch i {
	case IntensitySubtle, IntensityModerate, IntensitySignificant:
		return true
	}
	return false
}

// Desired is the target affect state for the current step, either derived by
// the rule table or supplied by the client.
type Desired struct {
	// TargetValence in [-1, 1].
	TargetValence float64 `json:"target_valence"`

	// TargetArousal in [-1, 1].
	TargetArousal float64 `json:"target_arousal"`

	// TargetStress in [0, 1].
	TargetStress float64 `json:"target_stress"`

	// Intensity classifies the size of the desired transition.
	Intensity Intensity `json:"intensity"`

	// Reason is a human-readable rationale for this target.
	Reason string `json:"reasoning"`
}

// Clamped returns a copy with targets clamped to their domains.
func (d Desired) Clamped() Desired {
	d.TargetValence = clamp(d.TargetValence, ValenceMin, ValenceMax)
	d.TargetArousal = clamp(d.TargetArousal, ArousalMin, ArousalMax)
	d.TargetStress = clamp(d.TargetStress, StressMin, StressMax)
	if !d.Intensity.Valid() {
		d.Intensity = IntensityModerate
	}
	return d
}

// Validate reports whether all targets are finite.
func (d Desired) Validate() error {
	for _, v := range []float64{d.TargetValence, d.TargetArousal, d.TargetStress} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("desired state contains non-finite value: %w", ErrStateOutOfRange)
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
