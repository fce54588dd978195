// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package reward turns an observed affect transition into the scalar reward
// that drives the Q-update. The computation is pure and the component
// addition order is fixed so replaying a transition always reproduces the
// same reward bit for bit.
package reward

import (
	"math"

	"github.com/moodloop/moodloop/internal/affect"
)

// Weights and thresholds of the reward model.
const (
	directionWeight = 0.6
	magnitudeWeight = 0.4

	proximityBonus     = 0.10
	ProximityThreshold = 0.30

	// completion penalty ladder, by watch/total rate
	abandonPenalty   = 0.20 // rate < 0.20
	partialPenalty   = 0.10 // rate < 0.50
	interruptPenalty = 0.05 // rate < 0.80
)

// maxDelta is the largest possible movement in the (valence, arousal)
// plane, corner to corner of the [-1,1]^2 square.
var maxDelta = 2 * math.Sqrt2

// Params holds the tunable part of the model.
type Params struct {
	// ProximityThreshold is the Euclidean distance in (valence, arousal)
	// under which the proximity bonus applies.
	ProximityThreshold float64
}

// DefaultParams match the published behavior of the service.
var DefaultParams = Params{ProximityThreshold: ProximityThreshold}

// Completion describes how much of the item was consumed.
type Completion struct {
	Completed     bool
	WatchDuration float64
	TotalDuration float64
}

// Rate is watch/total, clamped to [0, 1]. A non-positive total counts as 0.
func (c Completion) Rate() float64 {
	if c.TotalDuration <= 0 {
		return 0
	}
	return clamp(c.WatchDuration/c.TotalDuration, 0, 1)
}

// Breakdown reports each component next to the total. Returned to clients so
// a reward is explainable after the fact.
type Breakdown struct {
	Direction  float64 `json:"direction"`
	Magnitude  float64 `json:"magnitude"`
	Proximity  float64 `json:"proximity"`
	Completion float64 `json:"completion"`
	Total      float64 `json:"total"`
}

// Calculator computes rewards. Stateless and safe for concurrent use.
type Calculator struct {
	params Params
}

// NewCalculator creates a calculator; zero-value params fall back to defaults.
func NewCalculator(params Params) *Calculator {
	if params.ProximityThreshold <= 0 {
		params.ProximityThreshold = ProximityThreshold
	}
	return &Calculator{params: params}
}

// Compute scores the transition from before to after against the desired
// state:
//
//	direction  = cosine(actual_delta, desired_delta), 0 if either is zero
//	magnitude  = |actual_delta| / (2*sqrt(2)), clamped to [0, 1]
//	base       = 0.6*direction + 0.4*magnitude
//	proximity  = +0.10 when after lands within the threshold of desired
//	completion = penalty ladder on the watch rate, 0 when completed
//	total      = clamp(base + proximity + completion, -1, 1)
//
// Components are added in that order.
func (c *Calculator) Compute(before, after affect.State, desired affect.Desired, completion Completion) Breakdown {
	before = before.Clamped()
	after = after.Clamped()
	desired = desired.Clamped()

	var b Breakdown
	b.Direction = directionWeight * directionScore(before, after, desired)
	b.Magnitude = magnitudeWeight * magnitudeScore(before, after)
	b.Proximity = c.proximityScore(after, desired)
	b.Completion = completionPenalty(completion)

	total := b.Direction
	total += b.Magnitude
	total += b.Proximity
	total += b.Completion
	b.Total = clamp(total, -1, 1)
	return b
}

// directionScore is the cosine of the angle between the achieved movement
// and the desired movement in the (valence, arousal) plane.
func directionScore(before, after affect.State, desired affect.Desired) float64 {
	actualV := after.Valence - before.Valence
	actualA := after.Arousal - before.Arousal
	wantV := desired.TargetValence - before.Valence
	wantA := desired.TargetArousal - before.Arousal

	actualNorm := math.Hypot(actualV, actualA)
	wantNorm := math.Hypot(wantV, wantA)
	if actualNorm == 0 || wantNorm == 0 {
		return 0
	}
	return (actualV*wantV + actualA*wantA) / (actualNorm * wantNorm)
}

// magnitudeScore normalizes the movement against the diagonal of the
// (valence, arousal) square.
func magnitudeScore(before, after affect.State) float64 {
	actual := math.Hypot(after.Valence-before.Valence, after.Arousal-before.Arousal)
	return clamp(actual/maxDelta, 0, 1)
}

// proximityScore grants the flat bonus when the after-state lands within the
// threshold distance of the desired point.
func (c *Calculator) proximityScore(after affect.State, desired affect.Desired) float64 {
	dist := math.Hypot(after.Valence-desired.TargetValence, after.Arousal-desired.TargetArousal)
	if dist < c.params.ProximityThreshold {
		return proximityBonus
	}
	return 0
}

// completionPenalty maps the watch rate onto the penalty ladder. Completed
// items carry no penalty regardless of rate.
func completionPenalty(c Completion) float64 {
	if c.Completed {
		return 0
	}
	rate := c.Rate()
	switch {
	case rate < 0.20:
		return -abandonPenalty
	case rate < 0.50:
		return -partialPenalty
	case rate < 0.80:
		return -interruptPenalty
	default:
		return 0
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
