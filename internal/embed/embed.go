// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package embed implements the hand-crafted 1536-D affect embedding codec.
//
// The layout is a fixed wire contract (vocabulary version in the profile
// package): two implementations with the same vocabularies and ordering
// produce bit-identical vectors. No learned weights.
//
//	0-255     one-hot 8-tone vocabulary, stride 32
//	256-383   Gaussian bump centered by valence_delta   (domain [-1,1])
//	384-511   Gaussian bump centered by arousal_delta   (domain [-1,1])
//	512-639   Gaussian bump centered by intensity       (domain [0,1])
//	640-767   Gaussian bump centered by complexity      (domain [0,1])
//	768-1023  up to 3 target-state anchors, 86 dims each, split valence/arousal
//	1024-1151 one-hot genre slots (<=128)
//	1152-1279 one-hot category slots (<=128)
//	1280-1535 reserved zero
package embed

import (
	"errors"
	"math"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/profile"
)

// Dim is the embedding dimensionality.
const Dim = 1536

// Segment layout offsets.
const (
	toneBase       = 0
	toneStride     = 32
	valenceBase    = 256
	arousalBase    = 384
	intensityBase  = 512
	complexityBase = 640
	anchorBase     = 768
	anchorSpan     = 86
	anchorHalf     = 43
	anchorEnd      = 1024
	genreBase      = 1024
	categoryBase   = 1152
	reservedBase   = 1280
	maxAnchors     = 3
)

// bumpSize is the width of each Gaussian bump segment.
const bumpSize = 128

// ErrZeroEmbedding indicates the encoded vector had no mass to normalize.
var ErrZeroEmbedding = errors.New("zero embedding")

// Codec encodes content profiles and transition goals into the shared
// embedding space. Stateless and safe for concurrent use.
type Codec struct{}

// NewCodec creates the embedding codec.
func NewCodec() *Codec {
	return &Codec{}
}

// EmbedProfile encodes a content profile. The result is unit-norm.
func (c *Codec) EmbedProfile(p profile.Profile, vocab *profile.Vocabulary) ([]float64, error) {
	v := make([]float64, Dim)

	if idx := profile.ToneIndex(p.PrimaryTone); idx >= 0 {
		fillBlock(v, toneBase+idx*toneStride, toneStride)
	}

	writeBump(v, valenceBase, signedCenter(p.ValenceDelta))
	writeBump(v, arousalBase, signedCenter(p.ArousalDelta))
	writeBump(v, intensityBase, unitCenter(p.Intensity))
	writeBump(v, complexityBase, unitCenter(p.Complexity))

	anchors := p.TargetStates
	if len(anchors) > maxAnchors {
		anchors = anchors[:maxAnchors]
	}
	for i, a := range anchors {
		writeAnchor(v, i, a.Valence, a.Arousal)
	}

	if vocab != nil {
		for _, g := range p.Genres {
			if slot, ok := vocab.GenreSlots[g]; ok {
				v[genreBase+slot] = 1.0
			}
		}
		if slot, ok := vocab.CategorySlots[p.Category]; ok {
			v[categoryBase+slot] = 1.0
		}
	}

	return normalized(v)
}

// EmbedGoal encodes a transition goal: the delta segments carry
// (desired - current) and the first anchor carries the desired target point.
// The result is unit-norm.
func (c *Codec) EmbedGoal(current affect.State, desired affect.Desired) ([]float64, error) {
	current = current.Clamped()
	desired = desired.Clamped()

	v := make([]float64, Dim)

	writeBump(v, valenceBase, signedCenter(clampSigned(desired.TargetValence-current.Valence)))
	writeBump(v, arousalBase, signedCenter(clampSigned(desired.TargetArousal-current.Arousal)))
	writeBump(v, intensityBase, unitCenter(desired.Intensity.Scalar()))

	writeAnchor(v, 0, desired.TargetValence, desired.TargetArousal)

	return normalized(v)
}

// signedCenter maps a [-1,1] value onto the [0,1] bump domain.
func signedCenter(x float64) float64 {
	return unitCenter((x + 1) / 2)
}

// unitCenter clamps a [0,1] value.
func unitCenter(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clampSigned(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

// writeBump writes a Gaussian bump of width bumpSize at base with the given
// normalized center: w_i = exp(-(i - c*S)^2 / (2*(S/6)^2)).
func writeBump(v []float64, base int, center float64) {
	writeBumpSized(v, base, bumpSize, center)
}

func writeBumpSized(v []float64, base, size int, center float64) {
	s := float64(size)
	sigma := s / 6
	mean := center * s
	for i := 0; i < size; i++ {
		idx := base + i
		if idx >= len(v) {
			break
		}
		d := float64(i) - mean
		v[idx] = math.Exp(-(d * d) / (2 * sigma * sigma))
	}
}

// writeAnchor writes the i-th target-state anchor pair: a valence bump over
// the first half of the anchor span and an arousal bump over the second.
// The third anchor is truncated at the segment boundary.
func writeAnchor(v []float64, i int, valence, arousal float64) {
	base := anchorBase + i*anchorSpan
	if base >= anchorEnd {
		return
	}

	writeTruncatedBump(v, base, anchorHalf, signedCenter(clampSigned(valence)))
	writeTruncatedBump(v, base+anchorHalf, anchorHalf, signedCenter(clampSigned(arousal)))
}

// writeTruncatedBump writes a bump but never past the anchor segment end.
func writeTruncatedBump(v []float64, base, size int, center float64) {
	s := float64(size)
	sigma := s / 6
	mean := center * s
	for i := 0; i < size; i++ {
		idx := base + i
		if idx >= anchorEnd {
			return
		}
		d := float64(i) - mean
		v[idx] = math.Exp(-(d * d) / (2 * sigma * sigma))
	}
}

// fillBlock sets a contiguous block to 1.0.
func fillBlock(v []float64, base, size int) {
	for i := 0; i < size && base+i < len(v); i++ {
		v[base+i] = 1.0
	}
}

// normalized L2-normalizes in place and returns the slice.
func normalized(v []float64) ([]float64, error) {
	var sum float64
	for _, c := range v {
		sum += c * c
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrZeroEmbedding
	}
	for i := range v {
		v[i] /= norm
	}
	return v, nil
}
