// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package affect

import (
	"fmt"
	"math"
)

// Key is the discrete bucketed encoding of an affect state on the 5x5x3
// lattice. The string form "v:a:s" is the canonical wire and storage key.
type Key struct {
	Valence int `json:"v"`
	Arousal int `json:"a"`
	Stress  int `json:"s"`
}

// String returns the deterministic "v:a:s" form.
func (k Key) String() string {
	return fmt.Sprintf("%d:%d:%d", k.Valence, k.Arousal, k.Stress)
}

// Hash maps a continuous state to its lattice key. Inputs are clamped first,
// so Hash never fails. Buckets are left-closed and right-open except at the
// upper bound, which folds into the last bucket.
func Hash(s State) Key {
	s = s.Clamped()
	return Key{
		Valence: bucket((s.Valence+1)/2, ValenceBuckets),
		Arousal: bucket((s.Arousal+1)/2, ArousalBuckets),
		Stress:  bucket(s.Stress, StressBuckets),
	}
}

// bucket maps a normalized value in [0, 1] to one of n uniform buckets.
func bucket(norm float64, n int) int {
	b := int(math.Floor(norm * float64(n)))
	if b < 0 {
		b = 0
	}
	if b > n-1 {
		b = n - 1
	}
	return b
}
