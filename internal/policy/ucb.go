// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package policy

import "math"

// ucbC is the exploration constant in the confidence bound.
const ucbC = 2.0

// UCBScore computes the upper-confidence-bound score for one arm:
//
//	q + 2 * sqrt(ln(totalVisits) / visits)
//
// Arms never tried score +Inf so they are always preferred in a tie-break.
func UCBScore(q float64, visits, totalVisits int) float64 {
	if visits <= 0 {
		return math.Inf(1)
	}
	if totalVisits < 1 {
		totalVisits = 1
	}
	return q + ucbC*math.Sqrt(math.Log(float64(totalVisits))/float64(visits))
}
