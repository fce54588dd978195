// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package recommend

import (
	"math"
	"sort"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/policy"
	"github.com/moodloop/moodloop/internal/profile"
)

// hybrid ranking weights
const (
	qWeight          = 0.7
	similarityWeight = 0.3

	// optimistic prior for content never tried in this state
	defaultQ = 0.5

	// alignment boost region
	alignBoostAbove = 0.8
	alignBoostSlope = 0.5
	alignCap        = 1.10

	// alignment when either movement vector is degenerate
	alignNeutral = 0.5
)

// candidate couples a retrieval hit with its profile.
type candidate struct {
	contentID  string
	profile    profile.Profile
	similarity float64
}

// scored is a ranked candidate before presentation.
type scored struct {
	candidate
	qValue      float64
	visits      int
	alignment   float64
	combined    float64
	exploration bool
}

// rankCandidates computes the hybrid score for every candidate and sorts by
// combined descending with ties broken by content id ascending. When every
// candidate has been tried at least once, near-equal scores fall back to the
// UCB bound before the id comparison.
func rankCandidates(cands []candidate, qEntries map[string]policy.QEntry, current affect.State, desired affect.Desired) []scored {
	out := make([]scored, 0, len(cands))

	totalVisits := 0
	allVisited := len(cands) > 0
	for _, c := range cands {
		entry, tried := qEntries[c.contentID]
		if !tried || entry.VisitCount == 0 {
			allVisited = false
		}
		totalVisits += entry.VisitCount
	}

	for _, c := range cands {
		s := scored{candidate: c, qValue: defaultQ}
		if entry, ok := qEntries[c.contentID]; ok {
			s.qValue = entry.Q
			s.visits = entry.VisitCount
		}

		qn := (s.qValue + 1) / 2
		s.alignment = alignmentFactor(c.profile, current, desired)
		s.combined = (qWeight*qn + similarityWeight*c.similarity) * s.alignment
		out = append(out, s)
	}

	sortScored(out, allVisited, totalVisits)
	return out
}

// sortScored orders by combined descending; exact ties go to the UCB bound
// when the policy has visited everything, then to id ascending.
func sortScored(items []scored, allVisited bool, totalVisits int) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].combined != items[j].combined {
			return items[i].combined > items[j].combined
		}
		if allVisited && totalVisits > 0 {
			ui := policy.UCBScore(items[i].qValue, items[i].visits, totalVisits)
			uj := policy.UCBScore(items[j].qValue, items[j].visits, totalVisits)
			if ui != uj {
				return ui > uj
			}
		}
		return items[i].contentID < items[j].contentID
	})
}

// alignmentFactor maps the cosine between the content's expected movement
// and the user's desired movement into [0, 1.10]. Strong alignment above 0.8
// earns a boost; a degenerate movement on either side scores neutral.
func alignmentFactor(p profile.Profile, current affect.State, desired affect.Desired) float64 {
	moveV, moveA := p.ValenceDelta, p.ArousalDelta
	wantV := desired.TargetValence - current.Valence
	wantA := desired.TargetArousal - current.Arousal

	moveNorm := math.Hypot(moveV, moveA)
	wantNorm := math.Hypot(wantV, wantA)
	if moveNorm == 0 || wantNorm == 0 {
		return alignNeutral
	}

	cos := (moveV*wantV + moveA*wantA) / (moveNorm * wantNorm)
	mapped := (cos + 1) / 2
	if mapped > alignBoostAbove {
		boosted := mapped + alignBoostSlope*(mapped-alignBoostAbove)
		if boosted > alignCap {
			boosted = alignCap
		}
		return boosted
	}
	return mapped
}
