// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package recommend

import (
	"fmt"
	"strings"

	"github.com/moodloop/moodloop/internal/affect"
)

// buildReasoning renders a deterministic rationale from the same inputs the
// ranker used. No randomness: identical inputs yield identical text.
func buildReasoning(s scored, current affect.State, desired affect.Desired) string {
	var parts []string

	if desired.Reason != "" {
		parts = append(parts, desired.Reason)
	}

	tone := string(s.profile.PrimaryTone)
	switch {
	case s.profile.ValenceDelta >= 0.3:
		parts = append(parts, fmt.Sprintf("its %s tone tends to lift mood", tone))
	case s.profile.ValenceDelta <= -0.3:
		parts = append(parts, fmt.Sprintf("its %s tone is emotionally heavy", tone))
	default:
		parts = append(parts, fmt.Sprintf("its %s tone keeps mood steady", tone))
	}

	if desired.TargetArousal < current.Arousal-0.2 && s.profile.ArousalDelta < 0 {
		parts = append(parts, "it should help you wind down")
	} else if desired.TargetArousal > current.Arousal+0.2 && s.profile.ArousalDelta > 0 {
		parts = append(parts, "it should raise your energy")
	}

	switch {
	case s.visits == 0:
		parts = append(parts, "this is new territory for you")
	case s.qValue >= 0.3:
		parts = append(parts, fmt.Sprintf("it has worked well for you before (%d views)", s.visits))
	case s.qValue <= -0.3:
		parts = append(parts, "past results were mixed, trying a fresh angle")
	}

	if s.exploration {
		parts = append(parts, "included to explore your preferences")
	}

	return strings.Join(parts, "; ")
}
