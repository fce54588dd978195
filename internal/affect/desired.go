// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package affect

import "math"

// Transition rule thresholds.
const (
	highStressThreshold   = 0.60
	anxiousArousalFloor   = 0.40
	lowValenceThreshold   = -0.40
	neutralValenceBand    = 0.20
	lethargyArousalCeil   = -0.30
	anxietyArousalDrop    = 0.60
	moodLiftValenceFloor  = 0.20
	maintainValenceDrift  = 0.10
	maintainStressRelease = 0.05
)

// DeriveDesired maps a current state to a target state via the priority rule
// table. The anxious profile (negative valence with elevated arousal) is
// matched before plain high stress: when both hold, reducing arousal is the
// more specific intervention.
func DeriveDesired(s State) Desired {
	s = s.Clamped()

	switch {
	case s.Valence < 0 && s.Arousal > anxiousArousalFloor:
		return Desired{
			TargetValence: clamp(s.Valence+0.30, ValenceMin, ValenceMax),
			TargetArousal: clamp(s.Arousal-anxietyArousalDrop, ArousalMin, ArousalMax),
			TargetStress:  clamp(s.Stress-0.40, StressMin, StressMax),
			Intensity:     IntensitySignificant,
			Reason:        "elevated arousal with negative valence suggests anxiety; easing activation while lifting mood",
		}

	case s.Stress > highStressThreshold:
		return Desired{
			TargetValence: math.Max(0.30, s.Valence),
			TargetArousal: math.Min(-0.30, s.Arousal),
			TargetStress:  0.30,
			Intensity:     IntensitySignificant,
			Reason:        "high stress calls for calming content that lowers activation",
		}

	case s.Valence < lowValenceThreshold:
		return Desired{
			TargetValence: math.Max(s.Valence+0.40, moodLiftValenceFloor),
			TargetArousal: s.Arousal,
			TargetStress:  clamp(s.Stress-0.10, StressMin, StressMax),
			Intensity:     IntensityModerate,
			Reason:        "low mood benefits from a gradual lift in valence",
		}

	case math.Abs(s.Valence) < neutralValenceBand && s.Arousal < lethargyArousalCeil:
		return Desired{
			TargetValence: clamp(s.Valence+0.20, ValenceMin, ValenceMax),
			TargetArousal: clamp(s.Arousal+0.50, ArousalMin, ArousalMax),
			TargetStress:  s.Stress,
			Intensity:     IntensityModerate,
			Reason:        "flat mood with low energy benefits from stimulating content",
		}

	default:
		return Desired{
			TargetValence: clamp(s.Valence+maintainValenceDrift, ValenceMin, ValenceMax),
			TargetArousal: s.Arousal,
			TargetStress:  clamp(s.Stress-maintainStressRelease, StressMin, StressMax),
			Intensity:     IntensitySubtle,
			Reason:        "state is balanced; maintaining with a small positive drift",
		}
	}
}
