// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package affect

import "errors"

// ErrStateOutOfRange indicates a state carried non-finite axis values.
// Out-of-range finite values are clamped, never rejected.
var ErrStateOutOfRange = errors.New("state out of range")
