// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package profile derives emotional content profiles from catalog metadata
// and maintains the vector index over their embeddings.
//
// Profiling is deterministic: the same metadata always yields the same
// profile, and the genre/tone tables in tables.go are part of the wire
// contract. Profiles are immutable after creation and shared freely.
package profile

import (
	"fmt"
	"math"
	"strings"
)

// Item is the catalog metadata a profile is derived from.
type Item struct {
	ContentID       string   `json:"content_id"`
	Title           string   `json:"title"`
	Genres          []string `json:"genres"`
	Category        string   `json:"category"`
	DurationMinutes int      `json:"duration_minutes"`
	Rating          float64  `json:"rating,omitempty"`
}

// Validate rejects metadata with non-finite numeric fields.
func (it Item) Validate() error {
	if it.ContentID == "" {
		return fmt.Errorf("item has empty content_id")
	}
	if math.IsNaN(it.Rating) || math.IsInf(it.Rating, 0) {
		return fmt.Errorf("item %q: non-finite rating", it.ContentID)
	}
	return nil
}

// Anchor is a hinted (valence, arousal) target state.
type Anchor struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// Profile is the immutable emotional summary of a content item.
type Profile struct {
	ContentID       string   `json:"content_id"`
	Title           string   `json:"title"`
	PrimaryTone     Tone     `json:"primary_tone"`
	ValenceDelta    float64  `json:"valence_delta"`
	ArousalDelta    float64  `json:"arousal_delta"`
	Intensity       float64  `json:"intensity"`
	Complexity      float64  `json:"complexity"`
	TargetStates    []Anchor `json:"target_states"`
	DurationMinutes int      `json:"duration_minutes"`
	Category        string   `json:"category"`
	Genres          []string `json:"genres"`
}

// Derive computes the emotional profile for an item. Pure and deterministic.
func Derive(it Item) (Profile, error) {
	if err := it.Validate(); err != nil {
		return Profile{}, err
	}

	effect := averageGenreEffect(it.Genres)

	complexity := 0.3
	if n := len(it.Genres); n > 0 {
		complexity = math.Min(0.9, 0.3+0.15*float64(n))
	}

	p := Profile{
		ContentID:       it.ContentID,
		Title:           it.Title,
		PrimaryTone:     primaryTone(it),
		ValenceDelta:    effect.ValenceDelta,
		ArousalDelta:    effect.ArousalDelta,
		Intensity:       effect.Intensity,
		Complexity:      complexity,
		DurationMinutes: it.DurationMinutes,
		Category:        strings.ToLower(it.Category),
		Genres:          lowered(it.Genres),
	}

	// Two anchors at 50% and 30% of the deltas.
	p.TargetStates = []Anchor{
		{Valence: 0.5 * p.ValenceDelta, Arousal: 0.5 * p.ArousalDelta},
		{Valence: 0.3 * p.ValenceDelta, Arousal: 0.3 * p.ArousalDelta},
	}

	return p, nil
}

// averageGenreEffect averages the effect table rows for the matched genres,
// or returns the neutral default when none match.
func averageGenreEffect(genres []string) genreEffect {
	var sum genreEffect
	matched := 0

	for _, g := range genres {
		if eff, ok := genreEffects[strings.ToLower(g)]; ok {
			sum.ValenceDelta += eff.ValenceDelta
			sum.ArousalDelta += eff.ArousalDelta
			sum.Intensity += eff.Intensity
			matched++
		}
	}

	if matched == 0 {
		return neutralEffect
	}

	n := float64(matched)
	return genreEffect{
		ValenceDelta: sum.ValenceDelta / n,
		ArousalDelta: sum.ArousalDelta / n,
		Intensity:    sum.Intensity / n,
	}
}

// primaryTone resolves the tone: category override, then first matching
// genre, then a deterministic fallback from the content id.
func primaryTone(it Item) Tone {
	if tone, ok := categoryTones[strings.ToLower(it.Category)]; ok {
		return tone
	}

	for _, g := range it.Genres {
		if tone, ok := genreTones[strings.ToLower(g)]; ok {
			return tone
		}
	}

	if it.ContentID == "" {
		return fallbackToneCycle[0]
	}
	return fallbackToneCycle[int(it.ContentID[0])%len(fallbackToneCycle)]
}

func lowered(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
