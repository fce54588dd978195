// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package profile

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/moodloop/moodloop/internal/vecindex"
)

// Vocabulary assigns embedding slots to the genres and categories seen in a
// catalog. Slots are assigned in sorted order so the same catalog always
// yields the same layout; at most MaxSlots of each are encoded.
type Vocabulary struct {
	GenreSlots    map[string]int
	CategorySlots map[string]int
}

// MaxSlots bounds the genre and category one-hot segments.
const MaxSlots = 128

// Embedder produces the 1536-D affect embedding for a profile. Implemented
// by the embed package; injected to keep profiling free of codec details.
type Embedder interface {
	EmbedProfile(p Profile, vocab *Vocabulary) ([]float64, error)
}

// Profiler derives profiles for a catalog and maintains the vector index.
// Profiles and vocabulary are immutable after Load; readers are lock-free.
type Profiler struct {
	idx    *vecindex.Index
	embed  Embedder
	logger zerolog.Logger

	profiles atomic.Pointer[map[string]Profile]
	vocab    atomic.Pointer[Vocabulary]
}

// NewProfiler creates a profiler writing into the given index.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewProfiler(idx *vecindex.Index, embed Embedder, logger zerolog.Logger) *Profiler {
	p := &Profiler{
		idx:    idx,
		embed:  embed,
		logger: logger.With().Str("component", "profile").Logger(),
	}
	empty := map[string]Profile{}
	p.profiles.Store(&empty)
	p.vocab.Store(&Vocabulary{GenreSlots: map[string]int{}, CategorySlots: map[string]int{}})
	return p
}

// Load profiles the whole catalog and swaps the vector index atomically.
// A failure leaves the previous profiles and index untouched.
func (p *Profiler) Load(items []Item) error {
	profiles := make(map[string]Profile, len(items))
	for _, it := range items {
		prof, err := Derive(it)
		if err != nil {
			return fmt.Errorf("profile %q: %w", it.ContentID, err)
		}
		profiles[prof.ContentID] = prof
	}

	vocab := buildVocabulary(profiles)

	entries := make([]vecindex.Entry, 0, len(profiles))
	for _, prof := range profiles {
		vec, err := p.embed.EmbedProfile(prof, vocab)
		if err != nil {
			return fmt.Errorf("embed %q: %w", prof.ContentID, err)
		}
		entries = append(entries, vecindex.Entry{
			ID:     prof.ContentID,
			Vector: vec,
			Meta: vecindex.Meta{
				Title:           prof.Title,
				Category:        prof.Category,
				DurationMinutes: prof.DurationMinutes,
			},
		})
	}

	if err := p.idx.Swap(entries); err != nil {
		return fmt.Errorf("swap index: %w", err)
	}

	p.profiles.Store(&profiles)
	p.vocab.Store(vocab)

	p.logger.Info().
		Int("items", len(profiles)).
		Int("genres", len(vocab.GenreSlots)).
		Int("categories", len(vocab.CategorySlots)).
		Msg("catalog profiled")

	return nil
}

// Get returns the profile for a content id.
func (p *Profiler) Get(id string) (Profile, bool) {
	prof, ok := (*p.profiles.Load())[id]
	return prof, ok
}

// Len returns the number of profiled items.
func (p *Profiler) Len() int {
	return len(*p.profiles.Load())
}

// Vocabulary returns the current slot assignment.
func (p *Profiler) Vocabulary() *Vocabulary {
	return p.vocab.Load()
}

// buildVocabulary assigns slots to distinct genres and categories in sorted
// order, truncating at MaxSlots.
func buildVocabulary(profiles map[string]Profile) *Vocabulary {
	genreSet := map[string]struct{}{}
	categorySet := map[string]struct{}{}
	for _, prof := range profiles {
		for _, g := range prof.Genres {
			genreSet[g] = struct{}{}
		}
		if prof.Category != "" {
			categorySet[prof.Category] = struct{}{}
		}
	}

	return &Vocabulary{
		GenreSlots:    assignSlots(genreSet),
		CategorySlots: assignSlots(categorySet),
	}
}

func assignSlots(set map[string]struct{}) map[string]int {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	slots := make(map[string]int, len(names))
	for i, name := range names {
		if i >= MaxSlots {
			break
		}
		slots[name] = i
	}
	return slots
}
