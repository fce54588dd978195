// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package vecindex stores affect embeddings keyed by content id and answers
// top-K cosine similarity queries.
//
// The index is a linear scan, which is exact and fast enough for catalogs up
// to ~1e5 items. Readers never take a lock: the full snapshot is swapped
// atomically on catalog reload, and single upserts rebuild the snapshot
// copy-on-write (upserts only happen during profiling).
package vecindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

// Dim is the embedding dimensionality. Vectors of any other length are
// rejected on upsert.
const Dim = 1536

// ErrBadVector indicates a vector with the wrong dimensionality or zero norm.
var ErrBadVector = errors.New("bad vector")

// Meta is light metadata stored next to each vector.
type Meta struct {
	Title           string `json:"title"`
	Category        string `json:"category"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Entry is a stored vector with its id and metadata.
type Entry struct {
	ID     string
	Vector []float64
	Meta   Meta
}

// Result is a single search hit.
type Result struct {
	ID    string
	Score float64
	Meta  Meta
}

// snapshot is the immutable state readers see.
type snapshot struct {
	entries map[string]Entry
}

// Index is a cosine-similarity vector index. Safe for concurrent use;
// reads are lock-free.
type Index struct {
	snap atomic.Pointer[snapshot]

	// writeMu serializes upserts and swaps.
	writeMu sync.Mutex
}

// New creates an empty index.
func New() *Index {
	idx := &Index{}
	idx.snap.Store(&snapshot{entries: map[string]Entry{}})
	return idx
}

// Upsert stores a vector under id, replacing any prior entry. The vector must
// have exactly Dim components and is normalized to unit length; a zero vector
// is rejected.
func (x *Index) Upsert(id string, vector []float64, meta Meta) error {
	normalized, err := normalize(vector)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", id, err)
	}

	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	old := x.snap.Load()
	next := make(map[string]Entry, len(old.entries)+1)
	for k, v := range old.entries {
		next[k] = v
	}
	next[id] = Entry{ID: id, Vector: normalized, Meta: meta}
	x.snap.Store(&snapshot{entries: next})

	return nil
}

// Swap atomically replaces the whole index with the given entries.
// Used for catalog reload. Entries with bad vectors fail the whole swap so a
// reload never leaves the index half-replaced.
func (x *Index) Swap(entries []Entry) error {
	next := make(map[string]Entry, len(entries))
	for _, e := range entries {
		normalized, err := normalize(e.Vector)
		if err != nil {
			return fmt.Errorf("swap entry %q: %w", e.ID, err)
		}
		next[e.ID] = Entry{ID: e.ID, Vector: normalized, Meta: e.Meta}
	}

	x.writeMu.Lock()
	defer x.writeMu.Unlock()
	x.snap.Store(&snapshot{entries: next})

	return nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	return len(x.snap.Load().entries)
}

// Search returns the top k entries by cosine similarity to the query,
// sorted by score descending with ties broken by id ascending. A zero query
// scores 0 against everything. An empty index returns an empty slice.
func (x *Index) Search(query []float64, k int) []Result {
	snap := x.snap.Load()
	if k <= 0 || len(snap.entries) == 0 {
		return []Result{}
	}

	queryNorm := vectorNorm(query)

	results := make([]Result, 0, len(snap.entries))
	for _, e := range snap.entries {
		score := 0.0
		if queryNorm > 0 && len(query) == len(e.Vector) {
			// Stored vectors are unit norm, so cosine reduces to dot/|q|.
			score = dot(query, e.Vector) / queryNorm
		}
		results = append(results, Result{ID: e.ID, Score: score, Meta: e.Meta})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Get returns the stored entry for id.
func (x *Index) Get(id string) (Entry, bool) {
	e, ok := x.snap.Load().entries[id]
	return e, ok
}

// normalize validates dimensionality and returns a unit-norm copy.
func normalize(v []float64) ([]float64, error) {
	if len(v) != Dim {
		return nil, fmt.Errorf("%w: dimension %d, want %d", ErrBadVector, len(v), Dim)
	}

	norm := vectorNorm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: zero or non-finite norm", ErrBadVector)
	}

	out := make([]float64, len(v))
	for i, c := range v {
		out[i] = c / norm
	}
	return out, nil
}

func vectorNorm(v []float64) float64 {
	var sum float64
	for _, c := range v {
		sum += c * c
	}
	return math.Sqrt(sum)
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
