// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package policy holds the per-user tabular Q-learning state: Q-values keyed
// by (discrete affect state, content id), the epsilon-greedy exploration
// controller, and the UCB tie-break used between near-equal Q-values.
//
// All values live in memory and are persisted through the debounced store
// persister; a user's table is loaded lazily from Badger on first touch.
package policy

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/store"
)

func unmarshalValue(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

// LearningParams are the Q-update hyperparameters.
type LearningParams struct {
	// Alpha is the learning rate.
	Alpha float64
	// Gamma is the discount factor.
	Gamma float64
}

// DefaultLearningParams match the published behavior of the service.
var DefaultLearningParams = LearningParams{Alpha: 0.10, Gamma: 0.95}

// QEntry is one Q-table cell.
type QEntry struct {
	Q          float64   `json:"q"`
	VisitCount int       `json:"visit_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// userTable is one user's in-memory Q-table: state key -> content id -> entry.
type userTable struct {
	mu     sync.Mutex
	states map[string]map[string]QEntry
	loaded bool
}

// QStore owns all users' Q-tables.
type QStore struct {
	st        *store.Store
	persister *store.Persister
	logger    zerolog.Logger

	mu    sync.Mutex
	users map[string]*userTable
}

// NewQStore creates a Q-store over the given KV store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewQStore(st *store.Store, persister *store.Persister, logger zerolog.Logger) *QStore {
	return &QStore{
		st:        st,
		persister: persister,
		logger:    logger.With().Str("component", "qstore").Logger(),
		users:     make(map[string]*userTable),
	}
}

func qKey(userID, stateKey, contentID string) string {
	return fmt.Sprintf("user:%s:qtable:%s:%s", userID, stateKey, contentID)
}

func qPrefix(userID string) string {
	return fmt.Sprintf("user:%s:qtable:", userID)
}

// user returns the (locked-elsewhere) table for a user, creating it if new.
func (q *QStore) user(userID string) *userTable {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.users[userID]
	if !ok {
		t = &userTable{states: make(map[string]map[string]QEntry)}
		q.users[userID] = t
	}
	return t
}

// load restores a user's table from the store. Caller holds t.mu.
func (q *QStore) load(userID string, t *userTable) {
	if t.loaded {
		return
	}
	t.loaded = true
	if q.st == nil {
		return
	}

	prefix := qPrefix(userID)
	err := q.st.IteratePrefix(prefix, func(key string, value []byte) error {
		rest := strings.TrimPrefix(key, prefix)
		// rest is "{v}:{a}:{s}:{content_id}".
		parts := strings.SplitN(rest, ":", 4)
		if len(parts) != 4 {
			q.logger.Warn().Str("key", key).Msg("skipping malformed qtable key")
			return nil
		}
		stateKey := parts[0] + ":" + parts[1] + ":" + parts[2]
		contentID := parts[3]

		var entry QEntry
		if err := unmarshalValue(value, &entry); err != nil {
			q.logger.Warn().Err(err).Str("key", key).Msg("skipping unreadable qtable entry")
			return nil
		}

		cells, ok := t.states[stateKey]
		if !ok {
			cells = make(map[string]QEntry)
			t.states[stateKey] = cells
		}
		cells[contentID] = entry
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		q.logger.Error().Err(err).Str("user_id", userID).Msg("qtable load failed")
	}
}

// Get returns the Q-entry for (state, content), or a zero entry. Reads never
// change visit counts.
func (q *QStore) Get(userID string, state affect.Key, contentID string) QEntry {
	t := q.user(userID)
	t.mu.Lock()
	defer t.mu.Unlock()
	q.load(userID, t)

	if cells, ok := t.states[state.String()]; ok {
		if entry, ok := cells[contentID]; ok {
			return entry
		}
	}
	return QEntry{}
}

// Update applies one Q-learning step for (state, content):
//
//	q <- q + alpha * (reward + gamma * maxNext - q)
//
// clamped to [-1, 1], and increments the visit count. Returns the new entry.
func (q *QStore) Update(userID string, state affect.Key, contentID string, reward, maxNext float64, params LearningParams) QEntry {
	t := q.user(userID)
	t.mu.Lock()
	defer t.mu.Unlock()
	q.load(userID, t)

	stateKey := state.String()
	cells, ok := t.states[stateKey]
	if !ok {
		cells = make(map[string]QEntry)
		t.states[stateKey] = cells
	}

	entry := cells[contentID]
	entry.Q += params.Alpha * (reward + params.Gamma*maxNext - entry.Q)
	entry.Q = clampUnit(entry.Q)
	entry.VisitCount++
	entry.UpdatedAt = time.Now().UTC()
	cells[contentID] = entry

	q.persist(userID, stateKey, contentID, entry)
	return entry
}

// persist marks the entry dirty. Caller holds t.mu; the closure captures the
// value, not the table, so the flush needs no locks.
func (q *QStore) persist(userID, stateKey, contentID string, entry QEntry) {
	if q.st == nil || q.persister == nil {
		return
	}
	key := qKey(userID, stateKey, contentID)
	st := q.st
	q.persister.Mark(key, func() error {
		return st.SetJSON(key, entry)
	})
}

// StateEntries returns a copy of all entries for (user, state).
func (q *QStore) StateEntries(userID string, state affect.Key) map[string]QEntry {
	t := q.user(userID)
	t.mu.Lock()
	defer t.mu.Unlock()
	q.load(userID, t)

	cells := t.states[state.String()]
	out := make(map[string]QEntry, len(cells))
	for id, entry := range cells {
		out[id] = entry
	}
	return out
}

// MaxQ returns the highest Q-value for (user, state), or 0 when the state
// has no entries.
func (q *QStore) MaxQ(userID string, state affect.Key) float64 {
	t := q.user(userID)
	t.mu.Lock()
	defer t.mu.Unlock()
	q.load(userID, t)

	cells, ok := t.states[state.String()]
	if !ok || len(cells) == 0 {
		return 0
	}
	best := math.Inf(-1)
	for _, entry := range cells {
		if entry.Q > best {
			best = entry.Q
		}
	}
	return best
}

// Size returns the total number of Q-entries a user has across all states.
func (q *QStore) Size(userID string) int {
	t := q.user(userID)
	t.mu.Lock()
	defer t.mu.Unlock()
	q.load(userID, t)

	n := 0
	for _, cells := range t.states {
		n += len(cells)
	}
	return n
}

// Reset drops a user's table from memory and from the store.
func (q *QStore) Reset(userID string) error {
	t := q.user(userID)
	t.mu.Lock()
	t.states = make(map[string]map[string]QEntry)
	t.loaded = true
	t.mu.Unlock()

	if q.st == nil {
		return nil
	}
	if _, err := q.st.DeletePrefix(qPrefix(userID)); err != nil {
		return fmt.Errorf("reset qtable: %w", err)
	}
	return nil
}

func clampUnit(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}
