// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package experience keeps the per-user append-only outcome log, bounded to
// the most recent N records, and derives learning-progress analytics from it.
package experience

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/store"
)

// DefaultRingSize bounds each user's log.
const DefaultRingSize = 1000

// Experience is one observed transition. Records are immutable once appended.
type Experience struct {
	UserID        string         `json:"user_id"`
	Timestamp     time.Time      `json:"timestamp"`
	StateBefore   affect.State   `json:"state_before"`
	ContentID     string         `json:"content_id"`
	StateAfter    affect.State   `json:"state_after"`
	Desired       affect.Desired `json:"desired_state"`
	Reward        float64        `json:"reward"`
	Completed     bool           `json:"completed"`
	WatchDuration float64        `json:"watch_duration"`
	TotalDuration float64        `json:"total_duration"`
	Rating        *float64       `json:"rating,omitempty"`
	Exploration   bool           `json:"exploration"`
}

// userRing is one user's bounded log, oldest first.
type userRing struct {
	mu      sync.Mutex
	records []Experience
	loaded  bool
}

// Log owns all users' experience rings.
type Log struct {
	ringSize  int
	st        *store.Store
	persister *store.Persister
	logger    zerolog.Logger

	mu    sync.Mutex
	users map[string]*userRing
}

// NewLog creates a log with the given ring size (DefaultRingSize if <= 0).
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLog(ringSize int, st *store.Store, persister *store.Persister, logger zerolog.Logger) *Log {
	if ringSize <= 0 {
		ringSize = DefaultRingSize
	}
	return &Log{
		ringSize:  ringSize,
		st:        st,
		persister: persister,
		logger:    logger.With().Str("component", "experience").Logger(),
		users:     make(map[string]*userRing),
	}
}

// Keys carry a fixed-width nanosecond timestamp so lexical order is time
// order.
func expKey(userID string, ts time.Time) string {
	return fmt.Sprintf("user:%s:experience:%019d", userID, ts.UnixNano())
}

func expPrefix(userID string) string {
	return fmt.Sprintf("user:%s:experience:", userID)
}

func (l *Log) ring(userID string) *userRing {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.users[userID]
	if !ok {
		r = &userRing{}
		l.users[userID] = r
	}
	return r
}

// load restores a user's ring from the store. Caller holds r.mu.
func (l *Log) load(userID string, r *userRing) {
	if r.loaded {
		return
	}
	r.loaded = true
	if l.st == nil {
		return
	}

	var records []Experience
	err := l.st.IteratePrefix(expPrefix(userID), func(key string, value []byte) error {
		var e Experience
		if err := json.Unmarshal(value, &e); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("skipping unreadable experience")
			return nil
		}
		records = append(records, e)
		return nil
	})
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Msg("experience load failed")
		return
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	if len(records) > l.ringSize {
		records = records[len(records)-l.ringSize:]
	}
	r.records = records
}

// Append adds a record, evicting the oldest past the ring bound.
func (l *Log) Append(e Experience) {
	r := l.ring(e.UserID)
	r.mu.Lock()
	defer r.mu.Unlock()
	l.load(e.UserID, r)

	r.records = append(r.records, e)
	var evicted []Experience
	if len(r.records) > l.ringSize {
		n := len(r.records) - l.ringSize
		evicted = append(evicted, r.records[:n]...)
		r.records = append([]Experience(nil), r.records[n:]...)
	}

	l.persistAppend(e, evicted)
}

func (l *Log) persistAppend(e Experience, evicted []Experience) {
	if l.st == nil || l.persister == nil {
		return
	}
	st := l.st

	key := expKey(e.UserID, e.Timestamp)
	rec := e
	l.persister.Mark(key, func() error {
		return st.SetJSON(key, rec)
	})

	for _, old := range evicted {
		oldKey := expKey(old.UserID, old.Timestamp)
		l.persister.Mark("del:"+oldKey, func() error {
			return st.Delete(oldKey)
		})
	}
}

// Recent returns up to n most recent records, oldest first. n <= 0 returns
// the whole ring.
func (l *Log) Recent(userID string, n int) []Experience {
	r := l.ring(userID)
	r.mu.Lock()
	defer r.mu.Unlock()
	l.load(userID, r)

	records := r.records
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	out := make([]Experience, len(records))
	copy(out, records)
	return out
}

// Count returns how many records the user's ring holds.
func (l *Log) Count(userID string) int {
	r := l.ring(userID)
	r.mu.Lock()
	defer r.mu.Unlock()
	l.load(userID, r)
	return len(r.records)
}

// Reset drops a user's ring from memory and from the store.
func (l *Log) Reset(userID string) error {
	r := l.ring(userID)
	r.mu.Lock()
	r.records = nil
	r.loaded = true
	r.mu.Unlock()

	if l.st == nil {
		return nil
	}
	if _, err := l.st.DeletePrefix(expPrefix(userID)); err != nil {
		return fmt.Errorf("reset experience: %w", err)
	}
	return nil
}
