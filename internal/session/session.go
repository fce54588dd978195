// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package session tracks pending recommendations so feedback can recover the
// state a recommendation was issued against. Entries expire after the TTL
// and a periodic sweeper reaps what Badger's own expiry misses in memory.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/metrics"
	"github.com/moodloop/moodloop/internal/store"
)

// DefaultTTL is how long a pending recommendation stays claimable.
const DefaultTTL = 24 * time.Hour

// sweepInterval is how often the in-memory sweeper runs.
const sweepInterval = 10 * time.Minute

// ErrNoPending is returned when feedback arrives with no matching session.
var ErrNoPending = errors.New("session: no pending recommendation")

// Pending is one issued recommendation awaiting feedback.
type Pending struct {
	UserID      string         `json:"user_id"`
	ContentID   string         `json:"content_id"`
	StateBefore affect.State   `json:"state_before"`
	Desired     affect.Desired `json:"desired_state"`
	Exploration bool           `json:"exploration"`
	IssuedAt    time.Time      `json:"issued_at"`
}

// Store holds pending sessions in memory with write-through persistence.
type Store struct {
	ttl    time.Duration
	st     *store.Store
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]Pending
}

// NewStore creates a session store with the given TTL (DefaultTTL if <= 0).
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(ttl time.Duration, st *store.Store, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:     ttl,
		st:      st,
		logger:  logger.With().Str("component", "session").Logger(),
		now:     time.Now,
		pending: make(map[string]Pending),
	}
}

func sessionKey(userID, contentID string) string {
	return fmt.Sprintf("session:%s:%s", userID, contentID)
}

// Put records a pending recommendation, replacing any previous one for the
// same (user, content) pair.
func (s *Store) Put(p Pending) error {
	if p.IssuedAt.IsZero() {
		p.IssuedAt = s.now().UTC()
	}
	key := sessionKey(p.UserID, p.ContentID)

	s.mu.Lock()
	s.pending[key] = p
	metrics.SessionsActive.Set(float64(len(s.pending)))
	s.mu.Unlock()

	if s.st != nil {
		// Sessions go straight through, not via the debounced persister:
		// losing one would orphan the next feedback.
		if err := s.st.SetJSONTTL(key, p, s.ttl); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	return nil
}

// Take returns and removes the pending entry for (user, content). Expired or
// absent entries yield ErrNoPending.
func (s *Store) Take(userID, contentID string) (Pending, error) {
	key := sessionKey(userID, contentID)

	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
		metrics.SessionsActive.Set(float64(len(s.pending)))
	}
	s.mu.Unlock()

	if !ok && s.st != nil {
		// Fall back to the store after a restart.
		err := s.st.GetJSON(key, &p)
		switch {
		case err == nil:
			ok = true
		case !errors.Is(err, store.ErrNotFound):
			return Pending{}, fmt.Errorf("load session: %w", err)
		}
	}

	if !ok || s.now().Sub(p.IssuedAt) > s.ttl {
		return Pending{}, ErrNoPending
	}

	if s.st != nil {
		if err := s.st.Delete(key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("session delete failed")
		}
	}
	return p, nil
}

// Restore re-inserts a previously taken entry. Used to roll back when a
// feedback fails after the session was claimed.
func (s *Store) Restore(p Pending) {
	key := sessionKey(p.UserID, p.ContentID)
	s.mu.Lock()
	s.pending[key] = p
	metrics.SessionsActive.Set(float64(len(s.pending)))
	s.mu.Unlock()

	if s.st != nil {
		if err := s.st.SetJSONTTL(key, p, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("session restore failed")
		}
	}
}

// Len reports how many sessions are pending in memory.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Sweep drops expired in-memory entries and returns how many it removed.
// Badger expires the persisted copies on its own.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, p := range s.pending {
		if p.IssuedAt.Before(cutoff) {
			delete(s.pending, key)
			removed++
		}
	}
	if removed > 0 {
		metrics.SessionsExpired.Add(float64(removed))
	}
	metrics.SessionsActive.Set(float64(len(s.pending)))
	return removed
}

// Serve runs the periodic sweeper until ctx is canceled. Implements
// suture.Service.
func (s *Store) Serve(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug().Int("reaped", n).Msg("session sweep")
			}
		}
	}
}
