// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodloop/moodloop/internal/metrics"
)

// DefaultPersistInterval is the write-coalescing window.
const DefaultPersistInterval = time.Second

// Persister coalesces dirty-state writes. Callers mark a key dirty with the
// closure that saves it; at most one save per key runs per interval, and the
// latest closure wins. Flush runs everything pending synchronously and is
// called on shutdown so no feedback is lost.
type Persister struct {
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	pending map[string]func() error
}

// NewPersister creates a persister with the given coalescing interval.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPersister(interval time.Duration, logger zerolog.Logger) *Persister {
	if interval <= 0 {
		interval = DefaultPersistInterval
	}
	return &Persister{
		interval: interval,
		logger:   logger.With().Str("component", "persister").Logger(),
		pending:  make(map[string]func() error),
	}
}

// Mark schedules a save for key in the next flush window. A later Mark for
// the same key replaces the save closure.
func (p *Persister) Mark(key string, save func() error) {
	p.mu.Lock()
	p.pending[key] = save
	metrics.PersistPendingKeys.Set(float64(len(p.pending)))
	p.mu.Unlock()
}

// Serve runs the flush loop until ctx is canceled, then flushes once more.
// Implements suture.Service.
func (p *Persister) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Flush()
			return ctx.Err()
		case <-ticker.C:
			p.Flush()
		}
	}
}

// Flush runs all pending saves. Failed saves are re-queued for the next
// window unless a newer save for the key arrived meanwhile.
func (p *Persister) Flush() {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.pending
	p.pending = make(map[string]func() error)
	p.mu.Unlock()

	start := time.Now()
	for key, save := range batch {
		if err := save(); err != nil {
			p.logger.Error().Err(err).Str("key", key).Msg("persist failed")
			p.mu.Lock()
			if _, replaced := p.pending[key]; !replaced {
				p.pending[key] = save
			}
			p.mu.Unlock()
		}
	}
	metrics.PersistFlushDuration.Observe(time.Since(start).Seconds())

	p.mu.Lock()
	metrics.PersistPendingKeys.Set(float64(len(p.pending)))
	p.mu.Unlock()
}

// PendingCount reports how many keys are waiting to be saved.
func (p *Persister) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
