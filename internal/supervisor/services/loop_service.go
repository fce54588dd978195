// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package services

import (
	"context"
	"time"
)

// LoopService adapts any Serve(ctx)-shaped run loop (the persister, the
// session sweeper) into a named suture service.
type LoopService struct {
	name string
	run  func(ctx context.Context) error
}

// NewLoopService wraps a run loop under a stable service name.
func NewLoopService(name string, run func(ctx context.Context) error) *LoopService {
	return &LoopService{name: name, run: run}
}

// Serve implements suture.Service.
func (s *LoopService) Serve(ctx context.Context) error {
	return s.run(ctx)
}

// String implements fmt.Stringer for suture's log messages.
func (s *LoopService) String() string {
	return s.name
}

// TickerService runs a callback on a fixed interval until the context is
// canceled. Used for the badger value-log GC pass.
type TickerService struct {
	name     string
	interval time.Duration
	tick     func()
}

// NewTickerService wraps a periodic callback.
func NewTickerService(name string, interval time.Duration, tick func()) *TickerService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TickerService{name: name, interval: interval, tick: tick}
}

// Serve implements suture.Service.
func (s *TickerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick()
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *TickerService) String() string {
	return s.name
}
