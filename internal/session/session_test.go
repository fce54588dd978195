// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package session

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/logging"
	"github.com/moodloop/moodloop/internal/metrics"
	"github.com/moodloop/moodloop/internal/store"
)

func testPending(userID, contentID string) Pending {
	return Pending{
		UserID:      userID,
		ContentID:   contentID,
		StateBefore: affect.State{Valence: -0.6, Arousal: 0.2, Stress: 0.7, Confidence: 0.9},
		Desired:     affect.Desired{TargetValence: 0.5, TargetArousal: -0.2, TargetStress: 0.3},
	}
}

func TestPutTakeRoundTrip(t *testing.T) {
	s := NewStore(time.Hour, nil, logging.NewTestLogger(io.Discard))

	in := testPending("u1", "c-1")
	if err := s.Put(in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	out, err := s.Take("u1", "c-1")
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if out.StateBefore != in.StateBefore || out.Desired != in.Desired {
		t.Errorf("recovered session differs: %+v", out)
	}

	// A session is claimable exactly once.
	if _, err := s.Take("u1", "c-1"); !errors.Is(err, ErrNoPending) {
		t.Errorf("second Take err = %v, want ErrNoPending", err)
	}
}

func TestTakeMissing(t *testing.T) {
	s := NewStore(time.Hour, nil, logging.NewTestLogger(io.Discard))
	if _, err := s.Take("u1", "nope"); !errors.Is(err, ErrNoPending) {
		t.Errorf("err = %v, want ErrNoPending", err)
	}
}

func TestTakeExpired(t *testing.T) {
	s := NewStore(time.Hour, nil, logging.NewTestLogger(io.Discard))

	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	if err := s.Put(testPending("u1", "c-1")); err != nil {
		t.Fatal(err)
	}

	now = now.Add(25 * time.Hour)
	if _, err := s.Take("u1", "c-1"); !errors.Is(err, ErrNoPending) {
		t.Errorf("err = %v, want ErrNoPending after TTL", err)
	}
}

func TestSweep(t *testing.T) {
	s := NewStore(time.Hour, nil, logging.NewTestLogger(io.Discard))

	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	_ = s.Put(testPending("u1", "old"))
	now = now.Add(2 * time.Hour)
	_ = s.Put(testPending("u1", "fresh"))

	if n := s.Sweep(); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
	if _, err := s.Take("u1", "fresh"); err != nil {
		t.Errorf("fresh session lost: %v", err)
	}
}

func TestSweepUpdatesSessionMetrics(t *testing.T) {
	s := NewStore(time.Hour, nil, logging.NewTestLogger(io.Discard))

	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	expiredBefore := testutil.ToFloat64(metrics.SessionsExpired)

	_ = s.Put(testPending("u1", "old-a"))
	_ = s.Put(testPending("u1", "old-b"))
	now = now.Add(2 * time.Hour)
	_ = s.Put(testPending("u1", "fresh"))

	if n := s.Sweep(); n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}

	if got := testutil.ToFloat64(metrics.SessionsExpired) - expiredBefore; got != 2 {
		t.Errorf("sessions_expired delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.SessionsActive); got != 1 {
		t.Errorf("sessions_active gauge = %v, want 1", got)
	}
}

func TestRestoreAfterFailedFeedback(t *testing.T) {
	s := NewStore(time.Hour, nil, logging.NewTestLogger(io.Discard))

	_ = s.Put(testPending("u1", "c-1"))
	p, err := s.Take("u1", "c-1")
	if err != nil {
		t.Fatal(err)
	}

	s.Restore(p)
	if _, err := s.Take("u1", "c-1"); err != nil {
		t.Errorf("restored session not claimable: %v", err)
	}
}

func TestPersistenceAcrossRestart(t *testing.T) {
	st, err := store.Open(store.Options{InMemory: true}, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	s1 := NewStore(time.Hour, st, logging.NewTestLogger(io.Discard))
	if err := s1.Put(testPending("u1", "c-1")); err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same Badger recovers the pending session.
	s2 := NewStore(time.Hour, st, logging.NewTestLogger(io.Discard))
	p, err := s2.Take("u1", "c-1")
	if err != nil {
		t.Fatalf("Take after restart: %v", err)
	}
	if p.StateBefore.Valence != -0.6 {
		t.Errorf("recovered state_before = %+v", p.StateBefore)
	}

	// The claim removed the persisted copy as well.
	s3 := NewStore(time.Hour, st, logging.NewTestLogger(io.Discard))
	if _, err := s3.Take("u1", "c-1"); !errors.Is(err, ErrNoPending) {
		t.Errorf("err = %v, want ErrNoPending after claim", err)
	}
}
