package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/JustynLim/SoC-SMS/internal/fsatomic"
)

// Bucket is one fixed window of hits for a key.
type Bucket struct {
	Hits   int    `json:"hits"`
	Window string `json:"window"`
}

type state struct {
	Version int               `json:"version"`
	Buckets map[string]Bucket `json:"buckets"`
}

// Store applies fixed-window limits and persists the buckets so restarts do
// not reset the login throttles.
type Store struct {
	path        string
	mu          sync.Mutex
	st          state
	lastPersist time.Time
	ops         int
}

func New(path string) *Store {
	s := &Store{path: path, st: state{Version: 1, Buckets: map[string]Bucket{}}}
	var st state
	if ok, err := fsatomic.LoadJSON(path, &st); err == nil && ok && st.Buckets != nil {
		s.st = st
	}
	s.lastPersist = time.Now()
	return s
}

// Allow records a hit for key under a max-per-window limit. It returns
// whether the hit is allowed, how many hits remain, and when the window
// resets.
func (s *Store) Allow(key string, limit int, window time.Duration) (bool, int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	b := s.st.Buckets[key]
	start := parseWindow(b.Window)
	if start.IsZero() || now.Sub(start) >= window {
		start = now
		b.Window = start.Format(time.RFC3339Nano)
		b.Hits = 0
	}
	resetAt := start.Add(window)
	if b.Hits >= limit {
		s.maybePersistLocked()
		return false, 0, resetAt
	}
	b.Hits++
	s.st.Buckets[key] = b
	s.maybePersistLocked()
	return true, limit - b.Hits, resetAt
}

// Sweep drops buckets whose window started more than maxAge ago. Run from
// the maintenance cron.
func (s *Store) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for key, b := range s.st.Buckets {
		if start := parseWindow(b.Window); start.IsZero() || start.Before(cutoff) {
			delete(s.st.Buckets, key)
			removed++
		}
	}
	if removed > 0 {
		_ = s.persistLocked()
	}
	return removed
}

// Flush forces a persist to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	st := s.st
	if err := fsatomic.WithLock(s.path, func() error {
		return fsatomic.SaveJSON(context.Background(), s.path, st, 0o600)
	}); err != nil {
		return err
	}
	s.lastPersist = time.Now()
	s.ops = 0
	return nil
}

// maybePersistLocked persists every ~2s or every 10 ops to bound IO.
func (s *Store) maybePersistLocked() {
	s.ops++
	if s.ops%10 == 0 || time.Since(s.lastPersist) >= 2*time.Second {
		_ = s.persistLocked()
	}
}

func parseWindow(val string) time.Time {
	if val == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
		return t
	}
	return time.Time{}
}
