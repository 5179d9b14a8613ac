package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the janitor reaps dead sessions
const DefaultSweepInterval = 24 * time.Hour

// Janitor periodically hard-deletes sessions that are expired or have
// been soft-invalidated. It runs outside the request path and holds no
// shared locks; a sweep racing a request that still holds a deleted
// token resolves as "session not found" on the request side.
type Janitor struct {
	sessions Service
	interval time.Duration
}

// NewJanitor creates a janitor sweeping at the given interval.
// A non-positive interval falls back to DefaultSweepInterval.
func NewJanitor(sessions Service, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{sessions: sessions, interval: interval}
}

// Start runs an immediate sweep and then sweeps on every tick until the
// context is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.RunOnce()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce performs a single sweep. Failures are logged, never fatal,
// so the shutdown path can call this best-effort.
func (j *Janitor) RunOnce() {
	deleted, err := j.sessions.Cleanup(time.Now().UTC())
	if err != nil {
		slog.Error("Session cleanup failed", "error", err)
		return
	}
	slog.Info("Cleaned up expired sessions", "deleted", deleted)
}
