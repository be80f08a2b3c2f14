package housekeeping

import (
	"context"
	"time"
)

// SessionSweeper is implemented by session.Registry.
type SessionSweeper interface {
	Sweep() int
}

// VisitPurger is implemented by storage.Store.
type VisitPurger interface {
	PurgeVisitsBefore(t time.Time) (int64, error)
}

// SweepSessions evicts idle assistant sessions.
func SweepSessions(r SessionSweeper) Task {
	return Task{
		Name: "session-sweep",
		Run: func(ctx context.Context) (int64, error) {
			return int64(r.Sweep()), nil
		},
	}
}

// PurgeVisits drops visits older than retention. now is injectable for tests;
// nil means time.Now.
func PurgeVisits(p VisitPurger, retention time.Duration, now func() time.Time) Task {
	if now == nil {
		now = time.Now
	}
	return Task{
		Name: "visit-retention",
		Run: func(ctx context.Context) (int64, error) {
			return p.PurgeVisitsBefore(now().Add(-retention))
		},
	}
}
