package housekeeping

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zadiki/folio/internal/storage"
)

type mockSweeper struct {
	calls atomic.Int32
	n     int
}

func (m *mockSweeper) Sweep() int {
	m.calls.Add(1)
	return m.n
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunOnce_RunsEveryTask(t *testing.T) {
	var order []string
	task := func(name string) Task {
		return Task{Name: name, Run: func(ctx context.Context) (int64, error) {
			order = append(order, name)
			return 0, nil
		}}
	}
	w := NewWorker(time.Minute, task("a"), task("b"), task("c"))

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(order) != 3 || order[0] != "a" || order[2] != "c" {
		t.Errorf("order = %v", order)
	}
}

func TestRunOnce_FailureDoesNotStopOthers(t *testing.T) {
	ran := false
	w := NewWorker(time.Minute,
		Task{Name: "broken", Run: func(ctx context.Context) (int64, error) {
			return 0, errors.New("disk full")
		}},
		Task{Name: "panicky", Run: func(ctx context.Context) (int64, error) {
			panic("boom")
		}},
		Task{Name: "fine", Run: func(ctx context.Context) (int64, error) {
			ran = true
			return 1, nil
		}},
	)

	err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected an error reporting the failed tasks")
	}
	if !ran {
		t.Error("healthy task did not run after a failure")
	}
}

func TestRunOnce_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	w := NewWorker(time.Minute, Task{Name: "t", Run: func(ctx context.Context) (int64, error) {
		ran = true
		return 0, nil
	}})
	if err := w.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if ran {
		t.Error("task ran on a cancelled context")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	sweeper := &mockSweeper{}
	w := NewWorker(5*time.Millisecond, SweepSessions(sweeper))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if sweeper.calls.Load() < 2 {
		t.Errorf("sweeper ran %d times, want at least 2", sweeper.calls.Load())
	}
}

func TestNewWorker_DefaultInterval(t *testing.T) {
	w := NewWorker(0)
	if w.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", w.interval)
	}
}

func TestSweepSessions(t *testing.T) {
	sweeper := &mockSweeper{n: 3}
	n, err := SweepSessions(sweeper).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
}

func TestPurgeVisits(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{24 * time.Hour, 2 * 365 * 24 * time.Hour} {
		if err := store.RecordVisit(storage.Visit{HashedIP: "h", Path: "/", CreatedAt: now.Add(-age)}); err != nil {
			t.Fatalf("RecordVisit: %v", err)
		}
	}

	task := PurgeVisits(store, 365*24*time.Hour, func() time.Time { return now })
	n, err := task.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}

	st, err := store.Stats(now)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalVisits != 1 {
		t.Errorf("TotalVisits = %d, want 1", st.TotalVisits)
	}
}
