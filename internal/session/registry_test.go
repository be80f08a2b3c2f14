package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zadiki/folio/internal/assistant"
	"github.com/zadiki/folio/internal/completion"
	"github.com/zadiki/folio/internal/profile"
)

// --- Mock clock ---

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Mock completer ---

type stubCompleter struct {
	started chan struct{}
	release chan struct{}
}

func (s *stubCompleter) Complete(ctx context.Context, req completion.Request) (string, error) {
	if s.release != nil {
		s.started <- struct{}{}
		<-s.release
	}
	return "ok", nil
}

func newTestRegistry(c completion.Completer, clock Clock, opts Options) *Registry {
	opts.Clock = clock
	return NewRegistry(func(id string) *assistant.Widget {
		return assistant.New(c, profile.Default())
	}, opts)
}

// --- Tests ---

func TestCreateAndGet(t *testing.T) {
	r := newTestRegistry(&stubCompleter{}, &mockClock{now: time.Now()}, Options{})

	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		t.Errorf("id %q is not a UUID: %v", s.ID, err)
	}

	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Widget != s.Widget {
		t.Error("Get returned a different widget")
	}
}

func TestFactoryReceivesID(t *testing.T) {
	var seen []string
	r := NewRegistry(func(id string) *assistant.Widget {
		seen = append(seen, id)
		return assistant.New(&stubCompleter{}, profile.Default())
	}, Options{})

	s, _ := r.Create()
	if len(seen) != 1 || seen[0] != s.ID {
		t.Errorf("factory saw %v, want [%s]", seen, s.ID)
	}
}

func TestGetUnknown(t *testing.T) {
	r := newTestRegistry(&stubCompleter{}, &mockClock{now: time.Now()}, Options{})
	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClose(t *testing.T) {
	r := newTestRegistry(&stubCompleter{}, &mockClock{now: time.Now()}, Options{})
	s, _ := r.Create()

	if err := r.Close(s.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Close err = %v, want ErrNotFound", err)
	}
	if err := r.Close(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Close err = %v, want ErrNotFound", err)
	}
}

func TestMaxSessions(t *testing.T) {
	r := newTestRegistry(&stubCompleter{}, &mockClock{now: time.Now()}, Options{MaxSessions: 2})

	for range 2 {
		if _, err := r.Create(); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := r.Create(); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("err = %v, want ErrTooManySessions", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	r := newTestRegistry(&stubCompleter{}, &mockClock{now: time.Now()}, Options{})
	a, _ := r.Create()
	b, _ := r.Create()

	if a.ID == b.ID {
		t.Fatal("two sessions share an id")
	}
	a.Widget.Ask(context.Background(), "hello")

	if n := len(b.Widget.Snapshot().Transcript); n != 0 {
		t.Errorf("session b sees %d turns from session a", n)
	}
}

func TestSweep(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	r := newTestRegistry(&stubCompleter{}, clock, Options{TTL: time.Minute})

	idle, _ := r.Create()
	active, _ := r.Create()

	clock.Advance(45 * time.Second)
	r.Get(active.ID)
	clock.Advance(30 * time.Second)

	if n := r.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, err := r.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Error("idle session survived the sweep")
	}
	if _, err := r.Get(active.ID); err != nil {
		t.Errorf("active session was swept: %v", err)
	}
}

func TestSweepKeepsAwaiting(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	c := &stubCompleter{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := newTestRegistry(c, clock, Options{TTL: time.Minute})

	s, _ := r.Create()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Widget.Ask(context.Background(), "slow question")
	}()
	<-c.started

	clock.Advance(time.Hour)
	if n := r.Sweep(); n != 0 {
		t.Errorf("Sweep removed %d awaiting sessions", n)
	}

	close(c.release)
	<-done

	if n := r.Sweep(); n != 1 {
		t.Errorf("Sweep after settlement removed %d, want 1", n)
	}
}
