// Package session keeps the live assistant widgets of every open page,
// keyed by an opaque session id.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zadiki/folio/internal/assistant"
)

var (
	// ErrNotFound is returned for an unknown or already closed session.
	ErrNotFound = errors.New("session not found")
	// ErrTooManySessions is returned by Create when the registry is full.
	ErrTooManySessions = errors.New("too many live sessions")
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Factory builds the widget for a new session. The id is passed so callers
// can tag whatever the widget reports.
type Factory func(id string) *assistant.Widget

// Session is one open page and its widget.
type Session struct {
	ID        string
	Widget    *assistant.Widget
	CreatedAt time.Time
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Options tunes a Registry. Zero values fall back to the defaults below.
type Options struct {
	TTL         time.Duration
	MaxSessions int
	Clock       Clock
}

const (
	DefaultTTL         = 30 * time.Minute
	DefaultMaxSessions = 1000
)

// Registry owns any number of independent sessions.
type Registry struct {
	factory Factory
	clock   Clock
	ttl     time.Duration
	max     int

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory, opts Options) *Registry {
	r := &Registry{
		factory:  factory,
		clock:    opts.Clock,
		ttl:      opts.TTL,
		max:      opts.MaxSessions,
		sessions: make(map[string]*entry),
	}
	if r.clock == nil {
		r.clock = realClock{}
	}
	if r.ttl <= 0 {
		r.ttl = DefaultTTL
	}
	if r.max <= 0 {
		r.max = DefaultMaxSessions
	}
	return r
}

// Create starts a new session with a fresh widget.
func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.max {
		return nil, ErrTooManySessions
	}

	id := uuid.New().String()
	now := r.clock.Now()
	s := &Session{ID: id, Widget: r.factory(id), CreatedAt: now}
	r.sessions[id] = &entry{session: s, lastSeen: now}
	return s, nil
}

// Get returns the session and marks it as seen.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = r.clock.Now()
	return e.session, nil
}

// Close destroys the session. Its transcript is gone for good.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. Sessions with a request in flight are kept.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clock.Now().Add(-r.ttl)
	removed := 0
	for id, e := range r.sessions {
		if e.lastSeen.After(cutoff) || e.session.Widget.Awaiting() {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	return removed
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
