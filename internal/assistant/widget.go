// Package assistant implements the chat widget that answers questions about
// the profile by relaying them to a completion backend.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zadiki/folio/internal/completion"
	"github.com/zadiki/folio/internal/profile"
)

// Fixed replies. Callers and tests compare against these verbatim.
const (
	FailureMessage    = "Oops, something went wrong with the AI connection."
	EmptyReplyMessage = "I'm sorry, I couldn't process that."
)

// DefaultModel matches the hosted model the site was built against.
const DefaultModel = "gemini-3-flash-preview"

// ErrBusy is returned by Submit and Ask while a previous request is still
// awaiting its response. Nothing is appended and nothing is sent.
var ErrBusy = errors.New("assistant is awaiting a response")

// Option configures a Widget.
type Option func(*Widget)

// WithModel sets the model identifier sent with every request.
func WithModel(model string) Option {
	return func(w *Widget) {
		if model != "" {
			w.model = model
		}
	}
}

// WithGreeting seeds the transcript with one assistant turn. An empty
// greeting is ignored.
func WithGreeting(text string) Option {
	return func(w *Widget) {
		if text != "" {
			w.state.Transcript = append(w.state.Transcript, Turn{Role: RoleAssistant, Text: text})
		}
	}
}

// WithObserver registers fn to be called after every settlement, outside
// the widget's lock.
func WithObserver(fn func(Settlement)) Option {
	return func(w *Widget) { w.observer = fn }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) {
		if l != nil {
			w.logger = l
		}
	}
}

// Widget owns one conversation. It is safe for concurrent use; at most one
// completion call is in flight at a time.
type Widget struct {
	completer completion.Completer
	profile   *profile.Store
	model     string
	observer  func(Settlement)
	logger    *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a widget that answers from p using c. The widget starts
// hidden and idle.
func New(c completion.Completer, p *profile.Store, opts ...Option) *Widget {
	w := &Widget{
		completer: c,
		profile:   p,
		model:     DefaultModel,
		logger:    slog.Default(),
		state:     State{Transcript: []Turn{}},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ToggleVisibility flips the open/closed flag and returns the new value.
func (w *Widget) ToggleVisibility() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Visible = !w.state.Visible
	return w.state.Visible
}

// UpdateDraft replaces the pending input.
func (w *Widget) UpdateDraft(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.PendingInput = text
}

// Snapshot returns a copy of the current state.
func (w *Widget) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Awaiting reports whether a request is in flight.
func (w *Widget) Awaiting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.AwaitingResponse
}

// Submit sends the pending input. Whitespace-only input is a silent no-op
// (Result.Dispatched is false). Otherwise the trimmed text is appended as a
// user turn, the draft is cleared, and Submit blocks until exactly one
// assistant turn has been appended. Completion errors never surface here;
// they become FailureMessage. The only error is ErrBusy.
func (w *Widget) Submit(ctx context.Context) (Result, error) {
	return w.submit(ctx, nil)
}

// Ask sets the draft to text and submits it in one step.
func (w *Widget) Ask(ctx context.Context, text string) (Result, error) {
	return w.submit(ctx, &text)
}

func (w *Widget) submit(ctx context.Context, draft *string) (Result, error) {
	w.mu.Lock()
	if w.state.AwaitingResponse {
		w.mu.Unlock()
		return Result{}, ErrBusy
	}
	if draft != nil {
		w.state.PendingInput = *draft
	}
	raw := w.state.PendingInput
	text := strings.TrimSpace(raw)
	if text == "" {
		w.mu.Unlock()
		return Result{}, nil
	}
	w.state.Transcript = append(w.state.Transcript, Turn{Role: RoleUser, Text: text})
	w.state.PendingInput = ""
	w.state.AwaitingResponse = true
	w.mu.Unlock()

	start := time.Now()
	reply, outcome, err := w.complete(ctx, raw)
	turn := Turn{Role: RoleAssistant, Text: reply}

	w.mu.Lock()
	w.state.Transcript = append(w.state.Transcript, turn)
	w.state.AwaitingResponse = false
	w.mu.Unlock()

	if w.observer != nil {
		w.observer(Settlement{Outcome: outcome, Duration: time.Since(start), Err: err})
	}
	return Result{Dispatched: true, Reply: turn, Outcome: outcome}, nil
}

// complete performs the single outbound call and maps every failure,
// including a panicking backend, to the fixed failure reply.
func (w *Widget) complete(ctx context.Context, prompt string) (reply string, outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completion panicked: %v", r)
			w.logger.Error("assistant completion panicked", "panic", r)
			reply, outcome = FailureMessage, OutcomeFailure
		}
	}()

	instruction, err := BuildInstruction(w.profile)
	if err != nil {
		w.logger.Warn("assistant: building instruction failed", "error", err)
		return FailureMessage, OutcomeFailure, err
	}

	text, err := w.completer.Complete(ctx, completion.Request{
		Model:             w.model,
		SystemInstruction: instruction,
		Prompt:            prompt,
	})
	if err != nil {
		w.logger.Warn("assistant: completion failed", "model", w.model, "error", err)
		return FailureMessage, OutcomeFailure, err
	}
	if strings.TrimSpace(text) == "" {
		return EmptyReplyMessage, OutcomeEmpty, nil
	}
	return text, OutcomeSuccess, nil
}
