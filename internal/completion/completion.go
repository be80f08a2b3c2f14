// Package completion talks to hosted language-model APIs. Callers see a
// single Completer interface; the backend is chosen by configuration.
package completion

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by every call on a completer built without
// an API key.
var ErrNotConfigured = errors.New("completion backend not configured")

// Request is one stateless completion call: no history, no session affinity.
type Request struct {
	Model             string
	SystemInstruction string
	Prompt            string
}

// Completer maps a request to generated text. An empty string with a nil
// error means the backend answered without text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Provider names accepted by New.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// Options selects and configures a backend.
type Options struct {
	Provider string
	APIKey   string
	// BaseURL overrides the provider endpoint. Empty keeps the default.
	BaseURL string
}

// New builds the completer for opts.Provider. A missing API key is not an
// error here: the returned completer fails each call with ErrNotConfigured
// so the assistant degrades to its failure message instead of refusing to
// start.
func New(ctx context.Context, opts Options) (Completer, error) {
	switch opts.Provider {
	case ProviderGemini, "":
		if opts.APIKey == "" {
			return unconfigured{provider: ProviderGemini}, nil
		}
		return NewGemini(ctx, opts.APIKey, opts.BaseURL)
	case ProviderOpenRouter:
		if opts.APIKey == "" {
			return unconfigured{provider: ProviderOpenRouter}, nil
		}
		if opts.BaseURL != "" {
			return NewOpenRouterWithBaseURL(opts.APIKey, opts.BaseURL), nil
		}
		return NewOpenRouter(opts.APIKey), nil
	}
	return nil, fmt.Errorf("unknown completion provider %q", opts.Provider)
}

type unconfigured struct {
	provider string
}

func (u unconfigured) Complete(context.Context, Request) (string, error) {
	return "", fmt.Errorf("%s: %w", u.provider, ErrNotConfigured)
}
