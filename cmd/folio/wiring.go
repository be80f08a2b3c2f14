package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/zadiki/folio/internal/assistant"
	"github.com/zadiki/folio/internal/completion"
	"github.com/zadiki/folio/internal/config"
	"github.com/zadiki/folio/internal/profile"
	"github.com/zadiki/folio/internal/storage"
)

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// newCompleter is a variable so tests can replace the hosted backend.
var newCompleter = func(ctx context.Context, cfg config.Config) (completion.Completer, error) {
	p := cfg.ProviderSettings()
	c, err := completion.New(ctx, completion.Options{
		Provider: cfg.Assistant.Provider,
		APIKey:   p.APIKey,
		BaseURL:  p.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	if p.APIKey == "" {
		slog.Warn("no API key configured; the assistant will answer with its failure message",
			"provider", cfg.Assistant.Provider)
	}
	return c, nil
}

// loadConfig is a variable so tests can run commands without touching the
// user's config directories.
var loadConfig = config.Load

func widgetOptions(cfg config.Config, extra ...assistant.Option) []assistant.Option {
	opts := []assistant.Option{
		assistant.WithModel(cfg.Assistant.Model),
		assistant.WithGreeting(cfg.Assistant.Greeting),
	}
	return append(opts, extra...)
}

// chatRecorder turns widget settlements into analytics rows.
func chatRecorder(store *storage.Store, sessionID string) assistant.Option {
	return assistant.WithObserver(func(s assistant.Settlement) {
		err := store.RecordChatEvent(storage.ChatEvent{
			SessionID:  sessionID,
			Outcome:    string(s.Outcome),
			DurationMS: s.Duration.Milliseconds(),
			CreatedAt:  time.Now(),
		})
		if err != nil {
			slog.Warn("recording chat event failed", "session", sessionID, "error", err)
		}
	})
}

func loadProfile(cfg config.Config) (*profile.Store, error) {
	return profile.Load(cfg.Profile.Path)
}
