// Package api exposes the portfolio page, the profile and the assistant
// sessions over HTTP, and the same capabilities over MCP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zadiki/folio/internal/profile"
	"github.com/zadiki/folio/internal/session"
	"github.com/zadiki/folio/internal/site"
	"github.com/zadiki/folio/internal/storage"
)

const maxRequestBodySize = 64 << 10 // 64KB

// StatsSource is implemented by storage.Store.
type StatsSource interface {
	Stats(now time.Time) (storage.Stats, error)
}

// Deps holds everything the HTTP surface needs. Visits and Stats may be nil
// when analytics are disabled.
type Deps struct {
	Profile    *profile.Store
	Sessions   *session.Registry
	Site       *site.Renderer
	Visits     VisitRecorder
	Stats      StatsSource
	AdminToken string
	VisitSalt  string
}

// NewHandler returns the root http.Handler for folio serve.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(TrackVisits(deps.Visits, deps.VisitSalt))

	r.Get("/", handleIndex(deps))
	r.Get("/health", handleHealth)
	r.Get("/api/profile", handleProfile(deps))

	r.Route("/api/assistant/sessions", func(r chi.Router) {
		r.Post("/", handleCreateSession(deps))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGetSession(deps))
			r.Delete("/", handleCloseSession(deps))
			r.Post("/toggle", handleToggle(deps))
			r.Put("/draft", handleDraft(deps))
			r.Post("/submit", handleSubmit(deps))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.AdminToken))
		r.Get("/admin/stats", handleStats(deps))
	})

	return r
}

func handleIndex(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := deps.Site.Render(w); err != nil {
			slog.Error("rendering page failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := deps.Profile.JSON()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "serializing profile: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Stats == nil {
			httpError(w, http.StatusServiceUnavailable, "unavailable_error", "analytics are disabled")
			return
		}
		st, err := deps.Stats.Stats(time.Now())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading stats: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response failed", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
