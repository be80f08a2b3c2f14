package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zadiki/folio/internal/assistant"
	"github.com/zadiki/folio/internal/session"
)

// SessionState is the JSON shape of one assistant session.
type SessionState struct {
	ID string `json:"id"`
	assistant.State
}

// TextRequest is the body of the draft and submit endpoints.
type TextRequest struct {
	Text *string `json:"text"`
}

func stateOf(s *session.Session) SessionState {
	return SessionState{ID: s.ID, State: s.Widget.Snapshot()}
}

func loadSession(deps Deps, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := deps.Sessions.Get(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found_error", "session not found")
		return nil, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "loading session: %v", err)
		return nil, false
	}
	return s, true
}

// decodeText reads an optional {"text": ...} body. An empty body yields a
// nil Text.
func decodeText(w http.ResponseWriter, r *http.Request) (TextRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return TextRequest{}, false
	}
	return req, true
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Sessions.Create()
		if errors.Is(err, session.ErrTooManySessions) {
			httpError(w, http.StatusServiceUnavailable, "overloaded_error", "too many open chat sessions, try again later")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "creating session: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, stateOf(s))
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(deps, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, stateOf(s))
	}
}

func handleCloseSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Sessions.Close(chi.URLParam(r, "id")); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found_error", "session not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "closing session: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleToggle(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(deps, w, r)
		if !ok {
			return
		}
		s.Widget.ToggleVisibility()
		writeJSON(w, http.StatusOK, stateOf(s))
	}
}

func handleDraft(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(deps, w, r)
		if !ok {
			return
		}
		req, ok := decodeText(w, r)
		if !ok {
			return
		}
		if req.Text == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}
		s.Widget.UpdateDraft(*req.Text)
		writeJSON(w, http.StatusOK, stateOf(s))
	}
}

func handleSubmit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(deps, w, r)
		if !ok {
			return
		}
		req, ok := decodeText(w, r)
		if !ok {
			return
		}

		// The widget must settle even if the browser goes away mid-request.
		ctx := context.WithoutCancel(r.Context())

		var err error
		if req.Text != nil {
			_, err = s.Widget.Ask(ctx, *req.Text)
		} else {
			_, err = s.Widget.Submit(ctx)
		}
		if errors.Is(err, assistant.ErrBusy) {
			httpError(w, http.StatusConflict, "conflict_error", "a reply is still pending")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "submitting: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, stateOf(s))
	}
}
