package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHashIP(t *testing.T) {
	a := HashIP("203.0.113.7", "salt")
	if len(a) != 16 {
		t.Errorf("len = %d, want 16", len(a))
	}
	if a != HashIP("203.0.113.7", "salt") {
		t.Error("hash is not stable")
	}
	if a == HashIP("203.0.113.7", "pepper") {
		t.Error("salt does not change the hash")
	}
	if a == HashIP("203.0.113.8", "salt") {
		t.Error("different IPs hash the same")
	}
}

func TestTrackVisits(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		dnt    bool
		status int
		want   bool
	}{
		{"page", http.MethodGet, "/", false, http.StatusOK, true},
		{"do not track", http.MethodGet, "/", true, http.StatusOK, false},
		{"api", http.MethodGet, "/api/profile", false, http.StatusOK, false},
		{"admin", http.MethodGet, "/admin/stats", false, http.StatusOK, false},
		{"health", http.MethodGet, "/health", false, http.StatusOK, false},
		{"post", http.MethodPost, "/", false, http.StatusOK, false},
		{"not found", http.MethodGet, "/missing", false, http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockVisits{}
			h := TrackVisits(rec, "salt")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.RemoteAddr = "198.51.100.4:5555"
			req.Header.Set("User-Agent", "test-agent")
			if tt.dnt {
				req.Header.Set("DNT", "1")
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got := rec.count() == 1; got != tt.want {
				t.Fatalf("recorded = %v, want %v", got, tt.want)
			}
			if !tt.want {
				return
			}
			v := rec.visits[0]
			if v.HashedIP != HashIP("198.51.100.4", "salt") {
				t.Errorf("HashedIP = %q", v.HashedIP)
			}
			if v.HashedIP == "198.51.100.4" {
				t.Error("raw IP stored")
			}
			if v.UserAgent != "test-agent" || v.Path != tt.path {
				t.Errorf("visit = %+v", v)
			}
		})
	}
}

func TestTrackVisits_NilRecorder(t *testing.T) {
	called := false
	h := TrackVisits(nil, "salt")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("handler not called")
	}
}

func TestHandler_RecordsIndexVisit(t *testing.T) {
	rec := &mockVisits{}
	deps := newTestDeps(&mockCompleter{})
	deps.Visits = rec
	h := NewHandler(deps)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "192.0.2.10")
	h.ServeHTTP(httptest.NewRecorder(), req)
	do(t, h, http.MethodGet, "/api/profile", "")

	if rec.count() != 1 {
		t.Fatalf("recorded %d visits, want 1", rec.count())
	}
	if rec.visits[0].HashedIP != HashIP("192.0.2.10", "salt") {
		t.Error("forwarded client address not used for hashing")
	}
}
