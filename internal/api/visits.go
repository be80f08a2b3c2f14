package api

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/zadiki/folio/internal/storage"
)

// VisitRecorder is implemented by storage.Store.
type VisitRecorder interface {
	RecordVisit(v storage.Visit) error
}

// untrackedPrefixes are never counted as page views.
var untrackedPrefixes = []string{"/api/", "/admin/", "/health", "/favicon"}

// HashIP anonymizes a client address. The same ip and salt always give the
// same 16 hex characters.
func HashIP(ip, salt string) string {
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])[:16]
}

// TrackVisits records successful GET page views. Requests sent with
// "DNT: 1" are not recorded. A nil recorder disables tracking.
func TrackVisits(rec VisitRecorder, salt string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rec == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if status := ww.Status(); status >= http.StatusBadRequest || !shouldTrack(r) {
				return
			}
			v := storage.Visit{
				HashedIP:  HashIP(clientIP(r), salt),
				UserAgent: r.UserAgent(),
				Path:      r.URL.Path,
				CreatedAt: time.Now(),
			}
			if err := rec.RecordVisit(v); err != nil {
				slog.Warn("recording visit failed", "path", v.Path, "error", err)
			}
		})
	}
}

func shouldTrack(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if r.Header.Get("DNT") == "1" {
		return false
	}
	for _, prefix := range untrackedPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
