package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/store"
)

type authContextKey struct{}

// AuthMiddleware resolves the caller's session for staff endpoints.
// Kiosk and monitor endpoints stay public so unattended devices need
// no credentials.
func AuthMiddleware(queueStore store.QueueStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := queueStore.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return store.Session{}, false
	}
	session, ok := value.(store.Session)
	if !ok {
		return store.Session{}, false
	}
	return session, true
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	case "/api/auth/login":
		return r.Method == http.MethodPost
	case "/api/tickets", "/api/bookings", "/api/bookings/redeem":
		return r.Method == http.MethodPost
	case "/api/availability", "/api/services", "/api/holidays",
		"/api/tickets/active", "/api/tickets/snapshot", "/api/events":
		return r.Method == http.MethodGet
	}
	if strings.HasPrefix(r.URL.Path, "/api/bookings/") || strings.HasPrefix(r.URL.Path, "/api/services/") {
		return r.Method == http.MethodGet
	}
	if strings.HasPrefix(r.URL.Path, "/realtime") {
		return true
	}
	return r.Method == http.MethodOptions
}
