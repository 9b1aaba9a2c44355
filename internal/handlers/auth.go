package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"media-library/internal/database"
	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse represents the response from authentication endpoints
type AuthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Username  string `json:"username,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"` // Seconds until session expires
}

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "media_library_session"

	// bcrypt ignores input past 72 bytes
	maxPasswordLength = 72
)

type userKey struct{}

// WithUser returns a context carrying the authenticated caller.
func WithUser(ctx context.Context, u *database.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the caller set by AuthMiddleware, or nil.
func UserFromContext(ctx context.Context) *database.User {
	u, _ := ctx.Value(userKey{}).(*database.User)
	return u
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Login authenticates with username and password and sets a session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" || len(req.Password) > maxPasswordLength {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		writeJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	user, err := h.store.ValidatePassword(ctx, req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, database.ErrInvalidCredentials) {
			logging.Error("Login lookup failed: %v", err)
		}
		logging.Warn("Failed login attempt for %q", sanitizeUsername(req.Username))
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		writeJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()

	session, err := h.store.CreateSession(ctx, user.ID)
	if err != nil {
		logging.Error("Failed to create session: %v", err)
		writeJSONError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	logging.Info("User %s logged in", user.Username)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success:   true,
		Username:  user.Username,
		ExpiresIn: int(time.Until(session.ExpiresAt).Seconds()),
	})
}

// Logout ends the current session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		// Best-effort session cleanup - don't fail logout if this errors
		if err := h.store.DeleteSession(r.Context(), cookie.Value); err != nil {
			logging.Debug("failed to delete session during logout: %v", err)
		}
	}

	clearSessionCookie(w)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// CheckAuth reports the caller of a valid session.
func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success:  true,
		Username: user.Username,
	})
}

// publicPaths are served without a session.
var publicPaths = map[string]bool{
	"/api/auth/login":  true,
	"/api/auth/logout": true,
	"/health":          true,
	"/healthz":         true,
	"/livez":           true,
	"/readyz":          true,
	"/version":         true,
}

// AuthMiddleware resolves the session cookie to a user and stores it in
// the request context. Requests without a valid session get 401.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := h.store.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			clearSessionCookie(w)
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// sanitizeUsername keeps a client-supplied name safe to log.
func sanitizeUsername(s string) string {
	if len(s) > 64 {
		s = s[:64]
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
