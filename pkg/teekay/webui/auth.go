package webui

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

type contextKey string

const userKey contextKey = "user"

// compareTokens performs timing-safe comparison by hashing both inputs
// with SHA-256 before calling ConstantTimeCompare to prevent length-based
// leakage.
func compareTokens(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}

// extractToken extracts the session token from a request. Checks:
// Authorization header → cookie.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func sessionToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// handleVerify consumes a magic link token and opens a session.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	link, err := s.store.ConsumeMagicLink(body.Token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid or expired login link")
			return
		}
		s.log.Error("consuming magic link failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := s.store.GetOrCreateUser(link.Phone, link.Conversation)
	if err != nil {
		s.log.Error("upserting user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := sessionToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	ttl := time.Duration(s.cfg.SessionTTLHours) * time.Hour
	if _, err := s.store.CreateSession(user.ID, token, ttl); err != nil {
		s.log.Error("creating session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl / time.Second),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  profileView(user),
	})
}

// handleLogout deletes the session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := extractToken(r); token != "" {
		if err := s.store.DeleteSession(token); err != nil {
			s.log.Warn("deleting session failed", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAuthStatus reports whether the current request carries a valid
// session.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	user, err := s.sessionUser(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          profileView(user),
	})
}

// requireSession resolves the session to its user and stashes it in the
// request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.sessionUser(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (s *Server) sessionUser(r *http.Request) (*store.User, error) {
	token := extractToken(r)
	if token == "" {
		return nil, store.ErrNotFound
	}
	sess, err := s.store.GetSession(token)
	if err != nil {
		return nil, err
	}
	if !compareTokens(token, sess.Token) {
		return nil, store.ErrNotFound
	}
	return s.store.GetUser(sess.UserID)
}

// requestUser returns the user the session middleware resolved.
func requestUser(r *http.Request) *store.User {
	user, _ := r.Context().Value(userKey).(*store.User)
	return user
}

func profileView(u *store.User) map[string]any {
	return map[string]any{
		"id":    u.ID,
		"phone": u.Phone,
		"name":  u.Name,
	}
}
