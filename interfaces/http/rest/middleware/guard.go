package middleware

import (
	"net/http"
	"strings"

	"citypulse/application/session"
	"citypulse/pkg/auth"
	"citypulse/pkg/common"
)

// AuthCookie is the cookie carrying the session token.
const AuthCookie = "auth_token"

// Guard protects routes that require an authenticated session.
//
// While the session store is still rehydrating, every guarded request gets a
// 503 so the client retries instead of being bounced to the login screen.
// Unauthenticated requests get a 401 with a redirect hint to /login.
func Guard(sessions *session.Store, tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions.IsLoading() {
				w.Header().Set("Retry-After", "1")
				common.RespondError(w, http.StatusServiceUnavailable, "SESSION_LOADING", "session is being restored, retry shortly")
				return
			}

			token := extractToken(r)
			if token == "" || !sessions.IsAuthenticated() {
				common.RespondRedirect(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", "/login")
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				common.RespondRedirect(w, http.StatusUnauthorized, "INVALID_TOKEN", "session token is invalid or expired", "/login")
				return
			}

			user := sessions.CurrentUser()
			if user == nil || user.ID != claims.UserID {
				common.RespondRedirect(w, http.StatusUnauthorized, "SESSION_MISMATCH", "token does not match the active session", "/login")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), claims)))
		})
	}
}

// GuestOnly fences the login area. An already-authenticated caller is sent
// back to the app instead of being allowed to re-authenticate.
func GuestOnly(sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions.IsLoading() {
				w.Header().Set("Retry-After", "1")
				common.RespondError(w, http.StatusServiceUnavailable, "SESSION_LOADING", "session is being restored, retry shortly")
				return
			}
			if sessions.IsAuthenticated() {
				common.RespondRedirect(w, http.StatusConflict, "ALREADY_AUTHENTICATED", "a session is already active", "/app")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(AuthCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
