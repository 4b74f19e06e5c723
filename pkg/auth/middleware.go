package auth

import (
	"context"
	"net/http"
	"strings"

	"relay/pkg/logger"
	"relay/pkg/utils"
)

type ctxKey struct{}

var ctxUserKey ctxKey

// RequireSession rejects requests without a valid Bearer session token
// and stores the caller's user id on the request context. Tokens are also
// accepted from the token query parameter for websocket clients.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			utils.JSONError(w, http.StatusUnauthorized, "missing session token")
			return
		}
		uid, err := ParseSession(token)
		if err != nil {
			utils.JSONError(w, http.StatusUnauthorized, "invalid or expired session")
			logger.Warn("session_rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserKey, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// UserIDFromContext returns the authenticated user id set by
// RequireSession.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ctxUserKey).(string)
	return uid, ok && uid != ""
}
