package api

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// requireAuth verifies the Bearer token and attaches the user id to the
// request context. Missing credentials are 401, invalid ones 403.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.respondMessage(w, r.URL.Path, http.StatusUnauthorized, "no token")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			s.respondMessage(w, r.URL.Path, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := s.tokens.VerifyToken(parts[1])
		if err != nil {
			s.respondMessage(w, r.URL.Path, http.StatusForbidden, "token not valid")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userIDFrom returns the verified user id attached by requireAuth.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
