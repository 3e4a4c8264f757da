package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// TokenParser validates a bearer token and returns the admin username.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

func AdminAuthMiddleware(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			username, err := parser.ParseToken(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), username)))
		})
	}
}

func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func WithAdmin(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, contextKey{}, username)
}

// AdminFrom returns the username stored by AdminAuthMiddleware.
func AdminFrom(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(contextKey{}).(string)
	return username, ok
}
