package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/snakr/snakr-api/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

var ErrNoClaims = errors.New("identity claims not found in context")

// Authenticate проверяет заголовок Authorization и кладёт claims в контекст.
// Ответ 401 всегда одинаковый для клиента; причина различима только в логе.
func Authenticate(verifier *auth.Verifier, logger *slog.Logger, respond func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				logger.Warn("missing bearer credentials",
					slog.String("path", r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())))
				respond(w, r)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := verifier.Verify(token)
			if err != nil {
				// Истёкший и невалидный токены логируются по-разному.
				logger.Warn("token verification failed",
					slog.Any("error", err),
					slog.String("path", r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())))
				respond(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext возвращает проверенную идентичность запроса.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok || claims == nil {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// WithClaims используется в тестах обработчиков.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}
