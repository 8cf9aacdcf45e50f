package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/savelyevam/vidhub/internal/models"
	"github.com/savelyevam/vidhub/internal/transport/http/response"
)

type ctxKey int

const ctxUser ctxKey = iota

// AccessCookie — имя cookie с access-токеном; фронт получает его при login/refresh.
const AccessCookie = "accessToken"

// TokenAuthenticator проверяет access-токен и возвращает его владельца.
type TokenAuthenticator interface {
	AuthenticateAccessToken(ctx context.Context, token string) (*models.User, error)
}

// Authenticate закрывает группу маршрутов: без валидного access-токена — 401.
// Токен берётся из cookie accessToken либо из заголовка Authorization (Bearer).
// Аутентифицированный пользователь кладётся в контекст (см. UserFrom).
func Authenticate(auth TokenAuthenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				response.Fail(w, http.StatusUnauthorized, "Unauthorized request!")
				return
			}

			user, err := auth.AuthenticateAccessToken(r.Context(), token)
			if err != nil {
				response.Error(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom возвращает аутентифицированного пользователя из контекста запроса.
// Второе значение false означает, что запрос не прошёл через Authenticate.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(ctxUser).(*models.User)
	return user, ok
}

func accessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}

	return ""
}
