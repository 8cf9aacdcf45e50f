package middleware

import (
	"log/slog"
	"net/http"

	"github.com/savelyevam/vidhub/internal/transport/http/response"
	logctx "github.com/savelyevam/vidhub/pkg/log"
)

// Recover перехватывает panic, конвертирует в 500 и пишет унифицированный конверт.
// Детали паники не утекают на клиент.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logctx.From(r.Context()).
						LogAttrs(r.Context(), slog.LevelError, "panic",
							slog.String("path", r.URL.Path),
							slog.Any("reason", rec),
						)
					response.Fail(w, http.StatusInternalServerError, "Internal server error!")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
