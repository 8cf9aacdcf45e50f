// response стандартизирует ответы HTTP-слоя.
// Конверт единый для успеха и ошибки: {statusCode, success, message, data};
// HTTP-статус дублируется в конверте и в статус-линии транспорта.
// Ошибки ядра (sentinel-значения пакета service) маппятся на статусы
// и краткие безопасные сообщения без утечки деталей.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/savelyevam/vidhub/internal/service"
	"github.com/savelyevam/vidhub/pkg/log"
)

// Envelope — единый формат ответа для фронта.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

// JSON пишет успешный ответ в конверте.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, Envelope{
		StatusCode: status,
		Success:    true,
		Message:    message,
		Data:       data,
	})
}

// Error конвертирует ошибку ядра в конверт с success:false.
// Неизвестные ошибки схлопываются в 500 без деталей.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)

	if status == http.StatusInternalServerError {
		log.From(r.Context()).Error("request_failed",
			slog.String("path", r.URL.Path),
			slog.String("err", errString(err)),
		)
	}

	Fail(w, status, msg)
}

// Fail пишет ошибку с явным статусом и сообщением
// (для случаев, когда сообщение фиксировано контрактом эндпойнта).
func Fail(w http.ResponseWriter, status int, message string) {
	write(w, Envelope{
		StatusCode: status,
		Success:    false,
		Message:    message,
	})
}

func write(w http.ResponseWriter, e Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// mapError — таблица sentinel -> (HTTP-статус, сообщение).
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrAvatarRequired):
		return http.StatusBadRequest, "Avatar is required!"
	case errors.Is(err, service.ErrWeakPassword):
		return http.StatusBadRequest, "Password must be 6-72 characters long!"
	case errors.Is(err, service.ErrSamePassword):
		return http.StatusBadRequest, "Try setting different password!"
	case errors.Is(err, service.ErrInvalidMedia):
		return http.StatusBadRequest, "Invalid image file!"
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "Invalid request data!"
	case errors.Is(err, service.ErrUserExists):
		return http.StatusConflict, "User with email or username already exists!"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User doesn't exists!"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid user credentials!"
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked):
		return http.StatusUnauthorized, "Invalid access token!"
	default:
		return http.StatusInternalServerError, "Internal server error!"
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
