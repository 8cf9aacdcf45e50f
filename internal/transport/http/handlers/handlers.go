// handlers реализует REST-обработчики аккаунтов поверх сервисного слоя.
// Валидация и бизнес-правила живут в service; здесь только разбор запроса
// (JSON/multipart), cookie и сборка конверта ответа.
package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/savelyevam/vidhub/internal/config"
	"github.com/savelyevam/vidhub/internal/service"
)

// maxMultipartMemory — порог буферизации multipart-формы в памяти;
// файлы крупнее уходят во временные файлы стандартной библиотеки.
const maxMultipartMemory = 8 << 20

// Handlers агрегирует зависимости HTTP-слоя.
type Handlers struct {
	svc *service.Service
	cfg *config.Config
}

func New(svc *service.Service, cfg *config.Config) *Handlers {
	return &Handlers{svc: svc, cfg: cfg}
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля
// и ограничиваем размер тела (защита от раздутых запросов).
func (h *Handlers) decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	body := http.MaxBytesReader(w, r.Body, h.cfg.HTTP.BodyLimit)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// formUpload открывает файл формы и упаковывает его в service.Upload.
// Возвращает (nil, nil, nil), если поля в форме нет.
// Закрыть файл обязан вызывающий (через возвращённый closer).
func formUpload(r *http.Request, field string) (*service.Upload, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	upload := &service.Upload{
		Reader:      file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}

	return upload, file, nil
}

// setAuthCookies кладёт пару токенов в httpOnly-cookie.
// Время жизни cookie совпадает с TTL соответствующего токена.
func (h *Handlers) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	h.setCookie(w, "accessToken", accessToken, h.cfg.Auth.AccessTokenTTL)
	h.setCookie(w, "refreshToken", refreshToken, h.cfg.Auth.RefreshTokenTTL)
}

// clearAuthCookies стирает auth-cookie (logout).
func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	h.setCookie(w, "accessToken", "", -time.Hour)
	h.setCookie(w, "refreshToken", "", -time.Hour)
}

func (h *Handlers) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cfg.Cookies.Domain,
		HttpOnly: true,
		Secure:   h.cfg.Cookies.Secure,
		SameSite: sameSiteMode(h.cfg.Cookies.SameSite),
	}

	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	} else {
		cookie.MaxAge = -1
	}

	http.SetCookie(w, cookie)
}

func sameSiteMode(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
