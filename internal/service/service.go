// service содержит бизнес-логику сервиса аккаунтов:
// регистрацию/аутентификацию пользователей, выпуск/ротацию токенов,
// операции над профилем и read-model выборки (канал, история просмотров).
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданные хранилища потокобезопасны.
//   - На один аккаунт действует не более одного refresh-токена: выпуск нового
//     перезаписывает сохранённый (ротация), logout очищает его. Конкурентные
//     login'ы по одному аккаунту не сериализуются — выигрывает последняя запись.
//   - Ошибки возвращаются обёрнутыми sentinel-значениями и далее маппятся
//     HTTP-слоем на статусы (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/savelyevam/vidhub/internal/cache"
	"github.com/savelyevam/vidhub/internal/config"
	"github.com/savelyevam/vidhub/internal/storage"
)

var (
	// ErrInvalidArgument — отсутствует/некорректно обязательное поле. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAvatarRequired — при регистрации не передан аватар. HTTP 400.
	ErrAvatarRequired = errors.New("avatar is required")

	// ErrWeakPassword — пароль не проходит минимальные требования. HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrSamePassword — новый пароль совпадает со старым. HTTP 400.
	ErrSamePassword = errors.New("new password equals old password")

	// ErrInvalidMedia — файл не проходит ограничения размера/типа. HTTP 400.
	ErrInvalidMedia = errors.New("invalid media file")

	// ErrUserExists — username или email уже занят. HTTP 409.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound — пользователь отсутствует. HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials — пароль не подошёл. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен некорректен по формату/подписи
	// или не resolves в пользователя. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — предъявленный refresh-токен не совпадает с текущим
	// сохранённым (ротация или logout уже инвалидировали его). HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrInternal — внутренняя ошибка сервиса. HTTP 500.
	ErrInternal = errors.New("internal")
)

// Service описывает бизнес-логику сервиса аккаунтов.
type Service struct {
	users  storage.UsersStorage
	media  storage.MediaStorage
	cfg    config.AuthConfig
	rcache cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(users storage.UsersStorage, media storage.MediaStorage, cfg config.AuthConfig) *Service {
	return &Service{
		users: users,
		media: media,
		cfg:   cfg,
	}
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
