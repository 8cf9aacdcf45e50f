package storage

import (
	"context"
	"errors"
	"io"

	"github.com/savelyevam/vidhub/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — конфликт уникальности (username/email).
	// Источник истины — уникальный индекс БД, а не предварительная проверка.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidMedia — файл не проходит ограничения медиахранилища
	// (размер/content-type).
	ErrInvalidMedia = errors.New("invalid media")
)

// UsersStorage описывает операции над аккаунтами пользователей
// и read-model агрегациями (канал, история просмотров).
type UsersStorage interface {
	// SaveUser вставляет нового пользователя и возвращает запись с
	// назначенным ID. При нарушении уникальности — ErrAlreadyExists.
	SaveUser(ctx context.Context, user *models.User) (*models.User, error)

	// UserByID возвращает пользователя по hex ObjectID.
	// Если запись не найдена (или id не hex) — ErrNotFound.
	UserByID(ctx context.Context, id string) (*models.User, error)

	// UserByLogin ищет пользователя по username ИЛИ email
	// (без учёта регистра). Если запись не найдена — ErrNotFound.
	UserByLogin(ctx context.Context, usernameOrEmail string) (*models.User, error)

	// UserExists — быстрая проверка занятости username/email.
	// Пустые аргументы в условие не включаются.
	UserExists(ctx context.Context, username, email string) (bool, error)

	// UpdateUser применяет частичный патч ($set только по не-nil полям)
	// и возвращает документ после обновления.
	// Возможные ошибки: ErrNotFound, ErrAlreadyExists.
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)

	// SetRefreshToken перезаписывает текущий refresh-токен пользователя.
	// Пустой token очищает значение (logout). Если запись не найдена — ErrNotFound.
	SetRefreshToken(ctx context.Context, id, token string) error

	// ChannelByUsername собирает read-model канала: публичные поля
	// пользователя, число подписчиков и признак подписки viewerID.
	// Пустой viewerID допустим (isSubscribed=false).
	// Если канал не найден — ErrNotFound.
	ChannelByUsername(ctx context.Context, username, viewerID string) (*models.Channel, error)

	// WatchHistory возвращает просмотренные видео пользователя
	// с подставленными владельцами. Если пользователь не найден — ErrNotFound.
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)

	// Close закрывает соединения/ресурсы хранилища.
	Close(ctx context.Context) error
}

// MediaStorage — медиахост для аватаров и обложек.
// Ядро зависит только от стабильной строки-ссылки, которую он возвращает.
type MediaStorage interface {
	// Upload загружает содержимое r в папку folder ("avatars"/"covers")
	// и возвращает публичный URL объекта.
	// При нарушении ограничений размера/типа — ErrInvalidMedia.
	Upload(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (string, error)

	// Delete удаляет объект по его публичному URL. Чужие/битые URL — no-op.
	Delete(ctx context.Context, publicURL string) error
}
