package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/savelyevam/vidhub/internal/cache"
	"github.com/savelyevam/vidhub/internal/models"
	"github.com/savelyevam/vidhub/internal/storage"
	"github.com/savelyevam/vidhub/pkg/log"
)

// Upload — содержимое загружаемого изображения.
// Поток читается ровно один раз и уходит в медиахранилище без
// промежуточных файлов.
type Upload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// RegisterInput — входные данные регистрации.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string

	// Avatar обязателен, CoverImage опционален.
	Avatar     *Upload
	CoverImage *Upload
}

// Register регистрирует нового пользователя.
//
// Порядок: валидация -> fast-path проверка занятости -> загрузка изображений
// -> хэширование пароля -> вставка. Уникальный индекс БД остаётся источником
// истины: гонка «проверили-вставили» всё равно даёт ErrUserExists.
// Возвращает пользователя без учётных полей.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	const op = "service/auth/Register"

	lg := log.From(ctx).With("op", op)

	username, err := validateUsername(input.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	email, err := validateEmail(input.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fullName := strings.TrimSpace(input.FullName)
	if len([]rune(fullName)) < 2 {
		return nil, fmt.Errorf("%s: full name: %w", op, ErrInvalidArgument)
	}

	if err := validatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if input.Avatar == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarRequired)
	}

	taken, err := s.users.UserExists(ctx, username, email)
	if err != nil {
		lg.Error("user_exists_check_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}
	if taken {
		return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	}

	avatarURL, err := s.uploadImage(ctx, "avatars", input.Avatar)
	if err != nil {
		return nil, fmt.Errorf("%s: avatar: %w", op, err)
	}

	var coverURL string
	if input.CoverImage != nil {
		coverURL, err = s.uploadImage(ctx, "covers", input.CoverImage)
		if err != nil {
			s.deleteImage(ctx, avatarURL)
			return nil, fmt.Errorf("%s: cover: %w", op, err)
		}
	}

	// Хэширование — явный шаг операции, а не хук хранилища.
	hash, err := hashPassword(input.Password)
	if err != nil {
		lg.Error("password_hash_failed", slog.String("err", err.Error()))
		s.deleteImage(ctx, avatarURL)
		s.deleteImage(ctx, coverURL)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	}

	created, err := s.users.SaveUser(ctx, user)
	if err != nil {
		s.deleteImage(ctx, avatarURL)
		s.deleteImage(ctx, coverURL)

		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		lg.Error("save_user_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return created.Redacted(), nil
}

// Login выполняет вход по username или email.
// На успех выпускает пару токенов и перезаписывает сохранённый refresh-токен
// (точка ротации: прежняя сессия перестаёт продлеваться).
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*models.User, *models.TokenPair, error) {
	const op = "service/auth/Login"

	if strings.TrimSpace(usernameOrEmail) == "" {
		return nil, nil, fmt.Errorf("%s: login: %w", op, ErrInvalidArgument)
	}

	if password == "" {
		return nil, nil, fmt.Errorf("%s: password: %w", op, ErrInvalidArgument)
	}

	user, err := s.users.UserByLogin(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.From(ctx).Error("user_lookup_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user.Redacted(), pair, nil
}

// Logout очищает сохранённый refresh-токен: любые выданные ранее
// refresh-токены немедленно перестают действовать, даже если не истекли.
func (s *Service) Logout(ctx context.Context, userID string) error {
	const op = "service/auth/Logout"

	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.From(ctx).Error("clear_refresh_failed", slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.dropCachedRefresh(ctx, userID)

	return nil
}

// Refresh обменивает действующий refresh-токен на новую пару токенов.
//
// Предъявленный токен обязан в точности совпадать с сохранённым: так
// детектируется повторное использование уже ротированного токена.
// HTTP-слой схлопывает все под-причины отказа в один generic-ответ.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service/auth/Refresh"

	lg := log.From(ctx).With("op", op)

	if refreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, err := s.validateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Fast-path по кэшу: заведомо ротированный токен отклоняем без похода
	// в БД. Отсутствие записи или ошибка кэша — идём к источнику истины.
	if s.rcache != nil {
		if hash, ok, cerr := s.rcache.Get(ctx, userID); cerr == nil && ok {
			if hash != cache.HashToken(refreshToken) {
				lg.Warn("refresh_reuse_detected_cache", slog.String("user_id", userID))
				return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
			}
		}
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		lg.Error("user_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		lg.Warn("refresh_reuse_detected", slog.String("user_id", userID))
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// ChangePassword заменяет пароль после проверки старого.
// Refresh-токен сознательно не трогаем: действующие сессии переживают
// смену пароля (поведение оригинала, зафиксировано как открытый вопрос).
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	const op = "service/auth/ChangePassword"

	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if oldPassword == newPassword {
		return fmt.Errorf("%s: %w", op, ErrSamePassword)
	}

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.From(ctx).Error("user_lookup_failed", slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !checkPassword(user.PasswordHash, oldPassword) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		log.From(ctx).Error("password_hash_failed", slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if _, err := s.users.UpdateUser(ctx, userID, models.UserPatch{PasswordHash: &hash}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.From(ctx).Error("password_update_failed", slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return nil
}

// AuthenticateAccessToken проверяет access-токен и возвращает пользователя
// без учётных полей. Сохранённый refresh-токен здесь не сверяется:
// валидность access-токена сама по себе авторизует запрос.
func (s *Service) AuthenticateAccessToken(ctx context.Context, token string) (*models.User, error) {
	const op = "service/auth/AuthenticateAccessToken"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, err := s.validateAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		log.From(ctx).Error("user_lookup_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return user.Redacted(), nil
}

// hashPassword хэширует пароль с помощью bcrypt (соль per-call внутри).
func hashPassword(password string) (string, error) {
	const op = "service/auth/hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateUsername нормализует username: trim, lowercase, длина 2–20.
func validateUsername(raw string) (string, error) {
	const op = "service/auth/validateUsername"

	username := strings.ToLower(strings.TrimSpace(raw))
	n := len([]rune(username))
	if n < 2 || n > 20 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	return username, nil
}

// validateEmail проверяет базовый формат email и нормализует его.
func validateEmail(raw string) (string, error) {
	const op = "service/auth/validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика исходной схемы: длина 6–72 (верхняя граница — ограничение bcrypt).
func validatePassword(pw string) error {
	const op = "service/auth/validatePassword"

	if pw == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if len(pw) < 6 || len(pw) > 72 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}

// uploadImage отправляет изображение в медиахранилище.
func (s *Service) uploadImage(ctx context.Context, folder string, u *Upload) (string, error) {
	url, err := s.media.Upload(ctx, folder, u.Reader, u.Size, u.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidMedia) {
			return "", ErrInvalidMedia
		}

		log.From(ctx).Error("media_upload_failed", slog.String("err", err.Error()))
		return "", ErrInternal
	}

	return url, nil
}

// deleteImage best-effort удаляет изображение; пустой URL — no-op.
func (s *Service) deleteImage(ctx context.Context, url string) {
	if url == "" {
		return
	}

	if err := s.media.Delete(ctx, url); err != nil {
		log.From(ctx).Warn("media_delete_failed", slog.String("url", url), slog.String("err", err.Error()))
	}
}
