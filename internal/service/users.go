package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/savelyevam/vidhub/internal/models"
	"github.com/savelyevam/vidhub/internal/storage"
	"github.com/savelyevam/vidhub/pkg/log"
)

// UpdateProfileInput — частичное обновление профиля: поле nil — «не трогать».
type UpdateProfileInput struct {
	Username *string
	Email    *string
	FullName *string
}

// CurrentUser возвращает пользователя по id без учётных полей.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "service/users/CurrentUser"

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.From(ctx).Error("user_lookup_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return user.Redacted(), nil
}

// UpdateProfile применяет частичный патч к fullName/username/email.
//
// Переданные username/email нормализуются и проходят ту же валидацию,
// что при регистрации; занятость проверяется fast-path'ом, но источником
// истины остаётся уникальный индекс (ErrAlreadyExists при гонке).
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	const op = "service/users/UpdateProfile"

	if input.Username == nil && input.Email == nil && input.FullName == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	patch := models.UserPatch{}
	var checkUsername, checkEmail string

	if input.Username != nil {
		username, err := validateUsername(*input.Username)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		patch.Username = &username
		checkUsername = username
	}

	if input.Email != nil {
		email, err := validateEmail(*input.Email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		patch.Email = &email
		checkEmail = email
	}

	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if len([]rune(fullName)) < 2 {
			return nil, fmt.Errorf("%s: full name: %w", op, ErrInvalidArgument)
		}

		patch.FullName = &fullName
	}

	if checkUsername != "" || checkEmail != "" {
		taken, err := s.users.UserExists(ctx, checkUsername, checkEmail)
		if err != nil {
			log.From(ctx).Error("user_exists_check_failed", slog.String("op", op), slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
		if taken {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
	}

	updated, err := s.users.UpdateUser(ctx, userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		default:
			log.From(ctx).Error("user_update_failed", slog.String("op", op), slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	return updated.Redacted(), nil
}

// UpdateAvatar загружает новый аватар, подменяет ссылку на пользователе
// и затем подчищает прежний объект. Порядок «новый -> патч -> удаление
// старого»: при сбое загрузки пользователь не остаётся без аватара.
func (s *Service) UpdateAvatar(ctx context.Context, userID string, upload *Upload) (*models.User, error) {
	const op = "service/users/UpdateAvatar"

	return s.replaceImage(ctx, op, userID, "avatars", upload, func(url string) models.UserPatch {
		return models.UserPatch{Avatar: &url}
	}, func(u *models.User) string { return u.Avatar })
}

// UpdateCoverImage — то же для обложки.
func (s *Service) UpdateCoverImage(ctx context.Context, userID string, upload *Upload) (*models.User, error) {
	const op = "service/users/UpdateCoverImage"

	return s.replaceImage(ctx, op, userID, "covers", upload, func(url string) models.UserPatch {
		return models.UserPatch{CoverImage: &url}
	}, func(u *models.User) string { return u.CoverImage })
}

// replaceImage — общий сценарий замены изображения пользователя.
func (s *Service) replaceImage(
	ctx context.Context,
	op, userID, folder string,
	upload *Upload,
	makePatch func(url string) models.UserPatch,
	oldURL func(u *models.User) string,
) (*models.User, error) {
	if upload == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.From(ctx).Error("user_lookup_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	url, err := s.uploadImage(ctx, folder, upload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.users.UpdateUser(ctx, userID, makePatch(url))
	if err != nil {
		s.deleteImage(ctx, url)

		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.From(ctx).Error("user_update_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.deleteImage(ctx, oldURL(user))

	return updated.Redacted(), nil
}

// Channel возвращает read-model канала по username;
// viewerID определяет признак isSubscribed.
func (s *Service) Channel(ctx context.Context, channelUsername, viewerID string) (*models.Channel, error) {
	const op = "service/users/Channel"

	if strings.TrimSpace(channelUsername) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	channel, err := s.users.ChannelByUsername(ctx, channelUsername, viewerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.From(ctx).Error("channel_lookup_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return channel, nil
}

// WatchHistory возвращает историю просмотров пользователя.
func (s *Service) WatchHistory(ctx context.Context, userID string) ([]models.Video, error) {
	const op = "service/users/WatchHistory"

	history, err := s.users.WatchHistory(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.From(ctx).Error("history_lookup_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return history, nil
}
