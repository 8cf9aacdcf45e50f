package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/savelyevam/vidhub/internal/cache"
	"github.com/savelyevam/vidhub/internal/models"
	"github.com/savelyevam/vidhub/pkg/log"
)

// accessClaims — полезная нагрузка access-токена: идентичность целиком,
// чтобы обработчики не ходили в БД ради отображаемых полей.
type accessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// refreshClaims — минимальная нагрузка refresh-токена: только id (Subject).
type refreshClaims struct {
	jwt.RegisteredClaims
}

// issueTokenPair выпускает новую пару access+refresh и сохраняет refresh
// на пользователе (точка ротации: прежний токен перестаёт проходить сверку).
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service/token/issueTokenPair"

	now := time.Now().UTC()

	access, err := s.generateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.generateRefreshToken(user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cacheRefresh(ctx, user.ID, refresh)

	return &models.TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, nil
}

// generateAccessToken подписывает access-токен секретом AccessSecret.
func (s *Service) generateAccessToken(user *models.User, now time.Time) (string, error) {
	const op = "service/token/generateAccessToken"

	claims := accessClaims{
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// generateRefreshToken подписывает refresh-токен отдельным секретом
// RefreshSecret: утечка access-секрета не даёт подделать долгоживущий токен.
func (s *Service) generateRefreshToken(userID string, now time.Time) (string, error) {
	const op = "service/token/generateRefreshToken"

	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti делает каждый выпуск уникальным: NumericDate имеет секундную
			// точность, и без jti две ротации в одну секунду дали бы
			// байт-в-байт одинаковые токены.
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// validateAccessToken валидирует access-токен и возвращает claims.
func (s *Service) validateAccessToken(tokenStr string) (*accessClaims, error) {
	const op = "service/token/validateAccessToken"

	claims := &accessClaims{}
	if err := s.parseToken(tokenStr, claims, s.cfg.AccessSecret); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

// validateRefreshToken валидирует refresh-токен и возвращает id пользователя.
func (s *Service) validateRefreshToken(tokenStr string) (string, error) {
	const op = "service/token/validateRefreshToken"

	claims := &refreshClaims{}
	if err := s.parseToken(tokenStr, claims, s.cfg.RefreshSecret); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims.Subject, nil
}

// parseToken — общая проверка подписи/срока. Чистая функция без I/O.
func (s *Service) parseToken(tokenStr string, claims jwt.Claims, secret string) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrInvalidToken
			}

			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}

		return ErrInvalidToken
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	return nil
}

// cacheRefresh best-effort кладёт хэш текущего refresh-токена в кэш.
func (s *Service) cacheRefresh(ctx context.Context, userID, token string) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.Set(ctx, userID, cache.HashToken(token), s.cfg.RefreshTokenTTL); err != nil {
		log.From(ctx).Warn("refresh_cache_set_failed",
			slog.String("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

// dropCachedRefresh best-effort удаляет запись кэша (logout).
func (s *Service) dropCachedRefresh(ctx context.Context, userID string) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.Del(ctx, userID); err != nil {
		log.From(ctx).Warn("refresh_cache_del_failed",
			slog.String("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}
