// cache содержит опциональный Redis-кэш текущего refresh-токена пользователя.
// В кэше лежит только SHA-256 хэш токена: по нему refresh может быстро
// отклонить уже ротированный токен без похода в MongoDB. Источник истины —
// всегда хранилище; кэш best-effort, его ошибки не фатальны для сценария.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshCache — минимальный контракт кэша refresh-токенов.
type RefreshCache interface {
	// Get возвращает хэш текущего токена и признак его наличия в кэше.
	Get(ctx context.Context, userID string) (string, bool, error)
	// Set сохраняет хэш с TTL (обычно RefreshTokenTTL).
	Set(ctx context.Context, userID, hash string, ttl time.Duration) error
	// Del удаляет запись (logout).
	Del(ctx context.Context, userID string) error
	// Close закрывает клиент Redis.
	Close() error
}

// HashToken возвращает base64url(SHA-256) от значения токена.
// Сырые refresh-токены в Redis не кладём.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "vidhub:rt:".
func NewRedisCache(redisURL, prefix string) (RefreshCache, error) {
	if prefix == "" {
		prefix = "vidhub:rt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(userID string) string { return c.prefix + userID }

func (c *redisCache) Get(ctx context.Context, userID string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, c.key(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}

		return "", false, err
	}

	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, userID, hash string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(userID), hash, ttl).Err()
}

func (c *redisCache) Del(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, c.key(userID)).Err()
}

func (c *redisCache) Close() error {
	return c.rdb.Close()
}
