// Package cache хранит профили пользователей в Redis, чтобы проверка сессии
// и чтение профиля не обращались к базе на каждом запросе.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/user-service/internal/config"
	"github.com/magabrotheeeer/user-service/internal/models"
)

const userKeyPrefix = "user:"

// Cache обёртка над клиентом Redis, хранящая значения в JSON.
type Cache struct {
	Db  *redis.Client
	ttl time.Duration
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, ttl: cfg.CacheTTL}, nil
}

// Get читает значение по ключу в result. false означает промах.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение в JSON с указанным временем жизни.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает клиент Redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// GetUser возвращает профиль пользователя из кэша.
func (c *Cache) GetUser(ctx context.Context, id string) (*models.User, bool, error) {
	var u models.User
	found, err := c.Get(ctx, userKeyPrefix+id, &u)
	if err != nil || !found {
		return nil, false, err
	}
	return &u, true, nil
}

// SetUser кладёт профиль в кэш. Хэш пароля и данные сброса в JSON не попадают.
func (c *Cache) SetUser(ctx context.Context, u *models.User) error {
	return c.Set(ctx, userKeyPrefix+u.ID, u, c.ttl)
}

// InvalidateUser удаляет профиль из кэша.
func (c *Cache) InvalidateUser(ctx context.Context, id string) error {
	return c.Invalidate(ctx, userKeyPrefix+id)
}

// Noop кэш, который ничего не хранит. Используется, когда Redis не настроен.
type Noop struct{}

// GetUser всегда промахивается.
func (Noop) GetUser(context.Context, string) (*models.User, bool, error) { return nil, false, nil }

// SetUser ничего не делает.
func (Noop) SetUser(context.Context, *models.User) error { return nil }

// InvalidateUser ничего не делает.
func (Noop) InvalidateUser(context.Context, string) error { return nil }
