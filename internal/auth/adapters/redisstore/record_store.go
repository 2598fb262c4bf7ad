// Package redisstore содержит реализацию хранилища записей поверх Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"megachess/internal/auth/config"
	"megachess/internal/auth/domain/entities"
	"megachess/internal/auth/ports/repositories"
	"megachess/pkg/logger"
)

// Константы для логирования.
const (
	LogMethodSet         = "set"
	LogMethodSetWithTTL  = "set_with_ttl"
	LogMethodSetIfAbsent = "set_if_absent"
	LogMethodGet         = "get"
	LogMethodExists      = "exists"
	LogMethodDelete      = "delete"

	ErrorFailedToSet    = "failed to set value in redis"
	ErrorFailedToGet    = "failed to get value from redis"
	ErrorFailedToCheck  = "failed to check key in redis"
	ErrorFailedToDelete = "failed to delete key from redis"
	ErrorFailedToClose  = "failed to close redis connection"
)

// Store реализует интерфейс RecordStore с использованием Redis.
type Store struct {
	client *redis.Client
}

// New создает новое хранилище записей и проверяет соединение с Redis.
func New(ctx context.Context, cfg *config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddress(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.ConnectTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdle,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Set сохраняет значение по ключу без срока жизни.
func (s *Store) Set(ctx context.Context, key, value string) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodSet), zap.String("key", key))

	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		log.Error(ctx, ErrorFailedToSet, zap.Error(err))
		return storeError(ErrorFailedToSet, err)
	}

	return nil
}

// SetWithTTL сохраняет значение по ключу со сроком жизни.
func (s *Store) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodSetWithTTL), zap.String("key", key))

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Error(ctx, ErrorFailedToSet, zap.Error(err))
		return storeError(ErrorFailedToSet, err)
	}

	return nil
}

// SetIfAbsent атомарно сохраняет значение, только если ключ отсутствует.
func (s *Store) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodSetIfAbsent), zap.String("key", key))

	created, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		log.Error(ctx, ErrorFailedToSet, zap.Error(err))
		return false, storeError(ErrorFailedToSet, err)
	}

	return created, nil
}

// Get возвращает значение по ключу либо ErrRecordNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodGet), zap.String("key", key))

	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repositories.ErrRecordNotFound
		}
		log.Error(ctx, ErrorFailedToGet, zap.Error(err))
		return "", storeError(ErrorFailedToGet, err)
	}

	return value, nil
}

// Exists сообщает, существует ли ключ.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodExists), zap.String("key", key))

	count, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		log.Error(ctx, ErrorFailedToCheck, zap.Error(err))
		return false, storeError(ErrorFailedToCheck, err)
	}

	return count > 0, nil
}

// Delete атомарно удаляет ключ и сообщает, существовал ли он.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodDelete), zap.String("key", key))

	removed, err := s.client.Del(ctx, key).Result()
	if err != nil {
		log.Error(ctx, ErrorFailedToDelete, zap.Error(err))
		return false, storeError(ErrorFailedToDelete, err)
	}

	return removed > 0, nil
}

// Close закрывает соединение с Redis.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToClose, err)
	}
	return nil
}

// storeError оборачивает ошибку драйвера в доменную ErrStoreUnavailable.
func storeError(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, entities.ErrStoreUnavailable, err)
}
