package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/parleychat/parley/internal/common/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store using Redis, so that credentials survive a
// client restart the same way browser storage survives a page reload.
type RedisStore struct {
	logger *zap.Logger
	client *redis.Client
	key    string
	cfg    config.CredentialRedisConfig
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-based credential store
func NewRedisStore(ctx context.Context, logger *zap.Logger, cfg config.CredentialRedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "parley"
	}

	return &RedisStore{
		logger: logger.Named("auth.store.redis"),
		client: client,
		key:    prefix + ":credentials",
		cfg:    cfg,
	}, nil
}

// Load implements Store.Load
func (s *RedisStore) Load(ctx context.Context) (*Credentials, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &creds, nil
}

// Save implements Store.Save
func (s *RedisStore) Save(ctx context.Context, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Clear implements Store.Clear
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		s.logger.Error("failed to clear credentials", zap.Error(err))
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
