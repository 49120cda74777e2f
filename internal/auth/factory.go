package auth

import (
	"context"
	"fmt"

	"github.com/parleychat/parley/internal/common/config"
	"go.uber.org/zap"
)

// StoreType represents the type of credential store
type StoreType string

const (
	// StoreTypeMemory represents the in-memory credential store
	StoreTypeMemory StoreType = "memory"
	// StoreTypeRedis represents the Redis-based credential store
	StoreTypeRedis StoreType = "redis"
)

// NewStore creates a new credential store based on configuration
func NewStore(ctx context.Context, logger *zap.Logger, cfg *config.CredentialConfig) (Store, error) {
	logger.Info("initializing credential store", zap.String("type", cfg.Type))
	switch StoreType(cfg.Type) {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeRedis:
		return NewRedisStore(ctx, logger, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported credential store type: %s", cfg.Type)
	}
}
