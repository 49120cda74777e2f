package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Loader is responsible for loading configuration
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// LoadFromFile loads configuration from a YAML file
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.SetDefaults()
	l.applyEnv(&cfg)

	if err := l.Validate(&cfg); err != nil {
		return nil, err
	}

	l.logger.Info("loaded configuration",
		zap.String("path", path),
		zap.String("socket_url", cfg.Server.SocketURL),
		zap.String("auth_url", cfg.Auth.BaseURL))
	return &cfg, nil
}

// applyEnv lets environment variables override file values so that a config
// file can be shared between environments.
func (l *Loader) applyEnv(cfg *Config) {
	if v := os.Getenv("PARLEY_SOCKET_URL"); v != "" {
		cfg.Server.SocketURL = v
	}
	if v := os.Getenv("PARLEY_API_URL"); v != "" {
		cfg.Auth.BaseURL = v
	}
	if v := os.Getenv("PARLEY_REDIS_ADDR"); v != "" {
		cfg.Credentials.Type = "redis"
		cfg.Credentials.Redis.Addr = v
	}
}

// Validate checks that the configuration is usable.
func (l *Loader) Validate(cfg *Config) error {
	if cfg.Server.SocketURL == "" {
		return fmt.Errorf("server.socket_url is required")
	}
	if cfg.Auth.BaseURL == "" {
		return fmt.Errorf("auth.base_url is required")
	}
	if cfg.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must not be negative")
	}
	if cfg.Reconnect.BaseDelay < 0 {
		return fmt.Errorf("reconnect.base_delay must not be negative")
	}
	return nil
}
