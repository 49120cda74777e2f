package config

import "time"

type (
	// Config is the top-level client configuration.
	Config struct {
		Server      ServerConfig     `yaml:"server"`
		Auth        AuthConfig       `yaml:"auth"`
		Credentials CredentialConfig `yaml:"credentials"`
		Reconnect   ReconnectConfig  `yaml:"reconnect"`
		Logger      LoggerConfig     `yaml:"logger"`
	}

	// ServerConfig locates the messaging server.
	ServerConfig struct {
		// SocketURL is the WebSocket endpoint, e.g. "ws://localhost:3000/ws".
		SocketURL string `yaml:"socket_url"`
		// HandshakeTimeout bounds the dial plus authentication exchange.
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	}

	// AuthConfig locates the HTTP auth endpoints used for login, logout and
	// token refresh.
	AuthConfig struct {
		// BaseURL is the HTTP API root, e.g. "http://localhost:3000".
		BaseURL string `yaml:"base_url"`
		// Timeout bounds each auth HTTP request.
		Timeout time.Duration `yaml:"timeout"`
	}

	// CredentialConfig selects where session credentials are stored.
	CredentialConfig struct {
		Type  string                `yaml:"type"` // "memory" or "redis"
		Redis CredentialRedisConfig `yaml:"redis"`
	}

	// CredentialRedisConfig is the Redis configuration for credential storage.
	CredentialRedisConfig struct {
		Addr     string        `yaml:"addr"`
		Username string        `yaml:"username"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"` // TTL for stored credentials
	}

	// ReconnectConfig tunes the reconnection policy.
	ReconnectConfig struct {
		MaxAttempts int           `yaml:"max_attempts"`
		BaseDelay   time.Duration `yaml:"base_delay"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}
)

// SetDefaults fills unset fields with the values the client assumes.
func (c *Config) SetDefaults() {
	if c.Server.HandshakeTimeout == 0 {
		c.Server.HandshakeTimeout = 20 * time.Second
	}
	if c.Auth.Timeout == 0 {
		c.Auth.Timeout = 10 * time.Second
	}
	if c.Credentials.Type == "" {
		c.Credentials.Type = "memory"
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = 5
	}
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = time.Second
	}
}
