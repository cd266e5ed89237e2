// Package config defines the companion's YAML configuration, with environment
// variable expansion for secrets and an env overlay for containerized deploys.
package config

import "time"

// CompanionConfig is the root configuration for a companion instance.
type CompanionConfig struct {
	Session    SessionConfig    `yaml:"session"`
	Directory  DirectoryConfig  `yaml:"directory"`
	Connection ConnectionConfig `yaml:"connection"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Log        LogConfig        `yaml:"log"`
}

// SessionConfig identifies the game session to join.
type SessionConfig struct {
	// Code is the short invite code. Resolved through the directory service
	// when WSURL is not set explicitly.
	Code  string `yaml:"code"`
	Token string `yaml:"token"`
	WSURL string `yaml:"ws_url"`
}

// DirectoryConfig holds session directory service settings.
type DirectoryConfig struct {
	RestURL    string        `yaml:"rest_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// ConnectionConfig holds reconnect and handshake settings.
type ConnectionConfig struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	MaxQueueSize         int           `yaml:"max_queue_size"`
	AuthTimeout          time.Duration `yaml:"auth_timeout"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
}

// HeartbeatConfig holds liveness probe settings.
type HeartbeatConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TranscriptConfig holds session log persistence settings.
type TranscriptConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Database           DBConfig      `yaml:"database"`
	BatchSize          int           `yaml:"batch_size"`
	FlushInterval      time.Duration `yaml:"flush_interval"`
	EntryBufferSize    int           `yaml:"entry_buffer_size"`
	PresenceBufferSize int           `yaml:"presence_buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
