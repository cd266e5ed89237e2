package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDirectoryTimeout    = 10 * time.Second
	DefaultDirectoryRetries    = 3
	DefaultMaxReconnects       = 5
	DefaultMaxQueueSize        = 32
	DefaultAuthTimeout         = 5 * time.Second
	DefaultReconnectBaseDelay  = 1 * time.Second
	DefaultReconnectMaxDelay   = 60 * time.Second
	DefaultHandshakeTimeout    = 10 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
	DefaultHeartbeatInterval   = 15 * time.Second
	DefaultHeartbeatTimeout    = 5 * time.Second
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 4
	DefaultMinConns            = 1
	DefaultBatchSize           = 100
	DefaultFlushInterval       = 2 * time.Second
	DefaultEntryBufferSize     = 1000
	DefaultPresenceBufferSize  = 100
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
)

func (c *CompanionConfig) applyDefaults() {
	// Directory defaults
	if c.Directory.Timeout == 0 {
		c.Directory.Timeout = DefaultDirectoryTimeout
	}
	if c.Directory.MaxRetries == 0 {
		c.Directory.MaxRetries = DefaultDirectoryRetries
	}

	// Connection defaults
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = DefaultMaxReconnects
	}
	if c.Connection.MaxQueueSize == 0 {
		c.Connection.MaxQueueSize = DefaultMaxQueueSize
	}
	if c.Connection.AuthTimeout == 0 {
		c.Connection.AuthTimeout = DefaultAuthTimeout
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}

	// Heartbeat defaults
	if c.Heartbeat.Interval == 0 {
		c.Heartbeat.Interval = DefaultHeartbeatInterval
	}
	if c.Heartbeat.Timeout == 0 {
		c.Heartbeat.Timeout = DefaultHeartbeatTimeout
	}

	// Transcript defaults
	if c.Transcript.BatchSize == 0 {
		c.Transcript.BatchSize = DefaultBatchSize
	}
	if c.Transcript.FlushInterval == 0 {
		c.Transcript.FlushInterval = DefaultFlushInterval
	}
	if c.Transcript.EntryBufferSize == 0 {
		c.Transcript.EntryBufferSize = DefaultEntryBufferSize
	}
	if c.Transcript.PresenceBufferSize == 0 {
		c.Transcript.PresenceBufferSize = DefaultPresenceBufferSize
	}
	if c.Transcript.Enabled {
		applyDBDefaults(&c.Transcript.Database)
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
