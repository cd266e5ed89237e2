package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *CompanionConfig) Validate() error {
	if c.Session.Token == "" {
		return errors.New("session.token is required")
	}
	if c.Session.WSURL == "" && c.Session.Code == "" {
		return errors.New("one of session.ws_url or session.code is required")
	}
	if c.Session.WSURL == "" && c.Directory.RestURL == "" {
		return errors.New("directory.rest_url is required to resolve session.code")
	}

	if c.Connection.MaxReconnectAttempts < 0 {
		return errors.New("connection.max_reconnect_attempts must be >= 0")
	}
	if c.Connection.MaxQueueSize < 1 {
		return errors.New("connection.max_queue_size must be >= 1")
	}
	if c.Connection.ReconnectBaseDelay <= 0 {
		return errors.New("connection.reconnect_base_delay must be positive")
	}
	if c.Connection.ReconnectMaxDelay < c.Connection.ReconnectBaseDelay {
		return errors.New("connection.reconnect_max_delay cannot be less than reconnect_base_delay")
	}

	if c.Heartbeat.Enabled {
		if c.Heartbeat.Interval <= 0 {
			return errors.New("heartbeat.interval must be positive")
		}
		if c.Heartbeat.Timeout <= 0 {
			return errors.New("heartbeat.timeout must be positive")
		}
	}

	if c.Transcript.Enabled {
		if err := c.Transcript.Database.validate("transcript.database"); err != nil {
			return err
		}
		if c.Transcript.BatchSize < 1 {
			return errors.New("transcript.batch_size must be >= 1")
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
