package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverlay holds the settings that can be supplied through the environment.
// These take precedence over the YAML file, so secrets never need to be
// written to disk.
type envOverlay struct {
	Token       string `env:"SESSIONLINK_TOKEN"`
	SessionCode string `env:"SESSIONLINK_SESSION_CODE"`
	WSURL       string `env:"SESSIONLINK_WS_URL"`
	RestURL     string `env:"SESSIONLINK_REST_URL"`
	DBPassword  string `env:"SESSIONLINK_DB_PASSWORD"`
	LogLevel    string `env:"SESSIONLINK_LOG_LEVEL"`
}

// ApplyEnv overrides config fields from environment variables.
func (c *CompanionConfig) ApplyEnv() error {
	var o envOverlay
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.Token != "" {
		c.Session.Token = o.Token
	}
	if o.SessionCode != "" {
		c.Session.Code = o.SessionCode
	}
	if o.WSURL != "" {
		c.Session.WSURL = o.WSURL
	}
	if o.RestURL != "" {
		c.Directory.RestURL = o.RestURL
	}
	if o.DBPassword != "" {
		c.Transcript.Database.Password = o.DBPassword
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}

	return nil
}
