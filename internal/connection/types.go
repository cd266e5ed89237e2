package connection

import (
	"errors"
	"time"

	"github.com/hexgrid/sessionlink/internal/clock"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrEmptyEndpoint = errors.New("endpoint is required")
	ErrAuthTimeout   = errors.New("auth handshake timed out")
	ErrInvalidValue  = errors.New("invalid configuration value")
)

// Error event kinds surfaced through the error channel.
const (
	ErrorKindParse     = "parse_error"
	ErrorKindTransport = "transport_error"
	ErrorKindWrite     = "write_error"
)

// ErrorInfo describes a recovered error surfaced to subscribers.
type ErrorInfo struct {
	Kind string
	Err  error
}

// QueuedMessage is an outbound frame awaiting delivery. Ordering is insertion
// order; identity is positional.
type QueuedMessage struct {
	Data       []byte
	EnqueuedAt time.Time
}

// Config configures a Manager.
type Config struct {
	Endpoint string // WebSocket URL (e.g., wss://play.example.com/session/ws)
	Token    string // Opaque auth token; acquisition is the caller's concern

	MaxReconnectAttempts int           // Scheduled retries before giving up
	MaxQueueSize         int           // Outbound queue bound; oldest evicted when full
	AuthTimeout          time.Duration // Handshake verdict deadline
	ReconnectBaseDelay   time.Duration // Backoff base
	ReconnectMaxDelay    time.Duration // Backoff cap
	HandshakeTimeout     time.Duration // Transport dial deadline
	WriteTimeout         time.Duration // Transport write deadline

	// Dial creates the transport for each connection attempt. Defaults to
	// the gorilla/websocket transport.
	Dial TransportFactory

	// Clock drives every timer. Defaults to the system clock; tests inject
	// a fake.
	Clock clock.Clock
}

// DefaultConfig returns sensible defaults for the given endpoint and token.
func DefaultConfig(endpoint, token string) Config {
	return Config{
		Endpoint:             endpoint,
		Token:                token,
		MaxReconnectAttempts: 5,
		MaxQueueSize:         32,
		AuthTimeout:          5 * time.Second,
		ReconnectBaseDelay:   1 * time.Second,
		ReconnectMaxDelay:    60 * time.Second,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         5 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig(c.Endpoint, c.Token)
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.MaxQueueSize == 0 {
		c.MaxQueueSize = def.MaxQueueSize
	}
	if c.AuthTimeout == 0 {
		c.AuthTimeout = def.AuthTimeout
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.Clock == nil {
		c.Clock = clock.System()
	}
}

func (c *Config) validate() error {
	if c.Endpoint == "" {
		return ErrEmptyEndpoint
	}
	if c.MaxReconnectAttempts < 0 {
		return errors.New("max_reconnect_attempts must be >= 0")
	}
	if c.MaxQueueSize < 1 {
		return errors.New("max_queue_size must be >= 1")
	}
	if c.ReconnectBaseDelay <= 0 || c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return errors.New("reconnect delays must satisfy 0 < base <= max")
	}
	return nil
}
