package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Frame type discriminators.
const (
	TypeAuth        = "auth"
	TypeAuthSuccess = "auth_success"
	TypeAuthError   = "auth_error"
	TypePing        = "ping"
	TypePong        = "pong"

	TypeChat              = "chat"
	TypeRoll              = "roll"
	TypeState             = "state"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
)

// Envelope is a decoded frame: the type discriminator plus the raw bytes of
// the whole frame, so typed payloads can be unmarshaled lazily.
type Envelope struct {
	Type string
	Raw  json.RawMessage
}

// Decode parses the envelope of a raw frame. The payload is not validated
// beyond being a JSON object with a "type" field.
func Decode(data []byte) (Envelope, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if head.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return Envelope{Type: head.Type, Raw: raw}, nil
}

// Payload unmarshals the full frame into v.
func (e Envelope) Payload(v any) error {
	return json.Unmarshal(e.Raw, v)
}

// Auth is the client's opening handshake frame.
type Auth struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// NewAuth builds an auth frame for the given token.
func NewAuth(token string) Auth {
	return Auth{Type: TypeAuth, Token: token}
}

// AuthSuccess carries the server-assigned session identity.
type AuthSuccess struct {
	Type          string `json:"type"`
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	SessionName   string `json:"session_name,omitempty"`
}

// AuthError reports a rejected handshake.
type AuthError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Ping is a liveness probe. IDs correlate pings with pongs.
type Ping struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewPing builds a ping frame with a fresh uuid.
func NewPing() Ping {
	return Ping{Type: TypePing, ID: uuid.NewString()}
}

// Pong answers a ping.
type Pong struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Chat is a narrative text message at the table.
type Chat struct {
	Type          string `json:"type"`
	EventID       string `json:"event_id,omitempty"`
	ParticipantID string `json:"participant_id,omitempty"`
	Text          string `json:"text"`
	TS            int64  `json:"ts,omitempty"`
}

// Roll is a dice roll result. The expression is opaque to this client; dice
// math happens server-side.
type Roll struct {
	Type          string `json:"type"`
	EventID       string `json:"event_id,omitempty"`
	ParticipantID string `json:"participant_id,omitempty"`
	Expr          string `json:"expr"`
	Result        int    `json:"result,omitempty"`
	TS            int64  `json:"ts,omitempty"`
}

// StateUpdate is a keyed game-state change (initiative order, HP, scene).
type StateUpdate struct {
	Type          string          `json:"type"`
	EventID       string          `json:"event_id,omitempty"`
	ParticipantID string          `json:"participant_id,omitempty"`
	Key           string          `json:"key"`
	Value         json.RawMessage `json:"value"`
	TS            int64           `json:"ts,omitempty"`
}

// ParticipantEvent announces a participant joining or leaving the session.
type ParticipantEvent struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role,omitempty"` // "dm" or "player"
}
