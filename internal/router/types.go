package router

import (
	"encoding/json"
	"time"
)

// Config holds router buffer sizes.
type Config struct {
	EntryBufferSize    int
	PresenceBufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		EntryBufferSize:    1000,
		PresenceBufferSize: 100,
	}
}

// Entry kinds.
const (
	KindChat  = "chat"
	KindRoll  = "roll"
	KindState = "state"
)

// Entry is a transcript-bound session event: one chat line, roll, or state
// update, normalized for persistence.
type Entry struct {
	EventID       string          // uuid; generated locally if the server sent none
	Kind          string          // chat, roll, or state
	ParticipantID string
	Body          json.RawMessage // the full original frame
	ReceivedAt    time.Time
}

// PresenceEvent is a participant joining or leaving, bound for the roster.
type PresenceEvent struct {
	Joined        bool
	ParticipantID string
	Name          string
	Role          string
}

// Stats contains router counters.
type Stats struct {
	Received       int64
	Routed         int64
	Unknown        int64
	EntryBuffer    BufferStats
	PresenceBuffer BufferStats
}
