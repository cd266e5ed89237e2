// Package router fans inbound session frames out to their consumers: chat,
// roll, and state frames become transcript entries; participant events feed
// the roster. Buffers decouple frame arrival from downstream work.
package router

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hexgrid/sessionlink/internal/protocol"
)

// Router routes decoded frames into typed buffers.
type Router struct {
	cfg    Config
	logger *slog.Logger

	entries  *GrowableBuffer[Entry]
	presence *GrowableBuffer[PresenceEvent]

	mu       sync.Mutex
	received int64
	routed   int64
	unknown  int64
}

// New creates a Router.
func New(cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		logger:   logger,
		entries:  NewGrowableBuffer[Entry](cfg.EntryBufferSize),
		presence: NewGrowableBuffer[PresenceEvent](cfg.PresenceBufferSize),
	}
}

// Entries returns the transcript-bound buffer.
func (r *Router) Entries() *GrowableBuffer[Entry] {
	return r.entries
}

// Presence returns the roster-bound buffer.
func (r *Router) Presence() *GrowableBuffer[PresenceEvent] {
	return r.presence
}

// Route classifies one inbound frame. Safe for concurrent use; intended as an
// OnMessage subscriber on the connection manager.
func (r *Router) Route(env protocol.Envelope) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	switch env.Type {
	case protocol.TypeChat, protocol.TypeRoll, protocol.TypeState:
		r.routeEntry(env)

	case protocol.TypeParticipantJoined, protocol.TypeParticipantLeft:
		var pe protocol.ParticipantEvent
		if err := env.Payload(&pe); err != nil {
			r.logger.Warn("failed to parse participant event", "error", err)
			return
		}
		r.presence.Send(PresenceEvent{
			Joined:        env.Type == protocol.TypeParticipantJoined,
			ParticipantID: pe.ParticipantID,
			Name:          pe.Name,
			Role:          pe.Role,
		})
		r.countRouted()

	default:
		r.mu.Lock()
		r.unknown++
		r.mu.Unlock()
		r.logger.Debug("unrouted frame", "type", env.Type)
	}
}

// Close closes the output buffers so consumers drain and exit.
func (r *Router) Close() {
	r.entries.Close()
	r.presence.Close()
}

// Stats returns router counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Received:       r.received,
		Routed:         r.routed,
		Unknown:        r.unknown,
		EntryBuffer:    r.entries.Stats(),
		PresenceBuffer: r.presence.Stats(),
	}
}

func (r *Router) routeEntry(env protocol.Envelope) {
	// All three entry kinds share the identity fields.
	var head struct {
		EventID       string `json:"event_id"`
		ParticipantID string `json:"participant_id"`
	}
	if err := env.Payload(&head); err != nil {
		r.logger.Warn("failed to parse entry frame", "type", env.Type, "error", err)
		return
	}

	eventID := head.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	r.entries.Send(Entry{
		EventID:       eventID,
		Kind:          env.Type,
		ParticipantID: head.ParticipantID,
		Body:          env.Raw,
		ReceivedAt:    time.Now(),
	})
	r.countRouted()
}

func (r *Router) countRouted() {
	r.mu.Lock()
	r.routed++
	r.mu.Unlock()
}
