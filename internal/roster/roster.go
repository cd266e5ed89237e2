// Package roster tracks which participants are present at the table. It
// consumes presence events from the router and keeps an in-memory registry
// that survives reconnects: a participant stays listed until a leave event
// arrives for them.
package roster

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hexgrid/sessionlink/internal/router"
)

// Participant is one member of the session.
type Participant struct {
	ID       string
	Name     string
	Role     string // "dm" or "player"
	JoinedAt time.Time
}

// Change describes a roster update.
type Change struct {
	Joined      bool
	Participant Participant
}

// Roster is the participant registry.
type Roster struct {
	source *router.GrowableBuffer[router.PresenceEvent]
	logger *slog.Logger

	mu           sync.RWMutex
	participants map[string]Participant

	changes chan Change

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Roster fed by the given presence buffer.
func New(source *router.GrowableBuffer[router.PresenceEvent], logger *slog.Logger) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Roster{
		source:       source,
		logger:       logger,
		participants: make(map[string]Participant),
		changes:      make(chan Change, 64),
	}
}

// Start begins consuming presence events in the background.
func (r *Roster) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.consumeLoop(ctx)
	}()

	r.logger.Info("roster started")
}

// Stop shuts the roster down, waiting for the consume loop to exit.
func (r *Roster) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("roster stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Participants returns a snapshot of everyone currently present.
func (r *Roster) Participants() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	return out
}

// Get returns a participant by id.
func (r *Roster) Get(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	return p, ok
}

// Count returns the number of participants present.
func (r *Roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// SubscribeChanges returns a channel of roster updates. Events are dropped
// if the subscriber falls behind.
func (r *Roster) SubscribeChanges() <-chan Change {
	return r.changes
}

func (r *Roster) consumeLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		ev, ok := r.source.TryReceive()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		r.apply(ev)
	}
}

func (r *Roster) apply(ev router.PresenceEvent) {
	if ev.ParticipantID == "" {
		r.logger.Warn("presence event without participant id")
		return
	}

	r.mu.Lock()
	var change Change
	if ev.Joined {
		p := Participant{
			ID:       ev.ParticipantID,
			Name:     ev.Name,
			Role:     ev.Role,
			JoinedAt: time.Now(),
		}
		if prev, ok := r.participants[ev.ParticipantID]; ok {
			// Rejoin: keep the original join time, refresh name and role.
			p.JoinedAt = prev.JoinedAt
		}
		r.participants[ev.ParticipantID] = p
		change = Change{Joined: true, Participant: p}
	} else {
		p, ok := r.participants[ev.ParticipantID]
		if !ok {
			r.mu.Unlock()
			r.logger.Debug("leave event for unknown participant", "participant_id", ev.ParticipantID)
			return
		}
		delete(r.participants, ev.ParticipantID)
		change = Change{Joined: false, Participant: p}
	}
	r.mu.Unlock()

	r.logger.Info("roster updated",
		"participant_id", change.Participant.ID,
		"joined", change.Joined,
		"count", r.Count(),
	)

	select {
	case r.changes <- change:
	default:
		r.logger.Warn("roster change subscriber lagging, dropping event")
	}
}
