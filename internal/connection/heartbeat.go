package connection

import (
	"time"

	"github.com/hexgrid/sessionlink/internal/clock"
)

// Monitor drives the ping/pong heartbeat while a connection is up. At most
// one ping is in flight: the next one is scheduled only after the pong for
// the previous one arrived.
//
// Monitor state is not self-locking. Start, Stop, and HandlePong must be
// called with the owner's lock held; timer callbacks re-enter through gate,
// which the owner uses to take that same lock.
type Monitor struct {
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration

	// gate serializes timer callbacks with the owner's state.
	gate func(fn func())

	// sendPing transmits a ping frame and returns its id.
	sendPing func() (string, error)

	// onTimeout reports a missed pong; the owner treats the connection as
	// dead.
	onTimeout func()

	running       bool
	pendingPing   string
	lastPong      time.Time
	intervalTimer clock.Timer
	timeoutTimer  clock.Timer
}

// NewMonitor creates a heartbeat monitor. It does nothing until Start.
func NewMonitor(clk clock.Clock, interval, timeout time.Duration, gate func(func()), sendPing func() (string, error), onTimeout func()) *Monitor {
	return &Monitor{
		clock:     clk,
		interval:  interval,
		timeout:   timeout,
		gate:      gate,
		sendPing:  sendPing,
		onTimeout: onTimeout,
	}
}

// Start schedules the first ping one interval from now.
func (m *Monitor) Start() {
	m.running = true
	m.pendingPing = ""
	m.scheduleNext()
}

// Stop cancels all heartbeat timers. No callbacks fire afterward.
func (m *Monitor) Stop() {
	m.running = false
	m.pendingPing = ""
	if m.intervalTimer != nil {
		m.intervalTimer.Stop()
		m.intervalTimer = nil
	}
	if m.timeoutTimer != nil {
		m.timeoutTimer.Stop()
		m.timeoutTimer = nil
	}
}

// HandlePong resolves the in-flight ping. Pongs with a mismatched id are
// ignored.
func (m *Monitor) HandlePong(id string) {
	if !m.running || m.pendingPing == "" {
		return
	}
	if id != "" && id != m.pendingPing {
		return
	}

	m.pendingPing = ""
	m.lastPong = m.clock.Now()
	if m.timeoutTimer != nil {
		m.timeoutTimer.Stop()
		m.timeoutTimer = nil
	}
	m.scheduleNext()
}

// LastPong returns the arrival time of the most recent pong, zero if none.
func (m *Monitor) LastPong() time.Time {
	return m.lastPong
}

func (m *Monitor) scheduleNext() {
	m.intervalTimer = m.clock.AfterFunc(m.interval, func() {
		m.gate(m.tick)
	})
}

// tick sends a ping and arms its timeout. A failed send still arms the
// timeout: the missing pong tears the connection down if the transport close
// does not arrive first.
func (m *Monitor) tick() {
	if !m.running {
		return
	}
	m.intervalTimer = nil

	id, err := m.sendPing()
	m.pendingPing = id
	if err != nil {
		m.pendingPing = "?" // nothing will answer; let the timeout fire
	}

	m.timeoutTimer = m.clock.AfterFunc(m.timeout, func() {
		m.gate(m.expire)
	})
}

func (m *Monitor) expire() {
	if !m.running || m.pendingPing == "" {
		return
	}
	m.timeoutTimer = nil
	m.onTimeout()
}
