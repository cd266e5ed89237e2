package connection

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hexgrid/sessionlink/internal/clock"
	"github.com/hexgrid/sessionlink/internal/protocol"
)

// eventKind identifies a state-machine input.
type eventKind int

const (
	evConnect eventKind = iota
	evDisconnect
	evTransportOpen
	evTransportClosed
	evFrame
	evAuthTimeout
	evBackoffElapsed
	evPingTimeout
)

// event is a state-machine input. gen ties transport and timer events to the
// connection attempt that produced them; stale events are dropped.
type event struct {
	kind  eventKind
	gen   uint64
	frame []byte
	err   error
}

// Manager orchestrates the connection lifecycle: transport, auth handshake,
// outbound queue, backoff, and heartbeat. It is the only component external
// collaborators talk to directly.
//
// Every input funnels through transition under one mutex, so the state
// machine processes events one at a time. Subscriber callbacks fire after the
// lock is released, in emission order.
type Manager struct {
	cfg     Config
	clock   clock.Clock
	dial    TransportFactory
	logger  *slog.Logger
	emitter *Emitter

	mu        sync.Mutex
	state     State
	attempts  int
	gen       uint64
	transport Transport
	queue     *Queue
	heartbeat *Monitor

	maxAttempts int
	policy      Policy
	authTimeout time.Duration

	// Heartbeat configuration; zero until EnableHeartbeat.
	hbInterval time.Duration
	hbTimeout  time.Duration

	authTimer    clock.Timer
	backoffTimer clock.Timer

	sessionID     string
	participantID string

	// Emissions collected during a transition, fired after unlock.
	emits []func()
}

// NewManager creates a Manager. Invalid configuration values are reported
// synchronously; every later failure surfaces through emitted events.
func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:         cfg,
		clock:       cfg.Clock,
		dial:        cfg.Dial,
		logger:      logger,
		emitter:     &Emitter{},
		state:       StateIdle,
		queue:       NewQueue(cfg.MaxQueueSize),
		maxAttempts: cfg.MaxReconnectAttempts,
		policy: Policy{
			BaseDelay: cfg.ReconnectBaseDelay,
			MaxDelay:  cfg.ReconnectMaxDelay,
		},
		authTimeout: cfg.AuthTimeout,
	}
	if m.dial == nil {
		m.dial = WebSocketFactory(cfg.HandshakeTimeout, cfg.WriteTimeout, logger)
	}
	return m, nil
}

// Events returns the emitter for subscribing to manager events. Subscribe
// before Connect to observe the full transition sequence.
func (m *Manager) Events() *Emitter {
	return m.emitter
}

// Connect starts a connection attempt. Idempotent: while a connection is
// being established or is up, repeated calls are no-ops. Returns immediately;
// the outcome arrives via events.
func (m *Manager) Connect() {
	m.run(func() {
		m.transition(event{kind: evConnect})
	})
}

// Disconnect tears everything down: cancels every pending timer, closes the
// active transport, resets the attempt counter, and guarantees no further
// automatic reconnection.
func (m *Manager) Disconnect() {
	m.run(func() {
		m.transition(event{kind: evDisconnect})
	})
}

// Send transmits a frame if connected, otherwise queues it for the next
// flush. Never blocks. Only a marshal failure is reported; delivery failures
// surface as transport events.
func (m *Manager) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	m.run(func() {
		if m.state == StateConnected && m.transport != nil {
			if err := m.transport.Send(data); err != nil {
				m.logger.Warn("send failed, queueing frame", "error", err)
				m.enqueue(data)
				m.queueEmit(func() { m.emitter.emitError(ErrorInfo{Kind: ErrorKindWrite, Err: err}) })
			}
			return
		}
		m.enqueue(data)
	})
	return nil
}

// IsConnected reports whether the handshake has completed and frames flow.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// IsReconnecting reports whether the manager is between an unexpected
// disconnect and the next attempt.
func (m *Manager) IsReconnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateDisconnected || m.state == StateReconnecting
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReconnectAttempts returns the current retry counter.
func (m *Manager) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// QueueLen returns the number of frames awaiting delivery.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// Session returns the server-assigned session and participant ids, empty
// until auth succeeds.
func (m *Manager) Session() (sessionID, participantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID, m.participantID
}

// SetMaxReconnectAttempts changes the retry budget, effective from the next
// failure.
func (m *Manager) SetMaxReconnectAttempts(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: max reconnect attempts %d", ErrInvalidValue, n)
	}
	m.run(func() { m.maxAttempts = n })
	return nil
}

// SetMaxQueueSize changes the outbound queue bound, evicting oldest entries
// if the queue currently exceeds it.
func (m *Manager) SetMaxQueueSize(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: max queue size %d", ErrInvalidValue, n)
	}
	m.run(func() { m.queue.SetMax(n) })
	return nil
}

// EnableHeartbeat turns on the ping/pong liveness probe. If currently
// connected, the heartbeat restarts with the new settings; otherwise it takes
// effect on the next successful auth.
func (m *Manager) EnableHeartbeat(interval, timeout time.Duration) error {
	if interval <= 0 || timeout <= 0 {
		return fmt.Errorf("%w: heartbeat interval %v timeout %v", ErrInvalidValue, interval, timeout)
	}
	m.run(func() {
		m.hbInterval = interval
		m.hbTimeout = timeout
		if m.state == StateConnected {
			m.stopHeartbeat()
			m.startHeartbeat()
		}
	})
	return nil
}

// run executes fn under the lock, then fires collected emissions after
// releasing it so subscribers may call back into the manager.
func (m *Manager) run(fn func()) {
	m.mu.Lock()
	fn()
	emits := m.emits
	m.emits = nil
	m.mu.Unlock()

	for _, emit := range emits {
		emit()
	}
}

func (m *Manager) queueEmit(fn func()) {
	m.emits = append(m.emits, fn)
}

// transition is the single state-machine entry point. Callers hold the lock.
func (m *Manager) transition(ev event) {
	// Transport and timer events are only valid for the attempt that
	// created them.
	switch ev.kind {
	case evTransportOpen, evTransportClosed, evFrame, evAuthTimeout, evBackoffElapsed, evPingTimeout:
		if ev.gen != m.gen {
			return
		}
	}

	switch ev.kind {
	case evConnect:
		m.handleConnect()
	case evDisconnect:
		m.handleDisconnect()
	case evTransportOpen:
		m.handleTransportOpen()
	case evTransportClosed:
		m.handleTransportClosed(ev.err)
	case evFrame:
		m.handleFrame(ev.frame)
	case evAuthTimeout:
		m.handleAuthTimeout()
	case evBackoffElapsed:
		m.handleBackoffElapsed()
	case evPingTimeout:
		m.handlePingTimeout()
	}
}

func (m *Manager) handleConnect() {
	switch m.state {
	case StateConnecting, StateAuthenticating, StateConnected, StateReconnecting:
		// Already in progress or up.
		return
	case StateDisconnected:
		// An automatic retry is pending; let it run.
		return
	}

	m.attempts = 0
	m.openTransport()
}

func (m *Manager) handleDisconnect() {
	m.stopAuthTimer()
	m.stopBackoffTimer()
	m.stopHeartbeat()

	// Invalidate in-flight callbacks from the dying transport and timers.
	m.gen++

	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}

	m.attempts = 0
	m.sessionID = ""
	m.participantID = ""

	if m.state != StateIdle {
		m.setState(StateIdle)
	}
}

func (m *Manager) openTransport() {
	m.gen++
	m.setState(StateConnecting)

	t := m.dial(m.cfg.Endpoint)
	m.transport = t
	t.Open(&attemptHandler{m: m, gen: m.gen})
}

func (m *Manager) handleTransportOpen() {
	if m.state != StateConnecting {
		return
	}
	m.setState(StateAuthenticating)

	data, err := json.Marshal(protocol.NewAuth(m.cfg.Token))
	if err == nil {
		err = m.transport.Send(data)
	}
	if err != nil {
		m.logger.Warn("auth send failed", "error", err)
		m.failConnection(err)
		return
	}

	gen := m.gen
	m.authTimer = m.clock.AfterFunc(m.authTimeout, func() {
		m.run(func() {
			m.transition(event{kind: evAuthTimeout, gen: gen})
		})
	})
}

func (m *Manager) handleTransportClosed(err error) {
	if err != nil {
		m.logger.Warn("transport closed", "state", m.state.String(), "error", err)
	}
	m.failConnection(err)
}

func (m *Manager) handleAuthTimeout() {
	if m.state != StateAuthenticating {
		return
	}
	m.logger.Warn("auth handshake timed out", "timeout", m.authTimeout)
	m.failConnection(ErrAuthTimeout)
}

func (m *Manager) handleBackoffElapsed() {
	if m.state != StateDisconnected {
		return
	}
	m.backoffTimer = nil
	m.attempts++
	m.setState(StateReconnecting)
	m.logger.Info("reconnecting", "attempt", m.attempts)
	m.openTransport()
}

func (m *Manager) handlePingTimeout() {
	if m.state != StateConnected {
		return
	}
	m.logger.Warn("heartbeat ping timed out")
	m.queueEmit(func() { m.emitter.emitPingTimeout() })
	m.failConnection(nil)
}

func (m *Manager) handleFrame(data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		// Recovered locally; the connection stays open.
		m.queueEmit(func() { m.emitter.emitError(ErrorInfo{Kind: ErrorKindParse, Err: err}) })
		return
	}

	switch env.Type {
	case protocol.TypeAuthSuccess:
		m.handleAuthSuccess(env)
	case protocol.TypeAuthError:
		m.handleAuthError(env)
	case protocol.TypePong:
		if m.heartbeat != nil {
			var pong protocol.Pong
			env.Payload(&pong)
			m.heartbeat.HandlePong(pong.ID)
		}
	default:
		m.queueEmit(func() { m.emitter.emitMessage(env) })
	}
}

func (m *Manager) handleAuthSuccess(env protocol.Envelope) {
	if m.state != StateAuthenticating {
		return
	}
	m.stopAuthTimer()

	var ok protocol.AuthSuccess
	env.Payload(&ok)
	m.sessionID = ok.SessionID
	m.participantID = ok.ParticipantID

	m.attempts = 0
	m.setState(StateConnected)
	m.logger.Info("authenticated",
		"session_id", m.sessionID,
		"participant_id", m.participantID,
	)

	m.flushQueue()
	m.startHeartbeat()
}

func (m *Manager) handleAuthError(env protocol.Envelope) {
	if m.state != StateAuthenticating {
		return
	}
	m.stopAuthTimer()

	var rejected protocol.AuthError
	env.Payload(&rejected)
	m.logger.Error("auth rejected", "reason", rejected.Error)

	// Terminal: a stale or invalid token will not self-correct by
	// retrying. The caller must supply a new token and Connect again.
	m.gen++
	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}

	m.queueEmit(func() { m.emitter.emitAuthError(rejected.Error) })
	m.setState(StateClosed)
}

// failConnection is the shared recovery path for transport errors, auth
// timeouts, and missed heartbeats.
func (m *Manager) failConnection(err error) {
	m.stopAuthTimer()
	m.stopHeartbeat()

	m.gen++
	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}

	if err != nil {
		m.queueEmit(func() { m.emitter.emitError(ErrorInfo{Kind: ErrorKindTransport, Err: err}) })
	}

	m.setState(StateDisconnected)
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	if m.attempts >= m.maxAttempts {
		m.logger.Error("reconnect attempts exhausted", "attempts", m.attempts)
		m.queueEmit(func() { m.emitter.emitMaxReconnectReached() })
		m.setState(StateClosed)
		return
	}

	delay := m.policy.Delay(m.attempts)
	m.logger.Info("scheduling reconnect", "attempt", m.attempts, "delay", delay)
	m.queueEmit(func() { m.emitter.emitReconnecting(delay) })

	gen := m.gen
	m.backoffTimer = m.clock.AfterFunc(delay, func() {
		m.run(func() {
			m.transition(event{kind: evBackoffElapsed, gen: gen})
		})
	})
}

// flushQueue drains queued frames in enqueue order. On a write failure the
// undelivered remainder is requeued and the transport close event drives
// recovery.
func (m *Manager) flushQueue() {
	msgs := m.queue.Flush()
	if len(msgs) == 0 {
		return
	}

	for i, qm := range msgs {
		if err := m.transport.Send(qm.Data); err != nil {
			m.logger.Warn("flush interrupted", "delivered", i, "pending", len(msgs)-i, "error", err)
			for _, rest := range msgs[i:] {
				m.queue.Enqueue(rest)
			}
			return
		}
	}
	m.logger.Debug("flushed queued frames", "count", len(msgs))
}

func (m *Manager) enqueue(data []byte) {
	evicted := m.queue.Enqueue(QueuedMessage{Data: data, EnqueuedAt: m.clock.Now()})
	if evicted {
		m.logger.Warn("outbound queue full, evicted oldest frame", "max", m.queue.max)
	}
}

func (m *Manager) startHeartbeat() {
	if m.hbInterval <= 0 {
		return
	}
	gen := m.gen
	m.heartbeat = NewMonitor(
		m.clock,
		m.hbInterval,
		m.hbTimeout,
		m.run,
		m.sendHeartbeatPing,
		func() {
			m.transition(event{kind: evPingTimeout, gen: gen})
		},
	)
	m.heartbeat.Start()
}

func (m *Manager) stopHeartbeat() {
	if m.heartbeat != nil {
		m.heartbeat.Stop()
		m.heartbeat = nil
	}
}

func (m *Manager) sendHeartbeatPing() (string, error) {
	if m.transport == nil {
		return "", ErrNotConnected
	}
	ping := protocol.NewPing()
	data, err := json.Marshal(ping)
	if err != nil {
		return "", err
	}
	if err := m.transport.Send(data); err != nil {
		return "", err
	}
	return ping.ID, nil
}

func (m *Manager) stopAuthTimer() {
	if m.authTimer != nil {
		m.authTimer.Stop()
		m.authTimer = nil
	}
}

func (m *Manager) stopBackoffTimer() {
	if m.backoffTimer != nil {
		m.backoffTimer.Stop()
		m.backoffTimer = nil
	}
}

func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	m.logger.Debug("state change", "from", m.state.String(), "to", s.String())
	m.state = s
	m.queueEmit(func() { m.emitter.emitStateChange(s) })
}

// attemptHandler routes transport callbacks from one connection attempt into
// the state machine.
type attemptHandler struct {
	m   *Manager
	gen uint64
}

func (h *attemptHandler) HandleOpen() {
	h.m.run(func() {
		h.m.transition(event{kind: evTransportOpen, gen: h.gen})
	})
}

func (h *attemptHandler) HandleFrame(data []byte) {
	h.m.run(func() {
		h.m.transition(event{kind: evFrame, gen: h.gen, frame: data})
	})
}

func (h *attemptHandler) HandleClose(err error) {
	h.m.run(func() {
		h.m.transition(event{kind: evTransportClosed, gen: h.gen, err: err})
	})
}
