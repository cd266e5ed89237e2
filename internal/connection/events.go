package connection

import (
	"sync"
	"time"

	"github.com/hexgrid/sessionlink/internal/protocol"
)

// Emitter is the typed publish/subscribe hub through which the Manager
// reports everything observable. Multiple subscribers may register per
// channel; emission order matches subscription order. Delivery is in-memory
// only and synchronous on the emitting goroutine, so callbacks should return
// quickly.
type Emitter struct {
	mu                  sync.Mutex
	stateChange         []func(State)
	reconnecting        []func(time.Duration)
	maxReconnectReached []func()
	authError           []func(string)
	errs                []func(ErrorInfo)
	message             []func(protocol.Envelope)
	pingTimeout         []func()
}

// OnStateChange registers a callback fired on every state transition.
func (e *Emitter) OnStateChange(fn func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateChange = append(e.stateChange, fn)
}

// OnReconnecting registers a callback fired when a reconnect is scheduled,
// with the computed backoff delay.
func (e *Emitter) OnReconnecting(fn func(delay time.Duration)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reconnecting = append(e.reconnecting, fn)
}

// OnMaxReconnectReached registers a callback fired when the retry budget is
// exhausted.
func (e *Emitter) OnMaxReconnectReached(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxReconnectReached = append(e.maxReconnectReached, fn)
}

// OnAuthError registers a callback fired when the handshake is rejected.
func (e *Emitter) OnAuthError(fn func(reason string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.authError = append(e.authError, fn)
}

// OnError registers a callback for recovered errors (parse failures,
// transport errors).
func (e *Emitter) OnError(fn func(ErrorInfo)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, fn)
}

// OnMessage registers a callback for inbound application frames.
func (e *Emitter) OnMessage(fn func(protocol.Envelope)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.message = append(e.message, fn)
}

// OnPingTimeout registers a callback fired when a heartbeat ping goes
// unanswered.
func (e *Emitter) OnPingTimeout(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pingTimeout = append(e.pingTimeout, fn)
}

func (e *Emitter) emitStateChange(s State) {
	for _, fn := range snapshot(&e.mu, &e.stateChange) {
		fn(s)
	}
}

func (e *Emitter) emitReconnecting(delay time.Duration) {
	for _, fn := range snapshot(&e.mu, &e.reconnecting) {
		fn(delay)
	}
}

func (e *Emitter) emitMaxReconnectReached() {
	for _, fn := range snapshot(&e.mu, &e.maxReconnectReached) {
		fn()
	}
}

func (e *Emitter) emitAuthError(reason string) {
	for _, fn := range snapshot(&e.mu, &e.authError) {
		fn(reason)
	}
}

func (e *Emitter) emitError(info ErrorInfo) {
	for _, fn := range snapshot(&e.mu, &e.errs) {
		fn(info)
	}
}

func (e *Emitter) emitMessage(env protocol.Envelope) {
	for _, fn := range snapshot(&e.mu, &e.message) {
		fn(env)
	}
}

func (e *Emitter) emitPingTimeout() {
	for _, fn := range snapshot(&e.mu, &e.pingTimeout) {
		fn()
	}
}

// snapshot copies a callback slice under the lock so emission happens outside
// it and callbacks may register further subscribers.
func snapshot[T any](mu *sync.Mutex, fns *[]T) []T {
	mu.Lock()
	defer mu.Unlock()
	out := make([]T, len(*fns))
	copy(out, *fns)
	return out
}
