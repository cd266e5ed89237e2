package connection

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Handler receives transport lifecycle callbacks. HandleClose is called at
// most once, for both dial failures and mid-stream disconnects.
type Handler interface {
	HandleOpen()
	HandleFrame(data []byte)
	HandleClose(err error)
}

// Transport is a single full-duplex socket connection. Open must not invoke
// the handler synchronously; callbacks arrive from the transport's own
// goroutines after Open returns.
type Transport interface {
	// Open initiates the dial and starts delivering callbacks to h.
	Open(h Handler)

	// Send writes one raw frame. Safe to call from multiple goroutines.
	Send(data []byte) error

	// Close tears the connection down. The handler receives no open or
	// frame callbacks afterward.
	Close() error
}

// TransportFactory creates a fresh transport for a connection attempt.
type TransportFactory func(endpoint string) Transport

// WebSocketFactory returns a TransportFactory producing gorilla/websocket
// transports with the given timeouts.
func WebSocketFactory(handshakeTimeout, writeTimeout time.Duration, logger *slog.Logger) TransportFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(endpoint string) Transport {
		return &wsTransport{
			url:              endpoint,
			handshakeTimeout: handshakeTimeout,
			writeTimeout:     writeTimeout,
			logger:           logger,
		}
	}
}

// wsTransport wraps one gorilla/websocket connection.
type wsTransport struct {
	url              string
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	logger           *slog.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Open dials in the background and runs the read loop until the connection
// dies.
func (t *wsTransport) Open(h Handler) {
	go t.run(h)
}

func (t *wsTransport) run(h Handler) {
	dialer := websocket.Dialer{
		HandshakeTimeout: t.handshakeTimeout,
	}

	header := http.Header{}
	header.Set("Accept", "application/json")

	conn, _, err := dialer.Dial(t.url, header)
	if err != nil {
		h.HandleClose(err)
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.mu.Unlock()

	t.logger.Debug("websocket connected", "url", t.url)
	h.HandleOpen()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				h.HandleClose(err)
			}
			return
		}
		h.HandleFrame(data)
	}
}

// Send writes one text frame with a write deadline.
func (t *wsTransport) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()

	if conn == nil || closed {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and tears down the connection. Idempotent.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}
