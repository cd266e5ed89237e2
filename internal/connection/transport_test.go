package connection

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// collectHandler records transport callbacks.
type collectHandler struct {
	mu     sync.Mutex
	opened bool
	frames [][]byte
	closed bool
	err    error

	openCh  chan struct{}
	closeCh chan struct{}
}

func newCollectHandler() *collectHandler {
	return &collectHandler{
		openCh:  make(chan struct{}),
		closeCh: make(chan struct{}),
	}
}

func (h *collectHandler) HandleOpen() {
	h.mu.Lock()
	h.opened = true
	h.mu.Unlock()
	close(h.openCh)
}

func (h *collectHandler) HandleFrame(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	h.frames = append(h.frames, cp)
}

func (h *collectHandler) HandleClose(err error) {
	h.mu.Lock()
	h.closed = true
	h.err = err
	h.mu.Unlock()
	close(h.closeCh)
}

func (h *collectHandler) waitOpen(t *testing.T) {
	t.Helper()
	select {
	case <-h.openCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for open")
	}
}

func (h *collectHandler) waitClose(t *testing.T) {
	t.Helper()
	select {
	case <-h.closeCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for close")
	}
}

func TestWSTransport_OpenAndSend(t *testing.T) {
	var received []byte
	var mu sync.Mutex

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	factory := WebSocketFactory(5*time.Second, 5*time.Second, nil)
	tr := factory(wsURL(server))

	h := newCollectHandler()
	tr.Open(h)
	h.waitOpen(t)

	testMsg := []byte(`{"type":"chat","text":"hello"}`)
	if err := tr.Send(testMsg); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Wait for the server to read it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		got := received
		mu.Unlock()
		if got != nil || time.Now().After(deadline) {
			if string(got) != string(testMsg) {
				t.Errorf("server received %q, want %q", got, testMsg)
			}
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := tr.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestWSTransport_DeliversFrames(t *testing.T) {
	frames := []string{
		`{"type":"chat","text":"one"}`,
		`{"type":"chat","text":"two"}`,
	}

	done := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		<-done
	})
	defer server.Close()
	defer close(done)

	factory := WebSocketFactory(5*time.Second, 5*time.Second, nil)
	tr := factory(wsURL(server))

	h := newCollectHandler()
	tr.Open(h)
	h.waitOpen(t)

	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		n := len(h.frames)
		h.mu.Unlock()
		if n >= len(frames) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("received %d frames, want %d", n, len(frames))
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, want := range frames {
		if string(h.frames[i]) != want {
			t.Errorf("frames[%d] = %q, want %q", i, h.frames[i], want)
		}
	}

	tr.Close()
}

func TestWSTransport_DialFailureReportsClose(t *testing.T) {
	factory := WebSocketFactory(500*time.Millisecond, time.Second, nil)
	tr := factory("ws://127.0.0.1:1/nothing-listens-here")

	h := newCollectHandler()
	tr.Open(h)
	h.waitClose(t)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.opened {
		t.Error("HandleOpen fired for a failed dial")
	}
	if h.err == nil {
		t.Error("HandleClose err is nil for a failed dial")
	}
}

func TestWSTransport_ServerCloseReportsClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Close immediately after the handshake.
	})
	defer server.Close()

	factory := WebSocketFactory(5*time.Second, time.Second, nil)
	tr := factory(wsURL(server))

	h := newCollectHandler()
	tr.Open(h)
	h.waitOpen(t)
	h.waitClose(t)
}

func TestWSTransport_SendBeforeOpen(t *testing.T) {
	factory := WebSocketFactory(time.Second, time.Second, nil)
	tr := factory("ws://example.invalid/ws")

	if err := tr.Send([]byte("{}")); err == nil {
		t.Error("Send before open succeeded, want error")
	}
}

func TestWSTransport_CloseSuppressesCallbacks(t *testing.T) {
	block := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		<-block
	})
	defer server.Close()
	defer close(block)

	factory := WebSocketFactory(5*time.Second, time.Second, nil)
	tr := factory(wsURL(server))

	h := newCollectHandler()
	tr.Open(h)
	h.waitOpen(t)

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The read loop exits without a close callback for a local Close.
	time.Sleep(100 * time.Millisecond)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		t.Error("HandleClose fired after local Close")
	}
}
