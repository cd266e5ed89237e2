package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/hexgrid/sessionlink/internal/router"
)

func TestWriter_Transform(t *testing.T) {
	receivedAt := time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)
	entry := router.Entry{
		EventID:       "evt-1",
		Kind:          router.KindRoll,
		ParticipantID: "p1",
		Body:          []byte(`{"type":"roll","expr":"2d6","result":9}`),
		ReceivedAt:    receivedAt,
	}

	row := transform(entry, "sess-42")

	if row.EventID != "evt-1" {
		t.Errorf("EventID = %s, want evt-1", row.EventID)
	}
	if row.SessionID != "sess-42" {
		t.Errorf("SessionID = %s, want sess-42", row.SessionID)
	}
	if row.Kind != router.KindRoll {
		t.Errorf("Kind = %s, want %s", row.Kind, router.KindRoll)
	}
	if row.ParticipantID != "p1" {
		t.Errorf("ParticipantID = %s, want p1", row.ParticipantID)
	}
	if string(row.Body) != `{"type":"roll","expr":"2d6","result":9}` {
		t.Errorf("Body = %s", row.Body)
	}
	if row.ReceivedAt != receivedAt.UnixMicro() {
		t.Errorf("ReceivedAt = %d, want %d", row.ReceivedAt, receivedAt.UnixMicro())
	}
}

func TestWriter_Lifecycle(t *testing.T) {
	cfg := Config{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	}
	input := router.NewGrowableBuffer[router.Entry](10)

	w := NewWriter(cfg, input, nil, nil)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_HandleEntry_AddsToBatch(t *testing.T) {
	cfg := Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}
	input := router.NewGrowableBuffer[router.Entry](10)
	w := NewWriter(cfg, input, nil, nil)
	w.SetSession("sess-1")

	w.handleEntry(router.Entry{
		EventID:    "evt-1",
		Kind:       router.KindChat,
		Body:       []byte(`{"type":"chat","text":"hi"}`),
		ReceivedAt: time.Now(),
	})

	w.batchMu.Lock()
	batchLen := len(w.batch)
	w.batchMu.Unlock()

	if batchLen != 1 {
		t.Errorf("batch length = %d, want 1", batchLen)
	}
}

func TestWriter_HandleEntry_DroppedWithoutSession(t *testing.T) {
	cfg := DefaultConfig()
	input := router.NewGrowableBuffer[router.Entry](10)
	w := NewWriter(cfg, input, nil, nil)

	w.handleEntry(router.Entry{
		EventID:    "evt-1",
		Kind:       router.KindChat,
		ReceivedAt: time.Now(),
	})

	w.batchMu.Lock()
	batchLen := len(w.batch)
	dropped := w.metrics.Dropped
	w.batchMu.Unlock()

	if batchLen != 0 {
		t.Errorf("batch length = %d, want 0", batchLen)
	}
	if dropped != 1 {
		t.Errorf("Dropped = %d, want 1", dropped)
	}
}

func TestWriter_SetSessionStampsRows(t *testing.T) {
	cfg := Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}
	input := router.NewGrowableBuffer[router.Entry](10)
	w := NewWriter(cfg, input, nil, nil)

	w.SetSession("sess-a")
	w.handleEntry(router.Entry{EventID: "e1", Kind: router.KindChat, ReceivedAt: time.Now()})

	// Re-auth after a reconnect can hand out a new session id.
	w.SetSession("sess-b")
	w.handleEntry(router.Entry{EventID: "e2", Kind: router.KindChat, ReceivedAt: time.Now()})

	w.batchMu.Lock()
	defer w.batchMu.Unlock()

	if len(w.batch) != 2 {
		t.Fatalf("batch length = %d, want 2", len(w.batch))
	}
	if w.batch[0].SessionID != "sess-a" {
		t.Errorf("batch[0].SessionID = %s, want sess-a", w.batch[0].SessionID)
	}
	if w.batch[1].SessionID != "sess-b" {
		t.Errorf("batch[1].SessionID = %s, want sess-b", w.batch[1].SessionID)
	}
}

func TestWriter_Stats(t *testing.T) {
	cfg := DefaultConfig()
	input := router.NewGrowableBuffer[router.Entry](10)
	w := NewWriter(cfg, input, nil, nil)

	stats := w.Stats()

	if stats.Inserts != 0 {
		t.Errorf("initial Inserts = %d, want 0", stats.Inserts)
	}
	if stats.Errors != 0 {
		t.Errorf("initial Errors = %d, want 0", stats.Errors)
	}
	if stats.Flushes != 0 {
		t.Errorf("initial Flushes = %d, want 0", stats.Flushes)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.BatchSize)
	}
	if cfg.FlushInterval != 2*time.Second {
		t.Errorf("FlushInterval = %v, want 2s", cfg.FlushInterval)
	}
}
