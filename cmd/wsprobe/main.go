// wsprobe connects to a session WebSocket endpoint, authenticates, and
// streams parsed frames to the console. Useful for verifying a server and
// watching reconnect behavior without running the full companion.
//
// Usage: go run ./cmd/wsprobe --url wss://game.example.com/ws --token $SESSIONLINK_TOKEN
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hexgrid/sessionlink/internal/connection"
	"github.com/hexgrid/sessionlink/internal/protocol"
	"github.com/hexgrid/sessionlink/internal/router"
)

func main() {
	wsURL := flag.String("url", "", "WebSocket endpoint")
	token := flag.String("token", os.Getenv("SESSIONLINK_TOKEN"), "session token")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	heartbeat := flag.Duration("heartbeat", 0, "ping interval (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if *wsURL == "" || *token == "" {
		logger.Error("both --url and --token are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	mgr, err := connection.NewManager(connection.DefaultConfig(*wsURL, *token), logger)
	if err != nil {
		logger.Error("failed to create connection manager", "error", err)
		os.Exit(1)
	}

	rt := router.New(router.DefaultConfig(), logger)
	defer rt.Close()

	var reconnects int
	events := mgr.Events()
	events.OnStateChange(func(s connection.State) {
		fmt.Printf("[STATE] %s\n", s)
	})
	events.OnReconnecting(func(delay time.Duration) {
		reconnects++
		fmt.Printf("[RECONNECT] attempt=%d delay=%s\n", reconnects, delay)
	})
	events.OnMaxReconnectReached(func() {
		fmt.Println("[GIVING UP] reconnect attempts exhausted")
		cancel()
	})
	events.OnAuthError(func(reason string) {
		fmt.Printf("[AUTH REJECTED] %s\n", reason)
		cancel()
	})
	events.OnPingTimeout(func() {
		fmt.Println("[PING TIMEOUT]")
	})
	events.OnError(func(info connection.ErrorInfo) {
		fmt.Printf("[ERROR] kind=%s err=%v\n", info.Kind, info.Err)
	})
	events.OnMessage(rt.Route)

	if *heartbeat > 0 {
		if err := mgr.EnableHeartbeat(*heartbeat, *heartbeat/3); err != nil {
			logger.Error("failed to enable heartbeat", "error", err)
			os.Exit(1)
		}
	}

	go printEntries(ctx, rt.Entries(), *verbose)
	go printPresence(ctx, rt.Presence())

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := rt.Stats()
				logger.Info("stats",
					"state", mgr.State().String(),
					"reconnects", reconnects,
					"queued", mgr.QueueLen(),
					"frames_received", stats.Received,
					"frames_routed", stats.Routed,
					"frames_unknown", stats.Unknown,
				)
			}
		}
	}()

	mgr.Connect()

	logger.Info("probe started - press Ctrl+C to stop")

	<-ctx.Done()

	logger.Info("shutting down...")
	mgr.Disconnect()
	logger.Info("shutdown complete", "reconnects", reconnects)
}

func printEntries(ctx context.Context, buf *router.GrowableBuffer[router.Entry], verbose bool) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			entry, ok := buf.TryReceive()
			if !ok {
				time.Sleep(10 * time.Millisecond)
				continue
			}

			if verbose {
				data, _ := json.MarshalIndent(json.RawMessage(entry.Body), "", "  ")
				fmt.Printf("[%s] %s\n", entry.Kind, data)
				continue
			}

			switch entry.Kind {
			case router.KindChat:
				var c protocol.Chat
				if json.Unmarshal(entry.Body, &c) == nil {
					fmt.Printf("[CHAT] from=%s text=%q\n", c.ParticipantID, c.Text)
				}
			case router.KindRoll:
				var r protocol.Roll
				if json.Unmarshal(entry.Body, &r) == nil {
					fmt.Printf("[ROLL] from=%s expr=%s result=%d\n", r.ParticipantID, r.Expr, r.Result)
				}
			case router.KindState:
				var s protocol.StateUpdate
				if json.Unmarshal(entry.Body, &s) == nil {
					fmt.Printf("[STATE UPDATE] key=%s value=%s\n", s.Key, s.Value)
				}
			}
		}
	}
}

func printPresence(ctx context.Context, buf *router.GrowableBuffer[router.PresenceEvent]) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			ev, ok := buf.TryReceive()
			if !ok {
				time.Sleep(10 * time.Millisecond)
				continue
			}

			verb := "left"
			if ev.Joined {
				verb = "joined"
			}
			fmt.Printf("[PRESENCE] %s %s name=%q role=%s\n", ev.ParticipantID, verb, ev.Name, ev.Role)
		}
	}
}
