// Command companion maintains a resilient connection to a game session and
// keeps the local roster and transcript in sync. Lines read from stdin are
// sent to the table as chat messages.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hexgrid/sessionlink/internal/api"
	"github.com/hexgrid/sessionlink/internal/config"
	"github.com/hexgrid/sessionlink/internal/connection"
	"github.com/hexgrid/sessionlink/internal/database"
	"github.com/hexgrid/sessionlink/internal/protocol"
	"github.com/hexgrid/sessionlink/internal/roster"
	"github.com/hexgrid/sessionlink/internal/router"
	"github.com/hexgrid/sessionlink/internal/transcript"
	"github.com/hexgrid/sessionlink/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/companion.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting companion",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cancel, cfg, logger); err != nil {
		logger.Error("companion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("companion stopped")
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.CompanionConfig, logger *slog.Logger) error {
	// Resolve the invite code when no endpoint is configured directly.
	wsURL := cfg.Session.WSURL
	sessionName := ""
	if wsURL == "" {
		directory := api.NewClient(
			cfg.Directory.RestURL,
			cfg.Session.Token,
			api.WithLogger(logger),
			api.WithTimeout(cfg.Directory.Timeout),
			api.WithRetries(cfg.Directory.MaxRetries, time.Second),
		)

		info, err := directory.ResolveSession(ctx, cfg.Session.Code)
		if err != nil {
			return fmt.Errorf("resolve session: %w", err)
		}
		wsURL = info.WSURL
		sessionName = info.Name

		logger.Info("session resolved",
			"code", cfg.Session.Code,
			"session_id", info.ID,
			"name", info.Name,
		)
	}

	rt := router.New(router.Config{
		EntryBufferSize:    cfg.Transcript.EntryBufferSize,
		PresenceBufferSize: cfg.Transcript.PresenceBufferSize,
	}, logger)
	defer rt.Close()

	ros := roster.New(rt.Presence(), logger)
	ros.Start(ctx)
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := ros.Stop(stopCtx); err != nil {
			logger.Warn("roster stop", "error", err)
		}
	}()

	var writer *transcript.Writer
	if cfg.Transcript.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Transcript.Database.Host,
			"database", cfg.Transcript.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.Transcript.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		writer = transcript.NewWriter(transcript.Config{
			BatchSize:     cfg.Transcript.BatchSize,
			FlushInterval: cfg.Transcript.FlushInterval,
		}, rt.Entries(), pool, logger)

		if err := writer.Start(ctx); err != nil {
			return fmt.Errorf("start transcript writer: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := writer.Stop(stopCtx); err != nil {
				logger.Warn("transcript writer stop", "error", err)
			}
		}()
	}

	mgr, err := connection.NewManager(connection.Config{
		Endpoint:             wsURL,
		Token:                cfg.Session.Token,
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		MaxQueueSize:         cfg.Connection.MaxQueueSize,
		AuthTimeout:          cfg.Connection.AuthTimeout,
		ReconnectBaseDelay:   cfg.Connection.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Connection.ReconnectMaxDelay,
		HandshakeTimeout:     cfg.Connection.HandshakeTimeout,
		WriteTimeout:         cfg.Connection.WriteTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("create connection manager: %w", err)
	}

	events := mgr.Events()
	events.OnStateChange(func(s connection.State) {
		logger.Info("connection state", "state", s.String())
		if s == connection.StateConnected {
			sessionID, participantID := mgr.Session()
			logger.Info("joined session",
				"session_id", sessionID,
				"participant_id", participantID,
				"name", sessionName,
			)
			if writer != nil {
				writer.SetSession(sessionID)
			}
		}
	})
	events.OnReconnecting(func(delay time.Duration) {
		logger.Warn("connection lost, reconnecting", "delay", delay, "attempt", mgr.ReconnectAttempts())
	})
	events.OnMaxReconnectReached(func() {
		logger.Error("reconnect attempts exhausted, giving up")
		cancel()
	})
	events.OnAuthError(func(reason string) {
		logger.Error("session rejected the token", "reason", reason)
		cancel()
	})
	events.OnPingTimeout(func() {
		logger.Warn("heartbeat timed out")
	})
	events.OnError(func(info connection.ErrorInfo) {
		logger.Warn("connection error", "kind", info.Kind, "error", info.Err)
	})
	events.OnMessage(rt.Route)

	if cfg.Heartbeat.Enabled {
		if err := mgr.EnableHeartbeat(cfg.Heartbeat.Interval, cfg.Heartbeat.Timeout); err != nil {
			return fmt.Errorf("enable heartbeat: %w", err)
		}
	}

	mgr.Connect()
	defer mgr.Disconnect()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		readStdin(gctx, mgr, logger)
		return nil
	})

	logger.Info("companion running", "endpoint", wsURL)

	return g.Wait()
}

// readStdin forwards typed lines to the table as chat messages. Queued while
// disconnected, so notes typed during an outage still arrive after the
// reconnect.
func readStdin(ctx context.Context, mgr *connection.Manager, logger *slog.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			_, participantID := mgr.Session()
			err := mgr.Send(protocol.Chat{
				Type:          protocol.TypeChat,
				ParticipantID: participantID,
				Text:          text,
				TS:            time.Now().UnixMilli(),
			})
			if err != nil {
				logger.Warn("send chat", "error", err)
			}
		}
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
