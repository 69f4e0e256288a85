package main

import (
	"chat-relay/gateway"
	"chat-relay/presence"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	radix "github.com/mediocregopher/radix/v3"

	errs "chat-relay/errors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup always executes before
// the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. History backend
	history, cleanup, err := buildHistory(config, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if backlog, err := history.Load(ctx); err != nil {
		// The relay stays usable without a backlog
		log.Warn("History unavailable at startup, starting empty", "error", err)
	} else {
		log.Info("History hydrated", "backend", config.HistoryBackend, "messages", len(backlog))
	}

	// 4. Presence, hub, supervision
	registry := presence.NewRegistry()
	hub := runtime.NewHub(log, registry, history, config.BufferSize, config.PersistTimeout)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(hub)
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 5. WebSocket gateway & HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	gw := gateway.New(ctx, hub, registry, log, config.ConnectionBufferSize)
	server := &http.Server{Addr: address, Handler: gw.Handler()}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Chat relay listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

// buildHistory selects the retention backend. All three satisfy the same
// contract; only durability differs.
func buildHistory(config Config, log *slog.Logger) (repositories.HistoryStore, func(), error) {
	switch config.HistoryBackend {
	case BackendMemory:
		return repositories.NewVolatileHistory(config.MaxHistory), func() {}, nil

	case BackendRedis:
		pool, err := radix.NewPool("tcp", config.RedisAddr, 10)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting redis at %s: %w", config.RedisAddr, err)
		}
		history := repositories.NewSnapshotHistory(pool, config.RedisKey, config.MaxHistory)
		return history, func() {
			log.Info("Closing Redis pool...")
			_ = pool.Close()
		}, nil

	case BackendBadger:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		history, err := repositories.NewDurableHistory(db, log, config.MaxHistory, config.LoadLimit)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return history, func() {
			log.Info("Closing BadgerDB...")
			_ = history.Close()
			_ = db.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", errs.ErrUnknownBackend, config.HistoryBackend)
	}
}
