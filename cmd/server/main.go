package main

import (
	"chat-core/internal"
	"chat-core/moderation"
	"chat-core/observability"
	"chat-core/runtime"
	"chat-core/runtime/workers"
	"chat-core/transport/ws"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const shutdownGracePeriod = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP servers and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	rooms := splitRooms(config.Rooms)
	if len(rooms) == 0 {
		return fmt.Errorf("at least one room is required, got ROOMS=%q", config.Rooms)
	}

	// 2. Optional content moderation
	var filter runtime.ContentFilter
	if config.ModerationEnabled {
		words, err := moderation.LoadWordlists()
		if err != nil {
			return fmt.Errorf("wordlist loading failed: %w", err)
		}
		moderator, err := moderation.NewModerator(words, config.ModerationCharReplacement)
		if err != nil {
			return fmt.Errorf("moderator build failed: %w", err)
		}
		filter = moderator
		log.Info("Moderation enabled", "languages", len(words))
	}

	// 3. Setup supervision & the coordination core
	sup := workers.NewSupervisor(log)
	registry := runtime.NewRegistry()
	stats := observability.NewStats(nil)
	dispatcher := runtime.NewDispatcher(log, registry, rooms,
		config.RoomHistoryLimit, config.DMHistoryLimit, filter, stats)
	engine := runtime.NewEngine(log, dispatcher, registry, sup, stats,
		config.BufferSize, config.SinkTimeout, config.ReportInterval)

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the engine
	go engine.Start(ctx)

	// 6. HTTP servers: WebSocket endpoint + operational surface
	wsServer := ws.NewServer(log, engine, config.ConnectionBufferSize, config.MaxMessageSize)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           wsServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	healthServer := internal.NewHealthServer(log, config.HealthPort, stats, dispatcher.ScopeStats)

	// Use an error channel to capture ListenAndServe issues
	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting WebSocket server", "address", httpServer.Addr, "rooms", rooms, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()
	go func() {
		log.Info("Starting health server", "address", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("health server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = healthServer.Shutdown(shutdownCtx)
	engine.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

// splitRooms parses the comma-separated room list, dropping empty entries.
func splitRooms(raw string) []string {
	var rooms []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			rooms = append(rooms, name)
		}
	}
	return rooms
}
