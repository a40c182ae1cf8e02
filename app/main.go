package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/htooayelwinict/MI-3/app/api"
	"github.com/htooayelwinict/MI-3/app/bus"
	"github.com/htooayelwinict/MI-3/app/cfg"
	"github.com/htooayelwinict/MI-3/app/poller"
	"github.com/htooayelwinict/MI-3/app/socket"
	"github.com/htooayelwinict/MI-3/app/sources"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration from environment variables and command-line flags
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	log.Printf("Starting MI-3 server (version %s)...", appCfg.Version)

	// Load source inventory
	log.Printf("Loading sources from %s...", appCfg.SourcesFile)
	srcs, err := sources.Load(appCfg.SourcesFile)
	if err != nil {
		log.Fatal("Failed to load sources: ", err)
	}
	log.Printf("Loaded %d feeds and %d websocket sources", len(srcs.Feeds), len(srcs.WebSockets))

	// The bus is the spine: every ingestion path publishes into it and
	// every distribution path reads from it.
	eventBus := bus.New(bus.Options{
		ChannelCapacity: appCfg.ChannelCapacity,
		DedupCapacity:   appCfg.DedupCapacity,
	})

	// Start the adaptive feed poller
	feedPoller := poller.New(eventBus, srcs.Feeds, poller.Options{
		Baseline:  time.Duration(appCfg.PollBaselineSeconds) * time.Second,
		Min:       time.Duration(appCfg.PollMinSeconds) * time.Second,
		Max:       time.Duration(appCfg.PollMaxSeconds) * time.Second,
		UserAgent: appCfg.UserAgent,
	})
	feedPoller.Start()
	defer feedPoller.Stop()

	// Start websocket adapters
	socketManager := socket.NewManager(srcs.WebSockets, eventBus)
	socketManager.Start()
	defer socketManager.Stop()

	// Initialize HTTP server
	log.Println("Initializing HTTP server...")
	apiHandler := api.NewHandler(eventBus, feedPoller, socketManager,
		appCfg.WebhookSecret, appCfg.PushRateLimit, appCfg.PushRateBurst)
	server := api.NewServer(apiHandler, appCfg.Version)

	// Create HTTP server with timeouts. WriteTimeout stays unset so /stream
	// connections can outlive any fixed deadline.
	httpServer := &http.Server{
		Addr:        ":" + appCfg.Port,
		Handler:     server,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start HTTP server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %s", appCfg.Port)
		log.Printf("Endpoints available:")
		log.Printf("  Items:         http://localhost:%s/items", appCfg.Port)
		log.Printf("  Stream:        http://localhost:%s/stream", appCfg.Port)
		log.Printf("  Push inbound:  http://localhost:%s/push/inbound (POST)", appCfg.Port)
		log.Printf("  Health check:  http://localhost:%s/health", appCfg.Port)
		log.Printf("  Statistics:    http://localhost:%s/stats", appCfg.Port)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("MI-3 server started successfully!")
	log.Println("Press Ctrl+C to shutdown gracefully...")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown
	log.Println("Shutting down server gracefully...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	// Poller and websocket adapters are stopped via defer
	log.Println("MI-3 server shutdown complete")
}
