// Command streaming-example demonstrates a streaming client with
// transport fallback.
//
// This example shows how to:
//   - Load client configuration from YAML
//   - Create a streaming connection with a transport preference
//   - Register data and state callbacks
//   - Apply the session context before start
//   - Capture client events to a log file for streamlog
//
// Usage:
//
//	go run ./cmd/streaming-example -config client.yaml
//
// The client will:
//  1. Probe the configured transports in order
//  2. Start the first viable one
//  3. Fall back automatically when the active transport fails
//  4. Exit when every transport has been tried
package main

import (
	"flag"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/config"
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/log"
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/connection"
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport"
)

func main() {
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	configPath := flag.String("config", "client.yaml", "Path to client configuration")
	capturePath := flag.String("capture", "", "Write client events to this capture file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	// Assemble the logger: stderr via slog, plus an optional capture file.
	loggers := []log.Logger{log.NewSlogAdapter(slog.Default())}
	if *capturePath != "" {
		fileLogger, err := log.NewFileLogger(*capturePath)
		if err != nil {
			stdlog.Fatalf("Failed to open capture file: %v", err)
		}
		defer fileLogger.Close()
		loggers = append(loggers, fileLogger)
	}
	logger := log.NewMultiLogger(loggers...)

	exhausted := make(chan struct{})
	conn := connection.NewConnection(cfg.BaseURL, connection.Options{
		TransportTypes: cfg.TransportTypes,
		StartOptions:   cfg.StartOptions,
		Logger:         logger,
	}, func() {
		close(exhausted)
	})

	conn.SetReceivedCallback(func(data []byte) {
		stdlog.Printf("Received %d bytes", len(data))
	})
	conn.SetStateChangedCallback(func(state transport.State) {
		stdlog.Printf("Transport state: %s", state)
	})
	conn.SetUnauthorizedCallback(func() {
		stdlog.Println("Session unauthorized, token refresh required")
	})
	conn.SetConnectionSlowCallback(func() {
		stdlog.Println("Connection slow")
	})

	if cfg.Auth.Token != "" {
		conn.UpdateQuery(cfg.Auth.Token, cfg.Auth.ContextID, cfg.Auth.Expiry, false)
	}

	conn.Start(func() {
		stdlog.Println("Streaming connection started")
	})

	// Wait for shutdown signal or transport exhaustion
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		stdlog.Println("Shutting down...")
		conn.Stop()
	case <-exhausted:
		stdlog.Println("All transports failed")
	}

	conn.Dispose()
}
