package log

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.clog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.clog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	event := Event{
		Timestamp:    time.Now(),
		Level:        LevelError,
		Area:         "connection",
		Message:      "transport failed",
		ConnectionID: "conn-123",
		Details: map[string]any{
			"url":    "https://gateway.example.com",
			"cursor": int64(1),
		},
	}

	logger.Log(event)
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	decoded, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	if decoded.ConnectionID != event.ConnectionID {
		t.Errorf("ConnectionID: got %q, want %q", decoded.ConnectionID, event.ConnectionID)
	}
	if decoded.Level != LevelError {
		t.Errorf("Level: got %v, want %v", decoded.Level, LevelError)
	}
	if decoded.Area != "connection" {
		t.Errorf("Area: got %q, want %q", decoded.Area, "connection")
	}
	if decoded.Details["url"] != "https://gateway.example.com" {
		t.Errorf("Details[url]: got %v", decoded.Details["url"])
	}

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after last event, got %v", err)
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.clog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Logging after close is silently ignored.
	logger.Log(Event{Level: LevelInfo, Area: "connection", Message: "dropped"})
}

func TestFilteredReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.clog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.Log(Event{Timestamp: time.Now(), Level: LevelDebug, Area: "fetch", Message: "request"})
	logger.Log(Event{Timestamp: time.Now(), Level: LevelWarn, Area: "connection", Message: "fallback"})
	logger.Log(Event{Timestamp: time.Now(), Level: LevelInfo, Area: "connection", Message: "started"})
	logger.Close()

	minLevel := LevelWarn
	reader, err := NewFilteredReader(path, Filter{Area: "connection", MinLevel: &minLevel})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	ev, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.Message != "fallback" {
		t.Errorf("Message = %q, want %q", ev.Message, "fallback")
	}

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
