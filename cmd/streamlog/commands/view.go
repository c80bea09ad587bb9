// Package commands implements the streamlog CLI commands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/log"
)

// BuildFilter assembles a log.Filter from command-line flag values.
// Empty strings leave the corresponding criterion unset.
func BuildFilter(area, minLevel, connID, timeStart, timeEnd string) (log.Filter, error) {
	filter := log.Filter{
		Area:         area,
		ConnectionID: connID,
	}

	if minLevel != "" {
		level, err := parseLevel(minLevel)
		if err != nil {
			return log.Filter{}, err
		}
		filter.MinLevel = &level
	}

	if timeStart != "" {
		t, err := time.Parse(time.RFC3339, timeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start: %w", err)
		}
		filter.TimeStart = &t
	}

	if timeEnd != "" {
		t, err := time.Parse(time.RFC3339, timeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end: %w", err)
		}
		filter.TimeEnd = &t
	}

	return filter, nil
}

// parseLevel parses a level string (case-insensitive).
func parseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", s)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] LEVEL area message
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	if connID != "" {
		fmt.Fprintf(w, "%s [conn:%s] %-5s %-10s %s\n", ts, connID, event.Level, event.Area, event.Message)
	} else {
		fmt.Fprintf(w, "%s %-5s %-10s %s\n", ts, event.Level, event.Area, event.Message)
	}

	// Details in stable key order
	keys := make([]string, 0, len(event.Details))
	for key := range event.Details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "  %s: %s\n", key, formatDetail(event.Details[key]))
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatDetail renders a detail value for display.
func formatDetail(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

// RunView executes the view command.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}

	return nil
}
