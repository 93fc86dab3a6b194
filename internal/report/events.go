package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventLocate     EventType = "locate"
	EventLoad       EventType = "load"
	EventSkip       EventType = "skip"
	EventLookupMiss EventType = "lookup_miss"
	EventError      EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event of a load run
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Batch     string            `json:"batch,omitempty"`
	Path      string            `json:"path,omitempty"`
	Row       *int              `json:"row,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Rows      map[string]int    `json:"rows,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Generate filename with timestamp
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	// Filter by minimum level
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// Enabled reports whether events of the given level are written.
// Callers use it to skip building debug events nobody will read.
func (l *EventLogger) Enabled(level EventLevel) bool {
	if l == nil || l.file == nil {
		return false
	}
	return levelPriority[level] >= levelPriority[l.minLevel]
}

// LogLocate logs the outcome of locating a batch's files
func (l *EventLogger) LogLocate(batch, root string, files int, totalBytes int64) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventLocate,
		Batch: batch,
		Path:  root,
		Extra: map[string]string{
			"files":       fmt.Sprintf("%d", files),
			"total_bytes": fmt.Sprintf("%d", totalBytes),
		},
	})
}

// LogLoad logs one committed file with the number of rows written per table
func (l *EventLogger) LogLoad(batch, path string, rows map[string]int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventLoad,
		Batch:    batch,
		Path:     path,
		Rows:     rows,
		Duration: duration.Milliseconds(),
	})
}

// LogSkip logs rows of one file dropped by filtering
func (l *EventLogger) LogSkip(batch, path, reason string, count int) error {
	if count == 0 {
		return nil
	}
	return l.Log(&Event{
		Level:  LevelDebug,
		Event:  EventSkip,
		Batch:  batch,
		Path:   path,
		Reason: reason,
		Extra: map[string]string{
			"count": fmt.Sprintf("%d", count),
		},
	})
}

// LogLookupMiss logs a play event whose song could not be resolved
func (l *EventLogger) LogLookupMiss(path string, row int, title, artist string) error {
	return l.Log(&Event{
		Level: LevelDebug,
		Event: EventLookupMiss,
		Batch: "logs",
		Path:  path,
		Row:   &row,
		Extra: map[string]string{
			"song":   title,
			"artist": artist,
		},
	})
}

// LogError logs a failed file; its transaction was rolled back
func (l *EventLogger) LogError(batch, path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: EventError,
		Batch: batch,
		Path:  path,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
