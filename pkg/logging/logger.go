// Package logging writes structured JSONL events. The MCP entry point owns
// stdout for its transport, so log output goes to stderr by default.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Category represents the subsystem generating the log
type Category string

const (
	CategorySession Category = "session"
	CategoryCapture Category = "capture"
	CategoryFanout  Category = "fanout"
	CategoryNyra    Category = "nyra"
	CategoryAPI     Category = "api"
	CategoryMCP     Category = "mcp"
)

// Event represents a structured log event
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	EventType string         `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// Logger writes structured events to a single destination
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Level
}

// NewLogger creates a logger writing to stderr at info level.
func NewLogger() *Logger {
	return &Logger{out: os.Stderr, minLevel: LevelInfo}
}

// NewLoggerTo creates a logger writing to the given destination.
func NewLoggerTo(out io.Writer) *Logger {
	return &Logger{out: out, minLevel: LevelInfo}
}

// SetMinLevel sets the minimum log level
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// Log writes an event if it meets the minimum level
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if !l.shouldLog(event.Level) {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	_, err = l.out.Write(data)
	return err
}

func (l *Logger) shouldLog(level Level) bool {
	levels := map[Level]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
	}
	return levels[level] >= levels[l.minLevel]
}

// Debug logs a debug event
func (l *Logger) Debug(category Category, eventType, sessionID, message string, details map[string]any) {
	_ = l.Log(Event{Level: LevelDebug, Category: category, EventType: eventType, SessionID: sessionID, Message: message, Details: details})
}

// Info logs an info event
func (l *Logger) Info(category Category, eventType, sessionID, message string, details map[string]any) {
	_ = l.Log(Event{Level: LevelInfo, Category: category, EventType: eventType, SessionID: sessionID, Message: message, Details: details})
}

// Warn logs a warning event
func (l *Logger) Warn(category Category, eventType, sessionID, message string, details map[string]any) {
	_ = l.Log(Event{Level: LevelWarn, Category: category, EventType: eventType, SessionID: sessionID, Message: message, Details: details})
}

// Error logs an error event
func (l *Logger) Error(category Category, eventType, sessionID, message string, details map[string]any) {
	_ = l.Log(Event{Level: LevelError, Category: category, EventType: eventType, SessionID: sessionID, Message: message, Details: details})
}
