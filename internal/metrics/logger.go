// Package metrics provides JSONL event logging for completion analytics.
package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Result sources recorded on completion events.
const (
	SourceMerged    = "merged"    // next-token merge produced the list
	SourceRanked    = "ranked"    // guesser or relevance order, no merge
	SourcePrefilter = "prefilter" // suppressed before any tool ran
	SourceShortcut  = "shortcut"  // synthesized without the oracle
)

// CompletionEvent describes one finished completion request.
type CompletionEvent struct {
	RequestID  string
	File       string
	Source     string
	Candidates int
	Tokens     int
	LatencyMs  int64
	Superseded bool
}

// Logger writes metrics events to a JSONL file.
type Logger struct {
	file *os.File
	mu   sync.Mutex
}

// NewLogger creates a new metrics logger, creating the parent directory.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &Logger{file: file}, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	return l.file.Close()
}

func (l *Logger) log(event string, data map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := map[string]interface{}{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"event": event,
	}
	for k, v := range data {
		e[k] = v
	}

	line, _ := json.Marshal(e)
	l.file.Write(line)
	l.file.Write([]byte("\n"))
}

// LogCompletion logs a finished completion request.
func (l *Logger) LogCompletion(ev CompletionEvent) {
	l.log("completion", map[string]interface{}{
		"request_id": ev.RequestID,
		"file":       ev.File,
		"source":     ev.Source,
		"candidates": ev.Candidates,
		"tokens":     ev.Tokens,
		"latency_ms": ev.LatencyMs,
		"superseded": ev.Superseded,
	})
}

// LogFallback logs an enrichment stage that produced nothing and was skipped.
func (l *Logger) LogFallback(requestID, stage string) {
	l.log("fallback", map[string]interface{}{
		"request_id": requestID,
		"stage":      stage,
	})
}

// LogError logs an error event.
func (l *Logger) LogError(operation, message string) {
	l.log("error", map[string]interface{}{
		"operation": operation,
		"message":   message,
	})
}
