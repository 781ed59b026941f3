package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HistoryLogger appends JSONL events to .mrequires/.history for debugging
type HistoryLogger struct {
	file   *os.File
	mu     sync.Mutex
	seqNum int64
	source string
	run    string
}

// HistoryEntry represents a single log entry
type HistoryEntry struct {
	Seq       int64    `json:"seq"`
	Timestamp string   `json:"ts"`
	Source    string   `json:"src"`  // "build", "watch" or "serve"
	Run       string   `json:"run"`  // one id per process, shared by its entries
	Type      string   `json:"type"` // "build", "error", "info", "debug"
	Entry     string   `json:"entry,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	Files     []string `json:"files,omitempty"`
	Error     any      `json:"error,omitempty"`
	Duration  string   `json:"duration,omitempty"`
	Message   string   `json:"msg,omitempty"`
}

// BuildRecord describes one finished Concat run.
type BuildRecord struct {
	Entry    string
	Mode     string
	Files    []string
	Duration time.Duration
	Err      error
}

// NewHistoryLogger creates a new history logger with given source
func NewHistoryLogger(stateDir, source string) (*HistoryLogger, error) {
	historyPath := filepath.Join(stateDir, ".history")
	f, err := os.OpenFile(historyPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	return &HistoryLogger{file: f, source: source, run: uuid.NewString()}, nil
}

// RunID identifies the entries written by this logger.
func (h *HistoryLogger) RunID() string {
	if h == nil {
		return ""
	}
	return h.run
}

// Log writes an entry to the history file
func (h *HistoryLogger) Log(entry HistoryEntry) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return
	}

	h.seqNum++
	entry.Seq = h.seqNum
	entry.Timestamp = time.Now().Format(time.RFC3339Nano)
	entry.Source = h.source
	entry.Run = h.run

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = h.file.Write(append(data, '\n'))
}

// LogError logs an error
func (h *HistoryLogger) LogError(message string, err error) {
	entry := HistoryEntry{Type: "error", Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	h.Log(entry)
}

// LogInfo logs an informational message
func (h *HistoryLogger) LogInfo(format string, v ...any) {
	h.Log(HistoryEntry{Type: "info", Message: sprintf(format, v...)})
}

// LogDebug logs a debug message
func (h *HistoryLogger) LogDebug(format string, v ...any) {
	h.Log(HistoryEntry{Type: "debug", Message: sprintf(format, v...)})
}

// LogBuild logs the outcome of a build.
func (h *HistoryLogger) LogBuild(b BuildRecord) {
	entry := HistoryEntry{
		Type:     "build",
		Entry:    b.Entry,
		Mode:     b.Mode,
		Files:    b.Files,
		Duration: b.Duration.String(),
	}
	if b.Err != nil {
		entry.Error = b.Err.Error()
	}
	h.Log(entry)
}

// Close closes the history file
func (h *HistoryLogger) Close() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	return err
}

func sprintf(format string, v ...any) string {
	if len(v) == 0 {
		return format
	}
	return fmt.Sprintf(format, v...)
}
