package internal

import (
	"fmt"
	"sync"

	"github.com/YoungY620/mrequires/core/logging"
)

var (
	logger = logging.New(logging.WithLevel(logging.LevelInfo))

	// historyLog mirrors every log call into .mrequires/.history when set.
	historyLog *HistoryLogger
	historyMu  sync.Mutex
)

// SetLogLevel sets the process-wide level: error/notice/info/debug.
// Unknown values fall back to info.
func SetLogLevel(level string) {
	logger.SetLevel(logging.ParseLevel(level))
}

// Logger returns a component logger sharing the process-wide level.
func Logger(component string) logging.Printer {
	return logger.WithComponent(component)
}

// InitHistoryLogger opens the history file under stateDir for source.
// Failure is logged and history stays disabled.
func InitHistoryLogger(stateDir, source string) {
	h, err := NewHistoryLogger(stateDir, source)
	if err != nil {
		LogError("History disabled: %v", err)
		return
	}
	historyMu.Lock()
	historyLog = h
	historyMu.Unlock()
}

// CloseHistoryLogger closes the history file, if open.
func CloseHistoryLogger() {
	historyMu.Lock()
	h := historyLog
	historyLog = nil
	historyMu.Unlock()
	if h != nil {
		_ = h.Close()
	}
}

func history() *HistoryLogger {
	historyMu.Lock()
	defer historyMu.Unlock()
	return historyLog
}

func LogError(format string, v ...any) {
	logger.Errorf(format, v...)
	history().LogError(fmt.Sprintf(format, v...), nil)
}

func LogNotice(format string, v ...any) {
	logger.Noticef(format, v...)
	history().LogInfo(format, v...)
}

func LogInfo(format string, v ...any) {
	logger.Infof(format, v...)
	history().LogInfo(format, v...)
}

func LogDebug(format string, v ...any) {
	logger.Debugf(format, v...)
	history().LogDebug(format, v...)
}

// LogBuild records a finished build in the history file.
func LogBuild(b BuildRecord) {
	history().LogBuild(b)
}
