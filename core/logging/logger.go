package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level declares supported logging levels ordered by verbosity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelWarn
	LevelError
	LevelSilent
)

// ParseLevel maps a config or flag value to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "notice":
		return LevelNotice
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "silent", "off":
		return LevelSilent
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelNotice:
		return "notice"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelSilent:
		return "silent"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Printer is the contract implemented by Logger.
type Printer interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Noticef(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	WithComponent(name string) Printer
}

type levelMeta struct {
	tag       string
	colorCode string
}

var metas = map[Level]levelMeta{
	LevelDebug:  {tag: " DEBUG", colorCode: "36"}, // Cyan
	LevelInfo:   {tag: "  INFO", colorCode: "32"}, // Green
	LevelNotice: {tag: "NOTICE", colorCode: "34"}, // Blue
	LevelWarn:   {tag: "  WARN", colorCode: "33"}, // Yellow
	LevelError:  {tag: " ERROR", colorCode: "31"}, // Red
}

// Option customises Logger.
type Option func(*sink)

// WithLevel configures the minimum emitted level.
func WithLevel(level Level) Option {
	return func(s *sink) {
		s.level = level
	}
}

// WithTimeFormat sets the timestamp format (empty disables timestamps).
func WithTimeFormat(layout string) Option {
	return func(s *sink) {
		s.timeFormat = layout
	}
}

// WithColored toggles ANSI colouring.
func WithColored(colored bool) Option {
	return func(s *sink) {
		s.colored = colored
	}
}

// WithWriter sends every level to w.
func WithWriter(w io.Writer) Option {
	return func(s *sink) {
		if w != nil {
			s.out = w
		}
	}
}

// sink is the state shared by a logger and its component clones.
type sink struct {
	mu          sync.Mutex
	level       Level
	timeFormat  string
	colored     bool
	out         io.Writer
	timeNowFunc func() time.Time
}

// Logger writes leveled, optionally coloured lines. Bundles go to stdout, so
// log output defaults to stderr.
type Logger struct {
	sink      *sink
	component string
}

// New instantiates a logger.
func New(opts ...Option) *Logger {
	s := &sink{
		level:       LevelInfo,
		timeFormat:  "15:04:05.000",
		colored:     true,
		out:         os.Stderr,
		timeNowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return &Logger{sink: s}
}

// SetLevel changes the minimum emitted level for the logger and all of its
// component clones.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// Level returns the minimum emitted level.
func (l *Logger) Level() Level {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

// WithComponent returns a logger tagging lines with name.
func (l *Logger) WithComponent(name string) Printer {
	if l == nil {
		return NewNop()
	}
	return &Logger{sink: l.sink, component: name}
}

// SetTimeNow overrides the clock (primarily for tests).
func (l *Logger) SetTimeNow(fn func() time.Time) {
	if fn == nil {
		return
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.timeNowFunc = fn
}

func (l *Logger) Debugf(format string, args ...any)  { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)   { l.logf(LevelInfo, format, args...) }
func (l *Logger) Noticef(format string, args ...any) { l.logf(LevelNotice, format, args...) }
func (l *Logger) Warnf(format string, args ...any)   { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any)  { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil {
		return
	}

	message := fmt.Sprintf(format, args...)
	message = strings.TrimRight(message, "\n")
	if message == "" {
		return
	}

	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level || s.level == LevelSilent {
		return
	}

	ts := ""
	if s.timeFormat != "" {
		ts = s.timeNowFunc().Format(s.timeFormat)
	}

	lines := splitLines(message)
	prefix := l.renderPrefix(metas[level], ts)
	connectors := renderConnectors(len(lines))

	for i, line := range lines {
		fmt.Fprintf(s.out, "%s%s%s\n", prefix, connectors[i], line)
	}
}

func (l *Logger) renderPrefix(meta levelMeta, timestamp string) string {
	builder := strings.Builder{}

	tag := meta.tag
	if l.sink.colored && meta.colorCode != "" {
		tag = fmt.Sprintf("\033[%sm%s\033[0m", meta.colorCode, meta.tag)
	}
	builder.WriteString(tag)
	builder.WriteByte(' ')

	if timestamp != "" {
		builder.WriteString(timestamp)
		builder.WriteByte(' ')
	}
	if l.component != "" {
		builder.WriteByte('[')
		builder.WriteString(l.component)
		builder.WriteString("] ")
	} else {
		builder.WriteString(" ")
	}
	return builder.String()
}

func splitLines(msg string) []string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

func renderConnectors(total int) []string {
	if total <= 1 {
		return []string{"   "}
	}
	connectors := make([]string, total)
	for i := 0; i < total; i++ {
		switch {
		case i == 0:
			connectors[i] = "┬── "
		case i == total-1:
			connectors[i] = "└── "
		default:
			connectors[i] = "├── "
		}
	}
	return connectors
}

// NopLogger discards every message.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)  {}
func (NopLogger) Infof(string, ...any)   {}
func (NopLogger) Noticef(string, ...any) {}
func (NopLogger) Warnf(string, ...any)   {}
func (NopLogger) Errorf(string, ...any)  {}
func (NopLogger) WithComponent(string) Printer {
	return NopLogger{}
}

// NewNop returns a logger that suppresses output.
func NewNop() Printer {
	return NopLogger{}
}
