// Package logger provides component-tagged structured logging on top of log/slog.
//
// Every record carries a component name ("vk", "telegram", "intent", ...) and an
// optional field map. Hooks registered with AddHook observe records at or above
// their minimum level; the gateway uses one to forward warnings to an admin chat.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Entry is a single log record as seen by hooks.
type Entry struct {
	Time      time.Time
	Level     LogLevel
	Component string
	Message   string
	Fields    map[string]any
}

// Hook receives entries synchronously on the logging goroutine and must not block.
type Hook func(Entry)

type hookEntry struct {
	id    int
	level LogLevel
	fn    Hook
}

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	base   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	hooks  []hookEntry
	nextID int
)

// Configure replaces the output handler. Format is "text" (default) or "json".
func Configure(format string, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}

	mu.Lock()
	base = slog.New(h)
	mu.Unlock()
	return nil
}

func SetLevel(l LogLevel) {
	level.Set(l.slogLevel())
}

// ParseLevel accepts debug, info, warn/warning and error (case-insensitive).
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", s)
	}
}

// AddHook registers fn for entries at or above min and returns a function that removes it.
func AddHook(min LogLevel, fn Hook) func() {
	mu.Lock()
	defer mu.Unlock()
	nextID++
	id := nextID
	hooks = append(hooks, hookEntry{id: id, level: min, fn: fn})
	return func() {
		mu.Lock()
		defer mu.Unlock()
		for i, h := range hooks {
			if h.id == id {
				hooks = append(hooks[:i], hooks[i+1:]...)
				return
			}
		}
	}
}

func logf(l LogLevel, component, message string, fields map[string]any) {
	mu.RLock()
	lg := base
	active := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if l >= h.level {
			active = append(active, h.fn)
		}
	}
	mu.RUnlock()

	attrs := make([]slog.Attr, 0, len(fields)+1)
	attrs = append(attrs, slog.String("component", component))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	lg.LogAttrs(context.Background(), l.slogLevel(), message, attrs...)

	if len(active) == 0 {
		return
	}
	entry := Entry{
		Time:      time.Now(),
		Level:     l,
		Component: component,
		Message:   message,
		Fields:    fields,
	}
	for _, fn := range active {
		fn(entry)
	}
}

func DebugC(component, message string) { logf(DEBUG, component, message, nil) }

func DebugCF(component, message string, fields map[string]any) {
	logf(DEBUG, component, message, fields)
}

func InfoC(component, message string) { logf(INFO, component, message, nil) }

func InfoCF(component, message string, fields map[string]any) {
	logf(INFO, component, message, fields)
}

func WarnC(component, message string) { logf(WARN, component, message, nil) }

func WarnCF(component, message string, fields map[string]any) {
	logf(WARN, component, message, fields)
}

func ErrorC(component, message string) { logf(ERROR, component, message, nil) }

func ErrorCF(component, message string, fields map[string]any) {
	logf(ERROR, component, message, fields)
}
