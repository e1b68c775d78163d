package events

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logMu  sync.RWMutex
	logger = NewLogger(os.Stderr, "info")
)

// NewLogger returns a JSON logger writing to w at the named level. Unknown
// levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetLogger replaces the logger events are written to.
func SetLogger(l *slog.Logger) {
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

// Logger returns the logger events are written to.
func Logger() *slog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

func logEvent(e Event) {
	attrs := []any{slog.String("event", e.Name)}
	if e.OperationID != "" {
		attrs = append(attrs, slog.String("operation_id", e.OperationID))
	}
	if len(e.Fields) > 0 {
		fields := make([]any, 0, len(e.Fields))
		for k, v := range e.Fields {
			if k == "operation_id" {
				continue
			}
			fields = append(fields, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("fields", fields...))
	}
	Logger().Log(context.Background(), ParseLevel(e.Level), e.Message, attrs...)
}
