package observability

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/couchcryptid/flux-climatology/internal/config"
)

// NewLogger builds a slog logger at the configured level and format. Output
// goes to cfg.LogFile with size-based rotation when set, otherwise to w. The
// returned closer releases the log file and must be called once logging is
// done; it does not close w.
func NewLogger(cfg *config.Config, w io.Writer) (*slog.Logger, io.Closer) {
	out := LogOutput(cfg, w)
	return newLogger(out, cfg.LogLevel, cfg.LogFormat), out
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// LogOutput picks the log destination for cfg. Closing the fallback is a
// no-op.
func LogOutput(cfg *config.Config, fallback io.Writer) io.WriteCloser {
	if cfg.LogFile == "" {
		return nopWriteCloser{fallback}
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    64, // MB
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
