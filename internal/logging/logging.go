package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New opens a file logger under dir (logs/sessionpick.log). Logging goes
// to a file rather than stderr so warnings do not tear the TUI screen.
// If the file cannot be opened the logger discards everything; logging is
// never a reason to fail startup.
func New(dir, level string) (zerolog.Logger, io.Closer) {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nopLogger(), nopCloser{}
	}
	f, err := os.OpenFile(filepath.Join(logDir, "sessionpick.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nopLogger(), nopCloser{}
	}

	logger := zerolog.New(f).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
	zerolog.TimeFieldFormat = time.RFC3339
	return logger, f
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func nopLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
