// Package logging configures the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel names the environment variable that selects the log level.
const EnvLogLevel = "CACHESIM_LOG_LEVEL"

var logLevel = new(slog.LevelVar)

// Configure installs a text handler on stderr as the default logger. The
// level comes from CACHESIM_LOG_LEVEL and defaults to WARN so that the
// report on stdout stays clean.
func Configure() {
	ConfigureWriter(os.Stderr)
}

// ConfigureWriter is Configure with a custom destination.
func ConfigureWriter(w io.Writer) {
	logLevel.Set(slog.LevelWarn)

	if lvl, err := ParseLevel(os.Getenv(EnvLogLevel)); err == nil {
		logLevel.Set(lvl)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLevel changes the level of the logger installed by Configure.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

// Level returns the current level.
func Level() slog.Level {
	return logLevel.Level()
}

// ParseLevel accepts DEBUG, INFO, WARN and ERROR in any case.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
