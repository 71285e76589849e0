package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents the severity of a log message
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses a level name. Unknown names are an error so a typo in
// the config file or --log-level is reported instead of ignored.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
	}
}

// Format represents the output format for logs
type Format int

const (
	// FormatText is the default for an interactive terminal
	FormatText Format = iota
	// FormatJSON is for shipping logs elsewhere
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat parses "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "console", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q (valid: text, json)", s)
	}
}

// Config holds configuration for the logger
type Config struct {
	Level  Level
	Format Format
	// Output defaults to stderr so stdout stays machine-readable.
	Output    io.Writer
	AddSource bool

	ServiceName    string
	ServiceVersion string
}

// DefaultConfig logs warnings and above as text to stderr.
func DefaultConfig() Config {
	return Config{
		Level:          LevelWarn,
		Format:         FormatText,
		Output:         os.Stderr,
		ServiceName:    "approvals",
		ServiceVersion: "dev",
	}
}
