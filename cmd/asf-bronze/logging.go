package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

const (
	formatFlagName = "logformat"
	formatJSON     = "json"
	formatText     = "text"

	levelFlagName = "loglevel"
	levelDebug    = "debug"
	levelInfo     = "info"
	levelWarn     = "warn"
	levelError    = "error"
)

func registerLoggingFlags(flags *pflag.FlagSet) {
	flags.String(formatFlagName, "", `set the log output format (overrides LOG_FORMAT)
   json: Output logs in JSON format, suitable for machine processing
   text: Output logs in human-readable text format (default)`)
	flags.String(levelFlagName, "", `sets the logging level (overrides LOG_LEVEL)
   debug: Show all logs including detailed debugging information
   info:  Show informational messages and above (default)
   warn:  Show warnings and errors only
   error: Show errors only`)
}

// newLogger builds the process logger. Logs go to w so that prompts and
// results on stdout stay readable.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case levelDebug:
		lvl = slog.LevelDebug
	case levelInfo, "":
		lvl = slog.LevelInfo
	case levelWarn, "warning":
		lvl = slog.LevelWarn
	case levelError:
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case formatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case formatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
}
