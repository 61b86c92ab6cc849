// Package logging builds the charmbracelet/log loggers used across gitlane.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a level name to a log level. Unknown names mean info.
func ParseLevel(name string) log.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New returns a timestamped logger writing to w.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "gitlane",
		ReportTimestamp: true,
	})
}

// Op logs the completion of an operation with its duration. Call the
// returned function when the operation finishes.
//
//	done := logging.Op(logger, "layout", "repo", name)
//	defer done(err)
func Op(logger *log.Logger, op string, keyvals ...any) func(error, ...any) {
	start := time.Now()
	return func(err error, resultKeyvals ...any) {
		args := make([]any, 0, len(keyvals)+len(resultKeyvals)+6)
		args = append(args, "op", op, "duration", time.Since(start).String())
		args = append(args, keyvals...)
		args = append(args, resultKeyvals...)

		if err != nil {
			args = append(args, "error", err.Error())
			logger.Error("operation failed", args...)
			return
		}
		logger.Debug("operation complete", args...)
	}
}
