// Package logging initializes the process-wide structured logger.
package logging

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Init configures the default charmbracelet/log logger from a level
// string (trace/debug/info/warn/error) and an optional log directory.
// When logDir is set, output is appended to a single mdgw.log file in
// that directory; the file is not rotated. It returns the root logger;
// component loggers are created from it via New.
func Init(level, logDir string) *log.Logger {
	opts := log.Options{
		ReportCaller:    false,
		ReportTimestamp: true,
	}
	logger := log.NewWithOptions(os.Stderr, opts)
	logger.SetLevel(parseLevel(level))

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err == nil {
			if f, err := os.OpenFile(logDir+"/mdgw.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				logger.SetOutput(f)
			}
		}
	}

	log.SetDefault(logger)
	return logger
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New returns a component logger prefixed with name, e.g. "binance-spot".
func New(root *log.Logger, name string) *log.Logger {
	return root.WithPrefix(name)
}
