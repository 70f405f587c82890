package config

import (
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger creates the process logger. The level comes from LOG_LEVEL
// (debug, info, warn, error); unknown values fall back to info.
func NewLogger(prefix string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	if level, err := log.ParseLevel(GetEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
