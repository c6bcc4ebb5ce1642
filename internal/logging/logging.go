// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/charmbracelet/log"
)

// Level maps a -v count to a log level: errors only by default, then warn,
// info and debug.
func Level(verbose int, quiet bool) log.Level {
	if quiet {
		return log.Level(math.MaxInt32)
	}
	level := log.ErrorLevel - log.Level(verbose*4)
	if level < log.DebugLevel {
		level = log.DebugLevel
	}
	return level
}

// Setup makes a charmbracelet logger writing to w the slog default and
// returns it.
func Setup(w io.Writer, verbose int, quiet bool) *log.Logger {
	level := Level(verbose, quiet)
	logger := log.NewWithOptions(w, log.Options{
		TimeFormat:      time.RFC822,
		ReportTimestamp: true,
		Level:           level,
	})

	slog.SetDefault(slog.New(logger))
	slog.Debug("logger has been set up", "level", level)
	return logger
}
