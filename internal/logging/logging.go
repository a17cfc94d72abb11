// Package logging installs the terminal logger used by the command line tools.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// Setup makes a charmbracelet logger writing to w the slog default and
// returns it.
func Setup(w io.Writer, prefix string, verbose bool) *slog.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    verbose,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	if verbose {
		l.SetLevel(log.DebugLevel)
	}
	logger := slog.New(l)
	slog.SetDefault(logger)
	return logger
}
