// Package logging builds the charmbracelet/log logger shared by the CLI,
// the store and the TUI.
package logging

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

const prefix = "tada"

// ParseLevel is log.ParseLevel except that a blank level means warn.
func ParseLevel(level string) (log.Level, error) {
	if strings.TrimSpace(level) == "" {
		return log.WarnLevel, nil
	}
	return log.ParseLevel(level)
}

// New returns a text logger writing to w at the given level.
// An empty level means warn.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       log.TextFormatter,
		ReportTimestamp: false,
		Prefix:          prefix,
	}), nil
}

// Discard is a logger that drops everything; used where no logger is wired.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
