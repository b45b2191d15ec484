// Package toolenv carries the ambient concerns shared by every cmd/*
// binary: logging setup, nothing else.
package toolenv

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// NewLogger creates the shared logger used by a command's top-level Action.
// level is one of hclog's level strings ("trace", "debug", "info", "warn",
// "error"); verbose forces "debug" regardless of level.
func NewLogger(name string, level string, verbose bool) hclog.Logger {
	if verbose {
		level = "debug"
	}

	var output io.Writer = os.Stderr

	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  hclog.LevelFromString(level),
		Output: output,
	})
}
