// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging carries the process-wide diagnostic logger. Human-facing
// command output goes to stdout through the UIs; this logger stays on
// stderr so piped output remains clean.
package logging

import (
	"os"

	clog "github.com/charmbracelet/log"
)

// L is the process-wide logger. The helpers below cover the common cases;
// code that needs structured fields uses L directly.
var L = clog.New(os.Stderr)

// SetVerbose lowers the level to debug when on, back to info when off.
func SetVerbose(verbose bool) {
	level := clog.InfoLevel
	if verbose {
		level = clog.DebugLevel
	}
	L.SetLevel(level)
}

// SetDebug is an alias for SetVerbose kept for callers that think in terms
// of a debug flag.
func SetDebug(enabled bool) { SetVerbose(enabled) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, v ...any) { L.Debugf(format, v...) }

// Infof logs a formatted message at info level.
func Infof(format string, v ...any) { L.Infof(format, v...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, v ...any) { L.Warnf(format, v...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, v ...any) { L.Errorf(format, v...) }
