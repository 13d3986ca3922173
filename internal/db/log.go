// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import "github.com/groundwork-sh/groundwork/internal/logging"

// Journal debug logging is opt-in and off by default; timings and ignored
// maintenance errors stay quiet unless someone is actually debugging.
var debugEnabled bool

// SetDebug toggles journal debug logging.
func SetDebug(enabled bool) { debugEnabled = enabled }

func dbLogf(format string, v ...any) {
	if debugEnabled {
		logging.Debugf(format, v...)
	}
}
