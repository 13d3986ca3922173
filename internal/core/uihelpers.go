// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"fmt"
	"strings"
	"time"
)

// Pad right-pads s with spaces out to width. Strings at or beyond width
// come back unchanged.
func Pad(s string, width int) string {
	if n := width - len(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// FormatLabelPadding aligns a label/value pair: the label is padded to
// labelWidth so stacked rows line up vertically.
func FormatLabelPadding(label, value string, labelWidth int) string {
	return Pad(label, labelWidth) + " " + value
}

// ContainsIgnoreCase reports whether substr occurs in s, ignoring case.
// An empty substr matches anything.
func ContainsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// FormatStepDuration renders a step or run duration compactly for tables.
// Sub-second durations show milliseconds; zero shows a dash.
func FormatStepDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// FormatRunTimestamp renders a run timestamp for listings. The zero time
// renders as a dash so unfinished runs read cleanly.
func FormatRunTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}
