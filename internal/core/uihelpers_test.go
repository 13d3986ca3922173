// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"testing"
	"time"
)

func TestPad(t *testing.T) {
	if got := Pad("ok", 5); got != "ok   " {
		t.Fatalf("Pad = %q", got)
	}
	if got := Pad("exact", 5); got != "exact" {
		t.Fatalf("Pad = %q", got)
	}
	if got := Pad("toolong", 3); got != "toolong" {
		t.Fatalf("Pad = %q", got)
	}
	if got := Pad("x", 0); got != "x" {
		t.Fatalf("Pad = %q", got)
	}
}

func TestFormatLabelPadding(t *testing.T) {
	if got := FormatLabelPadding("Status", "succeeded", 8); got != "Status   succeeded" {
		t.Fatalf("FormatLabelPadding = %q", got)
	}
}

func TestFormatStepDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{-time.Second, "-"},
		{250 * time.Millisecond, "250ms"},
		{2500 * time.Millisecond, "2.5s"},
		{90 * time.Second, "1m30s"},
		{125 * time.Second, "2m05s"},
	}
	for _, c := range cases {
		if got := FormatStepDuration(c.d); got != c.want {
			t.Errorf("FormatStepDuration(%v) = %q, expected %q", c.d, got, c.want)
		}
	}
}

func TestFormatRunTimestamp(t *testing.T) {
	if got := FormatRunTimestamp(time.Time{}); got != "-" {
		t.Fatalf("zero time = %q", got)
	}
	ts := time.Date(2025, 11, 3, 14, 5, 9, 0, time.UTC)
	if got := FormatRunTimestamp(ts); got != "2025-11-03 14:05:09" {
		t.Fatalf("timestamp = %q", got)
	}
}
