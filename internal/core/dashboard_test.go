// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/groundwork-sh/groundwork/internal/model"
)

// badRunsJournal overrides GetAllRuns with an error.
type badRunsJournal struct{ *fJournal }

func (b *badRunsJournal) GetAllRuns() ([]model.Run, error) { return nil, errors.New("db gone") }

func TestBuildDashboardData(t *testing.T) {
	runs := []model.Run{
		{ID: "r5", Profile: "gallery-backend", Target: "root@db01", Status: model.RunStatusSucceeded},
		{ID: "r4", Profile: "gallery-backend", Target: "local", Status: model.RunStatusFailed, FailedStep: "dependencies"},
		{ID: "r3", Profile: "gallery-backend", Target: "local", Status: model.RunStatusInterrupted},
		{ID: "r2", Profile: "worker", Target: "local", Status: model.RunStatusSucceeded},
		{ID: "r1", Profile: "worker", Target: "local", Status: model.RunStatusRunning},
	}
	hosts := []model.KnownHost{
		{Hostname: "db01:22", Key: "ssh-ed25519 AAA"},
		{Hostname: "db02:22", Key: "ssh-ed25519 BBB"},
	}
	logs := make([]model.AuditLogEntry, 0, 7)
	for i := 0; i < 7; i++ {
		logs = append(logs, model.AuditLogEntry{ID: i + 1, Action: "TRUST_HOST"})
	}

	jr := &fJournal{runs: runs, hosts: hosts, logs: logs}
	out, err := BuildDashboardData(jr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.RunCount != 5 {
		t.Fatalf("expected 5 runs, got %d", out.RunCount)
	}
	if out.SucceededCount != 2 || out.FailedCount != 1 || out.InterruptedCount != 1 {
		t.Fatalf("unexpected counters: %d/%d/%d", out.SucceededCount, out.FailedCount, out.InterruptedCount)
	}
	if out.TrustedHostCount != 2 {
		t.Fatalf("expected 2 trusted hosts, got %d", out.TrustedHostCount)
	}
	// Runs come back newest first, so r5 is the last run.
	if out.LastRun == nil || out.LastRun.ID != "r5" {
		t.Fatalf("unexpected last run: %+v", out.LastRun)
	}
	if !reflect.DeepEqual(out.RecentLogs, logs[:5]) {
		t.Fatalf("expected the 5 newest log entries, got %d", len(out.RecentLogs))
	}
}

func TestBuildDashboardData_EmptyJournal(t *testing.T) {
	out, err := BuildDashboardData(&fJournal{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.RunCount != 0 || out.LastRun != nil {
		t.Fatalf("unexpected data for empty journal: %+v", out)
	}
	if len(out.RecentLogs) != 0 {
		t.Fatalf("expected no logs, got %d", len(out.RecentLogs))
	}
}

func TestBuildDashboardData_JournalError(t *testing.T) {
	if _, err := BuildDashboardData(&badRunsJournal{&fJournal{}}); err == nil {
		t.Fatalf("expected error")
	}
}
