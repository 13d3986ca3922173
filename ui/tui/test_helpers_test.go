// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/model"
)

// initTestJournalT initializes an in-memory sqlite journal for tests. Each
// call uses a fresh shared-cache DSN so tests stay isolated from each other.
func initTestJournalT(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:tuidb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	if err := core.InitJournal("sqlite", dsn); err != nil {
		t.Fatalf("initTestJournalT: core.InitJournal failed: %v", err)
	}
}

// seedRunT records one finished run in the journal.
func seedRunT(t *testing.T, profileName, target, status, failedStep string, startedAt time.Time) model.Run {
	t.Helper()
	jr := defaultJournal()
	run := model.Run{
		ID:        uuid.NewString(),
		Profile:   profileName,
		Target:    target,
		Status:    model.RunStatusRunning,
		StartedAt: startedAt,
	}
	if err := jr.CreateRun(&run); err != nil {
		t.Fatalf("seedRunT: CreateRun failed: %v", err)
	}
	if err := jr.FinishRun(run.ID, status, failedStep, startedAt.Add(time.Minute)); err != nil {
		t.Fatalf("seedRunT: FinishRun failed: %v", err)
	}
	run.Status = status
	run.FailedStep = failedStep
	return run
}
