// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/model"
)

// seedRun journals a finished run the way a provisioning run would.
func seedRun(t *testing.T, status, failedStep string) model.Run {
	t.Helper()
	run := model.Run{
		ID:        uuid.NewString(),
		Profile:   "gallery-backend",
		Target:    "local",
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().Add(-time.Minute),
	}
	jr := core.DefaultJournal()
	if err := jr.CreateRun(&run); err != nil {
		t.Fatalf("Failed to seed run: %v", err)
	}
	if err := jr.FinishRun(run.ID, status, failedStep, time.Now()); err != nil {
		t.Fatalf("Failed to finish seeded run: %v", err)
	}
	run.Status = status
	run.FailedStep = failedStep
	return run
}

func TestHistoryCmd(t *testing.T) {
	// 1. Setup
	setupTestJournal(t)
	okRun := seedRun(t, model.RunStatusSucceeded, "")
	badRun := seedRun(t, model.RunStatusFailed, "os-packages")

	// 2. Execute
	output := executeCommand(t, nil, "history")

	// 3. Assertions
	t.Run("should list both runs", func(t *testing.T) {
		if !strings.Contains(output, shortRunID(okRun.ID)) {
			t.Errorf("Expected output to list the succeeded run, but it didn't. Output:\n%s", output)
		}
		if !strings.Contains(output, shortRunID(badRun.ID)) {
			t.Errorf("Expected output to list the failed run, but it didn't. Output:\n%s", output)
		}
		if !strings.Contains(output, "PROFILE") {
			t.Errorf("Expected output to contain the table header, but it didn't. Output:\n%s", output)
		}
		if !strings.Contains(output, i18n.T("history.runs_total", 2)) {
			t.Errorf("Expected output to contain the total line, but it didn't. Output:\n%s", output)
		}
	})

	t.Run("should filter runs with --filter", func(t *testing.T) {
		t.Cleanup(func() { _ = historyCmd.Flags().Set("filter", "") })

		filtered := executeCommand(t, nil, "history", "--filter", "failed")

		if !strings.Contains(filtered, shortRunID(badRun.ID)) {
			t.Errorf("Expected filtered output to contain the failed run, but it didn't. Output:\n%s", filtered)
		}
		if strings.Contains(filtered, shortRunID(okRun.ID)) {
			t.Errorf("Expected filtered output not to contain the succeeded run, but it did. Output:\n%s", filtered)
		}
	})

	t.Run("should honor --limit", func(t *testing.T) {
		t.Cleanup(func() { _ = historyCmd.Flags().Set("limit", "0") })

		limited := executeCommand(t, nil, "history", "--limit", "1")

		if !strings.Contains(limited, i18n.T("history.runs_total", 1)) {
			t.Errorf("Expected exactly one run in the limited output. Output:\n%s", limited)
		}
	})
}

func TestHistoryCmd_Empty(t *testing.T) {
	setupTestJournal(t)

	output := executeCommand(t, nil, "history")

	if !strings.Contains(output, i18n.T("history.empty")) {
		t.Errorf("Expected the empty-journal message, got:\n%s", output)
	}
}

func TestShowCmd(t *testing.T) {
	// 1. Setup
	setupTestJournal(t)
	run := seedRun(t, model.RunStatusSucceeded, "")
	step := model.StepResult{
		RunID:    run.ID,
		Position: 0,
		Name:     "preflight",
		Title:    "Check target basics",
		Status:   model.StepStatusOK,
		Duration: 120 * time.Millisecond,
	}
	if err := core.DefaultJournal().AddStepResult(&step); err != nil {
		t.Fatalf("Failed to seed step result: %v", err)
	}

	// 2. Execute: address the run by its abbreviated ID, as printed by history.
	output := executeCommand(t, nil, "show", run.ID[:8])

	// 3. Assertions
	t.Run("should print the full run ID and metadata", func(t *testing.T) {
		if !strings.Contains(output, run.ID) {
			t.Errorf("Expected output to contain the full run ID, but it didn't. Output:\n%s", output)
		}
		if !strings.Contains(output, "gallery-backend") {
			t.Errorf("Expected output to contain the profile name, but it didn't. Output:\n%s", output)
		}
		if !strings.Contains(output, model.RunStatusSucceeded) {
			t.Errorf("Expected output to contain the run status, but it didn't. Output:\n%s", output)
		}
	})

	t.Run("should print the step table", func(t *testing.T) {
		if !strings.Contains(output, "STEP") {
			t.Errorf("Expected output to contain the step table header, but it didn't. Output:\n%s", output)
		}
		if !strings.Contains(output, "preflight") {
			t.Errorf("Expected output to contain the step name, but it didn't. Output:\n%s", output)
		}
	})
}

func TestResolveRunID(t *testing.T) {
	setupTestJournal(t)
	run := seedRun(t, model.RunStatusSucceeded, "")

	t.Run("should resolve a full ID", func(t *testing.T) {
		id, err := resolveRunID(core.DefaultJournal(), run.ID)
		if err != nil {
			t.Fatalf("resolveRunID failed: %v", err)
		}
		if id != run.ID {
			t.Errorf("Expected %s, got %s", run.ID, id)
		}
	})

	t.Run("should report an unknown ID instead of resolving it", func(t *testing.T) {
		// The journal answers a missing run with (nil, nil); this must
		// surface as a lookup error, not a crash.
		_, err := resolveRunID(core.DefaultJournal(), "deadbeef-0000-0000-0000-000000000000")
		if err == nil {
			t.Fatal("Expected an error for an unknown run ID")
		}
		if !strings.Contains(err.Error(), "no run matches") {
			t.Errorf("Expected a no-match error, got: %v", err)
		}
	})

	t.Run("should report an ambiguous prefix", func(t *testing.T) {
		other := seedRun(t, model.RunStatusFailed, "os-packages")
		// Zero-length prefix matches every run.
		_, err := resolveRunID(core.DefaultJournal(), "")
		if err == nil {
			t.Fatalf("Expected an ambiguity error with runs %s and %s seeded", run.ID[:8], other.ID[:8])
		}
		if !strings.Contains(err.Error(), "ambiguous") {
			t.Errorf("Expected an ambiguity error, got: %v", err)
		}
	})
}

func TestBackupRestoreCmd(t *testing.T) {
	// 1. Setup: seed a journal worth backing up.
	setupTestJournal(t)
	run := seedRun(t, model.RunStatusSucceeded, "")
	hostKey := "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIBackupRoundTripTestKey backup-test"
	if err := core.DefaultJournal().AddKnownHostKey("db01.example.com", hostKey); err != nil {
		t.Fatalf("Failed to seed known host: %v", err)
	}

	backupPath := filepath.Join(t.TempDir(), "journal-backup.json")

	// 2. Execute backup. The command appends .zst to the given name.
	output := executeCommand(t, nil, "backup", backupPath)

	backupFile := backupPath + ".zst"
	if !strings.Contains(output, i18n.T("backup.cli_success", backupFile)) {
		t.Fatalf("Expected backup success message, got:\n%s", output)
	}
	if _, err := os.Stat(backupFile); err != nil {
		t.Fatalf("Expected backup file to exist: %v", err)
	}

	// 3. Point the journal at a fresh, empty database.
	uniq := fmt.Sprintf("memdb_restore_%d", time.Now().UnixNano())
	if err := core.InitJournal("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uniq)); err != nil {
		t.Fatalf("Failed to initialize restore target journal: %v", err)
	}
	if runs, err := core.DefaultJournal().GetAllRuns(); err != nil || len(runs) != 0 {
		t.Fatalf("Expected the fresh journal to be empty, got %d runs (err %v)", len(runs), err)
	}

	// 4. Execute restore into the fresh journal.
	output = executeCommand(t, nil, "restore", backupFile)

	if !strings.Contains(output, i18n.T("restore.cli_success")) {
		t.Fatalf("Expected restore success message, got:\n%s", output)
	}

	// 5. Assertions: the seeded data made the round trip.
	runs, err := core.DefaultJournal().GetAllRuns()
	if err != nil {
		t.Fatalf("Failed to load restored runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 restored run, got %d", len(runs))
	}
	if runs[0].ID != run.ID {
		t.Errorf("Expected restored run %s, got %s", run.ID, runs[0].ID)
	}

	restoredKey, err := core.GetKnownHostKey("db01.example.com")
	if err != nil {
		t.Fatalf("Failed to load restored host key: %v", err)
	}
	if restoredKey != hostKey {
		t.Errorf("Restored host key does not match.\nGot: %s\nWant: %s", restoredKey, hostKey)
	}
}
