package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/groundwork-sh/groundwork/internal/model"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) string {
	t.Helper()
	dsn := "file:test_" + t.Name() + "?mode=memory&cache=shared"
	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	return dsn
}

func testRun(id string, profile, target, status string, startedAt time.Time) *model.Run {
	return &model.Run{ID: id, Profile: profile, Target: target, Status: status, StartedAt: startedAt}
}

func TestInitDB_Migrations_Applied(t *testing.T) {
	dsn := newTestDB(t)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open sql.DB for inspection: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()

	rows, err := sqlDB.Query("PRAGMA table_info(schema_migrations)")
	if err != nil {
		t.Fatalf("failed to query schema_migrations table info: %v", err)
	}
	defer func() { _ = rows.Close() }()

	foundAppliedAt := false
	for rows.Next() {
		var cid int
		var name string
		var typ string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("failed scanning pragma row: %v", err)
		}
		if name == "applied_at" {
			foundAppliedAt = true
			break
		}
	}
	if !foundAppliedAt {
		t.Fatalf("expected schema_migrations.applied_at column to exist after migrations")
	}
}

func TestInitDB_Idempotent(t *testing.T) {
	dsn := "file:test_idempotent?mode=memory&cache=shared"
	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("first InitDB failed: %v", err)
	}
	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("second InitDB failed: %v", err)
	}
	if !IsInitialized() {
		t.Fatalf("expected IsInitialized to be true after InitDB")
	}
}

func TestRunJournalLifecycle(t *testing.T) {
	newTestDB(t)

	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	run := testRun("run-1", "gallery-backend", "root@web-01", model.RunStatusRunning, started)
	if err := CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := GetRunByID("run-1")
	if err != nil {
		t.Fatalf("GetRunByID failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected run to exist")
	}
	if got.Status != model.RunStatusRunning {
		t.Errorf("expected status %q, got %q", model.RunStatusRunning, got.Status)
	}
	if got.FailedStep != "" {
		t.Errorf("expected empty failed step on a fresh run, got %q", got.FailedStep)
	}
	if !got.FinishedAt.IsZero() {
		t.Errorf("expected zero finished time on a running run, got %v", got.FinishedAt)
	}

	if err := AddStepResult(&model.StepResult{RunID: "run-1", Position: 0, Name: "preflight", Title: "Preflight", Status: model.StepStatusOK, Duration: 120 * time.Millisecond}); err != nil {
		t.Fatalf("AddStepResult failed: %v", err)
	}
	if err := AddStepResult(&model.StepResult{RunID: "run-1", Position: 1, Name: "dependencies", Title: "Dependencies", Status: model.StepStatusFailed, Message: "pip exited with 1", Duration: 3 * time.Second}); err != nil {
		t.Fatalf("AddStepResult failed: %v", err)
	}

	finished := started.Add(5 * time.Second)
	if err := FinishRun("run-1", model.RunStatusFailed, "dependencies", finished); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err = GetRunByID("run-1")
	if err != nil {
		t.Fatalf("GetRunByID after finish failed: %v", err)
	}
	if got.Status != model.RunStatusFailed {
		t.Errorf("expected status %q, got %q", model.RunStatusFailed, got.Status)
	}
	if got.FailedStep != "dependencies" {
		t.Errorf("expected failed step %q, got %q", "dependencies", got.FailedStep)
	}
	if got.FinishedAt.IsZero() {
		t.Errorf("expected finished time to be set")
	}

	steps, err := GetStepResults("run-1")
	if err != nil {
		t.Fatalf("GetStepResults failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 step results, got %d", len(steps))
	}
	if steps[0].Name != "preflight" || steps[1].Name != "dependencies" {
		t.Errorf("expected steps in plan order, got %s then %s", steps[0].Name, steps[1].Name)
	}
	if steps[0].Duration != 120*time.Millisecond {
		t.Errorf("expected 120ms duration roundtrip, got %v", steps[0].Duration)
	}
	if steps[1].Message != "pip exited with 1" {
		t.Errorf("expected failure message to roundtrip, got %q", steps[1].Message)
	}
	if steps[0].Message != "" {
		t.Errorf("expected empty message on ok step, got %q", steps[0].Message)
	}
}

func TestCreateRun_DuplicateID(t *testing.T) {
	newTestDB(t)

	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := CreateRun(testRun("dup", "gallery-backend", "local", model.RunStatusRunning, started)); err != nil {
		t.Fatalf("first CreateRun failed: %v", err)
	}
	err := CreateRun(testRun("dup", "gallery-backend", "local", model.RunStatusRunning, started))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for duplicate run ID, got: %v", err)
	}
}

func TestAddStepResult_DuplicatePosition(t *testing.T) {
	newTestDB(t)

	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := CreateRun(testRun("run-pos", "gallery-backend", "local", model.RunStatusRunning, started)); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := AddStepResult(&model.StepResult{RunID: "run-pos", Position: 0, Name: "preflight", Title: "Preflight", Status: model.StepStatusOK}); err != nil {
		t.Fatalf("first AddStepResult failed: %v", err)
	}
	err := AddStepResult(&model.StepResult{RunID: "run-pos", Position: 0, Name: "preflight", Title: "Preflight", Status: model.StepStatusOK})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for duplicate step position, got: %v", err)
	}
}

func TestGetRunByID_Missing(t *testing.T) {
	newTestDB(t)

	got, err := GetRunByID("no-such-run")
	if err != nil {
		t.Fatalf("unexpected error for missing run: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing run, got %v", got)
	}
}

func TestGetRecentRuns_OrderAndLimit(t *testing.T) {
	newTestDB(t)

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := CreateRun(testRun(id, "gallery-backend", "local", model.RunStatusSucceeded, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("CreateRun %s failed: %v", id, err)
		}
	}

	recent, err := GetRecentRuns(2)
	if err != nil {
		t.Fatalf("GetRecentRuns failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(recent))
	}
	if recent[0].ID != "new" || recent[1].ID != "mid" {
		t.Errorf("expected newest first (new, mid), got (%s, %s)", recent[0].ID, recent[1].ID)
	}

	all, err := GetAllRuns()
	if err != nil {
		t.Fatalf("GetAllRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestDeleteRun_RemovesStepResults(t *testing.T) {
	newTestDB(t)

	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := CreateRun(testRun("gone", "gallery-backend", "local", model.RunStatusSucceeded, started)); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := AddStepResult(&model.StepResult{RunID: "gone", Position: 0, Name: "preflight", Title: "Preflight", Status: model.StepStatusOK}); err != nil {
		t.Fatalf("AddStepResult failed: %v", err)
	}

	if err := DeleteRun("gone"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	got, err := GetRunByID("gone")
	if err != nil {
		t.Fatalf("GetRunByID failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected run to be deleted")
	}
	steps, err := GetStepResults("gone")
	if err != nil {
		t.Fatalf("GetStepResults failed: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected step results to be deleted with the run, got %d", len(steps))
	}
}

func TestKnownHostKey_UpsertAndDelete(t *testing.T) {
	newTestDB(t)

	key, err := GetKnownHostKey("web-01")
	if err != nil {
		t.Fatalf("GetKnownHostKey failed: %v", err)
	}
	if key != "" {
		t.Fatalf("expected no key for unknown host, got %q", key)
	}

	if err := AddKnownHostKey("web-01", "ssh-ed25519 AAAA-first"); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}
	key, err = GetKnownHostKey("web-01")
	if err != nil {
		t.Fatalf("GetKnownHostKey failed: %v", err)
	}
	if key != "ssh-ed25519 AAAA-first" {
		t.Errorf("expected stored key, got %q", key)
	}

	// Re-adding replaces the key; hosts get re-provisioned legitimately.
	if err := AddKnownHostKey("web-01", "ssh-ed25519 AAAA-second"); err != nil {
		t.Fatalf("AddKnownHostKey replace failed: %v", err)
	}
	key, _ = GetKnownHostKey("web-01")
	if key != "ssh-ed25519 AAAA-second" {
		t.Errorf("expected replaced key, got %q", key)
	}

	hosts, err := GetAllKnownHosts()
	if err != nil {
		t.Fatalf("GetAllKnownHosts failed: %v", err)
	}
	if len(hosts) != 1 || hosts[0].Hostname != "web-01" {
		t.Fatalf("expected one known host web-01, got %v", hosts)
	}

	if err := DeleteKnownHostKey("web-01"); err != nil {
		t.Fatalf("DeleteKnownHostKey failed: %v", err)
	}
	key, _ = GetKnownHostKey("web-01")
	if key != "" {
		t.Errorf("expected key removed, got %q", key)
	}
}

func TestAuditTrail_RecordsActions(t *testing.T) {
	newTestDB(t)

	if err := AddKnownHostKey("audit-host", "ssh-ed25519 AAAA"); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}
	if err := LogAction("PROVISION_START", "profile: gallery-backend, target: local"); err != nil {
		t.Fatalf("LogAction failed: %v", err)
	}

	entries, err := GetAllAuditLogEntries()
	if err != nil {
		t.Fatalf("GetAllAuditLogEntries failed: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 audit entries, got %d", len(entries))
	}
	var sawTrust, sawProvision bool
	for _, e := range entries {
		if e.Action == "TRUST_HOST" {
			sawTrust = true
		}
		if e.Action == "PROVISION_START" {
			sawProvision = true
		}
		if e.Username == "" {
			t.Errorf("expected a username on audit entry %d", e.ID)
		}
	}
	if !sawTrust || !sawProvision {
		t.Errorf("expected TRUST_HOST and PROVISION_START entries, got %v", entries)
	}
}

type recordingAuditWriter struct {
	actions []string
}

func (w *recordingAuditWriter) LogAction(action, details string) error {
	w.actions = append(w.actions, action)
	return nil
}

func TestLogAction_PrefersInjectedWriter(t *testing.T) {
	newTestDB(t)

	w := &recordingAuditWriter{}
	SetDefaultAuditWriter(w)
	defer ClearDefaultAuditWriter()

	if err := LogAction("CUSTOM_ACTION", "detail"); err != nil {
		t.Fatalf("LogAction failed: %v", err)
	}
	if len(w.actions) != 1 || w.actions[0] != "CUSTOM_ACTION" {
		t.Fatalf("expected injected writer to receive the action, got %v", w.actions)
	}

	entries, err := GetAllAuditLogEntries()
	if err != nil {
		t.Fatalf("GetAllAuditLogEntries failed: %v", err)
	}
	for _, e := range entries {
		if e.Action == "CUSTOM_ACTION" {
			t.Fatalf("expected action to bypass the store while a writer is injected")
		}
	}
}

func TestBackup_ExportImportRoundtrip(t *testing.T) {
	newTestDB(t)

	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := CreateRun(testRun("keep", "gallery-backend", "root@web-01", model.RunStatusSucceeded, started)); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := AddStepResult(&model.StepResult{RunID: "keep", Position: 0, Name: "preflight", Title: "Preflight", Status: model.StepStatusOK, Duration: time.Second}); err != nil {
		t.Fatalf("AddStepResult failed: %v", err)
	}
	if err := AddKnownHostKey("web-01", "ssh-ed25519 AAAA"); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}

	backup, err := ExportDataForBackup()
	if err != nil {
		t.Fatalf("ExportDataForBackup failed: %v", err)
	}
	if backup.SchemaVersion != 1 {
		t.Errorf("expected schema version 1, got %d", backup.SchemaVersion)
	}
	if len(backup.Runs) != 1 || len(backup.StepResults) != 1 || len(backup.KnownHosts) != 1 {
		t.Fatalf("unexpected backup contents: %d runs, %d steps, %d hosts", len(backup.Runs), len(backup.StepResults), len(backup.KnownHosts))
	}

	// Drift the journal, then restore the snapshot.
	if err := CreateRun(testRun("extra", "gallery-backend", "local", model.RunStatusFailed, started.Add(time.Hour))); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := ImportDataFromBackup(backup); err != nil {
		t.Fatalf("ImportDataFromBackup failed: %v", err)
	}

	runs, err := GetAllRuns()
	if err != nil {
		t.Fatalf("GetAllRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "keep" {
		t.Fatalf("expected import to restore exactly the snapshot, got %v", runs)
	}
	steps, err := GetStepResults("keep")
	if err != nil {
		t.Fatalf("GetStepResults failed: %v", err)
	}
	if len(steps) != 1 || steps[0].Duration != time.Second {
		t.Fatalf("expected step results restored, got %v", steps)
	}
	key, _ := GetKnownHostKey("web-01")
	if key != "ssh-ed25519 AAAA" {
		t.Errorf("expected known host restored, got %q", key)
	}
}

func TestBackup_IntegrateMerges(t *testing.T) {
	newTestDB(t)

	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := CreateRun(testRun("shared", "gallery-backend", "local", model.RunStatusSucceeded, started)); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	backup, err := ExportDataForBackup()
	if err != nil {
		t.Fatalf("ExportDataForBackup failed: %v", err)
	}
	backup.Runs = append(backup.Runs, *testRun("incoming", "api", "root@db-01", model.RunStatusFailed, started.Add(time.Minute)))
	backup.KnownHosts = append(backup.KnownHosts, model.KnownHost{Hostname: "db-01", Key: "ssh-ed25519 BBBB"})

	if err := IntegrateDataFromBackup(backup); err != nil {
		t.Fatalf("IntegrateDataFromBackup failed: %v", err)
	}

	runs, err := GetAllRuns()
	if err != nil {
		t.Fatalf("GetAllRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected integrate to merge to 2 runs, got %d", len(runs))
	}
	key, _ := GetKnownHostKey("db-01")
	if key != "ssh-ed25519 BBBB" {
		t.Errorf("expected merged known host, got %q", key)
	}
}

func TestSearchRuns_TokensAndExpressions(t *testing.T) {
	newTestDB(t)

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	seed := []*model.Run{
		testRun("a", "gallery-backend", "local", model.RunStatusSucceeded, base),
		testRun("b", "gallery-backend", "root@web-01", model.RunStatusFailed, base.Add(time.Minute)),
		testRun("c", "api", "root@db-01", model.RunStatusSucceeded, base.Add(2*time.Minute)),
	}
	for _, r := range seed {
		if err := CreateRun(r); err != nil {
			t.Fatalf("CreateRun %s failed: %v", r.ID, err)
		}
	}
	if err := FinishRun("b", model.RunStatusFailed, "dependencies", base.Add(2*time.Minute)); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	searcher := DefaultRunSearcher()
	if searcher == nil {
		t.Fatalf("expected a run searcher once the store is initialized")
	}

	runs, err := searcher.SearchRuns("failed")
	if err != nil {
		t.Fatalf("SearchRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "b" {
		t.Fatalf("expected token search to find run b, got %v", runs)
	}

	runs, err = searcher.SearchRuns("gallery web-01")
	if err != nil {
		t.Fatalf("SearchRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "b" {
		t.Fatalf("expected all tokens to be required, got %v", runs)
	}

	runs, err = SearchRunsExprBun(store.BunDB(), "status:failed | target:db-01")
	if err != nil {
		t.Fatalf("SearchRunsExprBun failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected expression to match 2 runs, got %d", len(runs))
	}

	runs, err = SearchRunsExprBun(store.BunDB(), "gallery & !local")
	if err != nil {
		t.Fatalf("SearchRunsExprBun failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "b" {
		t.Fatalf("expected negated term to exclude the local run, got %v", runs)
	}

	if _, err := SearchRunsExprBun(store.BunDB(), "bogus:value"); err == nil {
		t.Fatalf("expected an error for an unknown filter field")
	}
}

func TestRunDBMaintenance_Sqlite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "journal.db")
	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := CreateRun(testRun("maint", "gallery-backend", "local", model.RunStatusSucceeded, started)); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if err := RunDBMaintenance("sqlite", dsn, false); err != nil {
		t.Fatalf("RunDBMaintenance failed: %v", err)
	}

	// The skip flag leaves out integrity_check but still vacuums.
	if err := RunDBMaintenance("sqlite", dsn, true); err != nil {
		t.Fatalf("RunDBMaintenance with skipped integrity check failed: %v", err)
	}
}

func TestRunDBMaintenance_UnsupportedType(t *testing.T) {
	if err := RunDBMaintenance("oracle", "dsn", false); err == nil {
		t.Fatalf("expected error for unsupported db type")
	}
}
