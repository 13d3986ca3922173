package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/groundwork-sh/groundwork/internal/db"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/model"
)

// Seeds an in-memory journal and runs it through the backup exporter, so the
// export codepath can be probed without touching a real journal file.
func main() {
	dsn := "file:debprobe?mode=memory&cache=shared"
	i18n.Init("en")
	if err := db.InitDB("sqlite", dsn); err != nil {
		panic(err)
	}

	now := time.Now().UTC()
	seeds := []struct {
		target     string
		status     string
		failedStep string
	}{
		{"web01", model.RunStatusSucceeded, ""},
		{"db01", model.RunStatusFailed, "dependencies"},
	}
	for i, s := range seeds {
		run := model.Run{
			ID:        uuid.NewString(),
			Profile:   "gallery-backend",
			Target:    s.target,
			Status:    model.RunStatusRunning,
			StartedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := db.CreateRun(&run); err != nil {
			panic(err)
		}
		if err := db.FinishRun(run.ID, s.status, s.failedStep, run.StartedAt.Add(30*time.Second)); err != nil {
			panic(err)
		}
		if err := db.AddStepResult(&model.StepResult{
			RunID:    run.ID,
			Position: 0,
			Name:     "preflight",
			Title:    "Preflight checks",
			Status:   model.StepStatusOK,
			Duration: 40 * time.Millisecond,
		}); err != nil {
			panic(err)
		}
	}
	// AddKnownHostKey audits TRUST_HOST on its own; the explicit entry
	// exercises the plain LogAction path next to it.
	if err := db.AddKnownHostKey("db01", "ssh-ed25519 AAAA..."); err != nil {
		panic(err)
	}
	if err := db.LogAction("PROVISION_START", "gallery-backend on web01"); err != nil {
		panic(err)
	}

	backup, err := db.ExportDataForBackup()
	if err != nil {
		panic(err)
	}
	fmt.Printf("schema version: %d\n", backup.SchemaVersion)
	fmt.Printf("exported runs: %d\n", len(backup.Runs))
	for _, r := range backup.Runs {
		fmt.Printf("run: %s %s %s\n", r.ID[:8], r.Target, r.Status)
	}
	fmt.Printf("exported step results: %d\n", len(backup.StepResults))
	fmt.Printf("exported known hosts: %d\n", len(backup.KnownHosts))
	fmt.Printf("exported audit entries: %d\n", len(backup.AuditLogEntries))
}
