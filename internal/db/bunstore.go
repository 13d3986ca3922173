// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/uptrace/bun"
)

// storeSQL carries the statements whose syntax differs between engines.
// Everything else in the journal schema is plain enough to share.
type storeSQL struct {
	upsertHost string
	importHost string
	integrate  integrateSQL
}

// integrateSQL holds the keep-existing insert forms used when merging a
// backup: INSERT OR IGNORE on SQLite, ON CONFLICT DO NOTHING on Postgres,
// INSERT IGNORE on MySQL.
type integrateSQL struct {
	run  string
	step string
	host string
}

// bunStore implements Store once for all engines; the dialect types in
// sqlite.go, postgres.go and mysql.go embed it with their statement table.
// Mutating operations that matter to an operator leave audit entries.
type bunStore struct {
	bun *bun.DB
	sql storeSQL
}

// BunDB exposes the underlying Bun handle for searchers and maintenance.
func (s *bunStore) BunDB() *bun.DB { return s.bun }

func (s *bunStore) CreateRun(run *model.Run) error { return CreateRunBun(s.bun, run) }

func (s *bunStore) FinishRun(id, status, failedStep string, finishedAt time.Time) error {
	return FinishRunBun(s.bun, id, status, failedStep, finishedAt)
}

func (s *bunStore) GetRunByID(id string) (*model.Run, error) { return GetRunByIDBun(s.bun, id) }

func (s *bunStore) GetAllRuns() ([]model.Run, error) { return GetAllRunsBun(s.bun) }

func (s *bunStore) GetRecentRuns(limit int) ([]model.Run, error) {
	return GetRecentRunsBun(s.bun, limit)
}

// DeleteRun removes a run with its step results and leaves an audit entry.
func (s *bunStore) DeleteRun(id string) error {
	if err := DeleteRunBun(s.bun, id); err != nil {
		return err
	}
	_ = s.LogAction("DELETE_RUN", fmt.Sprintf("run: %s", id))
	return nil
}

func (s *bunStore) AddStepResult(res *model.StepResult) error {
	return AddStepResultBun(s.bun, res)
}

func (s *bunStore) GetStepResults(runID string) ([]model.StepResult, error) {
	return GetStepResultsBun(s.bun, runID)
}

// GetKnownHostKey returns the pinned key for a host. An empty string means
// the host has not been trusted yet; that is a state, not an error.
func (s *bunStore) GetKnownHostKey(hostname string) (string, error) {
	return GetKnownHostKeyBun(s.bun, hostname)
}

// AddKnownHostKey pins a host key, replacing any previous one. Targets get
// rebuilt legitimately, so replacement is an upsert rather than an error.
func (s *bunStore) AddKnownHostKey(hostname, key string) error {
	if _, err := ExecRaw(context.Background(), s.bun, s.sql.upsertHost, hostname, key); err != nil {
		return MapDBError(err)
	}
	_ = s.LogAction("TRUST_HOST", fmt.Sprintf("hostname: %s", hostname))
	return nil
}

func (s *bunStore) DeleteKnownHostKey(hostname string) error {
	if err := DeleteKnownHostKeyBun(s.bun, hostname); err != nil {
		return err
	}
	_ = s.LogAction("UNTRUST_HOST", fmt.Sprintf("hostname: %s", hostname))
	return nil
}

func (s *bunStore) GetAllKnownHosts() ([]model.KnownHost, error) {
	return GetAllKnownHostsBun(s.bun)
}

func (s *bunStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

func (s *bunStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

func (s *bunStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}

// ImportDataFromBackup wipes the journal and replays the snapshot in one
// transaction.
func (s *bunStore) ImportDataFromBackup(backup *model.BackupData) error {
	if err := importBackupBun(s.bun, backup, s.sql.importHost); err != nil {
		return err
	}
	_ = s.LogAction("RESTORE_BACKUP", fmt.Sprintf("runs: %d", len(backup.Runs)))
	return nil
}

// IntegrateDataFromBackup merges the snapshot, keeping existing rows. The
// audit trail is local history and is never merged.
func (s *bunStore) IntegrateDataFromBackup(backup *model.BackupData) error {
	err := WithTx(context.Background(), s.bun, func(ctx context.Context, tx bun.Tx) error {
		for _, r := range backup.Runs {
			if _, err := ExecRaw(ctx, tx, s.sql.integrate.run,
				r.ID, r.Profile, r.Target, r.Status, nullable(r.FailedStep), r.StartedAt, nullableTime(r.FinishedAt)); err != nil {
				return err
			}
		}
		// Step results carry fresh IDs; UNIQUE(run_id, position) dedupes.
		for _, sr := range backup.StepResults {
			if _, err := ExecRaw(ctx, tx, s.sql.integrate.step,
				sr.RunID, sr.Position, sr.Name, sr.Title, sr.Status, nullable(sr.Message), sr.Duration.Milliseconds()); err != nil {
				return err
			}
		}
		for _, kh := range backup.KnownHosts {
			if _, err := ExecRaw(ctx, tx, s.sql.integrate.host, kh.Hostname, kh.Key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = s.LogAction("INTEGRATE_BACKUP", fmt.Sprintf("runs: %d", len(backup.Runs)))
	return nil
}
