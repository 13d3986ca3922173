// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// This file declares the side-effect boundaries the facades operate through.
// UIs and tests supply the implementations; keeping the contracts this small
// is what lets the command logic run unchanged against fakes.
package core

import (
	"time"

	"github.com/groundwork-sh/groundwork/internal/model"
)

// Journal is the slice of the journal the facades need. db.Store satisfies
// it directly; tests hand in in-memory fakes.
type Journal interface {
	// Runs and their step results
	CreateRun(run *model.Run) error
	FinishRun(id, status, failedStep string, finishedAt time.Time) error
	GetRunByID(id string) (*model.Run, error)
	GetAllRuns() ([]model.Run, error)
	GetRecentRuns(limit int) ([]model.Run, error)
	DeleteRun(id string) error
	AddStepResult(res *model.StepResult) error
	GetStepResults(runID string) ([]model.StepResult, error)

	// Pinned host keys of remote targets
	GetKnownHostKey(hostname string) (string, error)
	AddKnownHostKey(hostname, key string) error
	DeleteKnownHostKey(hostname string) error
	GetAllKnownHosts() ([]model.KnownHost, error)

	// Audit trail
	GetAllAuditLogEntries() ([]model.AuditLogEntry, error)
	LogAction(action, details string) error

	// Backup and migrate
	ExportDataForBackup() (*model.BackupData, error)
	ImportDataFromBackup(*model.BackupData) error
	IntegrateDataFromBackup(*model.BackupData) error
}

// AuditWriter records one audit trail event.
type AuditWriter interface {
	LogAction(action, details string) error
}

// HostFetcher obtains the public host key of a remote target.
type HostFetcher interface {
	FetchHostKey(host string) (string, error)
}

// JournalFactory opens a fresh Journal from a DSN. Migrate uses it to bring
// up the target engine next to the source.
type JournalFactory interface {
	NewJournalFromDSN(dbType, dsn string) (Journal, error)
}

// DBMaintainer runs engine-specific journal housekeeping.
type DBMaintainer interface {
	RunDBMaintenance(dbType, dsn string, skipIntegrity bool) error
}

// Reporter receives human-readable progress lines. CLI implementations
// print them, test implementations collect them.
type Reporter interface {
	Reportf(format string, args ...any)
}
