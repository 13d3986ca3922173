// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/uptrace/bun"
)

// Store defines the interface for all journal operations.
// Implementations exist for SQLite, PostgreSQL and MySQL; they share the
// Bun helpers in bun_adapter.go and only override engine-specific SQL.
type Store interface {
	// Run journal
	CreateRun(run *model.Run) error
	FinishRun(id, status, failedStep string, finishedAt time.Time) error
	GetRunByID(id string) (*model.Run, error)
	GetAllRuns() ([]model.Run, error)
	GetRecentRuns(limit int) ([]model.Run, error)
	DeleteRun(id string) error
	AddStepResult(res *model.StepResult) error
	GetStepResults(runID string) ([]model.StepResult, error)

	// Known host keys for remote targets
	GetKnownHostKey(hostname string) (string, error)
	AddKnownHostKey(hostname, key string) error
	DeleteKnownHostKey(hostname string) error
	GetAllKnownHosts() ([]model.KnownHost, error)

	// Audit trail
	GetAllAuditLogEntries() ([]model.AuditLogEntry, error)
	LogAction(action string, details string) error

	// Backup and restore
	ExportDataForBackup() (*model.BackupData, error)
	ImportDataFromBackup(backup *model.BackupData) error
	IntegrateDataFromBackup(backup *model.BackupData) error

	// BunDB exposes the underlying handle for searchers and maintenance.
	BunDB() *bun.DB
}

// store is the package-level Store used by the convenience wrappers below.
// It is set by InitDB / New and may be replaced by tests.
var store Store

// SetStore replaces the package-level store. Intended for tests.
func SetStore(s Store) { store = s }

// IsInitialized reports whether InitDB has completed successfully.
func IsInitialized() bool { return store != nil }
