// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.
package core

import (
	"time"

	"github.com/groundwork-sh/groundwork/internal/db"
	"github.com/groundwork-sh/groundwork/internal/envfile"
	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/groundwork-sh/groundwork/internal/runner"
)

// InitJournal initializes the package-level journal store via db.New. UI
// layers call this convenience so they don't import internal/db directly.
func InitJournal(dbType, dsn string) error {
	_, err := db.New(dbType, dsn)
	return err
}

// IsJournalInitialized returns true when the journal database is open.
func IsJournalInitialized() bool { return db.IsInitialized() }

// SetJournalDebug toggles journal debug logging.
func SetJournalDebug(enabled bool) { db.SetDebug(enabled) }

// NewJournalFromDSN creates a standalone journal store. db.Store satisfies
// Journal, so the store is returned as-is.
func NewJournalFromDSN(dbType, dsn string) (Journal, error) {
	s, err := db.NewStoreFromDSN(dbType, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Package-level default journal. Tests or initialization code can inject an
// implementation via SetDefaultJournal.
var defaultJournal Journal

// SetDefaultJournal sets the package-level Journal used by core helpers.
func SetDefaultJournal(j Journal) { defaultJournal = j }

// DefaultJournal returns the injected Journal if set, else a journal backed
// by the initialized database, else nil.
func DefaultJournal() Journal {
	if defaultJournal != nil {
		return defaultJournal
	}
	if db.IsInitialized() {
		return dbJournal{}
	}
	return nil
}

// DefaultAuditWriter returns the DB layer's audit writer, or nil before the
// journal is initialized.
func DefaultAuditWriter() AuditWriter {
	if w := db.DefaultAuditWriter(); w != nil {
		return w
	}
	return nil
}

// DefaultRunSearcher adapts the DB layer's searcher to a RunSearcherFunc,
// or nil when no searcher is available.
func DefaultRunSearcher() RunSearcherFunc {
	s := db.DefaultRunSearcher()
	if s == nil {
		return nil
	}
	return s.SearchRuns
}

// SearchRunsExpr evaluates a field:value filter expression against the
// journal. See internal/db/filterexpr for the accepted syntax.
func SearchRunsExpr(expr string) ([]model.Run, error) {
	return db.SearchRunsExpr(expr)
}

// GenerateSecret produces a URL-safe random secret, e.g. for completing the
// env schema's signing key by hand.
func GenerateSecret(n int) (string, error) { return envfile.GenerateSecret(n) }

// Convenience wrappers for commonly used journal helpers so UIs/tests can
// call into `core` instead of importing `internal/db` directly.
func GetKnownHostKey(hostname string) (string, error) { return db.GetKnownHostKey(hostname) }
func DeleteKnownHostKey(hostname string) error        { return db.DeleteKnownHostKey(hostname) }
func GetAllKnownHosts() ([]model.KnownHost, error)    { return db.GetAllKnownHosts() }
func GetRecentRuns(limit int) ([]model.Run, error)    { return db.GetRecentRuns(limit) }
func GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return db.GetAllAuditLogEntries()
}

// DefaultDBMaintainer returns a DBMaintainer implementation that delegates
// to the db package's RunDBMaintenance helper.
type dbMaintainer struct{}

func (d dbMaintainer) RunDBMaintenance(dbType, dsn string, skipIntegrity bool) error {
	return db.RunDBMaintenance(dbType, dsn, skipIntegrity)
}

func DefaultDBMaintainer() DBMaintainer { return dbMaintainer{} }

// journalFactory creates journal stores for `migrate`.
type journalFactory struct{}

func (journalFactory) NewJournalFromDSN(dbType, dsn string) (Journal, error) {
	return NewJournalFromDSN(dbType, dsn)
}

func DefaultJournalFactory() JournalFactory { return journalFactory{} }

// sshHostFetcher probes a remote host's SSH key via the runner package.
type sshHostFetcher struct{}

func (sshHostFetcher) FetchHostKey(host string) (string, error) {
	key, err := runner.GetRemoteHostKey(host)
	if err != nil {
		return "", err
	}
	return runner.FormatHostKey(key), nil
}

func DefaultHostFetcher() HostFetcher { return sshHostFetcher{} }

// dbJournal adapts the db package-level helpers to the Journal interface.
type dbJournal struct{}

func (dbJournal) CreateRun(run *model.Run) error { return db.CreateRun(run) }
func (dbJournal) FinishRun(id, status, failedStep string, finishedAt time.Time) error {
	return db.FinishRun(id, status, failedStep, finishedAt)
}
func (dbJournal) GetRunByID(id string) (*model.Run, error) { return db.GetRunByID(id) }
func (dbJournal) GetAllRuns() ([]model.Run, error)         { return db.GetAllRuns() }
func (dbJournal) GetRecentRuns(limit int) ([]model.Run, error) {
	return db.GetRecentRuns(limit)
}
func (dbJournal) DeleteRun(id string) error                 { return db.DeleteRun(id) }
func (dbJournal) AddStepResult(res *model.StepResult) error { return db.AddStepResult(res) }
func (dbJournal) GetStepResults(runID string) ([]model.StepResult, error) {
	return db.GetStepResults(runID)
}
func (dbJournal) GetKnownHostKey(hostname string) (string, error) {
	return db.GetKnownHostKey(hostname)
}
func (dbJournal) AddKnownHostKey(hostname, key string) error { return db.AddKnownHostKey(hostname, key) }
func (dbJournal) DeleteKnownHostKey(hostname string) error   { return db.DeleteKnownHostKey(hostname) }
func (dbJournal) GetAllKnownHosts() ([]model.KnownHost, error) {
	return db.GetAllKnownHosts()
}
func (dbJournal) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return db.GetAllAuditLogEntries()
}
func (dbJournal) LogAction(action, details string) error { return db.LogAction(action, details) }
func (dbJournal) ExportDataForBackup() (*model.BackupData, error) {
	return db.ExportDataForBackup()
}
func (dbJournal) ImportDataFromBackup(backup *model.BackupData) error {
	return db.ImportDataFromBackup(backup)
}
func (dbJournal) IntegrateDataFromBackup(backup *model.BackupData) error {
	return db.IntegrateDataFromBackup(backup)
}

var _ Journal = dbJournal{}
