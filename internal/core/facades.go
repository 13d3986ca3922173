// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// The journal-facing command logic behind the CLI. Everything here works
// against the interfaces in interfaces.go and reports through return values,
// so both UIs and the tests drive the same code paths.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/groundwork-sh/groundwork/internal/db"
	"github.com/groundwork-sh/groundwork/internal/model"
)

// RestoreOptions controls how Restore applies a backup.
type RestoreOptions struct {
	// Full wipes the journal and replaces it with the backup. The default
	// merges the backup into whatever is already there.
	Full bool
}

// DBMaintenanceOptions configures database maintenance operations.
type DBMaintenanceOptions struct {
	// SkipIntegrity skips the expensive integrity checks.
	SkipIntegrity bool
	// Timeout bounds the maintenance operation.
	Timeout time.Duration
}

// reportf forwards a progress line when a Reporter is present.
func reportf(rep Reporter, format string, args ...any) {
	if rep != nil {
		rep.Reportf(format, args...)
	}
}

// TrustHost fetches the key of canonicalHost and, when save is set, pins it
// in the journal.
func TrustHost(ctx context.Context, canonicalHost string, hf HostFetcher, jr Journal, save bool) (string, error) {
	key, err := hf.FetchHostKey(canonicalHost)
	if err != nil {
		return "", fmt.Errorf("fetch host key: %w", err)
	}
	if !save {
		return key, nil
	}
	if err := jr.AddKnownHostKey(canonicalHost, key); err != nil {
		return key, fmt.Errorf("save known host key: %w", err)
	}
	return key, nil
}

// Backup exports the journal into BackupData.
func Backup(ctx context.Context, jr Journal) (*model.BackupData, error) {
	return jr.ExportDataForBackup()
}

// WriteBackup streams data to w as zstd-compressed, indented JSON. The
// stream is only complete once the compressor is flushed, so Close errors
// are real failures here.
func WriteBackup(ctx context.Context, data *model.BackupData, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush backup: %w", err)
	}
	return nil
}

// Restore reads a backup stream and applies it to the journal according
// to opts.
func Restore(ctx context.Context, r io.Reader, opts RestoreOptions, jr Journal) error {
	data, err := readBackup(r)
	if err != nil {
		return err
	}
	if opts.Full {
		return jr.ImportDataFromBackup(data)
	}
	return jr.IntegrateDataFromBackup(data)
}

// readBackup decompresses and decodes one backup stream.
func readBackup(r io.Reader) (*model.BackupData, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &data, nil
}

// Migrate moves the run history to another database engine: export from the
// current journal, open the target through factory, import there.
func Migrate(ctx context.Context, factory JournalFactory, jr Journal, targetType, targetDsn string, rep Reporter) error {
	data, err := jr.ExportDataForBackup()
	if err != nil {
		return fmt.Errorf("export journal: %w", err)
	}
	reportf(rep, "Exported %d runs, %d step results, %d known hosts\n",
		len(data.Runs), len(data.StepResults), len(data.KnownHosts))

	target, err := factory.NewJournalFromDSN(targetType, targetDsn)
	if err != nil {
		return fmt.Errorf("init target journal: %w", err)
	}
	if err := target.ImportDataFromBackup(data); err != nil {
		return fmt.Errorf("import to target: %w", err)
	}
	reportf(rep, "Journal migrated to %s\n", targetType)
	return nil
}

// RunDBMaintenance delegates to DBMaintainer.
func RunDBMaintenance(ctx context.Context, maint DBMaintainer, dbType, dsn string, opts DBMaintenanceOptions) error {
	return maint.RunDBMaintenance(dbType, dsn, opts.SkipIntegrity)
}

// RunHistoryCmd lists journal runs for the `history` command. An empty query
// returns the most recent runs (all of them when limit <= 0); a non-empty
// query prefers the provided searcher and falls back to in-memory filtering.
func RunHistoryCmd(jr Journal, searcher RunSearcherFunc, query string, limit int) ([]model.Run, error) {
	if strings.TrimSpace(query) == "" {
		if limit > 0 {
			return jr.GetRecentRuns(limit)
		}
		return jr.GetAllRuns()
	}
	runs, err := jr.GetAllRuns()
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}
	return FilterRuns(runs, query, searcher), nil
}

// RunDetail pairs a run with its recorded step results.
type RunDetail struct {
	Run   model.Run
	Steps []model.StepResult
}

// RunDetailCmd loads one run and its step results by run ID.
func RunDetailCmd(jr Journal, id string) (*RunDetail, error) {
	run, err := jr.GetRunByID(id)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", db.ErrRunNotFound, id)
	}
	steps, err := jr.GetStepResults(id)
	if err != nil {
		return nil, fmt.Errorf("load step results: %w", err)
	}
	return &RunDetail{Run: *run, Steps: steps}, nil
}

// CLI-facing wrappers that call the core functions above. The CLI calls
// these facades instead of composing the lower layers itself.

func RunTrustHostCmd(ctx context.Context, canonicalHost string, hf HostFetcher, jr Journal, save bool) (string, error) {
	return TrustHost(ctx, canonicalHost, hf, jr, save)
}

func RunBackupCmd(ctx context.Context, jr Journal) (*model.BackupData, error) {
	return Backup(ctx, jr)
}

func RunWriteBackupCmd(ctx context.Context, data *model.BackupData, w io.Writer) error {
	return WriteBackup(ctx, data, w)
}

func RunRestoreCmd(ctx context.Context, r io.Reader, opts RestoreOptions, jr Journal) error {
	return Restore(ctx, r, opts, jr)
}

func RunMigrateCmd(ctx context.Context, factory JournalFactory, jr Journal, targetType, targetDsn string, rep Reporter) error {
	return Migrate(ctx, factory, jr, targetType, targetDsn, rep)
}

func RunDBMaintainCmd(ctx context.Context, maint DBMaintainer, dbType, dsn string, opts DBMaintenanceOptions) error {
	return RunDBMaintenance(ctx, maint, dbType, dsn, opts)
}
