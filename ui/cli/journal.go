// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// journal.go holds the commands that work on the journal database itself:
// run history, backup/restore, backend migration and maintenance.

package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/i18n"
)

// historyCmd represents the 'history' command. It lists journaled runs,
// newest first, with optional filtering.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List provisioning runs from the journal",
	Long: `Lists journaled provisioning runs, newest first.

--filter accepts either a filter expression (field:value pairs such as
status:failed target:db01, combinable with AND/OR) or free text, which is
matched against profile, target, status and failed step.`,
	Args:    cobra.NoArgs,
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		query, _ := cmd.Flags().GetString("filter")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := core.RunHistoryCmd(core.DefaultJournal(), core.DefaultRunSearcher(), query, limit)
		if err != nil {
			log.Fatalf("%s", i18n.T("history.error_load", err))
		}
		if len(runs) == 0 {
			fmt.Println(i18n.T("history.empty"))
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROFILE\tTARGET\tSTATUS\tFAILED STEP\tSTARTED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				shortRunID(r.ID), r.Profile, r.Target, r.Status, r.FailedStep,
				core.FormatRunTimestamp(r.StartedAt))
		}
		w.Flush()
		fmt.Printf("\n%s\n", i18n.T("history.runs_total", len(runs)))
	},
}

// showCmd represents the 'show' command. It prints one run with all of its
// step results. The run may be addressed by a unique ID prefix as printed
// by `history`.
var showCmd = &cobra.Command{
	Use:     "show <run-id>",
	Short:   "Show one run with its step results",
	Long:    `Shows a single journaled run in detail, including every step outcome. The run ID may be abbreviated to any unique prefix.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		jr := core.DefaultJournal()
		id, err := resolveRunID(jr, args[0])
		if err != nil {
			log.Fatalf("%s", i18n.T("show.error_load", err))
		}
		detail, err := core.RunDetailCmd(jr, id)
		if err != nil {
			log.Fatalf("%s", i18n.T("show.error_load", err))
		}

		const labelWidth = 12
		fmt.Println(core.FormatLabelPadding("Run", detail.Run.ID, labelWidth))
		fmt.Println(core.FormatLabelPadding("Profile", detail.Run.Profile, labelWidth))
		fmt.Println(core.FormatLabelPadding("Target", detail.Run.Target, labelWidth))
		fmt.Println(core.FormatLabelPadding("Status", detail.Run.Status, labelWidth))
		if detail.Run.FailedStep != "" {
			fmt.Println(core.FormatLabelPadding("Failed step", detail.Run.FailedStep, labelWidth))
		}
		fmt.Println(core.FormatLabelPadding("Started", core.FormatRunTimestamp(detail.Run.StartedAt), labelWidth))
		fmt.Println(core.FormatLabelPadding("Finished", core.FormatRunTimestamp(detail.Run.FinishedAt), labelWidth))

		if len(detail.Steps) == 0 {
			return
		}
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSTEP\tSTATUS\tDURATION\tMESSAGE")
		for _, s := range detail.Steps {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				s.Position+1, s.Name, s.Status, core.FormatStepDuration(s.Duration), s.Message)
		}
		w.Flush()
	},
}

// shortRunID abbreviates a run UUID for listings. `show` resolves prefixes
// back to the full ID.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveRunID accepts a full run ID or a unique prefix of one. A missing
// run is (nil, nil) from the journal, so it falls through to prefix
// matching, which produces the "no run matches" error.
func resolveRunID(jr core.Journal, arg string) (string, error) {
	if run, err := jr.GetRunByID(arg); err == nil && run != nil {
		return run.ID, nil
	}
	runs, err := jr.GetAllRuns()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, r := range runs {
		if strings.HasPrefix(r.ID, arg) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no run matches %q", arg)
	default:
		return "", fmt.Errorf("run id %q is ambiguous (%d matches)", arg, len(matches))
	}
}

// backupCmd represents the 'backup' command.
// It dumps all data from the journal into a single compressed JSON file.
var backupCmd = &cobra.Command{
	Use:   "backup [output-file]",
	Short: "Create a compressed (zstd) JSON backup of the journal",
	Long: `Dumps the entire contents of the journal database (runs, step results,
known hosts, audit log) into a single, Zstandard-compressed JSON file.

If an output file is specified, '.zst' will be appended to the name if it's
not already present. If no output file is specified, a default filename
'groundwork-backup-YYYY-MM-DD.json.zst' is used.

This file can be used for disaster recovery or for migrating to a different
journal backend.

Examples:
  # Backup to a default file (e.g., groundwork-backup-2025-10-26.json.zst)
  groundwork backup

  # Backup to a specific file
  groundwork backup my-backup.json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		var outputFile string
		if len(args) == 0 {
			outputFile = fmt.Sprintf("groundwork-backup-%s.json.zst", time.Now().Format("2006-01-02"))
		} else {
			outputFile = args[0]
			if !strings.HasSuffix(outputFile, ".zst") {
				outputFile += ".zst"
			}
		}
		fmt.Println(i18n.T("backup.cli_starting"))
		data, err := core.RunBackupCmd(cmd.Context(), core.DefaultJournal())
		if err != nil {
			log.Fatalf("%s", i18n.T("backup.cli_error_export", err))
		}
		outf, err := os.Create(outputFile)
		if err != nil {
			log.Fatalf("%s", i18n.T("backup.cli_error_write", err))
		}
		defer func() { _ = outf.Close() }()
		if err := core.RunWriteBackupCmd(cmd.Context(), data, outf); err != nil {
			log.Fatalf("%s", i18n.T("backup.cli_error_write", err))
		}
		fmt.Println(i18n.T("backup.cli_success", outputFile))
	},
}

// restoreCmd represents the 'restore' command.
// It restores the journal from a compressed JSON backup file.
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file.zst>",
	Short: "Restore the journal from a compressed JSON backup",
	Long: `Restores the entire Groundwork journal from a Zstandard-compressed JSON
backup file. By default, this command performs a non-destructive
"integration" restore, only adding data that does not already exist.

To perform a full, destructive restore that WIPES all existing data before
importing, use the --full flag.
WARNING: The --full flag is destructive and not reversible.
This command is intended for disaster recovery or for moving between
journal backends (e.g., from SQLite to PostgreSQL).

Example (Integrate):
  groundwork restore ./groundwork-backup-2025-10-26.json.zst

Example (Full Restore):
  groundwork restore --full ./groundwork-backup-2025-10-26.json.zst`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		inputFile := args[0]
		fmt.Println(i18n.T("restore.cli_starting", inputFile))
		f, err := os.Open(inputFile)
		if err != nil {
			log.Fatalf("%s", i18n.T("restore.cli_error_read", err))
		}
		defer func() { _ = f.Close() }()
		if err := core.RunRestoreCmd(cmd.Context(), f, core.RestoreOptions{Full: fullRestore}, core.DefaultJournal()); err != nil {
			log.Fatalf("%s", i18n.T("restore.cli_error_import", err))
		}
		fmt.Println(i18n.T("restore.cli_success"))
	},
}

// migrateCmd represents the 'migrate' command.
var migrateCmd = &cobra.Command{
	Use:   "migrate --type <db-type> --dsn <target-dsn>",
	Short: "Migrate the journal to a new database backend",
	Long: `Performs a journal migration by exporting all data from the current
journal (configured in groundwork.yaml) and importing it into a new target
database.

This command automates the following steps:
1. Exports data from the source journal in-memory.
2. Connects to the target database specified by --type and --dsn.
3. Applies all necessary schema migrations to the target.
4. Performs a full, destructive restore into the target database.

Example:
  groundwork migrate --type postgres --dsn "host=localhost user=groundwork dbname=groundwork"`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Target flags are separate from the journal.* config keys so they
		// cannot leak into the source journal configuration.
		targetType, _ := cmd.Flags().GetString("type")
		targetDsn, _ := cmd.Flags().GetString("dsn")
		if targetType == "" || targetDsn == "" {
			log.Fatalf("%s", i18n.T("migrate.cli_error_flags"))
		}
		fmt.Println(i18n.T("migrate.cli_starting_backup"))
		if err := core.RunMigrateCmd(cmd.Context(), &cliJournalFactory{}, core.DefaultJournal(), targetType, targetDsn, &cliReporter{}); err != nil {
			log.Fatalf("%s", i18n.T("migrate.cli_error_backup", err))
		}
		fmt.Println(i18n.T("migrate.cli_success"))
		fmt.Println(i18n.T("migrate.cli_next_steps"))
		return nil
	},
}

// dbMaintainCmd runs database maintenance tasks for the configured journal.
var dbMaintainCmd = &cobra.Command{
	Use:     "db-maintain",
	Short:   "Run journal maintenance (VACUUM/OPTIMIZE) for the configured DB",
	Long:    `Runs engine-specific maintenance tasks (VACUUM, OPTIMIZE TABLE, PRAGMA optimize) against the configured journal database.`,
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		skipIntegrity, _ := cmd.Flags().GetBool("skip-integrity")
		timeoutSec, _ := cmd.Flags().GetInt("timeout")
		dsn := appConfig.Journal.Dsn
		dbType := appConfig.Journal.Type
		if skipIntegrity {
			fmt.Println("Skipping integrity_check may speed up maintenance on large databases")
		}
		maint := &cliDBMaintainer{}
		if timeoutSec > 0 {
			done := make(chan error, 1)
			go func() {
				done <- core.RunDBMaintainCmd(cmd.Context(), maint, dbType, dsn, core.DBMaintenanceOptions{SkipIntegrity: skipIntegrity, Timeout: time.Duration(timeoutSec) * time.Second})
			}()
			select {
			case err := <-done:
				if err != nil {
					fmt.Printf("Maintenance failed: %v\n", err)
					os.Exit(1)
				}
				fmt.Println("Maintenance completed successfully")
			case <-time.After(time.Duration(timeoutSec) * time.Second):
				fmt.Println("Maintenance timed out")
				os.Exit(2)
			}
			return
		}
		if err := core.RunDBMaintainCmd(cmd.Context(), maint, dbType, dsn, core.DBMaintenanceOptions{SkipIntegrity: skipIntegrity}); err != nil {
			fmt.Printf("Maintenance failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Maintenance completed successfully")
	},
}
