// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// bun_adapter.go holds the Bun models for the journal tables and the query
// helpers shared by every engine. Statements whose syntax differs between
// engines live in the per-dialect statement tables (see bunstore.go).
package db

import (
	"context"
	"database/sql"
	"errors"
	"os/user"
	"strings"
	"time"

	"github.com/groundwork-sh/groundwork/internal/db/filterexpr"
	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/uptrace/bun"
)

// RunModel is the Bun model for the runs table.
type RunModel struct {
	bun.BaseModel `bun:"table:runs"`
	ID            string         `bun:"id,pk"`
	Profile       string         `bun:"profile"`
	Target        string         `bun:"target"`
	Status        string         `bun:"status"`
	FailedStep    sql.NullString `bun:"failed_step"`
	StartedAt     time.Time      `bun:"started_at"`
	FinishedAt    sql.NullTime   `bun:"finished_at"`
}

// StepResultModel is the Bun model for the step_results table.
type StepResultModel struct {
	bun.BaseModel `bun:"table:step_results"`
	ID            int            `bun:"id,pk,autoincrement"`
	RunID         string         `bun:"run_id"`
	Position      int            `bun:"position"`
	Name          string         `bun:"name"`
	Title         string         `bun:"title"`
	Status        string         `bun:"status"`
	Message       sql.NullString `bun:"message"`
	DurationMS    int64          `bun:"duration_ms"`
}

// KnownHostModel is the Bun model for the known_hosts table.
type KnownHostModel struct {
	bun.BaseModel `bun:"table:known_hosts"`
	Hostname      string `bun:"hostname,pk"`
	Key           string `bun:"key"`
}

// AuditLogModel is the Bun model for the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Username      string `bun:"username"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

func runFromModel(m RunModel) model.Run {
	r := model.Run{ID: m.ID, Profile: m.Profile, Target: m.Target, Status: m.Status, StartedAt: m.StartedAt}
	if m.FailedStep.Valid {
		r.FailedStep = m.FailedStep.String
	}
	if m.FinishedAt.Valid {
		r.FinishedAt = m.FinishedAt.Time
	}
	return r
}

func runsFromModels(ms []RunModel) []model.Run {
	runs := make([]model.Run, len(ms))
	for i, m := range ms {
		runs[i] = runFromModel(m)
	}
	return runs
}

func stepFromModel(m StepResultModel) model.StepResult {
	s := model.StepResult{
		ID:       m.ID,
		RunID:    m.RunID,
		Position: m.Position,
		Name:     m.Name,
		Title:    m.Title,
		Status:   m.Status,
		Duration: time.Duration(m.DurationMS) * time.Millisecond,
	}
	if m.Message.Valid {
		s.Message = m.Message.String
	}
	return s
}

func auditFromModel(m AuditLogModel) model.AuditLogEntry {
	return model.AuditLogEntry{ID: m.ID, Timestamp: m.Timestamp, Username: m.Username, Action: m.Action, Details: m.Details}
}

// nullable turns an empty string into NULL so optional columns stay clean
// for ad-hoc SQL against the journal.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullableTime turns the zero time into NULL.
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// CreateRunBun inserts a new run row. The failed step and finish time stay
// NULL until FinishRunBun fills them in.
func CreateRunBun(bdb *bun.DB, run *model.Run) error {
	_, err := ExecRaw(context.Background(), bdb,
		"INSERT INTO runs (id, profile, target, status, started_at) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.Profile, run.Target, run.Status, run.StartedAt)
	return MapDBError(err)
}

// FinishRunBun records the outcome of a run.
func FinishRunBun(bdb *bun.DB, id, status, failedStep string, finishedAt time.Time) error {
	_, err := ExecRaw(context.Background(), bdb,
		"UPDATE runs SET status = ?, failed_step = ?, finished_at = ? WHERE id = ?",
		status, nullable(failedStep), finishedAt, id)
	return err
}

// GetRunByIDBun returns (nil, nil) for a missing run; absence is a normal
// answer for `show` and friends, not an error.
func GetRunByIDBun(bdb *bun.DB, id string) (*model.Run, error) {
	var rm RunModel
	err := bdb.NewSelect().Model(&rm).Where("id = ?", id).Limit(1).Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r := runFromModel(rm)
	return &r, nil
}

// GetAllRunsBun retrieves all runs, newest first.
func GetAllRunsBun(bdb *bun.DB) ([]model.Run, error) {
	var rms []RunModel
	if err := bdb.NewSelect().Model(&rms).OrderExpr("started_at DESC, id").Scan(context.Background()); err != nil {
		return nil, err
	}
	return runsFromModels(rms), nil
}

// GetRecentRunsBun retrieves the most recent runs up to limit.
func GetRecentRunsBun(bdb *bun.DB, limit int) ([]model.Run, error) {
	var rms []RunModel
	if err := bdb.NewSelect().Model(&rms).OrderExpr("started_at DESC, id").Limit(limit).Scan(context.Background()); err != nil {
		return nil, err
	}
	return runsFromModels(rms), nil
}

// DeleteRunBun removes a run and its step results in one transaction.
func DeleteRunBun(bdb *bun.DB, id string) error {
	return WithTx(context.Background(), bdb, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ExecRaw(ctx, tx, "DELETE FROM step_results WHERE run_id = ?", id); err != nil {
			return err
		}
		_, err := ExecRaw(ctx, tx, "DELETE FROM runs WHERE id = ?", id)
		return err
	})
}

// SearchRunsBun matches every token against profile, target, status and
// failed step with case-folded LIKEs. The same SQL works on all three
// engines, so `history --search` behaves identically no matter the DSN.
func SearchRunsBun(bdb *bun.DB, q string) ([]model.Run, error) {
	var rms []RunModel
	sel := bdb.NewSelect().Model(&rms)
	for _, tok := range TokenizeSearchQuery(q) {
		like := "%" + tok + "%"
		sel = sel.Where(
			"(LOWER(profile) LIKE ? OR LOWER(target) LIKE ? OR LOWER(status) LIKE ? OR LOWER(COALESCE(failed_step, '')) LIKE ?)",
			like, like, like, like)
	}
	if err := sel.OrderExpr("started_at DESC, id").Scan(context.Background()); err != nil {
		return nil, err
	}
	return runsFromModels(rms), nil
}

// SearchRunsExprBun filters runs with a boolean filter expression
// (see the filterexpr package). An empty expression returns all runs.
func SearchRunsExprBun(bdb *bun.DB, expr string) ([]model.Run, error) {
	if strings.TrimSpace(expr) == "" {
		return GetAllRunsBun(bdb)
	}
	builder, err := filterexpr.QueryBuilder(expr)
	if err != nil {
		return nil, err
	}
	var rms []RunModel
	sel := bdb.NewSelect().Model(&rms).ApplyQueryBuilder(builder)
	if err := sel.OrderExpr("started_at DESC, id").Scan(context.Background()); err != nil {
		return nil, err
	}
	return runsFromModels(rms), nil
}

// AddStepResultBun inserts a step result row. Durations are stored as whole
// milliseconds; an empty message becomes NULL.
func AddStepResultBun(bdb *bun.DB, res *model.StepResult) error {
	_, err := ExecRaw(context.Background(), bdb,
		"INSERT INTO step_results (run_id, position, name, title, status, message, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)",
		res.RunID, res.Position, res.Name, res.Title, res.Status, nullable(res.Message), res.Duration.Milliseconds())
	return MapDBError(err)
}

// GetStepResultsBun retrieves the step results of a run in plan order.
func GetStepResultsBun(bdb *bun.DB, runID string) ([]model.StepResult, error) {
	var sms []StepResultModel
	if err := bdb.NewSelect().Model(&sms).Where("run_id = ?", runID).OrderExpr("position ASC").Scan(context.Background()); err != nil {
		return nil, err
	}
	steps := make([]model.StepResult, len(sms))
	for i, sm := range sms {
		steps[i] = stepFromModel(sm)
	}
	return steps, nil
}

// GetKnownHostKeyBun returns the pinned key for a host, or "" when the host
// has not been trusted yet.
func GetKnownHostKeyBun(bdb *bun.DB, hostname string) (string, error) {
	var kh KnownHostModel
	err := bdb.NewSelect().Model(&kh).Where("hostname = ?", hostname).Limit(1).Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return kh.Key, nil
}

func DeleteKnownHostKeyBun(bdb *bun.DB, hostname string) error {
	_, err := ExecRaw(context.Background(), bdb, "DELETE FROM known_hosts WHERE hostname = ?", hostname)
	return err
}

func GetAllKnownHostsBun(bdb *bun.DB) ([]model.KnownHost, error) {
	var khs []KnownHostModel
	if err := bdb.NewSelect().Model(&khs).OrderExpr("hostname").Scan(context.Background()); err != nil {
		return nil, err
	}
	hosts := make([]model.KnownHost, len(khs))
	for i, k := range khs {
		hosts[i] = model.KnownHost{Hostname: k.Hostname, Key: k.Key}
	}
	return hosts, nil
}

// GetAllAuditLogEntriesBun retrieves audit log entries, newest first.
func GetAllAuditLogEntriesBun(bdb *bun.DB) ([]model.AuditLogEntry, error) {
	var ams []AuditLogModel
	if err := bdb.NewSelect().Model(&ams).OrderExpr("timestamp DESC").Scan(context.Background()); err != nil {
		return nil, err
	}
	entries := make([]model.AuditLogEntry, len(ams))
	for i, a := range ams {
		entries[i] = auditFromModel(a)
	}
	return entries, nil
}

// currentUsername names the acting OS user for the audit trail. Windows
// DOMAIN\user values are reduced to the bare user part.
func currentUsername() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	if i := strings.LastIndex(u.Username, `\`); i >= 0 {
		return u.Username[i+1:]
	}
	return u.Username
}

// LogActionBun appends an audit trail entry attributed to the current user.
func LogActionBun(bdb *bun.DB, action string, details string) error {
	_, err := ExecRaw(context.Background(), bdb,
		"INSERT INTO audit_log (username, action, details) VALUES (?, ?, ?)",
		currentUsername(), action, details)
	return MapDBError(err)
}

// ExportDataForBackupBun snapshots all four tables inside one transaction.
func ExportDataForBackupBun(bdb *bun.DB) (*model.BackupData, error) {
	backup := &model.BackupData{SchemaVersion: 1}
	err := WithTx(context.Background(), bdb, func(ctx context.Context, tx bun.Tx) error {
		var rms []RunModel
		if err := tx.NewSelect().Model(&rms).OrderExpr("started_at, id").Scan(ctx); err != nil {
			return err
		}
		backup.Runs = runsFromModels(rms)

		var sms []StepResultModel
		if err := tx.NewSelect().Model(&sms).OrderExpr("run_id, position").Scan(ctx); err != nil {
			return err
		}
		for _, sm := range sms {
			backup.StepResults = append(backup.StepResults, stepFromModel(sm))
		}

		var khs []KnownHostModel
		if err := tx.NewSelect().Model(&khs).Scan(ctx); err != nil {
			return err
		}
		for _, k := range khs {
			backup.KnownHosts = append(backup.KnownHosts, model.KnownHost{Hostname: k.Hostname, Key: k.Key})
		}

		var als []AuditLogModel
		if err := tx.NewSelect().Model(&als).Scan(ctx); err != nil {
			return err
		}
		for _, a := range als {
			backup.AuditLogEntries = append(backup.AuditLogEntries, auditFromModel(a))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backup, nil
}

// auditTimestamp converts stored RFC3339 timestamps back to time.Time so
// MySQL DATETIME columns accept them on restore; unparseable layouts pass
// through with the separator normalized to a space.
func auditTimestamp(s string) interface{} {
	if s == "" {
		return s
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	s = strings.Replace(s, "T", " ", 1)
	return strings.TrimSuffix(s, "Z")
}

// importBackupBun wipes the journal and replays the snapshot. hostsSQL is
// engine-specific because the key column needs quoting on MySQL.
func importBackupBun(bdb *bun.DB, backup *model.BackupData, hostsSQL string) error {
	return WithTx(context.Background(), bdb, func(ctx context.Context, tx bun.Tx) error {
		// Children before parents.
		for _, table := range []string{"step_results", "runs", "audit_log", "known_hosts"} {
			if _, err := ExecRaw(ctx, tx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		for _, r := range backup.Runs {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO runs (id, profile, target, status, failed_step, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
				r.ID, r.Profile, r.Target, r.Status, nullable(r.FailedStep), r.StartedAt, nullableTime(r.FinishedAt)); err != nil {
				return MapDBError(err)
			}
		}
		for _, s := range backup.StepResults {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO step_results (id, run_id, position, name, title, status, message, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				s.ID, s.RunID, s.Position, s.Name, s.Title, s.Status, nullable(s.Message), s.Duration.Milliseconds()); err != nil {
				return MapDBError(err)
			}
		}
		for _, kh := range backup.KnownHosts {
			if _, err := ExecRaw(ctx, tx, hostsSQL, kh.Hostname, kh.Key); err != nil {
				return MapDBError(err)
			}
		}
		for _, ale := range backup.AuditLogEntries {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO audit_log (id, timestamp, username, action, details) VALUES (?, ?, ?, ?, ?)",
				ale.ID, auditTimestamp(ale.Timestamp), ale.Username, ale.Action, ale.Details); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}
