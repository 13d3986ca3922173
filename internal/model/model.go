// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures shared across Groundwork.
package model

import (
	"fmt"
	"time"
)

// Run statuses as persisted in the journal.
const (
	RunStatusRunning     = "running"
	RunStatusSucceeded   = "succeeded"
	RunStatusFailed      = "failed"
	RunStatusInterrupted = "interrupted"
)

// Step result statuses as persisted in the journal. Warn marks a best-effort
// step that failed without stopping the run.
const (
	StepStatusOK      = "ok"
	StepStatusWarn    = "warn"
	StepStatusFailed  = "failed"
	StepStatusSkipped = "skipped"
)

// Run represents one provisioning run of a profile against a target host.
type Run struct {
	ID         string    `json:"id"`      // UUID assigned when the run starts
	Profile    string    `json:"profile"` // service name from the profile
	Target     string    `json:"target"`  // "local" or user@host
	Status     string    `json:"status"`
	FailedStep string    `json:"failed_step"` // first failed must-succeed step, empty otherwise
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// String returns the "profile on target" representation used in listings.
func (r Run) String() string {
	return fmt.Sprintf("%s on %s", r.Profile, r.Target)
}

// Succeeded reports whether the run completed with every required step passing.
func (r Run) Succeeded() bool {
	return r.Status == RunStatusSucceeded
}

// StepResult records the outcome of a single provisioning step within a run.
type StepResult struct {
	ID       int           `json:"id"`
	RunID    string        `json:"run_id"`
	Position int           `json:"position"` // zero-based position in the executed plan
	Name     string        `json:"name"`     // stable step identifier, e.g. "runtime-env"
	Title    string        `json:"title"`    // localized human title at the time of the run
	Status   string        `json:"status"`
	Message  string        `json:"message"` // failure or skip reason, empty on success
	Duration time.Duration `json:"duration_ns"`
}

// String returns the "name: status" representation.
func (s StepResult) String() string {
	return fmt.Sprintf("%s: %s", s.Name, s.Status)
}

// AuditLogEntry represents a single audit trail record.
type AuditLogEntry struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}

// KnownHost represents a trusted host's public key.
type KnownHost struct {
	Hostname string `json:"hostname"`
	Key      string `json:"key"`
}

// BackupData is a container for all data to be exported for a backup.
// It holds slices of all the journal tables.
type BackupData struct {
	// SchemaVersion helps in handling migrations during restore.
	SchemaVersion int `json:"schema_version"`

	// Data from each table.
	Runs            []Run           `json:"runs"`
	StepResults     []StepResult    `json:"step_results"`
	KnownHosts      []KnownHost     `json:"known_hosts"`
	AuditLogEntries []AuditLogEntry `json:"audit_log_entries"`
}
