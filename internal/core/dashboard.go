// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import "github.com/groundwork-sh/groundwork/internal/model"

// DashboardData holds aggregated values for the main dashboard.
type DashboardData struct {
	RunCount         int
	SucceededCount   int
	FailedCount      int
	InterruptedCount int
	TrustedHostCount int
	// LastRun is the most recent run, nil when the journal is empty.
	LastRun    *model.Run
	RecentLogs []model.AuditLogEntry
}

// recentLogCount caps how many audit entries the dashboard shows.
const recentLogCount = 5

// BuildDashboardData aggregates run outcomes, trusted hosts and the tail of
// the audit log for the dashboard.
func BuildDashboardData(jr Journal) (DashboardData, error) {
	runs, err := jr.GetAllRuns()
	if err != nil {
		return DashboardData{}, err
	}
	hosts, err := jr.GetAllKnownHosts()
	if err != nil {
		return DashboardData{}, err
	}
	logs, err := jr.GetAllAuditLogEntries()
	if err != nil {
		return DashboardData{}, err
	}

	out := DashboardData{
		RunCount:         len(runs),
		TrustedHostCount: len(hosts),
		RecentLogs:       logs[:min(len(logs), recentLogCount)],
	}
	for _, run := range runs {
		switch run.Status {
		case model.RunStatusSucceeded:
			out.SucceededCount++
		case model.RunStatusFailed:
			out.FailedCount++
		case model.RunStatusInterrupted:
			out.InterruptedCount++
		}
	}
	// GetAllRuns returns newest first.
	if len(runs) > 0 {
		out.LastRun = &runs[0]
	}
	return out, nil
}
