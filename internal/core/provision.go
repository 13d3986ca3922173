// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/groundwork-sh/groundwork/internal/engine"
	"github.com/groundwork-sh/groundwork/internal/logging"
	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/groundwork-sh/groundwork/internal/profile"
	"github.com/groundwork-sh/groundwork/internal/runner"
)

// ProvisionOptions describes one provisioning request.
type ProvisionOptions struct {
	// Profile drives the plan. Nil means the built-in default profile.
	Profile *profile.Profile
	// Target is "local", "" (also local) or user@host[:port].
	Target string
	// Runner carries SSH credentials for remote targets.
	Runner runner.Options
	// Verify appends the health-check step when the profile declares a
	// health URL.
	Verify bool
}

// ProvisionResult is the journaled outcome of a provisioning run.
type ProvisionResult struct {
	Run    model.Run
	Report engine.Report
}

// RunProvision connects to the target, executes the plan derived from the
// profile and records the run in the journal. The returned error is the
// engine's verdict: nil only when every must-succeed step passed. Callers
// that want live progress attach an engine.Reporter; journal persistence is
// wired in here and does not depend on it.
//
// A nil Journal skips all journaling. The CLI always passes one; tests and
// dry-run style callers may not have a database open.
func RunProvision(ctx context.Context, opts ProvisionOptions, jr Journal, rep engine.Reporter) (*ProvisionResult, error) {
	p := opts.Profile
	if p == nil {
		p = profile.Default()
	}

	target := opts.Target
	if target == "" {
		target = "local"
	}

	r, err := runner.ConnectFunc(target, opts.Runner)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", target, err)
	}
	defer func() { _ = r.Close() }()

	plan := engine.BuildPlan(p, opts.Verify)

	run := model.Run{
		ID:        uuid.NewString(),
		Profile:   p.Service,
		Target:    r.Name(),
		Status:    model.RunStatusRunning,
		StartedAt: time.Now(),
	}

	reporters := make(engine.MultiReporter, 0, 2)
	if jr != nil {
		if err := jr.CreateRun(&run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		_ = jr.LogAction("PROVISION_START", run.String())
		reporters = append(reporters, journalReporter{jr: jr, runID: run.ID})
	}
	if rep != nil {
		reporters = append(reporters, rep)
	}

	report, execErr := engine.Execute(ctx, r, plan, reporters)

	run.Status = report.Status
	run.FailedStep = report.FailedStep
	run.FinishedAt = report.FinishedAt
	if jr != nil {
		if err := jr.FinishRun(run.ID, report.Status, report.FailedStep, report.FinishedAt); err != nil {
			logging.Warnf("journal: could not finish run %s: %v", run.ID, err)
		}
		_ = jr.LogAction("PROVISION_FINISH", fmt.Sprintf("%s: %s", run.String(), report.Status))
	}

	return &ProvisionResult{Run: run, Report: report}, execErr
}

// journalReporter persists step outcomes as they finish. Journal write
// failures are logged and swallowed; a journal hiccup must not abort a
// provisioning run that is already mutating the target.
type journalReporter struct {
	jr    Journal
	runID string
}

func (j journalReporter) PlanStarted(string, []engine.Step) {}
func (j journalReporter) StepStarted(int, engine.Step)      {}

func (j journalReporter) StepFinished(position int, outcome engine.Outcome) {
	res := &model.StepResult{
		RunID:    j.runID,
		Position: position,
		Name:     outcome.Step.Name,
		Title:    outcome.Step.Title(),
		Status:   outcome.Status,
		Message:  outcome.Message,
		Duration: outcome.Duration,
	}
	if err := j.jr.AddStepResult(res); err != nil {
		logging.Warnf("journal: could not record step %s: %v", outcome.Step.Name, err)
	}
}

func (j journalReporter) PlanFinished(engine.Report) {}

var _ engine.Reporter = journalReporter{}
