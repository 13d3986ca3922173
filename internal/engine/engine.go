// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package engine drives a provisioning plan against a target. A plan is an
// ordered list of named steps; the engine runs them strictly in order, stops
// at the first failed must-succeed step, marks everything after it as
// skipped, and reports progress to an attached Reporter. Best-effort steps
// may fail without stopping the run; their failures surface as warnings.
//
// The engine itself never talks to the journal or a UI. Callers attach
// Reporters for that, which keeps the execution semantics testable in
// isolation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/groundwork-sh/groundwork/internal/runner"
)

// Step is one unit of a provisioning plan. Run returns nil on success; the
// engine interprets errors according to BestEffort.
type Step struct {
	// Name is the stable machine identifier, e.g. "runtime-env". It keys
	// journal entries.
	Name string
	// TitleKey is the message id of the human title shown in plan listings
	// and progress output.
	TitleKey string
	// BestEffort steps report failures as warnings and never stop the run.
	BestEffort bool
	Run        func(ctx context.Context, r runner.Runner) (string, error)
}

// Title returns the localized human title for the step.
func (s Step) Title() string {
	return i18n.T(s.TitleKey)
}

// Outcome is the recorded result of one step.
type Outcome struct {
	Step     Step
	Status   string // model.StepStatusOK, Warn, Failed or Skipped
	Message  string
	Duration time.Duration
}

// Report is the full result of an executed plan.
type Report struct {
	Status     string // model.RunStatus*
	FailedStep string
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Reporter receives progress events while a plan executes. Implementations
// must be fast; the engine calls them synchronously.
type Reporter interface {
	PlanStarted(target string, steps []Step)
	StepStarted(position int, step Step)
	StepFinished(position int, outcome Outcome)
	PlanFinished(report Report)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) PlanStarted(string, []Step) {}
func (NopReporter) StepStarted(int, Step)      {}
func (NopReporter) StepFinished(int, Outcome)  {}
func (NopReporter) PlanFinished(Report)        {}

var _ Reporter = NopReporter{}

// MultiReporter fans events out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) PlanStarted(target string, steps []Step) {
	for _, r := range m {
		r.PlanStarted(target, steps)
	}
}

func (m MultiReporter) StepStarted(position int, step Step) {
	for _, r := range m {
		r.StepStarted(position, step)
	}
}

func (m MultiReporter) StepFinished(position int, outcome Outcome) {
	for _, r := range m {
		r.StepFinished(position, outcome)
	}
}

func (m MultiReporter) PlanFinished(report Report) {
	for _, r := range m {
		r.PlanFinished(report)
	}
}

// Execute runs the plan on the target. The returned error is nil only when
// every must-succeed step passed. An interrupted run reports
// model.RunStatusInterrupted and ErrInterrupted; it is never a success.
func Execute(ctx context.Context, r runner.Runner, plan []Step, rep Reporter) (Report, error) {
	if rep == nil {
		rep = NopReporter{}
	}

	report := Report{
		Status:    model.RunStatusRunning,
		Outcomes:  make([]Outcome, 0, len(plan)),
		StartedAt: time.Now(),
	}
	rep.PlanStarted(r.Name(), plan)

	var stepErr error
	interrupted := false

	for i, step := range plan {
		if report.FailedStep != "" || interrupted {
			outcome := Outcome{Step: step, Status: model.StepStatusSkipped, Message: i18n.T("engine.skipped_previous_failure")}
			report.Outcomes = append(report.Outcomes, outcome)
			rep.StepFinished(i, outcome)
			continue
		}

		if err := ctx.Err(); err != nil {
			interrupted = true
			outcome := Outcome{Step: step, Status: model.StepStatusSkipped, Message: i18n.T("engine.skipped_interrupt")}
			report.Outcomes = append(report.Outcomes, outcome)
			rep.StepFinished(i, outcome)
			continue
		}

		rep.StepStarted(i, step)
		start := time.Now()
		message, err := step.Run(ctx, r)
		outcome := Outcome{Step: step, Message: message, Duration: time.Since(start)}

		switch {
		case err == nil:
			outcome.Status = model.StepStatusOK
		case isInterrupt(ctx, err):
			interrupted = true
			outcome.Status = model.StepStatusFailed
			outcome.Message = i18n.T("engine.interrupted_during")
		case step.BestEffort:
			outcome.Status = model.StepStatusWarn
			outcome.Message = err.Error()
		default:
			outcome.Status = model.StepStatusFailed
			outcome.Message = err.Error()
			report.FailedStep = step.Name
			stepErr = fmt.Errorf("step %s: %w", step.Name, err)
		}

		report.Outcomes = append(report.Outcomes, outcome)
		rep.StepFinished(i, outcome)
	}

	report.FinishedAt = time.Now()
	switch {
	case interrupted:
		report.Status = model.RunStatusInterrupted
		stepErr = ErrInterrupted
	case report.FailedStep != "":
		report.Status = model.RunStatusFailed
	default:
		report.Status = model.RunStatusSucceeded
	}

	rep.PlanFinished(report)
	return report, stepErr
}

func isInterrupt(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// tail returns the last portion of command output for step messages, so
// journal entries stay readable when a package manager dumps pages of text.
func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
