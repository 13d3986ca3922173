// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.
package cli

import (
	"fmt"

	log "github.com/charmbracelet/log"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/engine"
	"github.com/groundwork-sh/groundwork/internal/model"
)

var (
	_ engine.Reporter     = (*cliStepReporter)(nil)
	_ core.Reporter       = (*cliReporter)(nil)
	_ core.DBMaintainer   = (*cliDBMaintainer)(nil)
	_ core.JournalFactory = (*cliJournalFactory)(nil)
)

// cliStepReporter implements engine.Reporter by printing plan progress as
// plain lines. Step announcements come before the step runs so long steps
// (package installs, pip) show what is currently happening.
type cliStepReporter struct {
	total int
}

func (r *cliStepReporter) PlanStarted(target string, steps []engine.Step) {
	r.total = len(steps)
}

func (r *cliStepReporter) StepStarted(position int, step engine.Step) {
	fmt.Printf("[%d/%d] %s\n", position+1, r.total, step.Title())
}

func (r *cliStepReporter) StepFinished(position int, outcome engine.Outcome) {
	// Skipped steps never get a StepStarted event, so print their header here.
	if outcome.Status == model.StepStatusSkipped {
		fmt.Printf("[%d/%d] %s\n      skipped: %s\n", position+1, r.total, outcome.Step.Title(), outcome.Message)
		return
	}
	if outcome.Message != "" {
		fmt.Printf("      %s: %s (%s)\n", outcome.Status, outcome.Message, core.FormatStepDuration(outcome.Duration))
		return
	}
	fmt.Printf("      %s (%s)\n", outcome.Status, core.FormatStepDuration(outcome.Duration))
}

func (r *cliStepReporter) PlanFinished(report engine.Report) {
	fmt.Println()
}

// cliReporter carries progress messages from long core operations (backup,
// restore, migrate) to the log.
type cliReporter struct{}

func (r *cliReporter) Reportf(format string, args ...any) {
	log.Infof(format, args...)
}

// cliDBMaintainer hands maintenance requests to the journal DB layer.
type cliDBMaintainer struct{}

func (c *cliDBMaintainer) RunDBMaintenance(dbType, dsn string, skipIntegrity bool) error {
	return core.DefaultDBMaintainer().RunDBMaintenance(dbType, dsn, skipIntegrity)
}

// cliJournalFactory opens journals for migration targets.
type cliJournalFactory struct{}

func (c *cliJournalFactory) NewJournalFromDSN(dbType, dsn string) (core.Journal, error) {
	return core.NewJournalFromDSN(dbType, dsn)
}
