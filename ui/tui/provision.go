// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package tui // import "github.com/groundwork-sh/groundwork/ui/tui"

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/engine"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/groundwork-sh/groundwork/internal/profile"
	"github.com/groundwork-sh/groundwork/internal/runner"
	"github.com/groundwork-sh/groundwork/internal/security"
	"github.com/groundwork-sh/groundwork/internal/state"
)

// A message to signal that we should go back to the main menu.
type backToMenuMsg struct{}

// provisionState represents the current view within the provisioning workflow.
type provisionState int

const (
	provisionStateTarget provisionState = iota
	provisionStateInProgress
	provisionStatePassphrase
	provisionStateComplete
)

// stepStartedMsg signals that the engine began executing a step.
type stepStartedMsg struct {
	position int
}

// stepFinishedMsg carries the recorded outcome of one finished step.
type stepFinishedMsg struct {
	position int
	outcome  engine.Outcome
}

// provisionDoneMsg signals that the whole run finished. It always arrives
// after the last step message because both travel on the same channel.
type provisionDoneMsg struct {
	result *core.ProvisionResult
	err    error
}

// provisionEventBuffer must hold every event of a run so the engine never
// blocks on a slow terminal: two events per step plus the final done message.
const provisionEventBuffer = 32

// channelReporter forwards engine progress into the Bubble Tea message loop.
type channelReporter struct {
	ch chan<- tea.Msg
}

func (c channelReporter) PlanStarted(string, []engine.Step) {}

func (c channelReporter) StepStarted(position int, _ engine.Step) {
	c.ch <- stepStartedMsg{position: position}
}

func (c channelReporter) StepFinished(position int, outcome engine.Outcome) {
	c.ch <- stepFinishedMsg{position: position, outcome: outcome}
}

func (c channelReporter) PlanFinished(engine.Report) {}

var _ engine.Reporter = channelReporter{}

// provisionModel represents the state of the provisioning view.
type provisionModel struct {
	state           provisionState
	targetInput     textinput.Model
	passphraseInput textinput.Model
	verify          bool
	profile         *profile.Profile
	profileErr      error
	target          string
	plan            []core.PlanStep
	running         int // position of the step currently executing, -1 when none
	outcomes        map[int]engine.Outcome
	events          chan tea.Msg
	cancel          context.CancelFunc
	interrupting    bool
	result          *core.ProvisionResult
	runErr          error
	width           int
	height          int
}

func newProvisionModel() *provisionModel {
	ti := textinput.New()
	ti.Placeholder = "local"
	ti.Prompt = "> "
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()

	pi := textinput.New()
	pi.Prompt = "> "
	pi.EchoMode = textinput.EchoPassword
	pi.EchoCharacter = '•'
	pi.CharLimit = 256
	pi.Width = 40

	m := &provisionModel{
		state:           provisionStateTarget,
		targetInput:     ti,
		passphraseInput: pi,
		running:         -1,
		outcomes:        make(map[int]engine.Outcome),
	}
	m.profile, m.profileErr = core.ResolveProfile(viper.GetString("profile"))
	if m.profileErr == nil {
		m.plan = core.BuildProvisionPlan(m.profile, m.verify)
	}
	return m
}

func (m provisionModel) Init() tea.Cmd { return textinput.Blink }

func (m *provisionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Engine events can arrive regardless of the current sub-state.
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case stepStartedMsg:
		m.running = msg.position
		return m, waitForProvisionEvent(m.events)
	case stepFinishedMsg:
		m.outcomes[msg.position] = msg.outcome
		if m.running == msg.position {
			m.running = -1
		}
		return m, waitForProvisionEvent(m.events)
	case provisionDoneMsg:
		m.interrupting = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if errors.Is(msg.err, runner.ErrPassphraseRequired) {
			m.state = provisionStatePassphrase
			m.passphraseInput.Reset()
			m.passphraseInput.Focus()
			return m, textinput.Blink
		}
		m.state = provisionStateComplete
		m.result = msg.result
		m.runErr = msg.err
		return m, nil
	}

	switch m.state {
	case provisionStateTarget:
		return m.updateTarget(msg)
	case provisionStateInProgress:
		return m.updateInProgress(msg)
	case provisionStatePassphrase:
		return m.updatePassphrase(msg)
	case provisionStateComplete:
		return m.updateComplete(msg)
	}
	return m, nil
}

func (m *provisionModel) updateTarget(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, func() tea.Msg { return backToMenuMsg{} }
		case "tab":
			m.verify = !m.verify
			if m.profileErr == nil {
				m.plan = core.BuildProvisionPlan(m.profile, m.verify)
			}
			return m, nil
		case "enter":
			if m.profileErr != nil {
				return m, nil
			}
			return m, m.startProvision()
		}
	}
	var cmd tea.Cmd
	m.targetInput, cmd = m.targetInput.Update(msg)
	return m, cmd
}

// startProvision kicks off the run in the background. Progress flows back
// through a single channel so step events and the final result stay ordered.
func (m *provisionModel) startProvision() tea.Cmd {
	m.target = strings.TrimSpace(m.targetInput.Value())
	if m.target == "" {
		m.target = "local"
	}

	m.plan = core.BuildProvisionPlan(m.profile, m.verify)
	m.outcomes = make(map[int]engine.Outcome, len(m.plan))
	m.running = -1
	m.state = provisionStateInProgress

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	events := make(chan tea.Msg, provisionEventBuffer)
	m.events = events

	opts := core.ProvisionOptions{
		Profile: m.profile,
		Target:  m.target,
		Runner:  runner.Options{Passphrase: security.FromBytes(state.PassphraseCache.Get())},
		Verify:  m.verify,
	}
	jr := defaultJournal()
	go func() {
		res, err := core.RunProvision(ctx, opts, jr, channelReporter{ch: events})
		events <- provisionDoneMsg{result: res, err: err}
		close(events)
	}()

	return waitForProvisionEvent(events)
}

// waitForProvisionEvent re-arms the listener for the next engine event.
func waitForProvisionEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *provisionModel) updateInProgress(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Input is ignored while the run executes, except for the interrupt.
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "esc" && !m.interrupting && m.cancel != nil {
			m.interrupting = true
			m.cancel()
		}
	}
	return m, nil
}

// updatePassphrase collects the identity file passphrase after a connect
// attempt came back locked, then restarts the run with the cache filled.
func (m *provisionModel) updatePassphrase(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			state.PassphraseCache.Set([]byte(m.passphraseInput.Value()))
			m.passphraseInput.Reset()
			return m, m.startProvision()
		case "esc":
			m.passphraseInput.Reset()
			m.state = provisionStateTarget
			m.targetInput.Focus()
			return m, textinput.Blink
		}
	}
	var cmd tea.Cmd
	m.passphraseInput, cmd = m.passphraseInput.Update(msg)
	return m, cmd
}

func (m *provisionModel) updateComplete(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc", "enter", "q":
			return m, func() tea.Msg { return backToMenuMsg{} }
		}
	}
	return m, nil
}

// View renders the provisioning UI.
func (m *provisionModel) View() string {
	paneStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSubtle).Padding(1, 2)
	helpFooterStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Background(lipgloss.Color("236")).Padding(0, 1).Italic(true)

	switch m.state {
	case provisionStateTarget:
		var b strings.Builder
		b.WriteString(titleStyle.Render("🚀 " + i18n.T("provision.tui.title")))
		b.WriteString("\n\n")
		if m.profileErr != nil {
			b.WriteString(errorStyle.Render(i18n.T("provision.tui.profile_error", m.profileErr)))
		} else {
			verifyLabel := i18n.T("provision.tui.verify_off")
			if m.verify {
				verifyLabel = i18n.T("provision.tui.verify_on")
			}
			b.WriteString(i18n.T("provision.tui.profile", m.profile.Service))
			b.WriteString("\n")
			b.WriteString(i18n.T("provision.tui.steps", len(m.plan)))
			b.WriteString("\n")
			b.WriteString(i18n.T("provision.tui.verify", verifyLabel))
			b.WriteString("\n\n")
			b.WriteString(i18n.T("provision.tui.target_prompt"))
			b.WriteString("\n\n")
			b.WriteString(m.targetInput.View())
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render(i18n.T("provision.tui.help_target")))

		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			dialogBoxStyle.Render(b.String()),
		)

	case provisionStateInProgress:
		title := titleStyle.Render("🚀 " + i18n.T("provision.tui.running", m.target))
		checklist := m.renderChecklist()
		mainPane := paneStyle.Width(60).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", checklist))
		if m.interrupting {
			mainPane += "\n" + helpFooterStyle.Render(i18n.T("provision.tui.interrupting"))
		}
		help := helpFooterStyle.Render(i18n.T("provision.tui.help_wait"))
		return lipgloss.JoinVertical(lipgloss.Left, mainPane, "", help)

	case provisionStatePassphrase:
		var b strings.Builder
		b.WriteString(titleStyle.Render("🔑 " + i18n.T("provision.tui.passphrase_title")))
		b.WriteString("\n\n")
		b.WriteString(i18n.T("provision.tui.passphrase_prompt", m.target))
		b.WriteString("\n\n")
		b.WriteString(m.passphraseInput.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render(i18n.T("provision.tui.passphrase_help")))

		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			dialogBoxStyle.Render(b.String()),
		)

	case provisionStateComplete:
		title := titleStyle.Render("✅ " + i18n.T("provision.tui.complete"))
		if m.runErr != nil {
			title = titleStyle.Render("💥 " + i18n.T("provision.tui.failed_title"))
		}
		checklist := m.renderChecklist()
		block := renderResultBlock(m.resultSummary(), m.resultWarnings(), m.runErr)
		mainPane := paneStyle.Width(60).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", checklist, "", block))
		help := helpFooterStyle.Render(i18n.T("provision.tui.help_complete"))
		return lipgloss.JoinVertical(lipgloss.Left, mainPane, "", help)
	}
	return ""
}

// renderChecklist renders one line per planned step with its live status.
func (m *provisionModel) renderChecklist() string {
	var statusLines []string
	for i, step := range m.plan {
		var status string
		if outcome, done := m.outcomes[i]; done {
			switch outcome.Status {
			case model.StepStatusOK:
				status = "✅ " + successStyle.Render(i18n.T("provision.tui.ok_short"))
			case model.StepStatusWarn:
				status = "🚨 " + specialStyle.Render(i18n.T("provision.tui.warn_short"))
			case model.StepStatusFailed:
				status = "🚨 " + errorStyle.Render(i18n.T("provision.tui.failed_short"))
			default:
				status = helpStyle.Render(i18n.T("provision.tui.skipped_short"))
			}
			if outcome.Duration > 0 {
				status += helpStyle.Render(fmt.Sprintf(" (%s)", outcome.Duration.Round(time.Millisecond)))
			}
		} else if m.running == i {
			status = selectedItemStyle.Render(i18n.T("provision.tui.running_short"))
		} else {
			status = helpStyle.Render(i18n.T("provision.tui.pending"))
		}
		statusLines = append(statusLines, fmt.Sprintf("  %s %s", step.Title, status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, statusLines...)
}

// resultSummary produces the primary line for the completion screen.
func (m *provisionModel) resultSummary() string {
	if m.result == nil {
		return ""
	}
	switch m.result.Run.Status {
	case model.RunStatusSucceeded:
		return i18n.T("provision.tui.success", m.result.Run.Target)
	case model.RunStatusInterrupted:
		return i18n.T("provision.tui.interrupted_msg")
	default:
		return i18n.T("provision.tui.failed_msg", m.result.Run.FailedStep)
	}
}

// resultWarnings lists the best-effort steps that failed during the run.
func (m *provisionModel) resultWarnings() []string {
	if m.result == nil {
		return nil
	}
	var warnings []string
	for _, o := range m.result.Report.Outcomes {
		if o.Status == model.StepStatusWarn {
			warnings = append(warnings, fmt.Sprintf("%s: %s", o.Step.Title(), o.Message))
		}
	}
	return warnings
}
