// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package tui // import "github.com/groundwork-sh/groundwork/ui/tui"

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/model"
)

// historyState tracks whether the list or one run's detail is shown.
type historyState int

const (
	historyStateList historyState = iota
	historyStateDetail
)

// historyModel lists journaled runs and lets the user drill into one run's
// step results.
type historyModel struct {
	state       historyState
	table       table.Model
	allRuns     []model.Run // newest first, as the journal returns them
	visible     []model.Run // rows currently in the table
	filter      string
	isFiltering bool
	searcher    core.RunSearcherFunc
	detail      *core.RunDetail
	err         error
}

func newHistoryModelWithSearcher(rs core.RunSearcherFunc) *historyModel {
	m := &historyModel{searcher: rs}
	runs, err := defaultJournal().GetAllRuns()
	if err != nil {
		m.err = err
		return m
	}
	m.allRuns = runs
	m.table = newJournalTable([]table.Column{
		{Title: i18n.T("history.header.id"), Width: 10},
		{Title: i18n.T("history.header.profile"), Width: 18},
		{Title: i18n.T("history.header.target"), Width: 22},
		{Title: i18n.T("history.header.status"), Width: 12},
		{Title: i18n.T("history.header.started"), Width: 17},
	})
	m.rebuildTableRows()
	return m
}

// runRow renders one run as a table row. IDs show their first eight
// characters, enough to tell runs apart.
func runRow(run model.Run) table.Row {
	id := run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return table.Row{
		id,
		run.Profile,
		run.Target,
		runStatusStyle(run.Status).Render(run.Status),
		run.StartedAt.Format("2006-01-02 15:04"),
	}
}

// rebuildTableRows reapplies the filter and projects the survivors into
// the table.
func (m *historyModel) rebuildTableRows() {
	m.visible = core.FilterRuns(m.allRuns, m.filter, m.searcher)
	rows := make([]table.Row, 0, len(m.visible))
	for _, run := range m.visible {
		rows = append(rows, runRow(run))
	}
	m.table.SetRows(rows)

	if m.isFiltering {
		m.table.GotoTop()
	}
}

func (m historyModel) Init() tea.Cmd { return nil }

func (m *historyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Three lines of title above the table, three of footer below.
		m.table.SetHeight(msg.Height - 6)
		m.table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		if m.state == historyStateDetail {
			switch msg.String() {
			case "q", "esc", "enter":
				m.state = historyStateList
				m.detail = nil
			}
			return m, nil
		}
		if m.isFiltering {
			m.handleFilterKey(msg)
			return m, nil
		}
		switch msg.String() {
		case "/":
			m.isFiltering = true
			m.filter = ""
			m.rebuildTableRows()
			return m, nil
		case "enter":
			m.openDetail()
			return m, nil
		case "q", "esc":
			if m.filter != "" {
				m.filter = ""
				m.isFiltering = false
				m.rebuildTableRows()
				return m, nil
			}
			return m, func() tea.Msg { return backToMenuMsg{} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// handleFilterKey edits the live filter. Enter commits it, esc drops it.
func (m *historyModel) handleFilterKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEsc:
		m.isFiltering = false
		m.filter = ""
	case tea.KeyEnter:
		m.isFiltering = false
		return
	case tea.KeyBackspace:
		if m.filter == "" {
			return
		}
		m.filter = m.filter[:len(m.filter)-1]
	case tea.KeyRunes:
		m.filter += string(msg.Runes)
	default:
		return
	}
	m.rebuildTableRows()
}

// openDetail loads the run under the cursor with its step results.
func (m *historyModel) openDetail() {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return
	}
	detail, err := core.RunDetailCmd(defaultJournal(), m.visible[idx].ID)
	if err != nil {
		m.err = err
		return
	}
	m.detail = detail
	m.state = historyStateDetail
}

func (m *historyModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error loading run history: %v", m.err))
	}
	if m.state == historyStateDetail && m.detail != nil {
		return m.detailView()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("🗂️ "+i18n.T("history.tui.title")) + "\n\n")
	if len(m.table.Rows()) == 0 {
		b.WriteString(helpStyle.Render(i18n.T("history.tui.empty")))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString(m.footerView())
	return b.String()
}

// detailView renders one run with its recorded step results.
func (m *historyModel) detailView() string {
	run := m.detail.Run

	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Left,
			runStatusStyle(run.Status).Render(run.Status), "  ", run.String()),
		helpStyle.Render(run.ID),
		helpStyle.Render(fmt.Sprintf("%s  %s", run.StartedAt.Format("2006-01-02 15:04:05"), runDuration(run))),
		"",
	}
	if len(m.detail.Steps) == 0 {
		lines = append(lines, helpStyle.Render(i18n.T("history.tui.no_steps")))
	}
	for _, step := range m.detail.Steps {
		lines = append(lines, stepResultLine(step))
		if step.Message != "" {
			lines = append(lines, helpStyle.Render("      "+step.Message))
		}
	}

	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSubtle).
		Padding(1, 2).
		Width(76)
	title := titleStyle.Render("🗂️ " + i18n.T("history.tui.detail_title"))
	body := pane.Render(lipgloss.JoinVertical(lipgloss.Left,
		title, "", lipgloss.JoinVertical(lipgloss.Left, lines...)))
	return lipgloss.JoinVertical(lipgloss.Left, body, "",
		dashFooterStyle.Render(i18n.T("history.tui.help_detail")))
}

// runDuration formats the wall time of a finished run. Unfinished runs
// show a dash.
func runDuration(run model.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}

// stepResultLine renders one recorded step with its status and timing.
func stepResultLine(step model.StepResult) string {
	var status string
	switch step.Status {
	case model.StepStatusOK:
		status = successStyle.Render(step.Status)
	case model.StepStatusWarn:
		status = specialStyle.Render(step.Status)
	case model.StepStatusFailed:
		status = errorStyle.Render(step.Status)
	default:
		status = helpStyle.Render(step.Status)
	}
	line := fmt.Sprintf("  %2d. %-24s %s", step.Position+1, step.Title, status)
	if step.Duration > 0 {
		line += helpStyle.Render(fmt.Sprintf(" (%s)", step.Duration.Round(time.Millisecond)))
	}
	return line
}

func (m *historyModel) footerView() string {
	filterStatus := getFilterStatusLine(m.isFiltering, m.filter, FilterI18nKeys{
		Filtering:    "history.tui.filtering",
		FilterActive: "history.tui.filter_active",
		FilterHint:   "history.tui.filter_hint",
	})
	return helpStyle.Render(fmt.Sprintf("\n(↑/↓ to scroll, enter: details, q to quit) %s", filterStatus))
}
