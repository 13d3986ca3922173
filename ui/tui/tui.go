// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package tui provides the terminal user interface for Groundwork.
// The top-level model in this file is a router: it owns the dashboard
// menu and hands every other view off to its sub-model.
package tui // import "github.com/groundwork-sh/groundwork/ui/tui"

import (
	"fmt"
	"maps"
	"os"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"

	"github.com/groundwork-sh/groundwork/internal/config"
	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/logging"
	"github.com/groundwork-sh/groundwork/internal/model"
)

// viewState selects which view owns the screen.
type viewState int

const (
	menuView viewState = iota
	provisionView
	planView
	historyView
	auditLogView
	envView
	languageView
)

// dashboardDataMsg delivers the journal summary for the menu view.
type dashboardDataMsg struct {
	data dashboardData
}

// languageChangedMsg asks the whole UI to rebuild itself with the new
// message catalog.
type languageChangedMsg struct{}

// dashboardData is what the menu view renders next to the navigation.
type dashboardData struct {
	runCount         int
	succeededCount   int
	failedCount      int
	interruptedCount int
	trustedHostCount int
	lastRun          *model.Run
	recentLogs       []model.AuditLogEntry
	err              error
}

// defaultJournal resolves the journal the TUI reads from. Kept as a variable
// so tests can swap in a fake without opening a database.
var defaultJournal = core.DefaultJournal

// configPersister saves the active configuration after TUI-side changes
// (currently only the language).
type configPersister interface {
	Save() error
}

// viperConfigSaver persists the configuration currently held by viper to the
// user config file.
type viperConfigSaver struct{}

func (viperConfigSaver) Save() error {
	cfg := config.Config{
		Journal: config.JournalConfig{
			Type: viper.GetString("journal.type"),
			Dsn:  viper.GetString("journal.dsn"),
		},
		Language: viper.GetString("language"),
		Profile:  viper.GetString("profile"),
	}
	return config.WriteConfigFile(&cfg, false)
}

var configSaver configPersister = viperConfigSaver{}

type mainModel struct {
	state     viewState
	menu      menuModel
	provision *provisionModel
	plan      planModel
	history   *historyModel
	auditLog  *auditLogModel
	env       envModel
	language  languageModel
	dashboard dashboardData
	width     int
	height    int
	err       error
	// Injected searcher propagated to the history view for run lookups.
	runSearcher core.RunSearcherFunc
}

type menuModel struct {
	choices []string
	cursor  int
}

// languageModel is the language picker. It is rendered here and driven
// by the router, it never receives messages of its own.
type languageModel struct {
	choices     map[string]string // lang code to display name
	orderedKeys []string          // stable display order
	cursor      int
}

// initialModelWithSearcher creates the starting state of the TUI while
// allowing injection of the run searcher used by the history view. Pass nil
// to fall back to in-memory filtering.
func initialModelWithSearcher(rs core.RunSearcherFunc) mainModel {
	return mainModel{
		state: menuView,
		menu: menuModel{
			choices: []string{
				i18n.T("menu.provision"),
				i18n.T("menu.plan"),
				i18n.T("menu.history"),
				i18n.T("menu.audit_log"),
				i18n.T("menu.env_schema"),
				i18n.T("menu.language"),
			},
		},
		runSearcher: rs,
	}
}

func initialModel() mainModel {
	return initialModelWithSearcher(core.DefaultRunSearcher())
}

// Init kicks off the first dashboard load.
func (m mainModel) Init() tea.Cmd {
	return refreshDashboardCmd()
}

// Update handles router-level messages itself and passes the rest to
// the active view.
func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case dashboardDataMsg:
		m.dashboard = msg.data
		if msg.data.err != nil {
			m.err = msg.data.err
		}
		return m, nil
	case languageChangedMsg:
		// Rebuild from scratch so every view picks up the new catalog.
		// Window dimensions and the injected searcher survive the reset.
		fresh := initialModelWithSearcher(m.runSearcher)
		fresh.width, fresh.height = m.width, m.height
		return fresh, fresh.Init()
	case backToMenuMsg:
		m.state = menuView
		return m, refreshDashboardCmd()
	}

	switch m.state {
	case menuView:
		return m.updateMenu(msg)
	case languageView:
		return m.updateLanguage(msg)
	default:
		return m.routeToActive(msg)
	}
}

// updateMenu drives the dashboard navigation.
func (m mainModel) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.menu.cursor > 0 {
			m.menu.cursor--
		}
	case "down", "j":
		if m.menu.cursor < len(m.menu.choices)-1 {
			m.menu.cursor++
		}
	case "enter":
		return m.openSelected()
	case "L":
		// Shortcut to the language picker from anywhere on the dashboard.
		m.state = languageView
		m.language = newLanguageModel()
	}
	return m, nil
}

// openSelected enters the view under the menu cursor. Indexes follow
// the order of menu.choices in initialModelWithSearcher.
func (m mainModel) openSelected() (tea.Model, tea.Cmd) {
	switch m.menu.cursor {
	case 0:
		m.state = provisionView
		m.provision = newProvisionModel()
		return m.forwardSize(m.provision.Init())
	case 1:
		m.state = planView
		m.plan = newPlanModel()
	case 2:
		m.state = historyView
		m.history = newHistoryModelWithSearcher(m.runSearcher)
		return m.forwardSize(nil)
	case 3:
		m.state = auditLogView
		m.auditLog = newAuditLogModel()
		return m.forwardSize(nil)
	case 4:
		m.state = envView
		m.env = newEnvModel()
	case 5:
		m.state = languageView
		m.language = newLanguageModel()
	}
	return m, nil
}

// forwardSize replays the current window size into the freshly opened
// view so tables and dialogs lay out before the next real resize.
func (m mainModel) forwardSize(extra tea.Cmd) (tea.Model, tea.Cmd) {
	next, cmd := m.routeToActive(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	return next, tea.Batch(cmd, extra)
}

// routeToActive hands msg to the sub-model owning the screen and stores
// the updated sub-model back.
func (m mainModel) routeToActive(msg tea.Msg) (mainModel, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case provisionView:
		var sub tea.Model
		sub, cmd = m.provision.Update(msg)
		m.provision = sub.(*provisionModel)
	case planView:
		var sub tea.Model
		sub, cmd = m.plan.Update(msg)
		m.plan = sub.(planModel)
	case historyView:
		var sub tea.Model
		sub, cmd = m.history.Update(msg)
		m.history = sub.(*historyModel)
	case auditLogView:
		var sub tea.Model
		sub, cmd = m.auditLog.Update(msg)
		m.auditLog = sub.(*auditLogModel)
	case envView:
		var sub tea.Model
		sub, cmd = m.env.Update(msg)
		m.env = sub.(envModel)
	}
	return m, cmd
}

// updateLanguage drives the language picker. Selecting an entry saves
// the choice and emits languageChangedMsg so the UI rebuilds.
func (m mainModel) updateLanguage(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "esc":
		m.state = menuView
		return m, refreshDashboardCmd()
	case "up", "k":
		if m.language.cursor > 0 {
			m.language.cursor--
		}
	case "down", "j":
		if m.language.cursor < len(m.language.orderedKeys)-1 {
			m.language.cursor++
		}
	case "enter":
		code := m.language.orderedKeys[m.language.cursor]
		i18n.SetLang(code)
		viper.Set("language", code)
		if err := configSaver.Save(); err != nil {
			m.err = fmt.Errorf("failed to save config: %w", err)
		}
		return m, func() tea.Msg { return languageChangedMsg{} }
	}
	return m, nil
}

// View delegates rendering to whichever view owns the screen.
func (m mainModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Padding(1, 2).
			Render(fmt.Sprintf("An error occurred: %v", m.err))
	}

	switch m.state {
	case provisionView:
		return m.provision.View()
	case planView:
		return m.plan.View()
	case historyView:
		return m.history.View()
	case auditLogView:
		return m.auditLog.View()
	case envView:
		return m.env.View()
	case languageView:
		return m.language.View()
	default:
		return m.menu.View(m.dashboard, m.width, m.height)
	}
}

var (
	dashPaneTitle = lipgloss.NewStyle().Bold(true)

	dashFooterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Italic(true)
)

// formatLabelPadding aligns a label/value pair on a fixed label column.
func formatLabelPadding(label, value string, labelWidth int) string {
	return core.FormatLabelPadding(label, value, labelWidth)
}

// View renders the dashboard: navigation on the left, journal summary
// on the right, one footer line below.
func (m menuModel) View(data dashboardData, width, height int) string {
	title := mainTitleStyle.Render("🛠️ " + i18n.T("dashboard.title"))
	header := lipgloss.JoinVertical(lipgloss.Left, title, helpStyle.Render(i18n.T("dashboard.subtitle")))
	footer := dashFooterStyle.Render(AlignFooter(i18n.T("dashboard.footer"), "", width))

	menuWidth := 38
	dashboardWidth := width - 4 - menuWidth - 2
	paneHeight := height - lipgloss.Height(header) - lipgloss.Height(footer) - 2

	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSubtle).
		Padding(1, 2)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		pane.Width(menuWidth).Height(paneHeight).Render(
			lipgloss.JoinVertical(lipgloss.Left, m.navItems()...)),
		pane.Width(dashboardWidth).Height(paneHeight).MarginLeft(2).Render(
			lipgloss.JoinVertical(lipgloss.Left, dashboardLines(data, dashboardWidth)...)),
	)

	return lipgloss.JoinVertical(lipgloss.Top, header, body, footer)
}

func (m menuModel) navItems() []string {
	items := []string{dashPaneTitle.Render(i18n.T("menu.navigation")), ""}
	for i, choice := range m.choices {
		marker, style := "  ", itemStyle
		if m.cursor == i {
			marker, style = "▸ ", selectedItemStyle
		}
		items = append(items, style.Render(marker+choice))
	}
	return items
}

// dashboardLines assembles the right pane: counters, the last run and
// the tail of the audit log.
func dashboardLines(data dashboardData, paneWidth int) []string {
	lines := []string{dashPaneTitle.Render(i18n.T("dashboard.journal_status")), ""}
	lines = append(lines, counterLines(data)...)
	lines = append(lines, "", "", dashPaneTitle.Render(i18n.T("dashboard.last_run")), "")
	lines = append(lines, lastRunLines(data.lastRun)...)
	lines = append(lines, "", "", dashPaneTitle.Render(i18n.T("dashboard.recent_activity")), "")
	return append(lines, recentLogLines(data.recentLogs, paneWidth)...)
}

func counterLines(data dashboardData) []string {
	failed := fmt.Sprintf("%d", data.failedCount)
	if data.failedCount > 0 {
		failed = errorStyle.Render(failed)
	}
	interrupted := fmt.Sprintf("%d", data.interruptedCount)
	if data.interruptedCount > 0 {
		interrupted = specialStyle.Render(interrupted)
	}
	runs := fmt.Sprintf("%d (%s ok, %s failed, %s interrupted)",
		data.runCount, successStyle.Render(fmt.Sprintf("%d", data.succeededCount)), failed, interrupted)

	rows := [][2]string{
		{i18n.T("dashboard.runs"), runs},
		{i18n.T("dashboard.trusted_hosts"), fmt.Sprintf("%d", data.trustedHostCount)},
	}
	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, len(r[0]))
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, formatLabelPadding(r[0], r[1], labelWidth))
	}
	return out
}

func lastRunLines(run *model.Run) []string {
	if run == nil {
		return []string{helpStyle.Render(i18n.T("dashboard.no_runs"))}
	}
	head := lipgloss.JoinHorizontal(lipgloss.Left,
		runStatusStyle(run.Status).Render(run.Status), "  ", run.String())
	detail := run.StartedAt.Format("2006-01-02 15:04")
	if run.FailedStep != "" {
		detail += "  " + specialStyle.Render(run.FailedStep)
	}
	return []string{head, helpStyle.Render(detail)}
}

// recentLogLines renders the newest audit entries, truncating details
// to what fits beside the timestamp and action.
func recentLogLines(logs []model.AuditLogEntry, paneWidth int) []string {
	if len(logs) == 0 {
		return []string{helpStyle.Render(i18n.T("dashboard.no_recent_activity"))}
	}
	var out []string
	for _, log := range logs {
		ts := log.Timestamp
		if len(ts) > 16 {
			ts = ts[5:16] // MM-DD HH:MM
		}
		// Pane borders and padding eat six cells.
		room := paneWidth - 6 - len(ts) - 1 - len(log.Action) - 1
		if room < 10 {
			room = 10
		}
		details := log.Details
		if len(details) > room {
			details = details[:room-3] + "..."
		}
		out = append(out, lipgloss.JoinHorizontal(lipgloss.Left,
			helpStyle.Render(ts), " ",
			auditActionStyle(log.Action).Render(log.Action), " ",
			helpStyle.Render(details)))
	}
	return out
}

// runStatusStyle maps a run status to the style used for it everywhere in
// the TUI.
func runStatusStyle(status string) lipgloss.Style {
	switch status {
	case model.RunStatusSucceeded:
		return successStyle
	case model.RunStatusFailed:
		return errorStyle
	case model.RunStatusInterrupted:
		return specialStyle
	default:
		return helpStyle
	}
}

func newLanguageModel() languageModel {
	choices := i18n.GetAvailableLocales()
	return languageModel{
		choices:     choices,
		orderedKeys: slices.Sorted(maps.Keys(choices)),
	}
}

func (m languageModel) View() string {
	title := mainTitleStyle.Render("🌐 " + i18n.T("menu.language"))

	items := []string{titleStyle.Render(i18n.T("language.select")), ""}
	for i, code := range m.orderedKeys {
		marker, style := "  ", itemStyle
		if m.cursor == i {
			marker, style = "▸ ", selectedItemStyle
		}
		items = append(items, style.Render(marker+m.choices[code]))
	}

	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSubtle).
		Padding(1, 2).
		Width(60)
	list := pane.Render(lipgloss.JoinVertical(lipgloss.Left, items...))
	help := dashFooterStyle.Render(AlignFooter(i18n.T("language.help"), "", 60))

	return lipgloss.JoinVertical(lipgloss.Left, title, "", list, "", help)
}

// Run starts the interactive terminal session and blocks until it ends.
func Run() {
	if _, err := tea.NewProgram(initialModel()).Run(); err != nil {
		logging.Errorf("TUI run error: %v", err)
		os.Exit(1)
	}
}

// refreshDashboardCmd loads the journal summary shown beside the menu.
func refreshDashboardCmd() tea.Cmd {
	return func() tea.Msg {
		d, err := core.BuildDashboardData(defaultJournal())
		if err != nil {
			return dashboardDataMsg{data: dashboardData{err: err}}
		}
		return dashboardDataMsg{data: dashboardData{
			runCount:         d.RunCount,
			succeededCount:   d.SucceededCount,
			failedCount:      d.FailedCount,
			interruptedCount: d.InterruptedCount,
			trustedHostCount: d.TrustedHostCount,
			lastRun:          d.LastRun,
			recentLogs:       d.RecentLogs,
		}}
	}
}
