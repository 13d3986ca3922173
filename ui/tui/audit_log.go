package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/model"
)

type auditLogModel struct {
	table       table.Model
	allEntries  []model.AuditLogEntry
	filter      string
	filterCol   int // 0=all, 1=timestamp, 2=user, 3=action, 4=details
	isFiltering bool
	err         error
}

func newAuditLogModel() *auditLogModel {
	m := &auditLogModel{}
	entries, err := defaultJournal().GetAllAuditLogEntries()
	if err != nil {
		m.err = err
		return m
	}
	m.allEntries = entries
	m.table = newAuditTable()
	m.rebuildTableRows()
	return m
}

// auditHeaders returns the localized column titles. The filter-column
// cycle puts "all" in front of these, which is not a real column.
func auditHeaders() []string {
	return []string{
		i18n.T("audit_log.header.timestamp"),
		i18n.T("audit_log.header.user"),
		i18n.T("audit_log.header.action"),
		i18n.T("audit_log.header.details"),
	}
}

func newAuditTable() table.Model {
	widths := []int{20, 15, 25, 60}
	var cols []table.Column
	for i, title := range auditHeaders() {
		cols = append(cols, table.Column{Title: title, Width: widths[i]})
	}
	return newJournalTable(cols)
}

// auditActionStyle maps an audit action to its display style: green for
// actions that add trust or data, orange for destructive or drift actions,
// gray for routine run lifecycle entries. The table's Selected style
// overrides it on the highlighted row.
func auditActionStyle(action string) lipgloss.Style {
	switch {
	case strings.HasPrefix(action, "TRUST"),
		strings.HasPrefix(action, "RESTORE"),
		strings.HasPrefix(action, "INTEGRATE"):
		return successStyle
	case strings.HasPrefix(action, "DELETE_"),
		strings.HasPrefix(action, "UNTRUST"),
		strings.HasPrefix(action, "DOCTOR_"):
		return specialStyle
	case strings.HasPrefix(action, "PROVISION_"):
		return helpStyle
	}
	return itemStyle
}

// entryColumns lists an entry's filterable fields in column order.
func entryColumns(e model.AuditLogEntry) []string {
	return []string{e.Timestamp, e.Username, e.Action, e.Details}
}

// matchesFilter reports whether an entry survives the active filter.
// Column 0 matches against every column.
func (m *auditLogModel) matchesFilter(e model.AuditLogEntry) bool {
	if m.filter == "" {
		return true
	}
	cols := entryColumns(e)
	if m.filterCol > 0 {
		return core.ContainsIgnoreCase(cols[m.filterCol-1], m.filter)
	}
	for _, c := range cols {
		if core.ContainsIgnoreCase(c, m.filter) {
			return true
		}
	}
	return false
}

// displayTimestamp cuts fractional seconds, they only add noise at
// table width.
func displayTimestamp(ts string) string {
	if len(ts) > 19 {
		return ts[:19]
	}
	return ts
}

// rebuildTableRows projects the filtered entries into the table.
func (m *auditLogModel) rebuildTableRows() {
	var rows []table.Row
	for _, entry := range m.allEntries {
		if !m.matchesFilter(entry) {
			continue
		}
		rows = append(rows, table.Row{
			displayTimestamp(entry.Timestamp),
			entry.Username,
			auditActionStyle(entry.Action).Render(entry.Action),
			entry.Details,
		})
	}
	m.table.SetRows(rows)

	if m.isFiltering {
		m.table.GotoTop()
	}
}

func (m auditLogModel) Init() tea.Cmd {
	return nil
}

func (m *auditLogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Three lines of title above the table, three of footer below.
		m.table.SetHeight(msg.Height - 6)
		m.table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
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

// handleFilterKey edits the live filter. Enter commits it, esc drops it,
// tab and shift+tab move the column the filter applies to.
func (m *auditLogModel) handleFilterKey(msg tea.KeyMsg) {
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
	case tea.KeyTab:
		m.filterCol = (m.filterCol + 1) % 5
	case tea.KeyShiftTab:
		m.filterCol = (m.filterCol + 4) % 5
	default:
		return
	}
	m.rebuildTableRows()
}

func (m *auditLogModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error loading audit log: %v", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("📜 "+i18n.T("audit_log.title")) + "\n\n")
	if len(m.table.Rows()) == 0 {
		b.WriteString(helpStyle.Render(i18n.T("audit_log.empty")))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString(m.footerView())
	return b.String()
}

func (m *auditLogModel) footerView() string {
	status := "Press / to filter..."
	switch {
	case m.isFiltering:
		status = fmt.Sprintf("Filter [%s]: %s█ (tab to change column)", m.filterColName(), m.filter)
	case m.filter != "":
		status = fmt.Sprintf("Filter [%s]: %s (press 'esc' to clear)", m.filterColName(), m.filter)
	}
	return helpStyle.Render(fmt.Sprintf("\n(↑/↓ to scroll, tab: column, q to quit) %s", status))
}

// filterColName names the column the filter currently applies to.
func (m *auditLogModel) filterColName() string {
	names := append([]string{i18n.T("all")}, auditHeaders()...)
	return names[m.filterCol]
}
