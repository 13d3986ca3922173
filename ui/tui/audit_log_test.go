// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/model"
)

func auditEntriesFixture() []model.AuditLogEntry {
	return []model.AuditLogEntry{
		{Timestamp: "2025-03-16T08:00:00Z", Username: "deploy", Action: "DELETE_RUN", Details: "a1b2c3d4"},
		{Timestamp: "2025-03-15T11:00:00Z", Username: "deploy", Action: "TRUST_HOST", Details: "db01 ssh-ed25519"},
		{Timestamp: "2025-03-14T09:32:10.482913Z", Username: "root", Action: "PROVISION_FINISH", Details: "succeeded"},
		{Timestamp: "2025-03-14T09:31:00Z", Username: "root", Action: "PROVISION_START", Details: "gallery-backend on db01"},
	}
}

func TestAuditLogModel_RebuildFiltersByColumn(t *testing.T) {
	i18n.Init("en")
	m := &auditLogModel{allEntries: auditEntriesFixture()}

	m.rebuildTableRows()
	rows := m.table.Rows()
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	// Fractional seconds are cut from the timestamp column.
	if rows[2][0] != "2025-03-14T09:32:10" {
		t.Fatalf("timestamp not truncated: %q", rows[2][0])
	}
	if !strings.Contains(rows[1][2], "TRUST_HOST") {
		t.Fatalf("action cell lost its text: %q", rows[1][2])
	}

	cases := []struct {
		col    int
		filter string
		want   int
	}{
		{0, "trust", 1},
		{0, "db01", 2},
		{1, "2025-03-15", 1},
		{2, "deploy", 2},
		{3, "provision", 2},
		{4, "succeeded", 1},
		{0, "nope", 0},
	}
	for _, c := range cases {
		m.filterCol = c.col
		m.filter = c.filter
		m.rebuildTableRows()
		if got := len(m.table.Rows()); got != c.want {
			t.Errorf("col %d filter %q: expected %d rows, got %d", c.col, c.filter, c.want, got)
		}
	}
}

func TestAuditLogModel_JournalBacked(t *testing.T) {
	initTestJournalT(t)
	i18n.Init("en")

	jr := defaultJournal()
	if err := jr.LogAction("TRUST_HOST", "db01 ssh-ed25519 AAAA"); err != nil {
		t.Fatalf("LogAction failed: %v", err)
	}
	if err := jr.LogAction("PROVISION_START", "gallery-backend on local"); err != nil {
		t.Fatalf("LogAction failed: %v", err)
	}

	m := newAuditLogModel()
	if m.err != nil {
		t.Fatalf("unexpected err: %v", m.err)
	}
	rows := m.table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	var actions []string
	for _, row := range rows {
		actions = append(actions, row[2])
	}
	joined := strings.Join(actions, " ")
	if !strings.Contains(joined, "TRUST_HOST") || !strings.Contains(joined, "PROVISION_START") {
		t.Fatalf("journal entries missing from table: %v", actions)
	}

	if view := m.View(); !strings.Contains(view, "📜") {
		t.Fatalf("view missing title: %q", view)
	}
}

func TestAuditLogModel_FilterKeysAndFooter(t *testing.T) {
	initTestJournalT(t)
	i18n.Init("en")

	m := newAuditLogModel()
	m.allEntries = auditEntriesFixture()
	m.rebuildTableRows()

	if footer := m.footerView(); !strings.Contains(footer, "Press / to filter...") {
		t.Fatalf("idle footer = %q", footer)
	}

	mi, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m = mi.(*auditLogModel)
	if !m.isFiltering {
		t.Fatal("/ did not start filtering")
	}
	if footer := m.footerView(); !strings.Contains(footer, "tab to change column") {
		t.Fatalf("filtering footer = %q", footer)
	}

	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("tr")})
	m = mi.(*auditLogModel)
	if m.filter != "tr" {
		t.Fatalf("filter = %q", m.filter)
	}
	if len(m.table.Rows()) != 1 {
		t.Fatalf("expected 1 row for %q, got %d", m.filter, len(m.table.Rows()))
	}

	// Tab cycles the filter column forward, shift+tab backward.
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = mi.(*auditLogModel)
	if m.filterCol != 1 {
		t.Fatalf("filterCol = %d after tab", m.filterCol)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = mi.(*auditLogModel)
	if m.filterCol != 0 {
		t.Fatalf("filterCol = %d after shift+tab", m.filterCol)
	}

	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = mi.(*auditLogModel)
	if m.filter != "t" {
		t.Fatalf("backspace left filter %q", m.filter)
	}

	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = mi.(*auditLogModel)
	if m.isFiltering || m.filter != "t" {
		t.Fatalf("enter should commit the filter: filtering=%v filter=%q", m.isFiltering, m.filter)
	}
	if footer := m.footerView(); !strings.Contains(footer, "press 'esc' to clear") {
		t.Fatalf("committed footer = %q", footer)
	}

	// q drops the committed filter first, then leaves the view.
	mi, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = mi.(*auditLogModel)
	if m.filter != "" {
		t.Fatalf("q did not clear the filter: %q", m.filter)
	}
	if cmd != nil {
		if _, ok := cmd().(backToMenuMsg); ok {
			t.Fatal("q with an active filter must not leave the view")
		}
	}
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(backToMenuMsg); !ok {
		t.Fatal("expected backToMenuMsg")
	}
}
