// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/viper"

	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/profile"
)

func TestPlanModel_VerifyToggle(t *testing.T) {
	i18n.Init("en")
	p := profile.Default()
	p.HealthURL = "http://127.0.0.1:8000/health"
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := p.Save(path); err != nil {
		t.Fatalf("could not save profile: %v", err)
	}
	viper.Set("profile", path)
	defer viper.Set("profile", "")

	m := newPlanModel()
	if m.err != nil {
		t.Fatalf("profile should load: %v", m.err)
	}
	if len(m.steps) != 10 {
		t.Fatalf("expected 10 steps, got %d", len(m.steps))
	}

	mi, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	m = mi.(planModel)
	if len(m.steps) != 11 {
		t.Fatalf("expected 11 steps with the health check, got %d", len(m.steps))
	}
	last := m.steps[len(m.steps)-1]
	if last.Name != "verify" || !last.BestEffort {
		t.Fatalf("unexpected final step: %+v", last)
	}
	if view := m.View(); !strings.Contains(view, i18n.T("plan.best_effort")) {
		t.Fatalf("view does not mark the best-effort step: %q", view)
	}

	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	m = mi.(planModel)
	if len(m.steps) != 10 {
		t.Fatalf("expected 10 steps after toggling back, got %d", len(m.steps))
	}
}

func TestPlanModel_KeysReturnToMenu(t *testing.T) {
	i18n.Init("en")
	viper.Set("profile", "")

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyEsc},
		{Type: tea.KeyRunes, Runes: []rune("q")},
	} {
		m := newPlanModel()
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("key %s: expected a command", key.String())
		}
		if _, ok := cmd().(backToMenuMsg); !ok {
			t.Fatalf("key %s: expected backToMenuMsg", key.String())
		}
	}
}

func TestPlanModel_BrokenProfileRendersError(t *testing.T) {
	i18n.Init("en")
	viper.Set("profile", filepath.Join(t.TempDir(), "missing.yaml"))
	defer viper.Set("profile", "")

	m := newPlanModel()
	if m.err == nil {
		t.Fatal("expected a profile error")
	}
	view := m.View()
	if !strings.Contains(view, i18n.T("plan.tui.title_error")) {
		t.Fatalf("error view missing title: %q", view)
	}

	// The toggle must not panic without a loaded profile.
	mi, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	m = mi.(planModel)
	if m.steps != nil {
		t.Fatalf("no steps should exist on a broken profile: %+v", m.steps)
	}
}
