// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package tui // import "github.com/groundwork-sh/groundwork/ui/tui"

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/profile"
)

// planModel shows the ordered step plan for the configured profile without
// executing anything.
type planModel struct {
	profile *profile.Profile
	steps   []core.PlanStep
	verify  bool
	err     error
}

func newPlanModel() planModel {
	m := planModel{}
	m.profile, m.err = core.ResolveProfile(viper.GetString("profile"))
	if m.err != nil {
		return m
	}
	m.steps = core.BuildProvisionPlan(m.profile, m.verify)
	return m
}

func (m planModel) Init() tea.Cmd { return nil }

func (m planModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "q", "esc":
			return m, func() tea.Msg { return backToMenuMsg{} }
		case "v": // toggle the verify step
			m.verify = !m.verify
			if m.err == nil {
				m.steps = core.BuildProvisionPlan(m.profile, m.verify)
			}
		}
	}
	return m, nil
}

// View renders the plan listing.
func (m planModel) View() string {
	paneStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSubtle).Padding(1, 2)
	helpFooterStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Background(lipgloss.Color("236")).Padding(0, 1).Italic(true)

	if m.err != nil {
		title := titleStyle.Render("📄 " + i18n.T("plan.tui.title_error"))
		content := errorStyle.Render(fmt.Sprintf("%v", m.err))
		mainPane := paneStyle.Width(60).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
		help := helpFooterStyle.Render(i18n.T("plan.tui.help"))
		return lipgloss.JoinVertical(lipgloss.Left, mainPane, "", help)
	}

	title := titleStyle.Render("📄 " + i18n.T("plan.tui.title", m.profile.Service))

	var listItems []string
	for _, s := range m.steps {
		marker := ""
		if s.BestEffort {
			marker = " " + specialStyle.Render(i18n.T("plan.best_effort"))
		}
		listItems = append(listItems, fmt.Sprintf("  %2d. %s%s", s.Position+1, s.Title, marker))
	}

	verifyLabel := i18n.T("provision.tui.verify_off")
	if m.verify {
		verifyLabel = i18n.T("provision.tui.verify_on")
	}
	listItems = append(listItems, "", helpStyle.Render(i18n.T("provision.tui.verify", verifyLabel)))

	mainPane := paneStyle.Width(60).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", lipgloss.JoinVertical(lipgloss.Left, listItems...)))
	help := helpFooterStyle.Render(i18n.T("plan.tui.help"))
	return lipgloss.JoinVertical(lipgloss.Left, mainPane, "", help)
}
