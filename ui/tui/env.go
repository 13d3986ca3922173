// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package tui // import "github.com/groundwork-sh/groundwork/ui/tui"

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/envfile"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/profile"
)

// envModel browses the profile's environment schema. Secret variables can be
// filled with freshly generated values and the resulting env file copied to
// the clipboard for pasting onto the target.
type envModel struct {
	profile   *profile.Profile
	err       error
	cursor    int
	generated map[string]string // values generated this session, by key
	copied    bool
}

func newEnvModel() envModel {
	m := envModel{generated: make(map[string]string)}
	m.profile, m.err = core.ResolveProfile(viper.GetString("profile"))
	return m
}

func (m envModel) Init() tea.Cmd { return nil }

func (m envModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "q", "esc":
			return m, func() tea.Msg { return backToMenuMsg{} }
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.err == nil && m.cursor < len(m.profile.Env)-1 {
				m.cursor++
			}
		case "g":
			// Generate a value for the selected secret variable.
			if m.err != nil || m.cursor >= len(m.profile.Env) {
				return m, nil
			}
			entry := m.profile.Env[m.cursor]
			if !entry.Secret {
				return m, nil
			}
			if v, err := core.GenerateSecret(32); err == nil {
				m.generated[entry.Key] = v
				m.copied = false
			}
		case "c":
			// Copy the rendered env file to the clipboard.
			if m.err != nil {
				return m, nil
			}
			if err := clipboard.WriteAll(m.renderedContent()); err == nil {
				m.copied = true
			}
		}
	}
	return m, nil
}

// renderedContent produces the env file content with this session's
// generated secrets filled in.
func (m envModel) renderedContent() string {
	content := envfile.Render(m.profile)
	for key, val := range m.generated {
		content = strings.Replace(content, key+"=\n", key+"="+val+"\n", 1)
	}
	return content
}

// View renders the environment schema listing.
func (m envModel) View() string {
	paneStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSubtle).Padding(1, 2)
	helpFooterStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Background(lipgloss.Color("236")).Padding(0, 1).Italic(true)

	if m.err != nil {
		title := titleStyle.Render("🔑 " + i18n.T("env.tui.title"))
		content := errorStyle.Render(fmt.Sprintf("%v", m.err))
		mainPane := paneStyle.Width(76).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
		help := helpFooterStyle.Render(i18n.T("env.tui.help"))
		return lipgloss.JoinVertical(lipgloss.Left, mainPane, "", help)
	}

	title := titleStyle.Render("🔑 " + i18n.T("env.tui.title_for", m.profile.Service))

	var listItems []string
	for i, entry := range m.profile.Env {
		valueCell := entry.Value
		if entry.Secret {
			if v, ok := m.generated[entry.Key]; ok {
				valueCell = successStyle.Render(v)
			} else {
				valueCell = specialStyle.Render(i18n.T("env.tui.secret_unset"))
			}
		} else if valueCell == "" {
			valueCell = helpStyle.Render(i18n.T("env.tui.empty"))
		}

		line := fmt.Sprintf("%-28s %s", entry.Key, valueCell)
		if m.cursor == i {
			listItems = append(listItems, selectedItemStyle.Render("▸ ")+line)
		} else {
			listItems = append(listItems, "  "+line)
		}
	}

	// Show copy status or help
	var statusLine string
	if m.copied {
		statusLine = successStyle.Render(i18n.T("env.tui.copied"))
	} else {
		statusLine = helpStyle.Render(i18n.T("env.tui.copy_hint"))
	}

	mainPane := paneStyle.Width(76).Render(lipgloss.JoinVertical(lipgloss.Left,
		title, "", lipgloss.JoinVertical(lipgloss.Left, listItems...), "", statusLine))
	help := helpFooterStyle.Render(i18n.T("env.tui.help"))
	return lipgloss.JoinVertical(lipgloss.Left, mainPane, "", help)
}
