// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/groundwork-sh/groundwork/internal/i18n"
)

// newJournalTable builds a focused table with the header and selection
// styling shared by every tabular view.
func newJournalTable(cols []table.Column) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(15), // resized on the first WindowSizeMsg
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSubtle).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorWhite).
		Background(colorHighlight).
		Bold(false)
	t.SetStyles(s)
	return t
}

// FilterI18nKeys names the translation keys a view uses for its filter
// footer. Each filterable view carries its own set.
type FilterI18nKeys struct {
	Filtering    string // e.g. "history.tui.filtering"
	FilterActive string // e.g. "history.tui.filter_active"
	FilterHint   string // e.g. "history.tui.filter_hint"
}

// getFilterStatusLine builds the footer fragment describing the filter
// state. formatArgs precede the filter text in the format string, so a
// view can splice in its column name.
func getFilterStatusLine(isFiltering bool, filterText string, keys FilterI18nKeys, formatArgs ...interface{}) string {
	args := append(formatArgs, filterText)
	switch {
	case isFiltering:
		return i18n.T(keys.Filtering, args...)
	case filterText != "":
		return i18n.T(keys.FilterActive, args...)
	default:
		return i18n.T(keys.FilterHint)
	}
}

// AlignFooter lays out a footer line of `width` columns with `left` at the
// start and `right` pushed to the end. When the width cannot hold both, a
// single space keeps the tokens apart.
func AlignFooter(left, right string, width int) string {
	spaces := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

// renderResultBlock stacks a primary message, optional warnings and an
// error into one block, blank lines between the sections. Strings come
// in already localized.
func renderResultBlock(primary string, warnings []string, err error) string {
	var sections []string
	if primary != "" {
		sections = append(sections, primary)
	}
	if len(warnings) > 0 {
		block := "Warnings:"
		for _, w := range warnings {
			block += "\n  " + w
		}
		sections = append(sections, block)
	}
	if err != nil {
		sections = append(sections, "Error: "+err.Error())
	}
	return strings.Join(sections, "\n\n")
}
