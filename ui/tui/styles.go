// Shared lipgloss styles. Every view pulls from this palette so the
// whole TUI keeps one look.
package tui // import "github.com/groundwork-sh/groundwork/ui/tui"

import "github.com/charmbracelet/lipgloss"

const (
	colorSubtle    = lipgloss.Color("240") // muted gray
	colorHighlight = lipgloss.Color("81")  // teal
	colorSpecial   = lipgloss.Color("208") // orange, draws the eye
	colorError     = lipgloss.Color("196") // bright red
	colorSuccess   = lipgloss.Color("40")  // green
	colorWhite     = lipgloss.Color("231")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true).
			Padding(1, 2)

	// The dashboard banner gets a wider gutter than section titles.
	mainTitleStyle = titleStyle.Padding(1, 3)

	helpStyle    = lipgloss.NewStyle().Foreground(colorSubtle)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)

	// Drift findings and failed steps.
	specialStyle = lipgloss.NewStyle().Foreground(colorSpecial)

	itemStyle         = lipgloss.NewStyle()
	selectedItemStyle = lipgloss.NewStyle().Foreground(colorHighlight)

	// Confirmation prompts render inside this box.
	dialogBoxStyle = lipgloss.NewStyle().
			Width(60).
			Padding(1, 2).
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorHighlight)

	// One-line feedback after an action, drawn inverse.
	statusMessageStyle = lipgloss.NewStyle().
				Foreground(colorWhite).
				Background(colorHighlight).
				Padding(0, 1)
)
