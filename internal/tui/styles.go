package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("12")  // blue: cell ids, focused panel
	colorExec   = lipgloss.Color("10")  // green: In[n]
	colorCursor = lipgloss.Color("11")  // yellow
	colorMuted  = lipgloss.Color("240") // timestamps, input snippets
	colorFrame  = lipgloss.Color("238")

	styleFilter = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	styleCursor = lipgloss.NewStyle().Foreground(colorCursor).Bold(true)

	styleCellID    = lipgloss.NewStyle().Foreground(colorAccent)
	styleExecCount = lipgloss.NewStyle().Foreground(colorExec)
	styleMuted     = lipgloss.NewStyle().Foreground(colorMuted)

	// marks other runs of the cell under the cursor
	styleSameCell = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	styleListFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFrame)

	stylePreviewFrame = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorAccent)

	// cell scope badge in the status bar
	styleScope = lipgloss.NewStyle().Reverse(true).Padding(0, 1)

	styleStatusBar = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
)
