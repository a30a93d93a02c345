package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/nbtrack/internal/record"
)

// linesPerItem is the number of terminal lines each record occupies.
const linesPerItem = 2

// renderList renders the left panel: the filtered records with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.visible) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No records")
		return empty
	}

	var focusCell string
	if e, ok := m.current(); ok {
		focusCell = e.CellID
	}

	var lines []string
	for i, seq := range m.visible {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		e := m.entries[seq]
		rows := formatEntryLine(e, width, i == m.cursor, i != m.cursor && e.CellID == focusCell)
		lines = append(lines, rows...)
	}

	// Pad remaining lines
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

// formatEntryLine formats a single record as two lines:
//
//	line 1: [>|*] #index  cell-id  In[n]  HH:MM:SS
//	line 2:    first input line (dimmed)
//
// sameCell marks another run of the cell under the cursor with '*'.
func formatEntryLine(e record.Entry, width int, selected, sameCell bool) []string {
	exec := "In[ ]"
	if e.ExecutionCount != nil {
		exec = fmt.Sprintf("In[%d]", *e.ExecutionCount)
	}
	ts := e.EventTime.Local().Format("15:04:05")

	// leave room for prefix, index, exec label and time
	cellMax := width - 2 - 5 - len(exec) - len(ts) - 3
	if cellMax < 0 {
		cellMax = 0
	}
	cellID := e.CellID
	if runewidth.StringWidth(cellID) > cellMax {
		cellID = runewidth.Truncate(cellID, cellMax, "")
	}

	line1 := fmt.Sprintf("#%-3d %s %s %s",
		e.CellIndex, styleCellID.Render(cellID), styleExecCount.Render(exec), styleMuted.Render(ts))
	switch {
	case selected:
		line1 = styleCursor.Render("> ") + line1
	case sameCell:
		line1 = styleSameCell.Render("* ") + line1
	default:
		line1 = "  " + line1
	}

	// Line 2: first non-blank input line (dimmed, indented)
	snippet := firstLine(e.Input)
	snippet = strings.ReplaceAll(snippet, "\t", " ")
	snippetMax := width - 4 // indent
	if snippetMax < 0 {
		snippetMax = 0
	}
	if runewidth.StringWidth(snippet) > snippetMax {
		snippet = runewidth.Truncate(snippet, snippetMax, "")
	}
	line2 := "    " + styleMuted.Render(snippet)

	return []string{line1, line2}
}

func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			return l
		}
	}
	return "(empty)"
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
