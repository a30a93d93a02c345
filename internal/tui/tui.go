package tui

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zuo-Peng/nbtrack/internal/record"
	"github.com/Zuo-Peng/nbtrack/internal/render"
)

const debounceDelay = 200 * time.Millisecond

// Options narrows the records the browser starts with.
type Options struct {
	CellID string // "" = every cell
	Query  string // initial filter text
}

// message types

type filterResultMsg struct {
	query   string
	visible []int
	anchor  int // seq to keep under the cursor, -1 = top
}

type debounceTickMsg struct {
	query string
}

// model

type model struct {
	entries     []record.Entry
	cellID      string
	query       string
	visible     []int // indexes into entries, in log order
	cursor      int
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string // "seq:width:query" to avoid duplicate renders
	width       int
	height      int
	ready       bool
	quitting    bool
	selected    *record.Entry
	copyOutput  bool // copy the selected record's output instead of its input
}

func initialModel(entries []record.Entry, opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Focus()
	ti.SetValue(opts.Query)
	ti.Prompt = "> "
	ti.PromptStyle = styleFilter
	ti.TextStyle = styleFilter
	ti.CharLimit = 256

	return model{
		entries:     entries,
		cellID:      opts.CellID,
		query:       opts.Query,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
}

// Run starts the browser and blocks until it exits. If the user selects a
// record, its input (or output) is copied to the clipboard.
func Run(entries []record.Entry, opts Options) error {
	m := initialModel(entries, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.selected != nil {
		copyRecord(*fm.selected, fm.copyOutput)
	}
	return nil
}

// copyRecord copies the record's cell source or output to the clipboard,
// printing it instead when no clipboard is available.
func copyRecord(e record.Entry, output bool) {
	text, what := e.Input, "input"
	if output {
		text, what = e.Output, "output"
	}
	if err := clipboard.WriteAll(text); err != nil {
		fmt.Println(text)
		return
	}
	fmt.Printf("Copied %s of cell %s (#%d) to clipboard\n", what, e.CellID, e.CellIndex)
}

// Init triggers the initial filter.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.doFilter(m.query, -1))
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		cmds = append(cmds, m.loadCurrentPreview())
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CopyInput), key.Matches(msg, keys.CopyOutput):
			if e, ok := m.current(); ok {
				m.selected = &e
				m.copyOutput = key.Matches(msg, keys.CopyOutput)
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil

		case key.Matches(msg, keys.Prev):
			cmd := m.moveCursor(m.cursor - 1)
			return m, cmd

		case key.Matches(msg, keys.Next):
			cmd := m.moveCursor(m.cursor + 1)
			return m, cmd

		case key.Matches(msg, keys.NextInCell):
			cmd := m.moveCursor(m.sameCellIndex(1))
			return m, cmd

		case key.Matches(msg, keys.PrevInCell):
			cmd := m.moveCursor(m.sameCellIndex(-1))
			return m, cmd

		case key.Matches(msg, keys.ScopeCell):
			anchor := -1
			if seq, ok := m.currentSeq(); ok {
				anchor = seq
			}
			if m.cellID != "" {
				m.cellID = ""
			} else if e, ok := m.current(); ok {
				m.cellID = e.CellID
			} else {
				return m, nil
			}
			return m, m.doFilter(m.query, anchor)

		case key.Matches(msg, keys.HalfUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.HalfDown):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.preview.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.preview.LineDown(m.panelHeight())
			return m, nil
		}

		// Pass remaining keys to text input
		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)

		newQuery := m.filterInput.Value()
		if newQuery != m.query {
			m.query = newQuery
			cmds = append(cmds, m.scheduleDebouncedFilter(newQuery))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if !m.ready || len(m.visible) == 0 {
			return m, nil
		}

		region, itemIdx := m.hitTest(msg.X, msg.Y)

		switch {
		case region == regionList && msg.Button == tea.MouseButtonWheelUp:
			if m.listOffset > 0 {
				m.listOffset--
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonWheelDown:
			visibleItems := m.panelHeight() / linesPerItem
			maxOffset := max(len(m.visible)-visibleItems, 0)
			if m.listOffset < maxOffset {
				m.listOffset++
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			if itemIdx >= 0 && itemIdx < len(m.visible) && m.cursor != itemIdx {
				m.cursor = itemIdx
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
			var vpCmd tea.Cmd
			m.preview, vpCmd = m.preview.Update(msg)
			if vpCmd != nil {
				cmds = append(cmds, vpCmd)
			}
			return m, tea.Batch(cmds...)
		}

		return m, nil

	case debounceTickMsg:
		// Only filter if the query hasn't changed since the tick was scheduled
		if msg.query == m.query {
			cmds = append(cmds, m.doFilter(msg.query, -1))
		}
		return m, tea.Batch(cmds...)

	case filterResultMsg:
		if msg.query != m.query {
			return m, nil
		}
		m.visible = msg.visible
		m.cursor = 0
		for i, seq := range m.visible {
			if seq == msg.anchor {
				m.cursor = i
				break
			}
		}
		m.listOffset = 0
		m.adjustListScroll(m.panelHeight())
		m.previewKey = ""
		if len(m.visible) > 0 {
			cmds = append(cmds, m.loadCurrentPreview())
		} else {
			m.preview.SetContent("")
		}
		return m, tea.Batch(cmds...)

	case previewRenderedMsg:
		key := previewCacheKey(msg.seq, msg.width, msg.query)
		if key == m.previewKey {
			return m, nil
		}
		if seq, ok := m.currentSeq(); !ok || key != previewCacheKey(seq, m.previewWidth(), m.query) {
			return m, nil // stale preview
		}
		m.preview.SetContent(msg.content)
		m.preview.GotoTop()
		m.previewKey = key
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()

	listContent := m.renderList(listW, panelH)
	listPanel := styleListFrame.
		Width(listW).
		Height(panelH).
		Render(listContent)

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := stylePreviewFrame.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)

	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, m.statusBar())
}

// helper methods

func (m model) current() (record.Entry, bool) {
	seq, ok := m.currentSeq()
	if !ok {
		return record.Entry{}, false
	}
	return m.entries[seq], true
}

func (m model) currentSeq() (int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return 0, false
	}
	return m.visible[m.cursor], true
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	// 40% for list, minus border padding
	return max(m.width*40/100-4, 20)
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	// 60% for preview, minus border padding
	return max(m.width*60/100-4, 20)
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Subtract input row (1) + status bar (1) + borders (4)
	return max(m.height-6, 5)
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	pH := m.panelHeight()
	contentYStart := 2 // input row (1) + top border (1)
	contentYEnd := contentYStart + pH - 1

	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}
	relY := y - contentYStart

	lw := m.listWidth()
	listBoxRight := lw + 1 // col 0=border, 1..lw=content, lw+1=border

	if x >= 1 && x <= lw {
		return regionList, m.listOffset + (relY / linesPerItem)
	}

	if x > listBoxRight+1 {
		return regionPreview, -1
	}

	return regionNone, -1
}

func (m model) statusBar() string {
	bar := styleStatusBar.Render(fmt.Sprintf("%d/%d records | %s", len(m.visible), len(m.entries), keys.shortHelp()))
	if m.cellID == "" {
		return bar
	}
	return styleScope.Render("cell "+m.cellID) + bar
}

// moveCursor puts the cursor on list index i if it exists.
func (m *model) moveCursor(i int) tea.Cmd {
	if i < 0 || i >= len(m.visible) || i == m.cursor {
		return nil
	}
	m.cursor = i
	m.adjustListScroll(m.panelHeight())
	return m.loadCurrentPreview()
}

// sameCellIndex finds the nearest visible record, stepping by dir and
// wrapping around, that belongs to the cell under the cursor. It returns
// the cursor itself when there is none.
func (m model) sameCellIndex(dir int) int {
	cur, ok := m.current()
	if !ok {
		return m.cursor
	}
	n := len(m.visible)
	for k := 1; k < n; k++ {
		i := ((m.cursor+dir*k)%n + n) % n
		if m.entries[m.visible[i]].CellID == cur.CellID {
			return i
		}
	}
	return m.cursor
}

func (m model) doFilter(query string, anchor int) tea.Cmd {
	entries := m.entries
	cellID := m.cellID
	return func() tea.Msg {
		return filterResultMsg{query: query, visible: filterIndexes(entries, cellID, query), anchor: anchor}
	}
}

// filterIndexes returns the positions of entries that render.Match keeps.
func filterIndexes(entries []record.Entry, cellID, query string) []int {
	var out []int
	for i, e := range entries {
		if render.Match(e, cellID, query) {
			out = append(out, i)
		}
	}
	return out
}

func (m model) scheduleDebouncedFilter(query string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{query: query}
	})
}

func (m model) loadCurrentPreview() tea.Cmd {
	seq, ok := m.currentSeq()
	if !ok {
		return nil
	}
	if previewCacheKey(seq, m.previewWidth(), m.query) == m.previewKey {
		return nil // already showing this preview
	}
	return loadPreviewCmd(m.entries[seq], seq, m.query, m.previewWidth())
}

func previewCacheKey(seq, width int, query string) string {
	return fmt.Sprintf("%d:%d:%s", seq, width, query)
}
