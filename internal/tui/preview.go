package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/nbtrack/internal/record"
	"github.com/Zuo-Peng/nbtrack/internal/render"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	seq     int
	width   int
	query   string
	content string
}

// loadPreviewCmd returns a tea.Cmd that renders the record preview async.
func loadPreviewCmd(e record.Entry, seq int, query string, width int) tea.Cmd {
	return func() tea.Msg {
		content, _ := render.RenderLog([]record.Entry{e}, render.Options{
			HitSeq: -1,
			Width:  width,
			Query:  query,
		})
		return previewRenderedMsg{
			seq:     seq,
			width:   width,
			query:   query,
			content: content,
		}
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	return viewport.New(width, height)
}
