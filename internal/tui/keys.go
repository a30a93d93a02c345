package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Prev       key.Binding
	Next       key.Binding
	PrevInCell key.Binding
	NextInCell key.Binding
	ScopeCell  key.Binding
	CopyInput  key.Binding
	CopyOutput key.Binding
	Quit       key.Binding
	HalfUp     key.Binding
	HalfDown   key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
}

var keys = keyMap{
	Prev: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("up", "prev"),
	),
	Next: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("dn", "next"),
	),
	PrevInCell: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-tab", "prev run"),
	),
	NextInCell: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next run of cell"),
	),
	ScopeCell: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("C-t", "scope to cell"),
	),
	CopyInput: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "copy input"),
	),
	CopyOutput: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("C-o", "copy output"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
	HalfUp: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("C-u", "preview up"),
	),
	HalfDown: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("C-d", "preview down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "preview page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "preview page down"),
	),
}

// shortHelp lists the bindings shown in the status bar.
func (k keyMap) shortHelp() string {
	var parts []string
	for _, b := range []key.Binding{k.NextInCell, k.ScopeCell, k.CopyInput, k.CopyOutput, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " | ")
}
