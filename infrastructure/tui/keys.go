package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Send   key.Binding
	Up     key.Binding
	Down   key.Binding
	Expand key.Binding
	Theme  key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Up, k.Down, k.Expand, k.Theme, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Send:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("⏎", "send")),
	Up:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "prev factor")),
	Down:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next factor")),
	Expand: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "explain")),
	Theme:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "theme")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}
