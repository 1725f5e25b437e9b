package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	next   key.Binding
	prev   key.Binding
	enter  key.Binding
	clear  key.Binding
	open   key.Binding
	export key.Binding
	logout key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		clear:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		open:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open image")),
		export: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export report")),
		logout: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "logout")),
		quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.prev, k.enter},
		{k.clear, k.open, k.export},
		{k.logout, k.quit},
	}
}
