package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle     key.Binding
	Next       key.Binding
	Prev       key.Binding
	NextPage   key.Binding
	PrevPage   key.Binding
	Faster     key.Binding
	Slower     key.Binding
	Restart    key.Binding
	Focus      key.Binding
	Search     key.Binding
	Copy       key.Binding
	Rename     key.Binding
	Refresh    key.Binding
	ClearError key.Binding
	Up         key.Binding
	Down       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Next:       key.NewBinding(key.WithKeys("n", "right", "l"), key.WithHelp("n/→", "next bubble")),
		Prev:       key.NewBinding(key.WithKeys("p", "left", "h"), key.WithHelp("p/←", "previous bubble")),
		NextPage:   key.NewBinding(key.WithKeys("]", "pgdown"), key.WithHelp("]", "next page")),
		PrevPage:   key.NewBinding(key.WithKeys("[", "pgup"), key.WithHelp("[", "previous page")),
		Faster:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:     key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		Restart:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart bubble")),
		Focus:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus mode")),
		Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "find bubble")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy text")),
		Rename:     key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "rename speaker")),
		Refresh:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload chapter")),
		ClearError: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "clear errors")),
		Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "scroll up")),
		Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "scroll down")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Prev, k.Faster, k.Slower, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Next, k.Prev, k.NextPage, k.PrevPage, k.Restart},
		{k.Faster, k.Slower, k.Focus, k.Up, k.Down},
		{k.Search, k.Copy, k.Rename, k.Refresh, k.ClearError},
		{k.Help, k.Quit},
	}
}
