package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the deck key bindings
type KeyMap struct {
	NextAgent key.Binding
	PrevAgent key.Binding
	Submit    key.Binding
	NextTask  key.Binding
	Approve   key.Binding
	Integrate key.Binding
	ScrollUp  key.Binding
	ScrollDn  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the bindings used by the deck
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextAgent: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next agent"),
		),
		PrevAgent: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev agent"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		NextTask: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "next task"),
		),
		Approve: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("ctrl+a", "approve asset"),
		),
		Integrate: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "integrate & playtest"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDn: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextAgent, k.Submit, k.Approve, k.Integrate, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextAgent, k.PrevAgent, k.Submit},
		{k.NextTask, k.Approve, k.Integrate},
		{k.ScrollUp, k.ScrollDn, k.Help, k.Quit},
	}
}
