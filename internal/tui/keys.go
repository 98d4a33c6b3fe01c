package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the bindings of the rating screen.
type keyMap struct {
	NextModel   key.Binding
	PrevModel   key.Binding
	NextHistory key.Binding
	PrevHistory key.Binding
	FieldUp     key.Binding
	FieldDown   key.Binding
	Rate        key.Binding
	Clear       key.Binding
	SaveNext    key.Binding
	SavePrev    key.Binding
	Jump        key.Binding
	Export      key.Binding
	SwitchRater key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextModel: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab/→", "next model"),
		),
		PrevModel: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("shift+tab/←", "prev model"),
		),
		NextHistory: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next history session"),
		),
		PrevHistory: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev history session"),
		),
		FieldUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev item"),
		),
		FieldDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next item"),
		),
		Rate: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5"),
			key.WithHelp("1-5", "rate"),
		),
		Clear: key.NewBinding(
			key.WithKeys("0", "backspace", "delete"),
			key.WithHelp("0/⌫", "clear"),
		),
		SaveNext: key.NewBinding(
			key.WithKeys("n", "enter"),
			key.WithHelp("n", "save & next"),
		),
		SavePrev: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "save & previous"),
		),
		Jump: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "go to document"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export"),
		),
		SwitchRater: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "switch rater"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "save & quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Rate, k.SaveNext, k.SavePrev, k.NextModel, k.Export, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextModel, k.PrevModel, k.NextHistory, k.PrevHistory},
		{k.FieldUp, k.FieldDown, k.Rate, k.Clear},
		{k.SaveNext, k.SavePrev, k.Jump, k.Export},
		{k.SwitchRater, k.Help, k.Quit},
	}
}
