package tui

import "charm.land/bubbles/v2/key"

// keyMap holds the normal-mode bindings.
type keyMap struct {
	quit       key.Binding
	toggleHelp key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	start      key.Binding
	complete   key.Binding
	edit       key.Binding
	delete     key.Binding
	exportCSV  key.Binding
	copyCSV    key.Binding
	report     key.Binding
	nextField  key.Binding
	submit     key.Binding
	cancel     key.Binding
}

// newKeyMap constructs the default bindings.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		start:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start activity")),
		complete:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		exportCSV:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export csv")),
		copyCSV:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy csv")),
		report:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "report")),
		nextField:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp returns the footer bindings.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.start, k.complete, k.edit, k.delete, k.exportCSV, k.toggleHelp, k.quit}
}

// FullHelp returns every binding grouped by purpose.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.start, k.complete, k.edit, k.delete},
		{k.moveUp, k.moveDown, k.report, k.exportCSV, k.copyCSV},
		{k.nextField, k.submit, k.cancel, k.toggleHelp, k.quit},
	}
}
