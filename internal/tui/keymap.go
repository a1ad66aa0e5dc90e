package tui

import "charm.land/bubbles/v2/key"

// keyMap holds the board key bindings.
type keyMap struct {
	quit       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	moveLeft   key.Binding
	moveRight  key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	advance    key.Binding
	pickUp     key.Binding
	cancel     key.Binding
	addTask    key.Binding
	deleteTask key.Binding
	prevPage   key.Binding
	nextPage   key.Binding
	taskInfo   key.Binding
	copyID     key.Binding
	export     key.Binding
}

// newKeyMap constructs the default bindings.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:   key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:  key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		advance:    key.NewBinding(key.WithKeys("enter", "space", " "), key.WithHelp("enter/space", "advance / drop")),
		pickUp:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "pick up / drop")),
		cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		addTask:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		deleteTask: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		prevPage:   key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "previous page")),
		nextPage:   key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "next page")),
		taskInfo:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "task info")),
		copyID:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		export:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTask, k.advance, k.pickUp, k.deleteTask, k.taskInfo, k.toggleHelp, k.quit,
	}
}

// FullHelp returns every binding grouped by purpose.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.prevPage, k.nextPage},
		{k.addTask, k.advance, k.pickUp, k.cancel, k.deleteTask},
		{k.taskInfo, k.copyID, k.export, k.reload, k.toggleHelp, k.quit},
	}
}
