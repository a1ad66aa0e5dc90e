// Package tui implements the terminal board.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/webherbas/taskflow/internal/app"
	"github.com/webherbas/taskflow/internal/domain"
)

// inputMode represents the active overlay.
type inputMode int

// modeNone and related constants define the overlays.
const (
	modeNone inputMode = iota
	modeAddTask
	modeConfirmDelete
	modeTaskInfo
)

// Form field order.
const (
	fieldTitle = iota
	fieldDescription
	fieldDueDate
)

// loadedMsg reports a finished reload.
type loadedMsg struct{}

// actionMsg carries the outcome of one mutation.
type actionMsg struct {
	status  string
	err     error
	focusID string
}

// formResultMsg carries the outcome of one form submission.
type formResultMsg struct {
	result app.FormResult
	err    error
}

// notes collects announcements from the app controllers.
type notes struct {
	mu     sync.Mutex
	last   string
	logger app.Logger
}

// Announce records message and logs it.
func (n *notes) Announce(message string) {
	n.mu.Lock()
	n.last = message
	n.mu.Unlock()
	n.logger.Info("announce", "message", message)
}

// take returns and clears the last announcement.
func (n *notes) take() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.last
	n.last = ""
	return out
}

// Model is the bubbletea model for the board.
type Model struct {
	board *app.Board
	drag  *app.DragController
	form  *app.FormController
	notes *notes

	loc             *time.Location
	exportDir       string
	copyToClipboard func(string) error
	confirmDelete   bool

	keys keyMap
	help help.Model

	view           app.BoardView
	selectedColumn int
	selectedItem   int

	mode          inputMode
	formInputs    []textinput.Model
	formFocus     int
	formErrors    map[string]string
	pendingDelete string
	infoItemID    string
	md            *markdownRenderer

	status string
	ready  bool
	width  int
	height int
}

// NewModel constructs a board model.
func NewModel(board *app.Board, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	n := &notes{logger: app.NopLogger()}
	m := Model{
		board:           board,
		notes:           n,
		loc:             time.Local,
		exportDir:       ".",
		copyToClipboard: clipboard.WriteAll,
		confirmDelete:   true,
		keys:            newKeyMap(),
		help:            h,
		formErrors:      map[string]string{},
		md:              &markdownRenderer{},
		status:          "loading...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.drag = app.NewDragController(board, n)
	m.form = app.NewFormController(board, n, app.FormConfig{})
	return m
}

// Init loads the board.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// loadData reloads the board from storage.
func (m Model) loadData() tea.Msg {
	m.board.Reload(context.Background())
	return loadedMsg{}
}

// Update updates state for one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.refresh()
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			m.refresh()
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		m.refresh()
		if msg.focusID != "" {
			m.focusItem(msg.focusID)
		}
		return m, nil

	case formResultMsg:
		if msg.err != nil {
			m.status = msg.result.Message
			return m, nil
		}
		if !msg.result.Created {
			m.formErrors = msg.result.FieldErrors
			m.status = msg.result.Message
			return m, m.focusFormField(fieldIndex(msg.result.FocusField))
		}
		m.mode = modeNone
		m.formInputs = nil
		m.formErrors = map[string]string{}
		m.status = msg.result.Message
		m.refresh()
		m.focusItem(msg.result.Item.ID)
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// handleNormalModeKey handles keys on the board.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	dragging := m.drag.State() == app.DragDragging
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		if dragging {
			m.drag.End()
			m.status = "drag cancelled"
		}
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		m.selectColumn(m.selectedColumn - 1)
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.selectColumn(m.selectedColumn + 1)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selectedItem = clamp(m.selectedItem-1, 0, max(0, len(m.currentColumn().Items)-1))
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectedItem = clamp(m.selectedItem+1, 0, max(0, len(m.currentColumn().Items)-1))
		return m, nil
	case key.Matches(msg, m.keys.pickUp):
		if dragging {
			return m, m.dropCmd()
		}
		item, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		if err := m.drag.Start(item.ID); err != nil {
			m.status = "error: " + err.Error()
			return m, nil
		}
		m.status = "moving " + item.Title + ": choose a column and press enter"
		return m, nil
	case key.Matches(msg, m.keys.advance):
		if dragging {
			return m, m.dropCmd()
		}
		item, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		return m, m.advanceCmd(item.ID)
	}
	if dragging {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.addTask):
		return m, m.startTaskForm()
	case key.Matches(msg, m.keys.deleteTask):
		item, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		if !m.confirmDelete {
			return m, m.deleteCmd(item.ID)
		}
		m.mode = modeConfirmDelete
		m.pendingDelete = item.ID
		return m, nil
	case key.Matches(msg, m.keys.prevPage):
		m.changePage(-1)
		return m, nil
	case key.Matches(msg, m.keys.nextPage):
		m.changePage(1)
		return m, nil
	case key.Matches(msg, m.keys.taskInfo):
		item, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		m.mode = modeTaskInfo
		m.infoItemID = item.ID
		return m, nil
	case key.Matches(msg, m.keys.copyID):
		item, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		if err := m.copyToClipboard(item.ID); err != nil {
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied " + item.ID
		return m, nil
	case key.Matches(msg, m.keys.export):
		return m, m.exportCmd()
	}
	return m, nil
}

// handleInputModeKey handles keys while an overlay is open.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeConfirmDelete:
		switch msg.String() {
		case "y", "enter":
			id := m.pendingDelete
			m.mode = modeNone
			m.pendingDelete = ""
			return m, m.deleteCmd(id)
		case "n", "esc", "q":
			m.mode = modeNone
			m.pendingDelete = ""
			m.status = "delete cancelled"
		}
		return m, nil

	case modeTaskInfo:
		switch msg.String() {
		case "esc", "i", "q", "enter":
			m.mode = modeNone
			m.infoItemID = ""
		}
		return m, nil

	case modeAddTask:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.formInputs = nil
			m.formErrors = map[string]string{}
			m.status = "cancelled"
			return m, nil
		case "tab", "down":
			return m, m.focusFormField((m.formFocus + 1) % len(m.formInputs))
		case "shift+tab", "up":
			return m, m.focusFormField((m.formFocus + len(m.formInputs) - 1) % len(m.formInputs))
		case "enter":
			return m, m.submitFormCmd()
		}
		var cmd tea.Cmd
		m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
		return m, cmd
	}
	return m, nil
}

// startTaskForm opens the create-task overlay.
func (m *Model) startTaskForm() tea.Cmd {
	m.mode = modeAddTask
	m.formErrors = map[string]string{}
	m.formInputs = []textinput.Model{
		newModalInput("título: ", "requerido", 100),
		newModalInput("descripción: ", "opcional", 500),
		newModalInput("vence: ", "YYYY-MM-DD", 10),
	}
	return m.focusFormField(fieldTitle)
}

// newModalInput constructs one form input.
func newModalInput(prompt, placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	return in
}

// focusFormField focuses one form input.
func (m *Model) focusFormField(idx int) tea.Cmd {
	if len(m.formInputs) == 0 {
		return nil
	}
	idx = clamp(idx, 0, len(m.formInputs)-1)
	m.formFocus = idx
	for i := range m.formInputs {
		m.formInputs[i].Blur()
	}
	return m.formInputs[idx].Focus()
}

// fieldIndex maps a form field name to its input index.
func fieldIndex(field string) int {
	switch field {
	case app.FieldDescription:
		return fieldDescription
	case app.FieldDueDate:
		return fieldDueDate
	default:
		return fieldTitle
	}
}

// submitFormCmd submits the create-task form.
func (m Model) submitFormCmd() tea.Cmd {
	in := app.FormInput{
		Title:       m.formInputs[fieldTitle].Value(),
		Description: m.formInputs[fieldDescription].Value(),
		DueDate:     m.formInputs[fieldDueDate].Value(),
	}
	form := m.form
	return func() tea.Msg {
		result, err := form.Submit(context.Background(), in)
		return formResultMsg{result: result, err: err}
	}
}

// advanceCmd cycles one item to the next column.
func (m Model) advanceCmd(id string) tea.Cmd {
	board := m.board
	return func() tea.Msg {
		item, err := board.AdvanceStatus(context.Background(), id)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "Elemento movido a " + item.Status.DisplayName(), focusID: item.ID}
	}
}

// dropCmd drops the dragged item on the selected column. The drag is
// released here, on the update goroutine; only the board write runs in the
// command.
func (m Model) dropCmd() tea.Cmd {
	drag, n := m.drag, m.notes
	status := m.currentColumn().Status
	id, ok := drag.Release()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		result, err := drag.Move(context.Background(), id, status)
		if err != nil {
			return actionMsg{err: err}
		}
		msg := n.take()
		if !result.Moved {
			msg = "no change"
		}
		return actionMsg{status: msg, focusID: id}
	}
}

// deleteCmd removes one item.
func (m Model) deleteCmd(id string) tea.Cmd {
	board := m.board
	return func() tea.Msg {
		if err := board.Remove(context.Background(), id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "Elemento eliminado"}
	}
}

// exportCmd writes a backup file into the export directory.
func (m Model) exportCmd() tea.Cmd {
	board, dir := m.board, m.exportDir
	return func() tea.Msg {
		file, err := board.Export()
		if err != nil {
			return actionMsg{err: err}
		}
		path := filepath.Join(dir, file.Name)
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			return actionMsg{err: fmt.Errorf("write export: %w", err)}
		}
		return actionMsg{status: "exported " + path}
	}
}

// changePage moves the selected column's page by delta. Out-of-range pages are ignored.
func (m *Model) changePage(delta int) {
	col := m.currentColumn()
	if m.board.ChangePage(col.Status, col.Page+delta) {
		m.selectedItem = 0
	}
	m.refresh()
}

// refresh re-renders the board view and clamps selection.
func (m *Model) refresh() {
	m.view = app.RenderBoard(m.board.Snapshot(), m.loc)
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.view.Columns)-1)
	m.selectedItem = clamp(m.selectedItem, 0, max(0, len(m.currentColumn().Items)-1))
}

// selectColumn moves the column cursor.
func (m *Model) selectColumn(idx int) {
	if len(m.view.Columns) == 0 {
		return
	}
	m.selectedColumn = clamp(idx, 0, len(m.view.Columns)-1)
	m.selectedItem = clamp(m.selectedItem, 0, max(0, len(m.currentColumn().Items)-1))
}

// focusItem moves the cursor to id when it is on a current page.
func (m *Model) focusItem(id string) {
	for ci, col := range m.view.Columns {
		for ii, item := range col.Items {
			if item.ID == id {
				m.selectedColumn = ci
				m.selectedItem = ii
				return
			}
		}
	}
}

// currentColumn returns the selected column view.
func (m Model) currentColumn() app.ColumnView {
	if len(m.view.Columns) == 0 {
		return app.ColumnView{Status: domain.StatusTodo}
	}
	return m.view.Columns[clamp(m.selectedColumn, 0, len(m.view.Columns)-1)]
}

// selectedCard returns the card under the cursor.
func (m Model) selectedCard() (app.ItemView, bool) {
	col := m.currentColumn()
	if len(col.Items) == 0 {
		return app.ItemView{}, false
	}
	return col.Items[clamp(m.selectedItem, 0, len(col.Items)-1)], true
}

// View renders the board.
func (m Model) View() tea.View {
	content := "loading..."
	if m.ready {
		content = m.renderBoard()
	}
	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

// renderBoard renders the board, status line, help, and any overlay.
func (m Model) renderBoard() string {
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("TaskFlow") + statusStyle.Render(fmt.Sprintf("  %d elementos", m.view.Total))
	if m.drag.State() == app.DragDragging {
		header += lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render("  [moving]")
	}

	colWidth := max(24, (m.width-6)/max(1, len(m.view.Columns)))
	columnViews := make([]string, 0, len(m.view.Columns))
	for ci, col := range m.view.Columns {
		columnViews = append(columnViews, m.renderColumn(col, ci == m.selectedColumn, colWidth))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	content := strings.Join([]string{header, "", body, "", statusStyle.Render(m.status)}, "\n")
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine
	if overlay := m.renderModeOverlay(max(30, m.width-8)); overlay != "" {
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, m.height))
	}
	return fullContent
}

// renderColumn renders one column with its current page.
func (m Model) renderColumn(col app.ColumnView, selected bool, width int) string {
	border := lipgloss.Color("239")
	if selected {
		border = lipgloss.Color("62")
	}
	colStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(width)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	lines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", col.Name, col.Count)), ""}
	if len(col.Items) == 0 {
		lines = append(lines, subStyle.Render("sin elementos"))
	}
	inner := max(8, width-4)
	for ii, item := range col.Items {
		prefix := "  "
		title := truncate(item.Title, inner-2)
		if selected && ii == m.selectedItem {
			prefix = "› "
			title = selectedStyle.Render(title)
		}
		if m.drag.ItemID() == item.ID {
			prefix = "✥ "
		}
		lines = append(lines, prefix+title)
		meta := "#" + item.ShortID
		if item.DueLabel != "" {
			meta += " · " + item.DueLabel
		}
		lines = append(lines, "  "+subStyle.Render(truncate(meta, inner-2)))
	}
	if col.ShowPager {
		pager := fmt.Sprintf("%d/%d", col.Page, col.TotalPages)
		if col.HasPrev {
			pager = "‹ " + pager
		}
		if col.HasNext {
			pager += " ›"
		}
		lines = append(lines, "", subStyle.Render(pager))
	}
	return colStyle.Render(strings.Join(lines, "\n"))
}

// renderModeOverlay renders the active overlay, if any.
func (m Model) renderModeOverlay(maxWidth int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(min(maxWidth, 72))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	switch m.mode {
	case modeAddTask:
		names := []string{app.FieldTitle, app.FieldDescription, app.FieldDueDate}
		lines := []string{titleStyle.Render("Nueva tarea"), ""}
		for i, in := range m.formInputs {
			lines = append(lines, in.View())
			if msg := m.formErrors[names[i]]; msg != "" {
				lines = append(lines, errStyle.Render("  "+msg))
			}
		}
		lines = append(lines, "", hintStyle.Render("tab next field • enter save • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeConfirmDelete:
		item, _ := m.board.Get(m.pendingDelete)
		lines := []string{
			titleStyle.Render("¿Eliminar este elemento?"),
			"",
			item.Title,
			"",
			hintStyle.Render("y confirm • n cancel"),
		}
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeTaskInfo:
		item, ok := m.board.Get(m.infoItemID)
		if !ok {
			return ""
		}
		rendered := m.md.renderTask(item, m.loc, min(maxWidth, 72)-6)
		return boxStyle.Render(rendered + "\n\n" + hintStyle.Render("esc close"))
	}
	return ""
}

// fitLines pads or trims content to exactly height lines.
func fitLines(content string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay above base.
func overlayOnContent(base, overlay string, width, height int) string {
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
