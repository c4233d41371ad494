// Package boardview renders board columns side by side and tracks the
// card cursor.
package boardview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekly-planner/internal/checklist"
	"github.com/nhle/weekly-planner/internal/drag"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/projector"
	"github.com/nhle/weekly-planner/internal/theme"
)

// cardHeight is the number of lines one rendered card takes.
const cardHeight = 4

// Model is the board column view.
type Model struct {
	views   []projector.ColumnView
	col     int
	row     int
	offsets map[model.ColumnKey]int
	drag    drag.State
	pending map[string]bool
	width   int
	height  int
}

// New creates an empty board view.
func New(width, height int) Model {
	return Model{
		offsets: make(map[model.ColumnKey]int),
		pending: make(map[string]bool),
		width:   width,
		height:  height,
	}
}

// SetViews replaces the columns. The cursor stays on the selected task
// when it is still shown, otherwise it is clamped.
func (m *Model) SetViews(views []projector.ColumnView) {
	selected, hadSelection := m.Selected()
	colKey, hadColumn := m.ColumnKey()

	m.views = views

	if hadSelection {
		if c, r, ok := projector.Find(views, selected.ID); ok {
			m.col, m.row = c, r
			m.scroll()
			return
		}
	}
	if hadColumn {
		m.SelectColumn(colKey)
	}
	m.clamp()
}

// SetDrag shows the given drag state.
func (m *Model) SetDrag(st drag.State) { m.drag = st }

// SetPending marks the task ids that have a save in flight.
func (m *Model) SetPending(ids []string) {
	m.pending = make(map[string]bool, len(ids))
	for _, id := range ids {
		m.pending[id] = true
	}
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.scroll()
}

// Selected returns the task under the cursor.
func (m Model) Selected() (model.Task, bool) {
	if m.col < 0 || m.col >= len(m.views) {
		return model.Task{}, false
	}
	tasks := m.views[m.col].Tasks
	if m.row < 0 || m.row >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.row], true
}

// ColumnKey returns the key of the column under the cursor.
func (m Model) ColumnKey() (model.ColumnKey, bool) {
	if m.col < 0 || m.col >= len(m.views) {
		return "", false
	}
	return m.views[m.col].Key, true
}

// SelectColumn moves the cursor to the column with key.
func (m *Model) SelectColumn(key model.ColumnKey) bool {
	for i, v := range m.views {
		if v.Key == key {
			if i != m.col {
				m.col = i
				m.row = 0
			}
			m.clamp()
			return true
		}
	}
	return false
}

// SelectTask moves the cursor onto taskID.
func (m *Model) SelectTask(taskID string) bool {
	c, r, ok := projector.Find(m.views, taskID)
	if ok {
		m.col, m.row = c, r
		m.scroll()
	}
	return ok
}

// Left moves the cursor one column left.
func (m *Model) Left() {
	if m.col > 0 {
		m.col--
		m.clamp()
	}
}

// Right moves the cursor one column right.
func (m *Model) Right() {
	if m.col < len(m.views)-1 {
		m.col++
		m.clamp()
	}
}

// Up moves the cursor one card up.
func (m *Model) Up() {
	if m.row > 0 {
		m.row--
		m.scroll()
	}
}

// Down moves the cursor one card down.
func (m *Model) Down() {
	if m.col >= 0 && m.col < len(m.views) && m.row < len(m.views[m.col].Tasks)-1 {
		m.row++
		m.scroll()
	}
}

func (m *Model) clamp() {
	if len(m.views) == 0 {
		m.col, m.row = 0, 0
		return
	}
	m.col = min(max(m.col, 0), len(m.views)-1)
	n := len(m.views[m.col].Tasks)
	m.row = min(max(m.row, 0), max(n-1, 0))
	m.scroll()
}

// scroll keeps the cursor row inside the visible window of its column.
func (m *Model) scroll() {
	key, ok := m.ColumnKey()
	if !ok {
		return
	}
	visible := m.visibleCards()
	off := m.offsets[key]
	switch {
	case m.row < off:
		off = m.row
	case m.row >= off+visible:
		off = m.row - visible + 1
	}
	m.offsets[key] = max(off, 0)
}

func (m Model) visibleCards() int {
	// Column border (2) and title lines (2).
	n := (m.height - 4) / cardHeight
	return max(n, 1)
}

// View renders the columns side by side.
func (m Model) View() string {
	if len(m.views) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Nenhuma coluna para mostrar")
	}

	width := m.width/len(m.views) - 1
	cols := make([]string, len(m.views))
	for i, v := range m.views {
		cols[i] = m.renderColumn(i, v, max(width, 16))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderColumn(idx int, v projector.ColumnView, width int) string {
	hovered := m.drag.Phase == drag.Hovering && m.drag.Target == v.Key
	inner := width - 4

	title := fmt.Sprintf("%s (%d)", v.Name, len(v.Tasks))
	if done := v.Done(); done > 0 {
		title += fmt.Sprintf(" · %d ✓", done)
	}
	lines := []string{theme.ColumnTitleStyle(v.Accent).Render(truncate(title, inner)), ""}

	if len(v.Tasks) == 0 {
		lines = append(lines, theme.HelpStyle.Render("sem tarefas"))
	}

	off := m.offsets[v.Key]
	end := min(off+m.visibleCards(), len(v.Tasks))
	if off > 0 {
		lines = append(lines, theme.HelpStyle.Render(fmt.Sprintf("↑ mais %d", off)))
	}
	for r := off; r < end; r++ {
		lines = append(lines, m.renderCard(v.Tasks[r], idx == m.col && r == m.row, inner))
	}
	if rest := len(v.Tasks) - end; rest > 0 {
		lines = append(lines, theme.HelpStyle.Render(fmt.Sprintf("↓ mais %d", rest)))
	}

	if hovered && m.drag.Source != v.Key {
		lines = append(lines, theme.PendingStyle.Render("solte aqui"))
	}

	return theme.ColumnStyle(v.Accent, hovered).
		Width(width).
		Height(max(m.height-2, 1)).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderCard(t model.Task, selected bool, width int) string {
	style := theme.CardStyle
	switch {
	case m.drag.Phase != drag.Idle && m.drag.TaskID == t.ID:
		style = theme.DraggedCardStyle
	case selected:
		style = theme.SelectedCardStyle
	}

	text := width - 4
	var meta []string
	if t.Priority != model.PriorityNone {
		meta = append(meta, theme.PriorityStyle(t.Priority).Render(string(t.Priority)))
	}
	if done, total := checklist.Progress(t.Checklist); total > 0 {
		meta = append(meta, theme.ProgressStyle(done, total).Render(fmt.Sprintf("%d/%d", done, total)))
	}
	if t.CommentsCount > 0 {
		meta = append(meta, fmt.Sprintf("%d com.", t.CommentsCount))
	}
	if m.pending[t.ID] {
		meta = append(meta, theme.PendingStyle.Render("salvando"))
	}

	body := truncate(t.Title, text) + "\n" + strings.Join(meta, " ")
	return style.Width(width - 2).Render(body)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
