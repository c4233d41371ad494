package checklistview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekly-planner/internal/checklist"
	"github.com/nhle/weekly-planner/internal/keys"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/theme"
)

// CloseMsg signals the parent to close the checklist view.
type CloseMsg struct{}

// ToggleMsg asks the parent to set the completion of an item.
type ToggleMsg struct {
	TaskID    string
	ItemID    string
	Completed bool
}

// AddMsg asks the parent to append an item.
type AddMsg struct {
	TaskID string
	Text   string
}

// EditMsg asks the parent to change the text of an item.
type EditMsg struct {
	TaskID string
	ItemID string
	Text   string
}

// DeleteMsg asks the parent to remove an item.
type DeleteMsg struct {
	TaskID string
	ItemID string
}

type viewMode int

const (
	modeList viewMode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	text    string
	confirm bool
}

// Model shows one task with its checklist and edits the items. It never
// touches the board store: every change leaves as a message.
type Model struct {
	mode        viewMode
	keys        *keys.KeyMap
	task        model.Task
	column      string
	pending     bool
	selectedIdx int
	editingID   string
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	width       int
	height      int
}

// New creates a new checklist view model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:  modeList,
		keys:  k,
		fb:    &formBindings{},
		width: width, height: height,
	}
}

// SetTask shows t. columnName labels the column the task is in.
func (m *Model) SetTask(t model.Task, columnName string) {
	if t.ID != m.task.ID {
		m.selectedIdx = 0
		m.mode = modeList
	}
	m.task = t
	m.column = columnName
	if m.selectedIdx >= len(t.Checklist) {
		m.selectedIdx = max(len(t.Checklist)-1, 0)
	}
}

// SetPending marks the task as having a save in flight.
func (m *Model) SetPending(pending bool) { m.pending = pending }

// TaskID returns the id of the shown task.
func (m Model) TaskID() string { return m.task.ID }

// Editing reports whether a form has the keyboard.
func (m Model) Editing() bool { return m.mode != modeList }

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeList:
		return m.handleListKey(msg)
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	items := m.task.Checklist

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(items) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(items)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(items) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(items) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		out := ToggleMsg{TaskID: m.task.ID, ItemID: item.ID, Completed: !item.Completed}
		return m, func() tea.Msg { return out }

	case key.Matches(msg, m.keys.Add):
		m.editingID = ""
		m.fb.text = ""
		m.form = m.buildForm("Novo item")
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.editingID = item.ID
		m.fb.text = item.Text
		m.form = m.buildForm("Editar item")
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.selected(); !ok {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) selected() (model.ChecklistItem, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.task.Checklist) {
		return model.ChecklistItem{}, false
	}
	return m.task.Checklist[m.selectedIdx], true
}

var errTextRequired = errors.New("o texto do item é obrigatório")

func (m Model) buildForm(title string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Placeholder("Descreva o item").
				Value(&m.fb.text).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errTextRequired
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	text := ""
	if item, ok := m.selected(); ok {
		text = item.Text
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Excluir o item %q?", text)).
				Affirmative("Sim, excluir").
				Negative("Cancelar").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		m.mode = modeList
		text := strings.TrimSpace(m.fb.text)
		taskID, itemID := m.task.ID, m.editingID
		if itemID == "" {
			return m, func() tea.Msg { return AddMsg{TaskID: taskID, Text: text} }
		}
		return m, func() tea.Msg { return EditMsg{TaskID: taskID, ItemID: itemID, Text: text} }
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		m.mode = modeList
		item, ok := m.selected()
		if !m.fb.confirm || !ok {
			return m, nil
		}
		out := DeleteMsg{TaskID: m.task.ID, ItemID: item.ID}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

// View renders the task and its checklist.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder
	t := m.task

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	b.WriteString(titleStyle.Render(t.Title))
	b.WriteString("\n")

	meta := []string{m.column}
	if t.Priority != model.PriorityNone {
		meta = append(meta, theme.PriorityStyle(t.Priority).Render(string(t.Priority)))
	}
	if t.CommentsCount > 0 {
		meta = append(meta, fmt.Sprintf("%d comentários", t.CommentsCount))
	}
	b.WriteString(metaStyle.Render(strings.Join(meta, " · ")))
	if m.pending {
		b.WriteString("  " + theme.PendingStyle.Render("salvando..."))
	}
	b.WriteString("\n\n")

	if t.Description != "" {
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}

	done, total := checklist.Progress(t.Checklist)
	header := fmt.Sprintf("Checklist %d/%d", done, total)
	if checklist.IsFullyCompleted(t.Checklist) {
		header += " ✓"
	}
	b.WriteString(theme.ProgressStyle(done, total).Bold(true).Render(header))
	b.WriteString("\n\n")

	if total == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("Nenhum item. Pressione 'a' para adicionar."))
	} else {
		for i, item := range t.Checklist {
			mark := "[ ]"
			text := item.Text
			if item.Completed {
				mark = "[x]"
				text = theme.CompletedItemStyle.Render(text)
			}
			label := mark + " " + text

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render(
		"espaço marcar | a adicionar | e editar | d excluir | esc voltar",
	))

	return theme.PanelStyle.Width(m.width - 4).Height(m.height - 4).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 6 {
		h = 6
	}
	return h
}
