package taskform

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekly-planner/internal/checklist"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/theme"
)

// Values is what the form collected.
type Values struct {
	Title       string
	Description string
	ColumnKey   model.ColumnKey
	Priority    model.Priority
	Checklist   []model.ChecklistItem
}

// SubmitMsg is dispatched when the form is completed. TaskID is empty for
// a new task.
type SubmitMsg struct {
	TaskID string
	Values Values
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	column      model.ColumnKey
	priority    model.Priority
	checklist   string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	columns  []model.Column
	editID   string
	existing []model.ChecklistItem
	width    int
	height   int
}

// New creates a new task form model offering the given columns.
func New(columns []model.Column, width, height int) Model {
	return Model{
		fb:      &formBindings{},
		columns: columns,
		width:   width,
		height:  height,
	}
}

// SetColumns replaces the columns offered by the column selector.
func (m *Model) SetColumns(columns []model.Column) {
	m.columns = columns
}

// StartCreate initializes the form for a new task placed in column.
func (m *Model) StartCreate(column model.ColumnKey) tea.Cmd {
	m.editID = ""
	m.existing = nil
	*m.fb = formBindings{column: column}
	if m.fb.column == "" && len(m.columns) > 0 {
		m.fb.column = m.columns[0].Key
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form with the fields of t.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	m.editID = t.ID
	m.existing = t.Checklist
	*m.fb = formBindings{
		title:       t.Title,
		description: t.Description,
		column:      t.ColumnKey,
		priority:    t.Priority,
		checklist:   checklist.ToLines(t.Checklist),
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Editing reports whether the form edits an existing task.
func (m Model) Editing() bool { return m.editID != "" }

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.handleSubmit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "Nova tarefa"
	if m.Editing() {
		titleText = "Editar tarefa"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Título").
				Placeholder("O que precisa ser feito?").
				Value(&m.fb.title).
				Validate(validateTitle),
			huh.NewText().
				Title("Descrição").
				Placeholder("Detalhes opcionais...").
				Value(&m.fb.description),
			huh.NewSelect[model.ColumnKey]().
				Title("Coluna").
				Options(m.columnOptions()...).
				Value(&m.fb.column),
			huh.NewSelect[model.Priority]().
				Title("Prioridade").
				Options(priorityOptions()...).
				Value(&m.fb.priority),
			huh.NewText().
				Title("Checklist").
				Description("Um item por linha. Use [x] para itens concluídos.").
				Value(&m.fb.checklist),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) columnOptions() []huh.Option[model.ColumnKey] {
	opts := make([]huh.Option[model.ColumnKey], len(m.columns))
	for i, c := range m.columns {
		opts[i] = huh.NewOption(c.Name, c.Key)
	}
	return opts
}

func priorityOptions() []huh.Option[model.Priority] {
	opts := []huh.Option[model.Priority]{huh.NewOption("Sem prioridade", model.PriorityNone)}
	for _, p := range model.Priorities {
		opts = append(opts, huh.NewOption(string(p), p))
	}
	return opts
}

func (m Model) handleSubmit() tea.Cmd {
	id := m.editID
	v := Values{
		Title:       strings.TrimSpace(m.fb.title),
		Description: strings.TrimSpace(m.fb.description),
		ColumnKey:   m.fb.column,
		Priority:    m.fb.priority,
		Checklist:   checklist.FromLines(id, m.existing, m.fb.checklist),
	}
	return func() tea.Msg { return SubmitMsg{TaskID: id, Values: v} }
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
	if h < 10 {
		h = 10
	}
	return h
}

var errTitleRequired = errors.New("o título é obrigatório")

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return errTitleRequired
	}
	return nil
}
