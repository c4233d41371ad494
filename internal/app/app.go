package app

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nhle/weekly-planner/internal/board"
	"github.com/nhle/weekly-planner/internal/drag"
	"github.com/nhle/weekly-planner/internal/keys"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/policy"
	"github.com/nhle/weekly-planner/internal/projector"
	"github.com/nhle/weekly-planner/internal/release"
	appsync "github.com/nhle/weekly-planner/internal/sync"
	"github.com/nhle/weekly-planner/internal/theme"
	"github.com/nhle/weekly-planner/internal/ui"
	"github.com/nhle/weekly-planner/internal/ui/boardview"
	"github.com/nhle/weekly-planner/internal/ui/checklistview"
	helpview "github.com/nhle/weekly-planner/internal/ui/help"
	"github.com/nhle/weekly-planner/internal/ui/search"
	"github.com/nhle/weekly-planner/internal/ui/taskform"
	"github.com/nhle/weekly-planner/internal/ui/whatsnew"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewChecklist
	ViewForm
	ViewSearch
	ViewHelp
	ViewConfirmDelete
	ViewWhatsNew
)

// Option configures the root model.
type Option func(*Model)

// WithNotifier enables the "what's new" popup.
func WithNotifier(n *release.Notifier) Option {
	return func(m *Model) { m.notifier = n }
}

// WithSort sets the initial ordering.
func WithSort(s policy.SortType) Option {
	return func(m *Model) { m.sort = s }
}

// WithRefresh reloads the board every interval.
func WithRefresh(interval time.Duration) Option {
	return func(m *Model) { m.refreshEvery = interval }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Model) { m.log = l }
}

type confirmBindings struct {
	confirm bool
	taskID  string
}

// Model is the root Bubble Tea model: it routes views, owns the drag
// coordinator, and turns user intents into board store calls.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	store        *board.Store
	notifier     *release.Notifier
	watcher      *appsync.Watcher
	drag         *drag.Coordinator
	keys         *keys.KeyMap
	log          *zap.SugaredLogger
	columns      []model.Column
	filter       policy.Filter
	prioIdx      int
	sort         policy.SortType
	refreshEvery time.Duration
	snap         board.Snapshot
	orphans      int
	status       string

	boardView     boardview.Model
	checklistView checklistview.Model
	formView      taskform.Model
	searchView    search.Model
	helpView      helpview.Model
	whatsNewView  whatsnew.Model
	confirmForm   *huh.Form
	cb            *confirmBindings

	ready bool
}

// New creates the root model over s showing columns.
func New(s *board.Store, columns []model.Column, opts ...Option) Model {
	k := keys.DefaultKeyMap()
	m := Model{
		currentView:   ViewBoard,
		store:         s,
		drag:          drag.New(s),
		keys:          k,
		log:           zap.NewNop().Sugar(),
		columns:       columns,
		boardView:     boardview.New(80, 24),
		checklistView: checklistview.New(k, 80, 24),
		formView:      taskform.New(columns, 80, 24),
		searchView:    search.New(80),
		helpView:      helpview.New(k, columns, 80, 24),
		whatsNewView:  whatsnew.New(80, 24),
		cb:            &confirmBindings{},
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.watcher = appsync.New(s, m.refreshEvery, m.log)
	m.refresh()
	return m
}

// Init starts watching the store, loads the board and checks for a new
// release.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.watcher.Start(),
		m.loadBoard(),
		m.checkRelease(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.boardView.SetSize(w, h-2)
		m.checklistView.SetSize(w, h)
		m.formView.SetSize(w, h)
		m.searchView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.whatsNewView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.ChangedMsg:
		m.refresh()
		return m, m.watcher.WaitForNext()

	case loadedMsg:
		m.refresh()
		return m, nil

	case savedMsg:
		m.status = statusFor(msg.err)
		if msg.err == nil {
			if msg.created {
				m.status = fmt.Sprintf("Tarefa %q criada.", msg.task.Title)
			}
			m.refresh()
			m.boardView.SelectTask(msg.task.ID)
		}
		return m, nil

	case deletedMsg:
		m.status = statusFor(msg.err)
		if msg.err == nil {
			m.status = "Tarefa excluída."
		}
		m.refresh()
		return m, nil

	case committedMsg:
		if msg.result.State == board.RolledBack {
			m.status = statusFor(msg.result.Err)
		}
		m.refresh()
		return m, nil

	case noticeMsg:
		if msg.err != nil {
			m.log.Debugw("release check failed", "error", msg.err)
			return m, nil
		}
		if msg.notice.Show {
			m.whatsNewView.SetNotice(msg.notice)
			m.previousView = m.currentView
			m.currentView = ViewWhatsNew
		}
		return m, nil

	case whatsnew.CloseMsg:
		m.currentView = m.previousView
		return m, nil

	case taskform.SubmitMsg:
		m.currentView = ViewBoard
		if msg.TaskID == "" {
			return m, m.createTask(msg.Values)
		}
		return m, m.updateTask(msg.TaskID, msg.Values)

	case taskform.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case search.KeywordMsg:
		m.filter.Keyword = msg.Keyword
		m.currentView = ViewBoard
		m.refresh()
		return m, nil

	case search.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case checklistview.CloseMsg:
		m.currentView = ViewBoard
		return m, nil

	case checklistview.ToggleMsg:
		mut, err := m.store.BeginToggleChecklistItem(msg.TaskID, msg.ItemID, msg.Completed)
		return m.begun(mut, err)

	case checklistview.AddMsg:
		mut, err := m.store.BeginAddChecklistItem(msg.TaskID, msg.Text)
		return m.begun(mut, err)

	case checklistview.EditMsg:
		mut, err := m.store.BeginUpdateChecklistItemText(msg.TaskID, msg.ItemID, msg.Text)
		return m.begun(mut, err)

	case checklistview.DeleteMsg:
		mut, err := m.store.BeginDeleteChecklistItem(msg.TaskID, msg.ItemID)
		return m.begun(mut, err)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.watcher.Stop()
			return m, tea.Quit
		}
		if m.snap.Err != nil && m.currentView == ViewBoard {
			return m.handleBannerKey(msg)
		}
		switch m.currentView {
		case ViewBoard:
			return m.handleBoardKey(msg)
		case ViewHelp:
			if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) {
				m.currentView = m.previousView
			}
			return m, nil
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// begun refreshes after an optimistic change and commits it.
func (m Model) begun(mut *board.Mutation, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.status = statusFor(err)
		return m, nil
	}
	m.status = ""
	m.refresh()
	return m, commit(mut)
}

// handleBannerKey keeps the board blocked behind the error banner until
// it is dismissed or the board is reloaded.
func (m Model) handleBannerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Retry):
		m.store.DismissError()
		m.refresh()
		return m, m.loadBoard()
	case key.Matches(msg, m.keys.Dismiss):
		m.store.DismissError()
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		m.watcher.Stop()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.drag.Dragging() {
		return m.handleDragKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.watcher.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Left):
		m.boardView.Left()
	case key.Matches(msg, m.keys.Right):
		m.boardView.Right()
	case key.Matches(msg, m.keys.Up):
		m.boardView.Up()
	case key.Matches(msg, m.keys.Down):
		m.boardView.Down()

	case key.Matches(msg, m.keys.Pick):
		if t, ok := m.boardView.Selected(); ok {
			m.drag.PickUp(t.ID, t.ColumnKey)
			m.status = fmt.Sprintf("Movendo %q: escolha a coluna e solte com enter.", t.Title)
			m.boardView.SetDrag(m.drag.State())
		}

	case key.Matches(msg, m.keys.Focus):
		if col, ok := m.boardView.ColumnKey(); ok {
			m.toggleFocus(col)
		}

	case isDigit(msg):
		if i := int(msg.Runes[0] - '1'); i < len(m.columns) {
			m.toggleFocus(m.columns[i].Key)
		}

	case key.Matches(msg, m.keys.New):
		col, _ := m.boardView.ColumnKey()
		m.previousView = m.currentView
		m.currentView = ViewForm
		return m, m.formView.StartCreate(col)

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.boardView.Selected(); ok {
			m.previousView = m.currentView
			m.currentView = ViewForm
			return m, m.formView.StartEdit(t)
		}

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.boardView.Selected(); ok {
			m.cb.confirm = false
			m.cb.taskID = t.ID
			m.confirmForm = m.buildConfirmForm(t)
			m.previousView = m.currentView
			m.currentView = ViewConfirmDelete
			return m, m.confirmForm.Init()
		}

	case key.Matches(msg, m.keys.Checklist):
		if t, ok := m.boardView.Selected(); ok {
			m.checklistView.SetTask(t, m.columnName(t.ColumnKey))
			m.checklistView.SetPending(m.snap.IsPending(t.ID))
			m.previousView = m.currentView
			m.currentView = ViewChecklist
		}

	case key.Matches(msg, m.keys.Search):
		m.previousView = m.currentView
		m.currentView = ViewSearch
		return m, m.searchView.Open(m.filter.Keyword)

	case key.Matches(msg, m.keys.CyclePrio):
		m.prioIdx = (m.prioIdx + 1) % (len(model.Priorities) + 1)
		m.filter.Priorities = nil
		if m.prioIdx > 0 {
			m.filter.Priorities = []model.Priority{model.Priorities[m.prioIdx-1]}
		}
		m.refresh()

	case key.Matches(msg, m.keys.FilterColumn):
		if col, ok := m.boardView.ColumnKey(); ok {
			m.toggleColumnFilter(col)
		}

	case key.Matches(msg, m.keys.CycleSort):
		m.sort = nextSort(m.sort)
		m.status = "Ordenação: " + m.sort.Label()
		m.refresh()

	case key.Matches(msg, m.keys.ClearFilters):
		m.filter = policy.Filter{}
		m.prioIdx = 0
		m.status = "Filtros limpos."
		m.refresh()

	case key.Matches(msg, m.keys.Retry):
		return m, m.loadBoard()

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
	}
	return m, nil
}

func (m Model) handleDragKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		if key.Matches(msg, m.keys.Left) {
			m.boardView.Left()
		} else {
			m.boardView.Right()
		}
		if col, ok := m.boardView.ColumnKey(); ok {
			if col == m.drag.State().Source {
				m.drag.Leave()
			} else {
				m.drag.Hover(col)
			}
		}
		m.boardView.SetDrag(m.drag.State())

	case key.Matches(msg, m.keys.Drop):
		taskID := m.drag.State().TaskID
		mut, err := m.drag.DropHovered()
		m.boardView.SetDrag(m.drag.State())
		if err != nil {
			m.status = statusFor(err)
			m.refresh()
			return m, nil
		}
		m.status = ""
		m.refresh()
		m.boardView.SelectTask(taskID)
		return m, commit(mut)

	case key.Matches(msg, m.keys.Cancel):
		m.drag.Cancel()
		m.status = "Movimento cancelado."
		m.boardView.SetDrag(m.drag.State())
	}
	return m, nil
}

func (m *Model) toggleFocus(col model.ColumnKey) {
	focus := m.drag.ToggleFocus(col)
	m.refresh()
	m.boardView.SelectColumn(col)
	if focus == "" {
		m.status = "Todas as colunas."
	} else {
		m.status = "Foco: " + m.columnName(focus)
	}
}

// toggleColumnFilter adds col to the column filter or removes it. Every
// column stays on screen; tasks outside the set are hidden.
func (m *Model) toggleColumnFilter(col model.ColumnKey) {
	if i := slices.Index(m.filter.Columns, col); i >= 0 {
		m.filter.Columns = slices.Delete(slices.Clone(m.filter.Columns), i, i+1)
	} else {
		m.filter.Columns = append(slices.Clone(m.filter.Columns), col)
	}
	m.refresh()
	m.boardView.SelectColumn(col)
}

func (m Model) buildConfirmForm(t model.Task) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Excluir a tarefa %q?", t.Title)).
				Description("O checklist da tarefa também será excluído.").
				Affirmative("Sim, excluir").
				Negative("Cancelar").
				Value(&m.cb.confirm),
		),
	).WithWidth(min(max(m.layout.ContentWidth()-4, 40), 100))
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		m.currentView = ViewBoard
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		m.currentView = ViewBoard
		m.confirmForm = nil
		if m.cb.confirm {
			return m, m.deleteTask(m.cb.taskID)
		}
		return m, nil
	case huh.StateAborted:
		m.currentView = ViewBoard
		m.confirmForm = nil
		return m, nil
	}
	return m, cmd
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewChecklist:
		m.checklistView, cmd = m.checklistView.Update(msg)
	case ViewForm:
		m.formView, cmd = m.formView.Update(msg)
	case ViewSearch:
		m.searchView, cmd = m.searchView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewWhatsNew:
		m.whatsNewView, cmd = m.whatsNewView.Update(msg)
	case ViewConfirmDelete:
		return m.updateConfirm(msg)
	}

	return m, cmd
}

// refresh re-projects the current snapshot into the views.
func (m *Model) refresh() {
	m.snap = m.store.Snapshot()
	m.orphans = len(projector.Orphans(m.snap.Tasks, m.columns))

	views := projector.ProjectFiltered(m.snap.Tasks, m.columns, m.filter, m.sort)
	m.boardView.SetViews(projector.Visible(views, m.drag.Focus()))
	m.boardView.SetPending(m.snap.Pending)
	m.boardView.SetDrag(m.drag.State())

	if m.currentView == ViewChecklist {
		t, ok := m.snap.Task(m.checklistView.TaskID())
		if !ok {
			m.currentView = ViewBoard
			return
		}
		m.checklistView.SetTask(t, m.columnName(t.ColumnKey))
		m.checklistView.SetPending(m.snap.IsPending(t.ID))
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Carregando..."
	}

	screen := ui.Screen{
		Title:  "Planejamento Semanal",
		Status: m.boardStatus(),
		Body:   m.renderContent(),
		Hints:  m.keyHints(),
	}
	if m.snap.Err != nil {
		screen.Banner = m.snap.Err.Error() + "   [r] recarregar  [x] fechar"
	}
	return m.layout.Render(screen)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return lipgloss.JoinVertical(lipgloss.Left, m.filterSummary(), m.boardView.View())
	case ViewChecklist:
		return m.checklistView.View()
	case ViewForm:
		return m.formView.View()
	case ViewSearch:
		return lipgloss.JoinVertical(lipgloss.Left, m.searchView.View(), m.boardView.View())
	case ViewHelp:
		return m.helpView.View()
	case ViewWhatsNew:
		return m.whatsNewView.View()
	case ViewConfirmDelete:
		if m.confirmForm == nil {
			return ""
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	default:
		return ""
	}
}

// boardStatus returns a short string describing the store state.
func (m Model) boardStatus() string {
	switch {
	case m.snap.Loading && !m.snap.Loaded:
		return "carregando..."
	case m.snap.Busy || len(m.snap.Pending) > 0:
		return "salvando..."
	}
	status := fmt.Sprintf("%d tarefas", len(m.snap.Tasks)-m.orphans)
	if m.orphans > 0 {
		status += fmt.Sprintf(" (+%d em outro layout)", m.orphans)
	}
	return status
}

// filterSummary describes the active filter, sort and focus.
func (m Model) filterSummary() string {
	var parts []string
	if kw := strings.TrimSpace(m.filter.Keyword); kw != "" {
		parts = append(parts, fmt.Sprintf("busca %q", kw))
	}
	if len(m.filter.Priorities) > 0 {
		parts = append(parts, "prioridade "+string(m.filter.Priorities[0]))
	}
	if len(m.filter.Columns) > 0 {
		names := make([]string, len(m.filter.Columns))
		for i, c := range m.filter.Columns {
			names[i] = m.columnName(c)
		}
		parts = append(parts, "colunas "+strings.Join(names, ", "))
	}
	if m.sort != policy.SortNone {
		parts = append(parts, "ordem "+m.sort.Label())
	}
	if focus := m.drag.Focus(); focus != "" {
		parts = append(parts, "foco "+m.columnName(focus))
	}
	if len(parts) == 0 {
		return theme.HelpStyle.Render("sem filtros")
	}
	return theme.HelpStyle.Render(strings.Join(parts, " · "))
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.status != "" && m.currentView == ViewBoard {
		return m.status
	}

	switch m.currentView {
	case ViewHelp:
		return "? fechar ajuda | esc voltar"
	case ViewSearch:
		return "enter aplicar | esc cancelar"
	case ViewChecklist:
		return "espaço marcar | a adicionar | e editar | d excluir | esc voltar"
	case ViewForm, ViewConfirmDelete:
		return "enter confirmar | esc cancelar"
	case ViewWhatsNew:
		return "enter fechar"
	default:
		if m.drag.Dragging() {
			return "h/l escolher coluna | enter soltar | esc cancelar"
		}
		return "q sair | ? ajuda | n nova | m mover | enter checklist | / buscar | v coluna | s ordenar | f focar"
	}
}

func (m Model) columnName(k model.ColumnKey) string {
	for _, c := range m.columns {
		if c.Key == k {
			return c.Name
		}
	}
	return string(k)
}

func nextSort(s policy.SortType) policy.SortType {
	for i, o := range policy.SortOptions {
		if o.Type == s {
			return policy.SortOptions[(i+1)%len(policy.SortOptions)].Type
		}
	}
	return policy.SortNone
}

func isDigit(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyRunes && len(msg.Runes) == 1 &&
		msg.Runes[0] >= '1' && msg.Runes[0] <= '9'
}
