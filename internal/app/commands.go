package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/weekly-planner/internal/board"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/release"
	"github.com/nhle/weekly-planner/internal/ui/taskform"
)

// opTimeout bounds every store call started from the UI.
const opTimeout = 30 * time.Second

// loadedMsg is sent after a board load.
type loadedMsg struct{ err error }

// savedMsg is sent after a task create or update.
type savedMsg struct {
	task    model.Task
	created bool
	err     error
}

// deletedMsg is sent after a task delete.
type deletedMsg struct {
	taskID string
	err    error
}

// committedMsg carries the outcome of an optimistic mutation.
type committedMsg struct {
	op     board.Op
	result board.Result
}

// noticeMsg carries the release check result.
type noticeMsg struct {
	notice release.Notice
	err    error
}

func (m Model) loadBoard() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return loadedMsg{err: s.Load(ctx)}
	}
}

func (m Model) createTask(v taskform.Values) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		t, err := s.Create(ctx, board.Draft{
			Title:       v.Title,
			Description: v.Description,
			ColumnKey:   v.ColumnKey,
			Priority:    v.Priority,
			Checklist:   v.Checklist,
		})
		return savedMsg{task: t, created: true, err: err}
	}
}

func (m Model) updateTask(taskID string, v taskform.Values) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		items := v.Checklist
		t, err := s.Update(ctx, taskID, board.Patch{
			Title:       &v.Title,
			Description: &v.Description,
			ColumnKey:   &v.ColumnKey,
			Priority:    &v.Priority,
			Checklist:   &items,
		})
		return savedMsg{task: t, err: err}
	}
}

func (m Model) deleteTask(taskID string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return deletedMsg{taskID: taskID, err: s.Delete(ctx, taskID)}
	}
}

// commit sends the remote half of an already applied mutation.
func commit(mut *board.Mutation) tea.Cmd {
	if mut == nil || mut.Noop() {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return committedMsg{op: mut.Op(), result: mut.Commit(ctx)}
	}
}

func (m Model) checkRelease() tea.Cmd {
	n := m.notifier
	if n == nil {
		return nil
	}
	owner := m.store.OwnerID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		notice, err := n.Check(ctx, owner)
		return noticeMsg{notice: notice, err: err}
	}
}

// statusFor returns the status bar text for an error the store did not
// surface in the snapshot. Surfaced errors show in the banner instead.
func statusFor(err error) string {
	var ue *board.UserError
	switch {
	case err == nil, errors.As(err, &ue), errors.Is(err, board.ErrClosed):
		return ""
	case errors.Is(err, board.ErrTitleRequired):
		return "Informe um título para a tarefa."
	case errors.Is(err, board.ErrItemTextRequired):
		return "Informe o texto do item."
	case errors.Is(err, board.ErrColumnRequired), errors.Is(err, board.ErrUnknownColumn):
		return "Escolha uma coluna do quadro."
	case errors.Is(err, board.ErrBusy):
		return "Aguarde: outra gravação está em andamento."
	case errors.Is(err, board.ErrUnknownTask), errors.Is(err, board.ErrUnknownItem):
		return "A tarefa não está mais no quadro."
	default:
		return err.Error()
	}
}
