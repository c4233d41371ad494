package board

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nhle/weekly-planner/internal/checklist"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/recordstore"
)

// State is the lifecycle position of an optimistic mutation.
type State int

const (
	Pending State = iota
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the outcome of a committed mutation. On Confirmed, Task is the
// task as held after confirmation. On RolledBack, Task is the task after
// this mutation's own change was undone and Err is the surfaced
// *UserError. Other mutations still pending on the same task keep their
// optimistic changes through a rollback.
type Result struct {
	State State
	Task  model.Task
	Err   error
}

// remoteFunc performs the remote half of a mutation. The returned confirm
// func, if any, folds the store's answer into the task.
type remoteFunc func(ctx context.Context) (confirm func(*model.Task), err error)

// change is the local half of a mutation. apply must tolerate a task that
// already carries the change; revert undoes only the fields apply set,
// using before as the source of the old values.
type change struct {
	apply  func(*model.Task) error
	revert func(cur *model.Task, before model.Task)
}

// Mutation is an optimistic change already applied to the snapshot and
// awaiting its remote call. Commit runs the call exactly once.
type Mutation struct {
	store  *Store
	op     Op
	taskID string
	before model.Task
	change change
	remote remoteFunc
	noop   bool

	once   sync.Once
	result Result
}

// TaskID returns the id of the mutated task.
func (m *Mutation) TaskID() string { return m.taskID }

// Op returns the operation the mutation performs.
func (m *Mutation) Op() Op { return m.op }

// Noop reports whether the mutation changed nothing and needs no remote
// call.
func (m *Mutation) Noop() bool { return m.noop }

// Commit performs the remote call and settles the mutation. A confirmed
// change is applied again, so a load that landed while the call was in
// flight does not hide it. On failure the change is undone, the error is
// surfaced, and the board is reloaded. Later calls return the first
// result.
func (m *Mutation) Commit(ctx context.Context) Result {
	m.once.Do(func() { m.result = m.commit(ctx) })
	return m.result
}

func (m *Mutation) commit(ctx context.Context) Result {
	s := m.store
	if m.noop {
		t, _ := s.Snapshot().Task(m.taskID)
		return Result{State: Confirmed, Task: t}
	}

	confirm, err := m.remote(ctx)
	if err == nil {
		out := m.before
		s.mutate(func() {
			s.settleLocked(m)
			if s.closed {
				return
			}
			s.writeGen++
			if i := s.indexLocked(m.taskID); i >= 0 {
				_ = m.change.apply(&s.tasks[i])
				if confirm != nil {
					confirm(&s.tasks[i])
				}
				out = s.tasks[i].Clone()
			}
		})
		return Result{State: Confirmed, Task: out}
	}

	ue := &UserError{Op: m.op, TaskID: m.taskID, Err: err}
	s.logRemote(m.op, m.taskID, err)

	closed := false
	out := m.before.Clone()
	s.mutate(func() {
		s.settleLocked(m)
		if s.closed {
			closed = true
			return
		}
		if i := s.indexLocked(m.taskID); i >= 0 {
			m.change.revert(&s.tasks[i], m.before)
			out = s.tasks[i].Clone()
		}
		s.err = ue
		s.writeGen++
	})

	if !closed {
		if lerr := s.Load(ctx); lerr != nil {
			s.log.Warnw("reload after rollback", "op", string(m.op), "task_id", m.taskID, "error", lerr)
		}
	}

	return Result{State: RolledBack, Task: out, Err: ue}
}

// settleLocked drops m from the in-flight set.
func (s *Store) settleLocked(m *Mutation) {
	for i, p := range s.inflight {
		if p == m {
			s.inflight = append(s.inflight[:i], s.inflight[i+1:]...)
			break
		}
	}
	if s.pending[m.taskID] <= 1 {
		delete(s.pending, m.taskID)
		return
	}
	s.pending[m.taskID]--
}

// overlayLocked applies the in-flight mutations, oldest first, to freshly
// loaded tasks.
func (s *Store) overlayLocked(tasks []model.Task) {
	for _, m := range s.inflight {
		for i := range tasks {
			if tasks[i].ID == m.taskID {
				_ = m.change.apply(&tasks[i])
				break
			}
		}
	}
}

// begin applies c to a copy of the task, installs the copy in the
// snapshot and returns the pending mutation.
func (s *Store) begin(op Op, taskID string, c change, remote remoteFunc) (*Mutation, error) {
	var (
		m   *Mutation
		err error
	)
	s.mutate(func() {
		if s.closed {
			err = ErrClosed
			return
		}
		i := s.indexLocked(taskID)
		if i < 0 {
			err = fmt.Errorf("%w %q", ErrUnknownTask, taskID)
			return
		}
		before := s.tasks[i].Clone()
		after := before.Clone()
		if err = c.apply(&after); err != nil {
			return
		}
		s.tasks[i] = after
		s.pending[taskID]++
		m = &Mutation{store: s, op: op, taskID: taskID, before: before, change: c, remote: remote}
		s.inflight = append(s.inflight, m)
	})
	return m, err
}

// BeginMove moves the task to column to locally and returns the pending
// remote update. Moving to the task's current column is a no-op mutation.
func (s *Store) BeginMove(taskID string, to model.ColumnKey) (*Mutation, error) {
	if err := s.checkColumn(to); err != nil {
		return nil, err
	}
	cur, ok := s.Snapshot().Task(taskID)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTask, taskID)
	}
	if cur.ColumnKey == to {
		return &Mutation{store: s, op: OpMove, taskID: taskID, before: cur, noop: true}, nil
	}

	return s.begin(OpMove, taskID,
		change{
			apply: func(t *model.Task) error {
				t.ColumnKey = to
				return nil
			},
			revert: func(t *model.Task, before model.Task) {
				t.ColumnKey = before.ColumnKey
			},
		},
		func(ctx context.Context) (func(*model.Task), error) {
			err := s.client.Update(ctx, recordstore.TableTasks,
				recordstore.Record{"column_key": string(to)}, s.taskFilter(taskID))
			return nil, err
		})
}

// BeginToggleChecklistItem sets the item's completion locally, re-sorting
// the checklist, and returns the pending remote update.
func (s *Store) BeginToggleChecklistItem(taskID, itemID string, completed bool) (*Mutation, error) {
	return s.begin(OpChecklist, taskID,
		change{
			apply: func(t *model.Task) error {
				i := itemIndex(t.Checklist, itemID)
				if i < 0 {
					return fmt.Errorf("%w %q", ErrUnknownItem, itemID)
				}
				t.Checklist[i].Completed = completed
				t.Checklist = checklist.Sort(t.Checklist)
				return nil
			},
			revert: func(t *model.Task, before model.Task) {
				old := itemIndex(before.Checklist, itemID)
				i := itemIndex(t.Checklist, itemID)
				if old < 0 || i < 0 {
					return
				}
				t.Checklist[i].Completed = before.Checklist[old].Completed
				t.Checklist = checklist.Sort(t.Checklist)
			},
		},
		func(ctx context.Context) (func(*model.Task), error) {
			err := s.client.Update(ctx, recordstore.TableChecklistItems,
				recordstore.Record{"completed": completed}, itemFilter(taskID, itemID))
			return nil, err
		})
}

// BeginUpdateChecklistItemText replaces the item's text locally and
// returns the pending remote update. Order is unchanged.
func (s *Store) BeginUpdateChecklistItemText(taskID, itemID, text string) (*Mutation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrItemTextRequired
	}
	return s.begin(OpChecklist, taskID,
		change{
			apply: func(t *model.Task) error {
				i := itemIndex(t.Checklist, itemID)
				if i < 0 {
					return fmt.Errorf("%w %q", ErrUnknownItem, itemID)
				}
				t.Checklist[i].Text = text
				return nil
			},
			revert: func(t *model.Task, before model.Task) {
				old := itemIndex(before.Checklist, itemID)
				if i := itemIndex(t.Checklist, itemID); old >= 0 && i >= 0 {
					t.Checklist[i].Text = before.Checklist[old].Text
				}
			},
		},
		func(ctx context.Context) (func(*model.Task), error) {
			err := s.client.Update(ctx, recordstore.TableChecklistItems,
				recordstore.Record{"text": text}, itemFilter(taskID, itemID))
			return nil, err
		})
}

// BeginDeleteChecklistItem removes the item locally and returns the
// pending remote delete.
func (s *Store) BeginDeleteChecklistItem(taskID, itemID string) (*Mutation, error) {
	return s.begin(OpChecklist, taskID,
		change{
			apply: func(t *model.Task) error {
				i := itemIndex(t.Checklist, itemID)
				if i < 0 {
					return fmt.Errorf("%w %q", ErrUnknownItem, itemID)
				}
				t.Checklist = append(t.Checklist[:i], t.Checklist[i+1:]...)
				return nil
			},
			revert: func(t *model.Task, before model.Task) {
				old := itemIndex(before.Checklist, itemID)
				if old < 0 || itemIndex(t.Checklist, itemID) >= 0 {
					return
				}
				t.Checklist = checklist.Sort(append(t.Checklist, before.Checklist[old]))
			},
		},
		func(ctx context.Context) (func(*model.Task), error) {
			err := s.client.Delete(ctx, recordstore.TableChecklistItems, itemFilter(taskID, itemID))
			return nil, err
		})
}

// BeginAddChecklistItem appends a new open item locally and returns the
// pending remote insert. The item's timestamps are filled in on
// confirmation.
func (s *Store) BeginAddChecklistItem(taskID, text string) (*Mutation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrItemTextRequired
	}
	item := model.ChecklistItem{ID: s.newID(), TaskID: taskID, Text: text}

	return s.begin(OpChecklist, taskID,
		change{
			apply: func(t *model.Task) error {
				if itemIndex(t.Checklist, item.ID) < 0 {
					t.Checklist = checklist.Sort(append(t.Checklist, item))
				}
				return nil
			},
			revert: func(t *model.Task, _ model.Task) {
				if i := itemIndex(t.Checklist, item.ID); i >= 0 {
					t.Checklist = append(t.Checklist[:i], t.Checklist[i+1:]...)
				}
			},
		},
		func(ctx context.Context) (func(*model.Task), error) {
			rec, err := s.client.Insert(ctx, recordstore.TableChecklistItems, itemRecord(taskID, item))
			if err != nil {
				return nil, err
			}
			stored := itemFromRecord(rec)
			return func(t *model.Task) {
				if i := itemIndex(t.Checklist, item.ID); i >= 0 {
					t.Checklist[i].CreatedAt = stored.CreatedAt
					t.Checklist[i].UpdatedAt = stored.UpdatedAt
					t.Checklist = checklist.Sort(t.Checklist)
				}
			}, nil
		})
}

// MoveTask moves a task and waits for the remote result.
func (s *Store) MoveTask(ctx context.Context, taskID string, to model.ColumnKey) (Result, error) {
	m, err := s.BeginMove(taskID, to)
	return settle(ctx, m, err)
}

// ToggleChecklistItem sets an item's completion and waits for the remote
// result.
func (s *Store) ToggleChecklistItem(ctx context.Context, taskID, itemID string, completed bool) (Result, error) {
	m, err := s.BeginToggleChecklistItem(taskID, itemID, completed)
	return settle(ctx, m, err)
}

// UpdateChecklistItemText edits an item's text and waits for the remote
// result.
func (s *Store) UpdateChecklistItemText(ctx context.Context, taskID, itemID, text string) (Result, error) {
	m, err := s.BeginUpdateChecklistItemText(taskID, itemID, text)
	return settle(ctx, m, err)
}

// DeleteChecklistItem removes an item and waits for the remote result.
func (s *Store) DeleteChecklistItem(ctx context.Context, taskID, itemID string) (Result, error) {
	m, err := s.BeginDeleteChecklistItem(taskID, itemID)
	return settle(ctx, m, err)
}

// AddChecklistItem appends an item and waits for the remote result.
func (s *Store) AddChecklistItem(ctx context.Context, taskID, text string) (Result, error) {
	m, err := s.BeginAddChecklistItem(taskID, text)
	return settle(ctx, m, err)
}

func settle(ctx context.Context, m *Mutation, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return m.Commit(ctx), nil
}

func itemFilter(taskID, itemID string) recordstore.Filter {
	return recordstore.Eq("id", itemID).Eq("task_id", taskID)
}

func itemIndex(items []model.ChecklistItem, itemID string) int {
	for i, it := range items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}
