// Package board owns the in-memory board snapshot and keeps it consistent
// with the record store under optimistic local mutation.
//
// Create, Update and Delete write remotely and then reload the whole
// board. Moves and checklist item edits are applied locally first and
// confirmed or rolled back when the remote call returns (see Mutation).
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nhle/weekly-planner/internal/checklist"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/recordstore"
)

// Draft holds the fields of a task to create.
type Draft struct {
	Title       string
	Description string
	ColumnKey   model.ColumnKey
	Priority    model.Priority
	Checklist   []model.ChecklistItem
}

// Patch lists the task fields to change. Nil fields are left as they are;
// a non-nil Checklist replaces the whole checklist.
type Patch struct {
	Title       *string
	Description *string
	ColumnKey   *model.ColumnKey
	Priority    *model.Priority
	Checklist   *[]model.ChecklistItem
}

// Snapshot is a read-only copy of the board state.
type Snapshot struct {
	// Tasks are ordered by creation time, checklists in display order.
	Tasks []model.Task

	// Loaded is set once a load has succeeded.
	Loaded bool

	// Loading is set while a load is in flight.
	Loading bool

	// Busy is set while a create, update or delete is in flight.
	Busy bool

	// Err is the last surfaced *UserError, until dismissed.
	Err error

	// Pending lists the ids of tasks with unconfirmed local changes.
	Pending []string
}

// Task returns the task with id.
func (s Snapshot) Task(id string) (model.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// IsPending reports whether the task has unconfirmed local changes.
func (s Snapshot) IsPending(id string) bool {
	for _, p := range s.Pending {
		if p == id {
			return true
		}
	}
	return false
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for remote failures.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = l }
}

// WithColumns restricts the column keys tasks may take.
func WithColumns(cols []model.Column) Option {
	return func(s *Store) { s.columns = cols }
}

// WithIDGenerator replaces the task and checklist item id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Store is the single owner of the board snapshot. All methods are safe
// for concurrent use; subscribers run on the goroutine that changed the
// state.
type Store struct {
	client   recordstore.Client
	owner    string
	log      *zap.SugaredLogger
	validate *validator.Validate
	newID    func() string
	columns  []model.Column
	loads    singleflight.Group

	mu         sync.Mutex
	tasks      []model.Task
	loaded     bool
	err        error
	loading    int
	busy       bool
	closed     bool
	pending    map[string]int
	inflight   []*Mutation
	writeGen   uint64
	loadSeq    uint64
	appliedSeq uint64
	subs       map[int]func(Snapshot)
	nextSub    int
}

// New returns a Store for the tasks of ownerID. Call Load to fill it.
func New(client recordstore.Client, ownerID string, opts ...Option) *Store {
	s := &Store{
		client:   client,
		owner:    ownerID,
		log:      zap.NewNop().Sugar(),
		validate: validator.New(),
		newID:    uuid.NewString,
		columns:  append(append([]model.Column{}, model.StageColumns...), model.DayColumns...),
		pending:  make(map[string]int),
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OwnerID returns the owner whose tasks the store holds.
func (s *Store) OwnerID() string { return s.owner }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive every new snapshot. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close detaches the store: subscribers are dropped and responses that
// arrive afterwards no longer touch the snapshot. In-flight calls are not
// aborted.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
}

// DismissError clears the surfaced error.
func (s *Store) DismissError() {
	s.mutate(func() { s.err = nil })
}

// Load replaces the snapshot with the owner's tasks and their checklist
// items. On failure the previous snapshot is kept and the returned
// *UserError is surfaced in the snapshot. Concurrent calls share one
// round trip unless a write completed in between.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	key := strconv.FormatUint(s.writeGen, 10)
	s.mu.Unlock()

	_, err, _ := s.loads.Do(key, func() (any, error) {
		return nil, s.load(ctx)
	})
	return err
}

func (s *Store) load(ctx context.Context) error {
	var seq uint64
	s.mutate(func() {
		s.loadSeq++
		seq = s.loadSeq
		s.loading++
	})

	tasks, err := s.fetch(ctx)

	var uerr error
	if err != nil {
		uerr = &UserError{Op: OpLoad, Err: err}
		s.logRemote(OpLoad, "", err)
	}

	s.mutate(func() {
		s.loading--
		if s.closed || seq < s.appliedSeq {
			return
		}
		if err != nil {
			s.err = uerr
			return
		}
		s.appliedSeq = seq
		s.overlayLocked(tasks)
		s.tasks = tasks
		s.loaded = true
		var ue *UserError
		if errors.As(s.err, &ue) && ue.Op == OpLoad {
			s.err = nil
		}
	})

	return uerr
}

// fetch reads tasks, then the checklist items of those tasks.
func (s *Store) fetch(ctx context.Context) ([]model.Task, error) {
	recs, err := s.client.Select(ctx, recordstore.TableTasks,
		recordstore.Eq("owner_id", s.owner),
		recordstore.OrderBy("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}

	tasks := make([]model.Task, len(recs))
	if len(recs) == 0 {
		return tasks, nil
	}

	ids := make([]string, len(recs))
	index := make(map[string]int, len(recs))
	for i, r := range recs {
		tasks[i] = taskFromRecord(r)
		ids[i] = tasks[i].ID
		index[tasks[i].ID] = i
	}

	items, err := s.client.Select(ctx, recordstore.TableChecklistItems,
		recordstore.In("task_id", recordstore.Strings(ids)...),
		recordstore.OrderBy("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("fetching checklist items: %w", err)
	}
	for _, r := range items {
		it := itemFromRecord(r)
		if i, ok := index[it.TaskID]; ok {
			tasks[i].Checklist = append(tasks[i].Checklist, it)
		}
	}

	for i := range tasks {
		tasks[i].Checklist = checklist.Sort(tasks[i].Checklist)
	}
	sortTasks(tasks)
	return tasks, nil
}

// Create validates d, writes the task and its checklist, and reloads.
func (s *Store) Create(ctx context.Context, d Draft) (model.Task, error) {
	t := model.Task{
		ID:          s.newID(),
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		ColumnKey:   d.ColumnKey,
		Priority:    d.Priority,
		OwnerID:     s.owner,
	}
	t.Checklist = s.normalizeItems(t.ID, d.Checklist)
	if err := s.check(t); err != nil {
		return model.Task{}, err
	}

	if err := s.acquire(); err != nil {
		return model.Task{}, err
	}
	defer s.release()

	if _, err := s.client.Insert(ctx, recordstore.TableTasks, newTaskRecord(t)); err != nil {
		return model.Task{}, s.fail(OpSave, t.ID, err)
	}
	if err := s.reconcile(ctx, t.ID, nil, t.Checklist); err != nil {
		return model.Task{}, s.failAndResync(ctx, OpSave, t.ID, err)
	}

	return s.reloadTask(ctx, t)
}

// Update applies p to the task, rewrites its checklist when p carries
// one, and reloads.
func (s *Store) Update(ctx context.Context, taskID string, p Patch) (model.Task, error) {
	cur, ok := s.Snapshot().Task(taskID)
	if !ok {
		return model.Task{}, fmt.Errorf("%w %q", ErrUnknownTask, taskID)
	}

	t := cur.Clone()
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.ColumnKey != nil {
		t.ColumnKey = *p.ColumnKey
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Checklist != nil {
		t.Checklist = s.normalizeItems(taskID, *p.Checklist)
	}
	if err := s.check(t); err != nil {
		return model.Task{}, err
	}

	if err := s.acquire(); err != nil {
		return model.Task{}, err
	}
	defer s.release()

	if err := s.client.Update(ctx, recordstore.TableTasks, taskFieldsRecord(t), s.taskFilter(taskID)); err != nil {
		return model.Task{}, s.fail(OpSave, taskID, err)
	}

	if p.Checklist != nil {
		recs, err := s.client.Select(ctx, recordstore.TableChecklistItems,
			recordstore.Eq("task_id", taskID), recordstore.Columns("id"))
		if err != nil {
			return model.Task{}, s.failAndResync(ctx, OpSave, taskID, err)
		}
		persisted := make([]string, len(recs))
		for i, r := range recs {
			persisted[i] = r.String("id")
		}
		if err := s.reconcile(ctx, taskID, persisted, t.Checklist); err != nil {
			return model.Task{}, s.failAndResync(ctx, OpSave, taskID, err)
		}
	}

	return s.reloadTask(ctx, t)
}

// Delete removes the task and its checklist items, then reloads. A task
// that no longer exists remotely is not an error.
func (s *Store) Delete(ctx context.Context, taskID string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	owned, err := s.client.Select(ctx, recordstore.TableTasks, s.taskFilter(taskID), recordstore.Columns("id"))
	if err != nil {
		return s.fail(OpDelete, taskID, err)
	}
	if len(owned) == 0 {
		// Gone already, or another owner's task: touch nothing.
		s.log.Debugw("task already gone", "task_id", taskID)
		return s.Load(ctx)
	}

	err = s.client.Delete(ctx, recordstore.TableChecklistItems, recordstore.Eq("task_id", taskID))
	if err != nil && !recordstore.IsNotFound(err) {
		return s.fail(OpDelete, taskID, err)
	}
	err = s.client.Delete(ctx, recordstore.TableTasks, s.taskFilter(taskID))
	if err != nil && !recordstore.IsNotFound(err) {
		return s.failAndResync(ctx, OpDelete, taskID, err)
	}
	if err != nil {
		s.log.Debugw("task already gone", "task_id", taskID)
	}

	s.wrote()
	return s.Load(ctx)
}

// ApplyLocalPatch splices a fully formed task into the snapshot without a
// remote call, replacing the task with the same id or adding it.
func (s *Store) ApplyLocalPatch(t model.Task) error {
	if t.ID == "" {
		return ErrUnknownTask
	}
	t = t.Clone()
	t.Checklist = checklist.Sort(t.Checklist)

	var err error
	s.mutate(func() {
		if s.closed {
			err = ErrClosed
			return
		}
		if i := s.indexLocked(t.ID); i >= 0 {
			s.tasks[i] = t
		} else {
			s.tasks = append(s.tasks, t)
		}
		sortTasks(s.tasks)
	})
	return err
}

// reconcile writes items as the checklist of taskID: one bulk delete of
// the persisted ids that are gone and one bulk upsert.
func (s *Store) reconcile(ctx context.Context, taskID string, persisted []string, items []model.ChecklistItem) error {
	plan := checklist.Reconcile(persisted, items)
	if len(plan.ToDelete) > 0 {
		filter := recordstore.In("id", recordstore.Strings(plan.ToDelete)...).Eq("task_id", taskID)
		if err := s.client.Delete(ctx, recordstore.TableChecklistItems, filter); err != nil {
			return fmt.Errorf("deleting checklist items: %w", err)
		}
	}
	if len(plan.ToUpsert) > 0 {
		if err := s.client.Upsert(ctx, recordstore.TableChecklistItems,
			itemRecords(taskID, plan.ToUpsert), "id"); err != nil {
			return fmt.Errorf("upserting checklist items: %w", err)
		}
	}
	return nil
}

// reloadTask reloads after a successful write and returns the stored
// version of t.
func (s *Store) reloadTask(ctx context.Context, t model.Task) (model.Task, error) {
	s.wrote()
	if err := s.Load(ctx); err != nil {
		return model.Task{}, err
	}
	if got, ok := s.Snapshot().Task(t.ID); ok {
		return got, nil
	}
	return t, nil
}

// check validates t before any remote call.
func (s *Store) check(t model.Task) error {
	fields := taskFields{Title: t.Title, ColumnKey: t.ColumnKey}
	for _, it := range t.Checklist {
		fields.Checklist = append(fields.Checklist, itemFields{Text: it.Text})
	}

	if err := s.validate.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		switch verrs[0].StructField() {
		case "Title":
			return ErrTitleRequired
		case "ColumnKey":
			return ErrColumnRequired
		default:
			return ErrItemTextRequired
		}
	}
	return s.checkColumn(t.ColumnKey)
}

type taskFields struct {
	Title     string          `validate:"required"`
	ColumnKey model.ColumnKey `validate:"required"`
	Checklist []itemFields    `validate:"dive"`
}

type itemFields struct {
	Text string `validate:"required"`
}

func (s *Store) checkColumn(key model.ColumnKey) error {
	if key == "" {
		return ErrColumnRequired
	}
	if !model.HasColumn(s.columns, key) {
		return fmt.Errorf("%w %q", ErrUnknownColumn, key)
	}
	return nil
}

// normalizeItems trims item text and assigns ids to new items.
func (s *Store) normalizeItems(taskID string, items []model.ChecklistItem) []model.ChecklistItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]model.ChecklistItem, len(items))
	for i, it := range items {
		it.Text = strings.TrimSpace(it.Text)
		it.TaskID = taskID
		if it.ID == "" {
			it.ID = s.newID()
		}
		out[i] = it
	}
	return out
}

func (s *Store) taskFilter(taskID string) recordstore.Filter {
	return recordstore.Eq("id", taskID).Eq("owner_id", s.owner)
}

// acquire takes the coarse save gate.
func (s *Store) acquire() error {
	var err error
	s.mutate(func() {
		switch {
		case s.closed:
			err = ErrClosed
		case s.busy:
			err = ErrBusy
		default:
			s.busy = true
		}
	})
	return err
}

func (s *Store) release() {
	s.mutate(func() { s.busy = false })
}

// wrote marks a completed write so later loads do not join a fetch that
// started before it.
func (s *Store) wrote() {
	s.mu.Lock()
	s.writeGen++
	s.mu.Unlock()
}

// fail surfaces err as a UserError for op.
func (s *Store) fail(op Op, taskID string, err error) error {
	ue := &UserError{Op: op, TaskID: taskID, Err: err}
	s.logRemote(op, taskID, err)
	s.mutate(func() {
		if !s.closed {
			s.err = ue
		}
	})
	return ue
}

// failAndResync surfaces err after part of a multi-step write already
// landed, then reloads so the snapshot matches what the store holds.
func (s *Store) failAndResync(ctx context.Context, op Op, taskID string, err error) error {
	ue := s.fail(op, taskID, err)
	s.wrote()
	if lerr := s.Load(ctx); lerr != nil {
		s.log.Warnw("resync after failed write", "op", op, "task_id", taskID, "error", lerr)
	}
	return ue
}

func (s *Store) logRemote(op Op, taskID string, err error) {
	fields := []any{"op", string(op), "task_id", taskID, "error", err}
	var re *recordstore.RemoteError
	if errors.As(err, &re) {
		fields = append(fields,
			"message", re.Message,
			"details", re.Details,
			"hint", re.Hint,
			"code", re.Code)
	}
	s.log.Errorw("remote call failed", fields...)
}

// mutate runs fn under the lock and then notifies subscribers.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Tasks:   make([]model.Task, len(s.tasks)),
		Loaded:  s.loaded,
		Loading: s.loading > 0,
		Busy:    s.busy,
		Err:     s.err,
	}
	for i, t := range s.tasks {
		snap.Tasks[i] = t.Clone()
	}
	for id, n := range s.pending {
		if n > 0 {
			snap.Pending = append(snap.Pending, id)
		}
	}
	sort.Strings(snap.Pending)
	return snap
}

func (s *Store) indexLocked(taskID string) int {
	for i, t := range s.tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

func sortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
