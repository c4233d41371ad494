package board_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/weekly-planner/internal/board"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/recordstore"
)

func TestMoveOptimisticThenConfirmed(t *testing.T) {
	s, client := newTestStore(t)
	task := mustCreate(t, s, board.Draft{Title: "Move me", ColumnKey: model.StageTodo})

	m, err := s.BeginMove(task.ID, model.StageInProgress)
	if err != nil {
		t.Fatalf("BeginMove: %v", err)
	}

	snap := s.Snapshot()
	if got := snapshotTask(t, s, task.ID).ColumnKey; got != model.StageInProgress {
		t.Fatalf("optimistic column = %s, want IN_PROGRESS", got)
	}
	if !snap.IsPending(task.ID) {
		t.Fatal("task not pending before commit")
	}

	res := m.Commit(context.Background())
	if res.State != board.Confirmed || res.Err != nil {
		t.Fatalf("Commit = %v, %v", res.State, res.Err)
	}
	if res.Task.ColumnKey != model.StageInProgress {
		t.Fatalf("result column = %s", res.Task.ColumnKey)
	}
	if s.Snapshot().IsPending(task.ID) {
		t.Fatal("task still pending after commit")
	}

	rows := client.Rows(recordstore.TableTasks)
	if len(rows) != 1 || rows[0].String("column_key") != string(model.StageInProgress) {
		t.Fatalf("remote rows = %v", rows)
	}

	// Commit is settled once.
	if again := m.Commit(context.Background()); again.State != board.Confirmed {
		t.Fatalf("second Commit = %v", again.State)
	}
	if n := client.Calls(recordstore.OpUpdate, recordstore.TableTasks); n != 1 {
		t.Fatalf("task updates = %d, want 1", n)
	}
}

func TestMoveRollbackOnFailure(t *testing.T) {
	s, client := newTestStore(t)
	task := mustCreate(t, s, board.Draft{Title: "Stuck", ColumnKey: model.StageTodo})

	client.FailNext(recordstore.OpUpdate, recordstore.TableTasks, errors.New("timeout"))
	selects := client.Calls(recordstore.OpSelect, recordstore.TableTasks)

	res, err := s.MoveTask(context.Background(), task.ID, model.StageCompleted)
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if res.State != board.RolledBack {
		t.Fatalf("state = %v, want rolled back", res.State)
	}
	if res.Err == nil || res.Err.Error() != "Falha ao mover tarefa: timeout" {
		t.Fatalf("result Err = %v", res.Err)
	}
	if res.Task.ColumnKey != model.StageTodo {
		t.Fatalf("restored column = %s, want TODO", res.Task.ColumnKey)
	}

	if got := snapshotTask(t, s, task.ID).ColumnKey; got != model.StageTodo {
		t.Fatalf("snapshot column = %s, want TODO", got)
	}
	if client.Calls(recordstore.OpSelect, recordstore.TableTasks) == selects {
		t.Fatal("no reload after failed move")
	}
	snap := s.Snapshot()
	var ue *board.UserError
	if !errors.As(snap.Err, &ue) || ue.Op != board.OpMove || ue.TaskID != task.ID {
		t.Fatalf("snapshot Err = %v, want move UserError", snap.Err)
	}
	if snap.IsPending(task.ID) {
		t.Fatal("task still pending after rollback")
	}
}

func TestMoveToSameColumnIsNoop(t *testing.T) {
	s, client := newTestStore(t)
	task := mustCreate(t, s, board.Draft{Title: "Stay", ColumnKey: model.DayFriday})

	m, err := s.BeginMove(task.ID, model.DayFriday)
	if err != nil {
		t.Fatalf("BeginMove: %v", err)
	}
	if !m.Noop() {
		t.Fatal("same-column move is not a no-op")
	}
	if s.Snapshot().IsPending(task.ID) {
		t.Fatal("no-op move marked pending")
	}
	if res := m.Commit(context.Background()); res.State != board.Confirmed {
		t.Fatalf("Commit = %v", res.State)
	}
	if n := client.Calls(recordstore.OpUpdate, recordstore.TableTasks); n != 0 {
		t.Fatalf("task updates = %d, want 0", n)
	}
}

func TestMoveRejectsUnknownColumn(t *testing.T) {
	s, _ := newTestStore(t, board.WithColumns(model.StageColumns))
	task := mustCreate(t, s, board.Draft{Title: "Staged", ColumnKey: model.StageTodo})

	if _, err := s.BeginMove(task.ID, model.DayMonday); !errors.Is(err, board.ErrUnknownColumn) {
		t.Fatalf("err = %v, want ErrUnknownColumn", err)
	}
	if _, err := s.BeginMove("ghost", model.StageTodo); !errors.Is(err, board.ErrUnknownTask) {
		t.Fatalf("err = %v, want ErrUnknownTask", err)
	}
}

func TestToggleResortsChecklist(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, board.Draft{Title: "Sorted", ColumnKey: model.StageTodo})
	for _, text := range []string{"first", "second", "third"} {
		if _, err := s.AddChecklistItem(ctx, task.ID, text); err != nil {
			t.Fatalf("AddChecklistItem: %v", err)
		}
	}

	first := snapshotTask(t, s, task.ID).Checklist[0]
	if first.Text != "first" {
		t.Fatalf("first item = %q", first.Text)
	}

	m, err := s.BeginToggleChecklistItem(task.ID, first.ID, true)
	if err != nil {
		t.Fatalf("BeginToggleChecklistItem: %v", err)
	}
	if got := itemTexts(snapshotTask(t, s, task.ID).Checklist); !equalStrings(got, []string{"second", "third", "first"}) {
		t.Fatalf("optimistic order = %v", got)
	}
	if res := m.Commit(ctx); res.State != board.Confirmed {
		t.Fatalf("Commit = %v, %v", res.State, res.Err)
	}

	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := itemTexts(snapshotTask(t, s, task.ID).Checklist); !equalStrings(got, []string{"second", "third", "first"}) {
		t.Fatalf("reloaded order = %v", got)
	}
}

func TestChecklistTextAndDelete(t *testing.T) {
	s, client := newTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, board.Draft{
		Title: "Edit items", ColumnKey: model.StageTodo,
		Checklist: []model.ChecklistItem{{Text: "old"}, {Text: "drop"}},
	})
	items := snapshotTask(t, s, task.ID).Checklist

	if _, err := s.UpdateChecklistItemText(ctx, task.ID, items[0].ID, "   "); !errors.Is(err, board.ErrItemTextRequired) {
		t.Fatalf("blank text err = %v", err)
	}
	res, err := s.UpdateChecklistItemText(ctx, task.ID, items[0].ID, " new ")
	if err != nil || res.State != board.Confirmed {
		t.Fatalf("UpdateChecklistItemText = %v, %v", res.State, err)
	}
	res, err = s.DeleteChecklistItem(ctx, task.ID, items[1].ID)
	if err != nil || res.State != board.Confirmed {
		t.Fatalf("DeleteChecklistItem = %v, %v", res.State, err)
	}

	if got := itemTexts(snapshotTask(t, s, task.ID).Checklist); !equalStrings(got, []string{"new"}) {
		t.Fatalf("checklist = %v, want [new]", got)
	}
	rows := client.Rows(recordstore.TableChecklistItems)
	if len(rows) != 1 || rows[0].String("text") != "new" {
		t.Fatalf("remote items = %v", rows)
	}

	if _, err := s.DeleteChecklistItem(ctx, task.ID, "ghost"); !errors.Is(err, board.ErrUnknownItem) {
		t.Fatalf("unknown item err = %v", err)
	}
}

func TestChecklistFailureRestoresTask(t *testing.T) {
	s, client := newTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, board.Draft{
		Title: "Fragile", ColumnKey: model.StageTodo,
		Checklist: []model.ChecklistItem{{Text: "only"}},
	})
	item := snapshotTask(t, s, task.ID).Checklist[0]

	client.FailNext(recordstore.OpUpdate, recordstore.TableChecklistItems, errors.New("write failed"))
	res, err := s.ToggleChecklistItem(ctx, task.ID, item.ID, true)
	if err != nil {
		t.Fatalf("ToggleChecklistItem: %v", err)
	}
	if res.State != board.RolledBack {
		t.Fatalf("state = %v, want rolled back", res.State)
	}
	if res.Err.Error() != "Falha ao atualizar checklist: write failed" {
		t.Fatalf("Err = %q", res.Err.Error())
	}
	if snapshotTask(t, s, task.ID).Checklist[0].Completed {
		t.Fatal("item still completed after rollback")
	}

	client.FailNext(recordstore.OpInsert, recordstore.TableChecklistItems, errors.New("write failed"))
	res, err = s.AddChecklistItem(ctx, task.ID, "extra")
	if err != nil || res.State != board.RolledBack {
		t.Fatalf("AddChecklistItem = %v, %v", res.State, err)
	}
	if n := len(snapshotTask(t, s, task.ID).Checklist); n != 1 {
		t.Fatalf("checklist has %d items after failed add, want 1", n)
	}

	s.DismissError()
	if s.Snapshot().Err != nil {
		t.Fatal("DismissError did not clear the error")
	}
}

func TestCommitAfterCloseLeavesSnapshot(t *testing.T) {
	s, client := newTestStore(t)
	task := mustCreate(t, s, board.Draft{Title: "Late", ColumnKey: model.StageTodo})

	m, err := s.BeginMove(task.ID, model.StageCompleted)
	if err != nil {
		t.Fatalf("BeginMove: %v", err)
	}
	s.Close()

	client.FailNext(recordstore.OpUpdate, recordstore.TableTasks, errors.New("too late"))
	selects := client.Calls(recordstore.OpSelect, recordstore.TableTasks)
	res := m.Commit(context.Background())
	if res.State != board.RolledBack {
		t.Fatalf("state = %v, want rolled back", res.State)
	}

	if got := snapshotTask(t, s, task.ID).ColumnKey; got != model.StageCompleted {
		t.Fatalf("closed store snapshot changed to %s", got)
	}
	if s.Snapshot().Err != nil {
		t.Fatal("closed store surfaced an error")
	}
	if client.Calls(recordstore.OpSelect, recordstore.TableTasks) != selects {
		t.Fatal("closed store reloaded")
	}
}

func TestConfirmedMoveSurvivesLoadDuringCommit(t *testing.T) {
	s, client := newTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, board.Draft{Title: "Slow", ColumnKey: model.StageTodo})

	release := client.Hold(recordstore.OpUpdate, recordstore.TableTasks)
	defer release()

	m, err := s.BeginMove(task.ID, model.StageInProgress)
	if err != nil {
		t.Fatalf("BeginMove: %v", err)
	}
	done := make(chan board.Result, 1)
	go func() { done <- m.Commit(ctx) }()

	for client.Calls(recordstore.OpUpdate, recordstore.TableTasks) == 0 {
		time.Sleep(time.Millisecond)
	}

	// The remote row still says TODO; the pending move stays on top.
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := snapshotTask(t, s, task.ID).ColumnKey; got != model.StageInProgress {
		t.Fatalf("column during commit = %s, want IN_PROGRESS", got)
	}

	release()
	res := <-done
	if res.State != board.Confirmed {
		t.Fatalf("state = %v, err %v", res.State, res.Err)
	}
	if got := snapshotTask(t, s, task.ID).ColumnKey; got != model.StageInProgress {
		t.Fatalf("column after commit = %s, want IN_PROGRESS", got)
	}
}

func TestRollbackKeepsOtherPendingChanges(t *testing.T) {
	s, client := newTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, board.Draft{
		Title: "Two items", ColumnKey: model.StageTodo,
		Checklist: []model.ChecklistItem{{Text: "a"}, {Text: "b"}},
	})
	items := snapshotTask(t, s, task.ID).Checklist
	a, b := items[0].ID, items[1].ID

	pendingB, err := s.BeginToggleChecklistItem(task.ID, b, true)
	if err != nil {
		t.Fatalf("BeginToggle b: %v", err)
	}

	client.FailNext(recordstore.OpUpdate, recordstore.TableChecklistItems, errors.New("write failed"))
	client.FailNext(recordstore.OpSelect, recordstore.TableTasks, errors.New("offline"))
	res, err := s.ToggleChecklistItem(ctx, task.ID, a, true)
	if err != nil || res.State != board.RolledBack {
		t.Fatalf("toggle a = %v, %v", res.State, err)
	}

	completed := func(items []model.ChecklistItem, id string) bool {
		for _, it := range items {
			if it.ID == id {
				return it.Completed
			}
		}
		t.Fatalf("item %s missing", id)
		return false
	}
	got := snapshotTask(t, s, task.ID).Checklist
	if completed(got, a) {
		t.Error("a still completed after its rollback")
	}
	if !completed(got, b) {
		t.Error("pending toggle of b lost by a's rollback")
	}
	if !completed(res.Task.Checklist, b) {
		t.Error("result task lost b's pending toggle")
	}

	if r := pendingB.Commit(ctx); r.State != board.Confirmed {
		t.Fatalf("commit b = %v, %v", r.State, r.Err)
	}
	if !completed(snapshotTask(t, s, task.ID).Checklist, b) {
		t.Error("b not completed after confirmation")
	}
}
