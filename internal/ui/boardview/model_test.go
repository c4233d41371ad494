package boardview

import (
	"strings"
	"testing"

	"github.com/nhle/weekly-planner/internal/drag"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/policy"
	"github.com/nhle/weekly-planner/internal/projector"
)

func views(tasks ...model.Task) []projector.ColumnView {
	return projector.Project(tasks, model.StageColumns, policy.SortNone)
}

func task(id string, col model.ColumnKey) model.Task {
	return model.Task{ID: id, Title: "task " + id, ColumnKey: col}
}

func TestCursorMovement(t *testing.T) {
	m := New(120, 40)
	m.SetViews(views(
		task("a", model.StageTodo),
		task("b", model.StageTodo),
		task("c", model.StageCompleted),
	))

	if sel, ok := m.Selected(); !ok || sel.ID != "a" {
		t.Fatalf("initial selection = %+v, %v", sel, ok)
	}

	m.Down()
	m.Down()
	if sel, _ := m.Selected(); sel.ID != "b" {
		t.Fatalf("down clamps at last card, got %q", sel.ID)
	}

	m.Right()
	if _, ok := m.Selected(); ok {
		t.Fatal("empty column has a selection")
	}
	if key, _ := m.ColumnKey(); key != model.StageInProgress {
		t.Fatalf("column = %q", key)
	}

	m.Right()
	m.Right()
	if sel, _ := m.Selected(); sel.ID != "c" {
		t.Fatalf("right clamps at last column, got %q", sel.ID)
	}

	m.Left()
	m.Left()
	m.Left()
	if key, _ := m.ColumnKey(); key != model.StageTodo {
		t.Fatalf("left clamps at first column, got %q", key)
	}
}

func TestSetViewsFollowsSelectedTask(t *testing.T) {
	m := New(120, 40)
	m.SetViews(views(task("a", model.StageTodo), task("b", model.StageTodo)))
	m.Down()

	// b moved to the completed column.
	m.SetViews(views(task("a", model.StageTodo), task("b", model.StageCompleted)))
	if sel, ok := m.Selected(); !ok || sel.ID != "b" {
		t.Fatalf("selection = %+v, %v, want b", sel, ok)
	}

	// b deleted: the cursor stays in its column.
	m.SetViews(views(task("a", model.StageTodo)))
	if key, _ := m.ColumnKey(); key != model.StageCompleted {
		t.Fatalf("column = %q, want COMPLETED", key)
	}
	if _, ok := m.Selected(); ok {
		t.Fatal("selection in emptied column")
	}
}

func TestViewMarksDragAndPending(t *testing.T) {
	m := New(150, 30)
	m.SetViews(views(task("a", model.StageTodo)))
	m.SetPending([]string{"a"})
	m.SetDrag(drag.State{Phase: drag.Hovering, TaskID: "a", Source: model.StageTodo, Target: model.StageCompleted})

	out := m.View()
	for _, want := range []string{"A Fazer (1)", "Concluído (0)", "salvando", "solte aqui"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewWithoutColumns(t *testing.T) {
	m := New(60, 10)
	m.SetViews(nil)
	if !strings.Contains(m.View(), "Nenhuma coluna") {
		t.Fatal("empty board not explained")
	}
	m.Right()
	m.Down()
	if _, ok := m.Selected(); ok {
		t.Fatal("selection without columns")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a longer title", 6); got != "a lon…" {
		t.Errorf("truncate long = %q", got)
	}
	if got := truncate("x", 0); got != "" {
		t.Errorf("truncate zero = %q", got)
	}
}
