package projector

import (
	"reflect"
	"testing"
	"time"

	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/policy"
)

var base = time.Date(2026, 4, 6, 10, 0, 0, 0, time.UTC)

func task(id string, key model.ColumnKey, minutes int) model.Task {
	return model.Task{ID: id, Title: id, ColumnKey: key, CreatedAt: base.Add(time.Duration(minutes) * time.Minute)}
}

func TestProjectKeepsEveryColumn(t *testing.T) {
	views := Project(nil, model.DayColumns, policy.SortNone)
	if len(views) != len(model.DayColumns) {
		t.Fatalf("got %d views, want %d", len(views), len(model.DayColumns))
	}
	for i, v := range views {
		if v.Key != model.DayColumns[i].Key || v.Name != model.DayColumns[i].Name {
			t.Errorf("view %d = %s, want %s", i, v.Key, model.DayColumns[i].Key)
		}
		if len(v.Tasks) != 0 {
			t.Errorf("view %s has %d tasks, want 0", v.Key, len(v.Tasks))
		}
	}
}

func TestProjectGroupsAndSorts(t *testing.T) {
	tasks := []model.Task{
		task("late-todo", model.StageTodo, 5),
		task("done", model.StageCompleted, 1),
		task("early-todo", model.StageTodo, 0),
	}

	views := Project(tasks, model.StageColumns, policy.SortNone)

	got := map[model.ColumnKey][]string{}
	for _, v := range views {
		for _, tk := range v.Tasks {
			got[v.Key] = append(got[v.Key], tk.ID)
		}
	}
	want := map[model.ColumnKey][]string{
		model.StageTodo:      {"early-todo", "late-todo"},
		model.StageCompleted: {"done"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("grouping = %v, want %v", got, want)
	}
}

func TestProjectUnionEqualsFilteredInput(t *testing.T) {
	var tasks []model.Task
	for i, col := range model.StageColumns {
		for j := 0; j < 3; j++ {
			tasks = append(tasks, task(string(col.Key)+"-"+string(rune('a'+j)), col.Key, i*10+j))
		}
	}
	tasks[1].Title = "keep me"
	tasks[4].Title = "keep me too"

	filter := policy.Filter{Keyword: "keep"}
	views := ProjectFiltered(tasks, model.StageColumns, filter, policy.SortAlphaAsc)

	seen := map[string]int{}
	for _, v := range views {
		for _, tk := range v.Tasks {
			seen[tk.ID]++
		}
	}
	for _, tk := range tasks {
		want := 0
		if filter.Match(tk) {
			want = 1
		}
		if seen[tk.ID] != want {
			t.Errorf("task %s appears %d times, want %d", tk.ID, seen[tk.ID], want)
		}
	}
}

func TestVisible(t *testing.T) {
	views := Project(nil, model.StageColumns, policy.SortNone)

	if got := Visible(views, ""); len(got) != 3 {
		t.Fatalf("no focus: %d views, want 3", len(got))
	}
	got := Visible(views, model.StageInProgress)
	if len(got) != 1 || got[0].Key != model.StageInProgress {
		t.Fatalf("focus: %v", got)
	}
	if got := Visible(views, model.DayMonday); len(got) != 3 {
		t.Fatalf("unknown focus: %d views, want 3", len(got))
	}
}

func TestFindAndOrphans(t *testing.T) {
	tasks := []model.Task{
		task("a", model.StageTodo, 0),
		task("b", model.StageCompleted, 1),
		task("monday", model.DayMonday, 2),
	}
	views := Project(tasks, model.StageColumns, policy.SortNone)

	col, row, ok := Find(views, "b")
	if !ok || col != 2 || row != 0 {
		t.Fatalf("Find(b) = %d, %d, %v", col, row, ok)
	}
	if _, _, ok := Find(views, "monday"); ok {
		t.Fatal("Find located a task outside the layout")
	}

	orphans := Orphans(tasks, model.StageColumns)
	if len(orphans) != 1 || orphans[0].ID != "monday" {
		t.Fatalf("Orphans = %v", orphans)
	}
}

func TestDone(t *testing.T) {
	v := ColumnView{Tasks: []model.Task{
		{ID: "empty"},
		{ID: "done", Checklist: []model.ChecklistItem{{ID: "1", Completed: true}}},
		{ID: "open", Checklist: []model.ChecklistItem{{ID: "2"}}},
	}}
	if got := v.Done(); got != 1 {
		t.Fatalf("Done = %d, want 1", got)
	}
}
