package policy

import (
	"reflect"
	"testing"
	"time"

	"github.com/nhle/weekly-planner/internal/model"
)

var base = time.Date(2026, 4, 6, 10, 0, 0, 0, time.UTC)

func task(id, title string, minutes int) model.Task {
	return model.Task{
		ID:        id,
		Title:     title,
		ColumnKey: model.StageTodo,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func taskIDs(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestFilterMatch(t *testing.T) {
	tk := task("1", "Revisar Relatório", 0)
	tk.Priority = model.PriorityImportant
	tk.ColumnKey = model.StageInProgress

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"zero filter", Filter{}, true},
		{"keyword case-insensitive", Filter{Keyword: "relatório"}, true},
		{"keyword trimmed", Filter{Keyword: "  REVISAR "}, true},
		{"keyword miss", Filter{Keyword: "sprint"}, false},
		{"priority hit", Filter{Priorities: []model.Priority{model.PriorityHigh, model.PriorityImportant}}, true},
		{"priority miss", Filter{Priorities: []model.Priority{model.PriorityMeh}}, false},
		{"column hit", Filter{Columns: []model.ColumnKey{model.StageInProgress}}, true},
		{"column miss", Filter{Columns: []model.ColumnKey{model.StageTodo}}, false},
		{"conjunction", Filter{Keyword: "revisar", Columns: []model.ColumnKey{model.StageTodo}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tk); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterActive(t *testing.T) {
	if (Filter{Keyword: "   "}).Active() {
		t.Error("blank keyword reported active")
	}
	if !(Filter{Columns: []model.ColumnKey{model.DayMonday}}).Active() {
		t.Error("column filter reported inactive")
	}
}

func TestSortAlphabeticalIsLocaleAware(t *testing.T) {
	tasks := []model.Task{
		task("banana", "banana", 0),
		task("abacate", "Abacate", 1),
		task("arvore", "árvore", 2),
		task("casa", "casa", 3),
	}

	got := taskIDs(Sort(tasks, SortAlphaAsc))
	want := []string{"abacate", "arvore", "banana", "casa"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("asc = %v, want %v", got, want)
	}

	got = taskIDs(Sort(tasks, SortAlphaDesc))
	want = []string{"casa", "banana", "arvore", "abacate"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("desc = %v, want %v", got, want)
	}
}

func TestSortPriorityUnrankedLast(t *testing.T) {
	tasks := []model.Task{
		task("none", "a", 0),
		task("meh", "b", 1),
		task("high", "c", 2),
		task("custom", "d", 3),
		task("ok", "e", 4),
	}
	tasks[1].Priority = model.PriorityMeh
	tasks[2].Priority = model.PriorityHigh
	tasks[3].Priority = "Someday"
	tasks[4].Priority = model.PriorityOK

	got := taskIDs(Sort(tasks, SortPriority))
	want := []string{"high", "ok", "meh", "none", "custom"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("priority = %v, want %v", got, want)
	}
}

func TestSortCommentsAndRecency(t *testing.T) {
	tasks := []model.Task{task("old", "a", 0), task("mid", "b", 5), task("new", "c", 10)}
	tasks[0].CommentsCount = 2
	tasks[1].CommentsCount = 7

	if got := taskIDs(Sort(tasks, SortComments)); !reflect.DeepEqual(got, []string{"mid", "old", "new"}) {
		t.Errorf("comments = %v", got)
	}
	if got := taskIDs(Sort(tasks, SortNewest)); !reflect.DeepEqual(got, []string{"new", "mid", "old"}) {
		t.Errorf("newest = %v", got)
	}

	shuffled := []model.Task{tasks[2], tasks[0], tasks[1]}
	if got := taskIDs(Sort(shuffled, SortNone)); !reflect.DeepEqual(got, []string{"old", "mid", "new"}) {
		t.Errorf("default = %v", got)
	}
}

func TestSortStable(t *testing.T) {
	// Equal keys under every comparator.
	tasks := []model.Task{task("1", "Same", 0), task("2", "same", 0), task("3", "SAME", 0)}
	want := []string{"1", "2", "3"}

	for _, o := range SortOptions {
		t.Run(o.Label, func(t *testing.T) {
			if got := taskIDs(Sort(tasks, o.Type)); !reflect.DeepEqual(got, want) {
				t.Fatalf("%s = %v, want %v", o.Type, got, want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tasks := []model.Task{
		task("1", "Plan sprint", 2),
		task("2", "Write notes", 1),
		task("3", "Plan retro", 0),
	}
	got := taskIDs(Apply(tasks, Filter{Keyword: "plan"}, SortNone))
	if !reflect.DeepEqual(got, []string{"3", "1"}) {
		t.Fatalf("Apply = %v, want [3 1]", got)
	}
	if tasks[0].ID != "1" {
		t.Fatal("Apply modified its input")
	}
}

func TestParseSortType(t *testing.T) {
	for _, o := range SortOptions {
		got, err := ParseSortType(string(o.Type))
		if err != nil || got != o.Type {
			t.Errorf("ParseSortType(%q) = %q, %v", o.Type, got, err)
		}
	}
	if got, err := ParseSortType("none"); err != nil || got != SortNone {
		t.Errorf("ParseSortType(none) = %q, %v", got, err)
	}
	if _, err := ParseSortType("random"); err == nil {
		t.Error("ParseSortType(random) succeeded")
	}
}
