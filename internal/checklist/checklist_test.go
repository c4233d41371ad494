package checklist

import (
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/nhle/weekly-planner/internal/model"
)

var t0 = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

func item(id string, completed bool, minutes int) model.ChecklistItem {
	it := model.ChecklistItem{ID: id, TaskID: "task", Text: "item " + id, Completed: completed}
	if minutes >= 0 {
		it.CreatedAt = t0.Add(time.Duration(minutes) * time.Minute)
	}
	return it
}

func ids(items []model.ChecklistItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestIsFullyCompleted(t *testing.T) {
	tests := []struct {
		name  string
		items []model.ChecklistItem
		want  bool
	}{
		{"nil", nil, false},
		{"empty", []model.ChecklistItem{}, false},
		{"one open", []model.ChecklistItem{item("a", false, 0)}, false},
		{"mixed", []model.ChecklistItem{item("a", true, 0), item("b", false, 1)}, false},
		{"all done", []model.ChecklistItem{item("a", true, 0), item("b", true, 1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFullyCompleted(tt.items); got != tt.want {
				t.Errorf("IsFullyCompleted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	done, total := Progress([]model.ChecklistItem{
		item("a", true, 0), item("b", false, 1), item("c", true, 2),
	})
	if done != 2 || total != 3 {
		t.Fatalf("Progress = %d/%d, want 2/3", done, total)
	}
}

func TestSortOrder(t *testing.T) {
	in := []model.ChecklistItem{
		item("done-late", true, 5),
		item("open-nots-1", false, -1),
		item("open-late", false, 3),
		item("done-early", true, 1),
		item("open-early", false, 0),
		item("open-nots-2", false, -1),
	}
	want := []string{"open-early", "open-late", "open-nots-1", "open-nots-2", "done-early", "done-late"}

	got := Sort(in)
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("Sort = %v, want %v", ids(got), want)
	}
	if in[0].ID != "done-late" {
		t.Fatal("Sort modified its input")
	}
}

func TestSortIdempotent(t *testing.T) {
	in := []model.ChecklistItem{
		item("a", true, 2), item("b", false, 2), item("c", false, -1),
		item("d", true, -1), item("e", false, 1), item("f", false, 1),
	}
	once := Sort(in)
	twice := Sort(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("Sort not idempotent: %v then %v", ids(once), ids(twice))
	}
}

func TestSortStableOnTies(t *testing.T) {
	in := []model.ChecklistItem{item("x", false, 1), item("y", false, 1), item("z", false, 1)}
	if got := ids(Sort(in)); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Fatalf("Sort = %v, want [x y z]", got)
	}
}

func TestReconcile(t *testing.T) {
	persisted := []string{"a", "b", "c"}
	edited := []model.ChecklistItem{item("b", true, 0), item("new", false, -1)}

	plan := Reconcile(persisted, edited)

	if !reflect.DeepEqual(plan.ToDelete, []string{"a", "c"}) {
		t.Errorf("ToDelete = %v, want [a c]", plan.ToDelete)
	}
	if !reflect.DeepEqual(ids(plan.ToUpsert), []string{"b", "new"}) {
		t.Errorf("ToUpsert = %v, want [b new]", ids(plan.ToUpsert))
	}
}

func TestReconcileRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		persisted []string
		edited    []model.ChecklistItem
	}{
		{"empty to empty", nil, nil},
		{"clear all", []string{"a", "b"}, nil},
		{"all new", nil, []model.ChecklistItem{item("x", false, 0), item("y", true, 1)}},
		{"mixed", []string{"a", "b", "c"}, []model.ChecklistItem{item("c", false, 0), item("d", false, 1)}},
		{"duplicated persisted id", []string{"a", "a"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Reconcile(tt.persisted, tt.edited)

			set := make(map[string]bool)
			for _, id := range tt.persisted {
				set[id] = true
			}
			for _, id := range plan.ToDelete {
				delete(set, id)
			}
			for _, it := range plan.ToUpsert {
				set[it.ID] = true
			}

			got := make([]string, 0, len(set))
			for id := range set {
				got = append(got, id)
			}
			want := ids(tt.edited)
			sort.Strings(got)
			sort.Strings(want)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("result ids = %v, want %v", got, want)
			}

			deleted := make(map[string]bool)
			for _, id := range plan.ToDelete {
				if deleted[id] {
					t.Fatalf("id %q deleted twice", id)
				}
				deleted[id] = true
			}
			for _, it := range plan.ToUpsert {
				if deleted[it.ID] {
					t.Fatalf("id %q both deleted and upserted", it.ID)
				}
			}
		})
	}
}

func TestReconcileEmptyPlan(t *testing.T) {
	if !Reconcile(nil, nil).Empty() {
		t.Fatal("Reconcile(nil, nil) is not empty")
	}
	if Reconcile([]string{"a"}, nil).Empty() {
		t.Fatal("plan with deletes reported empty")
	}
}

func TestLinesRoundTrip(t *testing.T) {
	existing := []model.ChecklistItem{
		{ID: "1", TaskID: "task", Text: "buy milk", CreatedAt: t0},
		{ID: "2", TaskID: "task", Text: "call mom", Completed: true, CreatedAt: t0.Add(time.Minute)},
	}

	text := ToLines(existing)
	if text != "[ ] buy milk\n[x] call mom" {
		t.Fatalf("ToLines = %q", text)
	}

	edited := FromLines("task", existing, text+"\n\n  [X] write report \nplain line")
	if len(edited) != 4 {
		t.Fatalf("FromLines returned %d items, want 4", len(edited))
	}
	if edited[0].ID != "1" || edited[1].ID != "2" {
		t.Errorf("existing ids not reused: %v", ids(edited))
	}
	if !edited[1].CreatedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("existing timestamp lost")
	}
	if edited[2].Text != "write report" || !edited[2].Completed {
		t.Errorf("item 3 = %+v, want completed %q", edited[2], "write report")
	}
	if edited[3].Text != "plain line" || edited[3].Completed {
		t.Errorf("item 4 = %+v, want open %q", edited[3], "plain line")
	}
	if edited[2].ID == "" || edited[2].ID == edited[3].ID {
		t.Errorf("new items need distinct ids: %v", ids(edited))
	}
	for _, it := range edited {
		if it.TaskID != "task" {
			t.Errorf("TaskID = %q, want task", it.TaskID)
		}
	}
}

func TestFromLinesBareMarks(t *testing.T) {
	got := FromLines("task", nil, "[x]\n[ ]\n[x]done\n[ ]open\n[X]")
	if len(got) != 2 {
		t.Fatalf("FromLines = %+v, want 2 items", got)
	}
	if got[0].Text != "done" || !got[0].Completed {
		t.Errorf("item 1 = %+v", got[0])
	}
	if got[1].Text != "open" || got[1].Completed {
		t.Errorf("item 2 = %+v", got[1])
	}
}
