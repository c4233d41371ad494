// Package projector groups board tasks into column views.
package projector

import (
	"github.com/nhle/weekly-planner/internal/checklist"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/policy"
)

// ColumnView is one rendered column: its configuration and its tasks in
// display order.
type ColumnView struct {
	model.Column
	Tasks []model.Task
}

// Done counts the tasks of the view whose checklist is fully completed.
func (v ColumnView) Done() int {
	n := 0
	for _, t := range v.Tasks {
		if checklist.IsFullyCompleted(t.Checklist) {
			n++
		}
	}
	return n
}

// Project returns one view per column, in column order, each holding the
// tasks whose ColumnKey matches sorted by sortType. Columns without tasks
// are kept. Tasks whose key matches no column are left out.
func Project(tasks []model.Task, columns []model.Column, sortType policy.SortType) []ColumnView {
	byKey := make(map[model.ColumnKey][]model.Task, len(columns))
	for _, t := range tasks {
		byKey[t.ColumnKey] = append(byKey[t.ColumnKey], t)
	}

	views := make([]ColumnView, len(columns))
	for i, col := range columns {
		views[i] = ColumnView{
			Column: col,
			Tasks:  policy.Sort(byKey[col.Key], sortType),
		}
	}
	return views
}

// ProjectFiltered applies filter before projecting.
func ProjectFiltered(tasks []model.Task, columns []model.Column, filter policy.Filter, sortType policy.SortType) []ColumnView {
	match := filter.Matcher()
	kept := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if match(t) {
			kept = append(kept, t)
		}
	}
	return Project(kept, columns, sortType)
}

// Visible narrows views to the focused column. An empty or unknown focus
// shows every column.
func Visible(views []ColumnView, focus model.ColumnKey) []ColumnView {
	if focus == "" {
		return views
	}
	for _, v := range views {
		if v.Key == focus {
			return []ColumnView{v}
		}
	}
	return views
}

// Find returns the column holding taskID and the task's index within it.
func Find(views []ColumnView, taskID string) (col, row int, ok bool) {
	for c, v := range views {
		for r, t := range v.Tasks {
			if t.ID == taskID {
				return c, r, true
			}
		}
	}
	return 0, 0, false
}

// Orphans returns the tasks whose ColumnKey is not among columns, such as
// day-keyed tasks while the stage layout is active.
func Orphans(tasks []model.Task, columns []model.Column) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if !model.HasColumn(columns, t.ColumnKey) {
			out = append(out, t)
		}
	}
	return out
}
