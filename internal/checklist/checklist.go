// Package checklist orders task checklists and diffs an edited checklist
// against the persisted one.
package checklist

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/weekly-planner/internal/model"
)

// Plan is the remote work that turns the persisted checklist into the
// edited one: one bulk delete by id and one bulk upsert. The two id sets
// are disjoint.
type Plan struct {
	ToDelete []string
	ToUpsert []model.ChecklistItem
}

// Empty reports whether the plan needs no remote calls.
func (p Plan) Empty() bool {
	return len(p.ToDelete) == 0 && len(p.ToUpsert) == 0
}

// Reconcile computes the plan for edited given the ids currently persisted.
// Every edited item is upserted; persisted ids missing from edited are
// deleted, in their persisted order.
func Reconcile(persistedIDs []string, edited []model.ChecklistItem) Plan {
	keep := make(map[string]bool, len(edited))
	for _, item := range edited {
		keep[item.ID] = true
	}

	var plan Plan
	seen := make(map[string]bool, len(persistedIDs))
	for _, id := range persistedIDs {
		if keep[id] || seen[id] {
			continue
		}
		seen[id] = true
		plan.ToDelete = append(plan.ToDelete, id)
	}
	if len(edited) > 0 {
		plan.ToUpsert = make([]model.ChecklistItem, len(edited))
		copy(plan.ToUpsert, edited)
	}
	return plan
}

// Less orders incomplete items before completed ones, then by ascending
// creation time. Items without a timestamp sort after those with one.
func Less(a, b model.ChecklistItem) bool {
	if a.Completed != b.Completed {
		return !a.Completed
	}
	switch {
	case a.CreatedAt.IsZero() && b.CreatedAt.IsZero():
		return false
	case a.CreatedAt.IsZero():
		return false
	case b.CreatedAt.IsZero():
		return true
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// Sort returns items in display order. The input is not modified and ties
// keep their relative order.
func Sort(items []model.ChecklistItem) []model.ChecklistItem {
	if items == nil {
		return nil
	}
	out := make([]model.ChecklistItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// IsFullyCompleted reports whether items is non-empty and every item is
// completed. An empty checklist is never fully completed.
func IsFullyCompleted(items []model.ChecklistItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.Completed {
			return false
		}
	}
	return true
}

// Progress returns the number of completed items and the total.
func Progress(items []model.ChecklistItem) (done, total int) {
	for _, item := range items {
		if item.Completed {
			done++
		}
	}
	return done, len(items)
}

// Line marks used by ToLines and FromLines. ToLines follows each mark
// with a space; FromLines accepts the mark with or without one.
const (
	doneMark = "[x]"
	openMark = "[ ]"
)

// ToLines renders items one per line for editing in a text area.
func ToLines(items []model.ChecklistItem) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		if item.Completed {
			b.WriteString(doneMark)
		} else {
			b.WriteString(openMark)
		}
		b.WriteByte(' ')
		b.WriteString(item.Text)
	}
	return b.String()
}

// FromLines parses text produced by ToLines back into items for taskID.
// Blank lines are dropped. A line whose text matches an existing item
// reuses that item's id and timestamps; other lines become new items with
// fresh ids. Lines without a mark are open items.
func FromLines(taskID string, existing []model.ChecklistItem, text string) []model.ChecklistItem {
	byText := make(map[string][]model.ChecklistItem)
	for _, item := range existing {
		byText[item.Text] = append(byText[item.Text], item)
	}

	var out []model.ChecklistItem
	for _, line := range strings.Split(text, "\n") {
		completed := false
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToLower(line), doneMark):
			completed = true
			line = line[len(doneMark):]
		case strings.HasPrefix(line, openMark):
			line = line[len(openMark):]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		item := model.ChecklistItem{ID: uuid.NewString(), TaskID: taskID, Text: line}
		if matches := byText[line]; len(matches) > 0 {
			item = matches[0]
			byText[line] = matches[1:]
		}
		item.TaskID = taskID
		item.Completed = completed
		out = append(out, item)
	}
	return out
}
