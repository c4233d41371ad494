package board

import (
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/recordstore"
)

func taskFromRecord(r recordstore.Record) model.Task {
	return model.Task{
		ID:            r.String("id"),
		Title:         r.String("title"),
		Description:   r.String("description"),
		ColumnKey:     model.ColumnKey(r.String("column_key")),
		Priority:      model.Priority(r.String("priority")),
		CommentsCount: r.Int("comments_count"),
		OwnerID:       r.String("owner_id"),
		CreatedAt:     r.Time("created_at"),
		UpdatedAt:     r.Time("updated_at"),
	}
}

func itemFromRecord(r recordstore.Record) model.ChecklistItem {
	return model.ChecklistItem{
		ID:        r.String("id"),
		TaskID:    r.String("task_id"),
		Text:      r.String("text"),
		Completed: r.Bool("completed"),
		CreatedAt: r.Time("created_at"),
		UpdatedAt: r.Time("updated_at"),
	}
}

// taskFieldsRecord holds the user-editable columns of t.
func taskFieldsRecord(t model.Task) recordstore.Record {
	return recordstore.Record{
		"title":       t.Title,
		"description": t.Description,
		"column_key":  string(t.ColumnKey),
		"priority":    string(t.Priority),
	}
}

func newTaskRecord(t model.Task) recordstore.Record {
	rec := taskFieldsRecord(t)
	rec["id"] = t.ID
	rec["owner_id"] = t.OwnerID
	rec["comments_count"] = t.CommentsCount
	return rec
}

// itemRecord leaves timestamps to the store unless the item already has
// one, so existing items keep their creation time.
func itemRecord(taskID string, it model.ChecklistItem) recordstore.Record {
	rec := recordstore.Record{
		"id":        it.ID,
		"task_id":   taskID,
		"text":      it.Text,
		"completed": it.Completed,
	}
	if !it.CreatedAt.IsZero() {
		rec["created_at"] = it.CreatedAt
	}
	return rec
}

func itemRecords(taskID string, items []model.ChecklistItem) []recordstore.Record {
	recs := make([]recordstore.Record, len(items))
	for i, it := range items {
		recs[i] = itemRecord(taskID, it)
	}
	return recs
}
