package model

import "time"

// ColumnKey identifies the board column a task belongs to. It is the only
// source of truth for column membership: moving a task changes nothing but
// its ColumnKey.
type ColumnKey string

// Stage layout keys.
const (
	StageTodo       ColumnKey = "TODO"
	StageInProgress ColumnKey = "IN_PROGRESS"
	StageCompleted  ColumnKey = "COMPLETED"
)

// Day-of-week layout keys.
const (
	DayMonday    ColumnKey = "MONDAY"
	DayTuesday   ColumnKey = "TUESDAY"
	DayWednesday ColumnKey = "WEDNESDAY"
	DayThursday  ColumnKey = "THURSDAY"
	DayFriday    ColumnKey = "FRIDAY"
	DaySaturday  ColumnKey = "SATURDAY"
	DaySunday    ColumnKey = "SUNDAY"
)

// Priority is an optional display label. Its sort order comes from
// PriorityRank, not from the label text.
type Priority string

// Known priority labels, highest first.
const (
	PriorityHigh      Priority = "High Priority"
	PriorityImportant Priority = "Important"
	PriorityOK        Priority = "OK"
	PriorityMeh       Priority = "Meh"
	PriorityNone      Priority = ""
)

// Priorities lists the known labels in rank order.
var Priorities = []Priority{PriorityHigh, PriorityImportant, PriorityOK, PriorityMeh}

// PriorityRank maps each known label to its sort rank (lower sorts first).
var PriorityRank = map[Priority]int{
	PriorityHigh:      0,
	PriorityImportant: 1,
	PriorityOK:        2,
	PriorityMeh:       3,
}

// Rank returns the sort rank of p and whether p is a ranked label.
func (p Priority) Rank() (int, bool) {
	r, ok := PriorityRank[p]
	return r, ok
}

// Task is a card on the board. Its checklist is owned by the task and is
// deleted together with it.
type Task struct {
	ID            string          `json:"id" db:"id"`
	Title         string          `json:"title" db:"title"`
	Description   string          `json:"description,omitempty" db:"description"`
	ColumnKey     ColumnKey       `json:"column_key" db:"column_key"`
	Priority      Priority        `json:"priority,omitempty" db:"priority"`
	CommentsCount int             `json:"comments_count,omitempty" db:"comments_count"`
	OwnerID       string          `json:"owner_id" db:"owner_id"`
	Checklist     []ChecklistItem `json:"checklist" db:"-"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Clone returns a copy of t that shares no checklist memory with t.
func (t Task) Clone() Task {
	if t.Checklist != nil {
		items := make([]ChecklistItem, len(t.Checklist))
		copy(items, t.Checklist)
		t.Checklist = items
	}
	return t
}

// ChecklistItem is a single entry of a task's checklist.
// A zero CreatedAt means the store has not assigned a timestamp yet.
type ChecklistItem struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	Text      string    `json:"text" db:"text"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
