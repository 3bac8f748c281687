package entity

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage layout of a task due date.
const DateLayout = "2006-01-02"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusLater      TaskStatus = "later"
)

func (s TaskStatus) String() string { return string(s) }

// ParseTaskStatus reports whether raw names a known status. Case and
// surrounding space are ignored.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	switch s := TaskStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone, TaskStatusLater:
		return s, true
	default:
		return "", false
	}
}

// TaskStatusOrTodo is ParseTaskStatus that falls back to todo.
func TaskStatusOrTodo(raw string) TaskStatus {
	if s, ok := ParseTaskStatus(raw); ok {
		return s
	}
	return TaskStatusTodo
}

type Task struct {
	ID          int64
	ProjectID   int64
	ParentID    *int64
	Title       string
	Description string
	Status      TaskStatus
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DueDateString returns the due date as YYYY-MM-DD, or "".
func (t Task) DueDateString() string { return formatDate(t.DueDate) }

// TaskPatch carries the fields of a partial task update. A nil field is
// left untouched. ClearParent and ClearDueDate null the column.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
	ParentID     *int64
	ClearParent  bool
}

// Apply writes the set fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.DueDate = patchDate(t.DueDate, p.DueDate, p.ClearDueDate)
	switch {
	case p.ClearParent:
		t.ParentID = nil
	case p.ParentID != nil:
		id := *p.ParentID
		t.ParentID = &id
	}
}
