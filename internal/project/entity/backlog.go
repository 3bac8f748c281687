package entity

import (
	"strings"
	"time"
)

type BacklogPriority string

const (
	BacklogPriorityHigh   BacklogPriority = "high"
	BacklogPriorityMedium BacklogPriority = "medium"
	BacklogPriorityLow    BacklogPriority = "low"
)

func (p BacklogPriority) String() string { return string(p) }

// ParseBacklogPriority reports whether raw names a known priority.
func ParseBacklogPriority(raw string) (BacklogPriority, bool) {
	switch p := BacklogPriority(strings.ToLower(strings.TrimSpace(raw))); p {
	case BacklogPriorityHigh, BacklogPriorityMedium, BacklogPriorityLow:
		return p, true
	default:
		return "", false
	}
}

// BacklogPriorityOrMedium is ParseBacklogPriority that falls back to medium.
func BacklogPriorityOrMedium(raw string) BacklogPriority {
	if p, ok := ParseBacklogPriority(raw); ok {
		return p
	}
	return BacklogPriorityMedium
}

// ParseBacklogStatus accepts the task statuses a backlog item can take.
// Done is not one of them.
func ParseBacklogStatus(raw string) (TaskStatus, bool) {
	s, ok := ParseTaskStatus(raw)
	if !ok || s == TaskStatusDone {
		return "", false
	}
	return s, true
}

// BacklogStatusOrTodo is ParseBacklogStatus that falls back to todo.
func BacklogStatusOrTodo(raw string) TaskStatus {
	if s, ok := ParseBacklogStatus(raw); ok {
		return s
	}
	return TaskStatusTodo
}

// NormalizeTags trims every comma separated tag and drops the empty ones.
func NormalizeTags(raw string) string {
	parts := strings.Split(raw, ",")
	tags := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return strings.Join(tags, ",")
}

type Backlog struct {
	ID        int64
	ProjectID int64
	ParentID  *int64
	Title     string
	Priority  BacklogPriority
	Status    TaskStatus
	// Tags is a normalized comma separated list.
	Tags      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BacklogPatch struct {
	Title       *string
	Priority    *BacklogPriority
	Status      *TaskStatus
	Tags        *string
	ParentID    *int64
	ClearParent bool
}

func (p BacklogPatch) Apply(b *Backlog) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Priority != nil {
		b.Priority = *p.Priority
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.Tags != nil {
		b.Tags = *p.Tags
	}
	switch {
	case p.ClearParent:
		b.ParentID = nil
	case p.ParentID != nil:
		id := *p.ParentID
		b.ParentID = &id
	}
}
