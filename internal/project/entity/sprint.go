package entity

import (
	"strings"
	"time"
)

type SprintStatus string

const (
	SprintStatusPlanned SprintStatus = "planned"
	SprintStatusActive  SprintStatus = "active"
	SprintStatusDone    SprintStatus = "done"
)

func (s SprintStatus) String() string { return string(s) }

func ParseSprintStatus(raw string) (SprintStatus, bool) {
	switch s := SprintStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case SprintStatusPlanned, SprintStatusActive, SprintStatusDone:
		return s, true
	default:
		return "", false
	}
}

// SprintStatusOrPlanned is ParseSprintStatus that falls back to planned.
func SprintStatusOrPlanned(raw string) SprintStatus {
	if s, ok := ParseSprintStatus(raw); ok {
		return s
	}
	return SprintStatusPlanned
}

type Sprint struct {
	ID          int64
	ProjectID   int64
	Name        string
	Status      SprintStatus
	StartDate   *time.Time
	EndDate     *time.Time
	Velocity    int
	ScopePoints int
	DonePoints  int
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StartDateString returns the start date as YYYY-MM-DD, or "".
func (s Sprint) StartDateString() string { return formatDate(s.StartDate) }

// EndDateString returns the end date as YYYY-MM-DD, or "".
func (s Sprint) EndDateString() string { return formatDate(s.EndDate) }

// SprintPatch carries a partial sprint update. ClearStartDate and
// ClearEndDate null the date.
type SprintPatch struct {
	Name           *string
	Status         *SprintStatus
	StartDate      *time.Time
	ClearStartDate bool
	EndDate        *time.Time
	ClearEndDate   bool
	Velocity       *int
	ScopePoints    *int
	DonePoints     *int
	Notes          *string
}

func (p SprintPatch) Apply(s *Sprint) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	s.StartDate = patchDate(s.StartDate, p.StartDate, p.ClearStartDate)
	s.EndDate = patchDate(s.EndDate, p.EndDate, p.ClearEndDate)
	if p.Velocity != nil {
		s.Velocity = *p.Velocity
	}
	if p.ScopePoints != nil {
		s.ScopePoints = *p.ScopePoints
	}
	if p.DonePoints != nil {
		s.DonePoints = *p.DonePoints
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

func patchDate(cur, set *time.Time, reset bool) *time.Time {
	switch {
	case reset:
		return nil
	case set != nil:
		d := *set
		return &d
	default:
		return cur
	}
}
