package entity

import "strings"

// ResourceStatus is the availability of a team member.
type ResourceStatus string

const (
	ResourceStatusFree       ResourceStatus = "free"
	ResourceStatusOverloaded ResourceStatus = "overloaded"
	ResourceStatusHoliday    ResourceStatus = "holiday"
)

func (s ResourceStatus) String() string { return string(s) }

func ParseResourceStatus(raw string) (ResourceStatus, bool) {
	switch s := ResourceStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case ResourceStatusFree, ResourceStatusOverloaded, ResourceStatusHoliday:
		return s, true
	default:
		return "", false
	}
}

// ResourceStatusOrFree is ParseResourceStatus that falls back to free.
func ResourceStatusOrFree(raw string) ResourceStatus {
	if s, ok := ParseResourceStatus(raw); ok {
		return s
	}
	return ResourceStatusFree
}

type Resource struct {
	ID        int64
	ProjectID int64
	Name      string
	Status    ResourceStatus
	Notes     string
}

type ResourcePatch struct {
	Name   *string
	Status *ResourceStatus
	Notes  *string
}

func (p ResourcePatch) Apply(r *Resource) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
}
