package inbound

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
)

// Optional records whether a JSON key was sent at all, and whether it was
// null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// ID accepts an identifier sent either as a JSON string or a number. An
// empty string decodes to zero.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if raw == "" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*id = ID(v)
	return nil
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateProjectResponse struct {
	router.Created
	ProjectResponse
}

func (CreateProjectResponse) Message() string { return "Project created" }

type ListProjectsResponse struct {
	Items []ProjectResponse `json:"items"`
}

func (r ListProjectsResponse) Meta() map[string]any {
	return map[string]any{"count": len(r.Items)}
}

type CreateTaskRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	DueDate     string       `json:"due_date"`
	ParentID    Optional[ID] `json:"parent_id"`
}

type UpdateTaskRequest struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Status      Optional[string] `json:"status"`
	DueDate     Optional[string] `json:"due_date"`
	ParentID    Optional[ID]     `json:"parent_id"`
}

type TaskResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	ParentID    *string   `json:"parent_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	DueDate     string    `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateTaskResponse struct {
	router.Created
	TaskResponse
}

func (CreateTaskResponse) Message() string { return "Task created" }

type ListTasksResponse struct {
	Items []TaskResponse `json:"items"`
}

func (r ListTasksResponse) Meta() map[string]any {
	return map[string]any{"count": len(r.Items)}
}

type CreateBacklogRequest struct {
	Title    string       `json:"title"`
	Priority string       `json:"priority"`
	Status   string       `json:"status"`
	Tags     string       `json:"tags"`
	ParentID Optional[ID] `json:"parent_id"`
}

type UpdateBacklogRequest struct {
	Title    Optional[string] `json:"title"`
	Priority Optional[string] `json:"priority"`
	Status   Optional[string] `json:"status"`
	Tags     Optional[string] `json:"tags"`
	ParentID Optional[ID]     `json:"parent_id"`
}

type BacklogResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	ParentID  *string   `json:"parent_id"`
	Title     string    `json:"title"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	Tags      string    `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateBacklogResponse struct {
	router.Created
	BacklogResponse
}

func (CreateBacklogResponse) Message() string { return "Backlog item created" }

type ListBacklogsResponse struct {
	Items []BacklogResponse `json:"items"`
}

func (r ListBacklogsResponse) Meta() map[string]any {
	return map[string]any{"count": len(r.Items)}
}

type CreateSprintRequest struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Velocity    int    `json:"velocity"`
	ScopePoints int    `json:"scope_points"`
	DonePoints  int    `json:"done_points"`
	Notes       string `json:"notes"`
}

type UpdateSprintRequest struct {
	Name        Optional[string] `json:"name"`
	Status      Optional[string] `json:"status"`
	StartDate   Optional[string] `json:"start_date"`
	EndDate     Optional[string] `json:"end_date"`
	Velocity    Optional[int]    `json:"velocity"`
	ScopePoints Optional[int]    `json:"scope_points"`
	DonePoints  Optional[int]    `json:"done_points"`
	Notes       Optional[string] `json:"notes"`
}

type SprintResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Velocity    int       `json:"velocity"`
	ScopePoints int       `json:"scope_points"`
	DonePoints  int       `json:"done_points"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateSprintResponse struct {
	router.Created
	SprintResponse
}

func (CreateSprintResponse) Message() string { return "Sprint created" }

type ListSprintsResponse struct {
	Items []SprintResponse `json:"items"`
}

func (r ListSprintsResponse) Meta() map[string]any {
	return map[string]any{"count": len(r.Items)}
}

type CreateResourceRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type UpdateResourceRequest struct {
	Name   Optional[string] `json:"name"`
	Status Optional[string] `json:"status"`
	Notes  Optional[string] `json:"notes"`
}

type ResourceResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

type CreateResourceResponse struct {
	router.Created
	ResourceResponse
}

func (CreateResourceResponse) Message() string { return "Resource created" }

type ListResourcesResponse struct {
	Items []ResourceResponse `json:"items"`
}

func (r ListResourcesResponse) Meta() map[string]any {
	return map[string]any{"count": len(r.Items)}
}
