package inbound

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
	"github.com/shandysiswandi/taskdeck/internal/project/usecase"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) ListProjects(r *router.Request) (any, error) {
	items, err := h.uc.ListProjects(r.Context())
	if err != nil {
		return nil, err
	}

	return ListProjectsResponse{Items: lo.Map(items, func(p entity.Project, _ int) ProjectResponse {
		return toProjectResponse(p)
	})}, nil
}

func (h *HTTPEndpoint) CreateProject(r *router.Request) (any, error) {
	var req CreateProjectRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	p, err := h.uc.CreateProject(r.Context(), usecase.CreateProjectInput{
		IdempotencyKey: idempotencyKey(r),
		Name:           req.Name,
		Description:    req.Description,
	})
	if err != nil {
		return nil, err
	}

	return CreateProjectResponse{ProjectResponse: toProjectResponse(*p)}, nil
}

func (h *HTTPEndpoint) GetProject(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	p, err := h.uc.GetProject(r.Context(), usecase.ProjectInput{ID: id})
	if err != nil {
		return nil, err
	}

	return toProjectResponse(*p), nil
}

func (h *HTTPEndpoint) DeleteProject(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.DeleteProject(r.Context(), usecase.ProjectInput{ID: id}); err != nil {
		return nil, err
	}

	return router.NoContent{}, nil
}

func (h *HTTPEndpoint) ListTasks(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListTasks(r.Context(), usecase.ListTasksInput{ProjectID: id})
	if err != nil {
		return nil, err
	}

	return ListTasksResponse{Items: lo.Map(items, func(t entity.Task, _ int) TaskResponse {
		return toTaskResponse(t)
	})}, nil
}

func (h *HTTPEndpoint) CreateTask(r *router.Request) (any, error) {
	projectID, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req CreateTaskRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	in := usecase.CreateTaskInput{
		IdempotencyKey: idempotencyKey(r),
		ProjectID:      projectID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		DueDate:        req.DueDate,
	}
	if req.ParentID.Set && !req.ParentID.Null && req.ParentID.Value != 0 {
		in.ParentID = lo.ToPtr(int64(req.ParentID.Value))
	}

	t, err := h.uc.CreateTask(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return CreateTaskResponse{TaskResponse: toTaskResponse(*t)}, nil
}

// UpdateTask applies only the keys present in the body. A null or empty
// parent_id detaches the task.
func (h *HTTPEndpoint) UpdateTask(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req UpdateTaskRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	in := usecase.UpdateTaskInput{
		ID:          id,
		Title:       optionalString(req.Title),
		Description: optionalString(req.Description),
		Status:      optionalString(req.Status),
		DueDate:     optionalString(req.DueDate),
	}
	if req.ParentID.Set {
		if req.ParentID.Null || req.ParentID.Value == 0 {
			in.ClearParent = true
		} else {
			in.ParentID = lo.ToPtr(int64(req.ParentID.Value))
		}
	}

	t, err := h.uc.UpdateTask(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return toTaskResponse(*t), nil
}

func (h *HTTPEndpoint) DeleteTask(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.DeleteTask(r.Context(), usecase.TaskInput{ID: id}); err != nil {
		return nil, err
	}

	return router.NoContent{}, nil
}

// optionalString maps a sent null to an empty string, so clearing and
// blanking behave the same.
func optionalString(o Optional[string]) *string {
	if !o.Set {
		return nil
	}
	return lo.ToPtr(o.Value)
}

func idempotencyKey(r *router.Request) string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}

func toProjectResponse(p entity.Project) ProjectResponse {
	return ProjectResponse{
		ID:          strconv.FormatInt(p.ID, 10),
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   strconv.FormatInt(p.CreatedBy, 10),
		CreatedAt:   p.CreatedAt,
	}
}

func toTaskResponse(t entity.Task) TaskResponse {
	resp := TaskResponse{
		ID:          strconv.FormatInt(t.ID, 10),
		ProjectID:   strconv.FormatInt(t.ProjectID, 10),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status.String(),
		DueDate:     t.DueDateString(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.ParentID != nil {
		resp.ParentID = lo.ToPtr(strconv.FormatInt(*t.ParentID, 10))
	}
	return resp
}
