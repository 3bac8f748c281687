package inbound

import (
	"strconv"

	"github.com/samber/lo"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
	"github.com/shandysiswandi/taskdeck/internal/project/usecase"
)

func (h *HTTPEndpoint) ListBacklogs(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListBacklogs(r.Context(), usecase.ListBacklogsInput{ProjectID: id})
	if err != nil {
		return nil, err
	}

	return ListBacklogsResponse{Items: lo.Map(items, func(b entity.Backlog, _ int) BacklogResponse {
		return toBacklogResponse(b)
	})}, nil
}

func (h *HTTPEndpoint) CreateBacklog(r *router.Request) (any, error) {
	projectID, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req CreateBacklogRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	in := usecase.CreateBacklogInput{
		IdempotencyKey: idempotencyKey(r),
		ProjectID:      projectID,
		Title:          req.Title,
		Priority:       req.Priority,
		Status:         req.Status,
		Tags:           req.Tags,
	}
	if req.ParentID.Set && !req.ParentID.Null && req.ParentID.Value != 0 {
		in.ParentID = lo.ToPtr(int64(req.ParentID.Value))
	}

	b, err := h.uc.CreateBacklog(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return CreateBacklogResponse{BacklogResponse: toBacklogResponse(*b)}, nil
}

// UpdateBacklog applies only the keys present in the body. A null or empty
// parent_id detaches the item.
func (h *HTTPEndpoint) UpdateBacklog(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req UpdateBacklogRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	in := usecase.UpdateBacklogInput{
		ID:       id,
		Title:    optionalString(req.Title),
		Priority: optionalString(req.Priority),
		Status:   optionalString(req.Status),
		Tags:     optionalString(req.Tags),
	}
	if req.ParentID.Set {
		if req.ParentID.Null || req.ParentID.Value == 0 {
			in.ClearParent = true
		} else {
			in.ParentID = lo.ToPtr(int64(req.ParentID.Value))
		}
	}

	b, err := h.uc.UpdateBacklog(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return toBacklogResponse(*b), nil
}

func (h *HTTPEndpoint) DeleteBacklog(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.DeleteBacklog(r.Context(), usecase.BacklogInput{ID: id}); err != nil {
		return nil, err
	}

	return router.NoContent{}, nil
}

func (h *HTTPEndpoint) ListSprints(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListSprints(r.Context(), usecase.ListSprintsInput{ProjectID: id})
	if err != nil {
		return nil, err
	}

	return ListSprintsResponse{Items: lo.Map(items, func(sp entity.Sprint, _ int) SprintResponse {
		return toSprintResponse(sp)
	})}, nil
}

func (h *HTTPEndpoint) CreateSprint(r *router.Request) (any, error) {
	projectID, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req CreateSprintRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	sp, err := h.uc.CreateSprint(r.Context(), usecase.CreateSprintInput{
		IdempotencyKey: idempotencyKey(r),
		ProjectID:      projectID,
		Name:           req.Name,
		Status:         req.Status,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Velocity:       req.Velocity,
		ScopePoints:    req.ScopePoints,
		DonePoints:     req.DonePoints,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, err
	}

	return CreateSprintResponse{SprintResponse: toSprintResponse(*sp)}, nil
}

// UpdateSprint applies only the keys present in the body. A null number
// resets it to zero and a null or empty date clears it.
func (h *HTTPEndpoint) UpdateSprint(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req UpdateSprintRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	sp, err := h.uc.UpdateSprint(r.Context(), usecase.UpdateSprintInput{
		ID:          id,
		Name:        optionalString(req.Name),
		Status:      optionalString(req.Status),
		StartDate:   optionalString(req.StartDate),
		EndDate:     optionalString(req.EndDate),
		Velocity:    optionalInt(req.Velocity),
		ScopePoints: optionalInt(req.ScopePoints),
		DonePoints:  optionalInt(req.DonePoints),
		Notes:       optionalString(req.Notes),
	})
	if err != nil {
		return nil, err
	}

	return toSprintResponse(*sp), nil
}

func (h *HTTPEndpoint) DeleteSprint(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.DeleteSprint(r.Context(), usecase.SprintInput{ID: id}); err != nil {
		return nil, err
	}

	return router.NoContent{}, nil
}

func (h *HTTPEndpoint) ListResources(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListResources(r.Context(), usecase.ListResourcesInput{ProjectID: id})
	if err != nil {
		return nil, err
	}

	return ListResourcesResponse{Items: lo.Map(items, func(res entity.Resource, _ int) ResourceResponse {
		return toResourceResponse(res)
	})}, nil
}

func (h *HTTPEndpoint) CreateResource(r *router.Request) (any, error) {
	projectID, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req CreateResourceRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	res, err := h.uc.CreateResource(r.Context(), usecase.CreateResourceInput{
		IdempotencyKey: idempotencyKey(r),
		ProjectID:      projectID,
		Name:           req.Name,
		Status:         req.Status,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, err
	}

	return CreateResourceResponse{ResourceResponse: toResourceResponse(*res)}, nil
}

func (h *HTTPEndpoint) UpdateResource(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req UpdateResourceRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	res, err := h.uc.UpdateResource(r.Context(), usecase.UpdateResourceInput{
		ID:     id,
		Name:   optionalString(req.Name),
		Status: optionalString(req.Status),
		Notes:  optionalString(req.Notes),
	})
	if err != nil {
		return nil, err
	}

	return toResourceResponse(*res), nil
}

func (h *HTTPEndpoint) DeleteResource(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.DeleteResource(r.Context(), usecase.ResourceInput{ID: id}); err != nil {
		return nil, err
	}

	return router.NoContent{}, nil
}

func optionalInt(o Optional[int]) *int {
	if !o.Set {
		return nil
	}
	return lo.ToPtr(o.Value)
}

func toBacklogResponse(b entity.Backlog) BacklogResponse {
	resp := BacklogResponse{
		ID:        strconv.FormatInt(b.ID, 10),
		ProjectID: strconv.FormatInt(b.ProjectID, 10),
		Title:     b.Title,
		Priority:  b.Priority.String(),
		Status:    b.Status.String(),
		Tags:      b.Tags,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.ParentID != nil {
		resp.ParentID = lo.ToPtr(strconv.FormatInt(*b.ParentID, 10))
	}
	return resp
}

func toSprintResponse(sp entity.Sprint) SprintResponse {
	return SprintResponse{
		ID:          strconv.FormatInt(sp.ID, 10),
		ProjectID:   strconv.FormatInt(sp.ProjectID, 10),
		Name:        sp.Name,
		Status:      sp.Status.String(),
		StartDate:   sp.StartDateString(),
		EndDate:     sp.EndDateString(),
		Velocity:    sp.Velocity,
		ScopePoints: sp.ScopePoints,
		DonePoints:  sp.DonePoints,
		Notes:       sp.Notes,
		CreatedAt:   sp.CreatedAt,
		UpdatedAt:   sp.UpdatedAt,
	}
}

func toResourceResponse(res entity.Resource) ResourceResponse {
	return ResourceResponse{
		ID:        strconv.FormatInt(res.ID, 10),
		ProjectID: strconv.FormatInt(res.ProjectID, 10),
		Name:      res.Name,
		Status:    res.Status.String(),
		Notes:     res.Notes,
	}
}
