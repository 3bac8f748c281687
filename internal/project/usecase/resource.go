package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
)

var errResourceNotFound = goerror.NewBusiness("Resource not found.", goerror.CodeNotFound)

type ListResourcesInput struct {
	ProjectID int64 `validate:"gt=0"`
}

// ListResources returns the team members of a project, newest first.
func (s *Usecase) ListResources(ctx context.Context, in ListResourcesInput) ([]entity.Resource, error) {
	ctx, span := s.startSpan(ctx, "ListResources")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if _, err := s.requireProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	items, err := s.repoDB.ListResources(ctx, in.ProjectID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list resources", "project_id", in.ProjectID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

type CreateResourceInput struct {
	IdempotencyKey string
	ProjectID      int64  `validate:"gt=0"`
	Name           string `validate:"max=120"`
	// Status outside the known set becomes free.
	Status string
	Notes  string `validate:"max=4000"`
}

func (s *Usecase) CreateResource(ctx context.Context, in CreateResourceInput) (*entity.Resource, error) {
	ctx, span := s.startSpan(ctx, "CreateResource")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Name == "" {
		return nil, goerror.NewBusiness("Resource name is required.", goerror.CodeInvalidFormat)
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	key := ""
	if in.IdempotencyKey != "" {
		key = "project:resource_create:" + strconv.FormatInt(clm.UserID, 10) + ":" + in.IdempotencyKey
	}
	out, err := once(ctx, s, key, func(ctx context.Context) (*entity.Resource, error) {
		r := entity.Resource{
			ID:        s.uid.Generate(),
			ProjectID: in.ProjectID,
			Name:      in.Name,
			Status:    entity.ResourceStatusOrFree(in.Status),
			Notes:     in.Notes,
		}

		err := s.repoDB.CreateResource(ctx, r)
		if errors.Is(err, goerror.ErrNotFound) {
			return nil, goerror.NewBusiness("Project not found.", goerror.CodeNotFound)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo create resource", "project_id", in.ProjectID, "error", err)
			return nil, goerror.NewServer(err)
		}

		return &r, nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "resource created", "resource_id", out.ID, "project_id", out.ProjectID)

	return out, nil
}

type UpdateResourceInput struct {
	ID     int64   `validate:"gt=0"`
	Name   *string `validate:"omitempty,max=120"`
	Status *string
	Notes  *string `validate:"omitempty,max=4000"`
}

// UpdateResource applies a partial update. A blank name and an unknown
// status are ignored.
func (s *Usecase) UpdateResource(ctx context.Context, in UpdateResourceInput) (*entity.Resource, error) {
	ctx, span := s.startSpan(ctx, "UpdateResource")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	if _, err := s.requireResource(ctx, in.ID); err != nil {
		return nil, err
	}

	in.Name = trimPtr(in.Name)
	in.Notes = trimPtr(in.Notes)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	patch := entity.ResourcePatch{Notes: in.Notes}
	if in.Name != nil && *in.Name != "" {
		patch.Name = in.Name
	}
	if in.Status != nil {
		if st, ok := entity.ParseResourceStatus(*in.Status); ok {
			patch.Status = &st
		}
	}

	out, err := s.repoDB.UpdateResource(ctx, in.ID, patch)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errResourceNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update resource", "resource_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}

type ResourceInput struct {
	ID int64 `validate:"gt=0"`
}

func (s *Usecase) DeleteResource(ctx context.Context, in ResourceInput) error {
	ctx, span := s.startSpan(ctx, "DeleteResource")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err := s.repoDB.DeleteResource(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return errResourceNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete resource", "resource_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "resource deleted", "resource_id", in.ID)

	return nil
}

func (s *Usecase) requireResource(ctx context.Context, id int64) (*entity.Resource, error) {
	if id <= 0 {
		return nil, errResourceNotFound
	}
	r, err := s.repoDB.GetResource(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errResourceNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get resource", "resource_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}
	return r, nil
}
