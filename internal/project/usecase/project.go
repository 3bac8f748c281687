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

type CreateProjectInput struct {
	IdempotencyKey string
	Name           string `validate:"required,max=120"`
	Description    string `validate:"max=2000"`
}

func (s *Usecase) CreateProject(ctx context.Context, in CreateProjectInput) (*entity.Project, error) {
	ctx, span := s.startSpan(ctx, "CreateProject")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	key := ""
	if in.IdempotencyKey != "" {
		key = "project:create:" + strconv.FormatInt(clm.UserID, 10) + ":" + in.IdempotencyKey
	}
	out, err := once(ctx, s, key, func(ctx context.Context) (*entity.Project, error) {
		p := entity.Project{
			ID:          s.uid.Generate(),
			Name:        in.Name,
			Description: in.Description,
			CreatedBy:   clm.UserID,
			CreatedAt:   s.clock.Now(),
		}
		if err := s.repoDB.CreateProject(ctx, p); err != nil {
			slog.ErrorContext(ctx, "failed to repo create project", "user_id", clm.UserID, "error", err)
			return nil, goerror.NewServer(err)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "project created", "project_id", out.ID, "user_id", clm.UserID)

	return out, nil
}

func (s *Usecase) ListProjects(ctx context.Context) ([]entity.Project, error) {
	ctx, span := s.startSpan(ctx, "ListProjects")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	items, err := s.repoDB.ListProjects(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list projects", "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

type ProjectInput struct {
	ID int64 `validate:"gt=0"`
}

func (s *Usecase) GetProject(ctx context.Context, in ProjectInput) (*entity.Project, error) {
	ctx, span := s.startSpan(ctx, "GetProject")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.requireProject(ctx, in.ID)
}

// DeleteProject removes a project with its tasks and planning items. Authorization is
// checked by the route.
func (s *Usecase) DeleteProject(ctx context.Context, in ProjectInput) error {
	ctx, span := s.startSpan(ctx, "DeleteProject")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err = s.repoDB.DeleteProject(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("Project not found.", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete project", "project_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "project deleted", "project_id", in.ID, "user_id", clm.UserID)

	return nil
}
