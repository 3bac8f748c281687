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

var errBacklogNotFound = goerror.NewBusiness("Backlog item not found.", goerror.CodeNotFound)

type ListBacklogsInput struct {
	ProjectID int64 `validate:"gt=0"`
}

// ListBacklogs returns the backlog of a project, newest first.
func (s *Usecase) ListBacklogs(ctx context.Context, in ListBacklogsInput) ([]entity.Backlog, error) {
	ctx, span := s.startSpan(ctx, "ListBacklogs")
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

	items, err := s.repoDB.ListBacklogs(ctx, in.ProjectID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list backlogs", "project_id", in.ProjectID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

type CreateBacklogInput struct {
	IdempotencyKey string
	ProjectID      int64  `validate:"gt=0"`
	ParentID       *int64 `validate:"omitempty,gt=0"`
	Title          string `validate:"max=200"`
	// Priority and Status outside the known set fall back to medium and todo.
	Priority string
	Status   string
	Tags     string `validate:"max=500"`
}

func (s *Usecase) CreateBacklog(ctx context.Context, in CreateBacklogInput) (*entity.Backlog, error) {
	ctx, span := s.startSpan(ctx, "CreateBacklog")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Tags = entity.NormalizeTags(in.Tags)
	if in.Title == "" {
		return nil, goerror.NewBusiness("Title is required.", goerror.CodeInvalidFormat)
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.ParentID != nil {
		if err := s.checkBacklogParent(ctx, in.ProjectID, 0, *in.ParentID); err != nil {
			return nil, err
		}
	}

	key := ""
	if in.IdempotencyKey != "" {
		key = "project:backlog_create:" + strconv.FormatInt(clm.UserID, 10) + ":" + in.IdempotencyKey
	}
	out, err := once(ctx, s, key, func(ctx context.Context) (*entity.Backlog, error) {
		now := s.clock.Now()
		b := entity.Backlog{
			ID:        s.uid.Generate(),
			ProjectID: in.ProjectID,
			ParentID:  in.ParentID,
			Title:     in.Title,
			Priority:  entity.BacklogPriorityOrMedium(in.Priority),
			Status:    entity.BacklogStatusOrTodo(in.Status),
			Tags:      in.Tags,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := s.repoDB.CreateBacklog(ctx, b)
		if errors.Is(err, goerror.ErrNotFound) {
			return nil, goerror.NewBusiness("Project not found.", goerror.CodeNotFound)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo create backlog", "project_id", in.ProjectID, "error", err)
			return nil, goerror.NewServer(err)
		}

		return &b, nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "backlog item created", "backlog_id", out.ID, "project_id", out.ProjectID)

	return out, nil
}

// UpdateBacklogInput mirrors a partial update. Nil fields are left alone.
type UpdateBacklogInput struct {
	ID          int64   `validate:"gt=0"`
	Title       *string `validate:"omitempty,max=200"`
	Priority    *string
	Status      *string
	Tags        *string `validate:"omitempty,max=500"`
	ParentID    *int64  `validate:"omitempty,gt=0"`
	ClearParent bool
}

// UpdateBacklog applies a partial update. A blank title and an unknown
// priority or status are ignored.
func (s *Usecase) UpdateBacklog(ctx context.Context, in UpdateBacklogInput) (*entity.Backlog, error) {
	ctx, span := s.startSpan(ctx, "UpdateBacklog")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	item, err := s.requireBacklog(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	in.Title = trimPtr(in.Title)
	if in.Tags != nil {
		tags := entity.NormalizeTags(*in.Tags)
		in.Tags = &tags
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	patch := entity.BacklogPatch{Tags: in.Tags, ClearParent: in.ClearParent}
	if in.Title != nil && *in.Title != "" {
		patch.Title = in.Title
	}
	if in.Priority != nil {
		if p, ok := entity.ParseBacklogPriority(*in.Priority); ok {
			patch.Priority = &p
		}
	}
	if in.Status != nil {
		if st, ok := entity.ParseBacklogStatus(*in.Status); ok {
			patch.Status = &st
		}
	}
	if in.ParentID != nil && !in.ClearParent {
		if err := s.checkBacklogParent(ctx, item.ProjectID, item.ID, *in.ParentID); err != nil {
			return nil, err
		}
		patch.ParentID = in.ParentID
	}

	out, err := s.repoDB.UpdateBacklog(ctx, in.ID, patch)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errBacklogNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update backlog", "backlog_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}

type BacklogInput struct {
	ID int64 `validate:"gt=0"`
}

func (s *Usecase) DeleteBacklog(ctx context.Context, in BacklogInput) error {
	ctx, span := s.startSpan(ctx, "DeleteBacklog")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err := s.repoDB.DeleteBacklog(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return errBacklogNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete backlog", "backlog_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "backlog item deleted", "backlog_id", in.ID)

	return nil
}

func (s *Usecase) requireBacklog(ctx context.Context, id int64) (*entity.Backlog, error) {
	if id <= 0 {
		return nil, errBacklogNotFound
	}
	b, err := s.repoDB.GetBacklog(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errBacklogNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get backlog", "backlog_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}
	return b, nil
}

// checkBacklogParent accepts parentID when it is a backlog item of
// projectID that does not descend from itemID. A zero itemID skips the
// cycle check.
func (s *Usecase) checkBacklogParent(ctx context.Context, projectID, itemID, parentID int64) error {
	invalid := goerror.NewInvalidInput(nil, "parent_id", "must reference another backlog item in the same project")

	if parentID == itemID {
		return invalid
	}

	cur, err := s.repoDB.GetBacklog(ctx, parentID)
	if errors.Is(err, goerror.ErrNotFound) {
		return invalid
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get parent backlog", "parent_id", parentID, "error", err)
		return goerror.NewServer(err)
	}
	if cur.ProjectID != projectID {
		return invalid
	}

	if itemID == 0 {
		return nil
	}

	for range maxParentDepth {
		if cur.ParentID == nil {
			return nil
		}
		if *cur.ParentID == itemID {
			return invalid
		}
		cur, err = s.repoDB.GetBacklog(ctx, *cur.ParentID)
		if errors.Is(err, goerror.ErrNotFound) {
			return nil
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo get ancestor backlog", "backlog_id", itemID, "error", err)
			return goerror.NewServer(err)
		}
	}

	return invalid
}
