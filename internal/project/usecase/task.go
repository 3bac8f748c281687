package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
)

// maxParentDepth bounds the ancestor walk of a parent change.
const maxParentDepth = 64

type ListTasksInput struct {
	ProjectID int64 `validate:"gt=0"`
}

func (s *Usecase) ListTasks(ctx context.Context, in ListTasksInput) ([]entity.Task, error) {
	ctx, span := s.startSpan(ctx, "ListTasks")
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

	items, err := s.repoDB.ListTasks(ctx, in.ProjectID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list tasks", "project_id", in.ProjectID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

type CreateTaskInput struct {
	IdempotencyKey string
	ProjectID      int64  `validate:"gt=0"`
	ParentID       *int64 `validate:"omitempty,gt=0"`
	Title          string `validate:"required,max=200"`
	Description    string `validate:"max=4000"`
	// Status outside the known set becomes todo.
	Status  string
	DueDate string `validate:"omitempty,datetime=2006-01-02"`
}

func (s *Usecase) CreateTask(ctx context.Context, in CreateTaskInput) (*entity.Task, error) {
	ctx, span := s.startSpan(ctx, "CreateTask")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.DueDate = strings.TrimSpace(in.DueDate)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if _, err := s.requireProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		if err := s.checkParent(ctx, in.ProjectID, 0, *in.ParentID); err != nil {
			return nil, err
		}
	}

	key := ""
	if in.IdempotencyKey != "" {
		key = "project:task_create:" + strconv.FormatInt(clm.UserID, 10) + ":" + in.IdempotencyKey
	}
	out, err := once(ctx, s, key, func(ctx context.Context) (*entity.Task, error) {
		now := s.clock.Now()
		t := entity.Task{
			ID:          s.uid.Generate(),
			ProjectID:   in.ProjectID,
			ParentID:    in.ParentID,
			Title:       in.Title,
			Description: in.Description,
			Status:      entity.TaskStatusOrTodo(in.Status),
			DueDate:     parseDate(in.DueDate),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err := s.repoDB.CreateTask(ctx, t)
		if errors.Is(err, goerror.ErrNotFound) {
			return nil, goerror.NewBusiness("Project not found.", goerror.CodeNotFound)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo create task", "project_id", in.ProjectID, "error", err)
			return nil, goerror.NewServer(err)
		}

		return &t, nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "task created", "task_id", out.ID, "project_id", out.ProjectID)

	return out, nil
}

// UpdateTaskInput mirrors a partial update. Nil fields are left alone. An
// empty DueDate clears it, as does ClearParent for the parent.
type UpdateTaskInput struct {
	ID          int64   `validate:"gt=0"`
	Title       *string `validate:"omitempty,max=200"`
	Description *string `validate:"omitempty,max=4000"`
	Status      *string
	DueDate     *string `validate:"omitempty,datetime=2006-01-02"`
	ParentID    *int64  `validate:"omitempty,gt=0"`
	ClearParent bool
}

// UpdateTask applies a partial update. A blank title and an unknown status
// are ignored rather than rejected.
func (s *Usecase) UpdateTask(ctx context.Context, in UpdateTaskInput) (*entity.Task, error) {
	ctx, span := s.startSpan(ctx, "UpdateTask")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	in.Title = trimPtr(in.Title)
	in.Description = trimPtr(in.Description)
	in.DueDate = trimPtr(in.DueDate)
	clearDue := in.DueDate != nil && *in.DueDate == ""
	if clearDue {
		in.DueDate = nil
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	task, err := s.requireTask(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	patch := entity.TaskPatch{Description: in.Description, ClearParent: in.ClearParent}
	if in.Title != nil && *in.Title != "" {
		patch.Title = in.Title
	}
	if in.Status != nil {
		if st, ok := entity.ParseTaskStatus(*in.Status); ok {
			patch.Status = &st
		}
	}
	if in.DueDate != nil {
		patch.DueDate = parseDate(*in.DueDate)
	}
	patch.ClearDueDate = clearDue
	if in.ParentID != nil && !in.ClearParent {
		if err := s.checkParent(ctx, task.ProjectID, task.ID, *in.ParentID); err != nil {
			return nil, err
		}
		patch.ParentID = in.ParentID
	}

	out, err := s.repoDB.UpdateTask(ctx, in.ID, patch)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Task not found.", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update task", "task_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}

type TaskInput struct {
	ID int64 `validate:"gt=0"`
}

func (s *Usecase) DeleteTask(ctx context.Context, in TaskInput) error {
	ctx, span := s.startSpan(ctx, "DeleteTask")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err := s.repoDB.DeleteTask(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("Task not found.", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete task", "task_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "task deleted", "task_id", in.ID)

	return nil
}

// checkParent accepts parentID when it is a task of projectID that does not
// descend from taskID. A zero taskID skips the cycle check.
func (s *Usecase) checkParent(ctx context.Context, projectID, taskID, parentID int64) error {
	invalid := goerror.NewInvalidInput(nil, "parent_id", "must reference another task in the same project")

	if parentID == taskID {
		return invalid
	}

	parent, err := s.repoDB.GetTask(ctx, parentID)
	if errors.Is(err, goerror.ErrNotFound) {
		return invalid
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get parent task", "parent_id", parentID, "error", err)
		return goerror.NewServer(err)
	}
	if parent.ProjectID != projectID {
		return invalid
	}

	if taskID == 0 {
		return nil
	}

	cur := parent
	for range maxParentDepth {
		if cur.ParentID == nil {
			return nil
		}
		if *cur.ParentID == taskID {
			return invalid
		}
		cur, err = s.repoDB.GetTask(ctx, *cur.ParentID)
		if errors.Is(err, goerror.ErrNotFound) {
			return nil
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo get ancestor task", "task_id", taskID, "error", err)
			return goerror.NewServer(err)
		}
	}

	return invalid
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	d, err := time.Parse(entity.DateLayout, raw)
	if err != nil {
		return nil
	}
	return &d
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
