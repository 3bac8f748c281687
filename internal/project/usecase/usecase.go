package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/taskdeck/internal/pkg/clock"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/idempotency"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
	"github.com/shandysiswandi/taskdeck/internal/pkg/uid"
	"github.com/shandysiswandi/taskdeck/internal/pkg/validator"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	CreateProject(ctx context.Context, p entity.Project) error
	GetProject(ctx context.Context, id int64) (*entity.Project, error)
	ListProjects(ctx context.Context) ([]entity.Project, error)
	DeleteProject(ctx context.Context, id int64) error

	CreateTask(ctx context.Context, t entity.Task) error
	GetTask(ctx context.Context, id int64) (*entity.Task, error)
	ListTasks(ctx context.Context, projectID int64) ([]entity.Task, error)
	UpdateTask(ctx context.Context, id int64, patch entity.TaskPatch) (*entity.Task, error)
	DeleteTask(ctx context.Context, id int64) error

	CreateBacklog(ctx context.Context, b entity.Backlog) error
	GetBacklog(ctx context.Context, id int64) (*entity.Backlog, error)
	ListBacklogs(ctx context.Context, projectID int64) ([]entity.Backlog, error)
	UpdateBacklog(ctx context.Context, id int64, patch entity.BacklogPatch) (*entity.Backlog, error)
	DeleteBacklog(ctx context.Context, id int64) error

	CreateSprint(ctx context.Context, sp entity.Sprint) error
	GetSprint(ctx context.Context, id int64) (*entity.Sprint, error)
	ListSprints(ctx context.Context, projectID int64) ([]entity.Sprint, error)
	UpdateSprint(ctx context.Context, id int64, patch entity.SprintPatch) (*entity.Sprint, error)
	DeleteSprint(ctx context.Context, id int64) error

	CreateResource(ctx context.Context, r entity.Resource) error
	GetResource(ctx context.Context, id int64) (*entity.Resource, error)
	ListResources(ctx context.Context, projectID int64) ([]entity.Resource, error)
	UpdateResource(ctx context.Context, id int64, patch entity.ResourcePatch) (*entity.Resource, error)
	DeleteResource(ctx context.Context, id int64) error
}

type Usecase struct {
	repoDB    repoDB
	idemp     idempotency.Idempotency
	validator validator.Validator
	uid       uid.NumberID
	clock     clock.Clocker
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoDB      repoDB
	Idempotency idempotency.Idempotency
	Validator   validator.Validator
	UID         uid.NumberID
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		idemp:     dep.Idempotency,
		validator: dep.Validator,
		uid:       dep.UID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("project.usecase").Start(ctx, name)
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	return clm, nil
}

// once runs fn a single time per idempotency key. A repeated key returns
// the first result. Server failures release the key so the client can
// retry. An empty key runs fn unguarded.
func once[T any](ctx context.Context, s *Usecase, key string, fn func(context.Context) (*T, error)) (*T, error) {
	if key == "" {
		return fn(ctx)
	}

	var out *T
	raw, err := s.idemp.Remember(ctx, key, func(ctx context.Context) ([]byte, error) {
		res, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		out = res
		return json.Marshal(res)
	}, idempotency.WithRetryable(isServerError))
	switch {
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		return nil, goerror.NewBusiness("A request with this idempotency key is in progress", goerror.CodeConflict)
	case errors.Is(err, idempotency.ErrAlreadyCompleted), errors.Is(err, idempotency.ErrAlreadyFailed):
		return nil, goerror.NewBusiness("A request with this idempotency key was already processed", goerror.CodeConflict)
	case err != nil:
		return nil, passThrough(err)
	}

	if out != nil {
		return out, nil
	}

	var replay T
	if err := json.Unmarshal(raw, &replay); err != nil {
		slog.ErrorContext(ctx, "failed to decode idempotent result", "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}
	slog.InfoContext(ctx, "idempotent request replayed", "key", key)

	return &replay, nil
}

func isServerError(err error) bool {
	return goerror.CodeOf(err) == goerror.CodeInternal
}

func (s *Usecase) requireProject(ctx context.Context, id int64) (*entity.Project, error) {
	p, err := s.repoDB.GetProject(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Project not found.", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get project", "project_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}
	return p, nil
}

func (s *Usecase) requireTask(ctx context.Context, id int64) (*entity.Task, error) {
	t, err := s.repoDB.GetTask(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Task not found.", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get task", "task_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}
	return t, nil
}

func passThrough(err error) error {
	var gerr *goerror.Error
	if errors.As(err, &gerr) {
		return err
	}
	return goerror.NewServer(err)
}
