package inbound

import (
	"context"

	"github.com/shandysiswandi/taskdeck/internal/project/entity"
	"github.com/shandysiswandi/taskdeck/internal/project/usecase"
)

type uc interface {
	CreateProject(ctx context.Context, in usecase.CreateProjectInput) (*entity.Project, error)
	ListProjects(ctx context.Context) ([]entity.Project, error)
	GetProject(ctx context.Context, in usecase.ProjectInput) (*entity.Project, error)
	DeleteProject(ctx context.Context, in usecase.ProjectInput) error

	ListTasks(ctx context.Context, in usecase.ListTasksInput) ([]entity.Task, error)
	CreateTask(ctx context.Context, in usecase.CreateTaskInput) (*entity.Task, error)
	UpdateTask(ctx context.Context, in usecase.UpdateTaskInput) (*entity.Task, error)
	DeleteTask(ctx context.Context, in usecase.TaskInput) error

	ListBacklogs(ctx context.Context, in usecase.ListBacklogsInput) ([]entity.Backlog, error)
	CreateBacklog(ctx context.Context, in usecase.CreateBacklogInput) (*entity.Backlog, error)
	UpdateBacklog(ctx context.Context, in usecase.UpdateBacklogInput) (*entity.Backlog, error)
	DeleteBacklog(ctx context.Context, in usecase.BacklogInput) error

	ListSprints(ctx context.Context, in usecase.ListSprintsInput) ([]entity.Sprint, error)
	CreateSprint(ctx context.Context, in usecase.CreateSprintInput) (*entity.Sprint, error)
	UpdateSprint(ctx context.Context, in usecase.UpdateSprintInput) (*entity.Sprint, error)
	DeleteSprint(ctx context.Context, in usecase.SprintInput) error

	ListResources(ctx context.Context, in usecase.ListResourcesInput) ([]entity.Resource, error)
	CreateResource(ctx context.Context, in usecase.CreateResourceInput) (*entity.Resource, error)
	UpdateResource(ctx context.Context, in usecase.UpdateResourceInput) (*entity.Resource, error)
	DeleteResource(ctx context.Context, in usecase.ResourceInput) error
}
