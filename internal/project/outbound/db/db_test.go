package db

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/pkg/dbtest"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_ProjectsAndTasks(t *testing.T) {
	d := NewDB(dbtest.Postgres(t), instrument.NewNoop())
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	// Arrange
	require.NoError(t, d.CreateProject(ctx, entity.Project{ID: 1, Name: "Alpha", CreatedBy: 9, CreatedAt: now}))
	require.NoError(t, d.CreateProject(ctx, entity.Project{ID: 2, Name: "Beta", Description: "second", CreatedBy: 9, CreatedAt: now}))
	require.NoError(t, d.CreateTask(ctx, entity.Task{
		ID: 10, ProjectID: 1, Title: "root", Status: entity.TaskStatusTodo, DueDate: &due, CreatedAt: now, UpdatedAt: now,
	}))
	parent := int64(10)
	require.NoError(t, d.CreateTask(ctx, entity.Task{
		ID: 11, ProjectID: 1, ParentID: &parent, Title: "child", Status: entity.TaskStatusLater, CreatedAt: now, UpdatedAt: now,
	}))

	t.Run("projects newest first", func(t *testing.T) {
		list, err := d.ListProjects(ctx)

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Beta", list[0].Name)
		assert.Equal(t, "second", list[0].Description)
	})

	t.Run("get project", func(t *testing.T) {
		p, err := d.GetProject(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(9), p.CreatedBy)

		_, err = d.GetProject(ctx, 404)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("tasks keep due date and parent", func(t *testing.T) {
		tasks, err := d.ListTasks(ctx, 1)

		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "2026-04-01", tasks[0].DueDateString())
		assert.Nil(t, tasks[0].ParentID)
		require.NotNil(t, tasks[1].ParentID)
		assert.Equal(t, int64(10), *tasks[1].ParentID)
		assert.Equal(t, entity.TaskStatusLater, tasks[1].Status)
	})

	t.Run("task in missing project", func(t *testing.T) {
		err := d.CreateTask(ctx, entity.Task{ID: 12, ProjectID: 404, Title: "x", Status: entity.TaskStatusTodo, CreatedAt: now, UpdatedAt: now})
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("update task", func(t *testing.T) {
		title, status := "renamed", entity.TaskStatusDone

		got, err := d.UpdateTask(ctx, 11, entity.TaskPatch{Title: &title, Status: &status, ClearParent: true})

		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.Equal(t, entity.TaskStatusDone, got.Status)
		assert.Nil(t, got.ParentID)

		stored, err := d.GetTask(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, "renamed", stored.Title)
	})

	t.Run("update missing task", func(t *testing.T) {
		_, err := d.UpdateTask(ctx, 404, entity.TaskPatch{})
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("delete task", func(t *testing.T) {
		require.NoError(t, d.DeleteTask(ctx, 11))
		assert.ErrorIs(t, d.DeleteTask(ctx, 11), goerror.ErrNotFound)
	})

	t.Run("delete project cascades", func(t *testing.T) {
		require.NoError(t, d.DeleteProject(ctx, 1))

		_, err := d.GetTask(ctx, 10)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
		assert.ErrorIs(t, d.DeleteProject(ctx, 1), goerror.ErrNotFound)
	})
}

func TestDB_Planning(t *testing.T) {
	d := NewDB(dbtest.Postgres(t), instrument.NewNoop())
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	// Arrange
	require.NoError(t, d.CreateProject(ctx, entity.Project{ID: 1, Name: "Alpha", CreatedBy: 9, CreatedAt: now}))
	require.NoError(t, d.CreateBacklog(ctx, entity.Backlog{
		ID: 20, ProjectID: 1, Title: "epic", Priority: entity.BacklogPriorityHigh, Status: entity.TaskStatusTodo,
		Tags: "api,ui", CreatedAt: now, UpdatedAt: now,
	}))
	parent := int64(20)
	require.NoError(t, d.CreateBacklog(ctx, entity.Backlog{
		ID: 21, ProjectID: 1, ParentID: &parent, Title: "story", Priority: entity.BacklogPriorityMedium,
		Status: entity.TaskStatusLater, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, d.CreateSprint(ctx, entity.Sprint{
		ID: 30, ProjectID: 1, Name: "Sprint 1", Status: entity.SprintStatusActive, StartDate: &start,
		Velocity: 20, ScopePoints: 18, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, d.CreateResource(ctx, entity.Resource{ID: 40, ProjectID: 1, Name: "Dana", Status: entity.ResourceStatusFree}))
	require.NoError(t, d.CreateResource(ctx, entity.Resource{ID: 41, ProjectID: 1, Name: "Eli", Status: entity.ResourceStatusHoliday}))

	t.Run("backlog newest first", func(t *testing.T) {
		list, err := d.ListBacklogs(ctx, 1)

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "story", list[0].Title)
		require.NotNil(t, list[0].ParentID)
		assert.Equal(t, int64(20), *list[0].ParentID)
		assert.Equal(t, "api,ui", list[1].Tags)
		assert.Equal(t, entity.BacklogPriorityHigh, list[1].Priority)
	})

	t.Run("update backlog", func(t *testing.T) {
		prio := entity.BacklogPriorityLow

		got, err := d.UpdateBacklog(ctx, 21, entity.BacklogPatch{Priority: &prio, ClearParent: true})

		require.NoError(t, err)
		assert.Equal(t, entity.BacklogPriorityLow, got.Priority)
		assert.Nil(t, got.ParentID)
		assert.Equal(t, "story", got.Title)
	})

	t.Run("deleting a parent keeps the child", func(t *testing.T) {
		require.NoError(t, d.CreateBacklog(ctx, entity.Backlog{
			ID: 22, ProjectID: 1, ParentID: &parent, Title: "orphan", Priority: entity.BacklogPriorityLow,
			Status: entity.TaskStatusTodo, CreatedAt: now, UpdatedAt: now,
		}))

		require.NoError(t, d.DeleteBacklog(ctx, 20))

		got, err := d.GetBacklog(ctx, 22)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
		assert.ErrorIs(t, d.DeleteBacklog(ctx, 20), goerror.ErrNotFound)
	})

	t.Run("update sprint dates", func(t *testing.T) {
		end := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
		done := 12

		got, err := d.UpdateSprint(ctx, 30, entity.SprintPatch{EndDate: &end, DonePoints: &done, ClearStartDate: true})

		require.NoError(t, err)
		assert.Empty(t, got.StartDateString())
		assert.Equal(t, "2026-03-20", got.EndDateString())
		assert.Equal(t, 12, got.DonePoints)
		assert.Equal(t, 20, got.Velocity)
		assert.Equal(t, entity.SprintStatusActive, got.Status)
	})

	t.Run("resources newest first", func(t *testing.T) {
		list, err := d.ListResources(ctx, 1)

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Eli", list[0].Name)
		assert.Equal(t, entity.ResourceStatusHoliday, list[0].Status)
	})

	t.Run("update resource", func(t *testing.T) {
		status, notes := entity.ResourceStatusOverloaded, "two projects"

		got, err := d.UpdateResource(ctx, 40, entity.ResourcePatch{Status: &status, Notes: &notes})

		require.NoError(t, err)
		assert.Equal(t, "Dana", got.Name)
		assert.Equal(t, entity.ResourceStatusOverloaded, got.Status)
		assert.Equal(t, "two projects", got.Notes)
	})

	t.Run("missing rows", func(t *testing.T) {
		_, err := d.GetSprint(ctx, 404)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
		_, err = d.UpdateResource(ctx, 404, entity.ResourcePatch{})
		assert.ErrorIs(t, err, goerror.ErrNotFound)
		assert.ErrorIs(t, d.DeleteSprint(ctx, 404), goerror.ErrNotFound)
	})

	t.Run("planning in missing project", func(t *testing.T) {
		err := d.CreateSprint(ctx, entity.Sprint{ID: 31, ProjectID: 404, Name: "x", Status: entity.SprintStatusPlanned, CreatedAt: now, UpdatedAt: now})
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("delete project cascades", func(t *testing.T) {
		require.NoError(t, d.DeleteProject(ctx, 1))

		_, err := d.GetResource(ctx, 41)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
		_, err = d.GetSprint(ctx, 30)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})
}
