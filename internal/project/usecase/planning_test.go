package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shandysiswandi/taskdeck/internal/project/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsecase_Backlog(t *testing.T) {
	t.Run("create falls back to defaults", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		f.addProject(7)

		// Act
		b, err := f.uc.CreateBacklog(authed(), CreateBacklogInput{
			ProjectID: 7, Title: " Login page ", Priority: "urgent", Status: "done", Tags: " ui, ,auth ",
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Login page", b.Title)
		assert.Equal(t, entity.BacklogPriorityMedium, b.Priority)
		assert.Equal(t, entity.TaskStatusTodo, b.Status)
		assert.Equal(t, "ui,auth", b.Tags)
		assert.Equal(t, f.now, b.CreatedAt)
	})

	t.Run("create keeps known values", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		f.addBacklog(70, 7, nil)

		b, err := f.uc.CreateBacklog(authed(), CreateBacklogInput{
			ProjectID: 7, Title: "story", Priority: "HIGH", Status: "later", ParentID: ptr(int64(70)),
		})

		require.NoError(t, err)
		assert.Equal(t, entity.BacklogPriorityHigh, b.Priority)
		assert.Equal(t, entity.TaskStatusLater, b.Status)
		assert.Equal(t, int64(70), *b.ParentID)
	})

	t.Run("title required", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)

		_, err := f.uc.CreateBacklog(authed(), CreateBacklogInput{ProjectID: 7, Title: "  "})

		assertBusiness(t, err, http.StatusBadRequest, "Title is required.")
	})

	t.Run("missing project", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.CreateBacklog(authed(), CreateBacklogInput{ProjectID: 404, Title: "x"})

		assertBusiness(t, err, http.StatusNotFound, "Project not found.")
	})

	t.Run("parent from another project", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		f.addProject(8)
		f.addBacklog(80, 8, nil)

		_, err := f.uc.CreateBacklog(authed(), CreateBacklogInput{ProjectID: 7, Title: "x", ParentID: ptr(int64(80))})

		assertBusiness(t, err, http.StatusUnprocessableEntity, "")
	})

	t.Run("list newest first", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		f.addBacklog(70, 7, nil)
		f.addBacklog(71, 7, nil)

		list, err := f.uc.ListBacklogs(authed(), ListBacklogsInput{ProjectID: 7})

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(71), list[0].ID)
	})

	t.Run("update ignores blank and unknown values", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		f.addBacklog(70, 7, nil)

		b, err := f.uc.UpdateBacklog(authed(), UpdateBacklogInput{
			ID: 70, Title: ptr(" "), Priority: ptr("urgent"), Status: ptr("done"), Tags: ptr("a, b"),
		})

		require.NoError(t, err)
		assert.Equal(t, "b", b.Title)
		assert.Equal(t, entity.BacklogPriorityMedium, b.Priority)
		assert.Equal(t, entity.TaskStatusTodo, b.Status)
		assert.Equal(t, "a,b", b.Tags)
	})

	t.Run("update rejects a cycle", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		f.addBacklog(70, 7, nil)
		f.addBacklog(71, 7, ptr(int64(70)))

		_, err := f.uc.UpdateBacklog(authed(), UpdateBacklogInput{ID: 70, ParentID: ptr(int64(71))})

		assertBusiness(t, err, http.StatusUnprocessableEntity, "")
	})

	t.Run("update clears parent", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		f.addBacklog(70, 7, nil)
		f.addBacklog(71, 7, ptr(int64(70)))

		b, err := f.uc.UpdateBacklog(authed(), UpdateBacklogInput{ID: 71, ClearParent: true})

		require.NoError(t, err)
		assert.Nil(t, b.ParentID)
	})

	t.Run("update missing item", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.UpdateBacklog(authed(), UpdateBacklogInput{ID: 404, Title: ptr("x")})

		assertBusiness(t, err, http.StatusNotFound, "Backlog item not found.")
	})

	t.Run("delete", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		f.addBacklog(70, 7, nil)

		require.NoError(t, f.uc.DeleteBacklog(authed(), BacklogInput{ID: 70}))

		err := f.uc.DeleteBacklog(authed(), BacklogInput{ID: 70})
		assertBusiness(t, err, http.StatusNotFound, "Backlog item not found.")
	})

	t.Run("idempotency key replays the item", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		in := CreateBacklogInput{IdempotencyKey: "k-1", ProjectID: 7, Title: "once"}

		first, err := f.uc.CreateBacklog(authed(), in)
		require.NoError(t, err)
		again, err := f.uc.CreateBacklog(authed(), in)

		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Len(t, f.db.backlogs, 1)
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.ListBacklogs(context.Background(), ListBacklogsInput{ProjectID: 7})

		assertBusiness(t, err, http.StatusUnauthorized, "")
	})
}

func TestUsecase_Sprint(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		f.addProject(7)

		// Act
		sp, err := f.uc.CreateSprint(authed(), CreateSprintInput{
			ProjectID: 7, Name: " Sprint 1 ", Status: "paused", StartDate: "2026-03-09", Velocity: 20, ScopePoints: 18,
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Sprint 1", sp.Name)
		assert.Equal(t, entity.SprintStatusPlanned, sp.Status)
		assert.Equal(t, "2026-03-09", sp.StartDateString())
		assert.Empty(t, sp.EndDateString())
		assert.Equal(t, 20, sp.Velocity)
	})

	t.Run("name required", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)

		_, err := f.uc.CreateSprint(authed(), CreateSprintInput{ProjectID: 7})

		assertBusiness(t, err, http.StatusBadRequest, "Sprint name is required.")
	})

	t.Run("bad date and negative points", func(t *testing.T) {
		tests := []CreateSprintInput{
			{ProjectID: 7, Name: "s", EndDate: "09/03/2026"},
			{ProjectID: 7, Name: "s", DonePoints: -1},
		}

		for _, in := range tests {
			f := newFixture(t)
			f.addProject(7)

			_, err := f.uc.CreateSprint(authed(), in)

			assertBusiness(t, err, http.StatusUnprocessableEntity, "")
		}
	})

	t.Run("update", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		sp, err := f.uc.CreateSprint(authed(), CreateSprintInput{ProjectID: 7, Name: "s", StartDate: "2026-03-09"})
		require.NoError(t, err)

		got, err := f.uc.UpdateSprint(authed(), UpdateSprintInput{
			ID: sp.ID, Name: ptr(""), Status: ptr("Active"), StartDate: ptr(""), EndDate: ptr("2026-03-20"), DonePoints: ptr(5),
		})

		require.NoError(t, err)
		assert.Equal(t, "s", got.Name)
		assert.Equal(t, entity.SprintStatusActive, got.Status)
		assert.Nil(t, got.StartDate)
		assert.Equal(t, "2026-03-20", got.EndDateString())
		assert.Equal(t, 5, got.DonePoints)
	})

	t.Run("update missing sprint", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.UpdateSprint(authed(), UpdateSprintInput{ID: 404})

		assertBusiness(t, err, http.StatusNotFound, "Sprint not found.")
	})

	t.Run("list and delete", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		a, err := f.uc.CreateSprint(authed(), CreateSprintInput{ProjectID: 7, Name: "a"})
		require.NoError(t, err)
		b, err := f.uc.CreateSprint(authed(), CreateSprintInput{ProjectID: 7, Name: "b"})
		require.NoError(t, err)

		list, err := f.uc.ListSprints(authed(), ListSprintsInput{ProjectID: 7})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, b.ID, list[0].ID)

		require.NoError(t, f.uc.DeleteSprint(authed(), SprintInput{ID: a.ID}))
		err = f.uc.DeleteSprint(authed(), SprintInput{ID: a.ID})
		assertBusiness(t, err, http.StatusNotFound, "Sprint not found.")
	})
}

func TestUsecase_Resource(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		f.addProject(7)

		// Act
		r, err := f.uc.CreateResource(authed(), CreateResourceInput{ProjectID: 7, Name: " Dana ", Status: "busy", Notes: " lead "})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Dana", r.Name)
		assert.Equal(t, entity.ResourceStatusFree, r.Status)
		assert.Equal(t, "lead", r.Notes)
	})

	t.Run("name required", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)

		_, err := f.uc.CreateResource(authed(), CreateResourceInput{ProjectID: 7, Name: ""})

		assertBusiness(t, err, http.StatusBadRequest, "Resource name is required.")
	})

	t.Run("update", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		r, err := f.uc.CreateResource(authed(), CreateResourceInput{ProjectID: 7, Name: "Dana"})
		require.NoError(t, err)

		got, err := f.uc.UpdateResource(authed(), UpdateResourceInput{ID: r.ID, Name: ptr(" "), Status: ptr("holiday")})

		require.NoError(t, err)
		assert.Equal(t, "Dana", got.Name)
		assert.Equal(t, entity.ResourceStatusHoliday, got.Status)
	})

	t.Run("unknown status is ignored", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		r, err := f.uc.CreateResource(authed(), CreateResourceInput{ProjectID: 7, Name: "Dana", Status: "overloaded"})
		require.NoError(t, err)

		got, err := f.uc.UpdateResource(authed(), UpdateResourceInput{ID: r.ID, Status: ptr("away")})

		require.NoError(t, err)
		assert.Equal(t, entity.ResourceStatusOverloaded, got.Status)
	})

	t.Run("missing resource", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.DeleteResource(authed(), ResourceInput{ID: 404})

		assertBusiness(t, err, http.StatusNotFound, "Resource not found.")
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		f.db.err = errors.New("connection reset")

		_, err := f.uc.ListResources(authed(), ListResourcesInput{ProjectID: 7})

		assertBusiness(t, err, http.StatusInternalServerError, "")
	})

	t.Run("project delete removes planning rows", func(t *testing.T) {
		f := newFixture(t)
		f.addProject(7)
		f.addBacklog(70, 7, nil)
		_, err := f.uc.CreateResource(authed(), CreateResourceInput{ProjectID: 7, Name: "Dana"})
		require.NoError(t, err)

		require.NoError(t, f.uc.DeleteProject(authed(), ProjectInput{ID: 7}))

		assert.Empty(t, f.db.backlogs)
		assert.Empty(t, f.db.members)
	})
}
