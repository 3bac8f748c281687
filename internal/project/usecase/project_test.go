package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shandysiswandi/taskdeck/internal/pkg/idempotency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsecase_CreateProject(t *testing.T) {
	t.Run("success trims input", func(t *testing.T) {
		// Arrange
		f := newFixture(t)

		// Act
		p, err := f.uc.CreateProject(authed(), CreateProjectInput{Name: "  Alpha ", Description: " first "})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(101), p.ID)
		assert.Equal(t, "Alpha", p.Name)
		assert.Equal(t, "first", p.Description)
		assert.Equal(t, int64(1), p.CreatedBy)
		assert.Equal(t, f.now, p.CreatedAt)
		assert.Contains(t, f.db.projects, int64(101))
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.CreateProject(context.Background(), CreateProjectInput{Name: "Alpha"})

		assertBusiness(t, err, http.StatusUnauthorized, "")
	})

	t.Run("blank name", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.CreateProject(authed(), CreateProjectInput{Name: "   "})

		assertBusiness(t, err, http.StatusUnprocessableEntity, "")
		assert.Empty(t, f.db.projects)
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newFixture(t)
		f.db.err = errors.New("db down")

		_, err := f.uc.CreateProject(authed(), CreateProjectInput{Name: "Alpha"})

		assertBusiness(t, err, http.StatusInternalServerError, "")
	})

	t.Run("idempotency key replays the created project", func(t *testing.T) {
		f := newFixture(t)
		in := CreateProjectInput{IdempotencyKey: "k1", Name: "Alpha"}

		first, err := f.uc.CreateProject(authed(), in)
		require.NoError(t, err)
		again, err := f.uc.CreateProject(authed(), in)

		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, "Alpha", again.Name)
		assert.True(t, first.CreatedAt.Equal(again.CreatedAt))
		assert.Len(t, f.db.projects, 1)
	})

	t.Run("idempotency key is freed after a server failure", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		in := CreateProjectInput{IdempotencyKey: "k1", Name: "Alpha"}
		f.db.err = errors.New("db down")
		_, err := f.uc.CreateProject(authed(), in)
		assertBusiness(t, err, http.StatusInternalServerError, "")

		// Act
		f.db.err = nil
		out, err := f.uc.CreateProject(authed(), in)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Alpha", out.Name)
		assert.Len(t, f.db.projects, 1)
	})

	t.Run("failed key without a result", func(t *testing.T) {
		f := newFixture(t)
		f.idemp.states["project:create:1:k1"] = idempotency.StateFailed

		_, err := f.uc.CreateProject(authed(), CreateProjectInput{IdempotencyKey: "k1", Name: "Alpha"})

		assertBusiness(t, err, http.StatusConflict, "A request with this idempotency key was already processed")
		assert.Empty(t, f.db.projects)
	})

	t.Run("idempotency key in flight", func(t *testing.T) {
		f := newFixture(t)
		f.idemp.states["project:create:1:k1"] = idempotency.StateInProgress

		_, err := f.uc.CreateProject(authed(), CreateProjectInput{IdempotencyKey: "k1", Name: "Alpha"})

		assertBusiness(t, err, http.StatusConflict, "A request with this idempotency key is in progress")
	})
}

func TestUsecase_ListProjects(t *testing.T) {
	f := newFixture(t)
	f.addProject(1)
	f.addProject(2)

	items, err := f.uc.ListProjects(authed())

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ID)

	_, err = f.uc.ListProjects(context.Background())
	assertBusiness(t, err, http.StatusUnauthorized, "")
}

func TestUsecase_GetProject(t *testing.T) {
	f := newFixture(t)
	f.addProject(7)

	p, err := f.uc.GetProject(authed(), ProjectInput{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)

	_, err = f.uc.GetProject(authed(), ProjectInput{ID: 8})
	assertBusiness(t, err, http.StatusNotFound, "Project not found.")

	_, err = f.uc.GetProject(authed(), ProjectInput{ID: 0})
	assertBusiness(t, err, http.StatusUnprocessableEntity, "")
}

func TestUsecase_DeleteProject(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.addProject(7)
	f.addTask(70, 7, nil)

	// Act
	err := f.uc.DeleteProject(authed(), ProjectInput{ID: 7})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, f.db.projects)
	assert.Empty(t, f.db.tasks)

	err = f.uc.DeleteProject(authed(), ProjectInput{ID: 7})
	assertBusiness(t, err, http.StatusNotFound, "Project not found.")
}
