package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
	"github.com/shandysiswandi/taskdeck/internal/project/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJWT struct{}

func (stubJWT) Generate(int64, string) (string, error) { return "session", nil }
func (stubJWT) TTL() time.Duration                     { return time.Hour }

func (stubJWT) Verify(token string) (jwt.Claims, error) {
	if token != "session" {
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
	return jwt.Claims{UserID: 1, Username: "admin"}, nil
}

type stubUUID struct{}

func (stubUUID) Generate() string { return "cid" }

type stubEnforcer struct {
	allow bool
}

func (s stubEnforcer) Enforce(...any) (bool, error) { return s.allow, nil }

type fakeUsecase struct {
	createProjectIn usecase.CreateProjectInput
	createTaskIn    usecase.CreateTaskInput
	updateIn        usecase.UpdateTaskInput
	deletedProject  int64
	backlogIn       usecase.CreateBacklogInput
	backlogPatch    usecase.UpdateBacklogInput
	sprintIn        usecase.CreateSprintInput
	sprintPatch     usecase.UpdateSprintInput
	resourceIn      usecase.CreateResourceInput
	resourcePatch   usecase.UpdateResourceInput
	err             error
}

var created = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func (f *fakeUsecase) CreateProject(_ context.Context, in usecase.CreateProjectInput) (*entity.Project, error) {
	f.createProjectIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Project{ID: 9007199254740993, Name: in.Name, CreatedBy: 1, CreatedAt: created}, nil
}

func (f *fakeUsecase) ListProjects(context.Context) ([]entity.Project, error) {
	return []entity.Project{{ID: 2, Name: "b"}, {ID: 1, Name: "a"}}, f.err
}

func (f *fakeUsecase) GetProject(_ context.Context, in usecase.ProjectInput) (*entity.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Project{ID: in.ID, Name: "a"}, nil
}

func (f *fakeUsecase) DeleteProject(_ context.Context, in usecase.ProjectInput) error {
	f.deletedProject = in.ID
	return f.err
}

func (f *fakeUsecase) ListTasks(context.Context, usecase.ListTasksInput) ([]entity.Task, error) {
	parent := int64(1)
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return []entity.Task{
		{ID: 1, ProjectID: 7, Title: "root", Status: entity.TaskStatusTodo, DueDate: &due},
		{ID: 2, ProjectID: 7, ParentID: &parent, Title: "child", Status: entity.TaskStatusDone},
	}, f.err
}

func (f *fakeUsecase) CreateTask(_ context.Context, in usecase.CreateTaskInput) (*entity.Task, error) {
	f.createTaskIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Task{ID: 3, ProjectID: in.ProjectID, ParentID: in.ParentID, Title: in.Title, Status: entity.TaskStatusOrTodo(in.Status)}, nil
}

func (f *fakeUsecase) UpdateTask(_ context.Context, in usecase.UpdateTaskInput) (*entity.Task, error) {
	f.updateIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Task{ID: in.ID, ProjectID: 7, Title: "t", Status: entity.TaskStatusDone}, nil
}

func (f *fakeUsecase) DeleteTask(context.Context, usecase.TaskInput) error { return f.err }

func (f *fakeUsecase) ListBacklogs(context.Context, usecase.ListBacklogsInput) ([]entity.Backlog, error) {
	parent := int64(1)
	return []entity.Backlog{
		{ID: 2, ProjectID: 7, ParentID: &parent, Title: "story", Priority: entity.BacklogPriorityLow, Status: entity.TaskStatusTodo},
		{ID: 1, ProjectID: 7, Title: "epic", Priority: entity.BacklogPriorityHigh, Status: entity.TaskStatusLater, Tags: "api"},
	}, f.err
}

func (f *fakeUsecase) CreateBacklog(_ context.Context, in usecase.CreateBacklogInput) (*entity.Backlog, error) {
	f.backlogIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Backlog{
		ID: 3, ProjectID: in.ProjectID, ParentID: in.ParentID, Title: in.Title,
		Priority: entity.BacklogPriorityOrMedium(in.Priority), Status: entity.BacklogStatusOrTodo(in.Status), Tags: in.Tags,
	}, nil
}

func (f *fakeUsecase) UpdateBacklog(_ context.Context, in usecase.UpdateBacklogInput) (*entity.Backlog, error) {
	f.backlogPatch = in
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Backlog{ID: in.ID, ProjectID: 7, Title: "b", Priority: entity.BacklogPriorityMedium, Status: entity.TaskStatusTodo}, nil
}

func (f *fakeUsecase) DeleteBacklog(context.Context, usecase.BacklogInput) error { return f.err }

func (f *fakeUsecase) ListSprints(context.Context, usecase.ListSprintsInput) ([]entity.Sprint, error) {
	start := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	return []entity.Sprint{{ID: 4, ProjectID: 7, Name: "Sprint 1", Status: entity.SprintStatusActive, StartDate: &start, Velocity: 20}}, f.err
}

func (f *fakeUsecase) CreateSprint(_ context.Context, in usecase.CreateSprintInput) (*entity.Sprint, error) {
	f.sprintIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Sprint{ID: 5, ProjectID: in.ProjectID, Name: in.Name, Status: entity.SprintStatusOrPlanned(in.Status)}, nil
}

func (f *fakeUsecase) UpdateSprint(_ context.Context, in usecase.UpdateSprintInput) (*entity.Sprint, error) {
	f.sprintPatch = in
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Sprint{ID: in.ID, ProjectID: 7, Name: "s", Status: entity.SprintStatusDone}, nil
}

func (f *fakeUsecase) DeleteSprint(context.Context, usecase.SprintInput) error { return f.err }

func (f *fakeUsecase) ListResources(context.Context, usecase.ListResourcesInput) ([]entity.Resource, error) {
	return []entity.Resource{{ID: 6, ProjectID: 7, Name: "Dana", Status: entity.ResourceStatusHoliday}}, f.err
}

func (f *fakeUsecase) CreateResource(_ context.Context, in usecase.CreateResourceInput) (*entity.Resource, error) {
	f.resourceIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Resource{ID: 8, ProjectID: in.ProjectID, Name: in.Name, Status: entity.ResourceStatusOrFree(in.Status)}, nil
}

func (f *fakeUsecase) UpdateResource(_ context.Context, in usecase.UpdateResourceInput) (*entity.Resource, error) {
	f.resourcePatch = in
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Resource{ID: in.ID, ProjectID: 7, Name: "Dana", Status: entity.ResourceStatusOverloaded}, nil
}

func (f *fakeUsecase) DeleteResource(context.Context, usecase.ResourceInput) error { return f.err }

func serve(t *testing.T, uc *fakeUsecase, enf stubEnforcer, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  name: taskdeck\n"))
	require.NoError(t, err)

	ro := router.NewRouter(router.Config{Config: cfg, UUID: stubUUID{}, JWT: stubJWT{}, Instrument: instrument.NewNoop()})
	RegisterHTTPEndpoint(ro, uc, enf)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: router.SessionCookie, Value: "session"})
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ro.ServeHTTP(rec, req)
	return rec
}

func TestHTTPEndpoint_Projects(t *testing.T) {
	t.Run("create returns 201 with a string id", func(t *testing.T) {
		// Arrange
		uc := &fakeUsecase{}

		// Act
		rec := serve(t, uc, stubEnforcer{}, http.MethodPost, "/api/projects", `{"name":"Alpha"}`, "Idempotency-Key", " k1 ")

		// Assert
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, usecase.CreateProjectInput{IdempotencyKey: "k1", Name: "Alpha"}, uc.createProjectIn)

		var body struct {
			Message string          `json:"message"`
			Data    ProjectResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Project created", body.Message)
		assert.Equal(t, "9007199254740993", body.Data.ID)
		assert.Equal(t, "Alpha", body.Data.Name)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{}, stubEnforcer{}, http.MethodPost, "/api/projects", `{"name":"a","owner":"b"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{}, stubEnforcer{}, http.MethodGet, "/api/projects", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data ListProjectsResponse `json:"data"`
			Meta map[string]any       `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data.Items, 2)
		assert.Equal(t, "2", body.Data.Items[0].ID)
		assert.InDelta(t, 2, body.Meta["count"], 0)
	})

	t.Run("get not found", func(t *testing.T) {
		uc := &fakeUsecase{err: goerror.NewBusiness("Project not found.", goerror.CodeNotFound)}

		rec := serve(t, uc, stubEnforcer{}, http.MethodGet, "/api/projects/7", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"message":"Project not found."}`, rec.Body.String())
	})

	t.Run("bad id", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{}, stubEnforcer{}, http.MethodGet, "/api/projects/abc", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete needs the permission", func(t *testing.T) {
		uc := &fakeUsecase{}

		rec := serve(t, uc, stubEnforcer{}, http.MethodDelete, "/api/projects/7", "")

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Zero(t, uc.deletedProject)
	})

	t.Run("delete allowed", func(t *testing.T) {
		uc := &fakeUsecase{}

		rec := serve(t, uc, stubEnforcer{allow: true}, http.MethodDelete, "/api/projects/7", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(7), uc.deletedProject)
	})

	t.Run("anonymous", func(t *testing.T) {
		cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  name: taskdeck\n"))
		require.NoError(t, err)
		ro := router.NewRouter(router.Config{Config: cfg, UUID: stubUUID{}, JWT: stubJWT{}, Instrument: instrument.NewNoop()})
		RegisterHTTPEndpoint(ro, &fakeUsecase{}, stubEnforcer{})

		rec := httptest.NewRecorder()
		ro.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHTTPEndpoint_Tasks(t *testing.T) {
	t.Run("list renders parent and due date", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{}, stubEnforcer{}, http.MethodGet, "/api/projects/7/tasks", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data ListTasksResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data.Items, 2)
		assert.Equal(t, "2026-04-01", body.Data.Items[0].DueDate)
		assert.Nil(t, body.Data.Items[0].ParentID)
		require.NotNil(t, body.Data.Items[1].ParentID)
		assert.Equal(t, "1", *body.Data.Items[1].ParentID)
	})

	t.Run("create accepts string and numeric parent ids", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			want *int64
		}{
			{name: "string", body: `{"title":"x","parent_id":"12"}`, want: ptr(int64(12))},
			{name: "number", body: `{"title":"x","parent_id":12}`, want: ptr(int64(12))},
			{name: "empty", body: `{"title":"x","parent_id":""}`},
			{name: "null", body: `{"title":"x","parent_id":null}`},
			{name: "absent", body: `{"title":"x"}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				uc := &fakeUsecase{}

				rec := serve(t, uc, stubEnforcer{}, http.MethodPost, "/api/projects/7/tasks", tt.body)

				require.Equal(t, http.StatusCreated, rec.Code)
				assert.Equal(t, int64(7), uc.createTaskIn.ProjectID)
				assert.Equal(t, tt.want, uc.createTaskIn.ParentID)
			})
		}
	})

	t.Run("patch passes only present keys", func(t *testing.T) {
		// Arrange
		uc := &fakeUsecase{}

		// Act
		rec := serve(t, uc, stubEnforcer{}, http.MethodPatch, "/api/tasks/5", `{"status":"done","due_date":"","parent_id":null}`)

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(5), uc.updateIn.ID)
		assert.Nil(t, uc.updateIn.Title)
		assert.Nil(t, uc.updateIn.Description)
		require.NotNil(t, uc.updateIn.Status)
		assert.Equal(t, "done", *uc.updateIn.Status)
		require.NotNil(t, uc.updateIn.DueDate)
		assert.Empty(t, *uc.updateIn.DueDate)
		assert.True(t, uc.updateIn.ClearParent)
		assert.Nil(t, uc.updateIn.ParentID)
	})

	t.Run("patch sets parent", func(t *testing.T) {
		uc := &fakeUsecase{}

		rec := serve(t, uc, stubEnforcer{}, http.MethodPatch, "/api/tasks/5", `{"parent_id":"4"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, uc.updateIn.ClearParent)
		assert.Equal(t, ptr(int64(4)), uc.updateIn.ParentID)
	})

	t.Run("patch with a bad parent id", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{}, stubEnforcer{}, http.MethodPatch, "/api/tasks/5", `{"parent_id":"x"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{}, stubEnforcer{}, http.MethodDelete, "/api/tasks/5", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("delete failure", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{err: errors.New("boom")}, stubEnforcer{}, http.MethodDelete, "/api/tasks/5", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHTTPEndpoint_Planning(t *testing.T) {
	t.Run("backlog list", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{}, stubEnforcer{}, http.MethodGet, "/api/projects/7/backlogs", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data ListBacklogsResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data.Items, 2)
		assert.Equal(t, "1", *body.Data.Items[0].ParentID)
		assert.Equal(t, "high", body.Data.Items[1].Priority)
		assert.Equal(t, "later", body.Data.Items[1].Status)
	})

	t.Run("backlog create", func(t *testing.T) {
		// Arrange
		uc := &fakeUsecase{}

		// Act
		rec := serve(t, uc, stubEnforcer{}, http.MethodPost, "/api/projects/7/backlogs",
			`{"title":"story","priority":"high","tags":"a,b","parent_id":"2"}`, "Idempotency-Key", "b-1")

		// Assert
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, usecase.CreateBacklogInput{
			IdempotencyKey: "b-1", ProjectID: 7, Title: "story", Priority: "high", Tags: "a,b", ParentID: ptr(int64(2)),
		}, uc.backlogIn)
		var body struct {
			Message string          `json:"message"`
			Data    BacklogResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Backlog item created", body.Message)
		assert.Equal(t, "3", body.Data.ID)
		assert.Equal(t, "todo", body.Data.Status)
	})

	t.Run("backlog patch detaches on null parent", func(t *testing.T) {
		uc := &fakeUsecase{}

		rec := serve(t, uc, stubEnforcer{}, http.MethodPatch, "/api/backlogs/5", `{"priority":"low","parent_id":null}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(5), uc.backlogPatch.ID)
		assert.Equal(t, ptr("low"), uc.backlogPatch.Priority)
		assert.Nil(t, uc.backlogPatch.Title)
		assert.True(t, uc.backlogPatch.ClearParent)
	})

	t.Run("backlog delete not found", func(t *testing.T) {
		uc := &fakeUsecase{err: goerror.NewBusiness("Backlog item not found.", goerror.CodeNotFound)}

		rec := serve(t, uc, stubEnforcer{}, http.MethodDelete, "/api/backlogs/5", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"message":"Backlog item not found."}`, rec.Body.String())
	})

	t.Run("sprint list renders dates", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{}, stubEnforcer{}, http.MethodGet, "/api/projects/7/sprints", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data ListSprintsResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data.Items, 1)
		assert.Equal(t, "2026-03-09", body.Data.Items[0].StartDate)
		assert.Empty(t, body.Data.Items[0].EndDate)
		assert.Equal(t, 20, body.Data.Items[0].Velocity)
	})

	t.Run("sprint create", func(t *testing.T) {
		uc := &fakeUsecase{}

		rec := serve(t, uc, stubEnforcer{}, http.MethodPost, "/api/projects/7/sprints",
			`{"name":"Sprint 2","start_date":"2026-03-23","velocity":18}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, usecase.CreateSprintInput{ProjectID: 7, Name: "Sprint 2", StartDate: "2026-03-23", Velocity: 18}, uc.sprintIn)
	})

	t.Run("sprint patch passes only present keys", func(t *testing.T) {
		uc := &fakeUsecase{}

		rec := serve(t, uc, stubEnforcer{}, http.MethodPatch, "/api/sprints/4", `{"status":"done","end_date":"","done_points":null}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ptr("done"), uc.sprintPatch.Status)
		assert.Equal(t, ptr(""), uc.sprintPatch.EndDate)
		assert.Equal(t, ptr(0), uc.sprintPatch.DonePoints)
		assert.Nil(t, uc.sprintPatch.Velocity)
		assert.Nil(t, uc.sprintPatch.Name)
	})

	t.Run("sprint patch with a bad number", func(t *testing.T) {
		rec := serve(t, &fakeUsecase{}, stubEnforcer{}, http.MethodPatch, "/api/sprints/4", `{"velocity":"fast"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("resource create and list", func(t *testing.T) {
		uc := &fakeUsecase{}

		rec := serve(t, uc, stubEnforcer{}, http.MethodPost, "/api/projects/7/resources", `{"name":"Dana","status":"holiday"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, usecase.CreateResourceInput{ProjectID: 7, Name: "Dana", Status: "holiday"}, uc.resourceIn)

		rec = serve(t, uc, stubEnforcer{}, http.MethodGet, "/api/projects/7/resources", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data ListResourcesResponse `json:"data"`
			Meta map[string]any        `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "holiday", body.Data.Items[0].Status)
		assert.InDelta(t, 1, body.Meta["count"], 0)
	})

	t.Run("resource patch and delete", func(t *testing.T) {
		uc := &fakeUsecase{}

		rec := serve(t, uc, stubEnforcer{}, http.MethodPatch, "/api/resources/6", `{"status":"overloaded","notes":null}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ptr("overloaded"), uc.resourcePatch.Status)
		assert.Equal(t, ptr(""), uc.resourcePatch.Notes)

		rec = serve(t, uc, stubEnforcer{}, http.MethodDelete, "/api/resources/6", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func ptr[T any](v T) *T { return &v }
