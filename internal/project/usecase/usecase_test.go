package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/pkg/clock"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/idempotency"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
	"github.com/shandysiswandi/taskdeck/internal/pkg/validator"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDB struct {
	mu       sync.Mutex
	projects map[int64]entity.Project
	tasks    map[int64]entity.Task
	backlogs map[int64]entity.Backlog
	sprints  map[int64]entity.Sprint
	members  map[int64]entity.Resource
	err      error
}

func newMemDB() *memDB {
	return &memDB{
		projects: map[int64]entity.Project{},
		tasks:    map[int64]entity.Task{},
		backlogs: map[int64]entity.Backlog{},
		sprints:  map[int64]entity.Sprint{},
		members:  map[int64]entity.Resource{},
	}
}

func (m *memDB) CreateProject(_ context.Context, p entity.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.projects[p.ID]; ok {
		return goerror.ErrConflict
	}
	m.projects[p.ID] = p
	return nil
}

func (m *memDB) GetProject(_ context.Context, id int64) (*entity.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.projects[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &p, nil
}

func (m *memDB) ListProjects(context.Context) ([]entity.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]entity.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memDB) DeleteProject(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.projects[id]; !ok {
		return goerror.ErrNotFound
	}
	delete(m.projects, id)
	for tid, t := range m.tasks {
		if t.ProjectID == id {
			delete(m.tasks, tid)
		}
	}
	for bid, b := range m.backlogs {
		if b.ProjectID == id {
			delete(m.backlogs, bid)
		}
	}
	for sid, sp := range m.sprints {
		if sp.ProjectID == id {
			delete(m.sprints, sid)
		}
	}
	for rid, r := range m.members {
		if r.ProjectID == id {
			delete(m.members, rid)
		}
	}
	return nil
}

func (m *memDB) CreateTask(_ context.Context, t entity.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.projects[t.ProjectID]; !ok {
		return goerror.ErrNotFound
	}
	m.tasks[t.ID] = t
	return nil
}

func (m *memDB) GetTask(_ context.Context, id int64) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &t, nil
}

func (m *memDB) ListTasks(_ context.Context, projectID int64) ([]entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Task
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDB) UpdateTask(_ context.Context, id int64, patch entity.TaskPatch) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	patch.Apply(&t)
	m.tasks[id] = t
	return &t, nil
}

func (m *memDB) DeleteTask(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return goerror.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// The mem* helpers back the planning tables of memDB.

func memCreate[T any](m *memDB, rows map[int64]T, id, projectID int64, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.projects[projectID]; !ok {
		return goerror.ErrNotFound
	}
	rows[id] = v
	return nil
}

func memGet[T any](m *memDB, rows map[int64]T, id int64) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := rows[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &v, nil
}

func memList[T any](m *memDB, rows map[int64]T, match func(T) bool, id func(T) int64) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []T
	for _, v := range rows {
		if match(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) > id(out[j]) })
	return out, nil
}

func memUpdate[T any](m *memDB, rows map[int64]T, id int64, apply func(*T)) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := rows[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	apply(&v)
	rows[id] = v
	return &v, nil
}

func memDelete[T any](m *memDB, rows map[int64]T, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := rows[id]; !ok {
		return goerror.ErrNotFound
	}
	delete(rows, id)
	return nil
}

func (m *memDB) CreateBacklog(_ context.Context, b entity.Backlog) error {
	return memCreate(m, m.backlogs, b.ID, b.ProjectID, b)
}

func (m *memDB) GetBacklog(_ context.Context, id int64) (*entity.Backlog, error) {
	return memGet(m, m.backlogs, id)
}

func (m *memDB) ListBacklogs(_ context.Context, projectID int64) ([]entity.Backlog, error) {
	return memList(m, m.backlogs,
		func(b entity.Backlog) bool { return b.ProjectID == projectID },
		func(b entity.Backlog) int64 { return b.ID })
}

func (m *memDB) UpdateBacklog(_ context.Context, id int64, patch entity.BacklogPatch) (*entity.Backlog, error) {
	return memUpdate(m, m.backlogs, id, patch.Apply)
}

func (m *memDB) DeleteBacklog(_ context.Context, id int64) error {
	return memDelete(m, m.backlogs, id)
}

func (m *memDB) CreateSprint(_ context.Context, sp entity.Sprint) error {
	return memCreate(m, m.sprints, sp.ID, sp.ProjectID, sp)
}

func (m *memDB) GetSprint(_ context.Context, id int64) (*entity.Sprint, error) {
	return memGet(m, m.sprints, id)
}

func (m *memDB) ListSprints(_ context.Context, projectID int64) ([]entity.Sprint, error) {
	return memList(m, m.sprints,
		func(sp entity.Sprint) bool { return sp.ProjectID == projectID },
		func(sp entity.Sprint) int64 { return sp.ID })
}

func (m *memDB) UpdateSprint(_ context.Context, id int64, patch entity.SprintPatch) (*entity.Sprint, error) {
	return memUpdate(m, m.sprints, id, patch.Apply)
}

func (m *memDB) DeleteSprint(_ context.Context, id int64) error {
	return memDelete(m, m.sprints, id)
}

func (m *memDB) CreateResource(_ context.Context, r entity.Resource) error {
	return memCreate(m, m.members, r.ID, r.ProjectID, r)
}

func (m *memDB) GetResource(_ context.Context, id int64) (*entity.Resource, error) {
	return memGet(m, m.members, id)
}

func (m *memDB) ListResources(_ context.Context, projectID int64) ([]entity.Resource, error) {
	return memList(m, m.members,
		func(r entity.Resource) bool { return r.ProjectID == projectID },
		func(r entity.Resource) int64 { return r.ID })
}

func (m *memDB) UpdateResource(_ context.Context, id int64, patch entity.ResourcePatch) (*entity.Resource, error) {
	return memUpdate(m, m.members, id, patch.Apply)
}

func (m *memDB) DeleteResource(_ context.Context, id int64) error {
	return memDelete(m, m.members, id)
}

type memIdempotency struct {
	mu      sync.Mutex
	states  map[string]idempotency.State
	results map[string][]byte
}

func (m *memIdempotency) Acquire(_ context.Context, key string, _ time.Duration) (idempotency.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[key]; ok {
		return st, nil
	}
	m.states[key] = idempotency.StateInProgress
	return idempotency.StateNone, nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

func (m *memIdempotency) Guard(ctx context.Context, key string, d time.Duration, fn func(context.Context) error) error {
	st, err := m.Acquire(ctx, key, d)
	if err != nil {
		return err
	}
	if st != idempotency.StateNone {
		return idempotency.ErrAlreadyInProgress
	}
	defer func() { _ = m.Release(ctx, key) }()
	return fn(ctx)
}

func (m *memIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...idempotency.Option) error {
	st, err := m.Acquire(ctx, key, 0)
	if err != nil {
		return err
	}
	switch st {
	case idempotency.StateInProgress:
		return idempotency.ErrAlreadyInProgress
	case idempotency.StateCompleted:
		return idempotency.ErrAlreadyCompleted
	case idempotency.StateFailed:
		return idempotency.ErrAlreadyFailed
	}

	err = fn(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case err == nil:
		m.states[key] = idempotency.StateCompleted
	case idempotency.Retryable(err, opts...):
		delete(m.states, key)
	default:
		m.states[key] = idempotency.StateFailed
	}
	return err
}

func (m *memIdempotency) Remember(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...idempotency.Option) ([]byte, error) {
	var out []byte
	err := m.Exec(ctx, key, func(ctx context.Context) error {
		res, err := fn(ctx)
		if err != nil {
			return err
		}
		out = res
		m.mu.Lock()
		m.results[key] = res
		m.mu.Unlock()
		return nil
	}, opts...)
	if errors.Is(err, idempotency.ErrAlreadyCompleted) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if res, ok := m.results[key]; ok {
			return res, nil
		}
	}
	return out, err
}

type seqID struct {
	mu   sync.Mutex
	next int64
}

func (s *seqID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

type fixture struct {
	uc    *Usecase
	db    *memDB
	idemp *memIdempotency
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := &fixture{
		db:    newMemDB(),
		idemp: &memIdempotency{states: map[string]idempotency.State{}, results: map[string][]byte{}},
		now:   time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	f.uc = New(Dependency{
		RepoDB:      f.db,
		Idempotency: f.idemp,
		Validator:   v,
		UID:         &seqID{next: 100},
		Clock:       clock.NewManual(f.now),
		Instrument:  instrument.NewNoop(),
	})

	return f
}

func (f *fixture) addProject(id int64) {
	f.db.projects[id] = entity.Project{ID: id, Name: "p", CreatedBy: 1, CreatedAt: f.now}
}

func (f *fixture) addTask(id, projectID int64, parentID *int64) {
	f.db.tasks[id] = entity.Task{ID: id, ProjectID: projectID, ParentID: parentID, Title: "t", Status: entity.TaskStatusTodo}
}

func (f *fixture) addBacklog(id, projectID int64, parentID *int64) {
	f.db.backlogs[id] = entity.Backlog{
		ID: id, ProjectID: projectID, ParentID: parentID, Title: "b",
		Priority: entity.BacklogPriorityMedium, Status: entity.TaskStatusTodo,
	}
}

func authed() context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: 1, Username: "admin"})
}

func ptr[T any](v T) *T { return &v }

func assertBusiness(t *testing.T, err error, status int, msg string) {
	t.Helper()

	var gerr *goerror.Error
	require.True(t, errors.As(err, &gerr), "expected *goerror.Error, got %v", err)
	assert.Equal(t, status, gerr.StatusCode())
	if msg != "" {
		assert.Equal(t, msg, gerr.Msg())
	}
}
