package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
)

const taskColumns = `id, project_id, parent_id, title, description, status, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (entity.Task, error) {
	var (
		t      entity.Task
		status string
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.ParentID, &t.Title, &t.Description, &status,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return t, err
	}
	t.Status = entity.TaskStatusOrTodo(status)
	return t, nil
}

func (s *DB) CreateTask(ctx context.Context, t entity.Task) (err error) {
	ctx, span := s.startSpan(ctx, "CreateTask")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.ProjectID, t.ParentID, t.Title, t.Description, t.Status.String(), t.DueDate, t.CreatedAt, t.UpdatedAt)
	return s.mapError(err)
}

func (s *DB) GetTask(ctx context.Context, id int64) (_ *entity.Task, err error) {
	ctx, span := s.startSpan(ctx, "GetTask")
	defer func() { s.endSpan(span, err) }()

	t, err := scanTask(s.conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return &t, nil
}

// ListTasks returns the tasks of a project in creation order.
func (s *DB) ListTasks(ctx context.Context, projectID int64) (_ []entity.Task, err error) {
	ctx, span := s.startSpan(ctx, "ListTasks")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, s.mapError(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Task, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return out, nil
}

// UpdateTask applies patch to the task under a row lock and returns the
// stored result.
func (s *DB) UpdateTask(ctx context.Context, id int64, patch entity.TaskPatch) (_ *entity.Task, err error) {
	ctx, span := s.startSpan(ctx, "UpdateTask")
	defer func() { s.endSpan(span, err) }()

	var out entity.Task
	err = pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		t, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		patch.Apply(&t)

		out, err = scanTask(tx.QueryRow(ctx,
			`UPDATE tasks
			SET parent_id = $2, title = $3, description = $4, status = $5, due_date = $6, updated_at = now()
			WHERE id = $1
			RETURNING `+taskColumns,
			t.ID, t.ParentID, t.Title, t.Description, t.Status.String(), t.DueDate))
		return err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return &out, nil
}

func (s *DB) DeleteTask(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteTask")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
