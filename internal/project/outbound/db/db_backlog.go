package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
)

const backlogColumns = `id, project_id, parent_id, title, priority, status, tags, created_at, updated_at`

func scanBacklog(row pgx.Row) (entity.Backlog, error) {
	var (
		b                entity.Backlog
		priority, status string
	)
	if err := row.Scan(&b.ID, &b.ProjectID, &b.ParentID, &b.Title, &priority, &status,
		&b.Tags, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return b, err
	}
	b.Priority = entity.BacklogPriorityOrMedium(priority)
	b.Status = entity.BacklogStatusOrTodo(status)
	return b, nil
}

func (s *DB) CreateBacklog(ctx context.Context, b entity.Backlog) (err error) {
	ctx, span := s.startSpan(ctx, "CreateBacklog")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO backlogs (`+backlogColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.ProjectID, b.ParentID, b.Title, b.Priority.String(), b.Status.String(), b.Tags, b.CreatedAt, b.UpdatedAt)
	return s.mapError(err)
}

func (s *DB) GetBacklog(ctx context.Context, id int64) (_ *entity.Backlog, err error) {
	ctx, span := s.startSpan(ctx, "GetBacklog")
	defer func() { s.endSpan(span, err) }()

	b, err := scanBacklog(s.conn.QueryRow(ctx, `SELECT `+backlogColumns+` FROM backlogs WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return &b, nil
}

// ListBacklogs returns the backlog of a project, newest first.
func (s *DB) ListBacklogs(ctx context.Context, projectID int64) (_ []entity.Backlog, err error) {
	ctx, span := s.startSpan(ctx, "ListBacklogs")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		`SELECT `+backlogColumns+` FROM backlogs WHERE project_id = $1 ORDER BY id DESC`, projectID)
	if err != nil {
		return nil, s.mapError(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Backlog, error) {
		return scanBacklog(row)
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return out, nil
}

func (s *DB) UpdateBacklog(ctx context.Context, id int64, patch entity.BacklogPatch) (_ *entity.Backlog, err error) {
	ctx, span := s.startSpan(ctx, "UpdateBacklog")
	defer func() { s.endSpan(span, err) }()

	var out entity.Backlog
	err = pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		b, err := scanBacklog(tx.QueryRow(ctx, `SELECT `+backlogColumns+` FROM backlogs WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		patch.Apply(&b)

		out, err = scanBacklog(tx.QueryRow(ctx,
			`UPDATE backlogs
			SET parent_id = $2, title = $3, priority = $4, status = $5, tags = $6, updated_at = now()
			WHERE id = $1
			RETURNING `+backlogColumns,
			b.ID, b.ParentID, b.Title, b.Priority.String(), b.Status.String(), b.Tags))
		return err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return &out, nil
}

func (s *DB) DeleteBacklog(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteBacklog")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM backlogs WHERE id = $1`, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
