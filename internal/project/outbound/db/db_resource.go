package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
)

const resourceColumns = `id, project_id, name, status, notes`

func scanResource(row pgx.Row) (entity.Resource, error) {
	var (
		r      entity.Resource
		status string
	)
	if err := row.Scan(&r.ID, &r.ProjectID, &r.Name, &status, &r.Notes); err != nil {
		return r, err
	}
	r.Status = entity.ResourceStatusOrFree(status)
	return r, nil
}

func (s *DB) CreateResource(ctx context.Context, r entity.Resource) (err error) {
	ctx, span := s.startSpan(ctx, "CreateResource")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO resources (`+resourceColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.ProjectID, r.Name, r.Status.String(), r.Notes)
	return s.mapError(err)
}

func (s *DB) GetResource(ctx context.Context, id int64) (_ *entity.Resource, err error) {
	ctx, span := s.startSpan(ctx, "GetResource")
	defer func() { s.endSpan(span, err) }()

	r, err := scanResource(s.conn.QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return &r, nil
}

// ListResources returns the team members of a project, newest first.
func (s *DB) ListResources(ctx context.Context, projectID int64) (_ []entity.Resource, err error) {
	ctx, span := s.startSpan(ctx, "ListResources")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE project_id = $1 ORDER BY id DESC`, projectID)
	if err != nil {
		return nil, s.mapError(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Resource, error) {
		return scanResource(row)
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return out, nil
}

func (s *DB) UpdateResource(ctx context.Context, id int64, patch entity.ResourcePatch) (_ *entity.Resource, err error) {
	ctx, span := s.startSpan(ctx, "UpdateResource")
	defer func() { s.endSpan(span, err) }()

	var out entity.Resource
	err = pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		r, err := scanResource(tx.QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		patch.Apply(&r)

		out, err = scanResource(tx.QueryRow(ctx,
			`UPDATE resources SET name = $2, status = $3, notes = $4 WHERE id = $1 RETURNING `+resourceColumns,
			r.ID, r.Name, r.Status.String(), r.Notes))
		return err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return &out, nil
}

func (s *DB) DeleteResource(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteResource")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
