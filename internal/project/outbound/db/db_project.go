package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
)

func (s *DB) CreateProject(ctx context.Context, p entity.Project) (err error) {
	ctx, span := s.startSpan(ctx, "CreateProject")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO projects (id, name, description, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Description, p.CreatedBy, p.CreatedAt)
	return s.mapError(err)
}

func (s *DB) GetProject(ctx context.Context, id int64) (_ *entity.Project, err error) {
	ctx, span := s.startSpan(ctx, "GetProject")
	defer func() { s.endSpan(span, err) }()

	var p entity.Project
	err = s.conn.QueryRow(ctx,
		`SELECT id, name, description, created_by, created_at FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &p, nil
}

// ListProjects returns the newest projects first.
func (s *DB) ListProjects(ctx context.Context) (_ []entity.Project, err error) {
	ctx, span := s.startSpan(ctx, "ListProjects")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		`SELECT id, name, description, created_by, created_at FROM projects ORDER BY id DESC`)
	if err != nil {
		return nil, s.mapError(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Project, error) {
		var p entity.Project
		err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return out, nil
}

// DeleteProject removes a project and, by cascade, its tasks.
func (s *DB) DeleteProject(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteProject")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
