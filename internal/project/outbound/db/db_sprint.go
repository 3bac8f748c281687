package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
)

const sprintColumns = `id, project_id, name, status, start_date, end_date, velocity, scope_points, done_points, notes, created_at, updated_at`

func scanSprint(row pgx.Row) (entity.Sprint, error) {
	var (
		sp     entity.Sprint
		status string
	)
	if err := row.Scan(&sp.ID, &sp.ProjectID, &sp.Name, &status, &sp.StartDate, &sp.EndDate,
		&sp.Velocity, &sp.ScopePoints, &sp.DonePoints, &sp.Notes, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		return sp, err
	}
	sp.Status = entity.SprintStatusOrPlanned(status)
	return sp, nil
}

func (s *DB) CreateSprint(ctx context.Context, sp entity.Sprint) (err error) {
	ctx, span := s.startSpan(ctx, "CreateSprint")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO sprints (`+sprintColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sp.ID, sp.ProjectID, sp.Name, sp.Status.String(), sp.StartDate, sp.EndDate,
		sp.Velocity, sp.ScopePoints, sp.DonePoints, sp.Notes, sp.CreatedAt, sp.UpdatedAt)
	return s.mapError(err)
}

func (s *DB) GetSprint(ctx context.Context, id int64) (_ *entity.Sprint, err error) {
	ctx, span := s.startSpan(ctx, "GetSprint")
	defer func() { s.endSpan(span, err) }()

	sp, err := scanSprint(s.conn.QueryRow(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return &sp, nil
}

// ListSprints returns the sprints of a project, newest first.
func (s *DB) ListSprints(ctx context.Context, projectID int64) (_ []entity.Sprint, err error) {
	ctx, span := s.startSpan(ctx, "ListSprints")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		`SELECT `+sprintColumns+` FROM sprints WHERE project_id = $1 ORDER BY id DESC`, projectID)
	if err != nil {
		return nil, s.mapError(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Sprint, error) {
		return scanSprint(row)
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return out, nil
}

func (s *DB) UpdateSprint(ctx context.Context, id int64, patch entity.SprintPatch) (_ *entity.Sprint, err error) {
	ctx, span := s.startSpan(ctx, "UpdateSprint")
	defer func() { s.endSpan(span, err) }()

	var out entity.Sprint
	err = pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		sp, err := scanSprint(tx.QueryRow(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		patch.Apply(&sp)

		out, err = scanSprint(tx.QueryRow(ctx,
			`UPDATE sprints
			SET name = $2, status = $3, start_date = $4, end_date = $5, velocity = $6,
				scope_points = $7, done_points = $8, notes = $9, updated_at = now()
			WHERE id = $1
			RETURNING `+sprintColumns,
			sp.ID, sp.Name, sp.Status.String(), sp.StartDate, sp.EndDate,
			sp.Velocity, sp.ScopePoints, sp.DonePoints, sp.Notes))
		return err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return &out, nil
}

func (s *DB) DeleteSprint(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteSprint")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM sprints WHERE id = $1`, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
