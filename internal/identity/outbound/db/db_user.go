package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
)

const userColumns = `id, username, COALESCE(email, ''), password_hash, phone_number, country_code,
	must_update_credentials, is_admin, totp_secret, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.CountryCode,
		&u.MustUpdateCredentials, &u.IsAdmin, &u.TOTPSecret, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByIdentifier matches a username or an email, case-insensitively.
func (s *DB) GetUserByIdentifier(ctx context.Context, identifier string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByIdentifier")
	defer func() { s.endSpan(span, err) }()

	user, err := scanUser(s.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		WHERE lower(username) = lower($1) OR lower(email) = lower($1)
		ORDER BY created_at, id LIMIT 1`, identifier))
	if err != nil {
		return nil, s.mapError(err)
	}

	return user, nil
}

func (s *DB) GetUserByID(ctx context.Context, id int64) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	user, err := scanUser(s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return user, nil
}

// GetFirstUser returns the oldest user, the one TOTP login signs in.
func (s *DB) GetFirstUser(ctx context.Context) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetFirstUser")
	defer func() { s.endSpan(span, err) }()

	user, err := scanUser(s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT 1`))
	if err != nil {
		return nil, s.mapError(err)
	}

	return user, nil
}

func (s *DB) CountUsers(ctx context.Context) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "CountUsers")
	defer func() { s.endSpan(span, err) }()

	var n int64
	if err = s.conn.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, s.mapError(err)
	}

	return n, nil
}

func (s *DB) ListAdminIDs(ctx context.Context) (_ []int64, err error) {
	ctx, span := s.startSpan(ctx, "ListAdminIDs")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT id FROM users WHERE is_admin ORDER BY id`)
	if err != nil {
		return nil, s.mapError(err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, s.mapError(err)
	}

	return ids, nil
}

func (s *DB) CreateUser(ctx context.Context, user entity.NewUser) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `INSERT INTO users
		(id, username, email, password_hash, phone_number, country_code, must_update_credentials, is_admin, totp_secret)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.PhoneNumber, user.CountryCode,
		user.MustUpdateCredentials, user.IsAdmin, user.TOTPSecret,
	)

	return s.mapError(err)
}

// UsernameTaken reports whether username is in use, ignoring case.
func (s *DB) UsernameTaken(ctx context.Context, username string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "UsernameTaken")
	defer func() { s.endSpan(span, err) }()

	var taken bool
	if err = s.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1))`, username).Scan(&taken); err != nil {
		return false, s.mapError(err)
	}

	return taken, nil
}

func (s *DB) UpdateAccount(ctx context.Context, upd entity.AccountUpdate) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateAccount")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE users SET
		username = $2,
		email = NULLIF($3, ''),
		password_hash = COALESCE(NULLIF($4, ''), password_hash),
		totp_secret = COALESCE($5, totp_secret),
		must_update_credentials = FALSE,
		updated_at = now()
		WHERE id = $1`,
		upd.ID, upd.Username, upd.Email, upd.PasswordHash, upd.TOTPSecret,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

// DeleteAllUsers removes every user and reports how many were removed.
func (s *DB) DeleteAllUsers(ctx context.Context) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteAllUsers")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM users`)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}
