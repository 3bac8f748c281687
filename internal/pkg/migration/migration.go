// Package migration applies the embedded SQL migrations with golang-migrate.
package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers postgres://
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrDirection is returned for a direction other than up or down.
var ErrDirection = errors.New("migration: direction must be up or down")

const (
	Up   = "up"
	Down = "down"
)

// Status is the schema version after a run.
type Status struct {
	Version uint
	Dirty   bool
}

// Run migrates the database at dsn in the given direction using the
// migrations in src. Reaching the target with nothing to do is not an error.
func Run(dsn string, src fs.FS, direction string) (Status, error) {
	if direction != Up && direction != Down {
		return Status{}, fmt.Errorf("%w: %q", ErrDirection, direction)
	}

	m, err := open(dsn, src)
	if err != nil {
		return Status{}, err
	}
	defer closeMigrate(m)

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Status{}, fmt.Errorf("migration: %s: %w", direction, err)
	}

	return version(m)
}

// Version reports the current schema version without changing it.
func Version(dsn string, src fs.FS) (Status, error) {
	m, err := open(dsn, src)
	if err != nil {
		return Status{}, err
	}
	defer closeMigrate(m)

	return version(m)
}

func open(dsn string, src fs.FS) (*migrate.Migrate, error) {
	source, err := iofs.New(src, ".")
	if err != nil {
		return nil, fmt.Errorf("migration: source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("migration: open: %w", err)
	}
	return m, nil
}

func version(m *migrate.Migrate) (Status, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("migration: version: %w", err)
	}
	return Status{Version: v, Dirty: dirty}, nil
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		slog.Warn("migration: failed to close", "error", err)
	}
}
