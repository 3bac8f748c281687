// Package pgxcasbin persists casbin policies in Postgres through pgx.
package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

const (
	// DefaultTable matches the casbin_rules migration.
	DefaultTable = "casbin_rules"

	fieldCount = 6
)

var (
	_ persist.Adapter      = (*Adapter)(nil)
	_ persist.BatchAdapter = (*Adapter)(nil)
)

// Querier is the subset of *pgxpool.Pool the adapter uses.
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Adapter loads and saves policy lines of the form ptype, v0..v5.
type Adapter struct {
	db    Querier
	table string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTableName overrides DefaultTable.
func WithTableName(name string) Option {
	return func(a *Adapter) { a.table = lo.SnakeCase(name) }
}

func NewAdapter(db Querier, opts ...Option) *Adapter {
	a := &Adapter{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var columns = strings.Join(lo.Times(fieldCount, func(i int) string { return "v" + strconv.Itoa(i) }), ", ")

func (a *Adapter) insertSQL() string {
	params := strings.Join(lo.Times(fieldCount, func(i int) string { return "$" + strconv.Itoa(i+2) }), ", ")
	return fmt.Sprintf("INSERT INTO %s (ptype, %s) VALUES ($1, %s) ON CONFLICT DO NOTHING", a.table, columns, params)
}

func (a *Adapter) deleteSQL() string {
	conds := strings.Join(lo.Times(fieldCount, func(i int) string {
		return "v" + strconv.Itoa(i) + " = $" + strconv.Itoa(i+2)
	}), " AND ")
	return fmt.Sprintf("DELETE FROM %s WHERE ptype = $1 AND %s", a.table, conds)
}

// LoadPolicy reads every stored line into m.
func (a *Adapter) LoadPolicy(m model.Model) error {
	ctx := context.Background()

	rows, err := a.db.Query(ctx, fmt.Sprintf("SELECT ptype, %s FROM %s ORDER BY id", columns, a.table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		line := make([]string, fieldCount+1)
		dst := lo.Map(line, func(_ string, i int) any { return &line[i] })
		if err := rows.Scan(dst...); err != nil {
			return err
		}
		if err := persist.LoadPolicyArray(trimTrailingEmpty(line), m); err != nil {
			return err
		}
	}

	return rows.Err()
}

// SavePolicy replaces the stored policy with the lines of m.
func (a *Adapter) SavePolicy(m model.Model) (err error) {
	ctx := context.Background()

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback casbin save", "error", rErr)
		}
	}()

	if _, err := tx.Exec(ctx, "DELETE FROM "+a.table); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			for _, rule := range ast.Policy {
				args, err := ruleArgs(ptype, rule)
				if err != nil {
					return err
				}
				batch.Queue(a.insertSQL(), args...)
			}
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (a *Adapter) AddPolicy(_ string, ptype string, rule []string) error {
	args, err := ruleArgs(ptype, rule)
	if err != nil {
		return err
	}
	_, err = a.db.Exec(context.Background(), a.insertSQL(), args...)
	return err
}

func (a *Adapter) RemovePolicy(_ string, ptype string, rule []string) error {
	args, err := ruleArgs(ptype, rule)
	if err != nil {
		return err
	}
	_, err = a.db.Exec(context.Background(), a.deleteSQL(), args...)
	return err
}

func (a *Adapter) AddPolicies(sec string, ptype string, rules [][]string) error {
	for _, rule := range rules {
		if err := a.AddPolicy(sec, ptype, rule); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) RemovePolicies(sec string, ptype string, rules [][]string) error {
	for _, rule := range rules {
		if err := a.RemovePolicy(sec, ptype, rule); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFilteredPolicy deletes lines of ptype whose fields from fieldIndex
// on match fieldValues. Empty values match anything.
func (a *Adapter) RemoveFilteredPolicy(_ string, ptype string, fieldIndex int, fieldValues ...string) error {
	if ptype == "" {
		return ErrEmptyPtype
	}
	if fieldIndex < 0 || fieldIndex+len(fieldValues) > fieldCount {
		return fmt.Errorf("%w: %d > %d", ErrArgsTooLong, fieldIndex+len(fieldValues), fieldCount)
	}

	query := "DELETE FROM " + a.table + " WHERE ptype = $1"
	args := []any{ptype}
	for i, v := range fieldValues {
		if v == "" {
			continue
		}
		args = append(args, v)
		query += " AND v" + strconv.Itoa(fieldIndex+i) + " = $" + strconv.Itoa(len(args))
	}

	_, err := a.db.Exec(context.Background(), query, args...)
	return err
}

func ruleArgs(ptype string, rule []string) ([]any, error) {
	if len(rule) > fieldCount {
		return nil, fmt.Errorf("%w: %d > %d", ErrRuleTooLong, len(rule), fieldCount)
	}

	args := make([]any, fieldCount+1)
	args[0] = ptype
	for i := range fieldCount {
		args[i+1] = ""
		if i < len(rule) {
			args[i+1] = rule[i]
		}
	}
	return args, nil
}

func trimTrailingEmpty(line []string) []string {
	end := len(line)
	for end > 0 && line[end-1] == "" {
		end--
	}
	return line[:end]
}
