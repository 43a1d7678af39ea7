// Package store reads business records, master data and print formats from
// PostgreSQL (pgx) or MySQL (database/sql). Queries are written once with
// "?" placeholders and rewritten for the backend.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// errNoRows is the backend independent "no row" signal.
var errNoRows = errors.New("store: no rows")

// Rows is the subset of a result set the store iterates.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Row scans a single-row result. Scan returns errNoRows when empty.
type Row interface {
	Scan(dest ...any) error
}

// Handle runs read queries. Placeholders are "?".
type Handle interface {
	QueryRows(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
}

// PgxHandle adapts a pgx pool.
type PgxHandle struct {
	pool *pgxpool.Pool
}

// NewPgxHandle wraps pool.
func NewPgxHandle(pool *pgxpool.Pool) *PgxHandle {
	return &PgxHandle{pool: pool}
}

// QueryRows implements Handle.
func (h *PgxHandle) QueryRows(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := h.pool.Query(ctx, Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryRow implements Handle.
func (h *PgxHandle) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgxRow{row: h.pool.QueryRow(ctx, Rebind(query), args...)}
}

type pgxRow struct{ row pgx.Row }

func (r pgxRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return errNoRows
	}
	return err
}

// SQLHandle adapts a database/sql pool, used with the MySQL driver.
type SQLHandle struct {
	db *sql.DB
}

// NewSQLHandle wraps db.
func NewSQLHandle(db *sql.DB) *SQLHandle {
	return &SQLHandle{db: db}
}

// QueryRows implements Handle.
func (h *SQLHandle) QueryRows(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

// QueryRow implements Handle.
func (h *SQLHandle) QueryRow(ctx context.Context, query string, args ...any) Row {
	return sqlRow{row: h.db.QueryRowContext(ctx, query, args...)}
}

type sqlRows struct{ *sql.Rows }

func (r sqlRows) Close() { _ = r.Rows.Close() }

type sqlRow struct{ row *sql.Row }

func (r sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return errNoRows
	}
	return err
}

// Rebind rewrites "?" placeholders to PostgreSQL "$n". Question marks inside
// single quoted literals are kept.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n, quoted := 1, false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
		case c == '?' && !quoted:
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
