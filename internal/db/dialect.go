package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRunner is implemented by DBService.
type TxRunner interface {
	Conn() DBTX
	WithTx(ctx context.Context, fn func(tx DBTX) error) error
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites postgres style $N placeholders into sqlite's ?N form.
func Rebind(driver, query string) string {
	if driver != DriverSQLite {
		return query
	}
	return placeholder.ReplaceAllString(query, "?$1")
}

type dialectConn struct {
	conn   DBTX
	driver string
}

func wrap(conn DBTX, driver string) DBTX {
	if driver != DriverSQLite {
		return conn
	}
	return &dialectConn{conn: conn, driver: driver}
}

func (c *dialectConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, Rebind(c.driver, query), args...)
}

func (c *dialectConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, Rebind(c.driver, query), args...)
}

func (c *dialectConn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, Rebind(c.driver, query), args...)
}

// IsUniqueViolation reports whether err was raised by a unique constraint.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
