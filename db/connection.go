package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arbor-orm/arbor"
	"github.com/arbor-orm/arbor/dialect"
	"github.com/arbor-orm/arbor/query"
)

// handle abstracts the shared methods of *sql.DB and *sql.Tx.
type handle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Connection owns one live database handle. Every call blocks until the
// backend responds; there is no internal cancellation beyond the given
// context. A Connection is not safe for concurrent use while an explicit
// transaction is open; use one Connection per goroutine.
type Connection struct {
	cfg           Config
	db            *sql.DB
	tx            *sql.Tx // non-nil while a transaction is open
	log           *QueryLog
	slowThreshold time.Duration
	slowHook      SlowQueryHook
}

// Connect opens a Connection for the given configuration. The underlying
// database/sql driver must be registered by the caller. Opening is lazy;
// the first statement establishes the backend connection.
func Connect(cfg Config, opts ...Option) (*Connection, error) {
	driverName, dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	sqldb, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", cfg.Driver, err)
	}
	return Wrap(cfg, sqldb, opts...), nil
}

// Wrap returns a Connection over an existing *sql.DB handle.
func Wrap(cfg Config, sqldb *sql.DB, opts ...Option) *Connection {
	c := &Connection{
		cfg:           cfg,
		db:            sqldb,
		slowThreshold: 100 * time.Millisecond,
	}
	if cfg.QueryLog {
		c.log = &QueryLog{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dialect returns the dialect id of the connection.
func (c *Connection) Dialect() string {
	return c.cfg.Driver
}

// DB returns the underlying *sql.DB handle.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Close closes the underlying handle.
func (c *Connection) Close() error {
	return c.db.Close()
}

// Table returns a new query builder for the given table, bound to this
// connection.
func (c *Connection) Table(name string) *query.Builder {
	return query.Table(c, name)
}

// EnableQueryLog starts recording executed statements. The log grows
// without bound; callers own flushing it.
func (c *Connection) EnableQueryLog() {
	if c.log == nil {
		c.log = &QueryLog{}
	}
}

// DisableQueryLog stops recording and discards the log.
func (c *Connection) DisableQueryLog() {
	c.log = nil
}

// QueryLog returns a snapshot of the recorded statements.
func (c *Connection) QueryLog() []LogEntry {
	if c.log == nil {
		return nil
	}
	return c.log.Entries()
}

// FlushQueryLog returns the recorded statements and clears the log.
func (c *Connection) FlushQueryLog() []LogEntry {
	if c.log == nil {
		return nil
	}
	return c.log.Flush()
}

// Select executes a query and returns all result rows.
func (c *Connection) Select(ctx context.Context, query string, bindings []any) ([]arbor.Row, error) {
	start := time.Now()
	rows, err := c.handle().QueryContext(ctx, query, bindings...)
	c.record(ctx, query, bindings, time.Since(start))
	if err != nil {
		return nil, wrapError(err, query, bindings)
	}
	defer rows.Close()
	return scanRows(rows, query, bindings)
}

// SelectOne executes a query and returns the first row, or ErrNotFound
// if the query matched nothing.
func (c *Connection) SelectOne(ctx context.Context, query string, bindings []any) (arbor.Row, error) {
	rows, err := c.Select(ctx, query, bindings)
	if err != nil {
		return arbor.Row{}, err
	}
	if len(rows) == 0 {
		return arbor.Row{}, arbor.ErrNotFound
	}
	return rows[0], nil
}

// Scalar executes a query and returns the first column of the first row,
// or ErrNotFound if the query matched nothing.
func (c *Connection) Scalar(ctx context.Context, query string, bindings []any) (any, error) {
	row, err := c.SelectOne(ctx, query, bindings)
	if err != nil {
		return nil, err
	}
	if row.Len() == 0 {
		return nil, nil
	}
	return row.Get(row.Columns()[0]), nil
}

// Statement executes a write statement and returns the affected row count.
func (c *Connection) Statement(ctx context.Context, query string, bindings []any) (int64, error) {
	res, err := c.exec(ctx, query, bindings)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db: rows affected: %w", err)
	}
	return n, nil
}

// Insert executes an insert statement and returns the backend-assigned
// identifier. On PostgreSQL and SQL Server the statement is expected to
// return the key itself (RETURNING / OUTPUT clause, appended by the query
// grammar); the other dialects report it through the driver.
func (c *Connection) Insert(ctx context.Context, query string, bindings []any) (int64, error) {
	switch c.cfg.Driver {
	case dialect.Postgres, dialect.SQLServer:
		v, err := c.Scalar(ctx, query, bindings)
		if err != nil {
			return 0, err
		}
		id, ok := toInt64(v)
		if !ok {
			return 0, fmt.Errorf("db: insert returned non-integer key %T", v)
		}
		return id, nil
	default:
		res, err := c.exec(ctx, query, bindings)
		if err != nil {
			return 0, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("db: last insert id: %w", err)
		}
		return id, nil
	}
}

// Update executes an update statement and returns the affected row count.
func (c *Connection) Update(ctx context.Context, query string, bindings []any) (int64, error) {
	return c.Statement(ctx, query, bindings)
}

// Delete executes a delete statement and returns the affected row count.
func (c *Connection) Delete(ctx context.Context, query string, bindings []any) (int64, error) {
	return c.Statement(ctx, query, bindings)
}

// Begin starts a transaction on this connection. Nested transactions are
// rejected with ErrTxStarted.
func (c *Connection) Begin(ctx context.Context) error {
	if c.tx != nil {
		return arbor.ErrTxStarted
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	c.tx = tx
	return nil
}

// Commit commits the open transaction.
func (c *Connection) Commit() error {
	if c.tx == nil {
		return arbor.ErrNoTx
	}
	err := c.tx.Commit()
	c.tx = nil
	return err
}

// Rollback rolls back the open transaction.
func (c *Connection) Rollback() error {
	if c.tx == nil {
		return arbor.ErrNoTx
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// InTransaction reports whether a transaction is open.
func (c *Connection) InTransaction() bool {
	return c.tx != nil
}

// Transaction runs fn inside a transaction. The transaction is committed
// when fn returns nil and rolled back otherwise. fn receives a Connection
// scoped to the transaction; statements on the receiver keep running
// outside of it.
func (c *Connection) Transaction(ctx context.Context, fn func(tx *Connection) error) error {
	if c.tx != nil {
		return arbor.ErrTxStarted
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	txc := &Connection{
		cfg:           c.cfg,
		db:            c.db,
		tx:            tx,
		log:           c.log,
		slowThreshold: c.slowThreshold,
		slowHook:      c.slowHook,
	}
	if err := fn(txc); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return tx.Commit()
}

func (c *Connection) handle() handle {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

func (c *Connection) exec(ctx context.Context, query string, bindings []any) (sql.Result, error) {
	start := time.Now()
	res, err := c.handle().ExecContext(ctx, query, bindings...)
	c.record(ctx, query, bindings, time.Since(start))
	if err != nil {
		return nil, wrapError(err, query, bindings)
	}
	return res, nil
}

// record appends to the query log and fires the slow query hook.
// Elapsed time is measured around the driver call only.
func (c *Connection) record(ctx context.Context, query string, bindings []any, elapsed time.Duration) {
	if c.log != nil {
		c.log.append(LogEntry{Query: query, Bindings: bindings, Elapsed: elapsed, Time: time.Now()})
	}
	if c.slowHook != nil && elapsed > c.slowThreshold {
		c.slowHook(ctx, query, bindings, elapsed)
	}
}

func scanRows(rows *sql.Rows, query string, bindings []any) ([]arbor.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, wrapError(err, query, bindings)
	}
	var out []arbor.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapError(err, query, bindings)
		}
		m := make(map[string]any, len(cols))
		for i, col := range cols {
			v := vals[i]
			// Drivers report text columns as []byte; normalize to string.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			m[col] = v
		}
		out = append(out, arbor.NewRow(cols, m))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(err, query, bindings)
	}
	return out, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		var id int64
		if _, err := fmt.Sscan(n, &id); err == nil {
			return id, true
		}
	}
	return 0, false
}
