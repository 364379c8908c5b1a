package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/arbor-orm/arbor/db"
	"github.com/arbor-orm/arbor/dialect"
)

// Builder executes blueprints and catalog introspection against one
// connection. Alter blueprints run one statement at a time and are not
// wrapped in a transaction; callers wanting atomicity run the builder
// inside Connection.Transaction on backends with transactional DDL.
type Builder struct {
	conn *db.Connection
}

// New returns a schema builder bound to the connection.
func New(conn *db.Connection) *Builder {
	return &Builder{conn: conn}
}

// Create builds a new table from the blueprint fn populates.
func (b *Builder) Create(ctx context.Context, table string, fn func(*Blueprint)) error {
	bp := &Blueprint{table: table, create: true}
	fn(bp)
	g := &grammar{dialect: b.conn.Dialect()}
	if _, err := b.conn.Statement(ctx, g.compileCreate(bp), nil); err != nil {
		return err
	}
	for _, stmt := range g.createIndexes(bp) {
		if _, err := b.conn.Statement(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// Table alters an existing table with the changes fn records, issuing
// one statement per change.
func (b *Builder) Table(ctx context.Context, table string, fn func(*Blueprint)) error {
	bp := &Blueprint{table: table}
	fn(bp)
	g := &grammar{dialect: b.conn.Dialect()}
	for _, stmt := range g.compileAlter(bp) {
		if _, err := b.conn.Statement(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// Drop removes the table.
func (b *Builder) Drop(ctx context.Context, table string) error {
	_, err := b.conn.Statement(ctx, "DROP TABLE "+dialect.Quote(b.conn.Dialect(), table), nil)
	return err
}

// DropIfExists removes the table when present. SQL Server predates
// DROP TABLE IF EXISTS on old versions, so existence is probed first.
func (b *Builder) DropIfExists(ctx context.Context, table string) error {
	if b.conn.Dialect() == dialect.SQLServer {
		ok, err := b.HasTable(ctx, table)
		if err != nil || !ok {
			return err
		}
		return b.Drop(ctx, table)
	}
	_, err := b.conn.Statement(ctx, "DROP TABLE IF EXISTS "+dialect.Quote(b.conn.Dialect(), table), nil)
	return err
}

// Rename renames a table.
func (b *Builder) Rename(ctx context.Context, from, to string) error {
	d := b.conn.Dialect()
	var stmt string
	switch d {
	case dialect.MySQL:
		stmt = fmt.Sprintf("RENAME TABLE %s TO %s", dialect.Quote(d, from), dialect.Quote(d, to))
	case dialect.SQLServer:
		stmt = fmt.Sprintf("EXEC sp_rename '%s', '%s'", from, to)
	default:
		stmt = fmt.Sprintf("ALTER TABLE %s RENAME TO %s", dialect.Quote(d, from), dialect.Quote(d, to))
	}
	_, err := b.conn.Statement(ctx, stmt, nil)
	return err
}

// HasTable reports whether the table exists in the connected database.
func (b *Builder) HasTable(ctx context.Context, table string) (bool, error) {
	tables, err := b.conn.Tables(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if strings.EqualFold(t, table) {
			return true, nil
		}
	}
	return false, nil
}

// HasColumn reports whether the column exists on the table.
func (b *Builder) HasColumn(ctx context.Context, table, column string) (bool, error) {
	cols, err := b.conn.TableInfo(ctx, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if strings.EqualFold(c.Name, column) {
			return true, nil
		}
	}
	return false, nil
}

// ColumnListing returns the table's column names in catalog order.
func (b *Builder) ColumnListing(ctx context.Context, table string) ([]string, error) {
	cols, err := b.conn.TableInfo(ctx, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names, nil
}
