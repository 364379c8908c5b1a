package db

import (
	"context"

	"github.com/arbor-orm/arbor"
	"github.com/arbor-orm/arbor/dialect"
)

// ColumnInfo describes one column reported by catalog introspection.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
	Default  any
	Primary  bool
}

// Tables returns the table names of the connected database. The catalog
// query is dispatched per dialect at call time.
func (c *Connection) Tables(ctx context.Context) ([]string, error) {
	var q string
	switch c.cfg.Driver {
	case dialect.MySQL:
		q = "SELECT table_name FROM information_schema.tables WHERE table_schema = database() AND table_type = 'BASE TABLE' ORDER BY table_name"
	case dialect.Postgres:
		q = "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name"
	case dialect.SQLite:
		q = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	case dialect.SQLServer:
		q = "SELECT name FROM sys.tables ORDER BY name"
	default:
		return nil, arbor.NewConfigurationError("", c.cfg.Driver, "unknown driver")
	}
	rows, err := c.Select(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if s, ok := row.Get(row.Columns()[0]).(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// TableInfo returns the columns of the given table in definition order.
func (c *Connection) TableInfo(ctx context.Context, table string) ([]ColumnInfo, error) {
	switch c.cfg.Driver {
	case dialect.MySQL:
		return c.mysqlTableInfo(ctx, table)
	case dialect.Postgres:
		return c.postgresTableInfo(ctx, table)
	case dialect.SQLite:
		return c.sqliteTableInfo(ctx, table)
	case dialect.SQLServer:
		return c.sqlserverTableInfo(ctx, table)
	default:
		return nil, arbor.NewConfigurationError("", c.cfg.Driver, "unknown driver")
	}
}

func (c *Connection) mysqlTableInfo(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := c.Select(ctx,
		"SELECT column_name, data_type, is_nullable, column_default, column_key "+
			"FROM information_schema.columns WHERE table_schema = database() AND table_name = ? "+
			"ORDER BY ordinal_position",
		[]any{table})
	if err != nil {
		return nil, err
	}
	cols := make([]ColumnInfo, 0, len(rows))
	for _, row := range rows {
		cols = append(cols, ColumnInfo{
			Name:     str(row.Get("column_name")),
			Type:     str(row.Get("data_type")),
			Nullable: str(row.Get("is_nullable")) == "YES",
			Default:  row.Get("column_default"),
			Primary:  str(row.Get("column_key")) == "PRI",
		})
	}
	return cols, nil
}

func (c *Connection) postgresTableInfo(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := c.Select(ctx,
		"SELECT column_name, data_type, is_nullable, column_default "+
			"FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 "+
			"ORDER BY ordinal_position",
		[]any{table})
	if err != nil {
		return nil, err
	}
	pks, err := c.Select(ctx,
		"SELECT kcu.column_name FROM information_schema.table_constraints tc "+
			"JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name "+
			"WHERE tc.table_name = $1 AND tc.constraint_type = 'PRIMARY KEY'",
		[]any{table})
	if err != nil {
		return nil, err
	}
	primary := make(map[string]bool, len(pks))
	for _, row := range pks {
		primary[str(row.Get("column_name"))] = true
	}
	cols := make([]ColumnInfo, 0, len(rows))
	for _, row := range rows {
		name := str(row.Get("column_name"))
		cols = append(cols, ColumnInfo{
			Name:     name,
			Type:     str(row.Get("data_type")),
			Nullable: str(row.Get("is_nullable")) == "YES",
			Default:  row.Get("column_default"),
			Primary:  primary[name],
		})
	}
	return cols, nil
}

func (c *Connection) sqliteTableInfo(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := c.Select(ctx,
		`SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`,
		[]any{table})
	if err != nil {
		return nil, err
	}
	cols := make([]ColumnInfo, 0, len(rows))
	for _, row := range rows {
		notNull, _ := toInt64(row.Get("notnull"))
		pk, _ := toInt64(row.Get("pk"))
		cols = append(cols, ColumnInfo{
			Name:     str(row.Get("name")),
			Type:     str(row.Get("type")),
			Nullable: notNull == 0,
			Default:  row.Get("dflt_value"),
			Primary:  pk > 0,
		})
	}
	return cols, nil
}

func (c *Connection) sqlserverTableInfo(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := c.Select(ctx,
		"SELECT column_name, data_type, is_nullable, column_default "+
			"FROM information_schema.columns WHERE table_name = @p1 ORDER BY ordinal_position",
		[]any{table})
	if err != nil {
		return nil, err
	}
	pks, err := c.Select(ctx,
		"SELECT kcu.column_name FROM information_schema.table_constraints tc "+
			"JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name "+
			"WHERE tc.table_name = @p1 AND tc.constraint_type = 'PRIMARY KEY'",
		[]any{table})
	if err != nil {
		return nil, err
	}
	primary := make(map[string]bool, len(pks))
	for _, row := range pks {
		primary[str(row.Get("column_name"))] = true
	}
	cols := make([]ColumnInfo, 0, len(rows))
	for _, row := range rows {
		name := str(row.Get("column_name"))
		cols = append(cols, ColumnInfo{
			Name:     name,
			Type:     str(row.Get("data_type")),
			Nullable: str(row.Get("is_nullable")) == "YES",
			Default:  row.Get("column_default"),
			Primary:  primary[name],
		})
	}
	return cols, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
