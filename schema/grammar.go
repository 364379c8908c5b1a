package schema

import (
	"fmt"
	"strings"

	"github.com/arbor-orm/arbor/dialect"
)

// grammar renders blueprints into dialect-native DDL. Column and command
// clauses keep their declaration order.
type grammar struct {
	dialect string
}

func (g *grammar) quote(ident string) string {
	return dialect.Quote(g.dialect, ident)
}

// compileCreate renders the whole create blueprint as one CREATE TABLE:
// column clauses in declared order, then inline table constraints, then
// the engine trailer where the dialect has one.
func (g *grammar) compileCreate(b *Blueprint) string {
	var defs []string
	for _, col := range b.columns {
		defs = append(defs, g.column(col))
	}
	for _, cmd := range b.commands {
		if clause := g.tableConstraint(b, cmd); clause != "" {
			defs = append(defs, clause)
		}
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)", g.quote(b.table), strings.Join(defs, ", "))
	if g.dialect == dialect.MySQL {
		sql += " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	}
	return sql
}

// compileAlter renders one ALTER TABLE statement per added column and
// per command.
func (g *grammar) compileAlter(b *Blueprint) []string {
	var stmts []string
	table := g.quote(b.table)
	for _, col := range b.columns {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, g.column(col)))
	}
	for _, cmd := range b.commands {
		switch cmd.kind {
		case cmdIndex:
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s (%s)", g.quote(cmd.index), table, g.columnList(cmd.columns)))
		case cmdUnique:
			stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", g.quote(cmd.index), table, g.columnList(cmd.columns)))
		case cmdPrimary:
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", table, g.columnList(cmd.columns)))
		case cmdForeign:
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD %s", table, g.foreignKey(b, cmd.foreign)))
		case cmdDropColumn:
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, g.quote(cmd.columns[0])))
		case cmdDropIndex:
			if g.dialect == dialect.MySQL {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", table, g.quote(cmd.index)))
			} else {
				stmts = append(stmts, fmt.Sprintf("DROP INDEX %s", g.quote(cmd.index)))
			}
		case cmdRenameColumn:
			if g.dialect == dialect.SQLServer {
				stmts = append(stmts, fmt.Sprintf("EXEC sp_rename '%s.%s', '%s', 'COLUMN'", b.table, cmd.columns[0], cmd.to))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, g.quote(cmd.columns[0]), g.quote(cmd.to)))
			}
		}
	}
	return stmts
}

// tableConstraint renders a command as an inline CREATE TABLE clause, or
// "" when the command becomes a separate statement (indexes).
func (g *grammar) tableConstraint(b *Blueprint, cmd command) string {
	switch cmd.kind {
	case cmdPrimary:
		return fmt.Sprintf("PRIMARY KEY (%s)", g.columnList(cmd.columns))
	case cmdUnique:
		return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", g.quote(cmd.index), g.columnList(cmd.columns))
	case cmdForeign:
		return g.foreignKey(b, cmd.foreign)
	}
	return ""
}

// createIndexes renders the post-create index statements for a create
// blueprint (plain indexes cannot be inlined portably).
func (g *grammar) createIndexes(b *Blueprint) []string {
	var stmts []string
	for _, cmd := range b.commands {
		if cmd.kind == cmdIndex {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s (%s)", g.quote(cmd.index), g.quote(b.table), g.columnList(cmd.columns)))
		}
	}
	return stmts
}

func (g *grammar) foreignKey(b *Blueprint, fk *ForeignKeyDefinition) string {
	name := fmt.Sprintf("%s_%s_fk", b.table, fk.column)
	clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		g.quote(name), g.quote(fk.column), g.quote(fk.on), g.quote(fk.references))
	if fk.onDelete != "" {
		clause += " ON DELETE " + strings.ToUpper(fk.onDelete)
	}
	if fk.onUpdate != "" {
		clause += " ON UPDATE " + strings.ToUpper(fk.onUpdate)
	}
	return clause
}

// column renders one column definition clause.
func (g *grammar) column(c *ColumnDefinition) string {
	parts := []string{g.quote(c.name), g.columnSQLType(c)}
	if serialType(g.dialect, c) {
		// The serial type already implies NOT NULL and the key.
		return strings.Join(parts, " ")
	}
	if c.nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if c.hasDefault {
		parts = append(parts, "DEFAULT "+g.defaultValue(c.defaultValue))
	}
	if c.autoIncrement {
		switch g.dialect {
		case dialect.MySQL:
			parts = append(parts, "AUTO_INCREMENT")
		case dialect.SQLServer:
			parts = append(parts, "IDENTITY(1,1)")
		}
	}
	if c.primary {
		parts = append(parts, "PRIMARY KEY")
	}
	if c.unique {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}

// serialType reports whether the dialect expresses the auto-increment
// key as a self-contained type clause.
func serialType(d string, c *ColumnDefinition) bool {
	if !c.autoIncrement {
		return false
	}
	return d == dialect.Postgres || d == dialect.SQLite
}

func (g *grammar) columnSQLType(c *ColumnDefinition) string {
	switch g.dialect {
	case dialect.MySQL:
		return g.mysqlType(c)
	case dialect.Postgres:
		return g.postgresType(c)
	case dialect.SQLite:
		return g.sqliteType(c)
	case dialect.SQLServer:
		return g.sqlserverType(c)
	}
	return "TEXT"
}

func (g *grammar) mysqlType(c *ColumnDefinition) string {
	var t string
	switch c.typ {
	case typeBigIncrements, typeBigInteger:
		t = "BIGINT"
	case typeInteger:
		t = "INT"
	case typeSmallInteger:
		t = "SMALLINT"
	case typeString:
		t = fmt.Sprintf("VARCHAR(%d)", c.length)
	case typeText:
		t = "TEXT"
	case typeBoolean:
		t = "TINYINT(1)"
	case typeDecimal:
		t = fmt.Sprintf("DECIMAL(%d,%d)", c.precision, c.scale)
	case typeFloat:
		t = "DOUBLE"
	case typeDate:
		t = "DATE"
	case typeDateTime:
		t = "DATETIME"
	case typeTimestamp:
		t = "TIMESTAMP"
	case typeJSON:
		t = "JSON"
	case typeBinary:
		t = "BLOB"
	case typeUUID:
		t = "CHAR(36)"
	}
	if c.unsigned {
		switch c.typ {
		case typeBigIncrements, typeBigInteger, typeInteger, typeSmallInteger:
			t += " UNSIGNED"
		}
	}
	return t
}

func (g *grammar) postgresType(c *ColumnDefinition) string {
	switch c.typ {
	case typeBigIncrements:
		return "BIGSERIAL PRIMARY KEY"
	case typeBigInteger:
		if c.autoIncrement {
			return "BIGSERIAL PRIMARY KEY"
		}
		return "BIGINT"
	case typeInteger:
		if c.autoIncrement {
			return "SERIAL PRIMARY KEY"
		}
		return "INTEGER"
	case typeSmallInteger:
		return "SMALLINT"
	case typeString:
		return fmt.Sprintf("VARCHAR(%d)", c.length)
	case typeText:
		return "TEXT"
	case typeBoolean:
		return "BOOLEAN"
	case typeDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", c.precision, c.scale)
	case typeFloat:
		return "DOUBLE PRECISION"
	case typeDate:
		return "DATE"
	case typeDateTime, typeTimestamp:
		return "TIMESTAMP"
	case typeJSON:
		return "JSONB"
	case typeBinary:
		return "BYTEA"
	case typeUUID:
		return "UUID"
	}
	return "TEXT"
}

func (g *grammar) sqliteType(c *ColumnDefinition) string {
	if c.autoIncrement {
		// SQLite serials must be exactly INTEGER PRIMARY KEY.
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	switch c.typ {
	case typeBigIncrements, typeBigInteger, typeInteger, typeSmallInteger, typeBoolean:
		return "INTEGER"
	case typeString, typeText, typeJSON, typeUUID, typeDate, typeDateTime, typeTimestamp:
		return "TEXT"
	case typeDecimal, typeFloat:
		return "REAL"
	case typeBinary:
		return "BLOB"
	}
	return "TEXT"
}

func (g *grammar) sqlserverType(c *ColumnDefinition) string {
	switch c.typ {
	case typeBigIncrements, typeBigInteger:
		return "BIGINT"
	case typeInteger:
		return "INT"
	case typeSmallInteger:
		return "SMALLINT"
	case typeString:
		return fmt.Sprintf("NVARCHAR(%d)", c.length)
	case typeText:
		return "NVARCHAR(MAX)"
	case typeBoolean:
		return "BIT"
	case typeDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", c.precision, c.scale)
	case typeFloat:
		return "FLOAT"
	case typeDate:
		return "DATE"
	case typeDateTime, typeTimestamp:
		return "DATETIME2"
	case typeJSON:
		return "NVARCHAR(MAX)"
	case typeBinary:
		return "VARBINARY(MAX)"
	case typeUUID:
		return "UNIQUEIDENTIFIER"
	}
	return "NVARCHAR(MAX)"
}

func (g *grammar) defaultValue(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		switch g.dialect {
		case dialect.Postgres:
			if x {
				return "TRUE"
			}
			return "FALSE"
		default:
			if x {
				return "1"
			}
			return "0"
		}
	case nil:
		return "NULL"
	default:
		return fmt.Sprint(v)
	}
}

func (g *grammar) columnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = g.quote(c)
	}
	return strings.Join(quoted, ", ")
}
