package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/arbor-orm/arbor/dialect"
)

// compiler collects bindings in render order while assigning positional
// placeholders, keeping the binding list index-aligned with the rendered
// placeholders.
type compiler struct {
	dialect  string
	n        int
	bindings []any
}

func (c *compiler) placeholder(v any) string {
	c.n++
	c.bindings = append(c.bindings, v)
	return dialect.Placeholder(c.dialect, c.n)
}

func (c *compiler) quote(ident string) string {
	return dialect.Quote(c.dialect, ident)
}

// raw rewrites each "?" in a raw expression into the dialect's positional
// placeholder so raw fragments keep the binding list aligned.
func (c *compiler) raw(expr string, values []any) string {
	if len(values) == 0 {
		return expr
	}
	var sb strings.Builder
	vi := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && vi < len(values) {
			sb.WriteString(c.placeholder(values[vi]))
			vi++
			continue
		}
		sb.WriteByte(expr[i])
	}
	return sb.String()
}

// ToSQL renders the SELECT statement and its bindings.
func (b *Builder) ToSQL() (string, []any) {
	c := &compiler{dialect: b.dialect}
	sql := b.compileSelect(c)
	return sql, c.bindings
}

func (b *Builder) compileSelect(c *compiler) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(b.compileColumns(c))
	sb.WriteString(" FROM ")
	sb.WriteString(c.quote(b.table))
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j.kind)
		sb.WriteString(" JOIN ")
		sb.WriteString(c.quote(j.table))
		sb.WriteString(" ON ")
		sb.WriteString(c.quote(j.left))
		sb.WriteString(" ")
		sb.WriteString(j.op)
		sb.WriteString(" ")
		sb.WriteString(c.quote(j.right))
	}
	if len(b.wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(compileWheres(c, b.wheres))
	}
	if len(b.groups) > 0 {
		quoted := make([]string, len(b.groups))
		for i, g := range b.groups {
			quoted[i] = c.quote(g)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(quoted, ", "))
	}
	if len(b.havings) > 0 {
		sb.WriteString(" HAVING ")
		for i, h := range b.havings {
			if i > 0 {
				sb.WriteString(" " + h.boolean + " ")
			}
			sb.WriteString(c.quote(h.column) + " " + h.operator + " " + c.placeholder(h.value))
		}
	}
	sb.WriteString(b.compileOrders(c))
	sb.WriteString(b.compileLimit(c))
	return sb.String()
}

func (b *Builder) compileColumns(c *compiler) string {
	if len(b.columns) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(b.columns))
	for _, col := range b.columns {
		if col.expr != "" {
			parts = append(parts, c.raw(col.expr, col.bindings))
			continue
		}
		parts = append(parts, c.quote(col.name))
	}
	return strings.Join(parts, ", ")
}

func compileWheres(c *compiler, wheres []where) string {
	var sb strings.Builder
	for i, w := range wheres {
		if i > 0 {
			sb.WriteString(" " + w.boolean + " ")
		}
		sb.WriteString(compileWhere(c, w))
	}
	return sb.String()
}

func compileWhere(c *compiler, w where) string {
	switch w.kind {
	case whereBasic:
		return c.quote(w.column) + " " + w.operator + " " + c.placeholder(w.value)
	case whereIn:
		// An empty value set can match nothing (IN) or everything
		// (NOT IN) without a round trip.
		if len(w.values) == 0 {
			if w.not {
				return "1 = 1"
			}
			return "0 = 1"
		}
		op := "IN"
		if w.not {
			op = "NOT IN"
		}
		ph := make([]string, len(w.values))
		for i, v := range w.values {
			ph[i] = c.placeholder(v)
		}
		return c.quote(w.column) + " " + op + " (" + strings.Join(ph, ", ") + ")"
	case whereBetween:
		op := "BETWEEN"
		if w.not {
			op = "NOT BETWEEN"
		}
		return c.quote(w.column) + " " + op + " " + c.placeholder(w.values[0]) + " AND " + c.placeholder(w.values[1])
	case whereNull:
		if w.not {
			return c.quote(w.column) + " IS NOT NULL"
		}
		return c.quote(w.column) + " IS NULL"
	case whereNested:
		return "(" + compileWheres(c, w.nested) + ")"
	case whereColumn:
		return c.quote(w.column) + " " + w.operator + " " + c.quote(w.raw)
	case whereRaw:
		return c.raw(w.raw, w.values)
	}
	return ""
}

func (b *Builder) compileOrders(c *compiler) string {
	if len(b.orders) == 0 {
		return ""
	}
	parts := make([]string, len(b.orders))
	for i, o := range b.orders {
		dir := "ASC"
		if o.desc {
			dir = "DESC"
		}
		parts[i] = c.quote(o.column) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (b *Builder) compileLimit(c *compiler) string {
	if b.limit < 0 && b.offset < 0 {
		return ""
	}
	if c.dialect == dialect.SQLServer {
		// OFFSET/FETCH requires an ORDER BY clause.
		var sb strings.Builder
		if len(b.orders) == 0 {
			sb.WriteString(" ORDER BY (SELECT NULL)")
		}
		offset := b.offset
		if offset < 0 {
			offset = 0
		}
		sb.WriteString(" OFFSET " + strconv.Itoa(offset) + " ROWS")
		if b.limit >= 0 {
			sb.WriteString(" FETCH NEXT " + strconv.Itoa(b.limit) + " ROWS ONLY")
		}
		return sb.String()
	}
	var sb strings.Builder
	switch {
	case b.limit >= 0:
		sb.WriteString(" LIMIT " + strconv.Itoa(b.limit))
	case b.offset >= 0 && c.dialect == dialect.MySQL:
		// MySQL has no offset-only form.
		sb.WriteString(" LIMIT 18446744073709551615")
	case b.offset >= 0 && c.dialect == dialect.SQLite:
		sb.WriteString(" LIMIT -1")
	}
	if b.offset >= 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(b.offset))
	}
	return sb.String()
}

// compileInsert renders a multi-row INSERT. Column order is the sorted
// key set of the first row, so rendering is deterministic.
func (b *Builder) compileInsert(rows []map[string]any) (string, []any) {
	c := &compiler{dialect: b.dialect}
	cols := sortedKeys(rows[0])
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(c.quote(b.table))
	sb.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.quote(col))
	}
	sb.WriteString(") VALUES ")
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, col := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c.placeholder(row[col]))
		}
		sb.WriteString(")")
	}
	return sb.String(), c.bindings
}

// compileInsertGetID renders a single-row INSERT that yields the
// backend-assigned key: RETURNING on PostgreSQL, OUTPUT on SQL Server,
// and the driver-reported last-insert-id elsewhere.
func (b *Builder) compileInsertGetID(values map[string]any, key string) (string, []any) {
	c := &compiler{dialect: b.dialect}
	cols := sortedKeys(values)
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(c.quote(b.table))
	sb.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.quote(col))
	}
	sb.WriteString(")")
	if b.dialect == dialect.SQLServer {
		sb.WriteString(" OUTPUT INSERTED." + c.quote(key))
	}
	sb.WriteString(" VALUES (")
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.placeholder(values[col]))
	}
	sb.WriteString(")")
	if b.dialect == dialect.Postgres {
		sb.WriteString(" RETURNING " + c.quote(key))
	}
	return sb.String(), c.bindings
}

// compileUpdate renders an UPDATE restricted by the builder's wheres.
// SET bindings precede WHERE bindings in render order.
func (b *Builder) compileUpdate(values map[string]any) (string, []any) {
	c := &compiler{dialect: b.dialect}
	cols := sortedKeys(values)
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(c.quote(b.table))
	sb.WriteString(" SET ")
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.quote(col) + " = " + c.placeholder(values[col]))
	}
	if len(b.wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(compileWheres(c, b.wheres))
	}
	return sb.String(), c.bindings
}

// compileDelete renders a DELETE restricted by the builder's wheres.
func (b *Builder) compileDelete() (string, []any) {
	c := &compiler{dialect: b.dialect}
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(c.quote(b.table))
	if len(b.wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(compileWheres(c, b.wheres))
	}
	return sb.String(), c.bindings
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
