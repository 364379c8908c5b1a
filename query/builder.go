package query

import (
	"context"

	"github.com/arbor-orm/arbor"
)

// Connection is the executor a Builder renders into. It is implemented
// by db.Connection.
type Connection interface {
	Dialect() string
	Select(ctx context.Context, query string, bindings []any) ([]arbor.Row, error)
	SelectOne(ctx context.Context, query string, bindings []any) (arbor.Row, error)
	Scalar(ctx context.Context, query string, bindings []any) (any, error)
	Statement(ctx context.Context, query string, bindings []any) (int64, error)
	Insert(ctx context.Context, query string, bindings []any) (int64, error)
}

type whereKind int

const (
	whereBasic whereKind = iota
	whereIn
	whereBetween
	whereNull
	whereNested
	whereColumn
	whereRaw
)

// where is one ordered WHERE fragment. Fragments carry their own values;
// bindings are collected in render order so the Nth placeholder always
// maps to the Nth binding.
type where struct {
	kind     whereKind
	boolean  string // "AND" or "OR"
	not      bool
	column   string
	operator string
	value    any
	values   []any
	nested   []where
	raw      string
}

type join struct {
	kind  string // "INNER" or "LEFT"
	table string
	left  string
	op    string
	right string
}

type order struct {
	column string
	desc   bool
}

type having struct {
	boolean  string
	column   string
	operator string
	value    any
}

type column struct {
	expr     string // raw expression; empty for a plain identifier
	name     string
	bindings []any
}

// Builder accumulates an ordered list of clause fragments and renders
// dialect-correct SQL. A Builder is single-use per goroutine; Clone it
// to branch.
type Builder struct {
	conn     Connection
	dialect  string
	table    string
	columns  []column
	distinct bool
	joins    []join
	wheres   []where
	groups   []string
	havings  []having
	orders   []order
	limit    int
	offset   int
}

// Table returns a Builder for the given table bound to conn.
func Table(conn Connection, table string) *Builder {
	return &Builder{
		conn:    conn,
		dialect: conn.Dialect(),
		table:   table,
		limit:   -1,
		offset:  -1,
	}
}

// New returns an unbound Builder for the given dialect, useful for
// rendering SQL without executing it.
func New(dialect, table string) *Builder {
	return &Builder{dialect: dialect, table: table, limit: -1, offset: -1}
}

// Clone returns a deep copy of the builder.
func (b *Builder) Clone() *Builder {
	cp := *b
	cp.columns = append([]column(nil), b.columns...)
	cp.joins = append([]join(nil), b.joins...)
	cp.wheres = append([]where(nil), b.wheres...)
	cp.groups = append([]string(nil), b.groups...)
	cp.havings = append([]having(nil), b.havings...)
	cp.orders = append([]order(nil), b.orders...)
	return &cp
}

// TableName returns the table the builder selects from.
func (b *Builder) TableName() string {
	return b.table
}

// Dialect returns the dialect the builder renders for.
func (b *Builder) Dialect() string {
	return b.dialect
}

// Conn returns the bound connection, or nil for an unbound builder.
func (b *Builder) Conn() Connection {
	return b.conn
}

// Select restricts the selected columns. The default is "*".
func (b *Builder) Select(columns ...string) *Builder {
	for _, c := range columns {
		b.columns = append(b.columns, column{name: c})
	}
	return b
}

// SelectRaw appends a raw select expression with optional bindings.
func (b *Builder) SelectRaw(expr string, bindings ...any) *Builder {
	b.columns = append(b.columns, column{expr: expr, bindings: bindings})
	return b
}

// Distinct marks the query as SELECT DISTINCT.
func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// Where appends an AND condition. The two-argument form defaults the
// operator to "=": Where("name", v) or Where("price", ">", v).
func (b *Builder) Where(col string, args ...any) *Builder {
	return b.addWhere("AND", col, args...)
}

// OrWhere appends an OR condition with the same forms as Where.
func (b *Builder) OrWhere(col string, args ...any) *Builder {
	return b.addWhere("OR", col, args...)
}

func (b *Builder) addWhere(boolean, col string, args ...any) *Builder {
	w := where{kind: whereBasic, boolean: boolean, column: col, operator: "="}
	switch len(args) {
	case 1:
		w.value = args[0]
	default:
		if op, ok := args[0].(string); ok {
			w.operator = op
		}
		w.value = args[1]
	}
	b.wheres = append(b.wheres, w)
	return b
}

// WhereIn appends an AND ... IN (values) condition.
func (b *Builder) WhereIn(col string, values []any) *Builder {
	b.wheres = append(b.wheres, where{kind: whereIn, boolean: "AND", column: col, values: values})
	return b
}

// WhereNotIn appends an AND ... NOT IN (values) condition.
func (b *Builder) WhereNotIn(col string, values []any) *Builder {
	b.wheres = append(b.wheres, where{kind: whereIn, boolean: "AND", not: true, column: col, values: values})
	return b
}

// OrWhereIn appends an OR ... IN (values) condition.
func (b *Builder) OrWhereIn(col string, values []any) *Builder {
	b.wheres = append(b.wheres, where{kind: whereIn, boolean: "OR", column: col, values: values})
	return b
}

// WhereBetween appends an AND ... BETWEEN lo AND hi condition.
func (b *Builder) WhereBetween(col string, lo, hi any) *Builder {
	b.wheres = append(b.wheres, where{kind: whereBetween, boolean: "AND", column: col, values: []any{lo, hi}})
	return b
}

// WhereNotBetween appends an AND ... NOT BETWEEN lo AND hi condition.
func (b *Builder) WhereNotBetween(col string, lo, hi any) *Builder {
	b.wheres = append(b.wheres, where{kind: whereBetween, boolean: "AND", not: true, column: col, values: []any{lo, hi}})
	return b
}

// WhereNull appends an AND ... IS NULL condition.
func (b *Builder) WhereNull(col string) *Builder {
	b.wheres = append(b.wheres, where{kind: whereNull, boolean: "AND", column: col})
	return b
}

// WhereNotNull appends an AND ... IS NOT NULL condition.
func (b *Builder) WhereNotNull(col string) *Builder {
	b.wheres = append(b.wheres, where{kind: whereNull, boolean: "AND", not: true, column: col})
	return b
}

// OrWhereNull appends an OR ... IS NULL condition.
func (b *Builder) OrWhereNull(col string) *Builder {
	b.wheres = append(b.wheres, where{kind: whereNull, boolean: "OR", column: col})
	return b
}

// OrWhereNotNull appends an OR ... IS NOT NULL condition.
func (b *Builder) OrWhereNotNull(col string) *Builder {
	b.wheres = append(b.wheres, where{kind: whereNull, boolean: "OR", not: true, column: col})
	return b
}

// WhereColumn appends an AND condition comparing two columns.
func (b *Builder) WhereColumn(first, op, second string) *Builder {
	b.wheres = append(b.wheres, where{kind: whereColumn, boolean: "AND", column: first, operator: op, raw: second})
	return b
}

// WhereNested appends a parenthesized sub-group built by fn, joined with
// AND.
func (b *Builder) WhereNested(fn func(*Builder)) *Builder {
	return b.addNested("AND", fn)
}

// OrWhereNested appends a parenthesized sub-group built by fn, joined
// with OR.
func (b *Builder) OrWhereNested(fn func(*Builder)) *Builder {
	return b.addNested("OR", fn)
}

func (b *Builder) addNested(boolean string, fn func(*Builder)) *Builder {
	sub := New(b.dialect, b.table)
	fn(sub)
	if len(sub.wheres) > 0 {
		b.wheres = append(b.wheres, where{kind: whereNested, boolean: boolean, nested: sub.wheres})
	}
	return b
}

// WhereRaw appends a raw AND condition with optional bindings.
func (b *Builder) WhereRaw(expr string, bindings ...any) *Builder {
	b.wheres = append(b.wheres, where{kind: whereRaw, boolean: "AND", raw: expr, values: bindings})
	return b
}

// Join appends an INNER JOIN on first op second.
func (b *Builder) Join(table, first, op, second string) *Builder {
	b.joins = append(b.joins, join{kind: "INNER", table: table, left: first, op: op, right: second})
	return b
}

// LeftJoin appends a LEFT JOIN on first op second.
func (b *Builder) LeftJoin(table, first, op, second string) *Builder {
	b.joins = append(b.joins, join{kind: "LEFT", table: table, left: first, op: op, right: second})
	return b
}

// GroupBy appends grouping columns.
func (b *Builder) GroupBy(columns ...string) *Builder {
	b.groups = append(b.groups, columns...)
	return b
}

// Having appends an AND HAVING condition.
func (b *Builder) Having(col, op string, value any) *Builder {
	b.havings = append(b.havings, having{boolean: "AND", column: col, operator: op, value: value})
	return b
}

// OrderBy appends an ascending ordering.
func (b *Builder) OrderBy(col string) *Builder {
	b.orders = append(b.orders, order{column: col})
	return b
}

// OrderByDesc appends a descending ordering.
func (b *Builder) OrderByDesc(col string) *Builder {
	b.orders = append(b.orders, order{column: col, desc: true})
	return b
}

// Latest orders by the given column (default "created_at") descending.
func (b *Builder) Latest(col ...string) *Builder {
	c := "created_at"
	if len(col) > 0 {
		c = col[0]
	}
	return b.OrderByDesc(c)
}

// Oldest orders by the given column (default "created_at") ascending.
func (b *Builder) Oldest(col ...string) *Builder {
	c := "created_at"
	if len(col) > 0 {
		c = col[0]
	}
	return b.OrderBy(c)
}

// Limit caps the number of returned rows. Negative values clear the cap.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}
