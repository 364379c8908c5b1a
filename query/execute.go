package query

import (
	"context"
	"fmt"

	"github.com/arbor-orm/arbor"
)

// Get executes the query and returns all matching rows.
func (b *Builder) Get(ctx context.Context) ([]arbor.Row, error) {
	sql, bindings := b.ToSQL()
	return b.conn.Select(ctx, sql, bindings)
}

// First executes the query with a LIMIT 1 and returns the first row, or
// ErrNotFound — never an empty row.
func (b *Builder) First(ctx context.Context) (arbor.Row, error) {
	rows, err := b.Clone().Limit(1).Get(ctx)
	if err != nil {
		return arbor.Row{}, err
	}
	if len(rows) == 0 {
		return arbor.Row{}, arbor.ErrNotFound
	}
	return rows[0], nil
}

// Find returns the row whose "id" column equals id, or ErrNotFound.
func (b *Builder) Find(ctx context.Context, id any) (arbor.Row, error) {
	return b.Clone().Where("id", id).First(ctx)
}

// Value returns the named column of the first row.
func (b *Builder) Value(ctx context.Context, col string) (any, error) {
	row, err := b.Clone().Select(col).First(ctx)
	if err != nil {
		return nil, err
	}
	return row.Get(col), nil
}

// Pluck returns the named column of every matching row.
func (b *Builder) Pluck(ctx context.Context, col string) ([]any, error) {
	rows, err := b.Clone().Select(col).Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row.Get(col)
	}
	return out, nil
}

// Count rewrites the query into a COUNT aggregate and executes it.
func (b *Builder) Count(ctx context.Context) (int64, error) {
	v, err := b.aggregate(ctx, "count(*)")
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("query: count returned %T", v)
	}
	return n, nil
}

// Sum returns the sum of the given column over matching rows.
func (b *Builder) Sum(ctx context.Context, col string) (float64, error) {
	return b.numericAggregate(ctx, "sum", col)
}

// Avg returns the average of the given column over matching rows.
func (b *Builder) Avg(ctx context.Context, col string) (float64, error) {
	return b.numericAggregate(ctx, "avg", col)
}

// Min returns the minimum of the given column over matching rows.
func (b *Builder) Min(ctx context.Context, col string) (any, error) {
	return b.aggregate(ctx, "min("+quoted(b.dialect, col)+")")
}

// Max returns the maximum of the given column over matching rows.
func (b *Builder) Max(ctx context.Context, col string) (any, error) {
	return b.aggregate(ctx, "max("+quoted(b.dialect, col)+")")
}

func (b *Builder) numericAggregate(ctx context.Context, fn, col string) (float64, error) {
	v, err := b.aggregate(ctx, fn+"("+quoted(b.dialect, col)+")")
	if err != nil {
		return 0, err
	}
	f, ok := toFloat64(v)
	if !ok && v != nil {
		return 0, fmt.Errorf("query: %s returned %T", fn, v)
	}
	return f, nil
}

// aggregate rewrites the fragment list into an aggregate SELECT,
// dropping ordering and bounds. Grouped or distinct queries are wrapped
// in a subquery so the aggregate spans the full result set.
func (b *Builder) aggregate(ctx context.Context, expr string) (any, error) {
	agg := b.Clone()
	agg.orders = nil
	agg.limit = -1
	agg.offset = -1
	if len(agg.groups) > 0 || agg.distinct {
		inner, bindings := agg.ToSQL()
		sql := "SELECT " + expr + " AS aggregate FROM (" + inner + ") AS aggregate_table"
		v, err := b.conn.Scalar(ctx, sql, bindings)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	agg.columns = []column{{expr: expr + " AS aggregate"}}
	sql, bindings := agg.ToSQL()
	return b.conn.Scalar(ctx, sql, bindings)
}

// Exists runs a LIMIT-1 probe and reports whether any row matched.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	probe := b.Clone().Limit(1)
	probe.columns = []column{{expr: "1"}}
	probe.orders = nil
	rows, err := probe.Get(ctx)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Pagination is one page of results plus paging metadata.
type Pagination struct {
	Data        []arbor.Row `json:"data"`
	Total       int64       `json:"total"`
	PerPage     int         `json:"per_page"`
	CurrentPage int         `json:"current_page"`
	LastPage    int         `json:"last_page"`
	From        int         `json:"from"`
	To          int         `json:"to"`
}

// Paginate runs a COUNT and a bounded SELECT for the given 1-based page.
// From and To are 1-based row positions, zero when the page is empty.
func (b *Builder) Paginate(ctx context.Context, page, perPage int) (*Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}
	total, err := b.Count(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := b.Clone().Offset((page - 1) * perPage).Limit(perPage).Get(ctx)
	if err != nil {
		return nil, err
	}
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	p := &Pagination{
		Data:        rows,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}
	if len(rows) > 0 {
		p.From = (page-1)*perPage + 1
		p.To = p.From + len(rows) - 1
	}
	return p, nil
}

// Chunk pages through the result set in fixed-size offset windows,
// invoking fn per window and stopping when a window comes back short.
// The scan is order-sensitive: concurrent writes that shift offsets
// between windows can skip or repeat rows.
func (b *Builder) Chunk(ctx context.Context, size int, fn func(rows []arbor.Row) error) error {
	if size < 1 {
		return fmt.Errorf("query: chunk size must be positive, got %d", size)
	}
	for page := 0; ; page++ {
		rows, err := b.Clone().Offset(page * size).Limit(size).Get(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := fn(rows); err != nil {
			return err
		}
		if len(rows) < size {
			return nil
		}
	}
}

// Insert inserts one or more rows and returns the affected row count.
func (b *Builder) Insert(ctx context.Context, rows ...map[string]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	sql, bindings := b.compileInsert(rows)
	return b.conn.Statement(ctx, sql, bindings)
}

// InsertGetID inserts one row and returns the backend-assigned key. The
// key column defaults to "id".
func (b *Builder) InsertGetID(ctx context.Context, values map[string]any, key ...string) (int64, error) {
	k := "id"
	if len(key) > 0 {
		k = key[0]
	}
	sql, bindings := b.compileInsertGetID(values, k)
	return b.conn.Insert(ctx, sql, bindings)
}

// Update updates matching rows and returns the affected row count.
func (b *Builder) Update(ctx context.Context, values map[string]any) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	sql, bindings := b.compileUpdate(values)
	return b.conn.Statement(ctx, sql, bindings)
}

// Delete deletes matching rows and returns the affected row count.
func (b *Builder) Delete(ctx context.Context) (int64, error) {
	sql, bindings := b.compileDelete()
	return b.conn.Statement(ctx, sql, bindings)
}

func quoted(d, ident string) string {
	c := compiler{dialect: d}
	return c.quote(ident)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
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

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		var f float64
		if _, err := fmt.Sscan(n, &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
