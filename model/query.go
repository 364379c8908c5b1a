package model

import (
	"context"
	"math"

	"github.com/arbor-orm/arbor"
	"github.com/arbor-orm/arbor/query"
)

// Query is a typed query over one entity type. It wraps a query.Builder
// and layers on the type's global scopes, the soft-delete filter, and
// eager-load registrations; results hydrate into Model instances bound
// to the same connection.
type Query struct {
	typ           *Type
	conn          query.Connection
	builder       *query.Builder
	withTrashed   bool
	onlyTrashed   bool
	withoutScopes bool
	eager         []string
}

// Query starts a typed query for the entity on the given connection.
func (t *Type) Query(conn query.Connection) *Query {
	return &Query{
		typ:     t,
		conn:    conn,
		builder: query.Table(conn, t.table),
	}
}

// Builder exposes the underlying SQL builder for constraints the typed
// surface doesn't cover. Scopes and the soft-delete filter still apply.
func (q *Query) Builder() *query.Builder {
	return q.builder
}

// Where adds an AND condition; see query.Builder.Where for the 2/3
// argument forms.
func (q *Query) Where(col string, args ...any) *Query {
	q.builder.Where(col, args...)
	return q
}

// OrWhere adds an OR condition.
func (q *Query) OrWhere(col string, args ...any) *Query {
	q.builder.OrWhere(col, args...)
	return q
}

// WhereIn constrains the column to the given set.
func (q *Query) WhereIn(col string, values []any) *Query {
	q.builder.WhereIn(col, values)
	return q
}

// WhereNotIn excludes the given set.
func (q *Query) WhereNotIn(col string, values []any) *Query {
	q.builder.WhereNotIn(col, values)
	return q
}

// WhereNull constrains the column to NULL.
func (q *Query) WhereNull(col string) *Query {
	q.builder.WhereNull(col)
	return q
}

// WhereNotNull constrains the column to non-NULL.
func (q *Query) WhereNotNull(col string) *Query {
	q.builder.WhereNotNull(col)
	return q
}

// OrderBy adds an ascending ordering.
func (q *Query) OrderBy(col string) *Query {
	q.builder.OrderBy(col)
	return q
}

// OrderByDesc adds a descending ordering.
func (q *Query) OrderByDesc(col string) *Query {
	q.builder.OrderByDesc(col)
	return q
}

// Latest orders by created_at descending, or by the given column.
func (q *Query) Latest(col ...string) *Query {
	q.builder.Latest(col...)
	return q
}

// Limit bounds the result size.
func (q *Query) Limit(n int) *Query {
	q.builder.Limit(n)
	return q
}

// Offset skips the first n rows.
func (q *Query) Offset(n int) *Query {
	q.builder.Offset(n)
	return q
}

// With registers relations to eager load with the results.
func (q *Query) With(names ...string) *Query {
	q.eager = append(q.eager, names...)
	return q
}

// WithTrashed includes soft-deleted rows.
func (q *Query) WithTrashed() *Query {
	q.withTrashed = true
	return q
}

// OnlyTrashed restricts the query to soft-deleted rows.
func (q *Query) OnlyTrashed() *Query {
	q.onlyTrashed = true
	return q
}

// WithoutGlobalScopes skips the type's registered global scopes.
func (q *Query) WithoutGlobalScopes() *Query {
	q.withoutScopes = true
	return q
}

// finalize clones the builder and applies the type-level constraints:
// global scopes first, then the soft-delete filter. The clone keeps the
// Query reusable after execution.
func (q *Query) finalize() *query.Builder {
	b := q.builder.Clone()
	if !q.withoutScopes {
		for _, s := range q.typ.scopes {
			s(b)
		}
	}
	if q.typ.softDeletes {
		switch {
		case q.onlyTrashed:
			b.WhereNotNull(q.typ.deletedCol)
		case !q.withTrashed:
			b.WhereNull(q.typ.deletedCol)
		}
	}
	return b
}

// Get executes the query and hydrates the result set, then loads any
// registered eager relations in batches.
func (q *Query) Get(ctx context.Context) (Collection, error) {
	rows, err := q.finalize().Get(ctx)
	if err != nil {
		return nil, err
	}
	models := make(Collection, 0, len(rows))
	for _, row := range rows {
		models = append(models, q.typ.hydrate(q.conn, row))
	}
	if err := q.loadEager(ctx, models); err != nil {
		return nil, err
	}
	return models, nil
}

// All is Get without further constraints, for readability at call sites.
func (q *Query) All(ctx context.Context) (Collection, error) {
	return q.Get(ctx)
}

// First returns the first matching model, or ErrNotFound.
func (q *Query) First(ctx context.Context) (*Model, error) {
	row, err := q.finalize().First(ctx)
	if err != nil {
		return nil, err
	}
	m := q.typ.hydrate(q.conn, row)
	if err := q.loadEager(ctx, Collection{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// FirstOrFail is First with the miss reported as a NotFoundError naming
// the entity.
func (q *Query) FirstOrFail(ctx context.Context) (*Model, error) {
	m, err := q.First(ctx)
	if arbor.IsNotFound(err) {
		return nil, arbor.NewNotFoundError(q.typ.name, nil)
	}
	return m, err
}

// Find returns the model with the given primary key, or ErrNotFound.
func (q *Query) Find(ctx context.Context, id any) (*Model, error) {
	return q.Where(q.typ.primaryKey, id).First(ctx)
}

// FindOrFail is Find with the miss reported as a NotFoundError carrying
// the entity name and key.
func (q *Query) FindOrFail(ctx context.Context, id any) (*Model, error) {
	m, err := q.Find(ctx, id)
	if arbor.IsNotFound(err) {
		return nil, arbor.NewNotFoundError(q.typ.name, id)
	}
	return m, err
}

// FirstOrCreate returns the first model matching attrs, creating it —
// from attrs merged with the optional extra values — when none exists.
func (q *Query) FirstOrCreate(ctx context.Context, attrs map[string]any, values ...map[string]any) (*Model, error) {
	probe := q.clone()
	for k, v := range attrs {
		probe.Where(k, v)
	}
	m, err := probe.First(ctx)
	if err == nil {
		return m, nil
	}
	if !arbor.IsNotFound(err) {
		return nil, err
	}
	m = q.typ.New(q.conn)
	m.Fill(attrs)
	for _, extra := range values {
		m.Fill(extra)
	}
	if err := m.Save(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateOrCreate updates the first model matching attrs with values, or
// creates one from both when none exists.
func (q *Query) UpdateOrCreate(ctx context.Context, attrs, values map[string]any) (*Model, error) {
	probe := q.clone()
	for k, v := range attrs {
		probe.Where(k, v)
	}
	m, err := probe.First(ctx)
	if arbor.IsNotFound(err) {
		m = q.typ.New(q.conn)
		m.Fill(attrs)
	} else if err != nil {
		return nil, err
	}
	m.Fill(values)
	if err := m.Save(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Count returns the number of matching rows.
func (q *Query) Count(ctx context.Context) (int64, error) {
	return q.finalize().Count(ctx)
}

// Exists reports whether any row matches.
func (q *Query) Exists(ctx context.Context) (bool, error) {
	return q.finalize().Exists(ctx)
}

// Pluck returns one column of the matching rows.
func (q *Query) Pluck(ctx context.Context, col string) ([]any, error) {
	return q.finalize().Pluck(ctx, col)
}

// Pagination is one page of hydrated models with paging bookkeeping.
type Pagination struct {
	Data        Collection `json:"data"`
	Total       int64      `json:"total"`
	PerPage     int        `json:"per_page"`
	CurrentPage int        `json:"current_page"`
	LastPage    int        `json:"last_page"`
	From        int        `json:"from"`
	To          int        `json:"to"`
}

// Paginate returns one page of results plus the total count. Pages are
// 1-based; From/To are 1-based row positions, zero on an empty page.
func (q *Query) Paginate(ctx context.Context, page, perPage int) (*Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	models, err := q.clone().Offset((page - 1) * perPage).Limit(perPage).Get(ctx)
	if err != nil {
		return nil, err
	}
	last := int(math.Ceil(float64(total) / float64(perPage)))
	if last < 1 {
		last = 1
	}
	p := &Pagination{
		Data:        models,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    last,
	}
	if len(models) > 0 {
		p.From = (page-1)*perPage + 1
		p.To = p.From + len(models) - 1
	}
	return p, nil
}

// Chunk walks the result set in fixed-size windows of hydrated models.
// The callback may return a non-nil error to stop early.
func (q *Query) Chunk(ctx context.Context, size int, fn func(Collection) error) error {
	return q.finalize().Chunk(ctx, size, func(rows []arbor.Row) error {
		models := make(Collection, 0, len(rows))
		for _, row := range rows {
			models = append(models, q.typ.hydrate(q.conn, row))
		}
		if err := q.loadEager(ctx, models); err != nil {
			return err
		}
		return fn(models)
	})
}

// Update mass-updates the matching rows without hydrating them. Model
// events do not fire; for per-instance semantics load and Save instead.
func (q *Query) Update(ctx context.Context, values map[string]any) (int64, error) {
	return q.finalize().Update(ctx, values)
}

// Delete mass-deletes the matching rows. With soft deletes enabled it
// stamps the deletion column; events do not fire.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	if q.typ.softDeletes {
		return q.finalize().Update(ctx, map[string]any{q.typ.deletedCol: nowStamp(q.typ)})
	}
	return q.finalize().Delete(ctx)
}

// ForceDelete mass-deletes the matching rows bypassing soft deletes.
func (q *Query) ForceDelete(ctx context.Context) (int64, error) {
	return q.finalize().Delete(ctx)
}

// Restore clears the deletion stamp on the matching soft-deleted rows.
func (q *Query) Restore(ctx context.Context) (int64, error) {
	restore := q.clone().OnlyTrashed()
	return restore.finalize().Update(ctx, map[string]any{q.typ.deletedCol: nil})
}

// loadEager batches each registered relation across the result set.
func (q *Query) loadEager(ctx context.Context, models Collection) error {
	if len(models) == 0 {
		return nil
	}
	for _, name := range q.eager {
		r := q.typ.relations[name]
		if r == nil {
			return arbor.NewConfigurationError(q.typ.name, "", "unknown relation "+name)
		}
		if err := r.eagerLoad(ctx, q.conn, name, models); err != nil {
			return err
		}
	}
	return nil
}

func (q *Query) clone() *Query {
	c := *q
	c.builder = q.builder.Clone()
	c.eager = append([]string(nil), q.eager...)
	return &c
}
