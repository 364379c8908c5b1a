// Package query provides the fluent SQL builder for Arbor.
//
// A Builder accumulates an ordered list of clause fragments (wheres with
// boolean connectors and operators, joins, groupings, orderings, bounds)
// and renders dialect-correct SQL on demand. Bindings are collected in
// render order, so the Nth placeholder in the rendered statement always
// maps to the Nth binding — this invariant holds across plain, nested,
// and raw fragments.
//
//	rows, err := conn.Table("orders").
//	    Where("status", "paid").
//	    WhereBetween("total", 10, 100).
//	    WhereNested(func(q *query.Builder) {
//	        q.Where("region", "EU").OrWhere("region", "UK")
//	    }).
//	    OrderByDesc("created_at").
//	    Limit(20).
//	    Get(ctx)
//
// Execution helpers cover single rows (First, Find — both return
// ErrNotFound on a miss, never an empty row), scalars (Value, Pluck,
// Count, Sum, Avg, Min, Max), probes (Exists), pagination (Paginate),
// fixed-window scans (Chunk), and writes (Insert, InsertGetID, Update,
// Delete).
package query
