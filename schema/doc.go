// Package schema builds and introspects database tables.
//
// A Blueprint records column definitions and table commands in call
// order; the Builder renders them with the connection's dialect grammar
// and executes the DDL:
//
//	s := schema.New(conn)
//	err := s.Create(ctx, "widgets", func(t *schema.Blueprint) {
//	    t.ID()
//	    t.String("name").Unique()
//	    t.Decimal("price", 8, 2).Nullable()
//	    t.Timestamps()
//	})
//
// A create blueprint renders one CREATE TABLE statement; plain indexes
// follow as separate CREATE INDEX statements. An alter blueprint
// renders one ALTER TABLE statement per change and is never implicitly
// wrapped in a transaction — transactional safety belongs to the
// migration runner, which also owns the record of applied migrations.
// HasTable, HasColumn and ColumnListing query catalog metadata so
// migrations can be written idempotently.
package schema
