// Package arbor is an Active-Record style object-relational mapper.
//
// Arbor maps one table row to a typed attribute bag that knows how to
// persist, reload, and serialize itself, with a fluent query builder that
// renders correct SQL across four database dialects and a declarative
// schema builder for migrations.
//
// # Architecture
//
// The module is split into four layers, leaves first:
//
//   - db: connection management. A Connection owns one live database
//     handle, executes parameterized SQL, and manages transactions and an
//     optional query log. A Manager is a registry of named connections
//     constructed lazily from configuration.
//   - query: the fluent Builder. Calls append typed clause fragments and
//     bindings in order; rendering produces dialect-correct SQL with the
//     Nth placeholder always mapped to the Nth binding.
//   - model: the Active Record. A Type holds per-entity metadata
//     (table, keys, casts, fillability, relations, scopes, observers);
//     a Model is one row's attribute bag with dirty tracking and a
//     relation cache. Seven relationship kinds are supported, including
//     polymorphic ones, all with batched eager loading.
//   - schema: declarative Blueprint definitions translated into CREATE
//     and ALTER DDL per dialect, plus catalog introspection and the
//     Migration up/down unit.
//
// # Supported Dialects
//
// MySQL, PostgreSQL, SQLite, and SQL Server. DML is dialect-neutral
// through parameterization; placeholder style, identifier quoting, DDL,
// and catalog introspection are dispatched per dialect.
//
// # Quick Start
//
//	cfg := db.Config{Driver: dialect.SQLite, Database: "file:app.db"}
//	conn, err := db.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	users := model.Define("user", model.Fillable("name", "email"))
//	u := users.New(conn)
//	u.Fill(map[string]any{"name": "Alice", "email": "a@example.com"})
//	if err := u.Save(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Errors
//
// All failures surface to the immediate caller. Configuration problems
// are ConfigurationError and are never retried; execution failures are
// QueryError carrying the SQL text and bindings; missed lookups return
// the ErrNotFound sentinel, or a NotFoundError from the or-fail variants.
// The one documented silence is mass-assignment protection: keys failing
// the fillability policy are dropped, not raised.
package arbor
