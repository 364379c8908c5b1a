// Package db provides connection management for Arbor.
//
// A Connection owns one live database handle and executes parameterized
// SQL through typed wrappers (Select, SelectOne, Scalar, Statement,
// Insert, Update, Delete). Execution failures surface as QueryError
// values carrying the SQL text and bindings; constraint violations
// reported by the MySQL and PostgreSQL drivers are classified so callers
// can detect them with arbor.IsConstraintError.
//
// A Manager is a registry of named connections built from configuration
// (Go values, or a TOML/YAML file via LoadFile). Connections are
// constructed lazily on first access; the create-if-absent path is
// serialized, so concurrent first access yields a single instance.
//
// Transactions are connection-scoped and non-nestable: starting a second
// transaction on an already-transacting connection fails with
// ErrTxStarted. There is no savepoint abstraction.
//
// When query logging is enabled, every statement appends an entry with
// its SQL, bindings, elapsed time, and timestamp. The log is unbounded
// by design; call FlushQueryLog to bound memory.
package db
