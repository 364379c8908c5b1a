// Package dialect provides database dialect identification for Arbor.
//
// This package defines the dialect ids and the low-level syntax helpers
// (identifier quoting, parameter placeholders) that differ between the
// supported database backends.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string:
//
//	dialect.MySQL     = "mysql"
//	dialect.Postgres  = "postgres"
//	dialect.SQLite    = "sqlite"
//	dialect.SQLServer = "sqlserver"
//
// # Syntax Differences
//
// DML statements (SELECT/INSERT/UPDATE/DELETE) are effectively
// dialect-neutral through parameterization, but three things are not and
// are dispatched through this package and its consumers at call time:
//
//   - Identifier quoting: `name` (MySQL), "name" (PostgreSQL/SQLite),
//     [name] (SQL Server).
//   - Parameter placeholders: ? (MySQL/SQLite), $1..$n (PostgreSQL),
//     @p1..@pN (SQL Server).
//   - Catalog introspection and DDL, handled by the db and schema
//     packages respectively.
package dialect
