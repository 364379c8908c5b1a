package dialect

import (
	"fmt"
	"strings"
)

// Supported dialect ids.
const (
	// MySQL is the MySQL/MariaDB dialect.
	MySQL = "mysql"
	// Postgres is the PostgreSQL dialect.
	Postgres = "postgres"
	// SQLite is the SQLite dialect.
	SQLite = "sqlite"
	// SQLServer is the Microsoft SQL Server dialect.
	SQLServer = "sqlserver"
)

// All returns the list of supported dialect ids.
func All() []string {
	return []string{MySQL, Postgres, SQLite, SQLServer}
}

// Supported reports whether the given dialect id is supported.
func Supported(name string) bool {
	switch name {
	case MySQL, Postgres, SQLite, SQLServer:
		return true
	}
	return false
}

// Quote wraps an identifier with the dialect quote characters. Qualified
// identifiers (table.column) are quoted per segment, and "*" is passed
// through unquoted.
func Quote(dialect, ident string) string {
	if ident == "*" {
		return ident
	}
	if i := strings.IndexByte(ident, '.'); i >= 0 {
		return Quote(dialect, ident[:i]) + "." + Quote(dialect, ident[i+1:])
	}
	switch dialect {
	case MySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case SQLServer:
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// Placeholder returns the parameter placeholder for the given 1-based
// position. MySQL and SQLite use "?", PostgreSQL "$n", SQL Server "@pN".
func Placeholder(dialect string, n int) string {
	switch dialect {
	case Postgres:
		return fmt.Sprintf("$%d", n)
	case SQLServer:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

// Placeholders renders n placeholders starting at the 1-based position
// start, joined by ", ".
func Placeholders(dialect string, start, n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(Placeholder(dialect, start+i))
	}
	return b.String()
}
