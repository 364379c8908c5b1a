package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/arbor-orm/arbor"
)

// mysqlConstraintCodes are the MySQL error numbers classified as
// constraint violations.
var mysqlConstraintCodes = map[uint16]bool{
	1048: true, // column cannot be null
	1062: true, // duplicate entry
	1451: true, // cannot delete, foreign key
	1452: true, // cannot add, foreign key
	1557: true, // duplicate entry before index rebuild
}

// wrapError converts a driver error into a QueryError carrying the SQL
// text and bindings. Constraint violations reported by the driver are
// additionally wrapped in a ConstraintError so callers can classify them
// with arbor.IsConstraintError.
func wrapError(err error, query string, bindings []any) error {
	if err == nil {
		return nil
	}
	if cause := constraintCause(err); cause != nil {
		err = cause
	}
	return arbor.NewQueryError(query, bindings, err)
}

func constraintCause(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && mysqlConstraintCodes[myErr.Number] {
		return arbor.NewConstraintError(myErr.Message, err)
	}
	var pqErr *pq.Error
	// Class 23 covers integrity constraint violations.
	if errors.As(err, &pqErr) && strings.HasPrefix(string(pqErr.Code), "23") {
		return arbor.NewConstraintError(pqErr.Message, err)
	}
	// SQLite reports constraint failures in the message text only.
	if msg := err.Error(); strings.Contains(msg, "constraint failed") || strings.Contains(msg, "UNIQUE constraint") {
		return arbor.NewConstraintError(msg, err)
	}
	return nil
}
