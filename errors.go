package arbor

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a single-row lookup matches no row.
	ErrNotFound = errors.New("arbor: entity not found")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction. Nested transactions are rejected;
	// there is no savepoint abstraction.
	ErrTxStarted = errors.New("arbor: cannot start a transaction within a transaction")

	// ErrNoTx is returned when committing or rolling back a connection
	// that has no open transaction.
	ErrNoTx = errors.New("arbor: no transaction in progress")
)

// ConfigurationError reports an unusable configuration: an unknown
// connection name or an unsupported driver. It is fatal and never retried.
type ConfigurationError struct {
	Name   string // Connection name, if known.
	Driver string // Driver id, if the driver was the problem.
	Reason string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	switch {
	case e.Driver != "":
		return fmt.Sprintf("arbor: unsupported driver %q: %s", e.Driver, e.Reason)
	case e.Name != "":
		return fmt.Sprintf("arbor: connection %q: %s", e.Name, e.Reason)
	default:
		return fmt.Sprintf("arbor: configuration: %s", e.Reason)
	}
}

// NewConfigurationError returns a new ConfigurationError with the given reason.
func NewConfigurationError(name, driver, reason string) *ConfigurationError {
	return &ConfigurationError{Name: name, Driver: driver, Reason: reason}
}

// IsConfiguration returns true if the error is a ConfigurationError.
func IsConfiguration(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// QueryError wraps a prepare or execute failure with the SQL text and
// bindings that produced it. It is surfaced to the caller as-is; no retry
// or backoff happens at this layer.
type QueryError struct {
	Query    string
	Bindings []any
	Err      error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	return fmt.Sprintf("arbor: query %q: %v", e.Query, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(query string, bindings []any, err error) *QueryError {
	return &QueryError{Query: query, Bindings: bindings, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// NotFoundError is the or-fail variant of a missed lookup. Unlike the
// ErrNotFound sentinel returned by plain lookups, it carries the entity
// label and the key that was searched for.
type NotFoundError struct {
	label string
	id    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("arbor: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("arbor: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(err, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the key that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity label.
func NewNotFoundError(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError or the
// ErrNotFound sentinel.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConstraintError represents a database constraint violation, classified
// from the underlying driver error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("arbor: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e *ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) *ConstraintError {
	return &ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e)
}
