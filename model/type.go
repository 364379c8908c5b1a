package model

import (
	"context"

	"github.com/go-openapi/inflect"

	"github.com/arbor-orm/arbor"
	"github.com/arbor-orm/arbor/query"
)

// Scope is a query constraint applied to every query of a Type unless
// explicitly removed. The soft-delete filter is implemented as one.
type Scope func(*query.Builder)

// Type holds the per-entity metadata of an Active Record: table and key
// names, fillability policy, casts, relationship descriptors, scopes,
// and observers. Every registry is owned by the Type itself — there is
// no package-level state — so tests and tenants cannot contaminate each
// other.
//
// Registration methods (relations, scopes, observers, accessors) are
// meant to be called during model-type initialization, before the Type
// is used concurrently.
type Type struct {
	name         string
	table        string
	primaryKey   string
	incrementing bool
	uuidKeys     bool
	timestamps   bool
	createdCol   string
	updatedCol   string
	softDeletes  bool
	deletedCol   string
	dateFormat   string
	morphClass   string
	fillable     []string
	guarded      []string
	casts        map[string]Cast
	hidden       []string
	visible      []string
	relations    map[string]*Relation
	accessors    map[string]func(any) any
	mutators     map[string]func(any) any
	appends      map[string]func(*Model) any
	scopes       []Scope
	observers    []Observer
}

// Option configures a Type at definition time.
type Option func(*Type)

// Define declares a new entity type. The name is the singular entity
// label ("user"); the table defaults to its underscored plural form
// ("users") unless overridden with Table.
func Define(name string, opts ...Option) *Type {
	t := &Type{
		name:         name,
		table:        inflect.Underscore(inflect.Pluralize(name)),
		primaryKey:   "id",
		incrementing: true,
		timestamps:   true,
		createdCol:   "created_at",
		updatedCol:   "updated_at",
		deletedCol:   "deleted_at",
		dateFormat:   "2006-01-02 15:04:05",
		morphClass:   name,
		guarded:      []string{"*"},
		casts:        make(map[string]Cast),
		relations:    make(map[string]*Relation),
		accessors:    make(map[string]func(any) any),
		mutators:     make(map[string]func(any) any),
		appends:      make(map[string]func(*Model) any),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Table overrides the table name.
func Table(name string) Option {
	return func(t *Type) { t.table = name }
}

// PrimaryKey overrides the primary key column (default "id").
func PrimaryKey(col string) Option {
	return func(t *Type) { t.primaryKey = col }
}

// Fillable sets the mass-assignment allow-list. A non-empty allow-list
// takes precedence over the deny-list.
func Fillable(cols ...string) Option {
	return func(t *Type) { t.fillable = cols }
}

// Guarded sets the mass-assignment deny-list. The default is the
// wildcard "*", denying everything until an allow-list is declared.
func Guarded(cols ...string) Option {
	return func(t *Type) { t.guarded = cols }
}

// Casts declares attribute casts by column name.
func Casts(casts map[string]Cast) Option {
	return func(t *Type) {
		for k, v := range casts {
			t.casts[k] = v
		}
	}
}

// WithoutTimestamps disables created_at/updated_at maintenance.
func WithoutTimestamps() Option {
	return func(t *Type) { t.timestamps = false }
}

// SoftDeletes enables the deletion-timestamp column (default
// "deleted_at"). Deletes stamp the column instead of removing the row,
// and default queries exclude stamped rows.
func SoftDeletes() Option {
	return func(t *Type) { t.softDeletes = true }
}

// DeletedAtColumn overrides the soft-delete column name.
func DeletedAtColumn(col string) Option {
	return func(t *Type) { t.deletedCol = col }
}

// UUIDKeys switches the primary key to caller-side UUID generation
// instead of a backend auto-increment.
func UUIDKeys() Option {
	return func(t *Type) {
		t.uuidKeys = true
		t.incrementing = false
	}
}

// Hidden sets attributes excluded from serialization.
func Hidden(cols ...string) Option {
	return func(t *Type) { t.hidden = cols }
}

// Visible sets the serialization allow-list; when non-empty it takes
// precedence over Hidden.
func Visible(cols ...string) Option {
	return func(t *Type) { t.visible = cols }
}

// DateFormat overrides the serialization layout for datetime attributes.
func DateFormat(layout string) Option {
	return func(t *Type) { t.dateFormat = layout }
}

// MorphClass overrides the type tag stored for this entity in
// polymorphic relations (default: the entity name).
func MorphClass(tag string) Option {
	return func(t *Type) { t.morphClass = tag }
}

// Name returns the entity label.
func (t *Type) Name() string { return t.name }

// TableName returns the mapped table.
func (t *Type) TableName() string { return t.table }

// Key returns the primary key column.
func (t *Type) Key() string { return t.primaryKey }

// MorphName returns the polymorphic type tag for this entity.
func (t *Type) MorphName() string { return t.morphClass }

// UsesSoftDeletes reports whether soft deletes are enabled.
func (t *Type) UsesSoftDeletes() bool { return t.softDeletes }

// DeletedColumn returns the soft-delete column.
func (t *Type) DeletedColumn() string { return t.deletedCol }

// GlobalScope registers a constraint applied to every query of the type.
func (t *Type) GlobalScope(s Scope) *Type {
	t.scopes = append(t.scopes, s)
	return t
}

// Accessor registers a read transform for the given attribute. The
// accessor receives the cast value.
func (t *Type) Accessor(key string, fn func(any) any) *Type {
	t.accessors[key] = fn
	return t
}

// Mutator registers a write transform for the given attribute. Set
// stores the mutator result instead of the raw value.
func (t *Type) Mutator(key string, fn func(any) any) *Type {
	t.mutators[key] = fn
	return t
}

// Append registers a computed attribute included in serialization.
func (t *Type) Append(key string, fn func(*Model) any) *Type {
	t.appends[key] = fn
	return t
}

// isFillable applies the mass-assignment policy: a key passes if it is
// in the allow-list, or — with an empty allow-list — if it is not denied
// and the deny-list isn't the wildcard.
func (t *Type) isFillable(key string) bool {
	if len(t.fillable) > 0 {
		for _, f := range t.fillable {
			if f == key {
				return true
			}
		}
		return false
	}
	for _, g := range t.guarded {
		if g == "*" || g == key {
			return false
		}
	}
	return true
}

// internalColumn reports whether the layer itself maintains the column.
// Internal columns bypass the fillability filter: they are never
// externally supplied.
func (t *Type) internalColumn(key string) bool {
	if key == t.primaryKey {
		return true
	}
	if t.timestamps && (key == t.createdCol || key == t.updatedCol) {
		return true
	}
	if t.softDeletes && key == t.deletedCol {
		return true
	}
	return false
}

// Model events, fired around persistence operations.
const (
	eventSaving = iota
	eventCreating
	eventCreated
	eventUpdating
	eventUpdated
	eventSaved
	eventDeleting
	eventDeleted
	eventRestored
)

// Observer receives model lifecycle events. All fields are optional; a
// non-nil error from a pre-event (Saving, Creating, Updating, Deleting)
// aborts the operation.
type Observer struct {
	Saving   func(context.Context, *Model) error
	Creating func(context.Context, *Model) error
	Created  func(context.Context, *Model) error
	Updating func(context.Context, *Model) error
	Updated  func(context.Context, *Model) error
	Saved    func(context.Context, *Model) error
	Deleting func(context.Context, *Model) error
	Deleted  func(context.Context, *Model) error
	Restored func(context.Context, *Model) error
}

// Observe registers an observer for the type's lifecycle events.
func (t *Type) Observe(o Observer) *Type {
	t.observers = append(t.observers, o)
	return t
}

func (t *Type) fire(ctx context.Context, event int, m *Model) error {
	for _, o := range t.observers {
		var fn func(context.Context, *Model) error
		switch event {
		case eventSaving:
			fn = o.Saving
		case eventCreating:
			fn = o.Creating
		case eventCreated:
			fn = o.Created
		case eventUpdating:
			fn = o.Updating
		case eventUpdated:
			fn = o.Updated
		case eventSaved:
			fn = o.Saved
		case eventDeleting:
			fn = o.Deleting
		case eventDeleted:
			fn = o.Deleted
		case eventRestored:
			fn = o.Restored
		}
		if fn == nil {
			continue
		}
		if err := fn(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// New returns a transient instance of the type bound to conn.
func (t *Type) New(conn query.Connection) *Model {
	return &Model{
		typ:        t,
		conn:       conn,
		attributes: make(map[string]any),
		original:   make(map[string]any),
		relations:  make(map[string]any),
	}
}

// hydrate builds a persistent instance from a result row. The original
// snapshot is a copy of the row, so the instance starts clean.
func (t *Type) hydrate(conn query.Connection, row arbor.Row) *Model {
	attrs := row.ToMap()
	orig := make(map[string]any, len(attrs))
	for k, v := range attrs {
		orig[k] = v
	}
	return &Model{
		typ:        t,
		conn:       conn,
		attributes: attrs,
		original:   orig,
		relations:  make(map[string]any),
		exists:     true,
	}
}
