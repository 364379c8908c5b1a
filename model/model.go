package model

import (
	"reflect"
	"time"

	"github.com/arbor-orm/arbor/query"
)

// Model is one table row as a typed attribute bag. It tracks the
// original snapshot taken at hydration or last save for dirty diffing,
// caches loaded relations by name, and knows whether it is backed by a
// database row.
//
// A Model is not safe for concurrent use; use one instance per
// goroutine, each with its own Connection.
type Model struct {
	typ        *Type
	conn       query.Connection
	attributes map[string]any
	original   map[string]any
	relations  map[string]any
	exists     bool
}

// Type returns the entity type of the model.
func (m *Model) Type() *Type {
	return m.typ
}

// Exists reports whether the model is backed by a database row.
func (m *Model) Exists() bool {
	return m.exists
}

// Key returns the primary key value, or nil for a transient model.
func (m *Model) Key() any {
	return m.attributes[m.typ.primaryKey]
}

// Get returns the attribute value after accessor and cast resolution:
// a declared accessor is applied to the cast value; otherwise the cast
// value is returned; otherwise the raw stored value.
func (m *Model) Get(key string) any {
	v, ok := m.attributes[key]
	if !ok {
		return nil
	}
	if c, ok := m.typ.casts[key]; ok {
		v = castValue(c, v)
	}
	if acc, ok := m.typ.accessors[key]; ok {
		v = acc(v)
	}
	return v
}

// Has reports whether the attribute is present in the bag.
func (m *Model) Has(key string) bool {
	_, ok := m.attributes[key]
	return ok
}

// GetString returns the attribute as a string.
func (m *Model) GetString(key string) string {
	if v := m.Get(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return castValue(CastString, v).(string)
	}
	return ""
}

// GetInt returns the attribute as an int64.
func (m *Model) GetInt(key string) int64 {
	n, _ := castInt(m.Get(key))
	return n
}

// GetFloat returns the attribute as a float64.
func (m *Model) GetFloat(key string) float64 {
	f, _ := castFloat(m.Get(key))
	return f
}

// GetBool returns the attribute as a bool.
func (m *Model) GetBool(key string) bool {
	b, _ := castBool(m.Get(key))
	return b
}

// GetTime returns the attribute as a time.Time.
func (m *Model) GetTime(key string) time.Time {
	t, _ := castTime(m.Get(key))
	return t
}

// Set stores an attribute, applying a declared mutator first. Set is a
// direct write and is not subject to the fillability policy; use Fill
// for externally supplied values.
func (m *Model) Set(key string, value any) *Model {
	if mut, ok := m.typ.mutators[key]; ok {
		value = mut(value)
	}
	m.attributes[key] = value
	return m
}

// Fill mass-assigns attributes through the fillability policy. Keys
// failing the policy are silently dropped — this is deliberate
// mass-assignment protection, not an error.
func (m *Model) Fill(attrs map[string]any) *Model {
	for k, v := range attrs {
		if m.typ.isFillable(k) {
			m.Set(k, v)
		}
	}
	return m
}

// IsFillable reports whether the key passes the mass-assignment policy.
func (m *Model) IsFillable(key string) bool {
	return m.typ.isFillable(key)
}

// Dirty returns the attributes differing from the original snapshot,
// filtered through the fillability policy. Columns the layer maintains
// itself (key, timestamps, soft-delete stamp) always pass.
func (m *Model) Dirty() map[string]any {
	dirty := make(map[string]any)
	for k, v := range m.attributes {
		if !m.typ.isFillable(k) && !m.typ.internalColumn(k) {
			continue
		}
		orig, ok := m.original[k]
		if !ok || !equalAttr(orig, v) {
			dirty[k] = v
		}
	}
	return dirty
}

// IsDirty reports whether any attribute — or any of the given
// attributes — differs from the original snapshot.
func (m *Model) IsDirty(keys ...string) bool {
	dirty := m.Dirty()
	if len(keys) == 0 {
		return len(dirty) > 0
	}
	for _, k := range keys {
		if _, ok := dirty[k]; ok {
			return true
		}
	}
	return false
}

// SyncOriginal snapshots the current attributes as the clean state.
func (m *Model) SyncOriginal() {
	m.original = make(map[string]any, len(m.attributes))
	for k, v := range m.attributes {
		m.original[k] = v
	}
}

// Original returns the value of the attribute at the last load or save.
func (m *Model) Original(key string) any {
	return m.original[key]
}

// SetRelation stores a loaded relation result under the given name.
func (m *Model) SetRelation(name string, value any) {
	m.relations[name] = value
}

// RelationLoaded reports whether the named relation has been loaded.
func (m *Model) RelationLoaded(name string) bool {
	_, ok := m.relations[name]
	return ok
}

// LoadedRelation returns the cached relation value without loading.
func (m *Model) LoadedRelation(name string) any {
	return m.relations[name]
}

// equalAttr compares attribute values for dirty tracking. time.Time is
// compared with Equal so zone differences don't register as dirty;
// everything else is compared structurally since JSON-cast attributes
// may hold maps and slices.
func equalAttr(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	return reflect.DeepEqual(a, b)
}
