package model

import "encoding/json"

// Collection is an ordered set of hydrated models from one query.
type Collection []*Model

// Len returns the number of models.
func (c Collection) Len() int { return len(c) }

// IsEmpty reports whether the collection has no models.
func (c Collection) IsEmpty() bool { return len(c) == 0 }

// First returns the first model, or nil when empty.
func (c Collection) First() *Model {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Last returns the last model, or nil when empty.
func (c Collection) Last() *Model {
	if len(c) == 0 {
		return nil
	}
	return c[len(c)-1]
}

// Keys returns the primary key of each model, in order.
func (c Collection) Keys() []any {
	keys := make([]any, 0, len(c))
	for _, m := range c {
		keys = append(keys, m.Key())
	}
	return keys
}

// Pluck returns the named attribute of each model, in order.
func (c Collection) Pluck(key string) []any {
	values := make([]any, 0, len(c))
	for _, m := range c {
		values = append(values, m.Get(key))
	}
	return values
}

// Filter returns the models for which fn reports true.
func (c Collection) Filter(fn func(*Model) bool) Collection {
	var out Collection
	for _, m := range c {
		if fn(m) {
			out = append(out, m)
		}
	}
	return out
}

// Each calls fn for every model, stopping on the first error.
func (c Collection) Each(fn func(*Model) error) error {
	for _, m := range c {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// ToMaps serializes each model with the type's visibility rules.
func (c Collection) ToMaps() []map[string]any {
	out := make([]map[string]any, 0, len(c))
	for _, m := range c {
		out = append(out, m.ToMap())
	}
	return out
}

// MarshalJSON renders the collection as a JSON array of serialized
// models. An empty collection renders as [], not null.
func (c Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToMaps())
}
