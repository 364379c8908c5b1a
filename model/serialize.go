package model

import (
	"encoding/json"
	"time"
)

// ToMap serializes the model for output: attributes pass through casts
// and accessors, the visibility rules are applied, computed appends are
// added, and loaded relations are serialized recursively. Datetime
// values are rendered with the type's date layout.
//
// A non-empty visible list is an allow-list and takes precedence over
// hidden; otherwise hidden attributes are dropped.
func (m *Model) ToMap() map[string]any {
	t := m.typ
	out := make(map[string]any, len(m.attributes)+len(t.appends)+len(m.relations))
	for k := range m.attributes {
		if !t.serializable(k) {
			continue
		}
		out[k] = serializeOut(m.Get(k), t.dateFormat)
	}
	for k, fn := range t.appends {
		out[k] = serializeOut(fn(m), t.dateFormat)
	}
	for name, v := range m.relations {
		switch rel := v.(type) {
		case *Model:
			if rel == nil {
				out[name] = nil
			} else {
				out[name] = rel.ToMap()
			}
		case Collection:
			out[name] = rel.ToMaps()
		case nil:
			out[name] = nil
		}
	}
	return out
}

// MarshalJSON renders the model through ToMap.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToMap())
}

// serializable applies the visibility rules to one attribute name.
func (t *Type) serializable(key string) bool {
	if len(t.visible) > 0 {
		for _, v := range t.visible {
			if v == key {
				return true
			}
		}
		return false
	}
	for _, h := range t.hidden {
		if h == key {
			return false
		}
	}
	return true
}

func serializeOut(v any, dateFormat string) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(dateFormat)
	case []byte:
		return string(x)
	}
	return v
}
