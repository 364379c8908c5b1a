package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// Cast names an attribute cast. Casts are applied when an attribute is
// read; writes store the raw value and serialization back to column
// values happens at persistence time.
type Cast string

const (
	// CastInt casts to int64.
	CastInt Cast = "int"
	// CastFloat casts to float64.
	CastFloat Cast = "float"
	// CastBool casts to bool.
	CastBool Cast = "bool"
	// CastString casts to string.
	CastString Cast = "string"
	// CastJSON decodes a JSON column into a Go value and encodes it back
	// on save.
	CastJSON Cast = "json"
	// CastMsgpack decodes a MessagePack blob column into a Go value and
	// encodes it back on save.
	CastMsgpack Cast = "msgpack"
	// CastDatetime casts to time.Time.
	CastDatetime Cast = "datetime"
	// CastDecimal casts to decimal.Decimal for exact arithmetic.
	CastDecimal Cast = "decimal"
)

// datetimeLayouts are tried in order when parsing a string datetime.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	time.DateOnly,
	"2006-01-02 15:04:05.999999999-07:00",
}

// castValue applies the read-direction cast. Values that cannot be
// coerced are returned as-is; casting is best effort, not validation.
func castValue(c Cast, v any) any {
	if v == nil {
		return nil
	}
	switch c {
	case CastInt:
		if n, ok := castInt(v); ok {
			return n
		}
	case CastFloat:
		if f, ok := castFloat(v); ok {
			return f
		}
	case CastBool:
		if b, ok := castBool(v); ok {
			return b
		}
	case CastString:
		return fmt.Sprint(v)
	case CastJSON:
		switch s := v.(type) {
		case string:
			var out any
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return out
			}
		case []byte:
			var out any
			if err := json.Unmarshal(s, &out); err == nil {
				return out
			}
		}
	case CastMsgpack:
		switch s := v.(type) {
		case []byte:
			var out any
			if err := msgpack.Unmarshal(s, &out); err == nil {
				return out
			}
		case string:
			var out any
			if err := msgpack.Unmarshal([]byte(s), &out); err == nil {
				return out
			}
		}
	case CastDatetime:
		if t, ok := castTime(v); ok {
			return t
		}
	case CastDecimal:
		switch d := v.(type) {
		case decimal.Decimal:
			return d
		case string:
			if dec, err := decimal.NewFromString(d); err == nil {
				return dec
			}
		case float64:
			return decimal.NewFromFloat(d)
		case int64:
			return decimal.NewFromInt(d)
		}
	}
	return v
}

// serializeValue applies the write-direction cast, turning rich values
// back into column values.
func serializeValue(c Cast, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c {
	case CastJSON:
		switch v.(type) {
		case string, []byte:
			return v, nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("model: encode json attribute: %w", err)
		}
		return string(data), nil
	case CastMsgpack:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
		data, err := msgpack.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("model: encode msgpack attribute: %w", err)
		}
		return data, nil
	case CastDecimal:
		if d, ok := v.(decimal.Decimal); ok {
			return d.String(), nil
		}
	}
	return v, nil
}

func castInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func castFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func castBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case int64:
		return b != 0, true
	case int:
		return b != 0, true
	case float64:
		return b != 0, true
	case string:
		switch b {
		case "1", "true", "TRUE", "True":
			return true, true
		case "0", "false", "FALSE", "False", "":
			return false, true
		}
	}
	return false, false
}

func castTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range datetimeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case int64:
		return time.Unix(t, 0).UTC(), true
	}
	return time.Time{}, false
}
