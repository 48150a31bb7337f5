// Package jsonvalue implements a tagged "any JSON value" variant used for
// opaque payload fields — notably the Google Cloud structured error
// envelope's errors array and any service response field the typed
// wrappers don't model explicitly. It round-trips through encoding/json
// without reflection on external types.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a recursive tagged JSON value.
type Value struct {
	kind   Kind
	b      bool
	num    float64
	str    string
	arr    []Value
	obj    map[string]Value
	objOrd []string // key order used by MarshalJSON, taken from map iteration
}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array wraps a slice of values.
func Array(vs []Value) Value { return Value{kind: KindArray, arr: vs} }

// Object wraps a string-keyed map of values. Keys are re-emitted in Go map
// iteration order, which is not defined; unmarshaled objects likewise do
// not keep the key order of the source document.
func Object(m map[string]Value) Value {
	v := Value{kind: KindObject, obj: m}
	for k := range m {
		v.objOrd = append(v.objOrd, k)
	}
	return v
}

// Kind reports the variant held.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds JSON null (including the zero Value).
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean value and whether v actually holds a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric value and whether v actually holds a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsString returns the string value and whether v actually holds a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsArray returns the element slice and whether v actually holds an array.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the field map and whether v actually holds an object.
func (v Value) AsObject() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Get returns the field named key when v is an object, or the zero Value
// (null) and false otherwise.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	val, ok := v.obj[key]
	return val, ok
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := elem.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindObject:
		var buf bytes.Buffer
		buf.WriteByte('{')
		keys := v.objOrd
		if len(keys) != len(v.obj) {
			// objOrd fell out of sync (constructed via Object literal without
			// matching keys); fall back to map iteration order.
			keys = keys[:0]
			for k := range v.obj {
				keys = append(keys, k)
			}
		}
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("jsonvalue: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

func fromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		f, _ := t.Float64()
		return Number(f)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = fromAny(e)
		}
		return Array(vs)
	case map[string]any:
		m := make(map[string]Value, len(t))
		ord := make([]string, 0, len(t))
		for k, e := range t {
			m[k] = fromAny(e)
			ord = append(ord, k)
		}
		return Value{kind: KindObject, obj: m, objOrd: ord}
	default:
		return Null()
	}
}
