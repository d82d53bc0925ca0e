// Package payload holds a lenient JSON value tree for backend responses whose
// shape drifts between versions (snake_case vs camelCase, different envelopes).
//
// Values are one of: nil, bool, string, Number, []any, Object.
package payload

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Number keeps the literal of a JSON number so "1000" and 1000 coerce the same way.
type Number string

// Object is a decoded JSON object.
type Object map[string]any

// Parse decodes body into a value tree. Empty or malformed input is an error.
func Parse(body []byte) (any, error) {
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if !jx.Valid(body) {
		return nil, errors.New("invalid json")
	}

	v, err := decodeValue(jx.DecodeBytes(body))
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return v, nil
}

// ParseLenient is Parse that maps every failure to nil.
func ParseLenient(body []byte) any {
	v, err := Parse(body)
	if err != nil {
		return nil
	}
	return v
}

// ParseObject decodes body and returns it only when it is a JSON object.
func ParseObject(body []byte) Object {
	return AsObject(ParseLenient(body))
}

func decodeValue(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Bool:
		return d.Bool()
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		return Number(n.String()), nil
	case jx.Array:
		list := make([]any, 0)
		err := d.Arr(func(d *jx.Decoder) error {
			item, err := decodeValue(d)
			if err != nil {
				return err
			}
			list = append(list, item)
			return nil
		})
		return list, err
	case jx.Object:
		obj := make(Object)
		err := d.Obj(func(d *jx.Decoder, key string) error {
			item, err := decodeValue(d)
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			obj[key] = item
			return nil
		})
		return obj, err
	default:
		return nil, errors.New("unexpected token")
	}
}

// AsObject returns v as an Object, or nil if v is not an object.
func AsObject(v any) Object {
	switch o := v.(type) {
	case Object:
		return o
	case map[string]any:
		return Object(o)
	default:
		return nil
	}
}

// AsList wraps scalars into a one-element list and maps nil to an empty list.
func AsList(v any) []any {
	switch l := v.(type) {
	case nil:
		return []any{}
	case []any:
		return l
	case []string:
		out := make([]any, 0, len(l))
		for _, s := range l {
			out = append(out, s)
		}
		return out
	default:
		return []any{v}
	}
}

// Get returns the raw value under key.
func (o Object) Get(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

// Has reports whether key is present with a non-null value.
func (o Object) Has(key string) bool {
	return o.Get(key) != nil
}

// Coalesce returns the first non-null value among keys.
func (o Object) Coalesce(keys ...string) any {
	for _, k := range keys {
		if v := o.Get(k); v != nil {
			return v
		}
	}
	return nil
}

// First returns the first truthy value among keys.
func (o Object) First(keys ...string) any {
	for _, k := range keys {
		if v := o.Get(k); Truthy(v) {
			return v
		}
	}
	return nil
}

// FirstString is First rendered as a string ("" when nothing matched).
func (o Object) FirstString(keys ...string) string {
	return String(o.First(keys...))
}

// Obj returns the object stored under key or nil.
func (o Object) Obj(key string) Object {
	return AsObject(o.Get(key))
}

// FirstObj returns the first key holding a non-empty object.
func (o Object) FirstObj(keys ...string) Object {
	for _, k := range keys {
		if obj := o.Obj(k); obj != nil {
			return obj
		}
	}
	return nil
}

// Keys returns the object keys in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge assigns override on top of a copy of base.
func Merge(base, override Object) Object {
	out := make(Object, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
