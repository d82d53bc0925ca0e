package payload

import (
	"strconv"

	"github.com/go-faster/jx"
)

// Encode writes v as JSON. Object keys are sorted so wire payloads are stable.
func Encode(v any) []byte {
	var e jx.Encoder
	encodeValue(&e, v)
	return e.Bytes()
}

func encodeValue(e *jx.Encoder, v any) {
	switch t := v.(type) {
	case nil:
		e.Null()
	case bool:
		e.Bool(t)
	case string:
		e.Str(t)
	case Number:
		if _, err := strconv.ParseFloat(string(t), 64); err != nil {
			e.Str(string(t))
			return
		}
		e.Raw([]byte(t))
	case int:
		e.Int(t)
	case int64:
		e.Int64(t)
	case float64:
		e.Float64(t)
	case *int64:
		if t == nil {
			e.Null()
			return
		}
		e.Int64(*t)
	case *int:
		if t == nil {
			e.Null()
			return
		}
		e.Int(*t)
	case []string:
		e.ArrStart()
		for _, s := range t {
			e.Str(s)
		}
		e.ArrEnd()
	case []int:
		e.ArrStart()
		for _, n := range t {
			e.Int(n)
		}
		e.ArrEnd()
	case []any:
		e.ArrStart()
		for _, item := range t {
			encodeValue(e, item)
		}
		e.ArrEnd()
	case map[string]any:
		encodeObject(e, Object(t))
	case Object:
		encodeObject(e, t)
	default:
		e.Null()
	}
}

func encodeObject(e *jx.Encoder, o Object) {
	e.ObjStart()
	for _, k := range o.Keys() {
		e.FieldStart(k)
		encodeValue(e, o[k])
	}
	e.ObjEnd()
}
