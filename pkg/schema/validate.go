package schema

import (
	"reflect"

	"github.com/goccy/go-json"
)

// Shape maps a field name to a sample value. Only the JSON kind of the
// sample matters; the value itself is never compared.
type Shape map[string]any

// WriteEntryShape is the expected form of each element of a write batch
var WriteEntryShape = Shape{
	"id":        0,
	"name":      "name",
	"region":    "region",
	"server":    "server",
	"operation": "operation",
}

// SearchShape is the expected form of a search request
var SearchShape = Shape{
	"id": 0,
}

// Kind is the JSON type of a value
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// KindOf classifies v the way a JSON decoder would have produced it
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case string:
		return KindString
	case json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return KindNumber
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Struct:
		return KindObject
	case reflect.Slice, reflect.Array:
		return KindArray
	}
	return KindNull
}

// Validate reports whether data has every field of shape with a matching kind.
//
// data is either a single decoded object or a list of them; for a list each
// element is checked independently and one failure fails the call. Absent or
// empty data never validates. An empty shape accepts any non-empty data.
func Validate(shape Shape, data any) bool {
	switch d := data.(type) {
	case map[string]any:
		return validateObject(shape, d)
	case []any:
		if len(d) == 0 {
			return false
		}
		for _, elem := range d {
			obj, ok := elem.(map[string]any)
			if !ok || !validateObject(shape, obj) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func validateObject(shape Shape, obj map[string]any) bool {
	if len(obj) == 0 {
		return false
	}
	for key, sample := range shape {
		v, ok := obj[key]
		if !ok {
			return false
		}
		if KindOf(v) != KindOf(sample) {
			return false
		}
	}
	return true
}
