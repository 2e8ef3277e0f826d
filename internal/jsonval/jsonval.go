package jsonval

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Kind is the classification of a single JSON value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Int
	Float
	Text
	Timestamp
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Text:
		return "text"
	case Timestamp:
		return "timestamp"
	case Object:
		return "object"
	case Array:
		return "array"
	}
	return "unknown"
}

// Elements is the classification of the elements of an array value.
type Elements uint8

const (
	ElementsNone Elements = iota // empty array
	ElementsScalar
	ElementsObject
	ElementsMixed
)

// Classify returns the kind of a parsed JSON value. Number values are
// classified as Int unless the source text carries a fraction or exponent.
// String values that parse as RFC 3339 are classified as Timestamp.
func Classify(v gjson.Result) Kind {
	switch v.Type {
	case gjson.Null:
		return Null
	case gjson.True, gjson.False:
		return Bool
	case gjson.Number:
		if strings.ContainsAny(v.Raw, ".eE") {
			return Float
		}
		return Int
	case gjson.String:
		if _, err := time.Parse(time.RFC3339, v.Str); err == nil {
			return Timestamp
		}
		return Text
	default:
		if v.IsArray() {
			return Array
		}
		return Object
	}
}

// IsScalar reports whether a kind maps to a single column value.
func IsScalar(k Kind) bool {
	return k != Object && k != Array
}

// ClassifyElements inspects the elements of an array value. Arrays mixing
// object and scalar elements are reported as ElementsMixed so callers can
// fall back to storing raw JSON.
func ClassifyElements(v gjson.Result) Elements {
	var sawScalar, sawObject bool
	v.ForEach(func(_, el gjson.Result) bool {
		if el.IsObject() {
			sawObject = true
		} else {
			// nested arrays get the raw JSON treatment too
			if el.IsArray() {
				sawScalar = true
				sawObject = true
				return false
			}
			sawScalar = true
		}
		return !(sawScalar && sawObject)
	})
	switch {
	case sawScalar && sawObject:
		return ElementsMixed
	case sawObject:
		return ElementsObject
	case sawScalar:
		return ElementsScalar
	}
	return ElementsNone
}

// Native converts a scalar JSON value to its Go representation for use as a
// SQL bind parameter. Object and array values are returned as their raw
// JSON text, typed json.RawMessage so later type coercion can tell them
// apart from plain strings.
func Native(v gjson.Result) any {
	switch Classify(v) {
	case Null:
		return nil
	case Bool:
		return v.Bool()
	case Int:
		return v.Int()
	case Float:
		return v.Float()
	case Timestamp:
		t, _ := time.Parse(time.RFC3339, v.Str)
		return t
	case Text:
		return v.Str
	default:
		return json.RawMessage(v.Raw)
	}
}
