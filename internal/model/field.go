package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Unavailable is how an unresolved field renders in tabular output.
const Unavailable = "N/A"

// Field holds one record attribute: either a resolved value or the
// unavailable sentinel. The zero Field is the sentinel.
type Field[T comparable] struct {
	value T
	ok    bool
}

// Some returns a resolved field.
func Some[T comparable](v T) Field[T] {
	return Field[T]{value: v, ok: true}
}

// None returns the unavailable sentinel.
func None[T comparable]() Field[T] {
	return Field[T]{}
}

// Get returns the value and whether it was resolved.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.ok
}

// Valid reports whether the field holds a resolved value.
func (f Field[T]) Valid() bool {
	return f.ok
}

// Or returns the value, or def when the field is unavailable.
func (f Field[T]) Or(def T) T {
	if !f.ok {
		return def
	}
	return f.value
}

// String renders the value, or Unavailable for the sentinel.
func (f Field[T]) String() string {
	if !f.ok {
		return Unavailable
	}
	switch v := any(f.value).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

// MarshalJSON encodes the sentinel as null so the key is always present.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON decodes null as the sentinel.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}
