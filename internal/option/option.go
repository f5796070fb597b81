// Package option implements the three-valued "unset / explicit-none / some"
// encoding that the source-tree configuration format relies on to
// distinguish "inherit the registry default" from "explicitly override the
// default to mean none".
package option

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// explicitNoneTOML is the sentinel TOML value that stands for the
// ExplicitOption "none" variant. It is never exposed to callers directly;
// it only ever appears on the wire.
const explicitNoneTOML = "none"

// ExplicitOption is T, or the explicit absence of T, distinguishable from
// an unset field (see DoubleOption). Only constructible through Some, None
// or FromPointer.
type ExplicitOption[T any] struct {
	value T
	some  bool
}

// Some wraps a present value.
func Some[T any](v T) ExplicitOption[T] {
	return ExplicitOption[T]{value: v, some: true}
}

// None returns the explicit-absence variant.
func None[T any]() ExplicitOption[T] {
	return ExplicitOption[T]{}
}

// FromPointer converts an ordinary optional value (nil meaning absent)
// into an ExplicitOption.
func FromPointer[T any](v *T) ExplicitOption[T] {
	if v == nil {
		return None[T]()
	}
	return Some(*v)
}

// Get reports the wrapped value and whether it is present.
func (e ExplicitOption[T]) Get() (T, bool) {
	return e.value, e.some
}

// Pointer converts back to an ordinary optional value.
func (e ExplicitOption[T]) Pointer() *T {
	if !e.some {
		return nil
	}
	v := e.value
	return &v
}

// MarshalTOML implements toml.Marshaler. The "none" variant serializes as
// the bare string "none"; the "some" variant serializes as T itself.
func (e ExplicitOption[T]) MarshalTOML() ([]byte, error) {
	if !e.some {
		return toml.Marshal(explicitNoneTOML)
	}
	return toml.Marshal(e.value)
}

// UnmarshalTOML implements toml.Unmarshaler. It is handed the
// already-decoded value (a string, map, slice, ...); the untagged
// discipline is: the string "none" decodes to the absent variant, anything
// else is re-encoded and decoded as T.
func (e *ExplicitOption[T]) UnmarshalTOML(value any) error {
	if s, ok := value.(string); ok && s == explicitNoneTOML {
		*e = None[T]()
		return nil
	}
	data, err := toml.Marshal(value)
	if err != nil {
		return fmt.Errorf("option: cannot re-encode value for decoding: %w", err)
	}
	var v T
	if err := toml.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("option: cannot decode value as %T: %w", v, err)
	}
	*e = Some(v)
	return nil
}

// DoubleOption is Option[ExplicitOption[T]] realized as a pointer: nil
// means the field was omitted from the document entirely ("unset"); a
// non-nil ExplicitOption in its "none" variant means the field was present
// with the value "none" ("explicit none"); a non-nil ExplicitOption in its
// "some" variant means the field carried a value.
//
// A DoubleOption field should always be declared with the `,omitempty`
// TOML tag so that the unset state round-trips as a genuinely absent key.
type DoubleOption[T any] = *ExplicitOption[T]

// DoubleSome builds a DoubleOption carrying a present value.
func DoubleSome[T any](v T) DoubleOption[T] {
	e := Some(v)
	return &e
}

// DoubleExplicitNone builds a DoubleOption carrying the "none" variant.
func DoubleExplicitNone[T any]() DoubleOption[T] {
	e := None[T]()
	return &e
}

// Or implements the merge rule of §4.1: take this side's value if present,
// otherwise fall back to the other side.
func Or[T any](this, fallback DoubleOption[T]) DoubleOption[T] {
	if this != nil {
		return this
	}
	return fallback
}

// Resolve turns the three-valued rule into a plain Go optional plus a
// presence flag: unset reports present=false (callers merge with Or before
// resolving), explicit-none resolves to nil, some resolves to a pointer to
// the value.
func Resolve[T any](d DoubleOption[T]) (*T, bool) {
	if d == nil {
		return nil, false
	}
	return d.Pointer(), true
}
