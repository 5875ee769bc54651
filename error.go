package subtype

import (
	"fmt"
	"reflect"
)

// ErrWriteUnsupported is the error returned for every attempt to marshal a
// value through a [Converter]. Converters only decode.
type ErrWriteUnsupported struct {
	typ string
}

func (e ErrWriteUnsupported) Error() string {
	if e.typ == "" {
		return "cannot marshal: subtype converters are read-only"
	}
	return fmt.Sprintf("cannot marshal %s: subtype converters are read-only", e.typ)
}

// ErrUnrecognizedToken is the error returned when a value of a declared base
// type (or an element of a materialized container) starts with a JSON token
// other than null, an object or an array.
type ErrUnrecognizedToken struct {
	kind string
	typ  reflect.Type
}

func (e ErrUnrecognizedToken) Error() string {
	return fmt.Sprintf("unrecognized token %s while decoding %v", e.kind, e.typ)
}

// ErrUnknownDiscriminatorValue is the error returned in strict mode when an
// object carries a discriminator that resolves to no concrete type
type ErrUnknownDiscriminatorValue struct {
	v    string
	base reflect.Type
}

func (e ErrUnknownDiscriminatorValue) Error() string {
	return fmt.Sprintf("unknown discriminator value %s for %v", e.v, e.base)
}

// ErrCoerce is the error returned when a discriminator value cannot be
// converted to the key type of a declared mapping
type ErrCoerce struct {
	v   string
	typ reflect.Type
	err error
}

func (e ErrCoerce) Error() string {
	return fmt.Sprintf("cannot coerce discriminator %s to %v: %v", e.v, e.typ, e.err)
}

func (e ErrCoerce) Unwrap() error { return e.err }

// ErrNotAssignable is the error returned when the resolved concrete type (or
// a pointer to it) does not implement the declared base type
type ErrNotAssignable struct {
	concrete reflect.Type
	base     reflect.Type
}

func (e ErrNotAssignable) Error() string {
	return fmt.Sprintf("resolved type %v is not assignable to %v", e.concrete, e.base)
}

// ErrInstantiate is the error returned when no container can be built for a
// JSON array
type ErrInstantiate struct {
	typ reflect.Type
}

func (e ErrInstantiate) Error() string {
	return fmt.Sprintf("cannot instantiate a container of type %v", e.typ)
}

// ErrArrayLength is the error returned when a JSON array does not have
// exactly as many elements as the Go array it decodes into
type ErrArrayLength struct {
	typ  reflect.Type
	want int
	got  int
}

func (e ErrArrayLength) Error() string {
	return fmt.Sprintf("cannot decode %d elements into %v (want %d)", e.got, e.typ, e.want)
}

// ErrMixedValue is the error returned when an object carries both a nested
// value and inline members
type ErrMixedValue struct {
	key string
}

func (e ErrMixedValue) Error() string {
	return fmt.Sprintf("found both inline members and nested value %q", e.key)
}

// ErrInvalidKey is the error returned when a declared discriminator value is
// not a scalar
type ErrInvalidKey struct {
	v any
}

func (e ErrInvalidKey) Error() string {
	return fmt.Sprintf("discriminator value %v (%T) is not a scalar", e.v, e.v)
}

// ErrKeyType is the error returned when the discriminator values declared on
// one base type do not share a single Go type
type ErrKeyType struct {
	base reflect.Type
	want reflect.Type
	got  reflect.Type
}

func (e ErrKeyType) Error() string {
	return fmt.Sprintf("discriminator values of %v must be of type %v (got %v)", e.base, e.want, e.got)
}

// ErrNotDeclared is the error returned when a table refers to a base type
// that was never passed to [Declare]
type ErrNotDeclared struct {
	name string
}

func (e ErrNotDeclared) Error() string {
	return fmt.Sprintf("base type %s is not declared", e.name)
}

// ErrUnknownTypeName is the error returned when a table refers to a concrete
// type name that is not registered
type ErrUnknownTypeName struct {
	name string
}

func (e ErrUnknownTypeName) Error() string {
	return fmt.Sprintf("unknown Go type %s", e.name)
}

// ErrAmbiguousTypeName is the error returned when a table refers to a type
// name registered from more than one package
type ErrAmbiguousTypeName struct {
	name string
}

func (e ErrAmbiguousTypeName) Error() string {
	return fmt.Sprintf("ambiguous Go type %s", e.name)
}
