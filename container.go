package subtype

import (
	"reflect"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Collection describes how to build a container of type C from the elements
// of a JSON array. Each element is decoded as an E on its own, so elements of
// a declared base type are resolved one by one.
type Collection[C, E any] struct {
	// Buffer returns the growable buffer elements are appended to.
	// If nil, an empty []E is used.
	Buffer func() []E

	// Finalize builds the container from the populated buffer.
	// If nil, the buffer is converted to C, which must be a slice type.
	Finalize func([]E) (C, error)
}

// Slice returns the Collection for []E.
func Slice[E any]() Collection[[]E, E] {
	return Collection[[]E, E]{
		Finalize: func(buf []E) ([]E, error) { return buf, nil },
	}
}

// Array returns the Collection for the Go array type A, whose elements must
// be of type E. The JSON array must have exactly as many elements as A.
func Array[A, E any]() Collection[A, E] {
	return Collection[A, E]{
		Buffer: func() []E {
			var a A
			if t := reflect.TypeOf(a); t != nil && t.Kind() == reflect.Array {
				return make([]E, 0, t.Len())
			}
			return nil
		},
		Finalize: func(buf []E) (A, error) {
			var a A
			v := reflect.ValueOf(&a).Elem()
			if v.Kind() != reflect.Array || v.Type().Elem() != reflect.TypeFor[E]() {
				return a, ErrInstantiate{typ: v.Type()}
			}
			if v.Len() != len(buf) {
				return a, ErrArrayLength{typ: v.Type(), want: v.Len(), got: len(buf)}
			}
			reflect.Copy(v, reflect.ValueOf(buf))
			return a, nil
		},
	}
}

// Collect registers col as the way to decode JSON arrays into C. It replaces
// any collection registered earlier for C, including the one [Declare]
// installs for slices of a base type.
func Collect[C, E any](r *Registry, col Collection[C, E]) {
	r.init()
	t := reflect.TypeFor[C]()
	if _, ok := r.collections[t]; !ok {
		r.corder = append(r.corder, t)
	}
	r.collections[t] = &collection{
		typ: t,
		open: func() container {
			tc := &typedContainer[C, E]{col: col}
			if col.Buffer != nil {
				tc.buf = col.Buffer()
			}
			if tc.buf == nil {
				tc.buf = []E{}
			}
			return tc
		},
		bind: bindCollection[C],
	}
}

// container is the working buffer for one JSON array.
type container interface {
	// decodeNext decodes the next array element into the buffer.
	decodeNext(dec *jsontext.Decoder) error
	// finalize returns the finished container.
	finalize() (reflect.Value, error)
}

// materialize returns the working buffer for a JSON array decoded into t.
// Registered collections come first; otherwise slices are built directly
// and arrays through a slice buffer. Any other type cannot hold an array.
func (r *Registry) materialize(t reflect.Type) (container, error) {
	if col, ok := r.collections[t]; ok {
		return col.open(), nil
	}
	switch t.Kind() {
	case reflect.Slice:
		return &reflectContainer{typ: t, buf: reflect.MakeSlice(t, 0, 0)}, nil
	case reflect.Array:
		return &reflectContainer{typ: t, buf: reflect.MakeSlice(reflect.SliceOf(t.Elem()), 0, t.Len())}, nil
	}
	return nil, ErrInstantiate{typ: t}
}

type typedContainer[C, E any] struct {
	col Collection[C, E]
	buf []E
}

func (c *typedContainer[C, E]) decodeNext(dec *jsontext.Decoder) error {
	var e E
	if err := json.UnmarshalDecode(dec, &e); err != nil {
		return err
	}
	c.buf = append(c.buf, e)
	return nil
}

func (c *typedContainer[C, E]) finalize() (reflect.Value, error) {
	var out C
	v := reflect.ValueOf(&out).Elem()
	if c.col.Finalize == nil {
		b := reflect.ValueOf(c.buf)
		if v.Kind() != reflect.Slice || !b.Type().ConvertibleTo(v.Type()) {
			return reflect.Value{}, ErrInstantiate{typ: v.Type()}
		}
		v.Set(b.Convert(v.Type()))
		return v, nil
	}
	out, err := c.col.Finalize(c.buf)
	if err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

type reflectContainer struct {
	typ reflect.Type
	buf reflect.Value
}

func (c *reflectContainer) decodeNext(dec *jsontext.Decoder) error {
	p := reflect.New(c.typ.Elem())
	if err := json.UnmarshalDecode(dec, p.Interface()); err != nil {
		return err
	}
	c.buf = reflect.Append(c.buf, p.Elem())
	return nil
}

func (c *reflectContainer) finalize() (reflect.Value, error) {
	if c.typ.Kind() != reflect.Array {
		return c.buf, nil
	}
	if c.buf.Len() != c.typ.Len() {
		return reflect.Value{}, ErrArrayLength{typ: c.typ, want: c.typ.Len(), got: c.buf.Len()}
	}
	a := reflect.New(c.typ).Elem()
	reflect.Copy(a, c.buf)
	return a, nil
}
