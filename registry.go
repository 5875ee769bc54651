package subtype

import (
	"reflect"
	"strings"

	"github.com/go-json-experiment/json"
)

// Subtype pairs a discriminator value with the concrete Go type it selects.
type Subtype struct {
	Value any
	Type  reflect.Type
}

// Of returns a [Subtype] selecting C for discriminator value v.
func Of[C any](v any) Subtype {
	return Subtype{Value: v, Type: reflect.TypeFor[C]()}
}

// Registry holds the base types a [Converter] decodes, the subtypes declared
// on each of them, and the table of type names used when a base declares no
// subtypes.
//
// A Registry is not safe for concurrent modification. Populate it before
// passing it to [New]; the Converter keeps its own copy.
type Registry struct {
	bases       map[reflect.Type]*base
	order       []reflect.Type
	names       map[string]map[string]reflect.Type // package path -> qualified name -> type
	collections map[reflect.Type]*collection
	corder      []reflect.Type
}

type base struct {
	typ      reflect.Type
	key      reflect.Type // nil until the first subtype is declared
	mapping  map[any]reflect.Type
	fallback reflect.Type
	bind     func(*decodeState) *json.Unmarshalers
	fail     *json.Marshalers
}

type collection struct {
	typ  reflect.Type
	open func() container
	bind func(*decodeState) *json.Unmarshalers
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.init()
	return r
}

func (r *Registry) init() {
	if r.bases == nil {
		r.bases = map[reflect.Type]*base{}
	}
	if r.names == nil {
		r.names = map[string]map[string]reflect.Type{}
	}
	if r.collections == nil {
		r.collections = map[reflect.Type]*collection{}
	}
}

// Declare registers B as a base type and declares its subtypes.
//
// Every discriminator value declared on one base must have the same Go type,
// which must be a boolean, numeric or string kind. Named integer types act as
// enumerations. When a value is declared twice, the last declaration wins.
// If any value is invalid, nothing is declared.
//
// A base declared without subtypes resolves discriminators by type name; see
// [RegisterName].
//
// Declare also installs a [Slice] collection for []B, so that each element of
// a JSON array is resolved on its own.
func Declare[B any](r *Registry, subtypes ...Subtype) error {
	r.init()
	t := reflect.TypeFor[B]()

	var key reflect.Type
	if d, ok := r.bases[t]; ok {
		key = d.key
	}
	for _, st := range subtypes {
		kt, err := keyType(st.Value)
		if err != nil {
			return err
		}
		if key == nil {
			key = kt
		}
		if kt != key {
			return ErrKeyType{base: t, want: key, got: kt}
		}
	}

	d := r.declare(t, bindBase[B], failBase[B]())
	d.key = key
	for _, st := range subtypes {
		d.mapping[st.Value] = st.Type
		r.addName(st.Type)
	}

	if _, ok := r.collections[reflect.TypeFor[[]B]()]; !ok {
		Collect(r, Slice[B]())
	}
	return nil
}

// MustDeclare is like [Declare] but panics if the declaration is invalid.
func MustDeclare[B any](r *Registry, subtypes ...Subtype) {
	if err := Declare[B](r, subtypes...); err != nil {
		panic(err)
	}
}

// Fallback sets C as the type decoded for values of base B whose
// discriminator is missing or resolves to nothing. Without a fallback those
// values decode as B itself, which fails for non-empty interfaces.
func Fallback[B, C any](r *Registry) {
	r.init()
	d := r.declare(reflect.TypeFor[B](), bindBase[B], failBase[B]())
	d.fallback = reflect.TypeFor[C]()
	r.addName(d.fallback)
}

// RegisterName adds T to the table of types that a discriminator can name.
//
// T is registered under its package-qualified name (e.g. "shapes.Circle"),
// within the group of its package path. Pointer types are registered under
// the name of the type they point to.
func RegisterName[T any](r *Registry) {
	r.init()
	r.addName(reflect.TypeFor[T]())
}

// Mapping returns a copy of the subtypes declared on base type t, keyed by
// discriminator value. It is empty if t declares no subtypes.
func (r *Registry) Mapping(t reflect.Type) map[any]reflect.Type {
	m := map[any]reflect.Type{}
	if d, ok := r.bases[t]; ok {
		for k, v := range d.mapping {
			m[k] = v
		}
	}
	return m
}

func (r *Registry) declare(t reflect.Type, bind func(*decodeState) *json.Unmarshalers, fail *json.Marshalers) *base {
	if d, ok := r.bases[t]; ok {
		return d
	}
	d := &base{
		typ:     t,
		mapping: map[any]reflect.Type{},
		bind:    bind,
		fail:    fail,
	}
	r.bases[t] = d
	r.order = append(r.order, t)
	return d
}

func (r *Registry) addName(t reflect.Type) {
	named := t
	if named.Kind() == reflect.Pointer {
		named = named.Elem()
	}
	if named.Name() == "" {
		return
	}
	group := r.names[named.PkgPath()]
	if group == nil {
		group = map[string]reflect.Type{}
		r.names[named.PkgPath()] = group
	}
	group[named.String()] = t
}

// lookupName finds a type by name within the group of package path pkg.
func (r *Registry) lookupName(pkg, name string) (reflect.Type, bool) {
	t, ok := r.names[pkg][name]
	return t, ok
}

// findName finds a type by qualified name across all groups. A leading "*"
// names the pointer type.
func (r *Registry) findName(name string) (reflect.Type, error) {
	if elem, ok := strings.CutPrefix(name, "*"); ok {
		t, err := r.findName(elem)
		if err != nil {
			return nil, err
		}
		if t.Kind() != reflect.Pointer {
			t = reflect.PointerTo(t)
		}
		return t, nil
	}

	var found reflect.Type
	for _, group := range r.names {
		t, ok := group[name]
		if !ok {
			continue
		}
		if found != nil && found != t {
			return nil, ErrAmbiguousTypeName{name: name}
		}
		found = t
	}
	if found == nil {
		return nil, ErrUnknownTypeName{name: name}
	}
	return found, nil
}

// findBase finds a declared base type by qualified name.
func (r *Registry) findBase(name string) (*base, error) {
	var found *base
	for _, t := range r.order {
		if t.String() != name {
			continue
		}
		if found != nil {
			return nil, ErrAmbiguousTypeName{name: name}
		}
		found = r.bases[t]
	}
	if found == nil {
		return nil, ErrNotDeclared{name: name}
	}
	return found, nil
}

// clone copies r so a Converter is unaffected by later declarations.
func (r *Registry) clone() *Registry {
	c := NewRegistry()
	if r == nil {
		return c
	}
	for _, t := range r.order {
		d := *r.bases[t]
		d.mapping = make(map[any]reflect.Type, len(d.mapping))
		for k, v := range r.bases[t].mapping {
			d.mapping[k] = v
		}
		c.bases[t] = &d
		c.order = append(c.order, t)
	}
	for pkg, group := range r.names {
		g := make(map[string]reflect.Type, len(group))
		for k, v := range group {
			g[k] = v
		}
		c.names[pkg] = g
	}
	for _, t := range r.corder {
		col := *r.collections[t]
		c.collections[t] = &col
		c.corder = append(c.corder, t)
	}
	return c
}
