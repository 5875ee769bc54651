package subtype

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pet interface{ name() string }

type cat struct{ Name string }

func (c cat) name() string { return c.Name }

type dog struct{ Name string }

func (d *dog) name() string { return d.Name }

type stray struct{}

func (stray) name() string { return "" }

func TestDeclare(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, Declare[pet](r, Of[cat]("cat"), Of[*dog]("dog")))

	petType := reflect.TypeFor[pet]()
	assert.Equal(t, map[any]reflect.Type{
		"cat": reflect.TypeFor[cat](),
		"dog": reflect.TypeFor[*dog](),
	}, r.Mapping(petType))
	assert.Equal(t, []reflect.Type{petType}, r.order)
	assert.Equal(t, reflect.TypeFor[string](), r.bases[petType].key)

	// A slice collection is installed for the base
	assert.Contains(t, r.collections, reflect.TypeFor[[]pet]())

	// Declaring again adds to the mapping; the last value wins
	require.NoError(t, Declare[pet](r, Of[stray]("dog")))
	assert.Equal(t, reflect.TypeFor[stray](), r.Mapping(petType)["dog"])
	assert.Len(t, r.order, 1)
	assert.Len(t, r.corder, 1)
}

func TestDeclare_KeyTypes(t *testing.T) {
	r := NewRegistry()
	err := Declare[pet](r, Of[cat]("cat"), Of[dog](2))
	var ke ErrKeyType
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, reflect.TypeFor[string](), ke.want)
	assert.Equal(t, reflect.TypeFor[int](), ke.got)

	// Nothing was declared, not even the base
	assert.Empty(t, r.Mapping(reflect.TypeFor[pet]()))
	assert.Empty(t, r.order)
	assert.NotContains(t, r.collections, reflect.TypeFor[[]pet]())

	_, err = r.findBase("subtype.pet")
	assert.ErrorIs(t, err, ErrNotDeclared{name: "subtype.pet"})

	require.NoError(t, Declare[pet](r, Of[cat](1)))
	err = Declare[pet](r, Of[dog]("dog"))
	require.ErrorAs(t, err, &ke)

	err = Declare[pet](r, Of[dog]([]string{"dog"}))
	var ie ErrInvalidKey
	require.ErrorAs(t, err, &ie)

	// A failed declaration leaves earlier ones alone
	assert.Equal(t, map[any]reflect.Type{1: reflect.TypeFor[cat]()}, r.Mapping(reflect.TypeFor[pet]()))

	fresh := NewRegistry()
	require.ErrorAs(t, Declare[pet](fresh, Of[dog]([]string{"dog"})), &ie)
	assert.Empty(t, fresh.order)

	assert.Panics(t, func() { MustDeclare[pet](r, Of[dog](nil)) })
}

func TestDeclare_KeepsCollection(t *testing.T) {
	r := NewRegistry()
	Collect(r, Collection[[]pet, pet]{})
	col := r.collections[reflect.TypeFor[[]pet]()]

	MustDeclare[pet](r, Of[cat]("cat"))
	assert.Same(t, col, r.collections[reflect.TypeFor[[]pet]()])
}

func TestFallback(t *testing.T) {
	r := NewRegistry()
	Fallback[pet, stray](r)

	d := r.bases[reflect.TypeFor[pet]()]
	require.NotNil(t, d)
	assert.Equal(t, reflect.TypeFor[stray](), d.fallback)
	assert.Empty(t, d.mapping)

	got, err := r.findName("subtype.stray")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[stray](), got)
}

func TestRegisterName(t *testing.T) {
	r := NewRegistry()
	RegisterName[cat](r)
	RegisterName[*dog](r)
	RegisterName[[]int](r) // unnamed types are ignored

	pkg := reflect.TypeFor[cat]().PkgPath()
	got, ok := r.lookupName(pkg, "subtype.cat")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[cat](), got)

	got, ok = r.lookupName(pkg, "subtype.dog")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[*dog](), got)

	_, ok = r.lookupName("other/pkg", "subtype.cat")
	assert.False(t, ok)
	assert.Len(t, r.names, 1)
}

func TestFindName(t *testing.T) {
	r := NewRegistry()
	RegisterName[cat](r)
	RegisterName[*dog](r)

	tests := []struct {
		name string
		want reflect.Type
	}{
		{"subtype.cat", reflect.TypeFor[cat]()},
		{"*subtype.cat", reflect.TypeFor[*cat]()},
		{"subtype.dog", reflect.TypeFor[*dog]()},
		{"*subtype.dog", reflect.TypeFor[*dog]()},
	}
	for _, tt := range tests {
		got, err := r.findName(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := r.findName("subtype.stray")
	assert.ErrorIs(t, err, ErrUnknownTypeName{name: "subtype.stray"})

	// The same name in two packages
	r.names["example.com/subtype"] = map[string]reflect.Type{"subtype.cat": reflect.TypeFor[stray]()}
	_, err = r.findName("subtype.cat")
	assert.ErrorIs(t, err, ErrAmbiguousTypeName{name: "subtype.cat"})
}

func TestFindBase(t *testing.T) {
	r := NewRegistry()
	MustDeclare[pet](r)

	d, err := r.findBase("subtype.pet")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[pet](), d.typ)

	_, err = r.findBase("subtype.cat")
	assert.ErrorIs(t, err, ErrNotDeclared{name: "subtype.cat"})
}

func TestRegistry_Clone(t *testing.T) {
	r := NewRegistry()
	MustDeclare[pet](r, Of[cat]("cat"))
	RegisterName[*dog](r)

	c := r.clone()
	MustDeclare[pet](r, Of[*dog]("dog"))
	Fallback[pet, stray](r)
	RegisterName[stray](r)
	Collect(r, Array[[2]pet, pet]())

	d := c.bases[reflect.TypeFor[pet]()]
	assert.Len(t, d.mapping, 1)
	assert.Nil(t, d.fallback)
	_, err := c.findName("subtype.stray")
	assert.Error(t, err)
	_, err = c.findName("subtype.dog")
	assert.NoError(t, err)
	assert.Len(t, c.corder, 1)

	// A nil registry clones to an empty one
	var nilReg *Registry
	assert.Empty(t, nilReg.clone().order)
}

func TestRegistry_ZeroValue(t *testing.T) {
	var r Registry
	require.NoError(t, Declare[pet](&r, Of[cat]("cat")))
	assert.Len(t, r.Mapping(reflect.TypeFor[pet]()), 1)
	assert.Empty(t, r.Mapping(reflect.TypeFor[cat]()))
}
