package subtype

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/go-json-experiment/json"
	"gopkg.in/yaml.v3"
)

// Table is a declarative set of subtype declarations, usually loaded from
// YAML:
//
//	subtypes:
//	  - {base: zoo.Animal, value: cat, type: zoo.Cat}
//	  - {base: zoo.Animal, value: dog, type: "*zoo.Dog"}
//	fallbacks:
//	  - {base: zoo.Animal, type: zoo.BaseAnimal}
//
// Names are package-qualified Go type names. Base types must already be
// declared with [Declare]; concrete types must be registered with
// [RegisterName], or named by an earlier declaration.
type Table struct {
	Subtypes  []TableSubtype  `yaml:"subtypes"`
	Fallbacks []TableFallback `yaml:"fallbacks"`
}

// TableSubtype declares that Value selects Type for base type Base.
type TableSubtype struct {
	Base  string `yaml:"base"`
	Value any    `yaml:"value"`
	Type  string `yaml:"type"`
}

// TableFallback sets Type as the [Fallback] of base type Base.
type TableFallback struct {
	Base string `yaml:"base"`
	Type string `yaml:"type"`
}

// LoadTable applies the YAML table in data. See [Table].
func (r *Registry) LoadTable(data []byte) error {
	return r.ReadTable(bytes.NewReader(data))
}

// ReadTable applies the YAML table read from in. Unknown fields are an
// error. An empty document is an empty table.
func (r *Registry) ReadTable(in io.Reader) error {
	var tbl Table
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	if err := dec.Decode(&tbl); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode table: %w", err)
	}
	return r.Apply(tbl)
}

// Apply checks every row of tbl and then declares them in order. If any row
// is invalid, nothing is declared.
//
// Values are converted to the type of the values already declared on the
// base, the way discriminators are; the first value declared on a base
// without subtypes sets its type (YAML integers are ints).
func (r *Registry) Apply(tbl Table) error {
	r.init()

	type row struct {
		d   *base
		key any
		typ reflect.Type
	}
	var rows []row
	keys := map[*base]reflect.Type{}

	for i, st := range tbl.Subtypes {
		d, err := r.findBase(st.Base)
		if err != nil {
			return fmt.Errorf("subtypes[%d]: %w", i, err)
		}
		t, err := r.findName(st.Type)
		if err != nil {
			return fmt.Errorf("subtypes[%d]: %w", i, err)
		}

		want, ok := keys[d]
		if !ok {
			want = d.key
		}
		var k any
		if want == nil {
			if want, err = keyType(st.Value); err != nil {
				return fmt.Errorf("subtypes[%d]: %w", i, err)
			}
			k = st.Value
		} else {
			b, err := json.Marshal(st.Value)
			if err != nil {
				return fmt.Errorf("subtypes[%d]: %w", i, ErrInvalidKey{v: st.Value})
			}
			if k, err = coerce(b, want, d.mapping); err != nil {
				return fmt.Errorf("subtypes[%d]: %w", i, err)
			}
		}
		keys[d] = want
		rows = append(rows, row{d: d, key: k, typ: t})
	}

	var fallbacks []row
	for i, fb := range tbl.Fallbacks {
		d, err := r.findBase(fb.Base)
		if err != nil {
			return fmt.Errorf("fallbacks[%d]: %w", i, err)
		}
		t, err := r.findName(fb.Type)
		if err != nil {
			return fmt.Errorf("fallbacks[%d]: %w", i, err)
		}
		fallbacks = append(fallbacks, row{d: d, typ: t})
	}

	for _, rw := range rows {
		rw.d.key = keys[rw.d]
		rw.d.mapping[rw.key] = rw.typ
	}
	for _, rw := range fallbacks {
		rw.d.fallback = rw.typ
	}
	return nil
}
