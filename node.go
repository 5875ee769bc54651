package subtype

import (
	"bytes"

	"github.com/go-json-experiment/json/jsontext"
)

// objectNode is one buffered JSON object. Unlike the decoder it was read
// from, its members can be inspected in any order and the whole object can
// be read again from the start.
type objectNode jsontext.Value

// lookup returns the raw value of member name. It reports false if the
// member is missing or null. If the name repeats, the last member wins.
func (n objectNode) lookup(name string) (jsontext.Value, bool) {
	var found jsontext.Value
	n.members(func(k string, v jsontext.Value) bool {
		if k == name {
			found = v.Clone()
		}
		return true
	})
	if found == nil || found.Kind() == 'n' {
		return nil, false
	}
	return found, true
}

// payload returns the value to decode into the resolved type. If nestedKey
// is set and the object carries it, that member is the payload and the only
// other member allowed is the discriminator. Otherwise the whole object is.
func (n objectNode) payload(nestedKey, property string) (jsontext.Value, error) {
	if nestedKey == "" {
		return jsontext.Value(n), nil
	}
	var nested jsontext.Value
	inline := false
	n.members(func(k string, v jsontext.Value) bool {
		switch k {
		case nestedKey:
			nested = v.Clone()
		case property:
		default:
			inline = true
		}
		return true
	})
	switch {
	case nested == nil:
		return jsontext.Value(n), nil
	case inline:
		return nil, ErrMixedValue{key: nestedKey}
	}
	return nested, nil
}

// members calls fn for each member of the object, in document order, until
// fn returns false. The node was validated when it was read, under the
// caller's options, so members reads it leniently and errors only stop the
// iteration.
func (n objectNode) members(fn func(name string, v jsontext.Value) bool) {
	dec := n.replay(jsontext.AllowDuplicateNames(true), jsontext.AllowInvalidUTF8(true))
	if tok, err := dec.ReadToken(); err != nil || tok.Kind() != '{' {
		return
	}
	for dec.PeekKind() == '"' {
		tok, err := dec.ReadToken()
		if err != nil {
			return
		}
		name := tok.String()
		v, err := dec.ReadValue()
		if err != nil {
			return
		}
		if !fn(name, v) {
			return
		}
	}
}

// replay returns a fresh decoder positioned at the start of the object.
func (n objectNode) replay(opts ...jsontext.Options) *jsontext.Decoder {
	return jsontext.NewDecoder(bytes.NewReader(n), opts...)
}
