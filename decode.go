package subtype

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// decodeState is the state of one decode call.
//
// Resolving an object means decoding it a second time, from a buffered copy,
// into the resolved type. When that type is the declared base type itself,
// the json package calls our unmarshal function again for the very same
// object. To avoid resolving (and recursing) forever, each replay gets a new
// decodeState whose reader is the replay decoder: on that decoder, before it
// has moved below the object boundary, base handlers return json.SkipFunc and
// the object is decoded by the default rules. Deeper values resolve as usual.
//
// States are never mutated after they are made, so a Converter holds no
// per-call state and can be shared freely.
type decodeState struct {
	c      *Converter
	extra  *json.Unmarshalers // caller-supplied unmarshalers
	reader *jsontext.Decoder  // nil outside of a replay
}

func (s *decodeState) unmarshalers() *json.Unmarshalers {
	reg := s.c.reg
	us := make([]*json.Unmarshalers, 0, len(reg.order)+len(reg.corder)+1)
	for _, t := range reg.order {
		us = append(us, reg.bases[t].bind(s))
	}
	for _, t := range reg.corder {
		us = append(us, reg.collections[t].bind(s))
	}
	us = append(us, s.extra)
	return json.JoinUnmarshalers(us...)
}

// atBoundary reports whether dec is the replay decoder of s and is still
// positioned at the object it replays.
func (s *decodeState) atBoundary(dec *jsontext.Decoder) bool {
	return s.reader != nil && dec == s.reader && dec.StackPointer() == ""
}

func bindBase[B any](s *decodeState) *json.Unmarshalers {
	t := reflect.TypeFor[B]()
	return json.UnmarshalFromFunc(func(dec *jsontext.Decoder, v *B) error {
		if s.atBoundary(dec) {
			return json.SkipFunc
		}
		rv, err := s.decode(dec, s.c.reg.bases[t])
		if err != nil {
			return err
		}
		reflect.ValueOf(v).Elem().Set(rv)
		return nil
	})
}

func bindCollection[C any](s *decodeState) *json.Unmarshalers {
	t := reflect.TypeFor[C]()
	return json.UnmarshalFromFunc(func(dec *jsontext.Decoder, v *C) error {
		switch k := dec.PeekKind(); k {
		case 'n':
			if _, err := dec.ReadToken(); err != nil {
				return err
			}
			var zero C
			*v = zero
			return nil
		case '[':
			rv, err := s.decodeArray(dec, t)
			if err != nil {
				return err
			}
			reflect.ValueOf(v).Elem().Set(rv)
			return nil
		default:
			return unrecognized(dec, k, t)
		}
	})
}

func failBase[B any]() *json.Marshalers {
	return json.MarshalToFunc(func(enc *jsontext.Encoder, v B) error {
		return ErrWriteUnsupported{typ: fmt.Sprintf("%T", v)}
	})
}

// decode reads one value of base type d from dec. The result is always of
// type d.typ.
func (s *decodeState) decode(dec *jsontext.Decoder, d *base) (reflect.Value, error) {
	switch k := dec.PeekKind(); k {
	case 'n':
		if _, err := dec.ReadToken(); err != nil {
			return reflect.Value{}, err
		}
		return reflect.Zero(d.typ), nil
	case '[':
		t := d.typ
		if d.fallback != nil {
			t = d.fallback
		}
		v, err := s.decodeArray(dec, t)
		if err != nil {
			return reflect.Value{}, err
		}
		return assign(v, d.typ)
	case '{':
		return s.decodeObject(dec, d)
	default:
		return reflect.Value{}, unrecognized(dec, k, d.typ)
	}
}

func (s *decodeState) decodeObject(dec *jsontext.Decoder, d *base) (reflect.Value, error) {
	raw, err := dec.ReadValue()
	if err != nil {
		return reflect.Value{}, err
	}
	node := objectNode(raw.Clone())

	t, err := s.c.selectType(node, d)
	if err != nil {
		return reflect.Value{}, err
	}
	if t == nil {
		t = d.fallback
	}
	if t == nil {
		t = d.typ
	}

	payload, err := node.payload(s.c.nestedKey, s.c.property)
	if err != nil {
		return reflect.Value{}, err
	}
	v, err := s.replay(dec, payload, t)
	if err != nil {
		return reflect.Value{}, err
	}
	return assign(v, d.typ)
}

// decodeArray reads a JSON array into a new container of type t.
func (s *decodeState) decodeArray(dec *jsontext.Decoder, t reflect.Type) (reflect.Value, error) {
	c, err := s.c.reg.materialize(t)
	if err != nil {
		return reflect.Value{}, err
	}
	if _, err := dec.ReadToken(); err != nil {
		return reflect.Value{}, err
	}
	for dec.PeekKind() != ']' {
		if err := c.decodeNext(dec); err != nil {
			return reflect.Value{}, err
		}
	}
	if _, err := dec.ReadToken(); err != nil {
		return reflect.Value{}, err
	}
	return c.finalize()
}

// replay decodes a buffered value into a new value of type t, through a
// fresh decoder guarded by a new decodeState.
func (s *decodeState) replay(dec *jsontext.Decoder, raw jsontext.Value, t reflect.Type) (reflect.Value, error) {
	sub := jsontext.NewDecoder(bytes.NewReader(raw), coderOptions(dec)...)
	next := &decodeState{c: s.c, extra: s.extra, reader: sub}

	p := reflect.New(t)
	if err := json.UnmarshalDecode(sub, p.Interface(), dec.Options(), json.WithUnmarshalers(next.unmarshalers())); err != nil {
		return reflect.Value{}, fmt.Errorf("failed to decode as %v: %w", t, err)
	}
	return p.Elem(), nil
}

// coderOptions returns the syntactic options of dec that a replay of a value
// read from dec must share, so that whatever dec accepted decodes again.
func coderOptions(dec *jsontext.Decoder) []jsontext.Options {
	opts := dec.Options()
	var out []jsontext.Options
	for _, set := range []func(bool) jsontext.Options{
		jsontext.AllowDuplicateNames,
		jsontext.AllowInvalidUTF8,
	} {
		if v, ok := json.GetOption(opts, set); ok {
			out = append(out, set(v))
		}
	}
	return out
}

// assign converts v to type to, taking the address of v when only a pointer
// to it implements to.
func assign(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	out := reflect.New(to).Elem()
	switch {
	case v.Type().AssignableTo(to):
		out.Set(v)
	case v.CanAddr() && v.Addr().Type().AssignableTo(to):
		out.Set(v.Addr())
	default:
		return reflect.Value{}, ErrNotAssignable{concrete: v.Type(), base: to}
	}
	return out, nil
}

// unrecognized returns the error for a value starting with token kind k.
func unrecognized(dec *jsontext.Decoder, k jsontext.Kind, t reflect.Type) error {
	if k == 0 {
		// PeekKind hides the reason; ReadToken reports it.
		if _, err := dec.ReadToken(); err != nil {
			return err
		}
	}
	return ErrUnrecognizedToken{kind: k.String(), typ: t}
}
