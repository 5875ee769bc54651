package subtype

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

type Config struct {
	// Logger receives a Debug record each time an object's type is selected
	// and a Warn record when an object carries a discriminator that resolves
	// to no type.
	//
	// If unset, nothing is logged.
	Logger *slog.Logger

	// By default, an object whose discriminator resolves to no type decodes
	// as the declared type (or its [Fallback]).
	//
	// If Strict is set, decoding fails with [ErrUnknownDiscriminatorValue]
	// instead. Objects without a discriminator are not affected.
	Strict bool

	// NestedValueKey, if set, is the key under which objects may nest their
	// value, as in:
	//
	//	{"kind": "hash", "_value": 5}
	//
	// The nested value then decodes into the selected type. An object that
	// carries the nested key must not have members other than the
	// discriminator.
	NestedValueKey string
}

// Converter decodes values of the base types declared in a [Registry],
// selecting each value's concrete type from the discriminator property of
// its JSON object.
//
// A Converter is read-only: every attempt to marshal through it fails with
// [ErrWriteUnsupported]. It keeps no per-call state and is safe for
// concurrent use.
type Converter struct {
	property  string
	reg       *Registry
	logger    *slog.Logger
	strict    bool
	nestedKey string
}

// New creates a Converter that reads discriminators from the JSON object
// member named property. The Converter takes a copy of r; later
// declarations do not affect it.
//
// If property is empty, the Converter handles no types, and values decode
// according to the default rules of [json.Unmarshal].
func New(property string, r *Registry, cfg *Config) *Converter {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Converter{
		property:  property,
		reg:       r.clone(),
		logger:    logger,
		strict:    cfg.Strict,
		nestedKey: cfg.NestedValueKey,
	}
}

// CanConvert reports whether the Converter takes part in decoding. It does
// for every type as soon as a discriminator property is configured; values
// of types it does not declare decode by the default rules.
func (c *Converter) CanConvert(reflect.Type) bool {
	return c.property != ""
}

// CanWrite reports whether the Converter can marshal values. It never can.
func (c *Converter) CanWrite() bool {
	return false
}

// JSONOptions returns opts joined with the marshalers and unmarshalers of
// the Converter, for use with [json.Unmarshal] and friends. Unmarshalers set
// in opts still apply, after those of the Converter.
//
// The marshalers fail for every value of a declared base type.
func (c *Converter) JSONOptions(opts ...json.Options) json.Options {
	joined := json.JoinOptions(opts...)
	if c.property == "" {
		return joined
	}

	extraMarshalers, _ := json.GetOption(joined, json.WithMarshalers)
	extraUnmarshalers, _ := json.GetOption(joined, json.WithUnmarshalers)

	s := &decodeState{c: c, extra: extraUnmarshalers}
	out := []json.Options{joined}
	if ms := json.JoinMarshalers(c.marshalers(), extraMarshalers); ms != nil {
		out = append(out, json.WithMarshalers(ms))
	}
	if us := s.unmarshalers(); us != nil {
		out = append(out, json.WithUnmarshalers(us))
	}
	return json.JoinOptions(out...)
}

func (c *Converter) marshalers() *json.Marshalers {
	ms := make([]*json.Marshalers, 0, len(c.reg.order))
	for _, t := range c.reg.order {
		ms = append(ms, c.reg.bases[t].fail)
	}
	return json.JoinMarshalers(ms...)
}

// Unmarshal decodes in into out, which must be a non-nil pointer.
func (c *Converter) Unmarshal(in []byte, out any, opts ...json.Options) error {
	return json.Unmarshal(in, out, c.JSONOptions(opts...))
}

// UnmarshalRead decodes the JSON value read from in into out.
func (c *Converter) UnmarshalRead(in io.Reader, out any, opts ...json.Options) error {
	return json.UnmarshalRead(in, out, c.JSONOptions(opts...))
}

// UnmarshalDecode decodes the next JSON value from dec into out.
func (c *Converter) UnmarshalDecode(dec *jsontext.Decoder, out any, opts ...json.Options) error {
	return json.UnmarshalDecode(dec, out, c.JSONOptions(opts...))
}

// Decode decodes the next JSON value from dec as a value of type t.
func (c *Converter) Decode(dec *jsontext.Decoder, t reflect.Type, opts ...json.Options) (any, error) {
	p := reflect.New(t)
	if err := c.UnmarshalDecode(dec, p.Interface(), opts...); err != nil {
		return nil, err
	}
	return p.Elem().Interface(), nil
}

// Marshal always fails with [ErrWriteUnsupported].
func (c *Converter) Marshal(v any, opts ...json.Options) ([]byte, error) {
	return nil, ErrWriteUnsupported{typ: fmt.Sprintf("%T", v)}
}

// UnmarshalAs decodes in as a value of type T.
func UnmarshalAs[T any](c *Converter, in []byte, opts ...json.Options) (T, error) {
	var v T
	err := c.Unmarshal(in, &v, opts...)
	return v, err
}
