package subtype

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cast"
)

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// keyType reports the Go type of a declared discriminator value, which must
// be a scalar.
func keyType(v any) (reflect.Type, error) {
	if v == nil {
		return nil, ErrInvalidKey{v: v}
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return t, nil
	}
	return nil, ErrInvalidKey{v: v}
}

// isEnum reports whether t is a named integer type.
func isEnum(t reflect.Type) bool {
	if t.PkgPath() == "" {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// scalar returns the Go form of a raw JSON scalar: a string for JSON
// strings, the literal text for numbers, and a bool for booleans.
func scalar(raw jsontext.Value) (any, bool) {
	switch raw.Kind() {
	case '"':
		var s string
		// raw was validated when it was read
		if err := json.Unmarshal(raw, &s, jsontext.AllowInvalidUTF8(true)); err != nil {
			return nil, false
		}
		return s, true
	case '0':
		return string(raw), true
	case 't':
		return true, true
	case 'f':
		return false, true
	}
	return nil, false
}

// coerce converts a raw discriminator to a value of type key, so it can be
// looked up in the mapping keys.
func coerce(raw jsontext.Value, key reflect.Type, keys map[any]reflect.Type) (any, error) {
	v, ok := scalar(raw)
	if !ok {
		return nil, ErrCoerce{v: string(raw), typ: key, err: fmt.Errorf("JSON %v is not a scalar", raw.Kind())}
	}

	if v == "" && key.Kind() != reflect.String {
		return nil, ErrCoerce{v: string(raw), typ: key, err: errors.New("empty string")}
	}
	if s, ok := v.(string); ok && isEnum(key) {
		if k, ok := enumByName(s, key, keys); ok {
			return k, nil
		}
	}

	out := reflect.New(key).Elem()
	var err error
	switch key.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if s, ok := v.(string); ok {
			if v, err = integer(s); err != nil {
				return nil, ErrCoerce{v: string(raw), typ: key, err: err}
			}
		}
	}
	switch key.Kind() {
	case reflect.String:
		var s string
		if s, err = cast.ToStringE(v); err == nil {
			out.SetString(s)
		}
	case reflect.Bool:
		var b bool
		if b, err = cast.ToBoolE(v); err == nil {
			out.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = cast.ToInt64E(v); err == nil {
			if out.OverflowInt(n) {
				err = fmt.Errorf("%d overflows %v", n, key)
			} else {
				out.SetInt(n)
			}
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		if n, err = cast.ToUint64E(v); err == nil {
			if out.OverflowUint(n) {
				err = fmt.Errorf("%d overflows %v", n, key)
			} else {
				out.SetUint(n)
			}
		}
	case reflect.Float32, reflect.Float64:
		var f float64
		if f, err = cast.ToFloat64E(v); err == nil {
			out.SetFloat(f)
		}
	default:
		err = fmt.Errorf("unsupported key kind %v", key.Kind())
	}
	if err != nil {
		return nil, ErrCoerce{v: string(raw), typ: key, err: err}
	}
	return out.Interface(), nil
}

// integer reduces number text in fraction or exponent form, like 1e2 or
// 100.0, to plain integer text. Numbers with a fractional part are an error.
func integer(s string) (string, error) {
	if !strings.ContainsAny(s, ".eE") {
		return s, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", err
	}
	if f != math.Trunc(f) {
		return "", fmt.Errorf("%s is not an integer", s)
	}
	if math.Abs(f) >= 1<<63 {
		return "", fmt.Errorf("%s overflows int64", s)
	}
	return strconv.FormatInt(int64(f), 10), nil
}

// enumByName matches s against the textual form of an enumeration: first
// through encoding.TextUnmarshaler, then against the String form of each
// declared key.
func enumByName(s string, key reflect.Type, keys map[any]reflect.Type) (any, bool) {
	if reflect.PointerTo(key).Implements(textUnmarshalerType) {
		p := reflect.New(key)
		if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err == nil {
			return p.Elem().Interface(), true
		}
	}
	for k := range keys {
		if fmt.Sprint(k) == s {
			return k, true
		}
	}
	return nil, false
}
