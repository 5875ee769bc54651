// SPDX-FileCopyrightText: © 2024 Donald Hoelle. All rights reserved.
// SPDX-License-Identifier: MIT
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package [subtype] decodes Go interface values from JSON objects that name
// their own concrete type in a discriminator member, using the Go JSON V2
// experiment ([github.com/go-json-experiment/json]).
//
// By default, unmarshaling into a non-empty interface fails, because the
// decoder cannot know which concrete type to create:
//
//	var a Animal
//	err := json.Unmarshal([]byte(`{"kind":"dog","name":"Rex"}`), &a)
//	// json: cannot unmarshal JSON object into Go type Animal: cannot derive concrete type for non-empty interface
//
// Declare the base type and its subtypes in a [Registry], then decode through
// a [Converter] configured with the name of the discriminator member:
//
//	r := subtype.NewRegistry()
//	subtype.MustDeclare[Animal](r,
//	  subtype.Of[Cat]("cat"),
//	  subtype.Of[Dog]("dog"),
//	)
//	c := subtype.New("kind", r, nil)
//
//	var a Animal
//	_ = c.Unmarshal([]byte(`{"kind":"dog","name":"Rex"}`), &a)
//	fmt.Printf("%T %s\n", a, a.(Dog).Name)
//	// Output:
//	// subtype_test.Dog Rex
//
// The discriminator stays part of the object, so the concrete type may
// declare a field for it. The Converter decodes base types wherever they
// appear: in struct fields, map values, slices ([Declare] installs a
// collection for []B) and other registered collections ([Collect]).
//
// # Selecting the concrete type
//
// If the base type declares subtypes, the discriminator value is converted
// to the type of the declared values and looked up. Declared values may be
// strings, booleans or numbers. Named integer types act as enumerations: a
// JSON number selects by value, and a JSON string by the String (or
// encoding.TextUnmarshaler) form of the declared value.
//
// If the base type declares no subtypes, a JSON string discriminator is
// treated as a type name and looked up among the types registered with
// [RegisterName] in the package of the base type, first as given
// ("shapes.Circle"), then qualified with the package name of the base type
// ("Circle"). Declared subtypes are authoritative: once a base declares any,
// type names are never consulted.
//
// # Missing and unknown discriminators
//
// An object without a discriminator, or whose discriminator selects no type,
// decodes as the declared type. For interfaces, set a [Fallback] type to
// decode such objects into. [Config] can log unknown discriminators, or, with
// Strict set, reject them with [ErrUnknownDiscriminatorValue].
//
// # Nested values
//
// Objects can also carry their value nested under a second key, which allows
// concrete types that are not JSON objects:
//
//	cfg := &subtype.Config{NestedValueKey: "_value"}
//	// {"kind": "hash", "_value": 5}
//
// # Tables
//
// Subtypes can be declared from YAML as well; see [Registry.LoadTable].
//
// # Encoding
//
// Converters only decode. [Converter.Marshal], and the marshalers installed
// by [Converter.JSONOptions] for declared base types, always fail with
// [ErrWriteUnsupported].
//
// [github.com/go-json-experiment/json]: https://github.com/go-json-experiment/json
package subtype
