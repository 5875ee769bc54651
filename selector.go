package subtype

import (
	"reflect"
	"strings"
)

// selectType resolves the concrete type of an object decoded as base d. It
// returns nil when the object should decode as the declared type.
//
// Declared subtypes are authoritative: once d declares any, discriminators
// are never resolved by type name, even if the declared mapping misses.
func (c *Converter) selectType(node objectNode, d *base) (reflect.Type, error) {
	raw, ok := node.lookup(c.property)
	if !ok {
		c.logger.Debug("subtype discriminator absent", "base", d.typ, "property", c.property)
		return nil, nil
	}

	if len(d.mapping) > 0 {
		k, err := coerce(raw, d.key, d.mapping)
		if err != nil {
			return nil, err
		}
		if t, ok := d.mapping[k]; ok {
			c.logger.Debug("subtype selected", "base", d.typ, "property", c.property, "value", k, "type", t)
			return t, nil
		}
		return c.unresolved(string(raw), d)
	}

	if raw.Kind() != '"' {
		return c.unresolved(string(raw), d)
	}
	v, _ := scalar(raw)
	name := v.(string)
	pkg := d.typ.PkgPath()
	for _, n := range []string{name, qualify(d.typ, name)} {
		if t, ok := c.reg.lookupName(pkg, n); ok {
			c.logger.Debug("subtype selected", "base", d.typ, "property", c.property, "value", name, "type", t)
			return t, nil
		}
	}
	return c.unresolved(string(raw), d)
}

func (c *Converter) unresolved(raw string, d *base) (reflect.Type, error) {
	if c.strict {
		return nil, ErrUnknownDiscriminatorValue{v: raw, base: d.typ}
	}
	c.logger.Warn("subtype discriminator unresolved", "base", d.typ, "property", c.property, "value", raw)
	return nil, nil
}

// qualify prefixes name with the package name of t, so "Circle" becomes
// "shapes.Circle" for a base type shapes.Shape.
func qualify(t reflect.Type, name string) string {
	if t.Name() == "" {
		return name
	}
	return strings.TrimSuffix(t.String(), t.Name()) + name
}
