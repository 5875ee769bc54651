package subtype

import (
	"testing"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectNode_Lookup(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		key    string
		want   string
		wantOK bool
	}{
		{"first", `{"kind":"cat","name":"Tom"}`, "kind", `"cat"`, true},
		{"last", `{"name":"Tom","kind":"cat"}`, "kind", `"cat"`, true},
		{"number", `{"kind":1}`, "kind", `1`, true},
		{"object", `{"kind":{"a":[1]}}`, "kind", `{"a":[1]}`, true},
		{"missing", `{"name":"Tom"}`, "kind", ``, false},
		{"null", `{"kind":null}`, "kind", ``, false},
		{"empty", `{}`, "kind", ``, false},
		{"nested only", `{"a":{"kind":"cat"}}`, "kind", ``, false},
		{"duplicate", `{"kind":"cat","kind":"dog"}`, "kind", `"dog"`, true},
		{"invalid utf8 elsewhere", "{\"name\":\"T\xffm\",\"kind\":\"cat\"}", "kind", `"cat"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := objectNode(tt.in).lookup(tt.key)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, string(got))
			}
		})
	}
}

func TestObjectNode_Payload(t *testing.T) {
	node := objectNode(`{"_type":"hash","_value":5}`)

	got, err := node.payload("", "_type")
	require.NoError(t, err)
	assert.Equal(t, string(node), string(got))

	got, err = node.payload("_value", "_type")
	require.NoError(t, err)
	assert.Equal(t, `5`, string(got))

	// Objects without the nested key are their own payload
	inline := objectNode(`{"_type":"join","a":1}`)
	got, err = inline.payload("_value", "_type")
	require.NoError(t, err)
	assert.Equal(t, string(inline), string(got))

	_, err = objectNode(`{"_type":"hash","_value":5,"extra":true}`).payload("_value", "_type")
	assert.ErrorIs(t, err, ErrMixedValue{key: "_value"})
}

func TestObjectNode_Members(t *testing.T) {
	var names []string
	objectNode(`{"a":1,"b":[2],"c":{"d":3}}`).members(func(name string, v jsontext.Value) bool {
		names = append(names, name)
		return name != "b"
	})
	assert.Equal(t, []string{"a", "b"}, names)
}
