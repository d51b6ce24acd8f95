package redact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestApplyMasksPasswordAtAnyDepth(t *testing.T) {
	p := DefaultPolicy()
	cases := []string{
		`{"password":"secret123","name":"a"}`,
		`{"user":{"password":"secret123","name":"a"}}`,
		`{"items":[{"deep":{"password":"secret123","name":"a"}}]}`,
		`[[{"password":"secret123","name":"a"}]]`,
	}
	for _, raw := range cases {
		out := p.Apply(decode(t, raw))
		found := false
		var walk func(v any)
		walk = func(v any) {
			switch x := v.(type) {
			case map[string]any:
				if pw, ok := x["password"]; ok {
					found = true
					assert.Equal(t, DefaultMask, pw, raw)
					assert.Equal(t, "a", x["name"], raw)
				}
				for _, child := range x {
					walk(child)
				}
			case []any:
				for _, child := range x {
					walk(child)
				}
			}
		}
		walk(out)
		assert.True(t, found, "password key missing after redaction: %s", raw)
	}
}

func TestApplyCaseInsensitiveAndAnyValueType(t *testing.T) {
	p := DefaultPolicy()
	out := p.Apply(decode(t, `{"Authorization":"Bearer x","API_KEY":{"nested":1},"Token":[1,2],"ok":true}`))
	m := out.(map[string]any)
	assert.Equal(t, DefaultMask, m["Authorization"])
	assert.Equal(t, DefaultMask, m["API_KEY"])
	assert.Equal(t, DefaultMask, m["Token"])
	assert.Equal(t, true, m["ok"])
}

func TestApplyMatchesKeysExactlyIgnoringCase(t *testing.T) {
	p := NewPolicy("", " Password ")
	out := p.Apply(decode(t, `{"PASSWORD":"a"," password ":"b","password2":"c"}`))
	assert.Equal(t, map[string]any{"PASSWORD": DefaultMask, " password ": "b", "password2": "c"}, out)
}

func TestApplyWithoutSensitiveKeysIsIdentity(t *testing.T) {
	p := DefaultPolicy()
	for _, raw := range []string{
		`{"name":"a","email":"a@x.com","tags":["x",{"y":null}],"n":1.5}`,
		`[1,"two",false,null]`,
		`"plain"`,
		`42`,
		`null`,
	} {
		in := decode(t, raw)
		assert.Equal(t, in, p.Apply(in), raw)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	p := DefaultPolicy()
	in := decode(t, `{"password":"p","child":{"secret":"s"},"list":[{"token":"t"}]}`)
	before, err := json.Marshal(in)
	require.NoError(t, err)

	_ = p.Apply(in)

	after, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestApplyIsIdempotent(t *testing.T) {
	p := DefaultPolicy()
	in := decode(t, `{"password":"p","child":{"secret":"s"}}`)
	once := p.Apply(in)
	assert.Equal(t, once, p.Apply(once))
}

func TestCustomPolicy(t *testing.T) {
	p := NewPolicy("[x]", "pin")
	out := p.Apply(decode(t, `{"PIN":"1234","password":"kept"}`)).(map[string]any)
	assert.Equal(t, "[x]", out["PIN"])
	assert.Equal(t, "kept", out["password"])
	assert.Equal(t, "[x]", p.Mask())
}

func TestNilPolicyPassesThrough(t *testing.T) {
	var p *Policy
	in := map[string]any{"password": "p"}
	assert.Equal(t, in, p.Apply(in))
	assert.False(t, p.IsSensitive("password"))
}
